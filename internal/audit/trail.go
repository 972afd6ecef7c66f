package audit

/*
Файл trail.go реализует журнал аудита исполнения — асинхронный сборщик
событий о каждой диспетчеризации действия.

Ключевые особенности архитектуры:
- Non-blocking Logging: события передаются из горячего пути движка через
  неблокирующий канал; задержки хранилища не влияют на латентность ввода.
- Batching: накопление в памяти и пакетная запись по таймеру или при
  достижении лимита пачки.
- Reliability: запись в хранилище обёрнута в retry с бэкоффом и circuit
  breaker — лежащая БД не должна застопорить воркер журнала.
- Drain Pattern & Graceful Shutdown: при остановке канал запирается,
  воркер вычитает остатки и делает финальный flush. Потерь при штатной
  перезагрузке нет.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Storage определяет, куда физически сохраняются события.
type Storage interface {
	// WriteBatch сохраняет пачку событий за один раз
	WriteBatch(ctx context.Context, events []Event) error
}

// Config — настройки журнала аудита.
type Config struct {
	BufferSize    int           `mapstructure:"buffer_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

func (c *Config) normalize() {
	if c.BufferSize <= 0 {
		c.BufferSize = 10000
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 500 * time.Millisecond
	}
}

type Trail struct {
	ch      chan Event // Буфер для асинхронности
	storage Storage
	logger  *zap.Logger
	cfg     Config
	cb      *gobreaker.CircuitBreaker
	wg      sync.WaitGroup

	// Атомарный флаг (0 - открыт, 1 - закрыт): защита от Log после Stop
	isClosed int32
}

func NewTrail(storage Storage, cfg Config, logger *zap.Logger) *Trail {
	cfg.normalize()

	// Предохранитель на хранилище: после серии отказов переходим
	// в режим сброса, чтобы не молотить лежащую БД
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "audit-storage",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &Trail{
		ch:      make(chan Event, cfg.BufferSize),
		storage: storage,
		logger:  logger.With(zap.String("mod", "audit")),
		cfg:     cfg,
		cb:      cb,
	}
}

func (t *Trail) Start() {
	t.wg.Add(1)
	go t.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет.
func (t *Trail) Stop() {
	atomic.StoreInt32(&t.isClosed, 1)

	// Крошечная пауза, чтобы текущие Log успели проскочить
	time.Sleep(10 * time.Millisecond)

	t.logger.Info("stopping audit trail: closing channel and flushing buffer...")
	close(t.ch)
	t.wg.Wait()
	t.logger.Info("audit trail stopped gracefully")
}

func (t *Trail) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if atomic.LoadInt32(&t.isClosed) == 1 {
		t.logger.Warn("audit event dropped: trail is stopping", zap.String("id", event.ID))
		return
	}

	// Load Shedding: при переполненном буфере событие уходит
	// в обычный лог, но не блокирует движок
	select {
	case t.ch <- event:
	default:
		t.logger.Error("audit_buffer_overflow",
			zap.String("action_id", event.ActionID),
			zap.String("status", event.Status),
		)
	}
}

func (t *Trail) worker() {
	defer t.wg.Done()

	batch := make([]Event, 0, t.cfg.BatchSize)
	ticker := time.NewTicker(t.cfg.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := t.write(batch); err != nil {
			t.logger.Error("audit flush failed", zap.Error(err), zap.Int("dropped", len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-t.ch:
			if !ok {
				// Канал закрыт в Stop(): вычитали всё — финальный flush и выход
				flush()
				t.logger.Info("audit worker finished")
				return
			}
			batch = append(batch, event)
			if len(batch) >= t.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// write — запись пачки с ретраями под предохранителем.
// Контекст Background: основной контекст на Stop уже может быть закрыт.
func (t *Trail) write(batch []Event) error {
	events := make([]Event, len(batch))
	copy(events, batch)

	_, err := t.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Attempts(3),
			retry.Delay(200*time.Millisecond),
		)
		return nil, r.Do(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return t.storage.WriteBatch(ctx, events)
		})
	})
	return err
}
