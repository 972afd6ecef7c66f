// Package engine реализует диспетчер действий: ограниченная очередь,
// пул воркеров, аварийный стоп, журнал исполнения и хуки уведомлений.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ngotrantronghieu/Gesture-Flow/internal/action"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/backend"
)

// Hook вызывается ровно один раз на каждую диспетчеризацию —
// либо как onExecuted, либо как onFailed. Это единственный канал,
// по которому вызывающий слой узнаёт об итоге.
type Hook func(a action.Action, r Result)

// Config — настройки движка. Нулевые значения дополняются дефолтами.
type Config struct {
	Workers      int  `mapstructure:"workers"`
	QueueSize    int  `mapstructure:"queue_size"`
	HistoryLimit int  `mapstructure:"history_limit"`
	Async        bool `mapstructure:"async"`

	// Пауза-пейсинг перед каждой диспетчеризацией,
	// чтобы не захлестнуть драйвер ввода
	GraceDelay time.Duration `mapstructure:"grace_delay"`

	// Пауза между дискретными нажатиями клавиш
	KeyInterval time.Duration `mapstructure:"key_interval"`

	// Дефолтная пауза между шагами макроса
	StepDelay time.Duration `mapstructure:"step_delay"`

	// Пауза между кликами при clicks > 1
	ClickInterval time.Duration `mapstructure:"click_interval"`

	// Шаг интерполяции перемещения/перетаскивания
	DragStep time.Duration `mapstructure:"drag_step"`

	// Дефолтная пауза между тиками прокрутки
	ScrollTick time.Duration `mapstructure:"scroll_tick"`

	// Жёсткий предел глубины вложенных макросов при исполнении
	MaxMacroDepth int `mapstructure:"max_macro_depth"`
}

func (c *Config) normalize() {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 100
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 1000
	}
	if c.KeyInterval <= 0 {
		c.KeyInterval = 50 * time.Millisecond
	}
	if c.StepDelay <= 0 {
		c.StepDelay = 100 * time.Millisecond
	}
	if c.ClickInterval <= 0 {
		c.ClickInterval = 100 * time.Millisecond
	}
	if c.DragStep <= 0 {
		c.DragStep = 20 * time.Millisecond
	}
	if c.ScrollTick <= 0 {
		c.ScrollTick = 50 * time.Millisecond
	}
	if c.MaxMacroDepth <= 0 {
		c.MaxMacroDepth = 3
	}
}

type task struct {
	ctx context.Context
	act action.Action
	p   *Pending
}

// Executor — ядро исполнения. Создаётся один на процесс;
// драйвер разделяется воркерами.
type Executor struct {
	cfg       Config
	validator *action.Validator
	driver    backend.Driver
	logger    *zap.Logger
	metrics   *Metrics
	history   *History

	// Пейсинг обращений к драйверу; nil при нулевой grace-паузе
	limiter *rate.Limiter

	// Аварийный стоп: атомарный флаг, lock-free чтение в горячем пути
	stopped atomic.Bool

	// Защита отправки в закрываемый канал при Shutdown
	closeMu sync.RWMutex
	closed  bool

	tasks chan task
	wg    sync.WaitGroup

	onExecuted Hook
	onFailed   Hook
}

func New(cfg Config, v *action.Validator, d backend.Driver, logger *zap.Logger, m *Metrics) *Executor {
	cfg.normalize()
	if m == nil {
		m = NewMetrics(nil)
	}

	e := &Executor{
		cfg:       cfg,
		validator: v,
		driver:    d,
		logger:    logger.Named("engine"),
		metrics:   m,
		history:   NewHistory(cfg.HistoryLimit),
		tasks:     make(chan task, cfg.QueueSize),
	}
	if cfg.GraceDelay > 0 {
		e.limiter = rate.NewLimiter(rate.Every(cfg.GraceDelay), 1)
	}
	return e
}

// Start запускает пул воркеров.
func (e *Executor) Start() {
	for i := 0; i < e.cfg.Workers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
	e.logger.Info("executor started",
		zap.Int("workers", e.cfg.Workers),
		zap.Int("queue_size", e.cfg.QueueSize),
		zap.String("driver", e.driver.Name()),
	)
}

// SetHooks задаёт уведомления об итогах. Вызывать до Start:
// хуки читаются воркерами без блокировок.
func (e *Executor) SetHooks(onExecuted, onFailed Hook) {
	e.onExecuted = onExecuted
	e.onFailed = onFailed
}

// Execute отправляет действие на исполнение в режиме по умолчанию.
func (e *Executor) Execute(ctx context.Context, act action.Action) *Pending {
	return e.ExecuteMode(ctx, act, e.cfg.Async)
}

// ExecuteMode — то же с явным выбором режима.
// Порядок проверок фиксирован: валидация, аварийный стоп, очередь.
// Отказы валидации и интерлока НЕ попадают в журнал — журналируются
// только реальные диспетчеризации.
func (e *Executor) ExecuteMode(ctx context.Context, act action.Action, async bool) *Pending {
	if ok, reason := e.validator.Validate(act); !ok {
		e.metrics.FailuresTotal.WithLabelValues(string(CodeValidation)).Inc()
		e.logger.Warn("action rejected by validator",
			zap.String("action", act.Label()),
			zap.String("reason", reason),
		)
		return resolvedPending(newResult(act, false, "validation failed: "+reason, CodeValidation, time.Now()))
	}

	if e.stopped.Load() {
		e.metrics.FailuresTotal.WithLabelValues(string(CodeEmergencyStop)).Inc()
		return resolvedPending(newResult(act, false, "emergency stop engaged", CodeEmergencyStop, time.Now()))
	}

	if !async {
		return resolvedPending(e.dispatch(ctx, act))
	}

	p := newPending()

	e.closeMu.RLock()
	defer e.closeMu.RUnlock()
	if e.closed {
		return resolvedPending(newResult(act, false, "executor is shut down", CodeNone, time.Now()))
	}

	select {
	case e.tasks <- task{ctx: ctx, act: act, p: p}:
		e.metrics.QueueDepth.Set(float64(len(e.tasks)))
	default:
		// Очередь переполнена: отказ вместо блокировки вызывающего
		e.logger.Warn("execution queue is full", zap.String("action", act.Label()))
		return resolvedPending(newResult(act, false, "execution queue is full", CodeNone, time.Now()))
	}
	return p
}

func (e *Executor) worker(id int) {
	defer e.wg.Done()
	for t := range e.tasks {
		e.metrics.QueueDepth.Set(float64(len(e.tasks)))
		t.p.resolve(e.dispatch(t.ctx, t.act))
	}
}

// dispatch — синхронный примитив исполнения: ровно один Result
// на вызов, что бы ни случилось внутри.
func (e *Executor) dispatch(ctx context.Context, act action.Action) Result {
	return e.dispatchDepth(ctx, act, 0)
}

func (e *Executor) dispatchDepth(ctx context.Context, act action.Action, depth int) Result {
	started := time.Now()

	// Таймаут действия превращается в дедлайн верхнего уровня;
	// вложенные шаги макроса наследуют дедлайн родителя
	if act.Timeout > 0 && depth == 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(act.Timeout*float64(time.Second)))
		defer cancel()
	}

	// Пейсинг перед обращением к драйверу.
	// Мёртвый контекст до драйвера не доходит
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			r := newResult(act, false, "execution error: "+err.Error(), CodeExecution, started)
			e.record(act, r)
			return r
		}
	}

	ok, msg, err := e.performSafe(ctx, act, depth)

	var r Result
	if err != nil {
		r = newResult(act, false, "execution error: "+err.Error(), CodeExecution, started)
	} else {
		r = newResult(act, ok, msg, CodeNone, started)
	}

	e.record(act, r)
	return r
}

// performSafe изолирует панику драйвера: она конвертируется
// в EXECUTION_ERROR и не роняет воркер.
func (e *Executor) performSafe(ctx context.Context, act action.Action, depth int) (ok bool, msg string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ok, msg, err = false, "", fmt.Errorf("panic: %v", rec)
		}
	}()
	return e.perform(ctx, act, depth)
}

func (e *Executor) perform(ctx context.Context, act action.Action, depth int) (bool, string, error) {
	switch act.Type {
	case action.TypePointer:
		return e.performPointer(ctx, act)
	case action.TypeKeyboard:
		return e.performKeyboard(ctx, act)
	case action.TypeApplication:
		return e.performApplication(act)
	case action.TypeMacro:
		return e.performMacro(ctx, act, depth)
	case action.TypeSystem:
		return false, fmt.Sprintf("system actions are not implemented: %s", act.Subtype), nil
	default:
		return false, fmt.Sprintf("unsupported action type: %s", act.Type), nil
	}
}

// record фиксирует итог: журнал, метрики, ровно один хук.
func (e *Executor) record(act action.Action, r Result) {
	e.history.Append(act, r)
	e.metrics.HistorySize.Set(float64(e.history.Len()))

	status := "success"
	if !r.Success {
		status = "failure"
		e.metrics.FailuresTotal.WithLabelValues(string(r.ErrorCode)).Inc()
	}
	e.metrics.ExecutionsTotal.WithLabelValues(string(act.Type), status).Inc()
	e.metrics.DispatchDuration.WithLabelValues(string(act.Type)).Observe(r.Duration)

	if r.Success {
		e.logger.Info("action executed",
			zap.String("action", act.Label()),
			zap.String("action_id", act.ID),
			zap.Float64("duration_s", r.Duration),
		)
		if e.onExecuted != nil {
			e.onExecuted(act, r)
		}
	} else {
		e.logger.Warn("action failed",
			zap.String("action", act.Label()),
			zap.String("action_id", act.ID),
			zap.String("code", string(r.ErrorCode)),
			zap.String("message", r.Message),
		)
		if e.onFailed != nil {
			e.onFailed(act, r)
		}
	}
}

// EmergencyStopAll взводит глобальный интерлок: все последующие
// Execute отказывают с EMERGENCY_STOP, макрос прерывается между шагами.
// Примитив, уже начатый драйвером, доработает до конца.
func (e *Executor) EmergencyStopAll() {
	e.stopped.Store(true)
	e.metrics.EmergencyStop.Set(1)
	e.logger.Warn("emergency stop engaged: all action execution halted")
}

// ResumeExecution снимает интерлок.
func (e *Executor) ResumeExecution() {
	e.stopped.Store(false)
	e.metrics.EmergencyStop.Set(0)
	e.logger.Info("action execution resumed")
}

// EmergencyStopped — текущее состояние интерлока.
func (e *Executor) EmergencyStopped() bool {
	return e.stopped.Load()
}

// HistoryTail возвращает копию последних записей журнала.
func (e *Executor) HistoryTail(limit int) []Entry {
	return e.history.Tail(limit)
}

// HistoryLen — текущий размер журнала.
func (e *Executor) HistoryLen() int {
	return e.history.Len()
}

// ClearHistory очищает журнал исполнения.
func (e *Executor) ClearHistory() {
	e.history.Clear()
	e.metrics.HistorySize.Set(0)
	e.logger.Info("execution history cleared")
}

// Shutdown запирает вход, дожидается вычитки очереди и остановки
// воркеров. Завершение — исключительно через закрытие канала задач.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.closeMu.Lock()
	if e.closed {
		e.closeMu.Unlock()
		return nil
	}
	e.closed = true
	close(e.tasks)
	e.closeMu.Unlock()

	e.logger.Info("executor stopping: draining queue...")

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("executor stopped gracefully")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("executor shutdown: %w", ctx.Err())
	}
}
