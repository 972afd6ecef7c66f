package engine

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Ключи Redis для межпроцессной синхронизации аварийного стопа.
const (
	interlockKey     = "gestureflow:engine:interlock"
	interlockChannel = "gestureflow:engine:interlock-signal"
)

// InterlockSync синхронизирует аварийный стоп через Redis:
// внешняя консоль (или второй процесс) шлёт сигнал в Pub/Sub,
// движок мгновенно взводит локальный атомарный флаг.
// Подсистема опциональна: без Redis интерлок остаётся чисто локальным.
type InterlockSync struct {
	rdb    *redis.Client
	exec   *Executor
	logger *zap.Logger
}

func NewInterlockSync(rdb *redis.Client, exec *Executor, logger *zap.Logger) *InterlockSync {
	return &InterlockSync{
		rdb:    rdb,
		exec:   exec,
		logger: logger.Named("interlock-sync"),
	}
}

// Init подтягивает текущее состояние при старте — сигнал мог прийти,
// пока процесс был мёртв.
func (s *InterlockSync) Init(ctx context.Context) error {
	val, err := s.rdb.Get(ctx, interlockKey).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if val == "on" {
		s.exec.EmergencyStopAll()
	}
	return nil
}

// StartListener — «живучая» подписка: переподключение с повторной
// синхронизацией состояния после каждого обрыва.
func (s *InterlockSync) StartListener(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		pubsub := s.rdb.Subscribe(ctx, interlockChannel)

		// Проверка успешности подписки
		if _, err := pubsub.Receive(ctx); err != nil {
			s.logger.Error("failed to subscribe", zap.String("chan", interlockChannel), zap.Error(err))
			pubsub.Close()
			time.Sleep(5 * time.Second)
			continue
		}

		// Синхронизация при каждом успешном коннекте
		if err := s.Init(ctx); err != nil {
			s.logger.Error("interlock sync failed on reconnect", zap.Error(err))
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}
				s.apply(msg.Payload)
			}
		}

		pubsub.Close()
		time.Sleep(time.Second)
	}
}

func (s *InterlockSync) apply(payload string) {
	switch payload {
	case "on", "true", "1":
		s.logger.Warn("remote emergency stop signal received")
		s.exec.EmergencyStopAll()
	case "off", "false", "0":
		s.logger.Info("remote resume signal received")
		s.exec.ResumeExecution()
	default:
		s.logger.Error("invalid interlock signal", zap.String("payload", payload))
	}
}

// Publish рассылает локальное изменение интерлока остальным процессам.
func (s *InterlockSync) Publish(ctx context.Context, engaged bool) error {
	state := "off"
	if engaged {
		state = "on"
	}
	if err := s.rdb.Set(ctx, interlockKey, state, 0).Err(); err != nil {
		return err
	}
	return s.rdb.Publish(ctx, interlockChannel, state).Err()
}
