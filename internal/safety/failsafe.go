// Package safety — аварийная кнопка на клавиатуре.
// Глобальный хук слушает паническое сочетание и мгновенно взводит
// интерлок движка: пользователь должен уметь остановить автоматизацию,
// даже когда курсором управляет не он.
package safety

import (
	hook "github.com/robotn/gohook"
	"go.uber.org/zap"
)

// Config — настройки failsafe-слушателя.
type Config struct {
	Enabled bool `mapstructure:"enabled"`

	// Паническое сочетание; по умолчанию ctrl+shift+esc
	Keys []string `mapstructure:"keys"`
}

// Interlock — то, что failsafe умеет дёргать у движка.
type Interlock interface {
	EmergencyStopAll()
}

type Failsafe struct {
	cfg    Config
	target Interlock
	logger *zap.Logger
	events chan hook.Event
}

func New(cfg Config, target Interlock, logger *zap.Logger) *Failsafe {
	if len(cfg.Keys) == 0 {
		cfg.Keys = []string{"ctrl", "shift", "esc"}
	}
	return &Failsafe{
		cfg:    cfg,
		target: target,
		logger: logger.Named("failsafe"),
	}
}

// Start регистрирует глобальный хук и запускает цикл обработки.
// Блокирует до Stop, поэтому вызывается в отдельной горутине.
func (f *Failsafe) Start() {
	hook.Register(hook.KeyDown, f.cfg.Keys, func(e hook.Event) {
		f.logger.Warn("failsafe combination pressed: engaging emergency stop",
			zap.Strings("keys", f.cfg.Keys),
		)
		f.target.EmergencyStopAll()
	})

	f.logger.Info("failsafe listener started", zap.Strings("keys", f.cfg.Keys))
	f.events = hook.Start()
	<-hook.Process(f.events)
}

// Stop снимает глобальный хук.
func (f *Failsafe) Stop() {
	hook.End()
	f.logger.Info("failsafe listener stopped")
}
