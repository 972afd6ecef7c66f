package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ngotrantronghieu/Gesture-Flow/internal/action"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/audit"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/backend"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/engine"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/infra"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/mapping"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/notify"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/safety"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the execution engine with the HTTP control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

// combineHooks сворачивает несколько подписчиков в один хук движка.
func combineHooks(hooks ...engine.Hook) engine.Hook {
	return func(a action.Action, r engine.Result) {
		for _, h := range hooks {
			h(a, r)
		}
	}
}

func serve() error {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	// Контекст для управления жизненным циклом фоновых горутин
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Валидация и драйвер ввода
	validator := action.NewValidator(cfg.Policy)
	driver, err := backend.Select(cfg.Backend.Preferred, logger)
	if err != nil {
		return err
	}

	// 3. Метрики и ядро движка
	reg := prometheus.NewRegistry()
	metrics := engine.NewMetrics(reg)
	exec := engine.New(cfg.Engine, validator, driver, logger, metrics)

	// 4. Подписчики на итоги диспетчеризации: аудит + push-уведомления
	var executed, failed []engine.Hook

	var trail *audit.Trail
	if cfg.Audit.Enabled {
		var storage audit.Storage
		var closer interface{ Close() error }
		switch cfg.Audit.Storage {
		case "postgres":
			pg, err := audit.NewPostgresStorage(cfg.Audit.DatabaseURL)
			if err != nil {
				return fmt.Errorf("init audit storage: %w", err)
			}
			storage, closer = pg, pg
		default:
			f, err := audit.NewJSONLStorage(cfg.Audit.Path)
			if err != nil {
				return fmt.Errorf("init audit storage: %w", err)
			}
			storage, closer = f, f
		}
		defer closer.Close()

		trail = audit.NewTrail(storage, cfg.Audit.Config, logger)
		trail.Start()
		ok, fail := trail.Hooks()
		executed, failed = append(executed, ok), append(failed, fail)
	}

	hub := notify.NewHub(logger)
	defer hub.Close()
	hubOK, hubFail := hub.Hooks()
	executed, failed = append(executed, hubOK), append(failed, hubFail)

	exec.SetHooks(combineHooks(executed...), combineHooks(failed...))
	exec.Start()

	// 5. Межпроцессная синхронизация аварийного стопа (опционально)
	var interlock *engine.InterlockSync
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		interlock = engine.NewInterlockSync(rdb, exec, logger)
		if err := interlock.Init(appCtx); err != nil {
			// Не фатально: слушатель переподключится и досинхронизируется
			logger.Error("interlock sync init failed", zap.Error(err))
		}
		go interlock.StartListener(appCtx)
	}

	// 6. Клавиатурный failsafe
	if cfg.Safety.Enabled {
		fs := safety.New(cfg.Safety, exec, logger)
		go fs.Start()
		defer fs.Stop()
	}

	// 7. HTTP API
	var tokenValidator *server.TokenValidator
	if cfg.Auth.Secret != "" {
		tokenValidator = server.NewTokenValidator(cfg.Auth.Secret)
	} else {
		logger.Warn("auth secret is empty: control API is unauthenticated")
	}

	opts := server.Options{
		Executor:  exec,
		Validator: validator,
		Store:     mapping.NewStore(logger),
		Hub:       hub,
		Auth:      tokenValidator,
		Registry:  reg,
	}
	if interlock != nil {
		opts.Interlock = interlock
	}
	api := server.New(opts, logger)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("gestured started", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("gestured stopping...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}
	if err := exec.Shutdown(shutdownCtx); err != nil {
		logger.Error("executor shutdown failed", zap.Error(err))
	}
	if trail != nil {
		trail.Stop()
	}

	logger.Info("gestured exited properly")
	return nil
}
