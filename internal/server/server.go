// Package server — управляющий HTTP API движка: приём жестов и действий,
// аварийный стоп, журнал, привязки и websocket-уведомления.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ngotrantronghieu/Gesture-Flow/internal/action"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/engine"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/mapping"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/notify"
)

type Server struct {
	router *chi.Mux
	logger *zap.Logger

	exec      *engine.Executor
	validator *action.Validator
	store     *mapping.Store
	hub       *notify.Hub

	// nil — аутентификация выключена (локальный режим)
	auth *TokenValidator

	// nil — межпроцессная синхронизация стопа выключена
	interlock InterlockPublisher

	// nil — /metrics отдаёт дефолтный реестр
	registry *prometheus.Registry
}

type Options struct {
	Executor  *engine.Executor
	Validator *action.Validator
	Store     *mapping.Store
	Hub       *notify.Hub
	Auth      *TokenValidator
	Interlock InterlockPublisher
	Registry  *prometheus.Registry
}

func New(opts Options, logger *zap.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.Named("api"),
		exec:      opts.Executor,
		validator: opts.Validator,
		store:     opts.Store,
		hub:       opts.Hub,
		auth:      opts.Auth,
		interlock: opts.Interlock,
		registry:  opts.Registry,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (Открыты для всех) ---
	r.Group(func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		metricsHandler := promhttp.Handler()
		if s.registry != nil {
			metricsHandler = promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
		}
		r.Handle("/metrics", metricsHandler)
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требует HS256 токен, если включён) ---
	r.Group(func(r chi.Router) {
		if s.auth != nil {
			r.Use(AuthMiddleware(s.auth, s.logger))
		}

		// Горячий путь: распознанный жест -> действие
		r.Post("/v1/gestures", s.handleGesture)

		// Прямое исполнение действия (?sync=true — дождаться результата)
		r.Post("/v1/actions/execute", s.handleExecute)

		// Аварийный стоп / возобновление
		r.Post("/v1/emergency-stop", s.handleEmergencyStop)
		r.Post("/v1/resume", s.handleResume)
		r.Get("/v1/status", s.handleStatus)

		// Журнал исполнения
		r.Get("/v1/history", s.handleHistory)
		r.Delete("/v1/history", s.handleClearHistory)

		// Привязки «жест -> действие»
		r.Route("/v1/mappings", func(r chi.Router) {
			r.Get("/", s.handleListMappings)
			r.Post("/", s.handlePutMapping)
			r.Route("/{gestureID}", func(r chi.Router) {
				r.Delete("/", s.handleRemoveMapping)
				r.Post("/enable", s.handleEnableMapping(true))
				r.Post("/disable", s.handleEnableMapping(false))
			})
		})

		// Push-уведомления об итогах исполнения
		r.Get("/v1/ws", s.hub.HandleWS)
	})
}

// ServeHTTP позволяет использовать Server как стандартный http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
