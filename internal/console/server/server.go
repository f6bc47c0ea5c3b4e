package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/console/handler"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/infra"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	// Обработчики бизнес-доменов
	monitorHandler *handler.MonitorHandler // /api/v1/*
	ruleHandler    *handler.RuleHandler    // /api/v1/rules
}

// NewConsoleServer инициализирует HTTP-поверхность монитора: query API для
// дашборда плюс /metrics для Prometheus
func NewConsoleServer(
	cfg *infra.Config,
	logger *zap.Logger,
	monitorH *handler.MonitorHandler,
	ruleH *handler.RuleHandler,
	promReg *prometheus.Registry,
) *ConsoleServer {
	s := &ConsoleServer{
		router:         chi.NewRouter(),
		logger:         logger.Named("console-api"),
		cfg:            cfg,
		monitorHandler: monitorH,
		ruleHandler:    ruleH,
	}

	s.routes(promReg)
	return s
}

func (s *ConsoleServer) routes(promReg *prometheus.Registry) {
	r := s.router

	// Глобальные инфраструктурные Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Healthcheck и метрики
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/infrastructure", s.monitorHandler.GetInfrastructure)
		r.Get("/system/status", s.monitorHandler.GetSystemStatus)

		r.Route("/services/{id}", func(r chi.Router) {
			r.Get("/", s.monitorHandler.GetServiceDetail)
			r.Get("/sla", s.monitorHandler.GetServiceSLA)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", s.monitorHandler.GetAlerts)
			r.Post("/{id}/acknowledge", s.monitorHandler.AcknowledgeAlert)
		})

		r.Get("/anomalies", s.monitorHandler.GetAnomalies)
		r.Get("/cost", s.monitorHandler.GetCost)
		r.Get("/cost/forecast", s.monitorHandler.GetCostForecast)
		r.Get("/incidents", s.monitorHandler.GetIncidents)

		// Управление правилами алертинга
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", s.ruleHandler.List)
			r.Post("/", s.ruleHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.ruleHandler.Get)
				r.Put("/", s.ruleHandler.Update)
				r.Delete("/", s.ruleHandler.Delete)
			})
		})
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
