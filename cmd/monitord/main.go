package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/alerting"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/audit"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/broadcast"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/catalog"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/console/handler"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/console/server"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/console/service"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/engine"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/infra"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/repository/postgres"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Контекст для управления жизненным циклом фоновых горутин.
	// cancel() останавливает поллер и подписчиков при завершении процесса
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Долговременное хранилище. Пустой URL или недоступная база — не
	// фатальная ошибка: процесс деградирует в memory-only без переподключений
	var storage engine.Storage = engine.NullStorage{}
	var auditStorage audit.StorageInterface = audit.NullStorage{}
	var auditRepo *postgres.AuditRepo

	if cfg.MemoryOnly() {
		logger.Warn("database.url is empty: running memory-only, history will not survive restart")
	} else {
		repo, err := postgres.NewStateRepo(appCtx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			logger.Warn("postgres unavailable, degrading to memory-only", zap.Error(err))
		} else {
			storage = repo
			aRepo, err := postgres.NewAuditRepo(cfg.Database.URL)
			if err != nil {
				logger.Warn("audit storage unavailable, change events will not be persisted", zap.Error(err))
			} else {
				auditRepo = aRepo
				auditStorage = aRepo
			}
		}
	}
	logger.Info("storage selected", zap.String("mode", storage.Mode()))

	// 3. Redis — широковещание дельт. Без адреса работаем молча
	var notify engine.Broadcaster = broadcast.NopPublisher{}
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		notify = broadcast.NewPublisher(rdb, logger)
	}

	// 4. Каталог флота + защитные механизмы (retries, circuit breaker, limiter)
	var api engine.FleetAPI
	mockMode := cfg.Fleet.BaseURL == ""
	if mockMode {
		logger.Warn("fleet.base_url is empty: using built-in mock catalog")
		api = &catalog.MockCatalog{}
	} else {
		api = catalog.NewClient(cfg.Fleet.BaseURL, cfg.Fleet.APIToken)
	}
	safeAPI := engine.NewReliabilityWrapper(api, engine.ReliabilityConfig{
		FailureThreshold: cfg.Monitor.CBFailureThreshold,
		ResetTimeout:     cfg.Monitor.CBResetTimeout,
		Attempts:         3,
	})
	prober := catalog.NewProber(cfg.Monitor.ProbeTimeout)

	// 5. Снапшот в памяти + холодная загрузка из базы
	state := engine.NewState(engine.Limits{
		SamplesPerService: cfg.Monitor.SampleHistoryLimit,
		ProbesPerService:  cfg.Monitor.ProbeHistoryLimit,
		Anomalies:         cfg.Monitor.AnomalyHistoryLimit,
		Alerts:            cfg.Monitor.AnomalyHistoryLimit * 2,
		Errors:            cfg.Monitor.ErrorLogLimit,
	})
	coldLoad(appCtx, state, storage, logger)

	// 6. Аудит — батчинг в фоне
	trail := audit.NewTrail(auditStorage, logger, cfg.Monitor.AuditBufferSize, cfg.Monitor.AuditFlushInterval)
	trail.Start()

	// 7. Метрики и ядро: движок правил, коррелятор, поллер
	reg := prometheus.NewRegistry()
	metrics := engine.NewMetrics(reg)

	poller := engine.NewPoller(
		engine.PollerConfig{
			Interval: cfg.Monitor.PollInterval,
			GroupIDs: cfg.Fleet.GroupIDs,
			// Мок не требует учетных данных
			TokenPresent: cfg.Fleet.APIToken != "" || mockMode,
		},
		safeAPI,
		prober,
		state,
		storage,
		alerting.NewEngine(logger),
		alerting.NewCorrelator(logger),
		safeAPI,
		notify,
		metrics,
		logger,
	)
	poller.Start(appCtx)

	// Заполненность буфера аудита — в gauge
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-appCtx.Done():
				return
			case <-ticker.C:
				metrics.AuditBufferFill.Set(float64(trail.Fill()))
			}
		}
	}()

	// 8. Консоль: query API + /metrics
	monitorSvc := service.NewMonitorService(state, storage, safeAPI, safeAPI, trail, notify, logger)
	ruleSvc := service.NewRuleService(state, storage, trail, notify, logger)

	console := server.NewConsoleServer(cfg, logger,
		handler.NewMonitorHandler(monitorSvc),
		handler.NewRuleHandler(ruleSvc),
		reg,
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      console,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("fleet monitor console started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 9. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("fleet monitor stopping...")
	cancel()

	// Даем 5 секунд на завершение запросов консоли
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("console shutdown failed", zap.Error(err))
	}

	// Дожидаемся текущего цикла опроса, затем дописываем аудит и закрываем ресурсы
	poller.Wait()
	trail.Stop()
	storage.Close()
	if auditRepo != nil {
		auditRepo.Close()
	}
	if rdb != nil {
		rdb.Close()
	}
	logger.Info("fleet monitor exited properly")
}

// coldLoad восстанавливает в снапшоте правила, незакрытые алерты и инциденты.
// Любая из загрузок best-effort: сбой оставляет снапшот пустым, опрос
// наполнит его заново
func coldLoad(ctx context.Context, state *engine.State, storage engine.Storage, logger *zap.Logger) {
	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rules, err := storage.LoadRules(loadCtx)
	if err != nil {
		logger.Warn("cold load rules failed", zap.Error(err))
	}
	alerts, err := storage.LoadOpenAlerts(loadCtx)
	if err != nil {
		logger.Warn("cold load alerts failed", zap.Error(err))
	}
	incidents, err := storage.LoadOpenIncidents(loadCtx)
	if err != nil {
		logger.Warn("cold load incidents failed", zap.Error(err))
	}

	state.Restore(rules, alerts, incidents)
	logger.Info("cold load complete",
		zap.Int("rules", len(rules)),
		zap.Int("open_alerts", len(alerts)),
		zap.Int("open_incidents", len(incidents)),
	)
}
