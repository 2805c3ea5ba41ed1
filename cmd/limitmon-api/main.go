package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	// Application
	applicationPort "github.com/dreschagin/limit-monitor/internal/application/port"
	"github.com/dreschagin/limit-monitor/internal/application/usecase"

	// Domain
	"github.com/dreschagin/limit-monitor/internal/domain/service"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"

	// Infrastructure
	redisCache "github.com/dreschagin/limit-monitor/internal/infrastructure/cache/redis"
	natsInfra "github.com/dreschagin/limit-monitor/internal/infrastructure/messaging/nats"
	wsInfra "github.com/dreschagin/limit-monitor/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/limit-monitor/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/limit-monitor/internal/infrastructure/observability/metrics"
	dynamodbRepo "github.com/dreschagin/limit-monitor/internal/infrastructure/persistence/dynamodb"
	fileRepo "github.com/dreschagin/limit-monitor/internal/infrastructure/persistence/file"
	"github.com/dreschagin/limit-monitor/internal/infrastructure/persistence/postgres"
	s3storage "github.com/dreschagin/limit-monitor/internal/infrastructure/storage/s3"
	"github.com/dreschagin/limit-monitor/internal/reportrunner"

	// Interfaces
	httpInterface "github.com/dreschagin/limit-monitor/internal/interfaces/http"
	"github.com/dreschagin/limit-monitor/internal/interfaces/http/handler"
	"github.com/dreschagin/limit-monitor/internal/interfaces/http/middleware"

	// Shared
	"github.com/dreschagin/limit-monitor/pkg/config"
	"github.com/dreschagin/limit-monitor/pkg/logger"

	_ "github.com/lib/pq"
)

func main() {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	engineFile, err := config.LoadEngineFile(cfg.Engine.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load engine config: %v\n", err)
		os.Exit(1)
	}
	validity, err := engineFile.ValidityTable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid validity intervals: %v\n", err)
		os.Exit(1)
	}
	cadence := valueobject.Cadence(cfg.Engine.Cadence)
	if err := cadence.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid ARCHIVE_CADENCE: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	log := logger.New(os.Getenv("LOG_LEVEL"))
	log.Info("Starting Limit Monitor", "workers", cfg.Engine.Workers, "cadence", cadence.String())

	// 3. Подключаемся к БД (хранилище лимитов и архив телеметрии)
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Error("Failed to connect to database", err)
		os.Exit(1)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	// Проверяем подключение
	if err := db.Ping(); err != nil {
		log.Error("Failed to ping database", err)
		os.Exit(1)
	}
	log.Info("Database connected successfully")

	// 4. Dependency Injection - Infrastructure Layer

	// Repositories
	limitRepository := postgres.NewPostgresLimitRepository(db)
	archiveRepository := postgres.NewPostgresArchiveRepository(db)
	checklistRepository := fileRepo.NewChecklistRepository(cfg.Engine.ChecklistPath)

	// WebSocket Hub
	hub := wsInfra.NewHub(log)

	// Prometheus
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reportMetrics := metrics.New(registry, "limitmon")

	// Redis
	var cache applicationPort.Cache
	if cfg.Redis.Enabled {
		cacheImpl, initErr := redisCache.NewRedisCache(redisCache.Options{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			TTL:          cfg.Redis.TTL,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			KeyPrefix:    "limitmon",
		})
		if initErr != nil {
			log.Warn("Failed to connect to Redis, continuing without cache", "error", initErr.Error())
		} else {
			cache = cacheImpl
			defer cacheImpl.Close()
			log.Info("Redis cache initialized", "host", cfg.Redis.Host)
		}
	} else {
		log.Warn("Redis cache is disabled")
	}

	// 4.5. CloudWatch Integration

	// CloudWatch Metrics Publisher
	var metricsPublisher *cloudwatch.MetricsPublisher
	if cfg.CloudWatch.MetricsEnabled {
		metricsPublisher, err = cloudwatch.NewMetricsPublisher(context.Background(),
			cloudwatch.MetricsPublisherConfig{
				Namespace:         cfg.CloudWatch.MetricsNamespace,
				Region:            cfg.CloudWatch.Region,
				Endpoint:          cfg.CloudWatch.Endpoint,
				AccessKeyID:       cfg.CloudWatch.AccessKeyID,
				SecretAccessKey:   cfg.CloudWatch.SecretAccessKey,
				DefaultDimensions: cfg.CloudWatch.MetricsDimensions,
				BufferSize:        cfg.CloudWatch.MetricsBufferSize,
				FlushInterval:     cfg.CloudWatch.MetricsFlushInterval,
				StorageResolution: cfg.CloudWatch.MetricsStorageResolution,
			}, log)
		if err != nil {
			log.Error("Failed to initialize CloudWatch metrics publisher", err)
			os.Exit(1)
		}
		log.Info("CloudWatch metrics publisher initialized")
	} else {
		log.Warn("CloudWatch metrics publishing is disabled")
	}

	// CloudWatch Logs Publisher
	var logsPublisher *cloudwatch.LogsPublisher
	if cfg.CloudWatch.LogsEnabled {
		logsPublisher, err = cloudwatch.NewLogsPublisher(context.Background(),
			cloudwatch.LogsPublisherConfig{
				LogGroupName:    cfg.CloudWatch.LogGroupName,
				LogStreamName:   cfg.CloudWatch.LogStreamName,
				Region:          cfg.CloudWatch.Region,
				Endpoint:        cfg.CloudWatch.Endpoint,
				AccessKeyID:     cfg.CloudWatch.AccessKeyID,
				SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
				BufferSize:      cfg.CloudWatch.LogsBufferSize,
				FlushInterval:   cfg.CloudWatch.LogsFlushInterval,
				AutoCreate:      true,
			})
		if err != nil {
			log.Error("Failed to initialize CloudWatch logs publisher", err)
			os.Exit(1)
		}
		log.SetLogPublisher(logsPublisher)
		log.Info("CloudWatch logs publisher initialized")
	} else {
		log.Warn("CloudWatch logs publishing is disabled")
	}

	// 4.6. NATS Event Publisher
	var eventPublisher applicationPort.EventPublisher
	if cfg.NATS.Enabled {
		publisherImpl, initErr := natsInfra.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Stream, []string{cfg.NATS.Subject}, log)
		if initErr != nil {
			log.Warn("Failed to connect to NATS, continuing without event publishing", "error", initErr.Error())
		} else {
			eventPublisher = publisherImpl
			defer eventPublisher.Close()
			log.Info("NATS event publisher initialized", "url", cfg.NATS.URL, "stream", cfg.NATS.Stream)
		}
	} else {
		log.Warn("NATS event publishing is disabled")
	}

	// 4.7. Хранилище артефактов и индекс отчетов
	var reportStorage applicationPort.ReportStorage
	if cfg.S3.Enabled {
		storageImpl, initErr := s3storage.NewReportStorage(context.Background(), s3storage.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			URLMode:         s3storage.URLMode(cfg.S3.URLMode),
			PresignedTTL:    cfg.S3.PresignedTTL,
		})
		if initErr != nil {
			log.Error("Failed to initialize report storage", initErr)
			os.Exit(1)
		}
		reportStorage = storageImpl
	} else {
		log.Warn("S3 storage is disabled, reports are not archived")
	}

	var reportIndex applicationPort.ReportIndexRepository
	if cfg.Dynamo.Enabled {
		repoImpl, initErr := dynamodbRepo.NewReportIndexRepository(context.Background(), dynamodbRepo.Config{
			TableName:       cfg.Dynamo.TableReportIndex,
			Region:          cfg.Dynamo.Region,
			Endpoint:        cfg.Dynamo.Endpoint,
			AccessKeyID:     cfg.Dynamo.AccessKeyID,
			SecretAccessKey: cfg.Dynamo.SecretAccessKey,
			StrongReads:     cfg.Dynamo.StrongReads,
		})
		if initErr != nil {
			log.Error("Failed to initialize report index", initErr)
			os.Exit(1)
		}
		reportIndex = repoImpl
		log.Info("Report index initialized", "provider", "dynamodb", "table", cfg.Dynamo.TableReportIndex)
	} else {
		log.Warn("DynamoDB report index is disabled")
	}

	// 5. Dependency Injection - Domain Layer

	descriptionResolver := service.NewDescriptionResolver(archiveRepository)
	limitChangeReporter := service.NewLimitChangeReporter(limitRepository, descriptionResolver)
	windowResolver := service.NewSplitWindowResolver(
		archiveRepository,
		limitRepository,
		service.NewLimitEvaluator(),
		validity,
		cadence,
	)

	// 6. Dependency Injection - Application Layer (Use Cases)

	sinks := usecase.ReportSinks{
		Storage:  reportStorage,
		Index:    reportIndex,
		Cache:    cache,
		Events:   eventPublisher,
		Notifier: hub,
	}
	if metricsPublisher != nil {
		sinks.Publisher = metricsPublisher
	}

	buildViolationMapUC := usecase.NewBuildViolationMapUseCase(
		limitRepository,
		windowResolver,
		service.NewViolationAggregator(),
		descriptionResolver,
		reportMetrics,
		usecase.BuildViolationMapConfig{
			Workers:  cfg.Engine.Workers,
			Denylist: engineFile.DenySet(),
		},
		log,
	)

	generateReportUC := usecase.NewGenerateReportUseCase(
		checklistRepository,
		buildViolationMapUC,
		limitChangeReporter,
		archiveRepository,
		sinks,
		reportMetrics,
		usecase.GenerateReportConfig{
			KeyPrefix:    cfg.S3.KeyPrefix,
			PowerMSID:    cfg.Engine.PowerMSID,
			Subject:      cfg.NATS.Subject,
			CacheTTL:     cfg.Redis.TTL,
			IndexTTLDays: cfg.Dynamo.TTLDays,
		},
		log,
	)

	getReportUC := usecase.NewGetReportCachedUseCase(cache, reportIndex, reportStorage, generateReportUC, log)
	findLimitChangesUC := usecase.NewFindLimitChangesUseCase(limitChangeReporter, checklistRepository, cache, cfg.Redis.TTL, log)

	var listReportsUC *usecase.ListReportsUseCase
	if reportIndex != nil {
		listReportsUC = usecase.NewListReportsUseCase(reportIndex, usecase.ListReportsConfig{}, log)
	}

	// Фоновый построитель еженедельного отчета
	var runner *reportrunner.Runner
	var runnerHandler *reportrunner.Handler
	if cfg.Runner.Enabled {
		runner = reportrunner.NewRunner(
			reportrunner.NewService(reportIndex, generateReportUC, cfg.Runner.WeekStart),
			log,
			cfg.Runner.Interval,
			cfg.Runner.Timeout,
		)
		runnerHandler = reportrunner.NewHandler(runner)
	} else {
		log.Warn("Weekly report runner is disabled")
	}

	// 7. Dependency Injection - Interfaces Layer (HTTP Handlers)

	authConfig := middleware.AuthConfig{
		Enabled:     cfg.Security.AuthEnabled,
		BearerToken: cfg.Security.AuthToken,
		OnFailure:   reportMetrics.AuthFailures.Inc,
	}

	healthHandler := handler.NewHealthHandler(map[string]handler.ReadinessCheck{
		"database": db.PingContext,
		"limits":   limitRepository.Ping,
	}, log)
	reportAPIHandler := handler.NewReportAPIHandler(generateReportUC, getReportUC, listReportsUC, 0, log)
	limitChangeAPIHandler := handler.NewLimitChangeAPIHandler(findLimitChangesUC, 0, log)
	websocketHandler := handler.NewWebSocketHandler(hub, cfg.Security.AllowedOrigins, authConfig, log)

	rateLimiter := middleware.NewPerMinuteRateLimiter(cfg.Security.RateLimitPerMinute)

	// Router
	router := httpInterface.NewRouter(
		healthHandler,
		reportAPIHandler,
		limitChangeAPIHandler,
		websocketHandler,
		runnerHandler,
		reportMetrics,
		rateLimiter,
		cfg.Security,
		log,
	)

	// 8. Запускаем фоновые процессы

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запускаем WebSocket hub
	go hub.Run(ctx)
	log.Info("WebSocket hub started")

	go rateLimiter.Cleanup(ctx, time.Minute)

	if runner != nil {
		go runner.Start(ctx)
		log.Info("Weekly report runner started",
			"interval", cfg.Runner.Interval.String(),
			"week_start", cfg.Runner.WeekStart.String())
	}

	// 9. Настраиваем HTTP сервер

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Канал для получения сигналов ОС
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Запускаем сервер в отдельной goroutine
	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	// 10. Ожидаем сигнал для graceful shutdown

	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	// Останавливаем runner, hub и очистку лимитера
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	// Flush CloudWatch buffers after the last request
	if metricsPublisher != nil {
		log.Info("Flushing CloudWatch metrics buffer...")
		if err := metricsPublisher.Close(shutdownCtx); err != nil {
			log.Error("Failed to flush CloudWatch metrics", err)
		}
	}

	if logsPublisher != nil {
		log.Info("Flushing CloudWatch logs buffer...")
		if err := logsPublisher.Close(shutdownCtx); err != nil {
			log.Error("Failed to flush CloudWatch logs", err)
		}
	}

	log.Info("Server stopped gracefully")
}
