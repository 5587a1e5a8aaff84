package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/brokerdesk/backoffice/backend/internal/config"
	"github.com/brokerdesk/backoffice/backend/internal/domain"
	"github.com/brokerdesk/backoffice/backend/internal/events"
	"github.com/brokerdesk/backoffice/backend/internal/handler"
	"github.com/brokerdesk/backoffice/backend/internal/identity"
	"github.com/brokerdesk/backoffice/backend/internal/lifecycle"
	"github.com/brokerdesk/backoffice/backend/internal/lock"
	"github.com/brokerdesk/backoffice/backend/internal/metrics"
	"github.com/brokerdesk/backoffice/backend/internal/outbox"
	"github.com/brokerdesk/backoffice/backend/internal/repository"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * configuration
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("cannot load configuration", "error", err)
		return
	}

	/**********************************************
	 * database
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("cannot create database pool", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open does not connect
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("cannot reach database", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	// the outbox shares the pool through gorm
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: dbpool}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.Error("cannot open outbox store", "error", err)
		return
	}
	tasks := outbox.NewGormRepository(gdb, cfg.Outbox.MaxRetries)

	/**********************************************
	 * rabbitmq
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("cannot connect to rabbitmq", "error", err)
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("cannot open channel", "error", err)
		return
	}
	defer ch.Close()

	if err := events.DeclareQueues(ch); err != nil {
		logger.Error("cannot declare queues", "error", err)
		return
	}

	publisher := events.NewPublisher(ch, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)

	/**********************************************
	 * identity provider
	 **********************************************/
	requestTimeout := time.Duration(cfg.Identity.RequestTimeout) * time.Second

	var (
		provider      identity.Provider
		authenticator handler.Authenticator
	)
	switch cfg.Identity.Provider {
	case "local":
		local := identity.NewLocalProvider(dbpool, identity.LocalOptions{
			QueryTimeout:            time.Duration(cfg.Database.QueryTimeout) * time.Second,
			PasswordMinLength:       cfg.Identity.PasswordMinLength,
			GeneratedPasswordLength: cfg.Identity.GeneratedPasswordLength,
			OnGeneratedPassword:     publisher.CredentialsHook(logger),
		})
		provider = local
		authenticator = local
	case "remote":
		if cfg.Identity.BaseURL == "" || cfg.Identity.SecretKey == "" {
			logger.Error("remote identity provider needs IDENTITY_BASE_URL and IDENTITY_SECRET_KEY")
			return
		}
		provider = identity.NewRemoteProvider(cfg.Identity.BaseURL, cfg.Identity.SecretKey, requestTimeout)
	default:
		logger.Error("unknown identity provider", "provider", cfg.Identity.Provider)
		return
	}

	/**********************************************
	 * metrics
	 **********************************************/
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)

	/**********************************************
	 * lifecycle coordinator
	 **********************************************/
	validate := validator.New(validator.WithRequiredStructEnabled())

	opts := []lifecycle.Option{
		lifecycle.WithOutbox(tasks),
		lifecycle.WithNotifier(publisher),
		lifecycle.WithRecorder(recorder),
		lifecycle.WithLogger(logger),
		lifecycle.WithProviderTimeout(requestTimeout),
		lifecycle.WithValidator(validate),
	}

	if cfg.Lifecycle.LockEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("cannot reach redis", "error", err)
			return
		}
		opts = append(opts, lifecycle.WithLocker(lock.NewRedisLocker(rdb, time.Duration(cfg.Lifecycle.LockTTL)*time.Second)))
	}

	coordinator, err := lifecycle.New(repo, provider, opts...)
	if err != nil {
		logger.Error("cannot create lifecycle coordinator", "error", err)
		return
	}

	// the validator needs its translations before the first Create
	h, err := handler.NewHandler(cfg, validate, repo, coordinator, authenticator,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	if err != nil {
		logger.Error("cannot create handler", "error", err)
		return
	}
	h.RegisterRoutes()

	/**********************************************
	 * initial administrator
	 **********************************************/
	_, err = coordinator.Create(context.Background(), domain.KindPlatformAdmin, domain.Fields{
		Name:  cfg.InitialAdmin.Name,
		Email: cfg.InitialAdmin.Email,
	}, cfg.InitialAdmin.Password)
	switch {
	case err == nil:
		logger.Info("initial administrator created", "email", cfg.InitialAdmin.Email)
	case errors.Is(err, domain.ErrDuplicateEmail):
		// already there
	default:
		logger.Error("cannot create initial administrator", "error", err)
		return
	}

	/**********************************************
	 * reconciliation worker
	 **********************************************/
	worker := outbox.NewWorker(tasks, repo, provider, outbox.WorkerOptions{
		Schedule:       cfg.Outbox.Schedule,
		BatchSize:      cfg.Outbox.BatchSize,
		RequestTimeout: requestTimeout,
	}, logger)
	if err := worker.Start(); err != nil {
		logger.Error("cannot start outbox worker", "error", err)
		return
	}
	defer worker.Stop()

	/**********************************************
	 * HTTP server
	 **********************************************/
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      h.Mux,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "port", cfg.Server.Port, "identity_provider", cfg.Identity.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", slog.String("error", err.Error()))
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.String("error", err.Error()))
	}
	logger.Info("server stopped")
}
