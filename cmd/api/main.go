package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pablosanchi/consultation-backend/internal/config"
	v1 "github.com/pablosanchi/consultation-backend/internal/handler/v1"
	"github.com/pablosanchi/consultation-backend/internal/notifier"
	"github.com/pablosanchi/consultation-backend/internal/repository"
	"github.com/pablosanchi/consultation-backend/internal/service"
	"github.com/pablosanchi/consultation-backend/internal/storage"
	"github.com/pablosanchi/consultation-backend/pkg/auth"
	"github.com/pablosanchi/consultation-backend/pkg/database"
	"github.com/pablosanchi/consultation-backend/pkg/logger"
	"github.com/pablosanchi/consultation-backend/pkg/metrics"
	"github.com/pablosanchi/consultation-backend/pkg/tracer"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer zapLog.Sync()

	if err := run(cfg, zapLog); err != nil {
		zapLog.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zapLog *zap.Logger) error {
	ctx := context.Background()

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			zapLog.Warn("shutting down tracer provider", zap.Error(err))
		}
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, zapLog); err != nil {
		return err
	}

	store, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	jwtManager := auth.NewJWTManager(cfg.JWT)
	collector := metrics.NewCollector("consultation")

	publisher := notifier.NewKafkaPublisher(cfg.Kafka)
	defer publisher.Close()

	dispatcher := notifier.NewDispatcher(
		outboxRepo, publisher, cfg.Outbox.PollInterval, cfg.Outbox.BatchSize, collector, zapLog)
	dispatcher.Start()
	defer dispatcher.Shutdown()

	authSvc := service.NewAuthService(userRepo, outboxRepo, jwtManager, zapLog)
	submissionSvc := service.NewSubmissionService(
		submissionRepo, userRepo, store, outboxRepo, cfg.Storage.PresignTTL, zapLog)

	router := v1.NewRouter(
		cfg,
		jwtManager,
		collector,
		v1.NewAuthHandler(authSvc, collector),
		v1.NewSubmissionHandler(submissionSvc, collector),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLog.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		zapLog.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
