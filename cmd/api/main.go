package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	app "github.com/mohammadpnp/profile-import/internal/application/profile"
	"github.com/mohammadpnp/profile-import/internal/bootstrap"
	"github.com/mohammadpnp/profile-import/internal/config"
	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
	"github.com/mohammadpnp/profile-import/internal/infrastructure/repository"
	httpecho "github.com/mohammadpnp/profile-import/internal/interfaces/http/echo"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := bootstrap.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	infra, err := bootstrap.OpenInfra(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to open infrastructure", zap.Error(err))
	}
	defer infra.Close()

	store := repository.NewStore(infra.DB, infra.Pool)
	runs := repository.NewImportRunRepository(infra.DB)

	var (
		publisher domain.ProgressPublisher
		reader    httpecho.ProgressReader
	)
	if infra.Publisher != nil {
		publisher = infra.Publisher
		reader = infra.Publisher
	}

	sessions := app.NewImportSessions(store, runs, publisher, app.ImportSessionsConfig{
		BatchSize:       cfg.Import.BatchSize,
		TTL:             cfg.Import.SessionTTL,
		JanitorInterval: cfg.Import.JanitorInterval,
	}, logger)

	server := bootstrap.NewHTTPServer(bootstrap.ServerDeps{
		Sessions:    sessions,
		Progress:    reader,
		Profiles:    app.NewGetProfileByID(store),
		Exporter:    app.NewExporter(store),
		MaxUploadMB: cfg.Import.MaxUploadMB,
		Logger:      logger,
	})

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go sessions.RunJanitor(janitorCtx)

	go func() {
		logger.Info("http server starting", zap.String("port", cfg.Server.Port))
		if err := server.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopJanitor()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	sessions.Close()
	logger.Info("server stopped")
}
