package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/udayshankar95/central-farming-tool/internal/config"
	"github.com/udayshankar95/central-farming-tool/internal/observer"
	"github.com/udayshankar95/central-farming-tool/internal/server"
	"github.com/udayshankar95/central-farming-tool/internal/storage"
	"github.com/udayshankar95/central-farming-tool/internal/usecase"
	"github.com/udayshankar95/central-farming-tool/pkg/logger"
	"github.com/udayshankar95/central-farming-tool/pkg/utils"
)

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	// Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	metricsEnabled := cfg.Metrics.Enabled
	observer.InitMetrics(metricsEnabled)

	logger.Log.Info("Starting Central Farming Tool",
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Server.Port),
	)

	// Initialize repositories
	postgresRepo, err := initPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	// Create the bulk-upload ingest service with its worker pool
	ingestService, err := usecase.NewIngestService(postgresRepo, postgresRepo, cfg.WorkerPools.Ingest)
	if err != nil {
		logger.Log.Fatal("Failed to initialize ingest worker pool", zap.Error(err))
	}

	boardService := usecase.NewBoardService(postgresRepo, cfg.Board.PartnerLinkBase)
	lifecycleService := usecase.NewLifecycleService(postgresRepo, postgresRepo, cfg.Board.FeedbackFormURL)
	portfolioService := usecase.NewPortfolioService(boardService, postgresRepo)
	agentService := usecase.NewAgentService(postgresRepo)

	// Create the API server
	apiServer := server.NewServer(cfg, server.Services{
		Board:     boardService,
		Lifecycle: lifecycleService,
		Ingest:    ingestService,
		Portfolio: portfolioService,
		Agents:    agentService,
	})
	apiServer.Start()

	logger.Log.Info("API endpoints available",
		zap.String("board", fmt.Sprintf("http://localhost:%d/api/board", cfg.Server.Port)),
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
	)

	// Serve Prometheus metrics on their own port so the scrape target stays off
	// the API surface.
	var metricsServer *http.Server
	if metricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: mux,
		}
		utils.SafeGo(func() {
			logger.Log.Info("Starting metrics server", zap.String("addr", metricsServer.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Log.Error("Metrics server error", zap.Error(err))
			}
		}, func(r interface{}, stack []byte) {
			logger.Log.Error("Panic in metrics server",
				zap.Any("panic", r),
				zap.ByteString("stack", stack),
			)
		})
	} else {
		logger.Log.Info("Metrics endpoint disabled for environment", zap.String("environment", cfg.Environment))
	}

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", 30*time.Second))

	var wg sync.WaitGroup
	wg.Add(3)

	// Shutdown API server
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping API server")
		start := time.Now()
		if err := apiServer.Stop(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping API server", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] API server stopped",
				zap.Duration("duration", time.Since(start)))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Log.Error("[shutdown] Error stopping metrics server", zap.Error(err))
			}
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping API server",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Shutdown ingest worker pool
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping ingest worker pool")
		start := time.Now()
		ingestService.Stop()
		logger.Log.Info("[shutdown] Ingest worker pool stopped",
			zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping ingest worker pool",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Close database connections
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Closing PostgreSQL connection")
		start := time.Now()
		if err := postgresRepo.Close(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Failed to close PostgreSQL connection", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] PostgreSQL connection closed",
				zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while closing database connections",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Wait with a timeout for all components to shut down
	waitCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Log.Info("[shutdown] All components stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Log.Warn("[shutdown] Graceful shutdown timed out, forcing exit")
	}

	logger.Log.Info("Central Farming Tool shutdown complete")
}

// Initialize PostgreSQL repository
func initPostgresRepo(dsn string, autoMigrate bool) (*storage.PostgresRepo, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	repo, err := storage.NewPostgresRepo(dsn, autoMigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
	}

	logger.Log.Info("Initialized PostgreSQL repository")
	return repo, nil
}
