package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/riskibarqy/player-valuation/external/regression"
	"github.com/riskibarqy/player-valuation/internal/config"
	"github.com/riskibarqy/player-valuation/internal/interfaces/httpapi"
	idgen "github.com/riskibarqy/player-valuation/internal/platform/id"
	"github.com/riskibarqy/player-valuation/internal/platform/logging"
	"github.com/riskibarqy/player-valuation/internal/platform/resilience"
	"github.com/riskibarqy/player-valuation/internal/usecase"
	"github.com/sourcegraph/conc"
)

// App owns the HTTP server and the background refresh of the player batch.
type App struct {
	cfg     config.Config
	logger  *logging.Logger
	server  *http.Server
	batches *usecase.BatchService
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	regressionClient := regression.NewClient(regression.ClientConfig{
		BaseURL:     cfg.RegressionBaseURL,
		PlayersPath: cfg.RegressionPlayersPath,
		PredictPath: cfg.RegressionPredictPath,
		Timeout:     cfg.RegressionTimeout,
		Logger:      logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.RegressionCircuitEnabled,
			FailureThreshold: cfg.RegressionCircuitFailureCount,
			OpenTimeout:      cfg.RegressionCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.RegressionCircuitHalfOpenMaxReq,
		},
	})

	batchSvc := usecase.NewBatchService(regressionClient, idgen.NewUUIDGenerator(), logger)
	viewSvc := usecase.NewViewService(batchSvc, cfg.ViewDefaultPageSize, cfg.ViewMaxPageSize)
	predictionSvc := usecase.NewPredictionService(regressionClient, usecase.PredictionConfig{
		CacheTTL:        cfg.PredictionCacheTTL,
		CacheMaxEntries: cfg.PredictionCacheMaxEntries,
		Workers:         cfg.PredictionBatchWorkers,
		MaxBatchSize:    cfg.PredictionBatchMaxItems,
	}, logger)

	handler := httpapi.NewHandler(batchSvc, viewSvc, predictionSvc, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		server:  server,
		batches: batchSvc,
	}, nil
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves HTTP and keeps the batch fresh until ctx is done or the server
// fails, then shuts the server down within ShutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       conc.WaitGroup
		serveErr error
	)
	wg.Go(func() {
		a.logger.Info("http server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("http server: %w", err)
			cancel()
		}
	})
	if a.cfg.RefreshOnStart || a.cfg.RefreshInterval > 0 {
		wg.Go(func() {
			a.runRefresh(ctx)
		})
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer shutdownCancel()
	shutdownErr := a.server.Shutdown(shutdownCtx)
	wg.Wait()

	if serveErr != nil {
		return serveErr
	}
	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown: %w", shutdownErr)
	}
	a.logger.Info("http server stopped")
	return nil
}

func (a *App) runRefresh(ctx context.Context) {
	if !a.cfg.RefreshOnStart {
		timer := time.NewTimer(a.cfg.RefreshInterval)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
	a.batches.Run(ctx, a.cfg.RefreshInterval)
}
