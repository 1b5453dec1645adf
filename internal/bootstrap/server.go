package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/goingest/internal/api"
	"github.com/jonesrussell/goingest/internal/config"
	"github.com/jonesrussell/goingest/internal/dedup"
	"github.com/jonesrussell/goingest/internal/events"
	"github.com/jonesrussell/goingest/internal/handlers"
	"github.com/jonesrussell/goingest/internal/ingest"
	"github.com/jonesrussell/goingest/internal/logger"
	"github.com/jonesrussell/goingest/internal/metrics"
	"github.com/jonesrussell/goingest/internal/repository"
)

const shutdownTimeout = 10 * time.Second

// SetupHTTPServer wires the repositories, deduplication engine, ingestion
// orchestrator, and HTTP routes into a server.
func SetupHTTPServer(
	cfg *config.Config,
	db *sqlx.DB,
	publisher *events.Publisher,
	log logger.Logger,
) *http.Server {
	sourceRepo := repository.NewSourceRepository(db, log)
	articleRepo := repository.NewArticleRepository(db, log)
	crawlRepo := repository.NewCrawlRepository(db, log)

	engine := dedup.NewEngine(articleRepo, dedup.Config{
		FuzzyTitleMaxDistance:  cfg.Dedup.FuzzyTitleMaxDistance,
		PhraseOverlapThreshold: cfg.Dedup.PhraseOverlapThreshold,
		FingerprintWindow:      cfg.Dedup.FingerprintWindow,
	}, log)

	orchestrator := ingest.NewOrchestrator(
		engine, articleRepo, crawlRepo, sourceRepo,
		publisher, metrics.New(nil), log,
	)

	router := api.NewRouter(api.Handlers{
		Sources:  handlers.NewSourceHandler(sourceRepo, log),
		Ingest:   handlers.NewIngestHandler(orchestrator, sourceRepo, log),
		Articles: handlers.NewArticleHandler(articleRepo, log),
	}, cfg.Server.CORSOrigins, nil, log)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// RunServer runs the server until SIGINT or SIGTERM, then shuts it down
// gracefully.
func RunServer(server *http.Server, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
