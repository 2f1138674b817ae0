package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/analysis"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/domain/mystery"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/engine"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/events"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/httpapi"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/infra/ai"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/infra/backend"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/infra/cache"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/infra/storage"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/network"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/platform/config"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/platform/logger"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/platform/metrics"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/visual"
)

const shutdownTimeout = 10 * time.Second

// sessionStore is what the engine persists to, plus cleanup.
type sessionStore interface {
	engine.Store
	DeleteSession(ctx context.Context, sessionID string) error
}

func openSQLite(cfg *config.Config) (*sql.DB, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	return storage.InitSQLite(cfg.DBPath, cfg.DBMaxOpenConns)
}

// openSessionStore returns the configured store and a func releasing it.
func openSessionStore(ctx context.Context, cfg *config.Config, db *sql.DB) (sessionStore, func(), error) {
	if cfg.StoreBackend == config.StoreRedis {
		client, err := cache.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		s := cache.NewRedisSessionStore(client)
		return s, func() { _ = s.Close() }, nil
	}
	return storage.NewSQLiteSessionRepository(db), func() {}, nil
}

func newLLMProvider(cfg *config.Config, log *logger.Logger) ai.LLMProvider {
	if cfg.LLMAPIKey == "" {
		log.Info("No LLM API key configured; narratives use backend text or the fallback")
		return nil
	}
	provider, err := ai.NewProvider(ai.ProviderConfig{
		Kind:    cfg.LLMProvider,
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
		Timeout: cfg.LLMTimeout,
	}, ai.NewBudgetGate(cfg.LLMDailyBudget, cfg.LLMMonthlyBudget))
	if err != nil {
		log.Warn("LLM provider disabled", "error", err)
		return nil
	}
	log.Info("LLM narratives enabled", "provider", provider.Name())
	return provider
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	appLogger, err := logger.NewLogger(cfg.LogMode)
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLogger.Info("Opening SQLite database", "path", cfg.DBPath)
	db, err := openSQLite(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	eventRepo := storage.NewSQLiteEventRepository(db)
	eventLog := events.NewEventLog(storage.NewEventPersister(eventRepo), func(e events.GameEvent, err error) {
		appLogger.Error("Event persist failed", "event_id", e.ID, "type", e.Type, "error", err)
	})

	store, closeStore, err := openSessionStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeStore()

	catalog, err := mystery.LoadCatalog()
	if err != nil {
		return err
	}
	eng, err := engine.New(ctx, cfg.SessionID, catalog, store, appLogger,
		engine.WithEventLog(eventLog), engine.WithMetrics(metrics.Get()))
	if err != nil {
		return err
	}

	var predictor backend.Predictor
	if cfg.DemoMode() {
		appLogger.Warn("Demo mode: uploads are analysed locally with placeholder results")
	} else {
		predictor = backend.NewClient(cfg.BackendURL)
		appLogger.Info("Prediction backend configured", "url", cfg.BackendURL)
	}

	hub := network.NewHub(eng, eventLog, network.HubConfig{
		SendBuffer:        cfg.ClientSendBuffer,
		BroadcastBuffer:   cfg.BroadcastBuffer,
		MinActionInterval: cfg.MinActionInterval,
	}, appLogger)

	scenes := visual.NewRegistry()
	defer scenes.Close()

	g, gctx := errgroup.WithContext(ctx)

	router := httpapi.NewRouter(httpapi.Deps{
		Hub:            hub,
		Game:           eng,
		EventLog:       eventLog,
		Recapper:       storage.NewRecapper(eventRepo),
		Predictor:      predictor,
		Narrator:       analysis.NewNarrator(newLLMProvider(cfg, appLogger), appLogger),
		Scenes:         scenes,
		Logger:         appLogger,
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Lifetime:       gctx,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	hub.StartEventPoller(gctx, cfg.EventPollInterval)

	g.Go(func() error {
		appLogger.Info("HTTP API & WS server listening", "addr", cfg.Addr, "session", cfg.SessionID, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
