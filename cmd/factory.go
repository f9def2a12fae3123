package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/internal/agent"
	"github.com/xkilldash9x/uistate/internal/browser"
	"github.com/xkilldash9x/uistate/internal/config"
	"github.com/xkilldash9x/uistate/internal/llmclient"
	"github.com/xkilldash9x/uistate/internal/observability"
	"github.com/xkilldash9x/uistate/internal/store"
)

// Components holds all the initialized services required for a run.
type Components struct {
	BrowserManager *browser.Manager
	DBPool         *pgxpool.Pool
	Store          *store.Store
	Agent          *agent.Agent
}

// Shutdown closes all components, releasing resources in reverse order of creation.
func (c *Components) Shutdown() {
	logger := observability.GetLogger()
	logger.Debug("Beginning components shutdown sequence.")

	if c.BrowserManager != nil {
		// The run context may already be canceled.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.BrowserManager.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Error during browser manager shutdown.", zap.Error(err))
		} else {
			logger.Debug("Browser manager shut down.")
		}
	}

	if c.DBPool != nil {
		c.DBPool.Close()
		logger.Debug("Database connection pool closed.")
	}

	logger.Debug("All components shut down.")
}

// ComponentFactory creates the set of components needed for a run.
type ComponentFactory interface {
	Create(ctx context.Context, cfg *config.Config) (*Components, error)
}

type concreteFactory struct{}

// NewComponentFactory creates the production component factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{}
}

// Create wires the oracles, the optional run store, the browser manager and
// the agent.
func (f *concreteFactory) Create(ctx context.Context, cfg *config.Config) (*Components, error) {
	logger := observability.GetLogger()
	components := &Components{}

	var initializationErr error
	defer func() {
		if initializationErr != nil {
			logger.Warn("Initialization failed, shutting down partially created components.", zap.Error(initializationErr))
			components.Shutdown()
		}
	}()

	// 1. Oracles
	llm, err := llmclient.NewClient(logger, cfg.Agent.LLM)
	if err != nil {
		initializationErr = fmt.Errorf("failed to create LLM client: %w", err)
		return nil, initializationErr
	}
	planner := llmclient.NewPlanner(logger, llm, cfg.Agent.LLM.PlanTemperature)
	repairer := llmclient.NewRepairer(logger, llm, cfg.Agent.LLM.RepairTemperature)

	opts := []agent.Option{agent.WithLoginPrompt(agent.PromptForLogin(os.Stdin, os.Stdout))}

	// 2. Run store, only when a database is configured.
	if cfg.Postgres.URL != "" {
		runStore, err := openStore(ctx, cfg, logger, components)
		if err != nil {
			initializationErr = err
			return nil, initializationErr
		}
		opts = append(opts, agent.WithStore(runStore))
	} else {
		logger.Debug("No database configured, run records will not be persisted.")
	}

	// 3. Browser
	browserManager, err := browser.NewManager(ctx, logger, cfg.Browser)
	if err != nil {
		initializationErr = fmt.Errorf("failed to initialize browser manager: %w", err)
		return nil, initializationErr
	}
	components.BrowserManager = browserManager
	logger.Debug("Browser manager initialized.")

	// 4. Agent
	debugDir := cfg.Capture.DebugDir
	open := func(ctx context.Context) (agent.Page, error) {
		session, err := browserManager.NewSession(ctx, debugDir)
		if err != nil {
			return nil, err
		}
		return session, nil
	}
	components.Agent = agent.New(logger, *cfg, planner, repairer, open, opts...)

	logger.Debug("All components initialized successfully.")
	return components, nil
}

// openStore connects the pool, creates the schema and registers both on components.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, components *Components) (*store.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}
	components.DBPool = pool

	runStore, err := store.New(ctx, pool, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database store: %w", err)
	}
	if err := runStore.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	components.Store = runStore
	logger.Debug("Store service initialized.")
	return runStore, nil
}
