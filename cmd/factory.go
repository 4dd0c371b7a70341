package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/config"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/dom"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/humanize"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/observability"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/platform"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/profile"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/services"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/session"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/store"
)

// Components holds every initialized collaborator an application run needs.
type Components struct {
	Cfg     *config.Config
	Log     *zap.Logger
	DBPool  *pgxpool.Pool
	Store   *store.Store
	Embed   *services.EmbedClient
	Broker  *services.Broker
	LLM     *services.LLMClient
	Verify  *services.VerificationClient
	Profile *profile.Profile
	Browser *session.Manager
}

// NewComponents handles the full dependency injection for an application run.
// On a partial failure everything already initialized is torn down.
func NewComponents(ctx context.Context, cfg *config.Config) (*Components, error) {
	logger := observability.GetLogger()
	c := &Components{Cfg: cfg, Log: logger}

	var initErr error
	defer func() {
		if initErr != nil {
			c.Shutdown()
		}
	}()

	pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
	if err != nil {
		initErr = fmt.Errorf("failed to connect to database: %w", err)
		return nil, initErr
	}
	c.DBPool = pool

	st, err := store.New(ctx, pool, logger)
	if err != nil {
		initErr = fmt.Errorf("failed to initialize store: %w", err)
		return nil, initErr
	}
	c.Store = st

	prof, err := profile.Load(cfg.Services.ProfilePath)
	if err != nil {
		initErr = fmt.Errorf("failed to load profile %s: %w", cfg.Services.ProfilePath, err)
		return nil, initErr
	}
	c.Profile = prof

	c.Embed = services.NewEmbedClient(logger, cfg.Services.EmbedWorkerAddr, cfg.Services.EmbedTimeout)
	c.Broker = services.NewBroker(logger, cfg.Services, cfg.Resolver.EmbeddingMinScore, c.Embed)

	llm, err := services.NewLLMClient(logger, c.Broker.HTTP(), cfg.Services.LLM)
	if err != nil {
		initErr = fmt.Errorf("failed to initialize llm client: %w", err)
		return nil, initErr
	}
	c.LLM = llm
	c.Verify = services.NewVerificationClient(logger, c.Broker.HTTP(),
		cfg.Services.Verification, cfg.Services.VerificationMaxAge, nil)

	browser, err := session.NewManager(ctx, logger, cfg)
	if err != nil {
		initErr = fmt.Errorf("failed to start browser: %w", err)
		return nil, initErr
	}
	c.Browser = browser

	return c, nil
}

// OpenTab opens a browser tab wired with an adapter for the given platform.
func (c *Components) OpenTab(desc schemas.PlatformDescriptor) (*session.Tab, error) {
	return c.Browser.NewTab(session.TabDeps{
		Store:     c.Store,
		Publisher: c.Broker,
		NewAdapter: func(tabCtx context.Context, tab *session.Tab) (session.Adapter, error) {
			cad := humanize.New(c.Cfg.Humanize, time.Now().UnixNano())
			drv := dom.NewDriver(c.Log, cad, c.Cfg.Browser)
			return platform.NewAdapter(desc, platform.Deps{
				Logger:  c.Log,
				Config:  c.Cfg,
				Driver:  drv,
				Profile: c.Profile,
				Broker:  c.Broker,
				LLM:     c.LLM,
				Nav:     tab,
			})
		},
	})
}

// Shutdown releases components in the reverse of their initialization order.
func (c *Components) Shutdown() {
	logger := observability.GetLogger()

	if c.Browser != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		c.Browser.Shutdown(shutdownCtx)
		cancel()
	}
	if c.Embed != nil {
		if err := c.Embed.Close(); err != nil {
			logger.Warn("embed worker close failed", zap.Error(err))
		}
	}
	if c.DBPool != nil {
		c.DBPool.Close()
	}
	logger.Debug("All components shut down.")
}
