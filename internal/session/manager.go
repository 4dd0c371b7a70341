// Package session owns the browser and per-tab controllers: chromedp
// lifecycle, persistent tab state, start/stop/resume debouncing and the
// navigation listeners that re-enter running executions after reloads.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/internal/config"
)

// Manager owns the browser process and the set of live tabs.
type Manager struct {
	log *zap.Logger
	cfg *config.Config

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	mu     sync.Mutex
	tabs   map[int]*Tab
	nextID int
}

// NewManager starts the browser allocator.
func NewManager(ctx context.Context, logger *zap.Logger, cfg *config.Config) (*Manager, error) {
	m := &Manager{
		log:  logger.Named("session_manager"),
		cfg:  cfg,
		tabs: map[int]*Tab{},
	}

	opts := m.allocatorOptions()
	m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(ctx, opts...)

	m.log.Info("Browser manager initialized",
		zap.Bool("headless", cfg.Browser.Headless))
	return m, nil
}

// allocatorOptions configures the flags for the browser executable.
func (m *Manager) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	browserCfg := m.cfg.Browser
	if !browserCfg.Headless {
		// The default option set runs headless; override it for visible runs.
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if browserCfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(browserCfg.UserDataDir))
	}

	opts = append(opts,
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),

		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-extensions", true),

		chromedp.Flag("disable-gpu", browserCfg.Headless),
		chromedp.Flag("ignore-certificate-errors", browserCfg.IgnoreTLSErrors),
	)

	for _, arg := range browserCfg.Args {
		opts = append(opts, chromedp.Flag(arg, true))
	}
	return opts
}

// NewTab opens an isolated tab and registers its controller.
func (m *Manager) NewTab(deps TabDeps) (*Tab, error) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.mu.Unlock()

	tabCtx, tabCancel := chromedp.NewContext(m.allocatorCtx,
		chromedp.WithLogf(m.log.Sugar().Debugf),
		chromedp.WithErrorf(m.log.Sugar().Errorf),
	)

	// Materialize the tab before anything attaches listeners.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to start tab: %w", err)
	}

	tab, err := newTab(id, m.log, m.cfg, tabCtx, tabCancel, deps)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to wire tab: %w", err)
	}
	tab.listenNavigation()

	m.mu.Lock()
	m.tabs[id] = tab
	m.mu.Unlock()

	m.log.Info("tab opened", zap.Int("tabId", id))
	return tab, nil
}

// Tab returns a live tab by id.
func (m *Manager) Tab(id int) (*Tab, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tabs[id]
	return t, ok
}

// CloseTab tears one tab down and clears its persisted state.
func (m *Manager) CloseTab(ctx context.Context, id int) error {
	m.mu.Lock()
	tab, ok := m.tabs[id]
	delete(m.tabs, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no tab %d", id)
	}
	return tab.Close(ctx)
}

// Shutdown closes every tab and stops the browser.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	tabs := make([]*Tab, 0, len(m.tabs))
	for _, t := range m.tabs {
		tabs = append(tabs, t)
	}
	m.tabs = map[int]*Tab{}
	m.mu.Unlock()

	for _, t := range tabs {
		if err := t.Close(ctx); err != nil {
			m.log.Warn("tab close failed", zap.Int("tabId", t.ID()), zap.Error(err))
		}
	}
	m.allocatorCancel()
	m.log.Info("browser manager shut down")
}
