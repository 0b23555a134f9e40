// Package pagectl implements the per-case page controller: one browser page
// reused across many cases, installing the prelude and the Network Guard,
// navigating to an already composed document, running the probe sweep,
// and returning the collected signals and lossy flag.
package pagectl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// Engine is one supported browser engine id. Only chromium is launched
// directly by this package; firefox/webkit are accepted as engine ids for
// a remote CDP endpoint that speaks the same protocol surface (rod talks
// CDP, not WebDriver, so non-Chromium engines require a CDP-compatible
// bridge to be reachable at RemoteURL).
type Engine string

const (
	EngineChromium Engine = "chromium"
	EngineFirefox  Engine = "firefox"
	EngineWebkit   Engine = "webkit"
)

// ManagerConfig configures the browser Manager.
type ManagerConfig struct {
	Engine Engine

	// RemoteURL is the WebSocket URL of an externally managed browser.
	// Empty means launch a local Chromium via launcher.
	RemoteURL string

	// Stealth enables go-rod/stealth's anti-detection init script. Off by
	// default: the pages under test are synthetic documents the harness
	// itself generates, with no anti-bot surface to evade, and stealth's
	// extra JS only adds noise to what the prelude instruments.
	Stealth bool

	// MemoryLimit is the JS heap usage (bytes), sampled from the browser's
	// first page, above which the monitor loop recycles the browser.
	// Default: 1GB.
	MemoryLimit int64

	// RecycleInterval is the maximum lifetime of a browser process before
	// the monitor loop recycles it unconditionally. Default: 4h.
	RecycleInterval time.Duration

	Logger *slog.Logger
}

func (c *ManagerConfig) defaults() {
	if c.Engine == "" {
		c.Engine = EngineChromium
	}
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = 1 << 30 // 1GB
	}
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = 4 * time.Hour
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns one browser process (or remote connection) for the
// lifetime of a run. cmd/xssbench creates one Manager per run; every
// Scheduler worker opens its own page (Controller) on that browser.
type Manager struct {
	cfg ManagerConfig

	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	startAt time.Time
	closed  bool
}

// NewManager creates a Manager. Call Start to launch or connect.
func NewManager(cfg ManagerConfig) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches (or connects to) the browser and starts the background
// monitor loop that recycles it on a memory or time budget.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("pagectl: manager is closed")
	}

	b, err := m.launch()
	if err != nil {
		return nil, err
	}
	m.browser = b
	m.startAt = time.Now()

	go m.monitorLoop(ctx)

	return b, nil
}

// Browser returns the current browser handle. Thread-safe.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// Recycle kills the current browser and starts a fresh one, reachable
// afterwards through Browser(). The monitor loop calls it when the time
// or memory budget is exceeded.
func (m *Manager) Recycle(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("pagectl: manager is closed")
	}

	m.cfg.Logger.Info("pagectl: recycling browser context", "engine", m.cfg.Engine, "uptime", time.Since(m.startAt))
	m.cleanupLocked()

	b, err := m.launch()
	if err != nil {
		return fmt.Errorf("pagectl: relaunch: %w", err)
	}
	m.browser = b
	m.startAt = time.Now()
	return nil
}

// monitorLoop periodically recycles the browser on a time or memory
// budget. The Scheduler's crash handling replaces its page runners and
// does not call Recycle.
func (m *Manager) monitorLoop(ctx context.Context) {
	log := m.cfg.Logger
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			if m.closed || m.browser == nil {
				m.mu.RUnlock()
				return
			}
			startAt := m.startAt
			b := m.browser
			m.mu.RUnlock()

			if time.Since(startAt) > m.cfg.RecycleInterval {
				log.Info("pagectl: recycle interval reached")
				if err := m.Recycle(ctx); err != nil {
					log.Error("pagectl: recycle failed", "error", err)
				}
				continue
			}

			used, err := getJSHeapUsage(b)
			if err != nil {
				log.Debug("pagectl: heap check failed", "error", err)
				continue
			}
			if used > m.cfg.MemoryLimit {
				log.Info("pagectl: memory limit exceeded", "used", used, "limit", m.cfg.MemoryLimit)
				if err := m.Recycle(ctx); err != nil {
					log.Error("pagectl: recycle failed", "error", err)
				}
			}
		}
	}
}

// getJSHeapUsage queries Chrome's JS heap via the first open page's
// Performance domain, as a low-cost proxy for the process's overall
// memory pressure.
func getJSHeapUsage(b *rod.Browser) (int64, error) {
	pages, err := b.Pages()
	if err != nil || len(pages) == 0 {
		return 0, fmt.Errorf("pagectl: no pages for heap check")
	}

	res, err := pages[0].Eval(`() => {
		if (performance.memory) {
			return performance.memory.usedJSHeapSize;
		}
		return 0;
	}`)
	if err != nil {
		return 0, err
	}
	return int64(res.Value.Int()), nil
}

// Close shuts down the browser.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cleanupLocked()
	return nil
}

func (m *Manager) launch() (*rod.Browser, error) {
	log := m.cfg.Logger

	var wsURL string
	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("pagectl: connecting to remote browser", "url", wsURL, "engine", m.cfg.Engine)
	} else {
		l := launcher.New().Headless(true)
		// No-op harness pages have nothing to evade; leave automation
		// flags at their default so CDP behavior stays as close to
		// stock as possible for reproducibility across engines.
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("pagectl: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("pagectl: launched local browser", "url", wsURL, "engine", m.cfg.Engine)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("pagectl: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("pagectl: ignore cert errors failed", "error", err)
	}
	return b, nil
}

func (m *Manager) cleanupLocked() {
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
}

// newStealthPage opens a rod page through go-rod/stealth rather than a
// plain browser.Page call. Only reached when ManagerConfig.Stealth is set
// via the harness's --stealth opt-in flag.
func newStealthPage(b *rod.Browser) (*rod.Page, error) {
	return stealth.Page(b)
}
