package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/internal/browser/stealth"
	"github.com/xkilldash9x/uistate/internal/config"
)

// Manager owns the Chrome process and hands out page sessions.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	// chromedp allocator context manages the underlying browser executable.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	sessions map[string]*Session
	mu       sync.Mutex
}

// NewManager prepares the browser allocator. The Chrome process itself starts
// lazily with the first session.
func NewManager(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (*Manager, error) {
	m := &Manager{
		logger:   logger.Named("browser_manager"),
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}

	opts, err := m.generateAllocatorOptions()
	if err != nil {
		return nil, err
	}
	m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(ctx, opts...)

	m.logger.Info("Browser manager initialized.",
		zap.Bool("headless", cfg.Headless),
		zap.String("storage_path", cfg.StoragePath),
		zap.Int("slow_mo_ms", cfg.SlowMoMillis),
	)
	return m, nil
}

// generateAllocatorOptions configures the flags for the browser executable.
func (m *Manager) generateAllocatorOptions() ([]chromedp.ExecAllocatorOption, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	// DefaultExecAllocatorOptions is headless; override it explicitly either way.
	opts = append(opts, chromedp.Flag("headless", m.cfg.Headless))

	if m.cfg.StoragePath != "" {
		userDataDir, err := prepareUserDataDir(m.cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chromedp.UserDataDir(userDataDir))
	}

	width, height := viewport(m.cfg.Viewport)
	opts = append(opts,
		chromedp.WindowSize(width, height),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("password-store", "basic"),
		chromedp.Flag("use-mock-keychain", true),
		chromedp.Flag("disable-gpu", m.cfg.Headless),
		chromedp.Flag("ignore-certificate-errors", m.cfg.IgnoreTLSErrors),
	)
	for _, arg := range m.cfg.Args {
		opts = append(opts, flagFromArg(arg))
	}
	return opts, nil
}

// prepareUserDataDir creates the persistent profile directory and removes a
// stale singleton lock left behind by a crashed browser.
func prepareUserDataDir(storagePath string) (string, error) {
	dir := filepath.Join(storagePath, "user_data")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create browser profile directory: %w", err)
	}
	for _, name := range []string{"SingletonLock", "SingletonSocket"} {
		_ = os.Remove(filepath.Join(dir, name))
	}
	return dir, nil
}

func viewport(v map[string]int) (int, int) {
	width, height := v["width"], v["height"]
	if width <= 0 {
		width = 1920
	}
	if height <= 0 {
		height = 1080
	}
	return width, height
}

// flagFromArg turns "--name=value" or "--name" into an allocator flag.
func flagFromArg(arg string) chromedp.ExecAllocatorOption {
	name := arg
	for len(name) > 0 && name[0] == '-' {
		name = name[1:]
	}
	for i := 0; i < len(name); i++ {
		if name[i] == '=' {
			value := name[i+1:]
			if b, err := strconv.ParseBool(value); err == nil {
				return chromedp.Flag(name[:i], b)
			}
			return chromedp.Flag(name[:i], value)
		}
	}
	return chromedp.Flag(name, true)
}

// NewSession opens a new tab. The tab lives until Close is called, the
// manager shuts down, or ctx is cancelled.
func (m *Manager) NewSession(ctx context.Context, debugDir string) (*Session, error) {
	tabCtx, cancel := chromedp.NewContext(m.allocatorCtx,
		chromedp.WithLogf(m.logger.Sugar().Debugf),
		chromedp.WithErrorf(m.logger.Sugar().Debugf),
	)

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-tabCtx.Done():
		}
	}()

	// First Run starts the browser when it is not running yet.
	if err := chromedp.Run(tabCtx, stealth.Apply(m.logger), chromedp.Navigate("about:blank")); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	s := newSession(tabCtx, cancel, m.logger, m.cfg, debugDir, uuid.New().String(), m)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	s.logger.Info("Browser session opened.")
	return s, nil
}

func (m *Manager) unregisterSession(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, s.id)
}

// Shutdown closes every open session and terminates the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down browser manager...")

	m.mu.Lock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range open {
		closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := s.Close(closeCtx); err != nil {
			m.logger.Warn("Error closing browser session during shutdown.", zap.String("session_id", s.id), zap.Error(err))
		}
		cancel()
	}

	if m.allocatorCancel != nil {
		m.allocatorCancel()
	}
	m.logger.Info("Browser manager shutdown complete.")
	return nil
}
