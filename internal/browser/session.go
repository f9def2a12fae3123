package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/internal/config"
	"github.com/xkilldash9x/uistate/internal/humanoid"
)

// Session is one browser tab driven through chromedp. It is not safe for
// concurrent use; the agent drives it from a single goroutine.
type Session struct {
	id       string
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger
	cfg      config.BrowserConfig
	debugDir string
	humanoid *humanoid.Humanoid
	observer sessionObserver

	closeOnce sync.Once
}

func newSession(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *zap.Logger,
	cfg config.BrowserConfig,
	debugDir string,
	id string,
	observer sessionObserver,
) *Session {
	log := logger.Named("session").With(zap.String("session_id", id))
	return &Session{
		id:       id,
		ctx:      ctx,
		cancel:   cancel,
		logger:   log,
		cfg:      cfg,
		debugDir: debugDir,
		humanoid: humanoid.New(cfg.Humanoid, log),
		observer: observer,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Context returns the chromedp context of the tab.
func (s *Session) Context() context.Context { return s.ctx }

// opContext ties an operation to both the tab and the caller, bounded by timeout.
func (s *Session) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	combined, cancelCombined := CombineContext(s.ctx, ctx)
	if timeout <= 0 {
		return combined, cancelCombined
	}
	timed, cancelTimed := context.WithTimeout(combined, timeout)
	return timed, func() {
		cancelTimed()
		cancelCombined()
	}
}

// run executes actions in the tab under the given timeout.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := s.opContext(ctx, timeout)
	defer cancel()
	return chromedp.Run(opCtx, actions...)
}

// Navigate loads url and waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Info("Navigating.", zap.String("url", url))
	if err := s.run(ctx, s.cfg.NavigationTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return s.pace(ctx)
}

// CurrentURL returns the tab's location, or "" when it cannot be read.
func (s *Session) CurrentURL(ctx context.Context) string {
	var u string
	if err := s.run(ctx, s.cfg.ElementTimeout, chromedp.Location(&u)); err != nil {
		s.logger.Debug("Could not read current URL.", zap.Error(err))
	}
	return u
}

// HTML returns the serialized document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.cfg.ElementTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}
	return html, nil
}

// Screenshot captures the full scrollable page as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	// Quality 100 selects PNG encoding.
	if err := s.run(ctx, s.cfg.NavigationTimeout, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// ElementScreenshot captures the first element matching the CSS selector.
func (s *Session) ElementScreenshot(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, s.cfg.ElementTimeout, chromedp.Screenshot(selector, &buf, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return nil, fmt.Errorf("failed to capture element %q: %w", selector, err)
	}
	return buf, nil
}

var (
	loginFormIndicators = []string{
		`input[type="email"]`, `input[type="password"]`,
		`[data-testid*="login"]`, `[data-testid*="signin"]`,
	}
	loggedInIndicators = []string{
		`[data-testid*="user-menu"]`, `[data-testid*="profile"]`,
		`button[aria-label*="user" i]`, `button[aria-label*="profile" i]`,
		`img[alt*="avatar" i]`, `img[alt*="profile" i]`, `.user-menu`, `.profile-menu`,
	}
	authCookieHints = []string{"session", "auth", "token", "access", "jwt", "sid"}
)

// IsLoggedIn guesses whether the persistent profile already holds a session
// for the current site. It errs on the side of false.
func (s *Session) IsLoggedIn(ctx context.Context) bool {
	current := strings.ToLower(s.CurrentURL(ctx))
	if strings.Contains(current, "login") || strings.Contains(current, "signin") {
		return !s.anyVisible(ctx, loginFormIndicators)
	}
	if s.anyVisible(ctx, loggedInIndicators) {
		return true
	}

	var cookies []*network.Cookie
	err := s.run(ctx, s.cfg.ElementTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		s.logger.Debug("Could not read cookies.", zap.Error(err))
		return false
	}
	for _, c := range cookies {
		name := strings.ToLower(c.Name)
		for _, hint := range authCookieHints {
			if strings.Contains(name, hint) && len(c.Value) > 10 {
				return true
			}
		}
	}
	return false
}

func (s *Session) anyVisible(ctx context.Context, selectors []string) bool {
	for _, sel := range selectors {
		if s.visible(ctx, sel) {
			return true
		}
	}
	return false
}

// visible reports whether sel matches a rendered element right now.
func (s *Session) visible(ctx context.Context, sel string) bool {
	var ok bool
	script := fmt.Sprintf(`(function(){const el=document.querySelector(%q);if(!el)return false;if(el.offsetParent!==null)return true;const r=el.getBoundingClientRect();return r.width>0&&r.height>0;})()`, sel)
	if err := s.run(ctx, s.cfg.ElementTimeout, chromedp.Evaluate(script, &ok)); err != nil {
		return false
	}
	return ok
}

// pace applies the configured slow-motion delay after an interaction.
func (s *Session) pace(ctx context.Context) error {
	return sleep(ctx, time.Duration(s.cfg.SlowMoMillis)*time.Millisecond)
}

// settle waits for the page to react to a click.
func (s *Session) settle(ctx context.Context) error {
	return sleep(ctx, s.cfg.SettleDelay)
}

// Close closes the tab. The persistent profile keeps cookies and storage.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Debug("Closing browser session.")
		closeCtx, cancel := s.opContext(ctx, 5*time.Second)
		err = chromedp.Cancel(closeCtx)
		cancel()
		s.cancel()
		if s.observer != nil {
			s.observer.unregisterSession(s)
		}
	})
	if err != nil && !strings.Contains(err.Error(), "context canceled") {
		return fmt.Errorf("failed to close browser session: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
