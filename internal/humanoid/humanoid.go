// Filename: internal/humanoid/humanoid.go
package humanoid

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config controls the pacing of simulated keyboard input and pauses.
type Config struct {
	// Enabled turns cadence noise on. When false every keystroke uses TypingDelay.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// TypingDelay is the mean delay between keystrokes.
	TypingDelay time.Duration `mapstructure:"typing_delay" yaml:"typing_delay"`
	// TypingJitter bounds how far a single delay may drift from TypingDelay.
	TypingJitter time.Duration `mapstructure:"typing_jitter" yaml:"typing_jitter"`
	// PauseVariance is the fractional spread applied to cognitive pauses (0.25 = +/-25%).
	PauseVariance float64 `mapstructure:"pause_variance" yaml:"pause_variance"`
	// Seed fixes the noise source. Zero picks a time-based seed.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

// DefaultConfig mirrors the 50ms keystroke pacing used against most web apps.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		TypingDelay:   50 * time.Millisecond,
		TypingJitter:  25 * time.Millisecond,
		PauseVariance: 0.25,
	}
}

// Executor runs a single browser action. It exists so tests can observe the
// keystrokes without a live browser.
type Executor interface {
	ExecuteAction(ctx context.Context, action chromedp.Action) error
}

// CDPExecutor runs actions against the chromedp target carried by ctx.
type CDPExecutor struct{}

// NewCDPExecutor returns the production executor.
func NewCDPExecutor() *CDPExecutor { return &CDPExecutor{} }

// ExecuteAction implements Executor.
func (e *CDPExecutor) ExecuteAction(ctx context.Context, action chromedp.Action) error {
	return chromedp.Run(ctx, action)
}

// Humanoid paces interactions so they resemble a person at a keyboard.
type Humanoid struct {
	config   Config
	logger   *zap.Logger
	executor Executor

	mu    sync.Mutex // protects noise and clock
	noise *perlin.Perlin
	clock float64
}

// New creates a Humanoid with the production executor.
func New(config Config, logger *zap.Logger) *Humanoid {
	return NewWithExecutor(config, logger, NewCDPExecutor())
}

// NewWithExecutor creates a Humanoid with an injected executor.
func NewWithExecutor(config Config, logger *zap.Logger, executor Executor) *Humanoid {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// Standard Perlin parameters
	alpha, beta, n := 2.0, 2.0, int32(3)

	return &Humanoid{
		config:   config,
		logger:   logger.Named("humanoid"),
		executor: executor,
		noise:    perlin.NewPerlin(alpha, beta, n, seed),
	}
}

// sample advances the noise clock and returns a value in [-1, 1].
func (h *Humanoid) sample() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clock += 0.37
	v := h.noise.Noise1D(h.clock) * 2
	return math.Max(-1, math.Min(1, v))
}

// KeystrokeDelay returns the delay before the next keystroke.
func (h *Humanoid) KeystrokeDelay() time.Duration {
	if !h.config.Enabled || h.config.TypingJitter <= 0 {
		return h.config.TypingDelay
	}
	d := h.config.TypingDelay + time.Duration(h.sample()*float64(h.config.TypingJitter))
	if d < 0 {
		return 0
	}
	return d
}

// PauseDuration scales base by the configured variance.
func (h *Humanoid) PauseDuration(base time.Duration) time.Duration {
	if !h.config.Enabled || h.config.PauseVariance <= 0 || base <= 0 {
		return base
	}
	return time.Duration(float64(base) * (1 + h.sample()*h.config.PauseVariance))
}

// Type sends text to the focused element one key at a time.
func (h *Humanoid) Type(ctx context.Context, text string) error {
	for _, r := range text {
		if err := h.executor.ExecuteAction(ctx, chromedp.KeyEvent(string(r))); err != nil {
			h.logger.Debug("Keystroke failed.", zap.Error(err))
			return err
		}
		if err := sleep(ctx, h.KeystrokeDelay()); err != nil {
			return err
		}
	}
	return nil
}

// CognitivePause waits roughly base, returning early if ctx is done.
func (h *Humanoid) CognitivePause(ctx context.Context, base time.Duration) error {
	return sleep(ctx, h.PauseDuration(base))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
