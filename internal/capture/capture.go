// Package capture stores screenshots of UI states and organizes them into a
// per-task dataset.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/api/schemas"
)

// Capture kinds used by the agent.
const (
	KindBefore          = "before"
	KindAfter           = "after"
	KindAfterLogin      = "after-login"
	KindFinal           = "final"
	KindElement         = "element"
	KindElementFallback = "element-fallback"
)

const maxSlugLength = 50

// Page is the part of a browser session the capturer needs.
type Page interface {
	Screenshot(ctx context.Context) ([]byte, error)
	ElementScreenshot(ctx context.Context, selector string) ([]byte, error)
}

// Capturer writes numbered full-page screenshots into a directory.
type Capturer struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	counter int
}

// NewCapturer creates a capturer writing into dir. The directory is created
// on first use.
func NewCapturer(logger *zap.Logger, dir string) *Capturer {
	return &Capturer{
		dir:    dir,
		logger: logger.Named("capture"),
		now:    time.Now,
	}
}

// Capture saves a full-page screenshot named
// <counter>-<kind>-<slug>-<unix millis>.png.
func (c *Capturer) Capture(ctx context.Context, page Page, description, kind string) (schemas.CapturedState, error) {
	png, err := page.Screenshot(ctx)
	if err != nil {
		return schemas.CapturedState{}, err
	}
	return c.save(png, description, kind, kind)
}

// CaptureElement saves a screenshot of a single element, such as a modal. When
// the element cannot be captured it falls back to a full-page screenshot.
func (c *Capturer) CaptureElement(ctx context.Context, page Page, selector, description string) (schemas.CapturedState, error) {
	png, err := page.ElementScreenshot(ctx, selector)
	if err != nil {
		c.logger.Warn("Could not capture element, capturing full page.", zap.String("selector", selector), zap.Error(err))
		return c.Capture(ctx, page, description, KindElementFallback)
	}
	return c.save(png, description, KindElement, "element")
}

func (c *Capturer) save(png []byte, description, kind, prefix string) (schemas.CapturedState, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return schemas.CapturedState{}, fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	c.mu.Lock()
	c.counter++
	n := c.counter
	c.mu.Unlock()

	now := c.now()
	slug := Slug(description)
	var filename string
	if kind == KindElement {
		filename = fmt.Sprintf("element-%d-%s-%d.png", n, slug, now.UnixMilli())
	} else {
		filename = fmt.Sprintf("%d-%s-%s-%d.png", n, kind, slug, now.UnixMilli())
	}
	path := filepath.Join(c.dir, filename)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return schemas.CapturedState{}, fmt.Errorf("failed to write screenshot: %w", err)
	}

	c.logger.Info("Captured UI state.", zap.String("description", description), zap.String("kind", kind), zap.String("path", path))
	return schemas.CapturedState{
		Path:        path,
		Name:        prefix + "-" + slug,
		Description: description,
		Kind:        kind,
		Timestamp:   now,
		Counter:     n,
	}, nil
}

// Reset restarts numbering for a new task.
func (c *Capturer) Reset() {
	c.mu.Lock()
	c.counter = 0
	c.mu.Unlock()
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s, collapses everything but letters and digits into dashes
// and truncates the result.
func Slug(s string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	return slug
}
