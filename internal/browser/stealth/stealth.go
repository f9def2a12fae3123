// Package stealth hides the most obvious automation fingerprints from the
// applications being captured. Several of them refuse to render or log in when
// navigator.webdriver is set.
package stealth

import (
	"context"
	_ "embed"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// EvasionsJS is injected into every new document before page scripts run.
//
//go:embed evasions.js
var EvasionsJS string

// Apply returns an action that registers the evasions for every new document
// in the current tab.
func Apply(logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if logger != nil {
			logger.Debug("Applying stealth evasions.")
		}
		if EvasionsJS == "" {
			return nil
		}
		_, err := page.AddScriptToEvaluateOnNewDocument(EvasionsJS).Do(ctx)
		return err
	})
}
