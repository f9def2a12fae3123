package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// DebugSummary lists what a failed lookup could have matched.
type DebugSummary struct {
	Buttons []string
	Inputs  []string
	Modals  int
}

// String renders the summary for the header of a debug dump.
func (d DebugSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "modals: %d\n", d.Modals)
	fmt.Fprintf(&b, "buttons (%d):\n", len(d.Buttons))
	for _, l := range d.Buttons {
		fmt.Fprintf(&b, "  - %s\n", l)
	}
	fmt.Fprintf(&b, "inputs (%d):\n", len(d.Inputs))
	for _, l := range d.Inputs {
		fmt.Fprintf(&b, "  - %s\n", l)
	}
	return b.String()
}

// SummarizeHTML extracts button labels, input descriptions and the number of
// dialogs from a serialized page.
func SummarizeHTML(html string) (DebugSummary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return DebugSummary{}, fmt.Errorf("failed to parse page HTML: %w", err)
	}

	var sum DebugSummary
	doc.Find(`button, [role="button"]`).Each(func(_ int, sel *goquery.Selection) {
		label := strings.Join(strings.Fields(sel.Text()), " ")
		if aria, ok := sel.Attr("aria-label"); ok && aria != "" {
			label = fmt.Sprintf("%s [aria-label=%q]", label, aria)
		}
		if strings.TrimSpace(label) != "" {
			sum.Buttons = append(sum.Buttons, strings.TrimSpace(label))
		}
	})
	doc.Find(`input:not([type="hidden"]), textarea, [contenteditable="true"], [role="textbox"]`).Each(func(_ int, sel *goquery.Selection) {
		var parts []string
		parts = append(parts, goquery.NodeName(sel))
		for _, attr := range []string{"name", "id", "placeholder", "aria-label", "type"} {
			if v, ok := sel.Attr(attr); ok && v != "" {
				parts = append(parts, fmt.Sprintf("%s=%q", attr, v))
			}
		}
		sum.Inputs = append(sum.Inputs, strings.Join(parts, " "))
	})
	sum.Modals = doc.Find(`[role="dialog"], .modal, [class*="Modal"], [class*="Dialog"]`).Length()
	return sum, nil
}

// dumpDebug writes the page HTML with a summary header when a lookup fails.
// Errors are logged and swallowed; a missing dump never changes a step outcome.
func (s *Session) dumpDebug(ctx context.Context, kind, raw string) {
	if s.debugDir == "" {
		return
	}
	html, err := s.HTML(ctx)
	if err != nil {
		s.logger.Debug("Could not capture HTML for debugging.", zap.Error(err))
		return
	}
	summary, err := SummarizeHTML(html)
	if err != nil {
		s.logger.Debug("Could not summarise debug HTML.", zap.Error(err))
	}

	if err := os.MkdirAll(s.debugDir, 0o755); err != nil {
		s.logger.Warn("Could not create debug directory.", zap.Error(err))
		return
	}
	path := filepath.Join(s.debugDir, fmt.Sprintf("error-%s-%d.html", kind, time.Now().UnixMilli()))
	header := fmt.Sprintf("<!--\ntarget: %s\nurl: %s\n%s-->\n", strings.ReplaceAll(raw, "--", "- -"), s.CurrentURL(ctx), summary)
	if err := os.WriteFile(path, []byte(header+html), 0o644); err != nil {
		s.logger.Warn("Could not write debug HTML.", zap.Error(err))
		return
	}
	s.logger.Info("Saved debug HTML.",
		zap.String("path", path),
		zap.Int("buttons", len(summary.Buttons)),
		zap.Int("inputs", len(summary.Inputs)),
	)
}
