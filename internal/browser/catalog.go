package browser

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/api/schemas"
)

//go:embed js/catalog.js
var catalogJS string

// catalogLimits caps each element kind in the repair catalog so the prompt
// stays small.
var catalogLimits = map[schemas.ElementKind]int{
	schemas.ElementButton:          15,
	schemas.ElementLink:            15,
	schemas.ElementInput:           10,
	schemas.ElementContentEditable: 10,
	schemas.ElementOption:          15,
}

// kindsFor lists the element kinds relevant to repairing an action.
func kindsFor(action schemas.Action) map[schemas.ElementKind]bool {
	switch action.Normalize() {
	case schemas.ActionClick, schemas.ActionConditional:
		return map[schemas.ElementKind]bool{schemas.ElementButton: true, schemas.ElementLink: true}
	case schemas.ActionType:
		return map[schemas.ElementKind]bool{schemas.ElementInput: true, schemas.ElementContentEditable: true}
	case schemas.ActionSelect:
		return map[schemas.ElementKind]bool{schemas.ElementButton: true, schemas.ElementOption: true}
	}
	return nil
}

// snapshot returns every visible interactive element, uncapped.
func (s *Session) snapshot(ctx context.Context) ([]schemas.ElementSummary, error) {
	var all []schemas.ElementSummary
	if err := s.run(ctx, s.cfg.ElementTimeout, chromedp.Evaluate(catalogJS, &all)); err != nil {
		return nil, fmt.Errorf("failed to list page elements: %w", err)
	}
	return all, nil
}

// Catalog lists the visible elements relevant to action, capped per kind. An
// action with no specific kinds gets every kind.
func (s *Session) Catalog(ctx context.Context, action schemas.Action) ([]schemas.ElementSummary, error) {
	all, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return limitCatalog(all, kindsFor(action)), nil
}

func limitCatalog(all []schemas.ElementSummary, kinds map[schemas.ElementKind]bool) []schemas.ElementSummary {
	counts := map[schemas.ElementKind]int{}
	out := make([]schemas.ElementSummary, 0, len(all))
	for _, e := range all {
		if kinds != nil && !kinds[e.Kind] {
			continue
		}
		if limit, ok := catalogLimits[e.Kind]; ok && counts[e.Kind] >= limit {
			continue
		}
		if e.Text == "" && e.AriaLabel == "" && e.Name == "" && e.Placeholder == "" && e.ID == "" {
			continue
		}
		counts[e.Kind]++
		out = append(out, e)
	}
	return out
}

// Discover logs the visible buttons, links and inputs of the page.
func (s *Session) Discover(ctx context.Context) ([]schemas.ElementSummary, error) {
	all, err := s.Catalog(ctx, "")
	if err != nil {
		return nil, err
	}
	counts := map[schemas.ElementKind]int{}
	for _, e := range all {
		counts[e.Kind]++
		s.logger.Debug("Discovered element.",
			zap.String("kind", string(e.Kind)),
			zap.String("text", truncate(e.Text, 50)),
			zap.String("aria_label", e.AriaLabel),
			zap.String("href", truncate(e.Href, 50)),
		)
	}
	s.logger.Info("Discovery complete.",
		zap.Int("buttons", counts[schemas.ElementButton]),
		zap.Int("links", counts[schemas.ElementLink]),
		zap.Int("inputs", counts[schemas.ElementInput]+counts[schemas.ElementContentEditable]),
	)
	return all, nil
}

// Find returns the visible buttons and links whose text, label or href
// overlaps term.
func (s *Session) Find(ctx context.Context, term string) ([]schemas.ElementSummary, error) {
	all, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	matches := FilterElements(all, term)
	if len(matches) == 0 {
		s.logger.Warn("No elements matched.", zap.String("term", term))
		return nil, nil
	}
	for i, m := range matches {
		if i == 5 {
			break
		}
		s.logger.Info("Matching element.", zap.String("kind", string(m.Kind)), zap.String("text", m.Text), zap.String("aria_label", m.AriaLabel))
	}
	return matches, nil
}

// FilterElements keeps buttons and links overlapping term in either direction.
func FilterElements(all []schemas.ElementSummary, term string) []schemas.ElementSummary {
	want := strings.ToLower(strings.TrimSpace(term))
	if want == "" {
		return nil
	}
	var out []schemas.ElementSummary
	for _, e := range all {
		if e.Kind != schemas.ElementButton && e.Kind != schemas.ElementLink {
			continue
		}
		for _, field := range []string{e.Text, e.AriaLabel, e.Href} {
			f := strings.ToLower(field)
			if f != "" && (strings.Contains(f, want) || strings.Contains(want, f)) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// PageText summarises the readable content of a page.
type PageText struct {
	Headings []string `json:"headings"`
	Labels   []string `json:"labels"`
	Content  string   `json:"content"`
}

const pageTextJS = `(function(){
  const vis = el => el.offsetParent !== null;
  const main = document.querySelector('main, [role="main"], .main-content, #main-content') || document.body;
  const headings = Array.from(document.querySelectorAll('h1, h2, h3, h4, h5, h6')).filter(vis)
    .map(h => h.tagName + ': ' + h.textContent.trim());
  const labels = Array.from(document.querySelectorAll('button, a, [role="button"], [role="link"]')).filter(vis)
    .map(el => el.textContent.trim() || el.getAttribute('aria-label') || '').filter(Boolean);
  return {headings: headings, labels: Array.from(new Set(labels)), content: (main.innerText || main.textContent || '')};
})()`

// ExtractText reads headings, interactive labels and the main content text.
func (s *Session) ExtractText(ctx context.Context) (PageText, error) {
	var pt PageText
	if err := s.run(ctx, s.cfg.ElementTimeout, chromedp.Evaluate(pageTextJS, &pt)); err != nil {
		return PageText{}, fmt.Errorf("failed to extract page text: %w", err)
	}
	s.logger.Info("Extracted page text.",
		zap.Strings("headings", firstN(pt.Headings, 10)),
		zap.Strings("labels", firstN(pt.Labels, 15)),
		zap.String("preview", truncate(strings.Join(strings.Fields(pt.Content), " "), 200)),
	)
	return pt, nil
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
