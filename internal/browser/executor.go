package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/api/schemas"
	"github.com/xkilldash9x/uistate/internal/scoring"
	"github.com/xkilldash9x/uistate/internal/target"
)

// runnersUpLogged is how many losing candidates are logged after a resolution.
const runnersUpLogged = 3

// modalGrace is how long Type waits for a modal when the first extraction
// found no matching field.
const modalGrace = 2 * time.Second

// ExecuteStep performs a single plan step against the page. Resolution failures
// wrap schemas.ErrNoCandidateFound or schemas.ErrAmbiguousNoResolution, native
// interaction failures wrap schemas.ErrActionFailed.
func (s *Session) ExecuteStep(ctx context.Context, step schemas.PlanStep) error {
	switch step.Action.Normalize() {
	case schemas.ActionNavigate:
		return s.Navigate(ctx, step.Target)
	case schemas.ActionClick:
		return s.Click(ctx, step.Target)
	case schemas.ActionType:
		return s.Type(ctx, step.Target, step.Value)
	case schemas.ActionSelect:
		return s.Select(ctx, step.Target, step.Value)
	case schemas.ActionWait:
		// A wait that times out is reported but never fails the step.
		if err := s.WaitFor(ctx, step.Target); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("Element not found while waiting.", zap.String("target", step.Target), zap.Error(err))
		}
		return nil
	case schemas.ActionDiscover:
		_, err := s.Discover(ctx)
		return err
	case schemas.ActionFind:
		term := step.Target
		if term == "" {
			term = step.Value
		}
		_, err := s.Find(ctx, term)
		return err
	case schemas.ActionExtractText:
		_, err := s.ExtractText(ctx)
		return err
	case schemas.ActionConditional:
		return s.Conditional(ctx, step.Target)
	case schemas.ActionSkip:
		return nil
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
}

// Click resolves raw against the pool its kind hint selects (clickable unless
// the target names a field or option) and clicks the best match. It never
// clicks an element that failed every match tier.
func (s *Session) Click(ctx context.Context, raw string) error {
	d := target.Parse(raw)
	log := s.logger.With(zap.String("target", raw))

	if sel, ok := directSelector(d); ok && s.visible(ctx, sel) {
		err := s.clickSelector(ctx, sel)
		if err == nil {
			log.Debug("Clicked structural selector directly.")
			return s.settle(ctx)
		}
		log.Debug("Direct selector click failed, falling back to scoring.", zap.Error(err))
	}

	ranking := s.rankClickable(ctx, d)
	for _, dq := range ranking.Disqualified {
		log.Debug("Candidate disqualified.", zap.String("label", dq.Label()), zap.Strings("rules", dq.Rules))
	}

	best, ok := ranking.Best()
	if !ok {
		if sel, found := s.attributeFallback(ctx, d); found {
			if err := s.clickSelector(ctx, sel); err == nil {
				log.Info("Clicked attribute fallback.", zap.String("selector", sel))
				return s.settle(ctx)
			}
		}
		s.dumpDebug(ctx, "click", raw)
		return fmt.Errorf("click %q: %w", raw, ranking.Err())
	}

	log.Info("Resolved click target.",
		zap.String("label", best.Label()),
		zap.Int("score", best.Score),
		zap.String("reason", string(best.Reason)),
		zap.Int("pool", ranking.PoolSize),
	)
	logRunnersUp(log, ranking)

	if err := s.clickSelector(ctx, refSelector(best.Ref)); err != nil {
		s.dumpDebug(ctx, "click", raw)
		return fmt.Errorf("click %q: %w: %w", raw, schemas.ErrActionFailed, err)
	}
	return s.settle(ctx)
}

// rankClickable scores the pool the target's kind hint points at. Tag and link
// targets are first ranked among the matching subset, then across the pool.
func (s *Session) rankClickable(ctx context.Context, d target.Descriptor) scoring.Ranking {
	pool := clickPool(d)
	candidates := s.Extract(ctx, pool)
	if pool == PoolFillable {
		return scoring.RankFillable(d, "", candidates)
	}
	if subset, narrowed := narrowToKind(d, candidates); narrowed {
		if r := scoring.RankClickable(d, subset); len(r.Ranked) > 0 {
			return r
		}
	}
	return scoring.RankClickable(d, candidates)
}

// directSelector returns the structural selector worth querying before
// scoring. Ambiguous targets always go through scoring.
func directSelector(d target.Descriptor) (string, bool) {
	if d.CSS == "" || d.IsAmbiguous {
		return "", false
	}
	return d.CSS, true
}

// clickPool maps a target's kind hint onto an extractor pool.
func clickPool(d target.Descriptor) Pool {
	switch d.KindHint {
	case target.KindInput, target.KindContentEditable:
		return PoolFillable
	case target.KindOption:
		return PoolOption
	}
	return PoolClickable
}

// narrowToKind keeps the candidates that fit the target's structure: its tag
// for "button:has-text" style targets, anchors with an href for links.
func narrowToKind(d target.Descriptor, candidates []scoring.Candidate) ([]scoring.Candidate, bool) {
	var keep func(scoring.Candidate) bool
	switch {
	case d.Tag != "":
		keep = func(c scoring.Candidate) bool { return c.Tag == d.Tag }
	case d.KindHint == target.KindLink:
		keep = func(c scoring.Candidate) bool { return c.Tag == "a" && c.Href != "" }
	default:
		return candidates, false
	}
	var out []scoring.Candidate
	for _, c := range candidates {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out, true
}

func logRunnersUp(log *zap.Logger, r scoring.Ranking) {
	for i, c := range r.RunnersUp(runnersUpLogged) {
		log.Debug("Runner-up candidate.",
			zap.Int("rank", i+2),
			zap.String("label", c.Label()),
			zap.Int("score", c.Score),
			zap.String("reason", string(c.Reason)),
		)
	}
}

// attributeFallback looks for an element whose aria-label, test id or title
// contains the target text.
func (s *Session) attributeFallback(ctx context.Context, d target.Descriptor) (string, bool) {
	text := strings.TrimSpace(d.NormalizedText)
	if text == "" || d.CSS != "" {
		return "", false
	}
	q := cssString(text)
	for _, sel := range []string{
		fmt.Sprintf(`[aria-label*=%s i]`, q),
		fmt.Sprintf(`[data-testid*=%s i]`, q),
		fmt.Sprintf(`[title*=%s i]`, q),
	} {
		if s.visible(ctx, sel) {
			return sel, true
		}
	}
	return "", false
}

// clickSelector scrolls the element into view and clicks it with a real mouse
// event, falling back to a DOM click when something overlays it.
func (s *Session) clickSelector(ctx context.Context, sel string) error {
	err := s.run(ctx, s.cfg.ClickTimeout,
		chromedp.ScrollIntoView(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible),
	)
	if err == nil {
		return s.pace(ctx)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var clicked bool
	script := fmt.Sprintf(`(function(){const el=document.querySelector(%q);if(!el)return false;el.click();return true;})()`, sel)
	if jsErr := s.run(ctx, s.cfg.ClickTimeout, chromedp.Evaluate(script, &clicked)); jsErr != nil || !clicked {
		return err
	}
	return s.pace(ctx)
}

// Type resolves raw against the fillable elements (scoped to an open modal)
// and types text with humanoid cadence. A field that already holds exactly
// text is left alone; one holding other text is cleared first.
func (s *Session) Type(ctx context.Context, raw, text string) error {
	d := target.Parse(raw)
	log := s.logger.With(zap.String("target", raw))

	ranking := s.rankFillable(ctx, d, text)
	sel, current := "", ""
	if best, ok := ranking.Best(); ok {
		sel, current = refSelector(best.Ref), best.CurrentValue
		log.Info("Resolved input field.",
			zap.String("label", best.Label()),
			zap.Int("score", best.Score),
			zap.String("reason", string(best.Reason)),
		)
		logRunnersUp(log, ranking)
	} else if direct := directInputSelector(d); direct != "" && s.visible(ctx, direct) {
		sel, current = direct, "\x00"
		log.Info("Using direct input selector.", zap.String("selector", direct))
	} else {
		s.dumpDebug(ctx, "input", raw)
		return fmt.Errorf("type into %q: %w", raw, ranking.Err())
	}

	if strings.TrimSpace(current) == strings.TrimSpace(text) {
		log.Info("Field already holds the value.")
		return nil
	}
	if err := s.fill(ctx, sel, text, current != ""); err != nil {
		s.dumpDebug(ctx, "input", raw)
		return fmt.Errorf("type into %q: %w: %w", raw, schemas.ErrActionFailed, err)
	}
	return s.pace(ctx)
}

// rankFillable ranks the fillable pool. When nothing matches and no modal is
// open yet, it gives a modal opened by the previous click modalGrace to
// appear and ranks again.
func (s *Session) rankFillable(ctx context.Context, d target.Descriptor, text string) scoring.Ranking {
	ranking := scoring.RankFillable(d, text, s.Extract(ctx, PoolFillable))
	if len(ranking.Ranked) > 0 || s.IsModalOpen(ctx) {
		return ranking
	}
	if err := s.WaitForModal(ctx, modalGrace); err != nil {
		return ranking
	}
	return scoring.RankFillable(d, text, s.Extract(ctx, PoolFillable))
}

const clearFieldJS = `(function(sel){
  const el = document.querySelector(sel);
  if (!el) return false;
  el.focus();
  if (!el.isContentEditable && 'value' in el) {
    el.value = '';
    el.dispatchEvent(new Event('input', {bubbles: true}));
  } else {
    document.execCommand('selectAll', false, null);
    document.execCommand('delete', false, null);
  }
  return true;
})`

// fill focuses sel, optionally clears it, then types text one key at a time.
func (s *Session) fill(ctx context.Context, sel, text string, clear bool) error {
	if err := s.run(ctx, s.cfg.ClickTimeout,
		chromedp.ScrollIntoView(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible),
	); err != nil {
		if focusErr := s.run(ctx, s.cfg.ClickTimeout, chromedp.Focus(sel, chromedp.ByQuery)); focusErr != nil {
			return fmt.Errorf("could not focus field: %w", err)
		}
	}
	if clear {
		var ok bool
		if err := s.run(ctx, s.cfg.ElementTimeout, chromedp.Evaluate(fmt.Sprintf("(%s)(%q)", clearFieldJS, sel), &ok)); err != nil {
			return fmt.Errorf("could not clear field: %w", err)
		}
	}

	budget := s.cfg.ElementTimeout + time.Duration(len(text))*time.Second
	typeCtx, cancel := s.opContext(ctx, budget)
	defer cancel()
	return s.humanoid.Type(typeCtx, text)
}

// directInputSelector builds a CSS selector for name=, id= and CSS targets.
func directInputSelector(d target.Descriptor) string {
	if d.CSS != "" {
		return d.CSS
	}
	v := cssString(d.NormalizedText)
	switch d.Attribute {
	case "name":
		return fmt.Sprintf(`[name=%s]`, v)
	case "id":
		return fmt.Sprintf(`[id=%s]`, v)
	case "textarea":
		return fmt.Sprintf(`textarea[name=%s], textarea[placeholder*=%s i]`, v, v)
	}
	return ""
}

// WaitFor waits for a CSS selector to become visible, then for the target's
// text to appear anywhere on the page.
func (s *Session) WaitFor(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	timeout := 2 * s.cfg.ElementTimeout
	d := target.Parse(raw)

	sel := d.CSS
	if sel == "" && isBareTag(raw) {
		sel = raw
	}
	if sel != "" {
		if err := s.run(ctx, timeout, chromedp.WaitVisible(sel, chromedp.ByQuery)); err == nil {
			return nil
		}
	}

	text := strings.ToLower(d.NormalizedText)
	var found bool
	expr := fmt.Sprintf(`document.body && document.body.innerText.toLowerCase().includes(%q)`, text)
	if err := s.run(ctx, timeout, chromedp.Poll(expr, &found, chromedp.WithPollingInterval(250*time.Millisecond))); err != nil {
		return fmt.Errorf("wait for %q: %w", raw, schemas.ErrNoCandidateFound)
	}
	return nil
}

func isBareTag(s string) bool {
	switch s {
	case "body", "main", "form", "header", "nav", "table", "dialog":
		return true
	}
	return false
}

// Conditional clicks raw only when it resolves. An absent target is not an error.
func (s *Session) Conditional(ctx context.Context, raw string) error {
	d := target.Parse(raw)
	best, ok := s.rankClickable(ctx, d).Best()
	if !ok {
		s.logger.Info("Conditional target absent, continuing.", zap.String("target", raw))
		return nil
	}
	if err := s.clickSelector(ctx, refSelector(best.Ref)); err != nil {
		return fmt.Errorf("conditional click %q: %w: %w", raw, schemas.ErrActionFailed, err)
	}
	return s.settle(ctx)
}

// cssString quotes s for use inside a CSS attribute selector.
func cssString(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
