package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/api/schemas"
	"github.com/xkilldash9x/uistate/internal/scoring"
	"github.com/xkilldash9x/uistate/internal/target"
)

//go:embed js/select.js
var selectJS string

// optionContainers appear once a custom dropdown has opened.
const optionContainers = `[role="option"], [role="listbox"], [class*="Menu"], [class*="Dropdown"]`

// dropdownSettle gives an opening menu time to animate in.
const dropdownSettle = 500 * time.Millisecond

// Select chooses value in the dropdown named by raw. Native <select> elements
// are set directly; custom dropdowns are opened through their trigger and the
// option is clicked.
func (s *Session) Select(ctx context.Context, raw, value string) error {
	d := target.Parse(raw)
	keyword := scoring.TriggerKeyword(d)
	log := s.logger.With(zap.String("target", raw), zap.String("value", value))

	if chosen, err := s.selectNative(ctx, keyword, value); err == nil && chosen != "" {
		log.Info("Selected native option.", zap.String("option", chosen))
		return s.pace(ctx)
	}

	ranking := scoring.RankTriggers(d, s.Extract(ctx, PoolTrigger))
	trigger, ok := ranking.Best()
	if !ok {
		s.dumpDebug(ctx, "select", raw)
		return fmt.Errorf("select %q: no dropdown trigger: %w", raw, ranking.Err())
	}
	log.Info("Opening dropdown.", zap.String("trigger", trigger.Label()), zap.Int("score", trigger.Score))
	if err := s.clickSelector(ctx, refSelector(trigger.Ref)); err != nil {
		return fmt.Errorf("select %q: %w: %w", raw, schemas.ErrActionFailed, err)
	}

	if err := s.run(ctx, s.cfg.ElementTimeout, chromedp.WaitVisible(optionContainers, chromedp.ByQuery)); err != nil {
		log.Debug("No option container became visible.", zap.Error(err))
	}
	if err := sleep(ctx, dropdownSettle); err != nil {
		return err
	}

	option, ok := scoring.MatchOption(value, s.Extract(ctx, PoolOption))
	if !ok {
		s.dumpDebug(ctx, "select", raw)
		return fmt.Errorf("select %q: no option matching %q: %w", raw, value, schemas.ErrNoCandidateFound)
	}
	if err := s.clickSelector(ctx, refSelector(option.Ref)); err != nil {
		return fmt.Errorf("select %q: %w: %w", raw, schemas.ErrActionFailed, err)
	}
	log.Info("Selected option.", zap.String("option", option.Label()))
	return s.settle(ctx)
}

// selectNative sets a matching <select> and returns the chosen option text,
// or "" when no native select matches keyword.
func (s *Session) selectNative(ctx context.Context, keyword, value string) (string, error) {
	variants, err := json.Marshal(scoring.ValueVariants(value))
	if err != nil {
		return "", err
	}
	var chosen string
	script := fmt.Sprintf("(%s)(%q, %s)", selectJS, keyword, variants)
	if err := s.run(ctx, s.cfg.ElementTimeout, chromedp.Evaluate(script, &chosen)); err != nil {
		return "", err
	}
	return chosen, nil
}
