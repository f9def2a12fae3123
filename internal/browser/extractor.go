package browser

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/internal/scoring"
)

// Pool selects which family of elements Extract snapshots.
type Pool string

const (
	PoolClickable Pool = "clickable"
	// PoolFillable is scoped to the open modal when there is one.
	PoolFillable Pool = "fillable"
	// PoolTrigger holds custom dropdown triggers, modal scoped like PoolFillable.
	PoolTrigger Pool = "trigger"
	PoolOption  Pool = "option"
)

// refAttribute tags extracted elements so a scored candidate can be acted on.
const refAttribute = "data-uistate-id"

//go:embed js/extract.js
var extractJS string

// Extract snapshots the visible elements of a pool in one page evaluation.
// Every returned candidate's element carries refAttribute until the next call.
// Failures are logged and yield an empty slice so the scorer reports
// ErrNoCandidateFound instead of a transport error.
func (s *Session) Extract(ctx context.Context, pool Pool) []scoring.Candidate {
	var candidates []scoring.Candidate
	script := fmt.Sprintf("(%s)(%q)", extractJS, string(pool))
	if err := s.run(ctx, s.cfg.ElementTimeout, chromedp.Evaluate(script, &candidates)); err != nil {
		s.logger.Warn("Candidate extraction failed.", zap.String("pool", string(pool)), zap.Error(err))
		return nil
	}
	s.logger.Debug("Extracted candidates.", zap.String("pool", string(pool)), zap.Int("count", len(candidates)))
	return candidates
}

// refSelector returns the CSS selector of an extracted candidate.
func refSelector(ref string) string {
	return fmt.Sprintf(`[%s="%s"]`, refAttribute, ref)
}
