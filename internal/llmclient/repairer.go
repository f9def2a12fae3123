package llmclient

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/api/schemas"
)

// Repairer asks the model for a corrected target given the visible elements.
// It does not judge the answer; the engine's guardrail does that.
type Repairer struct {
	llm         Completer
	temperature float32
	logger      *zap.Logger
}

var _ schemas.Repairer = (*Repairer)(nil)

// NewRepairer creates a repairer that samples at temperature.
func NewRepairer(logger *zap.Logger, llm Completer, temperature float32) *Repairer {
	return &Repairer{
		llm:         llm,
		temperature: temperature,
		logger:      logger.Named("repairer"),
	}
}

// Repair returns the model's suggestion for req. Transport and parse failures
// wrap schemas.ErrRepairUnavailable.
func (r *Repairer) Repair(ctx context.Context, req schemas.RepairRequest) (schemas.RepairSuggestion, error) {
	raw, err := r.llm.CompleteJSON(ctx, repairSystemPrompt, buildRepairPrompt(req), r.temperature)
	if err != nil {
		return schemas.RepairSuggestion{}, fmt.Errorf("%w: %w", schemas.ErrRepairUnavailable, err)
	}

	var s schemas.RepairSuggestion
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return schemas.RepairSuggestion{}, fmt.Errorf("%w: failed to parse repair JSON: %w", schemas.ErrRepairUnavailable, err)
	}
	if s.SuggestedAction == "" {
		s.SuggestedAction = req.Step.Action
	}
	s.SuggestedAction = s.SuggestedAction.Normalize()

	r.logger.Info("Repair suggestion received.",
		zap.String("target", s.Target),
		zap.String("reason", s.Reason),
		zap.String("confidence", string(s.Confidence)),
		zap.Bool("skip", s.Skip),
	)
	return s, nil
}
