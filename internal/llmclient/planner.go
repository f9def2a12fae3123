package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/api/schemas"
	"github.com/xkilldash9x/uistate/internal/plan"
)

// Completer is the single call both oracles need from the chat client.
type Completer interface {
	CompleteJSON(ctx context.Context, system, user string, temperature float32) (string, error)
}

// Planner asks the model for a structured plan and falls back to a minimal
// plan when the answer is unusable.
type Planner struct {
	llm         Completer
	temperature float32
	logger      *zap.Logger
}

var _ schemas.Planner = (*Planner)(nil)

// NewPlanner creates a planner that samples at temperature.
func NewPlanner(logger *zap.Logger, llm Completer, temperature float32) *Planner {
	return &Planner{
		llm:         llm,
		temperature: temperature,
		logger:      logger.Named("planner"),
	}
}

// Plan returns a validated and normalized plan for task. The plan is not
// sanitized; callers apply plan.Sanitize so they can report what it removed.
func (p *Planner) Plan(ctx context.Context, task string) (schemas.Plan, error) {
	p.logger.Info("Requesting task plan.", zap.String("task", task))

	result, err := p.requestPlan(ctx, task)
	if err != nil {
		if ctx.Err() != nil {
			return schemas.Plan{}, ctx.Err()
		}
		p.logger.Warn("Planning failed, using fallback plan.", zap.Error(err))
		fallback, fbErr := plan.Fallback(task)
		if fbErr != nil {
			return schemas.Plan{}, errors.Join(err, fbErr)
		}
		result = fallback
	}

	result = plan.Normalize(result, task)
	p.logger.Info("Task plan ready.",
		zap.String("app", result.App),
		zap.String("task_name", result.TaskName),
		zap.String("starting_url", result.StartingURL),
		zap.Int("steps", len(result.Steps)),
	)
	return result, nil
}

func (p *Planner) requestPlan(ctx context.Context, task string) (schemas.Plan, error) {
	raw, err := p.llm.CompleteJSON(ctx, planSystemPrompt, buildPlanPrompt(task), p.temperature)
	if err != nil {
		return schemas.Plan{}, err
	}
	var result schemas.Plan
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return schemas.Plan{}, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	if err := plan.Validate(result); err != nil {
		return schemas.Plan{}, err
	}
	return result, nil
}
