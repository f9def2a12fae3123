package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/api/schemas"
	"github.com/xkilldash9x/uistate/internal/config"
)

// StepExecutor is the browser surface the runner drives.
type StepExecutor interface {
	// ExecuteStep performs the step's action against the live page.
	ExecuteStep(ctx context.Context, step schemas.PlanStep) error
	// Click resolves and clicks a single target. Used for heuristic rewrites.
	Click(ctx context.Context, target string) error
	// Catalog lists the visible interactive elements relevant to action.
	Catalog(ctx context.Context, action schemas.Action) ([]schemas.ElementSummary, error)
}

var errNoRepairer = errors.New("no repair oracle configured")

// Runner executes plan steps through the retry and adaptation state machine.
// A Runner serves one task at a time; it holds no per-step state.
type Runner struct {
	logger   *zap.Logger
	exec     StepExecutor
	repairer schemas.Repairer
	policy   Policy
	cfg      config.EngineConfig
}

// NewRunner creates a Runner. repairer may be nil, in which case every step that
// reaches repair is skipped.
func NewRunner(logger *zap.Logger, exec StepExecutor, repairer schemas.Repairer, cfg config.EngineConfig) *Runner {
	return &Runner{
		logger:   logger.Named("engine"),
		exec:     exec,
		repairer: repairer,
		policy:   Policy{MaxRetries: cfg.MaxRetries},
		cfg:      cfg,
	}
}

// Run drives step to a terminal state and reports the outcome. task is the
// user's original request, forwarded to the repair oracle as context.
func (r *Runner) Run(ctx context.Context, task string, step schemas.PlanStep) schemas.StepOutcome {
	log := r.logger.With(zap.String("step", step.Description))
	a := Transition(NewAttempt(step), Start(), r.policy)

	for !a.State.Terminal() {
		var ev Event
		switch a.State {
		case StateDirectAttempt:
			if err := r.exec.ExecuteStep(ctx, a.Step); err != nil {
				log.Warn("Step attempt failed.",
					zap.Int("attempt", a.AttemptsUsed+1),
					zap.Int("max_attempts", r.policy.MaxRetries+1),
					zap.String("target", a.Step.Target),
					zap.Error(err))
				ev = ActionFailed(err)
			} else {
				ev = ActionSucceeded()
			}
		case StateHeuristicAlternative:
			ev = r.tryAlternatives(ctx, log, a.Step)
		case StateExternalRepair:
			ev = r.requestRepair(ctx, log, task, a)
		case StateValidated:
			ev = Validate()
		}

		next := Transition(a, ev, r.policy)
		log.Debug("Step transition.",
			zap.Stringer("from", a.State),
			zap.Stringer("to", next.State),
			zap.Int("attempts", next.AttemptsUsed))

		if a.State == StateValidated {
			r.logDecision(log, next)
			if next.State == StateDirectAttempt {
				_ = sleep(ctx, r.cfg.RetryDelay)
			}
		}
		a = next
	}

	out := a.Outcome()
	switch out.Status {
	case schemas.StepCommitted:
		log.Info("Step committed.", zap.Int("attempts", out.AttemptsUsed), zap.String("target", out.FinalTarget))
	case schemas.StepSkipped:
		log.Warn("Step skipped.", zap.String("reason", out.Reason), zap.Error(out.Err))
	default:
		log.Error("Step failed.", zap.Int("attempts", out.AttemptsUsed), zap.Error(out.Err))
	}
	return out
}

func (r *Runner) logDecision(log *zap.Logger, a Attempt) {
	fields := []zap.Field{
		zap.Stringer("verdict", a.Decision.Verdict),
		zap.String("reason", a.Decision.Reason),
		zap.String("original_target", a.Original.Target),
	}
	if a.Suggestion != nil {
		fields = append(fields,
			zap.String("suggested_target", a.Suggestion.Target),
			zap.String("confidence", string(a.Suggestion.Confidence)))
	}
	if a.Decision.Verdict == VerdictReject {
		log.Warn("Repair suggestion rejected.", fields...)
		return
	}
	log.Info("Repair suggestion reviewed.", fields...)
}

// tryAlternatives clicks the parent section when the step creates something,
// then walks the mechanical rewrites of the target.
func (r *Runner) tryAlternatives(ctx context.Context, log *zap.Logger, step schemas.PlanStep) Event {
	alts := Alternatives(step)

	if section, ok := ParentSection(step.Description); ok {
		if err := r.exec.Click(ctx, section); err == nil {
			log.Info("Navigated to parent section.", zap.String("section", section))
			_ = sleep(ctx, r.cfg.SectionSettle)
			alts = append([]string{step.Target}, alts...)
		} else {
			log.Debug("Parent section not reachable.", zap.String("section", section), zap.Error(err))
		}
	}

	for _, alt := range alts {
		if err := r.exec.Click(ctx, alt); err != nil {
			log.Debug("Alternative target failed.", zap.String("target", alt), zap.Error(err))
			continue
		}
		log.Info("Found alternative target.", zap.String("target", alt))
		rewritten := step
		rewritten.Target = alt
		return HeuristicSucceeded(rewritten)
	}
	return HeuristicsExhausted()
}

// requestRepair asks the oracle for a corrected step. The call is not retried.
func (r *Runner) requestRepair(ctx context.Context, log *zap.Logger, task string, a Attempt) Event {
	if r.repairer == nil {
		return RepairUnavailable(errNoRepairer)
	}

	elements, err := r.exec.Catalog(ctx, a.Step.Action)
	if err != nil {
		log.Warn("Could not build element catalog for repair.", zap.Error(err))
	}

	req := schemas.RepairRequest{Step: a.Step, Task: task, Elements: elements}
	if a.Err != nil {
		req.Error = a.Err.Error()
	}
	log.Info("Requesting repair suggestion.", zap.Int("elements", len(elements)))

	s, err := r.repairer.Repair(ctx, req)
	if err != nil {
		log.Warn("Repair oracle call failed.", zap.Error(err))
		return RepairUnavailable(err)
	}
	return RepairSuggested(s)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
