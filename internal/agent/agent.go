// Package agent runs a natural-language task end to end: plan, sanitize, open
// the app, execute every step through the engine and save the captured states.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/api/schemas"
	"github.com/xkilldash9x/uistate/internal/browser"
	"github.com/xkilldash9x/uistate/internal/capture"
	"github.com/xkilldash9x/uistate/internal/config"
	"github.com/xkilldash9x/uistate/internal/engine"
	"github.com/xkilldash9x/uistate/internal/plan"
)

// Page is the browser tab the agent drives. *browser.Session implements it.
type Page interface {
	engine.StepExecutor
	capture.Page
	Navigate(ctx context.Context, url string) error
	IsLoggedIn(ctx context.Context) bool
	VerifySubmission(ctx context.Context) bool
	OpenModalSelector(ctx context.Context) (string, bool)
	Close(ctx context.Context) error
}

var _ Page = (*browser.Session)(nil)

// PageOpener opens a fresh tab for one task.
type PageOpener func(ctx context.Context) (Page, error)

// LoginPrompt blocks until the user confirms they have signed in.
type LoginPrompt func(ctx context.Context) error

// ErrStepFailed is returned when a step exhausts its retry budget.
var ErrStepFailed = errors.New("step failed")

// Result summarises a finished task.
type Result struct {
	RunID          string
	Task           string
	Plan           schemas.Plan
	Outcomes       []schemas.StepOutcome
	CapturedStates []schemas.CapturedState
	DatasetPath    string
	Succeeded      bool
}

// Agent owns the collaborators for running tasks. Each call to Run uses its
// own tab; steps within a task run strictly in order.
type Agent struct {
	logger   *zap.Logger
	cfg      config.Config
	planner  schemas.Planner
	repairer schemas.Repairer
	open     PageOpener
	capturer *capture.Capturer
	dataset  *capture.Dataset
	store    schemas.RunStore
	login    LoginPrompt
	now      func() time.Time
}

// Option configures optional Agent collaborators.
type Option func(*Agent)

// WithStore persists a run record after every task.
func WithStore(s schemas.RunStore) Option {
	return func(a *Agent) { a.store = s }
}

// WithLoginPrompt replaces the prompt shown when the user is not signed in.
func WithLoginPrompt(p LoginPrompt) Option {
	return func(a *Agent) { a.login = p }
}

// New creates an Agent. repairer may be nil, in which case unresolved steps
// are skipped after the heuristics.
func New(logger *zap.Logger, cfg config.Config, planner schemas.Planner, repairer schemas.Repairer, open PageOpener, opts ...Option) *Agent {
	a := &Agent{
		logger:   logger.Named("agent"),
		cfg:      cfg,
		planner:  planner,
		repairer: repairer,
		open:     open,
		capturer: capture.NewCapturer(logger, cfg.Capture.ScreenshotDir),
		dataset:  capture.NewDataset(logger, cfg.Capture.DatasetDir),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes task. A failed step stops the task and is returned as an
// error wrapping ErrStepFailed; the run record is still persisted.
func (a *Agent) Run(ctx context.Context, task string) (Result, error) {
	res := Result{RunID: uuid.NewString(), Task: task}
	log := a.logger.With(zap.String("run_id", res.RunID))
	started := a.now()
	log.Info("Received task.", zap.String("task", task))

	err := a.run(ctx, log, task, &res)
	res.Succeeded = err == nil
	a.persist(log, res, started, err)
	return res, err
}

func (a *Agent) run(ctx context.Context, log *zap.Logger, task string, res *Result) error {
	p, err := a.planner.Plan(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to plan task: %w", err)
	}
	p = a.sanitize(log, p, task)
	res.Plan = p

	page, err := a.open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open browser page: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := page.Close(closeCtx); err != nil {
			log.Warn("Error closing browser page.", zap.Error(err))
		}
	}()

	a.capturer.Reset()
	if p.StartingURL != "" {
		if err := a.openApp(ctx, log, page, p.StartingURL, res); err != nil {
			return err
		}
	}

	runner := engine.NewRunner(a.logger, page, a.repairer, a.cfg.Engine)
	for i, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Info("Executing step.",
			zap.Int("index", i+1),
			zap.Int("total", len(p.Steps)),
			zap.String("description", step.Description),
			zap.String("action", string(step.Action)),
		)

		if step.CaptureBefore && !step.IsSkip() {
			a.capture(ctx, log, page, step.Description, capture.KindBefore, res)
		}

		outcome := runner.Run(ctx, task, step)
		res.Outcomes = append(res.Outcomes, outcome)

		switch outcome.Status {
		case schemas.StepFailed:
			cause := outcome.Err
			if cause == nil {
				cause = errors.New(outcome.Reason)
			}
			return fmt.Errorf("%w: step %d (%s): %w", ErrStepFailed, i+1, step.Description, cause)
		case schemas.StepSkipped:
			log.Info("Step skipped.", zap.Int("index", i+1), zap.String("reason", outcome.Reason))
		case schemas.StepCommitted:
			if step.CaptureAfter {
				a.capture(ctx, log, page, step.Description, capture.KindAfter, res)
				a.captureModal(ctx, log, page, step.Description, res)
			}
			if browser.IsSubmitStep(schemas.PlanStep{Action: outcome.FinalAction, Description: step.Description}) {
				page.VerifySubmission(ctx)
			}
		}

		if err := sleep(ctx, a.cfg.Engine.StepSettle); err != nil {
			return err
		}
	}

	a.capture(ctx, log, page, "final-state", capture.KindFinal, res)

	dir, err := a.dataset.Save(task, p, res.CapturedStates)
	if err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	res.DatasetPath = dir
	log.Info("Task completed.", zap.Int("captured_states", len(res.CapturedStates)), zap.String("dataset", dir))
	return nil
}

func (a *Agent) sanitize(log *zap.Logger, p schemas.Plan, task string) schemas.Plan {
	out, report := plan.Sanitize(p, task)
	for _, r := range report.Removed {
		log.Info("Removed plan step.", zap.String("description", r.Step.Description), zap.String("reason", r.Reason))
	}
	if report.StartingURLChanged() {
		log.Info("Rewrote login starting URL.", zap.String("from", report.OldStartingURL), zap.String("to", report.NewStartingURL))
	}
	return out
}

// openApp navigates to the starting URL and waits for a manual login when the
// page does not look signed in.
func (a *Agent) openApp(ctx context.Context, log *zap.Logger, page Page, url string, res *Result) error {
	log.Info("Opening starting URL.", zap.String("url", url))
	if err := page.Navigate(ctx, url); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	if !a.cfg.Browser.WaitForLogin || a.login == nil {
		return nil
	}
	if page.IsLoggedIn(ctx) {
		log.Info("Already signed in, continuing.")
		return nil
	}
	if err := a.login(ctx); err != nil {
		return fmt.Errorf("login prompt: %w", err)
	}
	a.capture(ctx, log, page, "logged-in-state", capture.KindAfterLogin, res)
	return nil
}

// capture records a state. A failed screenshot is logged and the task goes on.
func (a *Agent) capture(ctx context.Context, log *zap.Logger, page Page, description, kind string, res *Result) {
	st, err := a.capturer.Capture(ctx, page, description, kind)
	if err != nil {
		log.Warn("Could not capture UI state.", zap.String("description", description), zap.String("kind", kind), zap.Error(err))
		return
	}
	res.CapturedStates = append(res.CapturedStates, st)
}

// captureModal adds a cropped shot of the open dialog when enabled.
func (a *Agent) captureModal(ctx context.Context, log *zap.Logger, page Page, description string, res *Result) {
	if !a.cfg.Capture.ModalElements {
		return
	}
	sel, ok := page.OpenModalSelector(ctx)
	if !ok {
		return
	}
	st, err := a.capturer.CaptureElement(ctx, page, sel, description)
	if err != nil {
		log.Warn("Could not capture modal element.", zap.String("selector", sel), zap.Error(err))
		return
	}
	res.CapturedStates = append(res.CapturedStates, st)
}

func (a *Agent) persist(log *zap.Logger, res Result, started time.Time, runErr error) {
	if a.store == nil {
		return
	}
	rec := schemas.RunRecord{
		ID:             res.RunID,
		Task:           res.Task,
		App:            res.Plan.App,
		TaskName:       res.Plan.TaskName,
		StartedAt:      started,
		FinishedAt:     a.now(),
		Succeeded:      res.Succeeded,
		CapturedStates: len(res.CapturedStates),
		DatasetPath:    res.DatasetPath,
		Outcomes:       res.Outcomes,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	// The task context may already be canceled; the record is still worth keeping.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.store.SaveRun(ctx, rec); err != nil {
		log.Error("Failed to persist run record.", zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
