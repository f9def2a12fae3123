// Package engine drives a single plan step through direct execution, heuristic
// rewrites and oracle-assisted repair until it is committed, skipped or failed.
//
// The control flow is an explicit state machine. Transition is pure: it takes an
// immutable Attempt record and an Event and returns a new record, so every branch
// (the repair guardrail in particular) can be tested without a browser.
package engine

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/uistate/api/schemas"
)

// State is a position in the step lifecycle.
type State int

const (
	StatePending State = iota
	StateDirectAttempt
	StateHeuristicAlternative
	StateExternalRepair
	StateValidated
	StateCommitted
	StateSkipped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateDirectAttempt:
		return "direct_attempt"
	case StateHeuristicAlternative:
		return "heuristic_alternative"
	case StateExternalRepair:
		return "external_repair"
	case StateValidated:
		return "validated"
	case StateCommitted:
		return "committed"
	case StateSkipped:
		return "skipped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further events are accepted.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateSkipped || s == StateFailed
}

// EventKind identifies what just happened to an attempt.
type EventKind int

const (
	EventStart EventKind = iota
	EventActionSucceeded
	EventActionFailed
	EventHeuristicSucceeded
	EventHeuristicsExhausted
	EventRepairSuggested
	EventRepairUnavailable
	EventValidate
)

// Event is the input to Transition. Only the fields relevant to Kind are read.
type Event struct {
	Kind       EventKind
	Step       schemas.PlanStep
	Suggestion schemas.RepairSuggestion
	Err        error
}

func Start() Event { return Event{Kind: EventStart} }
func ActionSucceeded() Event { return Event{Kind: EventActionSucceeded} }
func ActionFailed(err error) Event { return Event{Kind: EventActionFailed, Err: err} }
func HeuristicsExhausted() Event { return Event{Kind: EventHeuristicsExhausted} }
func Validate() Event { return Event{Kind: EventValidate} }
func RepairUnavailable(err error) Event { return Event{Kind: EventRepairUnavailable, Err: err} }

// HeuristicSucceeded records the rewritten step that worked.
func HeuristicSucceeded(step schemas.PlanStep) Event {
	return Event{Kind: EventHeuristicSucceeded, Step: step}
}

// RepairSuggested carries the oracle's answer into validation.
func RepairSuggested(s schemas.RepairSuggestion) Event {
	return Event{Kind: EventRepairSuggested, Suggestion: s}
}

// Policy bounds the retry loop.
type Policy struct {
	// MaxRetries is the number of retries after the first direct attempt.
	MaxRetries int
}

// ErrInvalidTransition is set on an attempt that received an event its state
// does not accept.
var ErrInvalidTransition = errors.New("invalid state transition")

// Attempt is the immutable record of one step's progress. Transition never
// modifies its input; callers keep the returned value.
type Attempt struct {
	State State
	// Step is the step as it will next be executed, after any rewrites.
	Step schemas.PlanStep
	// Original is the step as planned. The guardrail always compares against it.
	Original     schemas.PlanStep
	Retries      int
	AttemptsUsed int
	Suggestion   *schemas.RepairSuggestion
	Decision     Decision
	Err          error
	Note         string
}

// NewAttempt starts the lifecycle for step.
func NewAttempt(step schemas.PlanStep) Attempt {
	return Attempt{State: StatePending, Step: step, Original: step}
}

// Transition is the pure state transition function.
func Transition(a Attempt, ev Event, p Policy) Attempt {
	if a.State.Terminal() {
		return a
	}
	next := a

	switch {
	case a.State == StatePending && ev.Kind == EventStart:
		if a.Step.IsSkip() {
			next.State = StateSkipped
			next.Step = a.Step.AsSkipped()
			next.Note = "step is marked skip"
			return next
		}
		next.State = StateDirectAttempt

	case a.State == StateDirectAttempt && ev.Kind == EventActionSucceeded:
		next.AttemptsUsed++
		next.State = StateCommitted
		next.Err = nil

	case a.State == StateDirectAttempt && ev.Kind == EventActionFailed:
		next.AttemptsUsed++
		next.Err = ev.Err
		if a.Retries >= p.MaxRetries {
			next.State = StateFailed
			next.Err = fmt.Errorf("step %q failed after %d attempts: %w", a.Original.Description, next.AttemptsUsed, ev.Err)
			return next
		}
		next.Retries++
		if next.Retries == 1 && a.Step.Action.Normalize() == schemas.ActionClick {
			next.State = StateHeuristicAlternative
		} else {
			next.State = StateExternalRepair
		}

	case a.State == StateHeuristicAlternative && ev.Kind == EventHeuristicSucceeded:
		next.AttemptsUsed++
		next.Step = ev.Step
		next.State = StateCommitted
		next.Err = nil
		next.Note = "heuristic alternative " + ev.Step.Target

	case a.State == StateHeuristicAlternative && ev.Kind == EventHeuristicsExhausted:
		next.State = StateExternalRepair

	case a.State == StateExternalRepair && ev.Kind == EventRepairSuggested:
		s := ev.Suggestion
		next.Suggestion = &s
		next.State = StateValidated

	case a.State == StateExternalRepair && ev.Kind == EventRepairUnavailable:
		next.State = StateSkipped
		next.Step = a.Step.AsSkipped()
		next.Err = fmt.Errorf("%w: %v", schemas.ErrRepairUnavailable, ev.Err)
		next.Note = "repair oracle unavailable"

	case a.State == StateValidated && ev.Kind == EventValidate:
		return applyDecision(next)

	default:
		next.State = StateFailed
		next.Err = fmt.Errorf("%w: %s on %s", ErrInvalidTransition, eventName(ev.Kind), a.State)
	}
	return next
}

// applyDecision runs the guardrail on the pending suggestion.
func applyDecision(a Attempt) Attempt {
	var s schemas.RepairSuggestion
	if a.Suggestion != nil {
		s = *a.Suggestion
	}
	d := ValidateSuggestion(a.Original.Target, s)
	a.Decision = d

	switch d.Verdict {
	case VerdictAccept:
		step := a.Step
		if act := s.SuggestedAction.Normalize(); act != "" && act != schemas.ActionSkip {
			step.Action = act
		}
		step.Target = s.Target
		a.Step = step
		a.State = StateDirectAttempt
		a.Note = d.Reason
	case VerdictSkip:
		a.Step = a.Step.AsSkipped()
		a.State = StateSkipped
		a.Err = nil
		a.Note = d.Reason
	default:
		a.Step = a.Step.AsSkipped()
		a.State = StateSkipped
		a.Err = fmt.Errorf("%w: %s", schemas.ErrRepairRejected, d.Reason)
		a.Note = d.Reason
	}
	return a
}

func eventName(k EventKind) string {
	switch k {
	case EventStart:
		return "start"
	case EventActionSucceeded:
		return "action_succeeded"
	case EventActionFailed:
		return "action_failed"
	case EventHeuristicSucceeded:
		return "heuristic_succeeded"
	case EventHeuristicsExhausted:
		return "heuristics_exhausted"
	case EventRepairSuggested:
		return "repair_suggested"
	case EventRepairUnavailable:
		return "repair_unavailable"
	case EventValidate:
		return "validate"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Outcome converts a terminal attempt into the step's reported outcome.
func (a Attempt) Outcome() schemas.StepOutcome {
	o := schemas.StepOutcome{
		Description:  a.Original.Description,
		AttemptsUsed: a.AttemptsUsed,
		FinalAction:  a.Step.Action,
		FinalTarget:  a.Step.Target,
		Reason:       a.Note,
		Err:          a.Err,
	}
	switch a.State {
	case StateCommitted:
		o.Status = schemas.StepCommitted
	case StateSkipped:
		o.Status = schemas.StepSkipped
	default:
		o.Status = schemas.StepFailed
	}
	return o
}
