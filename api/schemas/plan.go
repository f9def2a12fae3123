package schemas

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// -- Plan Models --
// These types describe the structured plan produced by the planning oracle and
// the per-step results produced while executing it.

// Action is the kind of interaction a plan step performs.
type Action string

const (
	ActionNavigate    Action = "navigate"
	ActionClick       Action = "click"
	ActionType        Action = "type"
	ActionSelect      Action = "select"
	ActionWait        Action = "wait"
	ActionDiscover    Action = "discover"
	ActionFind        Action = "find"
	ActionExtractText Action = "extractText"
	ActionConditional Action = "conditional"
	ActionSkip        Action = "skip"
)

// SkippedTarget is the target written into a step that was turned into a no-op.
const SkippedTarget = "step-skipped"

// Normalize maps loosely cased oracle output ("Click", "extract_text") onto the known actions.
func (a Action) Normalize() Action {
	s := strings.ToLower(strings.TrimSpace(string(a)))
	s = strings.ReplaceAll(s, "_", "")
	switch s {
	case "extracttext":
		return ActionExtractText
	case "input", "fill":
		return ActionType
	case "option":
		return ActionSelect
	}
	return Action(s)
}

// PlanStep is a single instruction of a Plan. Action and Target may be rewritten
// during repair; the step's position in the plan never changes.
type PlanStep struct {
	Description   string `json:"description"`
	Action        Action `json:"action"`
	Target        string `json:"target,omitempty"`
	Value         string `json:"value,omitempty"`
	CaptureBefore bool   `json:"captureBefore,omitempty"`
	CaptureAfter  bool   `json:"captureAfter,omitempty"`
}

// IsSkip reports whether the step is a no-op.
func (s PlanStep) IsSkip() bool {
	return s.Action.Normalize() == ActionSkip
}

// AsSkipped returns a copy of the step rewritten into a no-op.
func (s PlanStep) AsSkipped() PlanStep {
	s.Action = ActionSkip
	s.Target = SkippedTarget
	return s
}

// Plan is the structured execution plan for a task.
type Plan struct {
	App         string     `json:"app"`
	TaskName    string     `json:"taskName"`
	Description string     `json:"description"`
	StartingURL string     `json:"startingUrl"`
	Steps       []PlanStep `json:"steps"`
}

// Clone returns a deep copy so filters never alias the caller's step slice.
func (p Plan) Clone() Plan {
	out := p
	out.Steps = append([]PlanStep(nil), p.Steps...)
	return out
}

// -- Step Outcomes --

// StepStatus is the terminal state of a step.
type StepStatus string

const (
	StepCommitted StepStatus = "committed"
	StepSkipped   StepStatus = "skipped"
	StepFailed    StepStatus = "failed"
)

// StepOutcome is produced once per step and never modified afterwards.
type StepOutcome struct {
	Description  string     `json:"description"`
	Status       StepStatus `json:"status"`
	AttemptsUsed int        `json:"attemptsUsed"`
	FinalAction  Action     `json:"finalAction"`
	FinalTarget  string     `json:"finalTarget"`
	Reason       string     `json:"reason,omitempty"`
	Err          error      `json:"-"`
}

// Succeeded reports whether the step committed.
func (o StepOutcome) Succeeded() bool {
	return o.Status == StepCommitted
}

// -- Repair Oracle Models --

// Confidence is the oracle's self-reported certainty.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// UnmarshalJSON accepts either the string form or a number in [0,1].
func (c *Confidence) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = Confidence(strings.ToLower(strings.TrimSpace(s)))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("confidence must be a string or number: %w", err)
	}
	switch {
	case f >= 0.75:
		*c = ConfidenceHigh
	case f >= 0.4:
		*c = ConfidenceMedium
	default:
		*c = ConfidenceLow
	}
	return nil
}

// RepairSuggestion is the repair oracle's structured answer.
type RepairSuggestion struct {
	SuggestedAction Action     `json:"suggestedAction"`
	Target          string     `json:"target"`
	Reason          string     `json:"reason"`
	Confidence      Confidence `json:"confidence"`
	Skip            bool       `json:"skip"`
}

// ElementKind groups catalog entries for the repair prompt.
type ElementKind string

const (
	ElementButton          ElementKind = "button"
	ElementLink            ElementKind = "link"
	ElementInput           ElementKind = "input"
	ElementContentEditable ElementKind = "contenteditable"
	ElementOption          ElementKind = "option"
)

// ElementSummary describes one visible interactive element.
type ElementSummary struct {
	Kind        ElementKind `json:"kind"`
	Text        string      `json:"text,omitempty"`
	AriaLabel   string      `json:"ariaLabel,omitempty"`
	ID          string      `json:"id,omitempty"`
	Name        string      `json:"name,omitempty"`
	Placeholder string      `json:"placeholder,omitempty"`
	Role        string      `json:"role,omitempty"`
	Href        string      `json:"href,omitempty"`
}

// RepairRequest carries the failed step context to the repair oracle.
type RepairRequest struct {
	Step     PlanStep         `json:"step"`
	Task     string           `json:"task"`
	Error    string           `json:"error,omitempty"`
	Elements []ElementSummary `json:"elements"`
}

// -- Capture Models --

// CapturedState is the record the capture collaborator returns for each screenshot.
type CapturedState struct {
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Kind        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Counter     int       `json:"counter"`
}

// RunRecord summarises one task execution.
type RunRecord struct {
	ID             string        `json:"id"`
	Task           string        `json:"task"`
	App            string        `json:"app"`
	TaskName       string        `json:"taskName"`
	StartedAt      time.Time     `json:"startedAt"`
	FinishedAt     time.Time     `json:"finishedAt"`
	Succeeded      bool          `json:"succeeded"`
	CapturedStates int           `json:"capturedStates"`
	DatasetPath    string        `json:"datasetPath"`
	Outcomes       []StepOutcome `json:"outcomes"`
	Error          string        `json:"error,omitempty"`
}
