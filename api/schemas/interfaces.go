package schemas

import "context"

// Planner turns a natural-language task into a structured plan.
type Planner interface {
	Plan(ctx context.Context, task string) (Plan, error)
}

// Repairer suggests a corrected target for a step that could not be resolved.
type Repairer interface {
	Repair(ctx context.Context, req RepairRequest) (RepairSuggestion, error)
}

// RunStore persists run records.
type RunStore interface {
	SaveRun(ctx context.Context, run RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
