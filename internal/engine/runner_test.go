package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/api/schemas"
	"github.com/xkilldash9x/uistate/internal/config"
	"github.com/xkilldash9x/uistate/internal/mocks"
)

const testTask = "Create an issue titled Fix login in Linear"

func newTestRunner(exec *mocks.MockStepExecutor, repairer schemas.Repairer) *Runner {
	return NewRunner(zap.NewNop(), exec, repairer, config.EngineConfig{MaxRetries: 2})
}

func targetIs(target string) interface{} {
	return mock.MatchedBy(func(s schemas.PlanStep) bool { return s.Target == target })
}

func TestRun_DirectSuccess(t *testing.T) {
	exec := new(mocks.MockStepExecutor)
	repairer := new(mocks.MockRepairer)
	exec.On("ExecuteStep", mock.Anything, mock.Anything).Return(nil).Once()

	out := newTestRunner(exec, repairer).Run(context.Background(), testTask, clickStep("text=Save"))

	assert.True(t, out.Succeeded())
	assert.Equal(t, 1, out.AttemptsUsed)
	exec.AssertExpectations(t)
	repairer.AssertNotCalled(t, "Repair", mock.Anything, mock.Anything)
}

func TestRun_HeuristicQuoteNormalizationCommits(t *testing.T) {
	exec := new(mocks.MockStepExecutor)
	repairer := new(mocks.MockRepairer)
	step := schemas.PlanStep{Description: "Open the backlog view", Action: schemas.ActionClick, Target: "text='Backlog'"}

	exec.On("ExecuteStep", mock.Anything, targetIs("text='Backlog'")).Return(errors.New("no element")).Once()
	exec.On("Click", mock.Anything, `text="Backlog"`).Return(nil).Once()

	out := newTestRunner(exec, repairer).Run(context.Background(), testTask, step)

	assert.Equal(t, schemas.StepCommitted, out.Status)
	assert.Equal(t, 2, out.AttemptsUsed)
	assert.Equal(t, `text="Backlog"`, out.FinalTarget)
	exec.AssertExpectations(t)
	repairer.AssertNotCalled(t, "Repair", mock.Anything, mock.Anything)
	exec.AssertNotCalled(t, "Catalog", mock.Anything, mock.Anything)
}

func TestRun_ParentSectionThenOriginalTarget(t *testing.T) {
	exec := new(mocks.MockStepExecutor)
	step := schemas.PlanStep{Description: "Create a new project", Action: schemas.ActionClick, Target: "New project"}

	exec.On("ExecuteStep", mock.Anything, mock.Anything).Return(errors.New("not on this page")).Once()
	exec.On("Click", mock.Anything, "text=Projects").Return(nil).Once()
	exec.On("Click", mock.Anything, "New project").Return(nil).Once()

	out := newTestRunner(exec, nil).Run(context.Background(), testTask, step)

	assert.True(t, out.Succeeded())
	assert.Equal(t, "New project", out.FinalTarget)
	exec.AssertExpectations(t)
}

func TestRun_MismatchedRepairIsSkipped(t *testing.T) {
	exec := new(mocks.MockStepExecutor)
	repairer := new(mocks.MockRepairer)
	step := typeStep("Assignee", "me")
	catalog := []schemas.ElementSummary{{Kind: schemas.ElementInput, AriaLabel: "Description"}}

	exec.On("ExecuteStep", mock.Anything, mock.Anything).Return(errors.New("no field")).Once()
	exec.On("Catalog", mock.Anything, schemas.ActionType).Return(catalog, nil).Once()
	repairer.On("Repair", mock.Anything, mock.MatchedBy(func(r schemas.RepairRequest) bool {
		return r.Task == testTask && r.Step.Target == "Assignee" && r.Error == "no field" && len(r.Elements) == 1
	})).Return(schemas.RepairSuggestion{Target: "Description", Confidence: schemas.ConfidenceHigh}, nil).Once()

	out := newTestRunner(exec, repairer).Run(context.Background(), testTask, step)

	assert.Equal(t, schemas.StepSkipped, out.Status)
	assert.ErrorIs(t, out.Err, schemas.ErrRepairRejected)
	assert.Equal(t, schemas.ActionSkip, out.FinalAction)
	exec.AssertNumberOfCalls(t, "ExecuteStep", 1)
	exec.AssertExpectations(t)
	repairer.AssertExpectations(t)
}

func TestRun_OracleErrorIsSkipped(t *testing.T) {
	exec := new(mocks.MockStepExecutor)
	repairer := new(mocks.MockRepairer)

	exec.On("ExecuteStep", mock.Anything, mock.Anything).Return(errors.New("no field")).Once()
	exec.On("Catalog", mock.Anything, mock.Anything).Return(nil, errors.New("page closed")).Once()
	repairer.On("Repair", mock.Anything, mock.Anything).Return(nil, errors.New("429 too many requests")).Once()

	out := newTestRunner(exec, repairer).Run(context.Background(), testTask, typeStep("Title", "x"))

	assert.Equal(t, schemas.StepSkipped, out.Status)
	assert.ErrorIs(t, out.Err, schemas.ErrRepairUnavailable)
}

func TestRun_NoRepairerSkips(t *testing.T) {
	exec := new(mocks.MockStepExecutor)
	exec.On("ExecuteStep", mock.Anything, mock.Anything).Return(errors.New("no field")).Once()

	out := newTestRunner(exec, nil).Run(context.Background(), testTask, typeStep("Title", "x"))

	assert.Equal(t, schemas.StepSkipped, out.Status)
	assert.ErrorIs(t, out.Err, schemas.ErrRepairUnavailable)
}

func TestRun_AcceptedRepairCommits(t *testing.T) {
	exec := new(mocks.MockStepExecutor)
	repairer := new(mocks.MockRepairer)

	exec.On("ExecuteStep", mock.Anything, targetIs("Title")).Return(errors.New("no field")).Once()
	exec.On("ExecuteStep", mock.Anything, targetIs("Issue title")).Return(nil).Once()
	exec.On("Catalog", mock.Anything, schemas.ActionType).Return([]schemas.ElementSummary{}, nil).Once()
	repairer.On("Repair", mock.Anything, mock.Anything).
		Return(schemas.RepairSuggestion{SuggestedAction: "type", Target: "Issue title"}, nil).Once()

	out := newTestRunner(exec, repairer).Run(context.Background(), testTask, typeStep("Title", "Fix login"))

	assert.True(t, out.Succeeded())
	assert.Equal(t, 2, out.AttemptsUsed)
	assert.Equal(t, "Issue title", out.FinalTarget)
	exec.AssertExpectations(t)
}

func TestRun_ExhaustionFails(t *testing.T) {
	exec := new(mocks.MockStepExecutor)
	repairer := new(mocks.MockRepairer)

	exec.On("ExecuteStep", mock.Anything, mock.Anything).Return(errors.New("still missing"))
	exec.On("Click", mock.Anything, mock.Anything).Return(errors.New("still missing"))
	exec.On("Catalog", mock.Anything, mock.Anything).Return([]schemas.ElementSummary{}, nil)
	repairer.On("Repair", mock.Anything, mock.Anything).Return(schemas.RepairSuggestion{Target: "Create issue"}, nil)

	out := newTestRunner(exec, repairer).Run(context.Background(), testTask, clickStep("text=Create"))

	assert.Equal(t, schemas.StepFailed, out.Status)
	assert.Equal(t, 3, out.AttemptsUsed)
	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "after 3 attempts")
	exec.AssertNumberOfCalls(t, "ExecuteStep", 3)
	repairer.AssertNumberOfCalls(t, "Repair", 2)
}
