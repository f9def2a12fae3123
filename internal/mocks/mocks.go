// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/xkilldash9x/uistate/api/schemas"
)

// -- Oracle Mocks --

// MockPlanner mocks the schemas.Planner interface.
type MockPlanner struct {
	mock.Mock
}

// Plan provides a mock function for plan generation.
func (m *MockPlanner) Plan(ctx context.Context, task string) (schemas.Plan, error) {
	select {
	case <-ctx.Done():
		return schemas.Plan{}, ctx.Err()
	default:
	}
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return schemas.Plan{}, args.Error(1)
	}
	return args.Get(0).(schemas.Plan), args.Error(1)
}

// MockRepairer mocks the schemas.Repairer interface.
type MockRepairer struct {
	mock.Mock
}

// Repair provides a mock function for repair suggestions.
func (m *MockRepairer) Repair(ctx context.Context, req schemas.RepairRequest) (schemas.RepairSuggestion, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return schemas.RepairSuggestion{}, args.Error(1)
	}
	return args.Get(0).(schemas.RepairSuggestion), args.Error(1)
}

// -- Store Mock --

// MockRunStore mocks the schemas.RunStore interface.
type MockRunStore struct {
	mock.Mock
}

func (m *MockRunStore) SaveRun(ctx context.Context, run schemas.RunRecord) error {
	return m.Called(ctx, run).Error(0)
}

func (m *MockRunStore) ListRuns(ctx context.Context, limit int) ([]schemas.RunRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.RunRecord), args.Error(1)
}

// -- Browser Mocks --

// MockStepExecutor mocks the engine.StepExecutor interface.
type MockStepExecutor struct {
	mock.Mock
}

func (m *MockStepExecutor) ExecuteStep(ctx context.Context, step schemas.PlanStep) error {
	return m.Called(ctx, step).Error(0)
}

func (m *MockStepExecutor) Click(ctx context.Context, target string) error {
	return m.Called(ctx, target).Error(0)
}

func (m *MockStepExecutor) Catalog(ctx context.Context, action schemas.Action) ([]schemas.ElementSummary, error) {
	args := m.Called(ctx, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.ElementSummary), args.Error(1)
}

// MockPage mocks the browser tab driven by the agent.
type MockPage struct {
	MockStepExecutor
}

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockPage) IsLoggedIn(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *MockPage) VerifySubmission(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *MockPage) OpenModalSelector(ctx context.Context) (string, bool) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1)
}

func (m *MockPage) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPage) Screenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockPage) ElementScreenshot(ctx context.Context, selector string) ([]byte, error) {
	args := m.Called(ctx, selector)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
