package llmclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/api/schemas"
	"github.com/xkilldash9x/uistate/internal/plan"
)

// completerFunc adapts a function to the Completer interface.
type completerFunc func(ctx context.Context, system, user string, temperature float32) (string, error)

func (f completerFunc) CompleteJSON(ctx context.Context, system, user string, temperature float32) (string, error) {
	return f(ctx, system, user, temperature)
}

func answer(content string, err error) completerFunc {
	return func(context.Context, string, string, float32) (string, error) { return content, err }
}

const linearPlanJSON = `{
  "app": "linear",
  "taskName": "create-project",
  "startingUrl": "https://app.linear.app",
  "steps": [
    {"description": "Open Linear", "action": "navigate", "target": "https://app.linear.app", "captureAfter": true},
    {"description": "Go to projects", "action": "navigate", "target": "Projects"},
    {"description": "Name the project", "action": "Type", "target": "Project name", "value": "Roadmap"}
  ]
}`

func TestPlanner_Plan(t *testing.T) {
	var prompt string
	var temp float32 = -1
	llm := completerFunc(func(_ context.Context, _, user string, temperature float32) (string, error) {
		prompt, temp = user, temperature
		return linearPlanJSON, nil
	})
	p := NewPlanner(zap.NewNop(), llm, 0)

	got, err := p.Plan(context.Background(), "How do I create a project in Linear?")
	require.NoError(t, err)

	assert.Contains(t, prompt, `Task: "How do I create a project in Linear?"`)
	assert.Equal(t, float32(0), temp)
	assert.Equal(t, "https://linear.app", got.StartingURL)
	assert.Equal(t, "How do I create a project in Linear?", got.Description)
	require.Len(t, got.Steps, 3)
	assert.Equal(t, schemas.ActionClick, got.Steps[1].Action, "navigate to a label becomes a click")
	assert.Equal(t, schemas.ActionType, got.Steps[2].Action)
}

func TestPlanner_FallsBack(t *testing.T) {
	testCases := []struct {
		name   string
		answer completerFunc
	}{
		{"oracle error", answer("", errors.New("connection refused"))},
		{"invalid JSON", answer("not json", nil)},
		{"no steps", answer(`{"app":"linear","steps":[]}`, nil)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger, logs := setupTestLogger(t)
			p := NewPlanner(logger, tc.answer, 0)

			got, err := p.Plan(context.Background(), "How do I create a page in Notion?")
			require.NoError(t, err)
			assert.Equal(t, "notion", got.App)
			assert.Equal(t, "generic-task", got.TaskName)
			assert.Equal(t, 1, logs.FilterMessage("Planning failed, using fallback plan.").Len())
		})
	}
}

func TestPlanner_NoFallbackForUnknownApp(t *testing.T) {
	p := NewPlanner(zap.NewNop(), answer("", errors.New("boom")), 0)

	_, err := p.Plan(context.Background(), "How do I archive a board in Trello?")
	assert.ErrorIs(t, err, plan.ErrNoFallback)
}

func TestPlanner_CanceledContextSkipsFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPlanner(zap.NewNop(), answer("", context.Canceled), 0)

	_, err := p.Plan(ctx, "create a project in Linear")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRepairer_Repair(t *testing.T) {
	req := schemas.RepairRequest{
		Step:  schemas.PlanStep{Description: "Type the title", Action: schemas.ActionType, Target: "Title"},
		Task:  "create an issue",
		Error: "no candidate found",
		Elements: []schemas.ElementSummary{
			{Kind: schemas.ElementInput, AriaLabel: "Issue title"},
			{Kind: schemas.ElementContentEditable, AriaLabel: "Description", Role: "textbox"},
		},
	}

	t.Run("numeric confidence and missing action", func(t *testing.T) {
		var prompt string
		llm := completerFunc(func(_ context.Context, _, user string, _ float32) (string, error) {
			prompt = user
			return `{"target":"[aria-label='Issue title']","reason":"label matches","confidence":0.9,"skip":false}`, nil
		})
		r := NewRepairer(zap.NewNop(), llm, 0.2)

		s, err := r.Repair(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, schemas.ActionType, s.SuggestedAction)
		assert.Equal(t, "[aria-label='Issue title']", s.Target)
		assert.Equal(t, schemas.ConfidenceHigh, s.Confidence)

		assert.Contains(t, prompt, "Target: Title")
		assert.Contains(t, prompt, "Input fields:\n  - Aria-label: \"Issue title\"")
		assert.Contains(t, prompt, "Contenteditable fields:")
		assert.Contains(t, prompt, `"suggestedAction": "type"`)
	})

	t.Run("skip with null target", func(t *testing.T) {
		r := NewRepairer(zap.NewNop(), answer(`{"suggestedAction":"Type","target":null,"reason":"no field","confidence":"LOW","skip":true}`, nil), 0.2)

		s, err := r.Repair(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, s.Skip)
		assert.Empty(t, s.Target)
		assert.Equal(t, schemas.ConfidenceLow, s.Confidence)
	})

	t.Run("transport error is unavailable", func(t *testing.T) {
		r := NewRepairer(zap.NewNop(), answer("", errors.New("timeout")), 0.2)
		_, err := r.Repair(context.Background(), req)
		assert.ErrorIs(t, err, schemas.ErrRepairUnavailable)
	})

	t.Run("garbage is unavailable", func(t *testing.T) {
		r := NewRepairer(zap.NewNop(), answer("[1,2", nil), 0.2)
		_, err := r.Repair(context.Background(), req)
		assert.ErrorIs(t, err, schemas.ErrRepairUnavailable)
	})
}

func TestRepairer_OverHTTP(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, `{"suggestedAction":"click","target":"text=Create issue","reason":"button","confidence":"high"}`, func(r chatRequest) { got = r })
	r := NewRepairer(zap.NewNop(), c, 0.2)

	s, err := r.Repair(context.Background(), schemas.RepairRequest{
		Step: schemas.PlanStep{Action: schemas.ActionClick, Target: "text=Create"},
	})
	require.NoError(t, err)
	assert.Equal(t, "text=Create issue", s.Target)
	assert.Equal(t, repairSystemPrompt, got.Messages[0].Content)
	assert.Contains(t, got.Messages[1].Content, "No relevant elements found")
}
