package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionNormalize(t *testing.T) {
	testCases := []struct {
		in   Action
		want Action
	}{
		{"Click", ActionClick},
		{" navigate ", ActionNavigate},
		{"extract_text", ActionExtractText},
		{"extractText", ActionExtractText},
		{"fill", ActionType},
		{"SKIP", ActionSkip},
	}
	for _, tc := range testCases {
		t.Run(string(tc.in), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.Normalize())
		})
	}
}

func TestPlanDecoding(t *testing.T) {
	raw := `{
		"app": "linear",
		"taskName": "create-project",
		"startingUrl": "https://linear.app",
		"steps": [
			{"description": "Open form", "action": "click", "target": "text=New project", "captureAfter": true},
			{"description": "Name it", "action": "type", "target": "Title", "value": "Roadmap"}
		]
	}`
	var p Plan
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	require.Len(t, p.Steps, 2)
	assert.Equal(t, ActionClick, p.Steps[0].Action)
	assert.True(t, p.Steps[0].CaptureAfter)
	assert.Equal(t, "Roadmap", p.Steps[1].Value)
}

func TestPlanClone(t *testing.T) {
	p := Plan{Steps: []PlanStep{{Description: "a"}}}
	c := p.Clone()
	c.Steps[0].Description = "b"
	assert.Equal(t, "a", p.Steps[0].Description, "clone must not alias the original steps")
}

func TestAsSkipped(t *testing.T) {
	s := PlanStep{Description: "Set assignee", Action: ActionClick, Target: "Assignee", CaptureAfter: true}
	skipped := s.AsSkipped()
	assert.True(t, skipped.IsSkip())
	assert.Equal(t, SkippedTarget, skipped.Target)
	assert.Equal(t, ActionClick, s.Action, "original is left untouched")
}

func TestRepairSuggestionConfidence(t *testing.T) {
	t.Run("string form", func(t *testing.T) {
		var s RepairSuggestion
		require.NoError(t, json.Unmarshal([]byte(`{"target":"Issue title","confidence":"High"}`), &s))
		assert.Equal(t, ConfidenceHigh, s.Confidence)
	})

	t.Run("numeric form", func(t *testing.T) {
		var s RepairSuggestion
		require.NoError(t, json.Unmarshal([]byte(`{"target":"x","confidence":0.5}`), &s))
		assert.Equal(t, ConfidenceMedium, s.Confidence)
	})

	t.Run("null target", func(t *testing.T) {
		var s RepairSuggestion
		require.NoError(t, json.Unmarshal([]byte(`{"target":null,"skip":true}`), &s))
		assert.Empty(t, s.Target)
		assert.True(t, s.Skip)
	})
}
