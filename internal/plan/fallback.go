package plan

import (
	"errors"
	"strings"

	"github.com/xkilldash9x/uistate/api/schemas"
)

// ErrNoFallback is returned when no minimal plan is known for the task's app.
var ErrNoFallback = errors.New("could not create task plan; provide a task that names a supported app")

type fallbackApp struct {
	keyword string
	app     string
	url     string
	label   string
}

var fallbackApps = []fallbackApp{
	{"linear", "linear", "https://linear.app", "Linear"},
	{"notion", "notion", "https://www.notion.so", "Notion"},
}

// Fallback builds a minimal plan that opens the app named in the task and
// captures its landing page. Used when the planning oracle fails.
func Fallback(task string) (schemas.Plan, error) {
	lower := strings.ToLower(task)
	for _, f := range fallbackApps {
		if !strings.Contains(lower, f.keyword) {
			continue
		}
		return schemas.Plan{
			App:         f.app,
			TaskName:    "generic-task",
			Description: task,
			StartingURL: f.url,
			Steps: []schemas.PlanStep{
				{Description: "Navigate to " + f.label, Action: schemas.ActionNavigate, Target: f.url, CaptureAfter: true},
				{Description: "Wait for page load", Action: schemas.ActionWait, Target: "body"},
			},
		}, nil
	}
	return schemas.Plan{}, ErrNoFallback
}
