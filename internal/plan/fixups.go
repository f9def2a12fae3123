package plan

import (
	"errors"
	"strings"

	"github.com/xkilldash9x/uistate/api/schemas"
)

// ErrEmptyPlan is returned by Validate for a plan without steps.
var ErrEmptyPlan = errors.New("invalid task plan: no steps defined")

// Validate checks the minimum the executor needs.
func Validate(p schemas.Plan) error {
	if len(p.Steps) == 0 {
		return ErrEmptyPlan
	}
	return nil
}

// FixURL repairs URLs the planner commonly gets wrong.
func FixURL(url, task string) string {
	url = strings.TrimSpace(url)
	url = strings.ReplaceAll(url, "app.linear.app", "linear.app")
	if strings.HasPrefix(url, "/") && strings.Contains(strings.ToLower(task), "linear") {
		url = "https://linear.app" + url
	}
	return url
}

var selectorPrefixes = []string{"text=", "css=", "xpath=", "#", ".", "[", "button:", "a:", "input:", "select:"}

// IsSelectorNotURL reports whether a navigate target is really an element
// selector ("Projects", "text=Settings") rather than a URL.
func IsSelectorNotURL(target string) bool {
	t := strings.TrimSpace(target)
	if t == "" {
		return false
	}
	if strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://") || strings.HasPrefix(t, "/") {
		return false
	}
	for _, p := range selectorPrefixes {
		if strings.HasPrefix(t, p) {
			return true
		}
	}
	if strings.Contains(t, " ") {
		return true
	}
	words := strings.Fields(t)
	return len(words) <= 3 && !strings.Contains(words[0], ".")
}

// Normalize canonicalises action names, fixes URLs and turns navigate steps
// that point at an element into clicks.
func Normalize(p schemas.Plan, task string) schemas.Plan {
	out := p.Clone()
	if out.StartingURL != "" {
		out.StartingURL = FixURL(out.StartingURL, task)
	}
	if out.Description == "" {
		out.Description = task
	}
	for i := range out.Steps {
		step := &out.Steps[i]
		step.Action = step.Action.Normalize()
		if step.Action != schemas.ActionNavigate || step.Target == "" {
			continue
		}
		if IsSelectorNotURL(step.Target) {
			step.Action = schemas.ActionClick
			continue
		}
		step.Target = FixURL(step.Target, task)
	}
	return out
}
