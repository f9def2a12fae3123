// Package plan cleans up plans produced by the planning oracle before they are
// executed: URL fixes, login-step removal and optional-field filtering.
//
// Everything here is a pure function of its inputs. Filters only ever remove
// steps; they never add or reorder them.
package plan

import (
	"regexp"
	"strings"

	"github.com/xkilldash9x/uistate/api/schemas"
	"github.com/xkilldash9x/uistate/internal/target"
)

// Removal records a step dropped by a filter.
type Removal struct {
	Step   schemas.PlanStep
	Reason string
}

// Report describes what Sanitize changed.
type Report struct {
	Removed        []Removal
	OldStartingURL string
	NewStartingURL string
}

// StartingURLChanged reports whether the starting URL was rewritten.
func (r Report) StartingURLChanged() bool {
	return r.OldStartingURL != r.NewStartingURL
}

// Sanitize removes login steps and steps about optional fields the task never
// mentions. Running it on its own output changes nothing.
func Sanitize(p schemas.Plan, task string) (schemas.Plan, Report) {
	out, report := FilterLoginSteps(p)
	out, removed := FilterUnmentionedSteps(out, task)
	report.Removed = append(report.Removed, removed...)
	return out, report
}

var loginKeywords = []string{"login", "sign in", "signin", "authenticate", "log in"}

// FilterLoginSteps drops steps that try to authenticate and points a login
// starting URL at the application itself. The user is expected to be signed in.
func FilterLoginSteps(p schemas.Plan) (schemas.Plan, Report) {
	out := p.Clone()
	report := Report{OldStartingURL: p.StartingURL, NewStartingURL: p.StartingURL}

	kept := out.Steps[:0]
	for _, step := range out.Steps {
		desc := strings.ToLower(step.Description)
		tgt := strings.ToLower(step.Target)
		if containsAny(desc, loginKeywords) || containsAny(tgt, loginKeywords) {
			report.Removed = append(report.Removed, Removal{Step: step, Reason: "login step"})
			continue
		}
		kept = append(kept, step)
	}
	out.Steps = kept

	lowerURL := strings.ToLower(out.StartingURL)
	if strings.Contains(lowerURL, "login") || strings.Contains(lowerURL, "signin") {
		switch strings.ToLower(out.App) {
		case "linear":
			out.StartingURL = "https://linear.app/projects"
		case "notion":
			out.StartingURL = "https://www.notion.so"
		default:
			out.StartingURL = strings.NewReplacer("/login", "", "/signin", "").Replace(out.StartingURL)
		}
		report.NewStartingURL = out.StartingURL
	}
	return out, report
}

// optionalField is a form field most tasks do not ask for. A step about it is
// kept only when the task text mentions one of its keywords.
type optionalField struct {
	name     string
	keywords []string
}

var optionalFields = []optionalField{
	{"status", []string{"status", "set status", "change status"}},
	{"label", []string{"label", "labels", "add label", "tag"}},
	{"due date", []string{"due date", "due", "deadline"}},
	{"milestone", []string{"milestone"}},
}

var (
	userAssignmentPhrases = []string{
		"assign to", "assign to a", "assign to user", "assign to me",
		"assignee", "assigned to", "user assignment",
	}
	// "assign it as high priority" is about priority, not a person.
	nonUserAssignmentPhrases = []string{"assign it as", "assign as", "assign priority", "assign status"}
)

// MentionsUserAssignment reports whether the task asks to assign work to a person.
func MentionsUserAssignment(task string) bool {
	t := strings.ToLower(task)
	return containsAny(t, userAssignmentPhrases) && !containsAny(t, nonUserAssignmentPhrases)
}

// FilterUnmentionedSteps drops steps about optional fields the task does not
// reference.
func FilterUnmentionedSteps(p schemas.Plan, task string) (schemas.Plan, []Removal) {
	out := p.Clone()
	taskLower := strings.ToLower(task)
	userAssignment := MentionsUserAssignment(task)

	var removed []Removal
	kept := out.Steps[:0]
	for _, step := range out.Steps {
		texts := stepTexts(step)

		if isUserAssignmentStep(texts) && !userAssignment {
			removed = append(removed, Removal{Step: step, Reason: "task does not mention user assignment"})
			continue
		}

		drop := ""
		for _, f := range optionalFields {
			if aboutField(texts, f) && !mentionsAnyWord(taskLower, f.keywords) {
				drop = "task does not mention " + f.name
				break
			}
		}
		if drop != "" {
			removed = append(removed, Removal{Step: step, Reason: drop})
			continue
		}
		kept = append(kept, step)
	}
	out.Steps = kept
	return out, removed
}

// stepTexts returns the lower-cased description, target text and value of a
// step. Selector syntax is stripped from the target so "[aria-label=...]" does
// not read as a step about labels.
func stepTexts(step schemas.PlanStep) []string {
	tgt := ""
	if strings.TrimSpace(step.Target) != "" {
		tgt = target.Parse(step.Target).Lower()
	}
	return []string{
		strings.ToLower(step.Description),
		tgt,
		strings.ToLower(step.Value),
	}
}

func isUserAssignmentStep(texts []string) bool {
	for _, t := range texts {
		if strings.Contains(t, "assignee") || (strings.Contains(t, "assign") && strings.Contains(t, "user")) {
			return true
		}
	}
	return false
}

func aboutField(texts []string, f optionalField) bool {
	for _, t := range texts {
		if mentionsAnyWord(t, append([]string{f.name}, f.keywords...)) {
			return true
		}
	}
	return false
}

var wordPatterns = map[string]*regexp.Regexp{}

func init() {
	for _, f := range optionalFields {
		for _, kw := range append([]string{f.name}, f.keywords...) {
			wordPatterns[kw] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
		}
	}
}

// mentionsAnyWord matches keywords on word boundaries so "tag" does not fire
// on "stage" and "due" does not fire on "procedure".
func mentionsAnyWord(s string, keywords []string) bool {
	for _, kw := range keywords {
		re, ok := wordPatterns[kw]
		if !ok {
			re = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
		}
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
