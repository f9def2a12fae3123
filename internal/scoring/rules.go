package scoring

import (
	"regexp"
	"strings"

	"github.com/xkilldash9x/uistate/internal/target"
)

// tier is one row of a match table. Tables are evaluated top to bottom and the
// first tier whose predicate holds sets the base score.
type tier struct {
	reason MatchReason
	base   int
	match  func(want string, c Candidate) bool
}

// adjustment is a named additive rule applied after a tier admitted a candidate.
type adjustment struct {
	name    string
	delta   int
	applies func(d target.Descriptor, value string, c Candidate) bool
}

// disqualifier removes a candidate from the action pool regardless of its score.
type disqualifier struct {
	name    string
	applies func(c Candidate) bool
}

// evaluate runs a tier table against a candidate.
func evaluate(table []tier, want string, c Candidate) (int, MatchReason, bool) {
	for _, t := range table {
		if t.match(want, c) {
			return t.base, t.reason, true
		}
	}
	return 0, ReasonUnmatched, false
}

// adjust applies every matching adjustment and records which ones fired.
func adjust(rules []adjustment, d target.Descriptor, value string, s *Scored) {
	for _, r := range rules {
		if r.applies(d, value, s.Candidate) {
			s.Score += r.delta
			s.Rules = append(s.Rules, r.name)
		}
	}
}

func disqualifiedBy(rules []disqualifier, c Candidate) (string, bool) {
	for _, r := range rules {
		if r.applies(c) {
			return r.name, true
		}
	}
	return "", false
}

// labels returns the non-empty lower-cased readable labels of c.
func labels(c Candidate) []string {
	var out []string
	if t := c.lowerText(); t != "" {
		out = append(out, t)
	}
	if a := c.lowerAria(); a != "" {
		out = append(out, a)
	}
	return out
}

func anyLabel(c Candidate, fn func(label string) bool) bool {
	for _, l := range labels(c) {
		if fn(l) {
			return true
		}
	}
	return false
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// textTiers rank the visible text or accessible label of a clickable.
var textTiers = []tier{
	{ReasonExact, 100, func(want string, c Candidate) bool {
		return anyLabel(c, func(l string) bool { return l == want })
	}},
	{ReasonWordPrefix, 80, func(want string, c Candidate) bool {
		return strings.HasPrefix(c.lowerText(), want+" ")
	}},
	{ReasonPrefix, 60, func(want string, c Candidate) bool {
		return strings.HasPrefix(c.lowerText(), want)
	}},
	{ReasonSharedWords, 50, func(want string, c Candidate) bool {
		return anyLabel(c, func(l string) bool { return target.SharesSignificantWords(want, l) })
	}},
	{ReasonContains, 40, func(want string, c Candidate) bool {
		return anyLabel(c, func(l string) bool { return containsEither(l, want) })
	}},
}

// ariaTiers are used when the target itself is an accessible-label selector; only
// the accessible label is consulted.
var ariaTiers = []tier{
	{ReasonExact, 100, func(want string, c Candidate) bool {
		return c.lowerAria() == want
	}},
	{ReasonPrefix, 80, func(want string, c Candidate) bool {
		return strings.HasPrefix(c.lowerAria(), want)
	}},
	{ReasonLabelPrefix, 75, func(want string, c Candidate) bool {
		a := c.lowerAria()
		return a != "" && strings.HasPrefix(want, a)
	}},
	{ReasonSharedWords, 60, func(want string, c Candidate) bool {
		return target.SharesSignificantWords(want, c.lowerAria())
	}},
	{ReasonContains, 40, func(want string, c Candidate) bool {
		return containsEither(c.lowerAria(), want)
	}},
}

// shortMoreLabel matches "More", "Create more", "Show more options" and similar.
func shortMoreLabel(label string) bool {
	return strings.Contains(label, "more") && len(strings.Fields(label)) <= 3
}

var clickDisqualifiers = []disqualifier{
	{"more-label", func(c Candidate) bool {
		return anyLabel(c, shortMoreLabel)
	}},
	{"toggle-identifier", func(c Candidate) bool {
		return containsAny(c.lowerID(), "toggle", "more") || containsAny(c.lowerClass(), "toggle", "more")
	}},
	{"checkbox-control", func(c Candidate) bool {
		t := strings.ToLower(c.InputType)
		r := strings.ToLower(c.Role)
		return t == "checkbox" || t == "radio" || r == "checkbox" || r == "switch" || r == "radio"
	}},
}

var clickAdjustments = []adjustment{
	{"form-context", 30, func(_ target.Descriptor, _ string, c Candidate) bool {
		return c.InFormOrDialog
	}},
	{"submit-type", 30, func(_ target.Descriptor, _ string, c Candidate) bool {
		return strings.EqualFold(c.InputType, "submit")
	}},
	{"primary-styling", 25, func(_ target.Descriptor, _ string, c Candidate) bool {
		return containsAny(c.lowerClass(), "submit", "primary")
	}},
	{"multi-word-label", 20, func(_ target.Descriptor, _ string, c Candidate) bool {
		return len(strings.Fields(c.Label())) >= 2
	}},
	{"toggle-styling", -100, func(_ target.Descriptor, _ string, c Candidate) bool {
		return containsAny(c.lowerID(), "toggle", "checkbox", "switch") ||
			containsAny(c.lowerClass(), "toggle", "checkbox", "switch")
	}},
}

var (
	actionWords     = []string{"add", "create", "new", "task", "issue", "project"}
	navigationWords = []string{"skip", "main content", "accessibility", "navigation"}
)

// fillableTiers rank inputs and contenteditables. The accessible label here
// already folds in aria-labelledby and associated <label> text.
var fillableTiers = []tier{
	{ReasonExact, 1000, func(want string, c Candidate) bool {
		return c.lowerAria() == want
	}},
	{ReasonWordBoundary, 800, func(want string, c Candidate) bool {
		return wordBoundaryMatch(c.lowerAria(), want)
	}},
	{ReasonPrefix, 600, func(want string, c Candidate) bool {
		return strings.HasPrefix(c.lowerAria(), want)
	}},
	{ReasonContains, 500, func(want string, c Candidate) bool {
		return strings.Contains(c.lowerAria(), want)
	}},
	{ReasonLabelPrefix, 400, func(want string, c Candidate) bool {
		a := c.lowerAria()
		return a != "" && strings.HasPrefix(want, a)
	}},
	{ReasonIdentifier, 300, func(want string, c Candidate) bool {
		return strings.Contains(c.lowerID(), want)
	}},
	{ReasonName, 300, func(want string, c Candidate) bool {
		return strings.Contains(strings.ToLower(c.Name), want)
	}},
	{ReasonPlaceholder, 200, func(want string, c Candidate) bool {
		return strings.Contains(strings.ToLower(c.Placeholder), want)
	}},
}

var fillableAdjustments = []adjustment{
	{"empty-field", 200, func(_ target.Descriptor, _ string, c Candidate) bool {
		return strings.TrimSpace(c.CurrentValue) == ""
	}},
	{"filled-with-other-text", -500, func(_ target.Descriptor, value string, c Candidate) bool {
		return holdsOtherText(c, value)
	}},
	{"in-modal", 100, func(_ target.Descriptor, _ string, c Candidate) bool {
		return c.InModal
	}},
}

func wordBoundaryMatch(haystack, needle string) bool {
	if haystack == "" || needle == "" || !strings.Contains(haystack, needle) {
		return false
	}
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(needle) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(haystack)
}

// triggerTiers rank the control that opens a custom dropdown.
var triggerTiers = []tier{
	{ReasonExact, 1000, func(want string, c Candidate) bool {
		a := c.lowerAria()
		return a != "" && (a == want || strings.HasPrefix(a, want))
	}},
	{ReasonContains, 500, func(want string, c Candidate) bool {
		return strings.Contains(c.lowerAria(), want)
	}},
	{ReasonText, 300, func(want string, c Candidate) bool {
		return strings.Contains(c.lowerText(), want)
	}},
	{ReasonIdentifier, 200, func(want string, c Candidate) bool {
		return strings.Contains(c.lowerID(), want)
	}},
	{ReasonClass, 100, func(want string, c Candidate) bool {
		return strings.Contains(c.lowerClass(), want)
	}},
}

var triggerAdjustments = []adjustment{
	{"in-modal", 100, func(_ target.Descriptor, _ string, c Candidate) bool {
		return c.InModal
	}},
	{"combobox-role", 200, func(_ target.Descriptor, _ string, c Candidate) bool {
		return strings.EqualFold(c.Role, "combobox")
	}},
}
