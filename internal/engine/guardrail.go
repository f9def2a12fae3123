package engine

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/uistate/api/schemas"
	"github.com/xkilldash9x/uistate/internal/target"
)

// Verdict is the guardrail's ruling on a repair suggestion.
type Verdict int

const (
	VerdictReject Verdict = iota
	VerdictAccept
	VerdictSkip
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccept:
		return "accept"
	case VerdictSkip:
		return "skip"
	default:
		return "reject"
	}
}

// Decision is a Verdict plus a human readable reason for the log.
type Decision struct {
	Verdict Verdict
	Reason  string
}

// fieldMismatches lists field concepts that must never be swapped for one
// another. Each pair reads "original mentions X, suggestion mentions Y".
var fieldMismatches = [][2]string{
	{"assignee", "title"},
	{"assignee", "name"},
	{"assignee", "description"},
	{"title", "assignee"},
	{"title", "description"},
	{"name", "assignee"},
	{"description", "title"},
	{"description", "assignee"},
}

// fieldSynonyms maps a field concept to predicates that recognise the same
// field under a different label.
var fieldSynonyms = []struct {
	concept string
	matches func(suggestion string) bool
}{
	{"assignee", func(s string) bool {
		return strings.Contains(s, "assign") || strings.Contains(s, "user") || strings.Contains(s, "owner")
	}},
	{"title", func(s string) bool {
		return strings.Contains(s, "title") || (strings.Contains(s, "name") && strings.Contains(s, "issue"))
	}},
	{"description", func(s string) bool {
		return strings.Contains(s, "description") || strings.Contains(s, "body") || strings.Contains(s, "content")
	}},
}

// ValidateSuggestion decides whether a repair suggestion may replace the
// original target. It is total: every input yields exactly one verdict, and a
// suggestion that crosses a listed field pair is always rejected.
func ValidateSuggestion(originalTarget string, s schemas.RepairSuggestion) Decision {
	if s.Skip || s.SuggestedAction.Normalize() == schemas.ActionSkip || s.Target == schemas.SkippedTarget {
		return Decision{Verdict: VerdictSkip, Reason: nonEmpty(s.Reason, "oracle requested skip")}
	}

	orig := fieldText(originalTarget)
	sugg := fieldText(s.Target)
	if sugg == "" {
		return Decision{Verdict: VerdictReject, Reason: "suggestion has no target"}
	}

	for _, pair := range fieldMismatches {
		if strings.Contains(orig, pair[0]) && strings.Contains(sugg, pair[1]) {
			return Decision{
				Verdict: VerdictReject,
				Reason:  fmt.Sprintf("semantic mismatch: %s field suggested for %s", pair[1], pair[0]),
			}
		}
	}

	if orig == "" {
		return Decision{Verdict: VerdictReject, Reason: "original target is empty"}
	}
	if strings.Contains(orig, sugg) || strings.Contains(sugg, orig) {
		return Decision{Verdict: VerdictAccept, Reason: "suggestion overlaps original target"}
	}
	for _, kw := range target.SignificantWords(orig) {
		if strings.Contains(sugg, kw) {
			return Decision{Verdict: VerdictAccept, Reason: fmt.Sprintf("suggestion shares keyword %q", kw)}
		}
	}
	for _, syn := range fieldSynonyms {
		if strings.Contains(orig, syn.concept) && syn.matches(sugg) {
			return Decision{Verdict: VerdictAccept, Reason: fmt.Sprintf("suggestion is a synonym of %s", syn.concept)}
		}
	}
	return Decision{
		Verdict: VerdictReject,
		Reason:  fmt.Sprintf("suggestion %q does not relate to %q", s.Target, originalTarget),
	}
}

// fieldText lower-cases a target and strips selector syntax so "text=Title"
// and "Title" compare equal.
func fieldText(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return strings.TrimSpace(target.Parse(raw).Lower())
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}
