// Package scoring ranks candidate DOM elements against a parsed target.
//
// Every function in this package is pure: the candidate set is captured from the
// page by the browser package, scored here, and the caller commits only the top
// entry. Score composition is driven by ordered rule tables (see rules.go) so that
// individual tiers and adjustments can be tested in isolation.
package scoring

import (
	"strings"

	"github.com/xkilldash9x/uistate/api/schemas"
)

// Candidate is one visible element observed in the page. Ref is an opaque handle
// understood by the browser package; Index is the DOM discovery order.
type Candidate struct {
	Ref             string `json:"ref"`
	Index           int    `json:"index"`
	VisibleText     string `json:"text"`
	AccessibleLabel string `json:"ariaLabel"`
	Identifier      string `json:"id"`
	ClassHints      string `json:"className"`
	Tag             string `json:"tag"`
	Role            string `json:"role"`
	InputType       string `json:"type"`
	Name            string `json:"name"`
	Placeholder     string `json:"placeholder"`
	Href            string `json:"href"`
	IsVisible       bool   `json:"visible"`
	InFormOrDialog  bool   `json:"inFormOrDialog"`
	InModal         bool   `json:"inModal"`
	ContentEditable bool   `json:"contentEditable"`
	CurrentValue    string `json:"value"`
}

// Label is the text a person would read for the control: visible text first,
// accessible label otherwise.
func (c Candidate) Label() string {
	if t := strings.TrimSpace(c.VisibleText); t != "" {
		return t
	}
	return strings.TrimSpace(c.AccessibleLabel)
}

func (c Candidate) lowerText() string  { return strings.ToLower(strings.TrimSpace(c.VisibleText)) }
func (c Candidate) lowerAria() string  { return strings.ToLower(strings.TrimSpace(c.AccessibleLabel)) }
func (c Candidate) lowerID() string    { return strings.ToLower(c.Identifier) }
func (c Candidate) lowerClass() string { return strings.ToLower(c.ClassHints) }

// MatchReason names the tier that admitted a candidate.
type MatchReason string

const (
	ReasonExact        MatchReason = "exact"
	ReasonWordPrefix   MatchReason = "word-prefix"
	ReasonPrefix       MatchReason = "prefix"
	ReasonLabelPrefix  MatchReason = "target-prefix"
	ReasonSharedWords  MatchReason = "shared-words"
	ReasonContains     MatchReason = "contains"
	ReasonWordBoundary MatchReason = "word-boundary"
	ReasonIdentifier   MatchReason = "identifier"
	ReasonName         MatchReason = "name"
	ReasonPlaceholder  MatchReason = "placeholder"
	ReasonText         MatchReason = "text"
	ReasonClass        MatchReason = "class"
	ReasonDisqualified MatchReason = "disqualified"
	ReasonUnmatched    MatchReason = "unmatched"
)

// Scored is a candidate with its computed score.
type Scored struct {
	Candidate
	Score    int         `json:"score"`
	Reason   MatchReason `json:"reason"`
	Tiebreak int         `json:"tiebreak"`
	// Occupied marks a fillable field that already holds text other than the
	// value about to be typed. Occupied fields rank after every free one.
	Occupied bool `json:"occupied,omitempty"`
	// Rules lists the names of the adjustment rules that fired, for diagnostics.
	Rules []string `json:"rules,omitempty"`
}

// Ranking is the output of a ranking pass. Ranked is ordered best first;
// Disqualified holds candidates removed by a disqualification rule, kept only
// for logging.
type Ranking struct {
	Ranked       []Scored
	Disqualified []Scored
	PoolSize     int
}

// Best returns the top-ranked candidate.
func (r Ranking) Best() (Scored, bool) {
	if len(r.Ranked) == 0 {
		return Scored{}, false
	}
	return r.Ranked[0], true
}

// RunnersUp returns up to n candidates after the winner.
func (r Ranking) RunnersUp(n int) []Scored {
	if len(r.Ranked) <= 1 {
		return nil
	}
	rest := r.Ranked[1:]
	if len(rest) > n {
		rest = rest[:n]
	}
	return rest
}

// Err reports why a ranking has no winner, or nil when it has one.
func (r Ranking) Err() error {
	switch {
	case len(r.Ranked) > 0:
		return nil
	case r.PoolSize == 0:
		return schemas.ErrNoCandidateFound
	default:
		return schemas.ErrAmbiguousNoResolution
	}
}
