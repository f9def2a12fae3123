package scoring

import (
	"sort"
	"strings"

	"github.com/xkilldash9x/uistate/internal/target"
)

// RankClickable scores buttons, links and button-like elements against d.
//
// Candidates that match no tier are dropped. Candidates caught by a
// disqualification rule never appear in Ranked; they are returned in
// Disqualified so callers can log them.
func RankClickable(d target.Descriptor, candidates []Candidate) Ranking {
	r := Ranking{PoolSize: len(candidates)}
	want := withoutToggleWords(d.Lower())
	if want == "" {
		return r
	}

	table := textTiers
	if d.IsAccessibleLabelSelector {
		table = ariaTiers
	}

	for _, c := range candidates {
		base, reason, ok := evaluate(table, want, c)
		if !ok {
			continue
		}
		s := Scored{Candidate: c, Score: base, Reason: reason}
		if name, dq := disqualifiedBy(clickDisqualifiers, c); dq {
			s.Reason = ReasonDisqualified
			s.Rules = append(s.Rules, name)
			r.Disqualified = append(r.Disqualified, s)
			continue
		}
		adjust(clickAdjustments, d, "", &s)
		r.Ranked = append(r.Ranked, s)
	}

	sortByScore(r.Ranked)
	sortByScore(r.Disqualified)
	breakTopTie(want, r.Ranked)
	avoidMoreWinner(r.Ranked)
	return r
}

// withoutToggleWords drops "more"/"less" qualifiers from a click target. Controls
// labelled that way are disqualified, so the words can only steer a match toward
// the wrong element. A target made only of such words is kept as is.
func withoutToggleWords(want string) string {
	var kept []string
	for _, w := range strings.Fields(want) {
		if w != "more" && w != "less" {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return strings.TrimSpace(want)
	}
	return strings.Join(kept, " ")
}

// sortByScore orders by score descending, then by discovery order.
func sortByScore(s []Scored) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Score != s[j].Score {
			return s[i].Score > s[j].Score
		}
		return s[i].Index < s[j].Index
	})
}

// breakTopTie reorders the candidates sharing the top score by word overlap with
// the target, favouring action words and penalising navigation boilerplate.
func breakTopTie(want string, ranked []Scored) {
	if len(ranked) < 2 || ranked[0].Score != ranked[1].Score {
		return
	}
	n := 1
	for n < len(ranked) && ranked[n].Score == ranked[0].Score {
		n++
	}
	tied := ranked[:n]

	for i := range tied {
		tied[i].Tiebreak = tiebreakScore(want, tied[i].Candidate)
	}
	sort.SliceStable(tied, func(i, j int) bool {
		if tied[i].Tiebreak != tied[j].Tiebreak {
			return tied[i].Tiebreak > tied[j].Tiebreak
		}
		return tied[i].Index < tied[j].Index
	})
}

func tiebreakScore(want string, c Candidate) int {
	label := strings.TrimSpace(c.lowerText() + " " + c.lowerAria())
	score := 0

	shared := target.SharedWordCount(want, label)
	score += shared * 10
	if shared > 0 {
		for _, w := range actionWords {
			if strings.Contains(want, w) && strings.Contains(label, w) {
				score += 50
				break
			}
		}
	}
	if containsAny(label, navigationWords...) {
		score -= 100
	}
	return score
}

// avoidMoreWinner promotes the next candidate when the winner still reads like a
// "more" control. Short "more" labels never get here; this catches longer ones.
func avoidMoreWinner(ranked []Scored) {
	if len(ranked) < 2 || !anyLabel(ranked[0].Candidate, func(l string) bool { return strings.Contains(l, "more") }) {
		return
	}
	for i := 1; i < len(ranked); i++ {
		if !anyLabel(ranked[i].Candidate, func(l string) bool { return strings.Contains(l, "more") }) {
			alt := ranked[i]
			copy(ranked[1:i+1], ranked[:i])
			ranked[0] = alt
			return
		}
	}
}
