package scoring

import (
	"sort"
	"strings"

	"github.com/xkilldash9x/uistate/internal/target"
)

// RankFillable scores inputs, textareas and contenteditable regions for a type
// action. value is the text about to be entered; a field already holding that
// exact text is not penalised.
func RankFillable(d target.Descriptor, value string, candidates []Candidate) Ranking {
	r := Ranking{PoolSize: len(candidates)}
	want := strings.TrimSpace(d.Lower())
	if want == "" {
		return r
	}

	for _, c := range candidates {
		base, reason, ok := evaluate(fillableTiers, want, c)
		if !ok {
			continue
		}
		s := Scored{Candidate: c, Score: base, Reason: reason}
		adjust(fillableAdjustments, d, value, &s)
		s.Occupied = holdsOtherText(c, value)
		r.Ranked = append(r.Ranked, s)
	}
	sortFillable(r.Ranked)
	return r
}

// holdsOtherText reports whether typing value into c would overwrite someone
// else's input.
func holdsOtherText(c Candidate, value string) bool {
	cur := strings.TrimSpace(c.CurrentValue)
	return cur != "" && !strings.EqualFold(cur, strings.TrimSpace(value))
}

// sortFillable orders free fields before occupied ones, then by score and
// discovery order within each group.
func sortFillable(s []Scored) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Occupied != s[j].Occupied {
			return !s[i].Occupied
		}
		if s[i].Score != s[j].Score {
			return s[i].Score > s[j].Score
		}
		return s[i].Index < s[j].Index
	})
}
