package scoring

import (
	"strings"
	"unicode"

	"github.com/xkilldash9x/uistate/internal/target"
)

// TriggerKeyword reduces a select target to the keyword used to find its
// dropdown trigger. "text=..." targets carry no usable field name and fall back
// to "priority", the field most plans mean by them.
func TriggerKeyword(d target.Descriptor) string {
	raw := strings.ToLower(strings.TrimSpace(d.RawText))
	if strings.HasPrefix(raw, "text=") {
		return "priority"
	}
	kw := d.Lower()
	if i := strings.LastIndex(kw, "="); i >= 0 {
		kw = kw[i+1:]
	}
	return strings.Trim(strings.TrimSpace(kw), `'"[]`)
}

// RankTriggers scores the buttons and comboboxes that may open a custom dropdown.
func RankTriggers(d target.Descriptor, candidates []Candidate) Ranking {
	r := Ranking{PoolSize: len(candidates)}
	want := TriggerKeyword(d)
	if want == "" {
		return r
	}

	for _, c := range candidates {
		base, reason, ok := evaluate(triggerTiers, want, c)
		if !ok {
			continue
		}
		s := Scored{Candidate: c, Score: base, Reason: reason}
		adjust(triggerAdjustments, d, "", &s)
		r.Ranked = append(r.Ranked, s)
	}
	sortByScore(r.Ranked)
	return r
}

// ValueVariants returns the spellings tried for a dropdown value: as given,
// capitalized and title cased. Duplicates are removed.
func ValueVariants(value string) []string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, s := range []string{v, capitalize(v), titleCase(v)} {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// MatchOption picks the option matching value. Exact (case-insensitive) matches
// win over containment, and earlier options win within a pass.
func MatchOption(value string, options []Candidate) (Candidate, bool) {
	variants := ValueVariants(value)
	if len(variants) == 0 {
		return Candidate{}, false
	}

	for _, v := range variants {
		for _, o := range options {
			if anyLabel(o, func(l string) bool { return strings.EqualFold(l, v) }) {
				return o, true
			}
		}
	}
	for _, v := range variants {
		lv := strings.ToLower(v)
		for _, o := range options {
			if anyLabel(o, func(l string) bool { return containsEither(l, lv) }) {
				return o, true
			}
		}
	}
	return Candidate{}, false
}

func capitalize(s string) string {
	r := []rune(strings.ToLower(s))
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}
