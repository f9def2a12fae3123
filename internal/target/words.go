package target

import "strings"

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true, "in": true,
	"on": true, "at": true, "to": true, "for": true, "of": true, "with": true, "by": true,
}

// Words splits lower-cased text on whitespace.
func Words(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// SignificantWords returns the distinct words of s that are not stopwords and are
// longer than two characters, in order of first appearance.
func SignificantWords(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range Words(s) {
		if len(w) <= 2 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// SharesSignificantWords reports whether a and b share at least two significant
// words, or whether one significant word set is contained in the other.
func SharesSignificantWords(a, b string) bool {
	wa, wb := SignificantWords(a), SignificantWords(b)
	if len(wa) == 0 || len(wb) == 0 {
		return false
	}
	setA := toSet(wa)
	setB := toSet(wb)

	shared := 0
	for w := range setA {
		if setB[w] {
			shared++
		}
	}
	if shared >= 2 {
		return true
	}
	return isSubset(setA, setB) || isSubset(setB, setA)
}

// SharedWordCount counts the distinct literal words that appear in both strings.
func SharedWordCount(a, b string) int {
	setB := toSet(Words(b))
	n := 0
	for w := range toSet(Words(a)) {
		if setB[w] {
			n++
		}
	}
	return n
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func isSubset(sub, super map[string]bool) bool {
	for w := range sub {
		if !super[w] {
			return false
		}
	}
	return true
}
