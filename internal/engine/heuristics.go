package engine

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/xkilldash9x/uistate/api/schemas"
)

// Alternatives returns mechanical rewrites of a click step's target, in the
// order they should be tried. Rewrites identical to the original are omitted.
// Non-click steps have no alternatives.
func Alternatives(step schemas.PlanStep) []string {
	if step.Action.Normalize() != schemas.ActionClick {
		return nil
	}
	raw := strings.TrimSpace(step.Target)
	if raw == "" {
		return nil
	}
	text := strings.Trim(strings.TrimSpace(strings.TrimPrefix(raw, "text=")), `'"`)

	candidates := []string{
		strings.ReplaceAll(raw, "'", `"`),
		text,
	}
	if text != "" {
		quoted := strings.ReplaceAll(text, "'", `\'`)
		candidates = append(candidates,
			fmt.Sprintf("button:has-text('%s')", quoted),
			fmt.Sprintf("a:has-text('%s')", quoted),
			fmt.Sprintf("[aria-label*='%s']", quoted),
		)
	}

	seen := map[string]bool{raw: true}
	var out []string
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

var creationPhrase = regexp.MustCompile(`(?i)\b(?:create|new|add)\s+(?:(?:a|an|the|new)\s+)*([a-z]+)`)

// nouns that name a control rather than the object being created.
var genericNouns = map[string]bool{
	"button": true, "one": true, "item": true, "it": true, "entry": true, "form": true,
}

// ParentSection derives the navigation target for the section that owns the
// object a step wants to create ("Create a new project" -> "text=Projects").
func ParentSection(description string) (string, bool) {
	m := creationPhrase.FindStringSubmatch(description)
	if m == nil {
		return "", false
	}
	noun := strings.ToLower(m[1])
	if genericNouns[noun] || len(noun) < 3 {
		return "", false
	}
	return "text=" + capitalize(plural(noun)), true
}

func plural(noun string) string {
	switch {
	case strings.HasSuffix(noun, "s"):
		return noun
	case strings.HasSuffix(noun, "y") && len(noun) > 1 && !strings.ContainsRune("aeiou", rune(noun[len(noun)-2])):
		return noun[:len(noun)-1] + "ies"
	default:
		return noun + "s"
	}
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
