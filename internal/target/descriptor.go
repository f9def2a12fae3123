// Package target turns the loosely specified target strings found in plan steps
// ("text=Add project", "[aria-label='Create']", "Priority") into a normalized intent.
package target

import (
	"regexp"
	"strings"
)

// Kind is the structural role a target most likely refers to.
type Kind int

const (
	KindUnknown Kind = iota
	KindButton
	KindLink
	KindInput
	KindContentEditable
	KindOption
)

func (k Kind) String() string {
	switch k {
	case KindButton:
		return "button"
	case KindLink:
		return "link"
	case KindInput:
		return "input"
	case KindContentEditable:
		return "contenteditable"
	case KindOption:
		return "option"
	default:
		return "unknown"
	}
}

// Descriptor is the parsed form of a raw target string. It is derived once per
// resolution call and never modified.
type Descriptor struct {
	RawText                   string
	NormalizedText            string
	KindHint                  Kind
	IsAmbiguous               bool
	IsAccessibleLabelSelector bool

	// Tag is set for "button:has-text(...)" style targets.
	Tag string
	// CSS holds a structural selector worth a direct query before scoring.
	CSS string
	// Attribute is "name" or "id" when the target used that prefix.
	Attribute string
}

// Lower returns the normalized text in lower case.
func (d Descriptor) Lower() string {
	return strings.ToLower(d.NormalizedText)
}

var ambiguousVerbs = map[string]bool{
	"create": true, "new": true, "add": true, "edit": true,
	"delete": true, "save": true, "submit": true,
}

var (
	hasTextPattern    = regexp.MustCompile(`(?i)^(button|a)\s*:has-text\(\s*(.*?)\s*\)$`)
	ariaAttrPattern   = regexp.MustCompile(`aria-label\s*[*^$~|]?=\s*["']?([^"'\]]+)["']?`)
	structuralCSS     = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9-]*)?[#.\[]`)
	simpleIDOrClass   = regexp.MustCompile(`^[#.]([A-Za-z0-9_-]+)$`)
	attributePrefixes = []string{"name=", "id=", "textarea="}
)

// Parse derives a Descriptor from a raw target string. It has no side effects.
func Parse(raw string) Descriptor {
	s := strings.TrimSpace(raw)
	d := Descriptor{RawText: raw}
	lower := strings.ToLower(s)

	switch {
	case hasTextPattern.MatchString(s):
		m := hasTextPattern.FindStringSubmatch(s)
		d.Tag = strings.ToLower(m[1])
		d.NormalizedText = trimQuotes(m[2])
		d.KindHint = KindButton
		if d.Tag == "a" {
			d.KindHint = KindLink
		}

	case strings.HasPrefix(lower, "aria-label="):
		d.NormalizedText = trimQuotes(s[len("aria-label="):])
		d.IsAccessibleLabelSelector = true
		d.KindHint = KindButton

	case strings.HasPrefix(lower, "[aria-label"):
		if m := ariaAttrPattern.FindStringSubmatch(s); m != nil {
			d.NormalizedText = strings.TrimSpace(m[1])
		} else {
			d.NormalizedText = strings.Trim(strings.TrimPrefix(s, "[aria-label"), "=:]*'\" ")
		}
		d.IsAccessibleLabelSelector = true
		d.KindHint = KindButton

	case strings.HasPrefix(lower, "text="):
		d.NormalizedText = trimQuotes(s[len("text="):])
		d.KindHint = KindButton

	case strings.HasPrefix(lower, "css="):
		d.CSS = strings.TrimSpace(s[len("css="):])
		d.NormalizedText = d.CSS

	default:
		matched := false
		for _, prefix := range attributePrefixes {
			if strings.HasPrefix(lower, prefix) {
				d.Attribute = strings.TrimSuffix(prefix, "=")
				d.NormalizedText = trimQuotes(s[len(prefix):])
				d.KindHint = KindInput
				matched = true
				break
			}
		}
		if !matched {
			d.NormalizedText = trimQuotes(s)
			if structuralCSS.MatchString(s) {
				d.CSS = s
				if m := simpleIDOrClass.FindStringSubmatch(s); m != nil {
					d.NormalizedText = m[1]
				}
			}
		}
	}

	if d.CSS != "" && d.KindHint == KindUnknown {
		d.KindHint = cssKind(d.CSS)
	}

	words := strings.Fields(d.Lower())
	d.IsAmbiguous = d.IsAccessibleLabelSelector || (len(words) == 1 && ambiguousVerbs[words[0]])
	return d
}

// cssKind guesses the element kind from the last compound of a selector.
func cssKind(css string) Kind {
	parts := strings.FieldsFunc(strings.ToLower(css), func(r rune) bool {
		return r == ' ' || r == '>' || r == '+' || r == '~'
	})
	if len(parts) == 0 {
		return KindUnknown
	}
	last := parts[len(parts)-1]
	switch {
	case strings.Contains(last, "contenteditable"):
		return KindContentEditable
	case strings.Contains(last, "role=option"), strings.Contains(last, `role="option"`), strings.Contains(last, "role='option'"):
		return KindOption
	case strings.HasPrefix(last, "input"), strings.HasPrefix(last, "textarea"):
		return KindInput
	case strings.HasPrefix(last, "button"):
		return KindButton
	case last == "a", strings.HasPrefix(last, "a["), strings.HasPrefix(last, "a."), strings.HasPrefix(last, "a#"):
		return KindLink
	}
	return KindUnknown
}

func trimQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `'"`)
}
