// Package wait implements the condition poll engine: it repeatedly
// refreshes a session's screen and evaluates a declarative condition
// against it until the condition holds or a deadline passes.
package wait

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Kind identifies what a condition tests.
type Kind int

const (
	// KindText: screen text contains a substring.
	KindText Kind = iota
	// KindTextGone: screen text no longer contains a substring.
	KindTextGone
	// KindElement: an element is detectable by reference or name.
	KindElement
	// KindFocused: the element exists and is focused.
	KindFocused
	// KindNotVisible: the element reference no longer resolves.
	KindNotVisible
	// KindValue: the element's value equals an expected string.
	KindValue
	// KindStable: the screen hash has been identical for N consecutive
	// polls.
	KindStable
)

// Condition is one parsed wait condition.
type Condition struct {
	Kind     Kind
	Text     string
	Ref      string
	Expected string
}

// Parse maps the loose (condition, text, ref) triple callers send into a
// typed Condition. Empty strings stand for absent fields. Any ANSI escapes
// in the text argument are stripped, since screens are compared as plain
// text. A missing or unknown condition name falls back to a text-contains
// check when text is present; with no fallback text there is nothing to
// wait for and ok is false.
func Parse(cond, text, ref string) (Condition, bool) {
	text = ansi.Strip(text)

	switch strings.ToLower(strings.TrimSpace(cond)) {
	case "text":
		if text == "" {
			return Condition{}, false
		}
		return Condition{Kind: KindText, Text: text}, true
	case "text_gone":
		if text == "" {
			return Condition{}, false
		}
		return Condition{Kind: KindTextGone, Text: text}, true
	case "element":
		if ref == "" {
			return Condition{}, false
		}
		return Condition{Kind: KindElement, Ref: ref}, true
	case "focused":
		if ref == "" {
			return Condition{}, false
		}
		return Condition{Kind: KindFocused, Ref: ref}, true
	case "not_visible":
		if ref == "" {
			return Condition{}, false
		}
		return Condition{Kind: KindNotVisible, Ref: ref}, true
	case "value":
		if ref == "" {
			return Condition{}, false
		}
		return Condition{Kind: KindValue, Ref: ref, Expected: text}, true
	case "stable":
		return Condition{Kind: KindStable}, true
	default:
		if text != "" {
			return Condition{Kind: KindText, Text: text}, true
		}
		return Condition{}, false
	}
}
