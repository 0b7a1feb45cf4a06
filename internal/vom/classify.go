package vom

import (
	"strings"

	"github.com/termpilot/termpilot/internal/term"
)

// checkboxGlyphs are the exact trimmed texts recognized as checkboxes.
var checkboxGlyphs = map[string]bool{
	"[x]": true,
	"[X]": true,
	"[ ]": true,
	"[•]": true,
	"◉":   true,
	"◯":   true,
	"☐":   true,
	"☑":   true,
	"☒":   true,
	"✓":   true,
	"✗":   true,
}

// checkedGlyphs marks which checkbox texts represent a checked state.
var checkedGlyphs = map[string]bool{
	"[x]": true,
	"[X]": true,
	"[•]": true,
	"◉":   true,
	"☑":   true,
	"☒":   true,
	"✓":   true,
}

// menuMarkers are leading glyphs that indicate a selectable menu entry.
var menuMarkers = []string{">", "❯", "›", "→", "▶", "• ", "* ", "- "}

// tabBackgrounds are the palette indices conventionally used for tab bars.
var tabBackgrounds = map[uint8]bool{4: true, 6: true, 12: true, 14: true}

// Classify assigns a Role to every cluster. The chain is ordered and the
// first match wins; it is total (the fallback is RoleStaticText) and
// deterministic for a given cluster and cursor.
//
// The cursor check comes first on purpose: agents rely on cursor-co-located
// clusters being addressable as inputs even when they also look like
// buttons.
func Classify(clusters []Cluster, cursor term.Cursor) []Component {
	components := make([]Component, 0, len(clusters))
	for _, cluster := range clusters {
		role, selected := classifyCluster(cluster, cursor)
		components = append(components, Component{
			Role:       role,
			Bounds:     cluster.Bounds,
			Text:       strings.TrimSpace(cluster.Text),
			VisualHash: visualHash(cluster.Bounds, cluster.Text, cluster.Style),
			Selected:   selected,
			Focused:    role == RoleInput && cursorInCluster(cluster, cursor),
		})
	}
	return components
}

// classifyCluster runs the heuristic chain for one cluster.
func classifyCluster(cluster Cluster, cursor term.Cursor) (role Role, selected bool) {
	text := strings.TrimSpace(cluster.Text)

	// 1. Cursor co-location overrides everything.
	if cursorInCluster(cluster, cursor) {
		return RoleInput, false
	}

	// 2. Bracket-delimited labels are buttons, unless the content is a bare
	// checkbox marker.
	if isBracketedLabel(text) && !checkboxGlyphs[text] {
		return RoleButton, false
	}

	// 3. Inverse video: a tab near the top of the screen, a highlighted
	// menu entry further down.
	if cluster.Style.Inverse {
		if cluster.Bounds.Y <= 2 {
			return RoleTab, true
		}
		return RoleMenuItem, true
	}

	// 4. Tab-bar background colors.
	if cluster.Style.BG.Mode == term.ColorIndexed && tabBackgrounds[cluster.Style.BG.Index] {
		return RoleTab, false
	}

	// 5. Underscore runs and "label: _" shapes are input fields.
	if isInputField(text) {
		return RoleInput, false
	}

	// 6. Checkbox glyphs.
	if checkboxGlyphs[text] {
		return RoleCheckbox, checkedGlyphs[text]
	}

	// 7. Leading bullet or arrow markers.
	for _, marker := range menuMarkers {
		if strings.HasPrefix(text, marker) && len(text) > len(marker) {
			return RoleMenuItem, strings.HasPrefix(text, "❯") || strings.HasPrefix(text, ">")
		}
	}

	// 8. Mostly box-drawing content is chrome.
	if isBoxDrawing(text) {
		return RolePanel, false
	}

	// 9. Fallback.
	return RoleStaticText, false
}

// cursorInCluster reports whether the cursor sits on the cluster's row and
// within its horizontal span.
func cursorInCluster(cluster Cluster, cursor term.Cursor) bool {
	return cursor.Row == cluster.Bounds.Y &&
		cursor.Col >= cluster.Bounds.X &&
		cursor.Col < cluster.Bounds.X+cluster.Bounds.W
}

// isBracketedLabel reports whether text is a [Label], (Label) or <Label>
// with non-trivial content.
func isBracketedLabel(text string) bool {
	if len(text) < 3 {
		return false
	}
	pairs := []struct{ open, close byte }{
		{'[', ']'},
		{'(', ')'},
		{'<', '>'},
	}
	for _, p := range pairs {
		if text[0] == p.open && text[len(text)-1] == p.close {
			inner := strings.TrimSpace(text[1 : len(text)-1])
			return inner != ""
		}
	}
	return false
}

// isInputField matches underscore-run placeholders and "label: ___" shapes.
func isInputField(text string) bool {
	if strings.Count(text, "_") >= 3 && strings.Trim(text, "_") == "" {
		return true
	}
	if idx := strings.Index(text, ":"); idx > 0 {
		rest := strings.TrimSpace(text[idx+1:])
		if rest != "" && strings.Trim(rest, "_") == "" {
			return true
		}
	}
	return false
}

// isBoxDrawing reports whether the majority of runes are box-drawing
// characters.
func isBoxDrawing(text string) bool {
	total := 0
	box := 0
	for _, r := range text {
		if r == ' ' {
			continue
		}
		total++
		if (r >= 0x2500 && r <= 0x257f) || r == '═' || r == '║' {
			box++
		}
	}
	return total > 0 && box*2 > total
}
