package vom

import (
	"sort"
	"strings"

	"github.com/termpilot/termpilot/internal/term"
)

// Analysis is the full result of running the pipeline over one snapshot.
type Analysis struct {
	Framework  string
	Components []Component
}

// Analyze runs segmentation, classification and framework detection over a
// snapshot and merges the results into one component stream.
func Analyze(snap *term.Snapshot) *Analysis {
	clusters := Segment(snap)
	components := Classify(clusters, snap.Cursor)

	ctx := &DetectContext{
		Lines:     snapshotLines(snap),
		CursorRow: snap.Cursor.Row,
		CursorCol: snap.Cursor.Col,
	}
	detector, matches := DetectFramework(ctx)
	components = mergePatterns(components, matches)

	sortComponents(components)
	return &Analysis{Framework: detector.Name(), Components: components}
}

// snapshotLines returns one plain-text string per screen row, untrimmed on
// the left so pattern columns line up with cluster bounds.
func snapshotLines(snap *term.Snapshot) []string {
	lines := make([]string, snap.Rows)
	for r := 0; r < snap.Rows; r++ {
		lines[r] = strings.TrimRight(snap.Line(r), " ")
	}
	return lines
}

// mergePatterns folds detector matches into the classified components. A
// match that overlaps an existing component refines its role; one that
// covers no component is added as a new synthetic component.
func mergePatterns(components []Component, matches []PatternMatch) []Component {
	for _, m := range matches {
		role, ok := patternRole(m.Kind)
		if !ok {
			continue
		}
		merged := false
		for i := range components {
			c := &components[i]
			if c.Bounds.Y != m.Row {
				continue
			}
			if m.Col >= c.Bounds.X+c.Bounds.W || c.Bounds.X >= m.Col+m.Width {
				continue
			}
			// Cursor-derived inputs keep their role.
			if c.Role != RoleInput {
				c.Role = role
			}
			if m.Value != "" {
				c.Value = m.Value
			}
			if m.Kind == PatternCheckbox {
				c.Selected = m.Checked
			}
			merged = true
		}
		if !merged {
			text := m.Label
			if text == "" {
				text = m.Value
			}
			bounds := Rect{X: m.Col, Y: m.Row, W: m.Width, H: 1}
			components = append(components, Component{
				Role:       role,
				Bounds:     bounds,
				Text:       text,
				VisualHash: visualHash(bounds, text, term.Style{}),
				Selected:   m.Checked,
				Value:      m.Value,
			})
		}
	}
	return components
}

// patternRole maps a detector match kind onto a component role.
func patternRole(kind PatternKind) (Role, bool) {
	switch kind {
	case PatternSpinner:
		return RoleStatus, true
	case PatternSelect:
		return RoleMenuItem, true
	case PatternCheckbox:
		return RoleCheckbox, true
	case PatternConfirm:
		return RolePromptMarker, true
	case PatternHelpKey:
		return RoleButton, true
	case PatternProgressBar, PatternPercentage:
		return RoleProgressBar, true
	case PatternSparkline:
		return RoleStatus, true
	default:
		return RoleStaticText, false
	}
}

// sortComponents orders top-to-bottom then left-to-right.
func sortComponents(components []Component) {
	sort.SliceStable(components, func(i, j int) bool {
		a, b := components[i].Bounds, components[j].Bounds
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}
