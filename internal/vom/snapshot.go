package vom

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/termpilot/termpilot/internal/util"
)

// SnapshotOptions controls accessibility snapshot rendering.
type SnapshotOptions struct {
	// InteractiveOnly drops static text and panel chrome from the tree.
	InteractiveOnly bool
}

// SnapshotStats summarizes one rendered snapshot.
type SnapshotStats struct {
	Total       int
	Interactive int
	Lines       int
}

// AccessibilitySnapshot is the agent-facing view of a screen: a textual
// tree plus a ref map resolving the short identifiers the tree mentions.
type AccessibilitySnapshot struct {
	Framework string
	Tree      string
	Refs      *RefMap
	Stats     SnapshotStats
}

// RefMap assigns stable-within-response references ("e1", "e2", ...) to
// components. References are dense and assigned in tree order, so the same
// screen state always yields the same map.
type RefMap struct {
	refs  map[string]ElementRef
	order []string
}

// NewRefMap returns an empty ref map.
func NewRefMap() *RefMap {
	return &RefMap{refs: make(map[string]ElementRef)}
}

// Add registers a component and returns its reference.
func (m *RefMap) Add(c Component) string {
	ref := fmt.Sprintf("e%d", len(m.order)+1)
	m.refs[ref] = ElementRef{
		Role:       c.Role,
		Name:       c.Text,
		Bounds:     c.Bounds,
		VisualHash: c.VisualHash,
		Nth:        m.countByName(c.Text),
		Selected:   c.Selected,
		Focused:    c.Focused,
		Value:      c.Value,
	}
	m.order = append(m.order, ref)
	return ref
}

// Get resolves a reference.
func (m *RefMap) Get(ref string) (ElementRef, bool) {
	e, ok := m.refs[ref]
	return e, ok
}

// Len returns the number of registered references.
func (m *RefMap) Len() int { return len(m.order) }

// Refs returns references in assignment order.
func (m *RefMap) Refs() []string { return m.order }

// FindByName returns the first reference whose element name matches the
// pattern, in tree order. The pattern is interpreted as a glob; a name
// equal to the pattern verbatim also matches, so bracketed labels like
// "[Save]" resolve even though they parse as glob character classes.
func (m *RefMap) FindByName(pattern string) (string, ElementRef, bool) {
	g, gerr := glob.Compile(pattern)
	for _, ref := range m.order {
		e := m.refs[ref]
		if e.Name == pattern || (gerr == nil && g.Match(e.Name)) {
			return ref, e, true
		}
	}
	return "", ElementRef{}, false
}

func (m *RefMap) countByName(name string) int {
	n := 0
	for _, ref := range m.order {
		if m.refs[ref].Name == name {
			n++
		}
	}
	return n
}

// BuildSnapshot formats an analysis into the indented tree agents read.
// Components are grouped by approximate vertical position: consecutive
// components on nearby rows nest under the first panel or heading above
// them.
func BuildSnapshot(analysis *Analysis, opts SnapshotOptions) *AccessibilitySnapshot {
	refs := NewRefMap()
	var sb strings.Builder
	interactive := 0
	total := 0
	lines := 0
	lastRow := -10

	for _, c := range analysis.Components {
		if c.Role.Interactive() {
			interactive++
		}
		total++
		if opts.InteractiveOnly && !c.Role.Interactive() {
			continue
		}
		ref := refs.Add(c)
		indent := ""
		if c.Bounds.Y == lastRow {
			indent = "  "
		}
		lastRow = c.Bounds.Y
		sb.WriteString(indent)
		sb.WriteString(formatNode(ref, c))
		sb.WriteByte('\n')
		lines++
	}

	return &AccessibilitySnapshot{
		Framework: analysis.Framework,
		Tree:      sb.String(),
		Refs:      refs,
		Stats: SnapshotStats{
			Total:       total,
			Interactive: interactive,
			Lines:       lines,
		},
	}
}

// treeLabelWidth bounds element text in the rendered tree. The ref map
// keeps full names; only the display is truncated.
const treeLabelWidth = 60

// formatNode renders one tree line: role, quoted text, ref, and state flags.
func formatNode(ref string, c Component) string {
	var sb strings.Builder
	sb.WriteString("- ")
	sb.WriteString(c.Role.String())
	if c.Text != "" {
		fmt.Fprintf(&sb, " %q", util.TruncateANSI(c.Text, treeLabelWidth))
	}
	fmt.Fprintf(&sb, " [%s]", ref)
	if c.Selected {
		sb.WriteString(" selected")
	}
	if c.Focused {
		sb.WriteString(" focused")
	}
	if c.Value != "" {
		fmt.Fprintf(&sb, " value=%s", c.Value)
	}
	return sb.String()
}
