// Package vom builds the visual object model: it turns one terminal
// snapshot into a structured list of semantic UI components an agent can
// reference and act on.
//
// The pipeline has three stages. Segmentation splits each row into maximal
// same-style text runs (clusters). Classification assigns each cluster a
// Role through an ordered heuristic chain evaluated against the cluster's
// text, style, and the cursor position. Framework detectors contribute
// framework-specific pattern matches (spinners, select markers, progress
// bars) that are merged into the component stream. The snapshot formatter
// reduces the classified components to a reference map and an indented tree.
//
// Everything here is transient: clusters, components and reference maps are
// produced and consumed within a single snapshot pass and never cached
// across refreshes.
package vom

// Role is the semantic UI category assigned to a classified cluster.
type Role int

// Roles, in no particular order. The set is closed; classification always
// produces one of these, defaulting to RoleStaticText.
const (
	RoleStaticText Role = iota
	RoleButton
	RoleTab
	RoleInput
	RolePanel
	RoleCheckbox
	RoleMenuItem
	RoleStatus
	RoleToolBlock
	RolePromptMarker
	RoleProgressBar
	RoleLink
	RoleErrorMessage
	RoleDiffLine
	RoleCodeBlock
)

// String returns the role name used in trees and traces.
func (r Role) String() string {
	switch r {
	case RoleButton:
		return "button"
	case RoleTab:
		return "tab"
	case RoleInput:
		return "input"
	case RoleStaticText:
		return "text"
	case RolePanel:
		return "panel"
	case RoleCheckbox:
		return "checkbox"
	case RoleMenuItem:
		return "menuitem"
	case RoleStatus:
		return "status"
	case RoleToolBlock:
		return "toolblock"
	case RolePromptMarker:
		return "prompt"
	case RoleProgressBar:
		return "progressbar"
	case RoleLink:
		return "link"
	case RoleErrorMessage:
		return "error"
	case RoleDiffLine:
		return "diffline"
	case RoleCodeBlock:
		return "codeblock"
	default:
		return "unknown"
	}
}

// Interactive reports whether elements of this role accept input or
// activation. The set is fixed.
func (r Role) Interactive() bool {
	switch r {
	case RoleButton, RoleTab, RoleInput, RoleCheckbox, RoleMenuItem, RolePromptMarker, RoleLink:
		return true
	default:
		return false
	}
}

// Rect is a screen-coordinate bounding box. X and Y are zero-based column
// and row; clusters always have H == 1.
type Rect struct {
	X int
	Y int
	W int
	H int
}

// Component is a classified cluster: one semantic element on screen.
type Component struct {
	Role       Role
	Bounds     Rect
	Text       string
	VisualHash string
	Selected   bool
	Focused    bool
	Value      string
}

// ElementRef is a component reduced to a caller-addressable handle.
// The reference string it is keyed by is stable only within one snapshot
// response; callers correlate across refreshes via VisualHash and Bounds.
type ElementRef struct {
	Role       Role
	Name       string
	Bounds     Rect
	VisualHash string
	Nth        int
	Selected   bool
	Focused    bool
	Value      string
}
