// Package term implements the terminal emulator that backs a session: a
// fixed-size grid of styled cells rebuilt from the raw bytes a child process
// writes to its PTY.
//
// The emulator supports the control-sequence subset needed to reconstruct a
// 2-D styled character grid and cursor state: cursor movement, SGR styling
// (including indexed and 24-bit color), screen and line clears, scroll
// regions, and a bounded scrollback used to restore content across resizes.
// Malformed or unsupported sequences are absorbed silently; Process never
// fails and never panics on adversarial input.
//
// The emulator has no locking of its own. Sessions serialize all access
// through their guard.
package term

// ColorMode distinguishes the three color encodings a cell can carry.
type ColorMode uint8

// Color encodings.
const (
	// ColorDefault is the terminal's default foreground or background.
	ColorDefault ColorMode = iota
	// ColorIndexed is one of the 256 palette colors.
	ColorIndexed
	// ColorRGB is a 24-bit direct color.
	ColorRGB
)

// Color is a terminal color: default, indexed (0-255), or 24-bit RGB.
// The zero value is the default color.
type Color struct {
	Mode    ColorMode
	Index   uint8
	R, G, B uint8
}

// Indexed returns a palette color.
func Indexed(i uint8) Color {
	return Color{Mode: ColorIndexed, Index: i}
}

// RGB returns a 24-bit direct color.
func RGB(r, g, b uint8) Color {
	return Color{Mode: ColorRGB, R: r, G: g, B: b}
}

// Style is the display attributes of one cell. Styles are comparable with
// ==, which segmentation relies on to split rows into same-style runs.
type Style struct {
	Bold      bool
	Underline bool
	Inverse   bool
	FG        Color
	BG        Color
}

// Cell is one character cell of the grid. The trailing cell of a wide rune
// holds Rune 0.
type Cell struct {
	Rune  rune
	Style Style
}

// blank returns an empty cell carrying the given style's background.
func blank(style Style) Cell {
	return Cell{Rune: ' ', Style: Style{BG: style.BG}}
}

// Cursor is the emulator's cursor position and visibility.
// Row and Col are zero-based.
type Cursor struct {
	Row     int
	Col     int
	Visible bool
}

// Snapshot is a point-in-time copy of the grid plus cursor state. It shares
// no memory with the emulator and stays valid after further Process calls.
type Snapshot struct {
	Cols   int
	Rows   int
	Cells  [][]Cell
	Cursor Cursor
}

// Cell returns the cell at (row, col), or a blank cell when out of range.
func (s Snapshot) Cell(row, col int) Cell {
	if row < 0 || row >= s.Rows || col < 0 || col >= s.Cols {
		return Cell{Rune: ' '}
	}
	return s.Cells[row][col]
}
