package term

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// newANSIRenderer builds the renderer used for Render output. The color
// profile is forced rather than TTY-detected: sessions usually run inside
// daemons and pipes, where profile detection would silently strip all
// styling from the rendition.
func newANSIRenderer() *lipgloss.Renderer {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.TrueColor)
	return r
}

// PlainText flattens the grid to text: one line per row with trailing
// whitespace trimmed, trailing blank lines dropped.
func (e *Emulator) PlainText() string {
	return e.Snapshot().PlainText()
}

// PlainText flattens a snapshot the same way.
func (s Snapshot) PlainText() string {
	lines := make([]string, 0, s.Rows)
	for r := 0; r < s.Rows; r++ {
		var sb strings.Builder
		for c := 0; c < s.Cols; c++ {
			cell := s.Cells[r][c]
			if cell.Rune == 0 {
				continue // wide-rune trailing cell
			}
			sb.WriteRune(cell.Rune)
		}
		lines = append(lines, strings.TrimRight(sb.String(), " \t"))
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// Line returns the text of one snapshot row, trailing whitespace trimmed.
func (s Snapshot) Line(row int) string {
	if row < 0 || row >= s.Rows {
		return ""
	}
	var sb strings.Builder
	for c := 0; c < s.Cols; c++ {
		cell := s.Cells[row][c]
		if cell.Rune == 0 {
			continue
		}
		sb.WriteRune(cell.Rune)
	}
	return strings.TrimRight(sb.String(), " \t")
}

// Render rebuilds an ANSI-colored rendition of the grid. Runs of identical
// style are merged into one styled segment per run; default-styled text is
// emitted unstyled. Rows are separated by CR+LF and trimmed of trailing
// default-blank cells, so feeding the rendition back through an emulator
// reproduces the screen instead of cascading wraps.
func (e *Emulator) Render() string {
	snap := e.Snapshot()

	rows := snap.Rows
	for rows > 0 && rowWidth(snap.Cells[rows-1]) == 0 {
		rows--
	}

	var sb strings.Builder
	for r := 0; r < rows; r++ {
		if r > 0 {
			sb.WriteString("\r\n")
		}
		row := snap.Cells[r][:rowWidth(snap.Cells[r])]
		start := 0
		for c := 1; c <= len(row); c++ {
			if c == len(row) || row[c].Style != row[start].Style {
				sb.WriteString(renderRun(e.renderer, row[start:c]))
				start = c
			}
		}
	}
	return sb.String()
}

// rowWidth returns the cell count up to the last cell that is not a
// default-styled blank. Styled blanks (colored backgrounds) survive.
func rowWidth(row []Cell) int {
	w := len(row)
	for w > 0 {
		cell := row[w-1]
		if (cell.Rune == ' ' || cell.Rune == 0) && cell.Style == (Style{}) {
			w--
			continue
		}
		break
	}
	return w
}

// renderRun styles one same-style run of cells through the given renderer.
func renderRun(r *lipgloss.Renderer, cells []Cell) string {
	if len(cells) == 0 {
		return ""
	}

	var text strings.Builder
	for _, cell := range cells {
		if cell.Rune == 0 {
			continue
		}
		text.WriteRune(cell.Rune)
	}

	style := cells[0].Style
	if style == (Style{}) {
		return text.String()
	}

	ls := r.NewStyle().
		Bold(style.Bold).
		Underline(style.Underline).
		Reverse(style.Inverse)
	if c, ok := lipglossColor(style.FG); ok {
		ls = ls.Foreground(c)
	}
	if c, ok := lipglossColor(style.BG); ok {
		ls = ls.Background(c)
	}
	return ls.Render(text.String())
}

// lipglossColor converts a cell color to a lipgloss color value.
// Default colors report ok=false and are left unset.
func lipglossColor(c Color) (lipgloss.Color, bool) {
	switch c.Mode {
	case ColorIndexed:
		return lipgloss.Color(strconv.Itoa(int(c.Index))), true
	case ColorRGB:
		return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)), true
	}
	return "", false
}
