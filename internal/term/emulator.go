package term

import (
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// parser states for the escape-sequence state machine.
type parseState int

const (
	stateGround parseState = iota
	stateEscape
	stateCSI
	stateOSC
	stateString // DCS, SOS, PM, APC: consumed and discarded
	stateCharset
)

// Emulator maintains the styled character grid for one child process.
// It is not safe for concurrent use; sessions serialize access through
// their guard.
type Emulator struct {
	cols int
	rows int

	cells [][]Cell

	cur      Cursor
	savedCur Cursor
	pen      Style

	// Scroll region, zero-based inclusive.
	scrollTop    int
	scrollBottom int

	// pendingWrap defers the wrap after writing into the last column, the
	// way hardware terminals do, so a trailing newline does not double-wrap.
	pendingWrap bool

	// scrollback holds rows scrolled off the top, newest last, bounded by
	// maxScrollback. Used only to restore viewport content across resizes.
	scrollback    [][]Cell
	maxScrollback int

	// Parser state.
	state     parseState
	partial   []byte // incomplete UTF-8 rune split across Process calls
	csiBuf    []byte
	oscBuf    []byte
	stringEsc bool // saw ESC inside an OSC/string, expecting terminator

	// renderer carries the forced color profile for Render, threaded
	// explicitly instead of relying on lipgloss's TTY-detected default.
	renderer *lipgloss.Renderer
}

// DefaultScrollback is the bounded history depth in lines.
const DefaultScrollback = 1000

// NewEmulator creates an emulator with the given dimensions and the default
// scrollback bound. Dimensions below 1 are raised to 1.
func NewEmulator(cols, rows int) *Emulator {
	return NewEmulatorWithScrollback(cols, rows, DefaultScrollback)
}

// NewEmulatorWithScrollback creates an emulator with an explicit scrollback
// bound. A bound of 0 disables history.
func NewEmulatorWithScrollback(cols, rows, scrollback int) *Emulator {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	e := &Emulator{
		cols:          cols,
		rows:          rows,
		cur:           Cursor{Visible: true},
		scrollBottom:  rows - 1,
		maxScrollback: scrollback,
		renderer:      newANSIRenderer(),
	}
	e.cells = newGrid(cols, rows)
	return e
}

// newGrid allocates a rows×cols grid of blank cells.
func newGrid(cols, rows int) [][]Cell {
	grid := make([][]Cell, rows)
	for r := range grid {
		grid[r] = blankRow(cols)
	}
	return grid
}

// blankRow allocates one row of blank cells.
func blankRow(cols int) []Cell {
	row := make([]Cell, cols)
	for c := range row {
		row[c] = Cell{Rune: ' '}
	}
	return row
}

// Size returns the current grid dimensions.
func (e *Emulator) Size() (cols, rows int) {
	return e.cols, e.rows
}

// Cursor returns the current cursor state.
func (e *Emulator) Cursor() Cursor {
	return e.cur
}

// Snapshot returns a fresh copy of the grid and cursor.
func (e *Emulator) Snapshot() Snapshot {
	cells := make([][]Cell, e.rows)
	for r := range cells {
		cells[r] = make([]Cell, e.cols)
		copy(cells[r], e.cells[r])
	}
	return Snapshot{
		Cols:   e.cols,
		Rows:   e.rows,
		Cells:  cells,
		Cursor: e.cur,
	}
}

// Process feeds raw child output through the escape-sequence state machine.
// Parsing is best effort: malformed or unsupported sequences are absorbed
// without error.
func (e *Emulator) Process(p []byte) {
	if len(e.partial) > 0 {
		p = append(append([]byte(nil), e.partial...), p...)
		e.partial = nil
	}

	for i := 0; i < len(p); {
		b := p[i]

		switch e.state {
		case stateGround:
			switch {
			case b == 0x1b:
				e.state = stateEscape
				i++
			case b < 0x20 || b == 0x7f:
				e.control(b)
				i++
			case b < utf8.RuneSelf:
				e.print(rune(b))
				i++
			default:
				r, size := utf8.DecodeRune(p[i:])
				if r == utf8.RuneError && size == 1 {
					if !utf8.FullRune(p[i:]) {
						// Rune split across chunks: stash and resume
						// on the next Process call.
						e.partial = append(e.partial, p[i:]...)
						return
					}
					// Genuinely invalid byte: drop it.
					i++
					continue
				}
				e.print(r)
				i += size
			}

		case stateEscape:
			i++
			switch b {
			case '[':
				e.csiBuf = e.csiBuf[:0]
				e.state = stateCSI
			case ']':
				e.oscBuf = e.oscBuf[:0]
				e.stringEsc = false
				e.state = stateOSC
			case 'P', 'X', '^', '_':
				e.stringEsc = false
				e.state = stateString
			case '(', ')', '*', '+':
				e.state = stateCharset
			case '7':
				e.savedCur = e.cur
				e.state = stateGround
			case '8':
				e.cur = e.savedCur
				e.clampCursor()
				e.state = stateGround
			case 'D': // IND
				e.lineFeed()
				e.state = stateGround
			case 'E': // NEL
				e.lineFeed()
				e.cur.Col = 0
				e.state = stateGround
			case 'M': // RI
				e.reverseIndex()
				e.state = stateGround
			case 'c': // RIS
				e.reset()
				e.state = stateGround
			case 0x1b:
				// Stay in escape state on repeated ESC.
			default:
				e.state = stateGround
			}

		case stateCSI:
			i++
			if b >= 0x40 && b <= 0x7e {
				e.dispatchCSI(b)
				e.state = stateGround
			} else if b == 0x1b {
				// Aborted sequence.
				e.state = stateEscape
			} else if b < 0x20 {
				// Control bytes inside CSI execute immediately.
				e.control(b)
			} else if len(e.csiBuf) < 64 {
				e.csiBuf = append(e.csiBuf, b)
			}

		case stateOSC:
			i++
			switch {
			case b == 0x07:
				e.state = stateGround
			case b == 0x1b:
				e.stringEsc = true
			case e.stringEsc && b == '\\':
				e.state = stateGround
			case e.stringEsc:
				e.stringEsc = false
			default:
				if len(e.oscBuf) < 1024 {
					e.oscBuf = append(e.oscBuf, b)
				}
			}

		case stateString:
			i++
			switch {
			case b == 0x07:
				e.state = stateGround
			case b == 0x1b:
				e.stringEsc = true
			case e.stringEsc && b == '\\':
				e.state = stateGround
			case e.stringEsc:
				e.stringEsc = false
			}

		case stateCharset:
			// Charset designation: consume the single designator byte.
			i++
			e.state = stateGround
		}
	}
}

// control handles C0 bytes.
func (e *Emulator) control(b byte) {
	switch b {
	case '\r':
		e.cur.Col = 0
		e.pendingWrap = false
	case '\n', '\v', '\f':
		e.lineFeed()
	case '\b':
		if e.cur.Col > 0 {
			e.cur.Col--
		}
		e.pendingWrap = false
	case '\t':
		next := (e.cur.Col/8 + 1) * 8
		if next > e.cols-1 {
			next = e.cols - 1
		}
		e.cur.Col = next
		e.pendingWrap = false
	}
	// BEL, NUL and the rest are ignored.
}

// print writes one rune at the cursor, handling autowrap and wide runes.
func (e *Emulator) print(r rune) {
	width := runewidth.RuneWidth(r)
	if width == 0 {
		// Combining marks attach to the previous cell; the grid model
		// drops them.
		return
	}

	if e.pendingWrap || e.cur.Col+width > e.cols {
		e.cur.Col = 0
		e.pendingWrap = false
		e.lineFeed()
	}

	e.cells[e.cur.Row][e.cur.Col] = Cell{Rune: r, Style: e.pen}
	if width == 2 && e.cur.Col+1 < e.cols {
		e.cells[e.cur.Row][e.cur.Col+1] = Cell{Rune: 0, Style: e.pen}
	}

	if e.cur.Col+width >= e.cols {
		e.cur.Col = e.cols - 1
		e.pendingWrap = true
	} else {
		e.cur.Col += width
	}
}

// lineFeed moves the cursor down one row, scrolling the region when the
// cursor sits on the bottom margin.
func (e *Emulator) lineFeed() {
	e.pendingWrap = false
	if e.cur.Row == e.scrollBottom {
		e.scrollUp(1)
		return
	}
	if e.cur.Row < e.rows-1 {
		e.cur.Row++
	}
}

// reverseIndex moves the cursor up one row, scrolling down at the top margin.
func (e *Emulator) reverseIndex() {
	e.pendingWrap = false
	if e.cur.Row == e.scrollTop {
		e.scrollDown(1)
		return
	}
	if e.cur.Row > 0 {
		e.cur.Row--
	}
}

// scrollUp shifts the scroll region up n lines. Rows leaving the top of the
// screen are appended to the bounded scrollback.
func (e *Emulator) scrollUp(n int) {
	if n < 1 {
		n = 1
	}
	for ; n > 0; n-- {
		if e.scrollTop == 0 {
			e.pushScrollback(e.cells[0])
		}
		copy(e.cells[e.scrollTop:e.scrollBottom], e.cells[e.scrollTop+1:e.scrollBottom+1])
		e.cells[e.scrollBottom] = blankRow(e.cols)
	}
}

// scrollDown shifts the scroll region down n lines.
func (e *Emulator) scrollDown(n int) {
	if n < 1 {
		n = 1
	}
	for ; n > 0; n-- {
		copy(e.cells[e.scrollTop+1:e.scrollBottom+1], e.cells[e.scrollTop:e.scrollBottom])
		e.cells[e.scrollTop] = blankRow(e.cols)
	}
}

// pushScrollback stores a copy of a row in the bounded history.
func (e *Emulator) pushScrollback(row []Cell) {
	if e.maxScrollback == 0 {
		return
	}
	saved := make([]Cell, len(row))
	copy(saved, row)
	e.scrollback = append(e.scrollback, saved)
	if len(e.scrollback) > e.maxScrollback {
		e.scrollback = e.scrollback[len(e.scrollback)-e.maxScrollback:]
	}
}

// popScrollback removes and returns the most recent history row, resized to
// the current width. Returns nil when the history is empty.
func (e *Emulator) popScrollback() []Cell {
	if len(e.scrollback) == 0 {
		return nil
	}
	row := e.scrollback[len(e.scrollback)-1]
	e.scrollback = e.scrollback[:len(e.scrollback)-1]

	out := blankRow(e.cols)
	copy(out, row)
	return out
}

// reset restores the power-on state, dropping grid content and scrollback.
func (e *Emulator) reset() {
	e.cells = newGrid(e.cols, e.rows)
	e.cur = Cursor{Visible: true}
	e.savedCur = Cursor{}
	e.pen = Style{}
	e.scrollTop = 0
	e.scrollBottom = e.rows - 1
	e.pendingWrap = false
	e.scrollback = nil
}

// clampCursor keeps the cursor inside the grid.
func (e *Emulator) clampCursor() {
	if e.cur.Row < 0 {
		e.cur.Row = 0
	}
	if e.cur.Row > e.rows-1 {
		e.cur.Row = e.rows - 1
	}
	if e.cur.Col < 0 {
		e.cur.Col = 0
	}
	if e.cur.Col > e.cols-1 {
		e.cur.Col = e.cols - 1
	}
}

// Resize changes the grid dimensions, preserving as much content as the new
// size allows. Shrinking the row count pushes top rows into scrollback so
// the cursor line stays visible; growing pulls history back in.
func (e *Emulator) Resize(cols, rows int) {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	if cols == e.cols && rows == e.rows {
		return
	}

	// Adjust widths first.
	if cols != e.cols {
		for r := range e.cells {
			row := blankRow(cols)
			copy(row, e.cells[r])
			e.cells[r] = row
		}
		e.cols = cols
	}

	switch {
	case rows < e.rows:
		// Drop rows from the top into scrollback until the cursor fits,
		// then truncate blank rows from the bottom.
		drop := e.rows - rows
		fromTop := e.cur.Row - (rows - 1)
		if fromTop < 0 {
			fromTop = 0
		}
		if fromTop > drop {
			fromTop = drop
		}
		for i := 0; i < fromTop; i++ {
			e.pushScrollback(e.cells[0])
			e.cells = e.cells[1:]
			e.cur.Row--
		}
		e.cells = e.cells[:rows]
	case rows > e.rows:
		grow := rows - e.rows
		for i := 0; i < grow; i++ {
			if row := e.popScrollback(); row != nil {
				e.cells = append([][]Cell{row}, e.cells...)
				e.cur.Row++
			} else {
				e.cells = append(e.cells, blankRow(e.cols))
			}
		}
	}

	e.rows = rows
	e.scrollTop = 0
	e.scrollBottom = rows - 1
	e.pendingWrap = false
	e.clampCursor()
}
