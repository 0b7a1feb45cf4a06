package term

import (
	"strconv"
	"strings"
)

// csiParams splits the buffered parameter bytes into integers. Missing or
// unparsable parameters become def. SGR sub-parameter colons are treated as
// separators, which is sufficient for the styling subset supported here.
func csiParams(buf []byte, def int) (params []int, private bool) {
	s := string(buf)
	if strings.HasPrefix(s, "?") {
		private = true
		s = s[1:]
	}
	// Strip intermediate bytes some terminals emit (e.g. space before q).
	s = strings.Map(func(r rune) rune {
		if r >= 0x20 && r <= 0x2f {
			return -1
		}
		return r
	}, s)

	if s == "" {
		return []int{def}, private
	}
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ':' })
	if len(fields) == 0 {
		return []int{def}, private
	}
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			n = def
		}
		params = append(params, n)
	}
	return params, private
}

// param returns params[i], or def when absent or zero.
func param(params []int, i, def int) int {
	if i >= len(params) || params[i] == 0 {
		return def
	}
	return params[i]
}

// dispatchCSI executes one complete CSI sequence. Unsupported finals are
// absorbed silently.
func (e *Emulator) dispatchCSI(final byte) {
	params, private := csiParams(e.csiBuf, 0)

	if private {
		e.dispatchPrivate(final, params)
		return
	}

	switch final {
	case 'A': // CUU
		e.cur.Row -= param(params, 0, 1)
		e.pendingWrap = false
		e.clampCursor()
	case 'B': // CUD
		e.cur.Row += param(params, 0, 1)
		e.pendingWrap = false
		e.clampCursor()
	case 'C': // CUF
		e.cur.Col += param(params, 0, 1)
		e.pendingWrap = false
		e.clampCursor()
	case 'D': // CUB
		e.cur.Col -= param(params, 0, 1)
		e.pendingWrap = false
		e.clampCursor()
	case 'E': // CNL
		e.cur.Row += param(params, 0, 1)
		e.cur.Col = 0
		e.pendingWrap = false
		e.clampCursor()
	case 'F': // CPL
		e.cur.Row -= param(params, 0, 1)
		e.cur.Col = 0
		e.pendingWrap = false
		e.clampCursor()
	case 'G', '`': // CHA, HPA
		e.cur.Col = param(params, 0, 1) - 1
		e.pendingWrap = false
		e.clampCursor()
	case 'H', 'f': // CUP, HVP
		e.cur.Row = param(params, 0, 1) - 1
		e.cur.Col = param(params, 1, 1) - 1
		e.pendingWrap = false
		e.clampCursor()
	case 'd': // VPA
		e.cur.Row = param(params, 0, 1) - 1
		e.pendingWrap = false
		e.clampCursor()
	case 'J':
		e.eraseDisplay(params[0])
	case 'K':
		e.eraseLine(params[0])
	case 'L': // IL
		e.insertLines(param(params, 0, 1))
	case 'M': // DL
		e.deleteLines(param(params, 0, 1))
	case '@': // ICH
		e.insertChars(param(params, 0, 1))
	case 'P': // DCH
		e.deleteChars(param(params, 0, 1))
	case 'X': // ECH
		e.eraseChars(param(params, 0, 1))
	case 'S': // SU
		e.scrollUp(param(params, 0, 1))
	case 'T': // SD
		e.scrollDown(param(params, 0, 1))
	case 'r': // DECSTBM
		top := param(params, 0, 1) - 1
		bottom := param(params, 1, e.rows) - 1
		if top < 0 {
			top = 0
		}
		if bottom > e.rows-1 {
			bottom = e.rows - 1
		}
		if top < bottom {
			e.scrollTop = top
			e.scrollBottom = bottom
			e.cur = Cursor{Visible: e.cur.Visible}
		}
	case 'm':
		e.applySGR(params)
	case 's':
		e.savedCur = e.cur
	case 'u':
		e.cur = e.savedCur
		e.clampCursor()
	}
}

// dispatchPrivate handles DEC private mode sets and resets.
func (e *Emulator) dispatchPrivate(final byte, params []int) {
	if final != 'h' && final != 'l' {
		return
	}
	set := final == 'h'
	for _, p := range params {
		switch p {
		case 25: // DECTCEM
			e.cur.Visible = set
		case 47, 1047, 1049:
			// Alternate screen buffers are not modeled; a switch in
			// either direction presents a cleared viewport, which is
			// what full-screen applications repaint into anyway.
			e.eraseDisplay(2)
			e.cur.Row = 0
			e.cur.Col = 0
			e.pendingWrap = false
		}
		// Bracketed paste, mouse reporting and the rest are absorbed.
	}
}

// eraseDisplay implements ED. Mode 3 (clear including scrollback) is folded
// into mode 2.
func (e *Emulator) eraseDisplay(mode int) {
	switch mode {
	case 0: // cursor to end
		e.eraseLine(0)
		for r := e.cur.Row + 1; r < e.rows; r++ {
			e.cells[r] = blankRow(e.cols)
		}
	case 1: // start to cursor
		e.eraseLine(1)
		for r := 0; r < e.cur.Row; r++ {
			e.cells[r] = blankRow(e.cols)
		}
	case 2, 3:
		for r := 0; r < e.rows; r++ {
			e.cells[r] = blankRow(e.cols)
		}
	}
	e.pendingWrap = false
}

// eraseLine implements EL.
func (e *Emulator) eraseLine(mode int) {
	row := e.cells[e.cur.Row]
	switch mode {
	case 0: // cursor to end of line
		for c := e.cur.Col; c < e.cols; c++ {
			row[c] = blank(e.pen)
		}
	case 1: // start of line to cursor
		for c := 0; c <= e.cur.Col && c < e.cols; c++ {
			row[c] = blank(e.pen)
		}
	case 2:
		for c := 0; c < e.cols; c++ {
			row[c] = blank(e.pen)
		}
	}
	e.pendingWrap = false
}

// insertLines shifts rows below the cursor down within the scroll region.
func (e *Emulator) insertLines(n int) {
	if e.cur.Row < e.scrollTop || e.cur.Row > e.scrollBottom {
		return
	}
	for ; n > 0; n-- {
		copy(e.cells[e.cur.Row+1:e.scrollBottom+1], e.cells[e.cur.Row:e.scrollBottom])
		e.cells[e.cur.Row] = blankRow(e.cols)
	}
	e.cur.Col = 0
	e.pendingWrap = false
}

// deleteLines removes rows at the cursor within the scroll region.
func (e *Emulator) deleteLines(n int) {
	if e.cur.Row < e.scrollTop || e.cur.Row > e.scrollBottom {
		return
	}
	for ; n > 0; n-- {
		copy(e.cells[e.cur.Row:e.scrollBottom], e.cells[e.cur.Row+1:e.scrollBottom+1])
		e.cells[e.scrollBottom] = blankRow(e.cols)
	}
	e.cur.Col = 0
	e.pendingWrap = false
}

// insertChars shifts the rest of the line right, inserting blanks.
func (e *Emulator) insertChars(n int) {
	row := e.cells[e.cur.Row]
	if n > e.cols-e.cur.Col {
		n = e.cols - e.cur.Col
	}
	copy(row[e.cur.Col+n:], row[e.cur.Col:e.cols-n])
	for c := e.cur.Col; c < e.cur.Col+n; c++ {
		row[c] = blank(e.pen)
	}
}

// deleteChars shifts the rest of the line left over the cursor.
func (e *Emulator) deleteChars(n int) {
	row := e.cells[e.cur.Row]
	if n > e.cols-e.cur.Col {
		n = e.cols - e.cur.Col
	}
	copy(row[e.cur.Col:], row[e.cur.Col+n:])
	for c := e.cols - n; c < e.cols; c++ {
		row[c] = blank(e.pen)
	}
}

// eraseChars blanks n cells starting at the cursor without shifting.
func (e *Emulator) eraseChars(n int) {
	row := e.cells[e.cur.Row]
	for c := e.cur.Col; c < e.cur.Col+n && c < e.cols; c++ {
		row[c] = blank(e.pen)
	}
}

// applySGR updates the pen from an SGR parameter list.
func (e *Emulator) applySGR(params []int) {
	if len(params) == 0 {
		params = []int{0}
	}

	for i := 0; i < len(params); i++ {
		p := params[i]
		switch {
		case p == 0:
			e.pen = Style{}
		case p == 1:
			e.pen.Bold = true
		case p == 4:
			e.pen.Underline = true
		case p == 7:
			e.pen.Inverse = true
		case p == 22:
			e.pen.Bold = false
		case p == 24:
			e.pen.Underline = false
		case p == 27:
			e.pen.Inverse = false
		case p >= 30 && p <= 37:
			e.pen.FG = Indexed(uint8(p - 30))
		case p == 38:
			if color, skip, ok := extendedColor(params[i+1:]); ok {
				e.pen.FG = color
				i += skip
			} else {
				return // malformed extended color: drop the rest
			}
		case p == 39:
			e.pen.FG = Color{}
		case p >= 40 && p <= 47:
			e.pen.BG = Indexed(uint8(p - 40))
		case p == 48:
			if color, skip, ok := extendedColor(params[i+1:]); ok {
				e.pen.BG = color
				i += skip
			} else {
				return
			}
		case p == 49:
			e.pen.BG = Color{}
		case p >= 90 && p <= 97:
			e.pen.FG = Indexed(uint8(p - 90 + 8))
		case p >= 100 && p <= 107:
			e.pen.BG = Indexed(uint8(p - 100 + 8))
		}
	}
}

// extendedColor decodes the 5;n (indexed) and 2;r;g;b (direct) forms that
// follow SGR 38/48. Returns the color, the number of consumed parameters,
// and whether decoding succeeded.
func extendedColor(rest []int) (Color, int, bool) {
	if len(rest) == 0 {
		return Color{}, 0, false
	}
	switch rest[0] {
	case 5:
		if len(rest) < 2 {
			return Color{}, 0, false
		}
		return Indexed(uint8(rest[1] & 0xff)), 2, true
	case 2:
		if len(rest) < 4 {
			return Color{}, 0, false
		}
		return RGB(uint8(rest[1]&0xff), uint8(rest[2]&0xff), uint8(rest[3]&0xff)), 4, true
	}
	return Color{}, 0, false
}
