package vom

import (
	"regexp"
	"strings"
)

// PatternKind identifies what a framework detector extracted from a row.
type PatternKind int

const (
	PatternSpinner PatternKind = iota
	PatternSelect
	PatternCheckbox
	PatternConfirm
	PatternHelpKey
	PatternProgressBar
	PatternSparkline
	PatternPercentage
)

// PatternMatch is one framework-specific element found by string scanning.
type PatternMatch struct {
	Kind    PatternKind
	Label   string
	Value   string
	Row     int
	Col     int
	Width   int
	Checked bool
}

// DetectContext is the screen view detectors scan: plain-text rows plus the
// cursor position.
type DetectContext struct {
	Lines     []string
	CursorRow int
	CursorCol int
}

// Detector is one framework heuristic. Detectors are a closed set dispatched
// through the ordered slice below rather than an open interface: the chain
// is fixed and first LooksLike wins for the whole screen.
type Detector struct {
	name           string
	priority       int
	looksLike      func(ctx *DetectContext) bool
	detectPatterns func(ctx *DetectContext) []PatternMatch
}

// Name returns the framework name.
func (d *Detector) Name() string { return d.name }

// Priority breaks ties when matches from different detectors overlap.
func (d *Detector) Priority() int { return d.priority }

// LooksLike is the cheap whole-screen heuristic.
func (d *Detector) LooksLike(ctx *DetectContext) bool { return d.looksLike(ctx) }

// DetectPatterns extracts element matches from every row.
func (d *Detector) DetectPatterns(ctx *DetectContext) []PatternMatch {
	return d.detectPatterns(ctx)
}

// detectors is the fixed evaluation order, most specific first.
var detectors = []*Detector{
	{"inquirer", 60, inquirerLooksLike, inquirerPatterns},
	{"ink", 50, inkLooksLike, inkPatterns},
	{"bubbletea", 40, bubbleteaLooksLike, bubbleteaPatterns},
	{"textual", 30, textualLooksLike, textualPatterns},
	{"ratatui", 20, ratatuiLooksLike, ratatuiPatterns},
	{"generic", 10, genericLooksLike, genericPatterns},
}

// DetectFramework picks the first detector whose LooksLike fires and
// returns it along with its deduplicated matches.
func DetectFramework(ctx *DetectContext) (*Detector, []PatternMatch) {
	for _, d := range detectors {
		if d.LooksLike(ctx) {
			return d, dedupMatches(d.DetectPatterns(ctx), d.Priority())
		}
	}
	last := detectors[len(detectors)-1]
	return last, nil
}

// dedupMatches drops matches that overlap the row/column span of an earlier
// (higher-priority) match. Matches from a single detector share a priority,
// so order within the slice decides.
func dedupMatches(matches []PatternMatch, _ int) []PatternMatch {
	kept := matches[:0]
	for _, m := range matches {
		overlaps := false
		for _, k := range kept {
			if m.Row == k.Row && m.Col < k.Col+k.Width && k.Col < m.Col+m.Width {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, m)
		}
	}
	return kept
}

// spinnerGlyphs covers the braille and quarter-circle spinners Ink and
// Inquirer animate. ASCII spinners (|/-\) are deliberately excluded: they
// collide with too much ordinary screen text.
const spinnerGlyphs = "⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏◐◓◑◒"

var (
	inquirerPromptRE = regexp.MustCompile(`^\? .+`)
	confirmRE        = regexp.MustCompile(`\((?:y/N|Y/n|yes/no)\)`)
	percentRE        = regexp.MustCompile(`(\d{1,3})%`)
	progressRE       = regexp.MustCompile(`[▰▱█░▓▒=#]{4,}`)
	sparklineRE      = regexp.MustCompile(`[▁▂▃▄▅▆▇█]{3,}`)
	helpKeyRE        = regexp.MustCompile(`([a-zA-Z?/]|ctrl\+[a-z]|esc|enter|tab|↑/↓|←/→)\s+[a-z][a-z ]+`)
)

func containsSpinner(line string) (int, bool) {
	for i, r := range line {
		if strings.ContainsRune(spinnerGlyphs, r) {
			return i, true
		}
	}
	return 0, false
}

// --- Inquirer ---------------------------------------------------------

func inquirerLooksLike(ctx *DetectContext) bool {
	for _, line := range ctx.Lines {
		if inquirerPromptRE.MatchString(line) {
			return true
		}
	}
	return false
}

func inquirerPatterns(ctx *DetectContext) []PatternMatch {
	var out []PatternMatch
	for row, line := range ctx.Lines {
		if inquirerPromptRE.MatchString(line) {
			if loc := confirmRE.FindStringIndex(line); loc != nil {
				out = append(out, PatternMatch{
					Kind:  PatternConfirm,
					Label: strings.TrimSpace(strings.TrimPrefix(line[:loc[0]], "? ")),
					Row:   row, Col: 0, Width: len(line),
				})
				continue
			}
		}
		out = append(out, selectMarkers(row, line)...)
		out = append(out, checkboxMatches(row, line)...)
	}
	return out
}

// --- Ink --------------------------------------------------------------

func inkLooksLike(ctx *DetectContext) bool {
	for _, line := range ctx.Lines {
		if _, ok := containsSpinner(line); ok {
			return true
		}
		if strings.Contains(line, "❯") {
			return true
		}
	}
	return false
}

func inkPatterns(ctx *DetectContext) []PatternMatch {
	var out []PatternMatch
	for row, line := range ctx.Lines {
		if col, ok := containsSpinner(line); ok {
			out = append(out, PatternMatch{
				Kind:  PatternSpinner,
				Label: strings.TrimSpace(line[col+3:]),
				Row:   row, Col: visualCol(line, col), Width: 1,
			})
		}
		out = append(out, selectMarkers(row, line)...)
		out = append(out, progressMatches(row, line)...)
	}
	return out
}

// --- BubbleTea --------------------------------------------------------

func bubbleteaLooksLike(ctx *DetectContext) bool {
	// Bubbles list/viewport footers use a sparse help bar on the last rows.
	for i := len(ctx.Lines) - 1; i >= 0 && i >= len(ctx.Lines)-3; i-- {
		line := strings.ToLower(ctx.Lines[i])
		if strings.Contains(line, "↑/↓") || strings.Contains(line, "q quit") ||
			strings.Contains(line, "esc back") {
			return true
		}
	}
	return false
}

func bubbleteaPatterns(ctx *DetectContext) []PatternMatch {
	var out []PatternMatch
	for row, line := range ctx.Lines {
		if row >= len(ctx.Lines)-3 {
			out = append(out, helpBarMatches(row, line)...)
		}
		out = append(out, selectMarkers(row, line)...)
		out = append(out, progressMatches(row, line)...)
	}
	return out
}

// --- Textual ----------------------------------------------------------

func textualLooksLike(ctx *DetectContext) bool {
	// Textual apps carry a footer of key bindings separated by heavy spacing
	// and a header rule.
	for _, line := range ctx.Lines {
		if strings.Contains(line, "⭘") || strings.Contains(line, "▔") || strings.Contains(line, "▁▁▁") {
			return true
		}
	}
	return false
}

func textualPatterns(ctx *DetectContext) []PatternMatch {
	var out []PatternMatch
	for row, line := range ctx.Lines {
		out = append(out, helpBarMatches(row, line)...)
		out = append(out, progressMatches(row, line)...)
	}
	return out
}

// --- Ratatui ----------------------------------------------------------

func ratatuiLooksLike(ctx *DetectContext) bool {
	heavy := 0
	for _, line := range ctx.Lines {
		for _, r := range line {
			if r >= 0x2500 && r <= 0x257f {
				heavy++
			}
		}
	}
	return heavy >= 8
}

func ratatuiPatterns(ctx *DetectContext) []PatternMatch {
	var out []PatternMatch
	for row, line := range ctx.Lines {
		if loc := sparklineRE.FindStringIndex(line); loc != nil {
			out = append(out, PatternMatch{
				Kind: PatternSparkline,
				Row:  row, Col: visualCol(line, loc[0]),
				Width: len([]rune(line[loc[0]:loc[1]])),
			})
		}
		out = append(out, progressMatches(row, line)...)
		out = append(out, selectMarkers(row, line)...)
	}
	return out
}

// --- Generic ----------------------------------------------------------

func genericLooksLike(*DetectContext) bool { return true }

func genericPatterns(ctx *DetectContext) []PatternMatch {
	var out []PatternMatch
	for row, line := range ctx.Lines {
		out = append(out, progressMatches(row, line)...)
		out = append(out, checkboxMatches(row, line)...)
	}
	return out
}

// --- shared scanners --------------------------------------------------

// visualCol converts a byte offset into a rune column.
func visualCol(line string, byteOff int) int {
	return len([]rune(line[:byteOff]))
}

func selectMarkers(row int, line string) []PatternMatch {
	var out []PatternMatch
	trimmed := strings.TrimLeft(line, " ")
	indent := len(line) - len(trimmed)
	for _, marker := range []string{"❯ ", "> ", "› "} {
		if strings.HasPrefix(trimmed, marker) {
			label := strings.TrimSpace(trimmed[len(marker):])
			if label == "" {
				continue
			}
			out = append(out, PatternMatch{
				Kind:  PatternSelect,
				Label: label,
				Row:   row, Col: indent, Width: len([]rune(trimmed)),
			})
			break
		}
	}
	return out
}

func checkboxMatches(row int, line string) []PatternMatch {
	var out []PatternMatch
	for _, mark := range []struct {
		glyph   string
		checked bool
	}{
		{"◉ ", true}, {"◯ ", false},
		{"[x] ", true}, {"[X] ", true}, {"[ ] ", false},
		{"☑ ", true}, {"☐ ", false},
	} {
		idx := strings.Index(line, mark.glyph)
		if idx < 0 {
			continue
		}
		label := strings.TrimSpace(line[idx+len(mark.glyph):])
		out = append(out, PatternMatch{
			Kind:    PatternCheckbox,
			Label:   label,
			Checked: mark.checked,
			Row:     row, Col: visualCol(line, idx),
			Width: len([]rune(mark.glyph)) + len([]rune(label)),
		})
	}
	return out
}

func progressMatches(row int, line string) []PatternMatch {
	var out []PatternMatch
	if loc := progressRE.FindStringIndex(line); loc != nil {
		m := PatternMatch{
			Kind: PatternProgressBar,
			Row:  row, Col: visualCol(line, loc[0]),
			Width: len([]rune(line[loc[0]:loc[1]])),
		}
		if pct := percentRE.FindStringSubmatch(line); pct != nil {
			m.Value = pct[1]
		}
		out = append(out, m)
	} else if pct := percentRE.FindStringSubmatchIndex(line); pct != nil {
		out = append(out, PatternMatch{
			Kind:  PatternPercentage,
			Value: line[pct[2]:pct[3]],
			Row:   row, Col: visualCol(line, pct[0]),
			Width: pct[1] - pct[0],
		})
	}
	return out
}

func helpBarMatches(row int, line string) []PatternMatch {
	var out []PatternMatch
	for _, idx := range helpKeyRE.FindAllStringIndex(line, -1) {
		text := line[idx[0]:idx[1]]
		key, _, ok := strings.Cut(text, " ")
		if !ok {
			continue
		}
		out = append(out, PatternMatch{
			Kind:  PatternHelpKey,
			Label: key,
			Row:   row, Col: visualCol(line, idx[0]),
			Width: len([]rune(text)),
		})
	}
	return out
}
