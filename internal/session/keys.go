package session

import (
	"fmt"
	"strings"

	"github.com/termpilot/termpilot/internal/errors"
)

// keySequences maps logical key names to the byte sequences written to the
// PTY. Names are matched case-insensitively after normalization.
var keySequences = map[string][]byte{
	"enter":     {'\r'},
	"return":    {'\r'},
	"tab":       {'\t'},
	"backspace": {0x7f},
	"delete":    []byte("\x1b[3~"),
	"escape":    {0x1b},
	"esc":       {0x1b},
	"space":     {' '},
	"up":        []byte("\x1b[A"),
	"down":      []byte("\x1b[B"),
	"right":     []byte("\x1b[C"),
	"left":      []byte("\x1b[D"),
	"home":      []byte("\x1b[H"),
	"end":       []byte("\x1b[F"),
	"pageup":    []byte("\x1b[5~"),
	"pagedown":  []byte("\x1b[6~"),
	"insert":    []byte("\x1b[2~"),
	"f1":        []byte("\x1bOP"),
	"f2":        []byte("\x1bOQ"),
	"f3":        []byte("\x1bOR"),
	"f4":        []byte("\x1bOS"),
	"f5":        []byte("\x1b[15~"),
	"f6":        []byte("\x1b[17~"),
	"f7":        []byte("\x1b[18~"),
	"f8":        []byte("\x1b[19~"),
	"f9":        []byte("\x1b[20~"),
	"f10":       []byte("\x1b[21~"),
	"f11":       []byte("\x1b[23~"),
	"f12":       []byte("\x1b[24~"),
}

// EncodeKey converts a logical key name into the bytes a terminal would
// send for it. Supported forms:
//
//   - named keys: "enter", "tab", "up", "f5", ...
//   - control chords: "ctrl+c", "ctrl+z" (any single letter a-z)
//   - alt chords: "alt+x" (ESC prefix)
//   - single printable characters: "a", "?", "1"
//
// Unknown names return ErrInvalidKey.
func EncodeKey(name string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty key name", errors.ErrInvalidKey)
	}

	normalized := strings.ToLower(strings.TrimSpace(name))

	if seq, ok := keySequences[normalized]; ok {
		return seq, nil
	}

	if rest, ok := strings.CutPrefix(normalized, "ctrl+"); ok {
		if len(rest) == 1 && rest[0] >= 'a' && rest[0] <= 'z' {
			return []byte{rest[0] - 'a' + 1}, nil
		}
		return nil, fmt.Errorf("%w: %q", errors.ErrInvalidKey, name)
	}

	if rest, ok := strings.CutPrefix(normalized, "alt+"); ok {
		if len(rest) == 1 {
			return []byte{0x1b, rest[0]}, nil
		}
		return nil, fmt.Errorf("%w: %q", errors.ErrInvalidKey, name)
	}

	// Single printable character, sent verbatim with original casing.
	runes := []rune(strings.TrimSpace(name))
	if len(runes) == 1 && runes[0] >= ' ' {
		return []byte(string(runes[0])), nil
	}

	return nil, fmt.Errorf("%w: %q", errors.ErrInvalidKey, name)
}
