package vom

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/termpilot/termpilot/internal/term"
	"github.com/zeebo/blake3"
)

// visualHash computes a content+style+position hash for a component. Equal
// hashes across refreshes mean "the same element is still there"; the wait
// engine and callers use them for identity and change detection.
func visualHash(bounds Rect, text string, style term.Style) string {
	h := blake3.New()

	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(bounds.X))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(bounds.Y))
	h.Write(buf[:])
	binary.LittleEndian.PutUint32(buf[0:4], uint32(bounds.W))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(bounds.H))
	h.Write(buf[:])

	h.Write([]byte(text))

	var styleByte byte
	if style.Bold {
		styleByte |= 1
	}
	if style.Underline {
		styleByte |= 2
	}
	if style.Inverse {
		styleByte |= 4
	}
	h.Write([]byte{styleByte, byte(style.FG.Mode), style.FG.Index, style.FG.R, style.FG.G, style.FG.B,
		byte(style.BG.Mode), style.BG.Index, style.BG.R, style.BG.G, style.BG.B})

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}

// ContentHash hashes arbitrary screen text. The wait engine feeds these into
// its stability tracker.
func ContentHash(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:8])
}
