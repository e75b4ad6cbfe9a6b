package geom

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Color is an RGBA color, one byte per channel.
type Color struct {
	R, G, B, A uint8
}

// ParseColor parses a "#rrggbb" or "#rrggbbaa" hex string. Alpha defaults to
// 255 when omitted.
func ParseColor(s string) (Color, error) {
	s = strings.TrimPrefix(s, "#")
	switch len(s) {
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("geom: invalid color %q, want #rrggbb or #rrggbbaa", s)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Color{}, fmt.Errorf("geom: invalid color %q: %w", s, err)
	}
	c := Color{R: raw[0], G: raw[1], B: raw[2], A: 255}
	if len(raw) == 4 {
		c.A = raw[3]
	}
	return c, nil
}

// String renders c as "#rrggbbaa".
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// AppendTo appends the 4-byte wire form (r, g, b, a) of c to buf.
func (c Color) AppendTo(buf []byte) []byte {
	return append(buf, c.R, c.G, c.B, c.A)
}

// DecodeColor reads a 4-byte color from the front of b.
func DecodeColor(b []byte) (Color, []byte, bool) {
	if len(b) < 4 {
		return Color{}, b, false
	}
	return Color{R: b[0], G: b[1], B: b[2], A: b[3]}, b[4:], true
}
