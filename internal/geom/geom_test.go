package geom

import "testing"

func TestRectOverlapsCircle(t *testing.T) {
	r, err := NewRect(0, 0, 100, 15)
	if err != nil {
		t.Fatalf("NewRect: %v", err)
	}
	// A hero spawning exactly at a wall's face must not be reported as
	// overlapping (spec.md §8 boundary behavior).
	if r.OverlapsCircle(Vec2{X: -0.5, Y: 7.5}, 0.5) {
		t.Errorf("circle tangent to left edge from outside should not overlap")
	}
	if !r.OverlapsCircle(Vec2{X: 0.4, Y: 7.5}, 0.5) {
		t.Errorf("circle crossing left edge should overlap")
	}
}

func TestRectInvariant(t *testing.T) {
	if _, err := NewRect(0, 0, 0, 5); err == nil {
		t.Errorf("expected error for zero width")
	}
	if _, err := NewRect(0, 0, 5, -1); err == nil {
		t.Errorf("expected error for negative height")
	}
}

func TestRectRoundTrip(t *testing.T) {
	r, err := NewRect(1.5, -2.5, 10, 20)
	if err != nil {
		t.Fatalf("NewRect: %v", err)
	}
	buf := r.AppendTo(nil)
	if len(buf) != 16 {
		t.Fatalf("expected 16 bytes, got %d", len(buf))
	}
	got, rest, ok := DecodeRect(buf)
	if !ok || len(rest) != 0 {
		t.Fatalf("DecodeRect failed: ok=%v rest=%d", ok, len(rest))
	}
	if got != r {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, r)
	}
}

func TestVec2RoundTrip(t *testing.T) {
	v := Vec2{X: 3.25, Y: -7.75}
	buf := v.AppendTo(nil)
	got, rest, ok := DecodeVec2(buf)
	if !ok || len(rest) != 0 || got != v {
		t.Errorf("round trip mismatch: got %+v, ok=%v, rest=%d", got, ok, len(rest))
	}
}

func TestColorParseAndRoundTrip(t *testing.T) {
	c, err := ParseColor("#ff8040")
	if err != nil {
		t.Fatalf("ParseColor: %v", err)
	}
	if c.R != 0xff || c.G != 0x80 || c.B != 0x40 || c.A != 255 {
		t.Errorf("unexpected parse result: %+v", c)
	}

	c2, err := ParseColor("#ff804020")
	if err != nil {
		t.Fatalf("ParseColor with alpha: %v", err)
	}
	if c2.A != 0x20 {
		t.Errorf("expected alpha 0x20, got %#x", c2.A)
	}

	buf := c2.AppendTo(nil)
	got, rest, ok := DecodeColor(buf)
	if !ok || len(rest) != 0 || got != c2 {
		t.Errorf("color round trip mismatch: got %+v", got)
	}

	if _, err := ParseColor("#zzz"); err == nil {
		t.Errorf("expected error for malformed color")
	}
}

func TestDistSq(t *testing.T) {
	a := Vec2{X: 0, Y: 0}
	b := Vec2{X: 3, Y: 4}
	if got := DistSq(a, b); got != 25 {
		t.Errorf("DistSq = %v, want 25", got)
	}
}
