package geom

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
)

// Rect is an axis-aligned rectangle in area-local coordinates, stored as an
// origin (x, y) and a size (w, h). The Y axis points up: Bottom() is the
// floor of the area (y == Y) and Top() is the ceiling (y == Y+H). Callers
// that need "from the top" placement should read Top() as the larger Y
// value — see DESIGN.md for the convention this resolves versus the
// teacher's ambiguous source.
type Rect struct {
	X, Y, W, H float32
}

// NewRect validates w > 0 and h > 0 per the Rect invariant and returns an
// error otherwise.
func NewRect(x, y, w, h float32) (Rect, error) {
	if w <= 0 || h <= 0 {
		return Rect{}, fmt.Errorf("geom: invalid rect %v x %v, width and height must be positive", w, h)
	}
	return Rect{X: x, Y: y, W: w, H: h}, nil
}

// Left returns the rectangle's minimum X.
func (r Rect) Left() float32 { return r.X }

// Right returns the rectangle's maximum X.
func (r Rect) Right() float32 { return r.X + r.W }

// Bottom returns the rectangle's minimum Y (the floor, Y-up convention).
func (r Rect) Bottom() float32 { return r.Y }

// Top returns the rectangle's maximum Y (the ceiling, Y-up convention).
func (r Rect) Top() float32 { return r.Y + r.H }

// Center returns the rectangle's center point.
func (r Rect) Center() Vec2 {
	return Vec2{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Contains reports whether point p lies within the rectangle, inclusive of
// its edges.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.Left() && p.X <= r.Right() && p.Y >= r.Bottom() && p.Y <= r.Top()
}

// ContainsCircle reports whether a disc of the given center and radius lies
// entirely inside the rectangle, edges inclusive (the circle's bounding box
// lies within r). The portal and wall hit tests use OverlapsCircle below
// instead.
func (r Rect) ContainsCircle(center Vec2, radius float32) bool {
	return center.X-radius >= r.Left() && center.X+radius <= r.Right() &&
		center.Y-radius >= r.Bottom() && center.Y+radius <= r.Top()
}

// OverlapsCircle reports whether a disc of the given center and radius
// overlaps the rectangle at all, using the standard clamped-corner test:
// clamp the circle's center into the box, then compare the distance from
// the clamped point to the center against the radius. This is the test
// portal detection and wall/safe-zone collision use.
func (r Rect) OverlapsCircle(center Vec2, radius float32) bool {
	clampedX := clamp(center.X, r.Left(), r.Right())
	clampedY := clamp(center.Y, r.Bottom(), r.Top())
	dx := center.X - clampedX
	dy := center.Y - clampedY
	// Strict: a circle exactly tangent to a face does not overlap, so a hero
	// spawned flush against a wall is not pushed out.
	return dx*dx+dy*dy < radius*radius
}

// Penetration returns the signed overlap depth on each axis between a disc
// of the given center/radius and the rectangle, used by wall/safe-zone
// resolution to pick the dominant axis and push-out distance. A positive
// value means the disc penetrates the box along that axis; the caller
// should only trust these when OverlapsCircle is true.
func (r Rect) Penetration(center Vec2, radius float32) (dx, dy float32) {
	// Distance from the circle center to the box center, used to decide
	// which face is nearer.
	c := r.Center()
	halfW, halfH := r.W/2, r.H/2
	dx = halfW + radius - absf(center.X-c.X)
	dy = halfH + radius - absf(center.Y-c.Y)
	return dx, dy
}

// RandomInside returns a uniformly random point inside the rectangle.
func (r Rect) RandomInside() Vec2 {
	return Vec2{
		X: r.X + rand.Float32()*r.W,
		Y: r.Y + rand.Float32()*r.H,
	}
}

// AppendTo appends the little-endian 16-byte wire form of r (x, y, w, h) to
// buf and returns the extended slice.
func (r Rect) AppendTo(buf []byte) []byte {
	var tmp [16]byte
	binary.LittleEndian.PutUint32(tmp[0:4], math.Float32bits(r.X))
	binary.LittleEndian.PutUint32(tmp[4:8], math.Float32bits(r.Y))
	binary.LittleEndian.PutUint32(tmp[8:12], math.Float32bits(r.W))
	binary.LittleEndian.PutUint32(tmp[12:16], math.Float32bits(r.H))
	return append(buf, tmp[:]...)
}

// DecodeRect reads the 16-byte little-endian wire form of a Rect from the
// front of b, returning the value and the remaining bytes.
func DecodeRect(b []byte) (Rect, []byte, bool) {
	if len(b) < 16 {
		return Rect{}, b, false
	}
	x := math.Float32frombits(binary.LittleEndian.Uint32(b[0:4]))
	y := math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))
	w := math.Float32frombits(binary.LittleEndian.Uint32(b[8:12]))
	h := math.Float32frombits(binary.LittleEndian.Uint32(b[12:16]))
	return Rect{X: x, Y: y, W: w, H: h}, b[16:], true
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
