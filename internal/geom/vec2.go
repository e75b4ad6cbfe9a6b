// Package geom holds the 2D math primitives shared by the area simulation:
// vectors, axis-aligned rectangles, and wire colors.
package geom

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
)

// Vec2 is a two-component float32 vector used for positions, velocities, and
// directions.
type Vec2 struct {
	X, Y float32
}

// Add returns the component-wise sum.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns the component-wise difference.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v scaled by s.
func (v Vec2) Scale(s float32) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Dot returns the dot product.
func (v Vec2) Dot(o Vec2) float32 { return v.X*o.X + v.Y*o.Y }

// LengthSq returns the squared length, avoiding a sqrt for comparisons.
func (v Vec2) LengthSq() float32 { return v.Dot(v) }

// Length returns the Euclidean length.
func (v Vec2) Length() float32 { return float32(math.Sqrt(float64(v.LengthSq()))) }

// Rotated returns v rotated by radians counter-clockwise.
func (v Vec2) Rotated(radians float32) Vec2 {
	s, c := math.Sincos(float64(radians))
	return Vec2{
		X: v.X*float32(c) - v.Y*float32(s),
		Y: v.X*float32(s) + v.Y*float32(c),
	}
}

// RandomUnit returns a random unit-length vector, uniformly distributed in
// angle.
func RandomUnit() Vec2 {
	theta := rand.Float64() * 2 * math.Pi
	return Vec2{X: float32(math.Cos(theta)), Y: float32(math.Sin(theta))}
}

// DistSq returns the squared distance between two points.
func DistSq(a, b Vec2) float32 {
	return a.Sub(b).LengthSq()
}

// AppendTo appends the little-endian wire form of v (8 bytes: x, y) to buf
// and returns the extended slice.
func (v Vec2) AppendTo(buf []byte) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint32(tmp[0:4], math.Float32bits(v.X))
	binary.LittleEndian.PutUint32(tmp[4:8], math.Float32bits(v.Y))
	return append(buf, tmp[:]...)
}

// DecodeVec2 reads the little-endian wire form of a Vec2 from the front of
// b, returning the value and the remaining bytes.
func DecodeVec2(b []byte) (Vec2, []byte, bool) {
	if len(b) < 8 {
		return Vec2{}, b, false
	}
	x := math.Float32frombits(binary.LittleEndian.Uint32(b[0:4]))
	y := math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))
	return Vec2{X: x, Y: y}, b[8:], true
}
