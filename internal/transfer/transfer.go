// Package transfer defines the cross-area transfer request passed from
// portal detection (or any other caller) to the orchestrator's transfer
// queue (spec.md §3, §4.3). It is a separate package from area and
// orchestrator so both can depend on it without an import cycle.
package transfer

import "evadearena/internal/geom"

// TargetKind selects how a Request's destination area is resolved.
type TargetKind int

const (
	// TargetSpawn sends the player back to the orchestrator's configured
	// spawn area.
	TargetSpawn TargetKind = iota
	// TargetMapStart sends the player to a named map's configured start
	// area.
	TargetMapStart
	// TargetArea sends the player to a specific, already-resolved area key.
	TargetArea
)

// Target is a Request's destination area, in one of the forms spec.md §3
// lists. AreaKey/MapID fields are plain strings/ints here (not area.Key) to
// avoid an import cycle between transfer and area; orchestrator converts.
type Target struct {
	Kind  TargetKind
	MapID string // valid when Kind == TargetMapStart
	Area  AreaKey // valid when Kind == TargetArea
}

// AreaKey mirrors area.Key's shape without importing the area package.
type AreaKey struct {
	MapID string
	Order uint16
}

// PosKind selects how one axis of a TargetPos is computed against the
// destination area's bounds.
type PosKind int

const (
	PosFromLeft PosKind = iota
	PosFromRight
	PosCenter
	PosResolved // value is already an absolute coordinate
)

// PosAxis is one axis (X or Y) of a target position.
type PosAxis struct {
	Kind  PosKind
	Value float32
}

// TargetPos expresses a desired post-transfer position relative to the
// destination's bounds, independently per axis (spec.md §3).
type TargetPos struct {
	X, Y PosAxis
}

// Resolved returns a TargetPos pinned to an absolute point on both axes.
func Resolved(p geom.Vec2) TargetPos {
	return TargetPos{
		X: PosAxis{Kind: PosResolved, Value: p.X},
		Y: PosAxis{Kind: PosResolved, Value: p.Y},
	}
}

// Request is one queued cross-area transfer (spec.md §3 TransferRequest).
type Request struct {
	PlayerID  uint64
	Target    Target
	TargetPos *TargetPos // nil means "use the destination's spawn position"
}
