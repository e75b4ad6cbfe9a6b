// Package leaderboard implements the append-only delta stream and the
// materialized state snapshot spec.md §3 and §4.6 describe, plus the wire
// codec for both (spec.md §6).
package leaderboard

// AreaInfo is the area-facing metadata carried on Add/Transfer deltas and
// on state-snapshot entries.
type AreaInfo struct {
	MapID     string
	AreaName  string
	Order     uint16
	TextColor *string // optional hex color string, e.g. "#ffffff"
	Victory   bool
}

// Entry is one player's row in the materialized leaderboard state
// (spec.md §3).
type Entry struct {
	PlayerID   uint64
	PlayerName string
	Downed     bool
	AreaInfo   AreaInfo
}

// DeltaKind discriminates the four delta shapes spec.md §4.6 lists.
type DeltaKind int

const (
	DeltaAdd DeltaKind = iota
	DeltaRemove
	DeltaTransfer
	DeltaSetDowned
)

// Delta is one leaderboard mutation, always keyed by PlayerID.
type Delta struct {
	Kind       DeltaKind
	PlayerID   uint64
	PlayerName string   // DeltaAdd
	Downed     bool     // DeltaAdd, DeltaSetDowned
	AreaInfo   AreaInfo // DeltaAdd, DeltaTransfer
}

func Add(playerID uint64, name string, downed bool, info AreaInfo) Delta {
	return Delta{Kind: DeltaAdd, PlayerID: playerID, PlayerName: name, Downed: downed, AreaInfo: info}
}

func Remove(playerID uint64) Delta {
	return Delta{Kind: DeltaRemove, PlayerID: playerID}
}

func Transfer(playerID uint64, info AreaInfo) Delta {
	return Delta{Kind: DeltaTransfer, PlayerID: playerID, AreaInfo: info}
}

func SetDowned(playerID uint64, downed bool) Delta {
	return Delta{Kind: DeltaSetDowned, PlayerID: playerID, Downed: downed}
}
