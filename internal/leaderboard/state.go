package leaderboard

import "sync"

// State is the materialized, insertion-ordered view of the leaderboard,
// fed by applying Deltas in arrival order (spec.md §4.6, §9 "late-join").
// Safe for concurrent use: one goroutine applies deltas while others read
// Snapshot for late-joining sessions.
type State struct {
	mu      sync.RWMutex
	order   []uint64
	entries map[uint64]*Entry
}

// NewState returns an empty leaderboard state.
func NewState() *State {
	return &State{entries: make(map[uint64]*Entry)}
}

// Apply folds one delta into the state. Deltas referencing an unknown
// player (Remove/Transfer/SetDowned with no prior Add) are ignored, which
// makes re-application of a delta stream idempotent per spec.md §8.
func (s *State) Apply(d Delta) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch d.Kind {
	case DeltaAdd:
		if _, exists := s.entries[d.PlayerID]; !exists {
			s.order = append(s.order, d.PlayerID)
		}
		s.entries[d.PlayerID] = &Entry{
			PlayerID:   d.PlayerID,
			PlayerName: d.PlayerName,
			Downed:     d.Downed,
			AreaInfo:   d.AreaInfo,
		}
	case DeltaRemove:
		if _, exists := s.entries[d.PlayerID]; !exists {
			return
		}
		delete(s.entries, d.PlayerID)
		for i, id := range s.order {
			if id == d.PlayerID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	case DeltaTransfer:
		e, ok := s.entries[d.PlayerID]
		if !ok {
			return
		}
		e.AreaInfo = d.AreaInfo
	case DeltaSetDowned:
		e, ok := s.entries[d.PlayerID]
		if !ok {
			return
		}
		e.Downed = d.Downed
	}
}

// Snapshot returns a copy of the current state in insertion order.
func (s *State) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.entries[id])
	}
	return out
}

// Len returns the number of entries currently tracked.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
