package orchestrator

import (
	"sync/atomic"

	"evadearena/internal/area"
	"evadearena/internal/ecs"
)

// Player is an immutable snapshot of one connected player's orchestrator-
// level bookkeeping (spec.md §4.2). It is never mutated in place: every
// change replaces the snapshot behind the owning slot's atomic pointer, so
// a reader (e.g. a session's datagram path) observes a consistent record
// without blocking a transfer in progress.
type Player struct {
	ID        uint64
	Name      string
	Entity    ecs.Entity
	AreaKey   area.Key
	Victories []area.Key
}

// withVictory returns a copy of p with key appended to Victories, unless
// already present.
func (p *Player) withVictory(key area.Key) *Player {
	for _, v := range p.Victories {
		if v == key {
			return p
		}
	}
	next := *p
	next.Victories = append(append([]area.Key(nil), p.Victories...), key)
	return &next
}

// hasVictory reports whether key is already recorded.
func (p *Player) hasVictory(key area.Key) bool {
	for _, v := range p.Victories {
		if v == key {
			return true
		}
	}
	return false
}

// slot is the atomic snapshot holder for one player (spec.md §5 "atomic
// snapshot pointer for each Player").
type slot struct {
	ptr atomic.Pointer[Player]
}

func newSlot(p *Player) *slot {
	s := &slot{}
	s.ptr.Store(p)
	return s
}

func (s *slot) load() *Player { return s.ptr.Load() }

func (s *slot) store(p *Player) { s.ptr.Store(p) }
