package orchestrator

import (
	"fmt"

	"evadearena/internal/area"
	"evadearena/internal/chat"
	"evadearena/internal/ecs"
	"evadearena/internal/geom"
	"evadearena/internal/leaderboard"
	"evadearena/internal/transfer"
)

// TransferHero runs the cross-area transfer protocol (spec.md §4.3). It
// holds the orchestrator mutex for the full migration, acquiring the source
// and then destination area lock in that fixed order, so it can never
// deadlock against a concurrent transfer in the other direction.
func (o *Orchestrator) TransferHero(req transfer.Request) error {
	o.mu.Lock()

	s, ok := o.players[req.PlayerID]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator: player %d not found", req.PlayerID)
	}
	p := s.load()

	targetKey, err := o.resolveTargetKeyLocked(req.Target)
	if err != nil {
		o.mu.Unlock()
		return err
	}

	if targetKey == p.AreaKey {
		a, ok := o.areas[p.AreaKey]
		if !ok {
			o.mu.Unlock()
			return fmt.Errorf("orchestrator: player %d's area %s not live", req.PlayerID, p.AreaKey)
		}
		a.Lock()
		current, _ := a.World().Position(p.Entity)
		pos := resolveTargetPos(req.TargetPos, a.Bounds, a.SpawnPos, current.Vec)
		a.World().SetPosition(p.Entity, ecs.Position{Vec: pos})
		a.World().SetCrossingPortal(p.Entity, false)
		a.Unlock()
		o.mu.Unlock()
		return nil
	}

	srcArea, ok := o.areas[p.AreaKey]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator: player %d's source area %s not live", req.PlayerID, p.AreaKey)
	}
	dstArea, err := o.acquireAreaLocked(targetKey)
	if err != nil {
		o.mu.Unlock()
		return err
	}

	srcArea.Lock()
	bundle, ok := srcArea.World().Take(p.Entity)
	srcArea.Unlock()
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator: entity for player %d missing from source area %s", req.PlayerID, p.AreaKey)
	}

	var heroTimer ecs.Timer
	if bundle.Timer != nil {
		heroTimer = *bundle.Timer
	}

	dstArea.Lock()
	dstArea.World().SpawnBundle(p.Entity, bundle)
	dstArea.World().SetCrossingPortal(p.Entity, false)
	fallback := dstArea.SpawnPos
	pos := resolveTargetPos(req.TargetPos, dstArea.Bounds, fallback, fallback)
	dstArea.World().SetPosition(p.Entity, ecs.Position{Vec: pos})
	dstArea.Unlock()

	o.closeAreaIfEmptyLocked(p.AreaKey)

	next := *p
	next.AreaKey = targetKey
	var victoryMsg string
	if dstArea.Flags.Victory && !p.hasVictory(targetKey) {
		next = *next.withVictory(targetKey)
		victoryMsg = fmt.Sprintf("%s just completed %s in %s", p.Name, dstArea.Name, formatMMSS(heroTimer.Seconds))
	}
	s.store(&next)

	info := areaInfoFor(dstArea)
	def := dstArea.EncodeDefinition()
	playerID := req.PlayerID
	o.mu.Unlock()

	o.leaderboardIn <- leaderboard.Transfer(playerID, info)
	if victoryMsg != "" {
		o.chatIn <- chat.Announcement(victoryMsg)
	}
	o.areaPush.Publish(def, func(pid uint64) bool { return pid == playerID })
	return nil
}

// resolveTargetKeyLocked converts a transfer.Target into a concrete
// area.Key (spec.md §4.3 step 1). Caller must hold o.mu.
func (o *Orchestrator) resolveTargetKeyLocked(t transfer.Target) (area.Key, error) {
	switch t.Kind {
	case transfer.TargetSpawn:
		return o.spawnAreaKey, nil
	case transfer.TargetMapStart:
		key, ok := o.maps.ResolveMapStart(t.MapID)
		if !ok {
			return area.Key{}, fmt.Errorf("orchestrator: map %q not found", t.MapID)
		}
		return key, nil
	case transfer.TargetArea:
		return area.Key{MapID: t.Area.MapID, Order: t.Area.Order}, nil
	default:
		return area.Key{}, fmt.Errorf("orchestrator: unknown transfer target kind %d", t.Kind)
	}
}

// resolveTargetPos applies a transfer.TargetPos's per-axis placement against
// destination bounds, falling back to fallback when tp is nil (spec.md §4.3
// step 2/6: "resolved target (or area's spawn position if absent)").
func resolveTargetPos(tp *transfer.TargetPos, bounds geom.Rect, fallback, current geom.Vec2) geom.Vec2 {
	if tp == nil {
		return fallback
	}
	return geom.Vec2{
		X: resolveAxis(tp.X, bounds, true, current.X),
		Y: resolveAxis(tp.Y, bounds, false, current.Y),
	}
}

func resolveAxis(ax transfer.PosAxis, bounds geom.Rect, isX bool, current float32) float32 {
	switch ax.Kind {
	case transfer.PosFromLeft:
		return bounds.Left() + ax.Value
	case transfer.PosFromRight:
		return bounds.Right() - ax.Value
	case transfer.PosCenter:
		if isX {
			return bounds.Center().X
		}
		return bounds.Center().Y
	case transfer.PosResolved:
		return ax.Value
	default:
		return current
	}
}

func formatMMSS(seconds float32) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
