package area

import (
	"evadearena/internal/ecs"
	"evadearena/internal/geom"
	"evadearena/internal/leaderboard"
	"evadearena/internal/transfer"
)

// The systems below execute in the exact order tick() calls them (spec.md
// §4.1); reordering them changes observable behavior and is not allowed.

// systemTimer increments Timer on every entity that carries one and is not
// Downed.
func (a *Area) systemTimer(dt float32) {
	a.world.EachTimer(func(e ecs.Entity, t ecs.Timer) {
		if a.world.IsDowned(e) {
			return
		}
		t.Seconds += dt
		a.world.SetTimer(e, t)
	})
}

// systemVelocity recomputes vel = dir * speed for every entity carrying
// Velocity, Direction, and Speed. Direction's magnitude is client-trusted
// within [0, 1] and never renormalized here.
func (a *Area) systemVelocity() {
	a.world.EachVelocityInput(func(e ecs.Entity, dir ecs.Direction, speed ecs.Speed) {
		a.world.SetVelocity(e, ecs.Velocity{Vec: dir.Vec.Scale(speed.Value)})
	})
}

// systemIntegration advances Position by vel*dt for every non-Downed
// (Position, Velocity) entity. Downed heroes are frozen in place.
func (a *Area) systemIntegration(dt float32) {
	a.world.EachMovable(func(e ecs.Entity, pos ecs.Position, vel ecs.Velocity) {
		if a.world.IsDowned(e) {
			return
		}
		pos.Vec = pos.Vec.Add(vel.Vec.Scale(dt))
		a.world.SetPosition(e, pos)
	})
}

// systemBounds bounces BounceOffBounds entities off the area rectangle and
// clamps Bounded entities inside it. Clamping is per-axis with else-if so a
// single frame cannot resolve two edges at once (spec.md §4.1 step 4).
func (a *Area) systemBounds() {
	a.world.EachBounceOffBounds(func(e ecs.Entity, pos ecs.Position, size ecs.Size, dir ecs.Direction) {
		r := size.Diameter / 2
		changed := false
		if pos.Vec.X-r < a.Bounds.Left() || pos.Vec.X+r > a.Bounds.Right() {
			dir.Vec.X = -dir.Vec.X
			changed = true
		}
		if pos.Vec.Y-r < a.Bounds.Bottom() || pos.Vec.Y+r > a.Bounds.Top() {
			dir.Vec.Y = -dir.Vec.Y
			changed = true
		}
		if changed {
			a.world.SetDirection(e, dir)
		}
	})
	a.world.EachBounded(func(e ecs.Entity, pos ecs.Position, size ecs.Size) {
		r := size.Diameter / 2
		if pos.Vec.X-r < a.Bounds.Left() {
			pos.Vec.X = a.Bounds.Left() + r
		} else if pos.Vec.X+r > a.Bounds.Right() {
			pos.Vec.X = a.Bounds.Right() - r
		}
		if pos.Vec.Y-r < a.Bounds.Bottom() {
			pos.Vec.Y = a.Bounds.Bottom() + r
		} else if pos.Vec.Y+r > a.Bounds.Top() {
			pos.Vec.Y = a.Bounds.Top() - r
		}
		a.world.SetPosition(e, pos)
	})
}

// resolveRectCollision picks the dominant penetration axis for one
// rect-vs-circle overlap (ties resolve to Y, per spec.md §4.1 step 5) and
// reports the axis, the push-out magnitude, and its sign.
func resolveRectCollision(rect geom.Rect, pos geom.Vec2, radius float32) (axis Axis, push float32, sign float32) {
	px, py := rect.Penetration(pos, radius)
	normX := px / rect.W
	normY := py / rect.H
	if normX > normY {
		axis = AxisX
		push = px
	} else {
		axis = AxisY
		push = py
	}
	center := rect.Center()
	if axis == AxisX {
		if pos.X < center.X {
			sign = -1
		} else {
			sign = 1
		}
	} else {
		if pos.Y < center.Y {
			sign = -1
		} else {
			sign = 1
		}
	}
	return axis, push, sign
}

func (a *Area) resolveRects(rects []geom.Rect, excludeRenderReceiver bool) {
	for _, rect := range rects {
		a.world.EachBounceOffBounds(func(e ecs.Entity, pos ecs.Position, size ecs.Size, dir ecs.Direction) {
			if excludeRenderReceiver {
				if _, ok := a.world.RenderReceiver(e); ok {
					return
				}
			}
			radius := size.Diameter / 2
			if !rect.OverlapsCircle(pos.Vec, radius) {
				return
			}
			axis, _, _ := resolveRectCollision(rect, pos.Vec, radius)
			if axis == AxisX {
				dir.Vec.X = -dir.Vec.X
			} else {
				dir.Vec.Y = -dir.Vec.Y
			}
			a.world.SetDirection(e, dir)
		})
		a.world.EachBounded(func(e ecs.Entity, pos ecs.Position, size ecs.Size) {
			if excludeRenderReceiver {
				if _, ok := a.world.RenderReceiver(e); ok {
					return
				}
			}
			radius := size.Diameter / 2
			if !rect.OverlapsCircle(pos.Vec, radius) {
				return
			}
			axis, _, sign := resolveRectCollision(rect, pos.Vec, radius)
			if axis == AxisX {
				if sign < 0 {
					pos.Vec.X = rect.Left() - radius
				} else {
					pos.Vec.X = rect.Right() + radius
				}
			} else {
				if sign < 0 {
					pos.Vec.Y = rect.Bottom() - radius
				} else {
					pos.Vec.Y = rect.Top() + radius
				}
			}
			a.world.SetPosition(e, pos)
		})
	}
}

// systemWalls resolves inner-wall collisions for every wall rectangle.
func (a *Area) systemWalls() {
	a.resolveRects(a.Walls, false)
}

// systemSafeZones resolves safe-zone collisions, excluding RenderReceiver
// entities (players phase through safe zones; enemies do not).
func (a *Area) systemSafeZones() {
	a.resolveRects(a.SafeZones, true)
}

// systemPortals checks every hero against every portal; a hero entering a
// portal's rect that is not already CrossingPortal has a transfer.Request
// enqueued and is then tagged. A full (capacity 8) transfer channel drops
// the request without tagging the hero, so the crossing is tried again next
// tick (spec.md §5 backpressure).
func (a *Area) systemPortals() {
	a.world.EachHero(func(e ecs.Entity, pos ecs.Position) {
		if a.world.IsCrossingPortal(e) || a.world.IsDowned(e) {
			return
		}
		size, ok := a.world.Size(e)
		if !ok {
			return
		}
		for _, portal := range a.Portals {
			if !portal.Rect.OverlapsCircle(pos.Vec, size.Diameter/2) {
				continue
			}
			pid, ok := a.world.PlayerID(e)
			if !ok {
				continue
			}
			target := a.resolvePortalTarget(portal)
			targetPos := a.resolvePortalPos(portal, target, pos.Vec)
			req := transfer.Request{PlayerID: pid.Value, Target: target, TargetPos: targetPos}
			select {
			case a.senders.Transfer <- req:
				a.world.SetCrossingPortal(e, true)
			default:
				logf("transfer queue full, retrying player %d next tick", pid.Value)
			}
			return
		}
	})
}

// resolvePortalTarget converts a Portal's Target into the transfer package's
// AreaKey/Kind shape. Aliases are resolved against the map table here (an
// unresolved alias falls back to the spawn target); a Map target is passed
// on as TargetMapStart for the orchestrator to resolve.
func (a *Area) resolvePortalTarget(p Portal) transfer.Target {
	switch p.Target.Kind {
	case TargetAreaKey:
		return transfer.Target{
			Kind: transfer.TargetArea,
			Area: transfer.AreaKey{MapID: p.Target.Area.MapID, Order: p.Target.Area.Order},
		}
	case TargetAlias:
		if a.maps != nil {
			if key, ok := a.maps.ResolveAlias(a.Key.MapID, p.Target.Alias); ok {
				return transfer.Target{
					Kind: transfer.TargetArea,
					Area: transfer.AreaKey{MapID: key.MapID, Order: key.Order},
				}
			}
		}
		logf("portal alias %q unresolved in map %q", p.Target.Alias, a.Key.MapID)
		return transfer.Target{Kind: transfer.TargetSpawn}
	case TargetMap:
		return transfer.Target{Kind: transfer.TargetMapStart, MapID: p.Target.MapID}
	default:
		return transfer.Target{Kind: transfer.TargetSpawn}
	}
}

// resolvePortalPos computes the portal's TargetX/TargetY placement against
// the destination area's bounds, at the moment of crossing (spec.md §4.1
// step 7: "compute target position from the portal's placement fields
// against the destination bounds; KeepPlayer preserves the entity's current
// coordinate on that axis"). Returns nil (meaning "use the destination's
// spawn position") when the destination bounds cannot be resolved yet, e.g.
// a Spawn/MapStart target whose concrete area isn't known until the
// orchestrator resolves it.
func (a *Area) resolvePortalPos(p Portal, target transfer.Target, current geom.Vec2) *transfer.TargetPos {
	if target.Kind != transfer.TargetArea || a.maps == nil {
		return nil
	}
	destKey := Key{MapID: target.Area.MapID, Order: target.Area.Order}
	destTmpl, ok := a.maps.Area(destKey)
	if !ok {
		return nil
	}
	resolved := transfer.TargetPos{
		X: transfer.PosAxis{Kind: transfer.PosResolved, Value: p.TargetX.Resolve(destTmpl.Bounds, AxisX, current.X)},
		Y: transfer.PosAxis{Kind: transfer.PosResolved, Value: p.TargetY.Resolve(destTmpl.Bounds, AxisY, current.Y)},
	}
	return &resolved
}

// systemEnemyCollision downs any non-Downed hero overlapping an enemy.
func (a *Area) systemEnemyCollision() {
	a.world.EachHero(func(hero ecs.Entity, heroPos ecs.Position) {
		if a.world.IsDowned(hero) {
			return
		}
		heroSize, ok := a.world.Size(hero)
		if !ok {
			return
		}
		a.world.EachEnemy(func(_ ecs.Entity, enemyPos ecs.Position, enemySize ecs.Size) {
			if a.world.IsDowned(hero) {
				return
			}
			r := (heroSize.Diameter + enemySize.Diameter) / 2
			if geom.DistSq(heroPos.Vec, enemyPos.Vec) < r*r {
				a.down(hero)
			}
		})
	})
}

func (a *Area) down(hero ecs.Entity) {
	if a.world.IsDowned(hero) {
		return
	}
	a.world.SetDowned(hero, true)
	if pid, ok := a.world.PlayerID(hero); ok {
		a.sendLeaderboard(leaderboard.SetDowned(pid.Value, true))
	}
}

// systemRevive clears Downed from any downed hero touched by a non-Downed
// hero; self-revive is impossible because the outer loop skips Downed
// heroes as revivers. A chain of touches may revive multiple heroes in one
// tick.
func (a *Area) systemRevive() {
	a.world.EachHero(func(reviver ecs.Entity, reviverPos ecs.Position) {
		if a.world.IsDowned(reviver) {
			return
		}
		reviverSize, ok := a.world.Size(reviver)
		if !ok {
			return
		}
		a.world.EachHero(func(downedHero ecs.Entity, downedPos ecs.Position) {
			if downedHero == reviver || !a.world.IsDowned(downedHero) {
				return
			}
			downedSize, ok := a.world.Size(downedHero)
			if !ok {
				return
			}
			r := (reviverSize.Diameter + downedSize.Diameter) / 2
			if geom.DistSq(reviverPos.Vec, downedPos.Vec) < r*r {
				a.world.SetDowned(downedHero, false)
				if pid, ok := a.world.PlayerID(downedHero); ok {
					a.sendLeaderboard(leaderboard.SetDowned(pid.Value, false))
				}
			}
		})
	})
}

func (a *Area) sendLeaderboard(d leaderboard.Delta) {
	select {
	case a.senders.Leaderboard <- d:
	default:
		logf("leaderboard channel full, dropping delta for player %d", d.PlayerID)
	}
}
