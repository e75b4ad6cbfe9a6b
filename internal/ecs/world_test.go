package ecs

import (
	"testing"

	"evadearena/internal/geom"
)

func TestSpawnDespawn(t *testing.T) {
	w := NewWorld()
	pos := Position{Vec: geom.Vec2{X: 1, Y: 2}}
	e := w.Spawn(Bundle{Position: &pos, Hero: true})
	if !w.Live(e) {
		t.Fatal("expected entity to be live after spawn")
	}
	if !w.IsHero(e) {
		t.Fatal("expected hero tag")
	}
	w.Despawn(e)
	if w.Live(e) {
		t.Fatal("expected entity to be gone after despawn")
	}
	// Idempotent.
	w.Despawn(e)
}

func TestTakeAndSpawnBundlePreservesIdentity(t *testing.T) {
	src := NewWorld()
	dst := NewWorld()

	pos := Position{Vec: geom.Vec2{X: 5, Y: 7.5}}
	size := Size{Diameter: 1}
	pid := PlayerID{Value: 42}
	e := src.Spawn(Bundle{Position: &pos, Size: &size, Hero: true, PlayerID: &pid})

	bundle, ok := src.Take(e)
	if !ok {
		t.Fatal("Take should succeed on a live entity")
	}
	if src.Live(e) {
		t.Fatal("Take should remove the entity from the source world")
	}

	dst.SpawnBundle(e, bundle)
	if !dst.Live(e) {
		t.Fatal("expected same entity handle to be live in destination")
	}
	gotPos, ok := dst.Position(e)
	if !ok || gotPos.Vec != pos.Vec {
		t.Fatalf("position not preserved across migration: got %+v", gotPos)
	}
	if !dst.IsHero(e) {
		t.Fatal("hero tag not preserved across migration")
	}
	gotPID, ok := dst.PlayerID(e)
	if !ok || gotPID.Value != 42 {
		t.Fatalf("player id not preserved: got %+v", gotPID)
	}
}

func TestTakeMissingEntity(t *testing.T) {
	w := NewWorld()
	if _, ok := w.Take(Entity(999999)); ok {
		t.Fatal("expected Take on a missing entity to fail")
	}
}

func TestDownedToggle(t *testing.T) {
	w := NewWorld()
	e := w.Spawn(Bundle{Hero: true})
	if w.IsDowned(e) {
		t.Fatal("should not start downed")
	}
	w.SetDowned(e, true)
	if !w.IsDowned(e) {
		t.Fatal("expected downed after SetDowned(true)")
	}
	w.SetDowned(e, false)
	if w.IsDowned(e) {
		t.Fatal("expected not downed after SetDowned(false)")
	}
}

func TestEachEnemy(t *testing.T) {
	w := NewWorld()
	pos := Position{Vec: geom.Vec2{X: 1, Y: 1}}
	size := Size{Diameter: 0.5}
	w.Spawn(Bundle{Position: &pos, Size: &size, Enemy: true})
	w.Spawn(Bundle{Position: &pos, Hero: true}) // no size: should be skipped by EachEnemy anyway (not enemy)

	count := 0
	w.EachEnemy(func(e Entity, pos Position, size Size) { count++ })
	if count != 1 {
		t.Fatalf("expected 1 enemy, got %d", count)
	}
}
