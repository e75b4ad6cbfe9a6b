package orchestrator

import (
	"strings"
	"testing"
	"time"

	"evadearena/internal/area"
	"evadearena/internal/chat"
	"evadearena/internal/geom"
	"evadearena/internal/leaderboard"
	"evadearena/internal/transfer"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	bounds0, _ := geom.NewRect(0, 0, 20, 20)
	bounds1, _ := geom.NewRect(0, 0, 20, 20)
	area0 := area.Template{
		Key:      area.Key{MapID: "tt", Order: 0},
		Name:     "Area 0",
		MapName:  "Test Map",
		Bounds:   bounds0,
		SpawnPos: geom.Vec2{X: 5, Y: 5},
		Portals: []area.Portal{{
			Rect:   mustRect(t, 18, 9, 2, 2),
			Target: area.Target{Kind: area.TargetAreaKey, Area: area.Key{MapID: "tt", Order: 1}},
			TargetX: area.Placement{Kind: area.PlacementFromLeft, Offset: 1},
			TargetY: area.Placement{Kind: area.PlacementCenter},
		}},
	}
	area1 := area.Template{
		Key:      area.Key{MapID: "tt", Order: 1},
		Name:     "Victory Room",
		MapName:  "Test Map",
		Bounds:   bounds1,
		SpawnPos: geom.Vec2{X: 10, Y: 10},
		Flags:    area.Flags{Victory: true},
	}
	mapTmpl, err := area.NewMapTemplate("tt", "Test Map", geom.Color{}, nil, []area.Template{area0, area1}, 0)
	if err != nil {
		t.Fatalf("NewMapTemplate: %v", err)
	}
	table := area.NewMapTable()
	table.Register(mapTmpl)
	o := New(table, "tt", time.Hour) // long frame duration: ticks don't fire during the test
	t.Cleanup(o.Close)
	return o
}

func mustRect(t *testing.T, x, y, w, h float32) geom.Rect {
	t.Helper()
	r, err := geom.NewRect(x, y, w, h)
	if err != nil {
		t.Fatalf("NewRect: %v", err)
	}
	return r
}

func TestSpawnHeroEmitsAddAndAnnouncement(t *testing.T) {
	o := newTestOrchestrator(t)
	snap, lbCh, unsubLB := o.SubscribeLeaderboard(1)
	defer unsubLB()
	chatCh, unsubChat := o.SubscribeChat(1)
	defer unsubChat()

	if len(snap) != 0 {
		t.Fatalf("expected empty initial snapshot, got %d entries", len(snap))
	}
	if err := o.SpawnHero(1, "Alice"); err != nil {
		t.Fatalf("SpawnHero: %v", err)
	}

	select {
	case d := <-lbCh:
		if d.Kind != leaderboard.DeltaAdd || d.PlayerName != "Alice" {
			t.Errorf("unexpected delta: %+v", d)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for leaderboard add")
	}
	select {
	case r := <-chatCh:
		if r.Kind != chat.ServerAnnouncement {
			t.Errorf("unexpected chat request: %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for join announcement")
	}

	p, ok := o.GetPlayer(1)
	if !ok || p.Name != "Alice" || p.AreaKey != (area.Key{MapID: "tt", Order: 0}) {
		t.Fatalf("unexpected player record: %+v", p)
	}
}

func TestUpdatePlayerInputSetsDirection(t *testing.T) {
	o := newTestOrchestrator(t)
	if err := o.SpawnHero(2, "Bob"); err != nil {
		t.Fatalf("SpawnHero: %v", err)
	}
	if err := o.UpdatePlayerInput(2, geom.Vec2{X: 1, Y: 0}); err != nil {
		t.Fatalf("UpdatePlayerInput: %v", err)
	}
	p, _ := o.GetPlayer(2)
	o.mu.Lock()
	a := o.areas[p.AreaKey]
	o.mu.Unlock()
	a.Lock()
	dir, ok := a.World().Direction(p.Entity)
	a.Unlock()
	if !ok || dir.Vec.X != 1 {
		t.Errorf("expected direction (1,0), got %+v ok=%v", dir, ok)
	}
}

func TestTransferHeroCrossAreaTriggersVictory(t *testing.T) {
	o := newTestOrchestrator(t)
	if err := o.SpawnHero(3, "Carol"); err != nil {
		t.Fatalf("SpawnHero: %v", err)
	}
	chatCh, unsub := o.SubscribeChat(3)
	defer unsub()

	err := o.TransferHero(transfer.Request{
		PlayerID: 3,
		Target:   transfer.Target{Kind: transfer.TargetArea, Area: transfer.AreaKey{MapID: "tt", Order: 1}},
	})
	if err != nil {
		t.Fatalf("TransferHero: %v", err)
	}

	p, ok := o.GetPlayer(3)
	if !ok || p.AreaKey != (area.Key{MapID: "tt", Order: 1}) {
		t.Fatalf("expected player moved to order 1, got %+v", p)
	}
	if !p.hasVictory(area.Key{MapID: "tt", Order: 1}) {
		t.Error("expected victory recorded")
	}

	foundVictoryMsg := false
	timeout := time.After(time.Second)
	for !foundVictoryMsg {
		select {
		case r := <-chatCh:
			if r.Kind == chat.ServerAnnouncement && strings.Contains(r.Message, "just completed") {
				foundVictoryMsg = true
			}
		case <-timeout:
			t.Fatal("timed out waiting for victory announcement")
		}
	}

	// Re-entering the same victory area must not append a second victory.
	if err := o.TransferHero(transfer.Request{
		PlayerID: 3,
		Target:   transfer.Target{Kind: transfer.TargetSpawn},
	}); err != nil {
		t.Fatalf("TransferHero back to spawn: %v", err)
	}
	if err := o.TransferHero(transfer.Request{
		PlayerID: 3,
		Target:   transfer.Target{Kind: transfer.TargetArea, Area: transfer.AreaKey{MapID: "tt", Order: 1}},
	}); err != nil {
		t.Fatalf("TransferHero re-enter: %v", err)
	}
	p, _ = o.GetPlayer(3)
	if len(p.Victories) != 1 {
		t.Errorf("expected exactly one recorded victory after re-entry, got %d", len(p.Victories))
	}
}

func TestDespawnHeroClosesEmptyArea(t *testing.T) {
	o := newTestOrchestrator(t)
	if err := o.SpawnHero(5, "Eve"); err != nil {
		t.Fatalf("SpawnHero: %v", err)
	}
	o.DespawnHero(5)

	if _, ok := o.GetPlayer(5); ok {
		t.Error("expected player record removed")
	}
	o.mu.Lock()
	_, live := o.areas[area.Key{MapID: "tt", Order: 0}]
	o.mu.Unlock()
	if live {
		t.Error("expected the now-empty spawn area to be closed")
	}

	// Safe to call twice.
	o.DespawnHero(5)
}

func TestResetHeroClearsVictoriesAndDowned(t *testing.T) {
	o := newTestOrchestrator(t)
	if err := o.SpawnHero(6, "Finn"); err != nil {
		t.Fatalf("SpawnHero: %v", err)
	}
	if err := o.TransferHero(transfer.Request{
		PlayerID: 6,
		Target:   transfer.Target{Kind: transfer.TargetArea, Area: transfer.AreaKey{MapID: "tt", Order: 1}},
	}); err != nil {
		t.Fatalf("TransferHero: %v", err)
	}
	if err := o.ResetHero(6); err != nil {
		t.Fatalf("ResetHero: %v", err)
	}
	p, _ := o.GetPlayer(6)
	if p.AreaKey != (area.Key{MapID: "tt", Order: 0}) {
		t.Errorf("expected player back at spawn area, got %+v", p.AreaKey)
	}
	if len(p.Victories) != 0 {
		t.Errorf("expected victories cleared, got %+v", p.Victories)
	}
}
