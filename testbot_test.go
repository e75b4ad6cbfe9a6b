package main

import (
	"context"
	"testing"
	"time"
)

func TestRunTestBotSpawnsAndDespawnsOnCancel(t *testing.T) {
	game := newTestGame(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunTestBot(ctx, game, "scout")
		close(done)
	}()

	// Give the bot time to spawn and take a few input ticks.
	time.Sleep(250 * time.Millisecond)
	if _, ok := game.GetPlayerByName("scout"); !ok {
		t.Fatal("expected test bot hero to be spawned")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunTestBot did not exit after cancel")
	}

	if _, ok := game.GetPlayerByName("scout"); ok {
		t.Error("expected test bot hero to be despawned after cancel")
	}
}

func TestRunTestBotUsesPlayerIDRangeAboveTransportIDs(t *testing.T) {
	game := newTestGame(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunTestBot(ctx, game, "scout")
		close(done)
	}()

	time.Sleep(150 * time.Millisecond)
	p, ok := game.GetPlayerByName("scout")
	if !ok {
		t.Fatal("expected test bot hero to be spawned")
	}
	if p.ID < botIDBase {
		t.Errorf("expected bot player ID >= %d, got %d", botIDBase, p.ID)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunTestBot did not exit after cancel")
	}
}
