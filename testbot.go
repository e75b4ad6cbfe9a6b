package main

import (
	"context"
	"log"
	"math"
	"sync/atomic"
	"time"

	"evadearena/internal/ecs"
	"evadearena/internal/geom"
	"evadearena/internal/orchestrator"
)

// botIDBase keeps test-bot player IDs out of the range the transport's
// per-session counter hands out to real connections.
const botIDBase = 1 << 32

var nextBotID atomic.Uint64

// discardingConn satisfies ecs.DatagramConn without an actual transport, so
// the test bot's hero can be attached like any other player's without a
// client on the other end.
type discardingConn struct{}

func (discardingConn) SendDatagram([]byte) error { return nil }
func (discardingConn) MaxDatagramSize() int      { return datagramSafeSize }

var _ ecs.DatagramConn = discardingConn{}

// RunTestBot spawns a hero named name and drives it in a slow circle,
// exercising the same SpawnHero/UpdatePlayerInput/DespawnHero path a real
// session uses, until ctx is canceled.
func RunTestBot(ctx context.Context, game *orchestrator.Orchestrator, name string) {
	id := botIDBase + nextBotID.Add(1)

	if err := game.SpawnHero(id, name); err != nil {
		log.Printf("[testbot] spawn %q: %v", name, err)
		return
	}
	if err := game.AttachConnection(id, discardingConn{}); err != nil {
		log.Printf("[testbot] attach connection: %v", err)
		game.DespawnHero(id)
		return
	}
	log.Printf("[testbot] %q connected as player %d", name, id)

	defer func() {
		game.DespawnHero(id)
		log.Printf("[testbot] %q disconnected", name)
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	const angularSpeed = 0.5 // radians per tick, traces a slow circle
	var angle float64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		dir := geom.Vec2{X: float32(math.Cos(angle)), Y: float32(math.Sin(angle))}
		angle += angularSpeed
		if err := game.UpdatePlayerInput(id, dir); err != nil {
			return
		}
	}
}
