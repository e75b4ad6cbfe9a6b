package area

import (
	"context"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"evadearena/internal/ecs"
	"evadearena/internal/geom"
	"evadearena/internal/leaderboard"
	"evadearena/internal/transfer"
)

// Senders bundles the outbound channels an Area's systems post to. All are
// owned by the orchestrator; Area only ever sends, never closes or reads.
type Senders struct {
	Transfer    chan<- transfer.Request
	Leaderboard chan<- leaderboard.Delta
}

// Area is one live instance of a Template: its ECS world, tick state, and
// background loop handle (spec.md §3 "Area (runtime)"). Created lazily on
// first reference; destroyed when the last hero leaves.
type Area struct {
	mu sync.Mutex

	Key        Key
	Name       string
	MapName    string
	Background geom.Color
	TextColor  *geom.Color
	Message    *Message
	Bounds     geom.Rect
	SpawnPos   geom.Vec2
	Walls      []geom.Rect
	SafeZones  []geom.Rect
	Portals    []Portal
	Flags      Flags

	world *ecs.World
	time  float32

	senders Senders
	maps    *MapTable

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a live Area from an immutable Template, spawning its enemy
// groups. The background tick loop is not started here; call StartLoop.
func New(tmpl *Template, senders Senders, maps *MapTable) *Area {
	a := &Area{
		Key:        tmpl.Key,
		Name:       tmpl.Name,
		MapName:    tmpl.MapName,
		Background: tmpl.Background,
		TextColor:  tmpl.TextColor,
		Message:    tmpl.Message,
		Bounds:     tmpl.Bounds,
		SpawnPos:   tmpl.SpawnPos,
		Walls:      tmpl.Walls,
		SafeZones:  tmpl.SafeZones,
		Portals:    tmpl.Portals,
		Flags:      tmpl.Flags,
		world:      ecs.NewWorld(),
		senders:    senders,
		maps:       maps,
	}
	for _, g := range tmpl.EnemyGroups {
		a.spawnEnemyGroup(g)
	}
	return a
}

func (a *Area) spawnEnemyGroup(g EnemyGroup) {
	for i := 0; i < g.Count; i++ {
		offset := geom.RandomUnit().Scale(rand.Float32() * g.Spread)
		pos := ecs.Position{Vec: g.Position.Add(offset)}
		dir := ecs.Direction{Vec: geom.RandomUnit()}
		size := ecs.Size{Diameter: g.Size}
		speed := ecs.Speed{Value: g.Speed}
		color := ecs.Color{Value: g.Color}
		a.world.Spawn(ecs.Bundle{
			Position:        &pos,
			Direction:       &dir,
			Size:            &size,
			Speed:           &speed,
			Color:           &color,
			Enemy:           true,
			BounceOffBounds: true,
		})
	}
}

// Lock acquires the area's mutex. Callers that need to hold two areas' locks
// at once (the transfer protocol, source-then-destination) call Lock/Unlock
// directly instead of using the single-operation helpers below.
func (a *Area) Lock() { a.mu.Lock() }

// Unlock releases the area's mutex.
func (a *Area) Unlock() { a.mu.Unlock() }

// World returns the area's entity world. Callers must hold the area's lock
// (either via Lock/Unlock, or transitively through one of the helpers
// below) before touching it.
func (a *Area) World() *ecs.World { return a.world }

// HeroCount returns the number of hero entities currently in the area.
// Acquires the lock itself.
func (a *Area) HeroCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	count := 0
	for _, e := range a.world.AllEntities() {
		if a.world.IsHero(e) {
			count++
		}
	}
	return count
}

// SetInput acquires the lock and sets a hero entity's Direction component,
// used by the orchestrator's update_player_input operation.
func (a *Area) SetInput(hero ecs.Entity, dir geom.Vec2) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.world.SetDirection(hero, ecs.Direction{Vec: dir})
}

// StartLoop starts the area's background fixed-rate tick loop. The loop
// runs until ctx is canceled or Close is called. frameDuration is
// 1s/simulation_framerate (spec.md §4.1).
func (a *Area) StartLoop(ctx context.Context, frameDuration time.Duration) {
	loopCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.runLoop(loopCtx, frameDuration)
}

// Close aborts the area's background loop unconditionally (spec.md §5
// "Closing an area aborts its loop task unconditionally") and blocks until
// the loop goroutine has exited, so a subsequent registry removal never
// races with an in-flight tick.
func (a *Area) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.done != nil {
		<-a.done
	}
}

func (a *Area) runLoop(ctx context.Context, frameDuration time.Duration) {
	defer close(a.done)
	last := time.Now()
	deadline := last.Add(frameDuration)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		now := time.Now()
		if now.Before(deadline) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(deadline.Sub(now)):
			}
			now = time.Now()
		}
		// Deadline is last + frameDuration; an overrun does not accumulate
		// missed frames (spec.md §4.1): schedule the next deadline from
		// *now*, not from the missed deadline, so one slow tick does not
		// cause a burst of immediate catch-up ticks.
		dt := now.Sub(last)
		last = now
		deadline = now.Add(frameDuration)

		a.mu.Lock()
		a.tick(float32(dt.Seconds()))
		a.mu.Unlock()
	}
}

// tick executes the fixed-order systems of spec.md §4.1. Caller must hold
// a.mu.
func (a *Area) tick(dt float32) {
	a.time += dt
	a.systemTimer(dt)
	a.systemVelocity()
	a.systemIntegration(dt)
	a.systemBounds()
	a.systemWalls()
	a.systemSafeZones()
	a.systemPortals()
	a.systemEnemyCollision()
	a.systemRevive()
	packet := a.systemRenderAssemble()
	a.systemRenderDispatch(packet)
}

// Time returns seconds elapsed since the area was created. Caller must hold
// the lock for a value consistent with other world state, but a lock-free
// read is acceptable for operator/metrics display.
func (a *Area) Time() float32 { return a.time }

func logf(format string, args ...any) {
	log.Printf("[area] "+format, args...)
}
