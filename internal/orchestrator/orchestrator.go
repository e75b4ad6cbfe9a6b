// Package orchestrator implements the game orchestrator (spec.md §4.2): area
// lifecycle, player lifecycle, the cross-area transfer protocol, and the
// leaderboard/chat/area-definition broadcast fan-out that session handlers
// subscribe to. It imports internal/area, internal/transfer,
// internal/leaderboard, and internal/chat, and satisfies chat.Game itself,
// so none of those packages ever import this one.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"evadearena/internal/area"
	"evadearena/internal/chat"
	"evadearena/internal/ecs"
	"evadearena/internal/geom"
	"evadearena/internal/leaderboard"
	"evadearena/internal/transfer"
)

const (
	defaultHeroSize  = 1.0
	defaultHeroSpeed = 17.0
)

// Orchestrator holds every area, player, and broadcast channel the running
// game needs (spec.md §4.2). One logical mutex (mu) guards the area and
// player registries; each Player record is an immutable snapshot held in an
// atomic slot.
type Orchestrator struct {
	mu    sync.Mutex
	areas map[area.Key]*area.Area
	maps  *area.MapTable

	players map[uint64]*slot
	names   map[string]uint64

	spawnAreaKey  area.Key
	frameDuration time.Duration

	transferQueue chan transfer.Request
	leaderboardIn chan leaderboard.Delta
	chatIn        chan chat.Request

	leaderboardState *leaderboard.State
	lbBroadcast      *broadcaster[leaderboard.Delta]
	chatBroadcast    *broadcaster[chat.Request]
	areaPush         *broadcaster[[]byte]

	commands *chat.Table

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds an Orchestrator whose spawn area is spawnMapID's configured
// start area. It panics if spawnMapID is not registered in maps, matching
// spec.md §7's "the orchestrator only panics at startup if the spawn map or
// start area cannot be found".
func New(maps *area.MapTable, spawnMapID string, frameDuration time.Duration) *Orchestrator {
	spawnMap := maps.MustMap(spawnMapID)
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		areas:            make(map[area.Key]*area.Area),
		maps:             maps,
		players:          make(map[uint64]*slot),
		names:            make(map[string]uint64),
		spawnAreaKey:     spawnMap.StartKey(),
		frameDuration:    frameDuration,
		transferQueue:    make(chan transfer.Request, 8),
		leaderboardIn:    make(chan leaderboard.Delta, 8),
		chatIn:           make(chan chat.Request, 8),
		leaderboardState: leaderboard.NewState(),
		lbBroadcast:      newBroadcaster[leaderboard.Delta](),
		chatBroadcast:    newBroadcaster[chat.Request](),
		areaPush:         newBroadcaster[[]byte](),
		commands:         chat.NewTable(),
		ctx:              ctx,
		cancel:           cancel,
	}
	go o.runTransferForwarder()
	go o.runLeaderboardForwarder()
	go o.runChatForwarder()
	return o
}

// Close stops every area's tick loop and the orchestrator's forwarders.
func (o *Orchestrator) Close() {
	o.cancel()
	o.mu.Lock()
	defer o.mu.Unlock()
	for key, a := range o.areas {
		a.Close()
		delete(o.areas, key)
	}
}

// Commands returns the static slash-command table, for the session handler's
// chat dispatch.
func (o *Orchestrator) Commands() *chat.Table { return o.commands }

// Ready reports whether the orchestrator can place heroes: the map table
// resolves the configured spawn area and Close has not been called. The
// operator health endpoint gates its 200 on this.
func (o *Orchestrator) Ready() bool {
	if o.ctx.Err() != nil {
		return false
	}
	_, ok := o.maps.Area(o.spawnAreaKey)
	return ok
}

// SubscribeLeaderboard registers playerID for leaderboard delta delivery and
// returns its current state snapshot plus the live channel.
func (o *Orchestrator) SubscribeLeaderboard(playerID uint64) ([]leaderboard.Entry, <-chan leaderboard.Delta, func()) {
	ch, unsub := o.lbBroadcast.Subscribe(playerID)
	return o.leaderboardState.Snapshot(), ch, unsub
}

// SubscribeChat registers playerID for chat broadcast delivery.
func (o *Orchestrator) SubscribeChat(playerID uint64) (<-chan chat.Request, func()) {
	return o.chatBroadcast.Subscribe(playerID)
}

// SubscribeAreaDef registers playerID for area-definition pushes (sent once
// per area entry: spec.md §4.3 step 8 and §4.4 INIT reply).
func (o *Orchestrator) SubscribeAreaDef(playerID uint64) (<-chan []byte, func()) {
	return o.areaPush.Subscribe(playerID)
}

// PublishChat enqueues a chat request for fan-out to every subscriber
// (spec.md §4.4: a session's CHAT uni-stream and command dispatch both feed
// requests in here). Best-effort: per spec.md §5, a full queue is resource
// exhaustion and the request is dropped rather than blocking the caller.
func (o *Orchestrator) PublishChat(r chat.Request) {
	select {
	case o.chatIn <- r:
	default:
		log.Printf("orchestrator: chat queue full, dropping request from player %d", r.SenderID)
	}
}

// Leaderboard returns the current materialized leaderboard state, for the
// operator HTTP API.
func (o *Orchestrator) Leaderboard() []leaderboard.Entry {
	return o.leaderboardState.Snapshot()
}

// AreaStat reports a single running area's occupancy, for the operator HTTP
// API.
type AreaStat struct {
	Key     string
	MapID   string
	Name    string
	Players int
}

// AreaStats returns one AreaStat per currently running area.
func (o *Orchestrator) AreaStats() []AreaStat {
	o.mu.Lock()
	defer o.mu.Unlock()
	stats := make([]AreaStat, 0, len(o.areas))
	counts := make(map[area.Key]int, len(o.areas))
	for _, s := range o.players {
		p := s.load()
		counts[p.AreaKey]++
	}
	for key, a := range o.areas {
		stats = append(stats, AreaStat{
			Key:     key.String(),
			MapID:   key.MapID,
			Name:    a.Name,
			Players: counts[key],
		})
	}
	return stats
}

// acquireAreaLocked returns the live Area for key, lazily creating and
// starting it from the map table if not already running. Caller must hold
// o.mu.
func (o *Orchestrator) acquireAreaLocked(key area.Key) (*area.Area, error) {
	if a, ok := o.areas[key]; ok {
		return a, nil
	}
	tmpl, ok := o.maps.Area(key)
	if !ok {
		return nil, fmt.Errorf("orchestrator: area %s not found", key)
	}
	a := area.New(tmpl, area.Senders{Transfer: o.transferQueue, Leaderboard: o.leaderboardIn}, o.maps)
	a.StartLoop(o.ctx, o.frameDuration)
	o.areas[key] = a
	return a, nil
}

// closeAreaIfEmptyLocked closes and deregisters an area once its last hero
// has left (spec.md §4.2 despawn_hero / §4.3 step 5). Caller must hold o.mu.
func (o *Orchestrator) closeAreaIfEmptyLocked(key area.Key) {
	a, ok := o.areas[key]
	if !ok {
		return
	}
	if a.HeroCount() > 0 {
		return
	}
	a.Close()
	delete(o.areas, key)
}

func areaInfoFor(a *area.Area) leaderboard.AreaInfo {
	info := leaderboard.AreaInfo{
		MapID:    a.Key.MapID,
		AreaName: a.Name,
		Order:    a.Key.Order,
		Victory:  a.Flags.Victory,
	}
	if a.TextColor != nil {
		s := a.TextColor.String()
		info.TextColor = &s
	}
	return info
}

func randomHeroColor() geom.Color {
	return geom.Color{
		R: uint8(rand.IntN(256)),
		G: uint8(rand.IntN(256)),
		B: uint8(rand.IntN(256)),
		A: 255,
	}
}

// SpawnHero creates a hero entity for a newly connected player in the spawn
// area and records its Player entry (spec.md §4.2 spawn_hero).
func (o *Orchestrator) SpawnHero(id uint64, name string) error {
	o.mu.Lock()
	if _, exists := o.players[id]; exists {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator: player %d already spawned", id)
	}
	a, err := o.acquireAreaLocked(o.spawnAreaKey)
	if err != nil {
		o.mu.Unlock()
		return err
	}

	pos := ecs.Position{Vec: a.SpawnPos}
	size := ecs.Size{Diameter: defaultHeroSize}
	speed := ecs.Speed{Value: defaultHeroSpeed}
	dir := ecs.Direction{}
	vel := ecs.Velocity{}
	tmr := ecs.Timer{}
	pid := ecs.PlayerID{Value: id}
	col := ecs.Color{Value: randomHeroColor()}

	a.Lock()
	entity := a.World().Spawn(ecs.Bundle{
		Position: &pos, Size: &size, Speed: &speed, Direction: &dir,
		Velocity: &vel, Timer: &tmr, PlayerID: &pid, Color: &col,
		Hero: true, Bounded: true,
	})
	a.Unlock()

	o.players[id] = newSlot(&Player{ID: id, Name: name, Entity: entity, AreaKey: a.Key})
	o.names[name] = id
	info := areaInfoFor(a)
	def := a.EncodeDefinition()
	o.mu.Unlock()

	o.leaderboardIn <- leaderboard.Add(id, name, false, info)
	o.chatIn <- chat.Announcement(fmt.Sprintf("%s joined the game", name))
	o.areaPush.Publish(def, func(pid uint64) bool { return pid == id })
	return nil
}

// DespawnHero removes a player's hero from its area, closing the area if it
// was the last hero there (spec.md §4.2 despawn_hero). Safe to call twice.
func (o *Orchestrator) DespawnHero(id uint64) {
	o.mu.Lock()
	s, ok := o.players[id]
	if !ok {
		o.mu.Unlock()
		return
	}
	p := s.load()
	delete(o.players, id)
	if o.names[p.Name] == id {
		delete(o.names, p.Name)
	}
	if a, ok := o.areas[p.AreaKey]; ok {
		a.Lock()
		a.World().Despawn(p.Entity)
		a.Unlock()
		o.closeAreaIfEmptyLocked(p.AreaKey)
	}
	o.mu.Unlock()

	o.leaderboardIn <- leaderboard.Remove(id)
	o.chatIn <- chat.Announcement(fmt.Sprintf("%s left the game", p.Name))
	o.lbBroadcast.Unsubscribe(id)
	o.chatBroadcast.Unsubscribe(id)
	o.areaPush.Unsubscribe(id)
}

// ResetHero returns a player to the spawn area, clears Downed, zeroes Timer,
// and clears recorded victories (spec.md §4.2 reset_hero). Satisfies
// chat.Game.
func (o *Orchestrator) ResetHero(id uint64) error {
	if err := o.TransferHero(transfer.Request{PlayerID: id, Target: transfer.Target{Kind: transfer.TargetSpawn}}); err != nil {
		return err
	}
	o.mu.Lock()
	s, ok := o.players[id]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator: player %d not found", id)
	}
	p := s.load()
	a, ok := o.areas[p.AreaKey]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator: player %d's area %s not live", id, p.AreaKey)
	}
	a.Lock()
	a.World().SetDowned(p.Entity, false)
	a.World().SetTimer(p.Entity, ecs.Timer{Seconds: 0})
	a.Unlock()
	next := *p
	next.Victories = nil
	s.store(&next)
	o.mu.Unlock()
	return nil
}

// UpdatePlayerInput sets a player's hero Direction component (spec.md §4.2
// update_player_input). It looks up the player's slot and area under the
// orchestrator mutex, reads the player record from the slot, and sets the
// input under the owning area's lock. The lookups wait while a transfer
// holds the orchestrator mutex.
func (o *Orchestrator) UpdatePlayerInput(id uint64, dir geom.Vec2) error {
	o.mu.Lock()
	s, ok := o.players[id]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("orchestrator: player %d not found", id)
	}
	p := s.load()
	o.mu.Lock()
	a, ok := o.areas[p.AreaKey]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("orchestrator: player %d's area %s not live", id, p.AreaKey)
	}
	a.SetInput(p.Entity, dir)
	return nil
}

// AttachConnection installs the session's datagram transport on a player's
// hero entity, so the area's render-dispatch system can reach it directly
// (spec.md §4.5). Called once the INIT handshake succeeds.
func (o *Orchestrator) AttachConnection(id uint64, conn ecs.DatagramConn) error {
	o.mu.Lock()
	s, ok := o.players[id]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator: player %d not found", id)
	}
	p := s.load()
	a, ok := o.areas[p.AreaKey]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("orchestrator: player %d's area %s not live", id, p.AreaKey)
	}
	a.Lock()
	a.World().SetRenderReceiver(p.Entity, ecs.RenderReceiver{Connection: conn})
	a.Unlock()
	return nil
}

// GetPlayer returns a snapshot of a connected player's record.
func (o *Orchestrator) GetPlayer(id uint64) (*Player, bool) {
	o.mu.Lock()
	s, ok := o.players[id]
	o.mu.Unlock()
	if !ok {
		return nil, false
	}
	return s.load(), true
}

// GetPlayerByName resolves a display name to its current player record.
func (o *Orchestrator) GetPlayerByName(name string) (*Player, bool) {
	o.mu.Lock()
	id, ok := o.names[name]
	o.mu.Unlock()
	if !ok {
		return nil, false
	}
	return o.GetPlayer(id)
}

// PlayerName satisfies chat.Game.
func (o *Orchestrator) PlayerName(id uint64) (string, bool) {
	p, ok := o.GetPlayer(id)
	if !ok {
		return "", false
	}
	return p.Name, true
}

// PlayerIDByName satisfies chat.Game.
func (o *Orchestrator) PlayerIDByName(name string) (uint64, bool) {
	o.mu.Lock()
	id, ok := o.names[name]
	o.mu.Unlock()
	return id, ok
}

// WarpPlayer transfers a player to another map's configured start area.
// Satisfies chat.Game.
func (o *Orchestrator) WarpPlayer(id uint64, mapID string) error {
	return o.TransferHero(transfer.Request{PlayerID: id, Target: transfer.Target{Kind: transfer.TargetMapStart, MapID: mapID}})
}

func (o *Orchestrator) runTransferForwarder() {
	for {
		select {
		case <-o.ctx.Done():
			return
		case req := <-o.transferQueue:
			if err := o.TransferHero(req); err != nil {
				log.Printf("[orchestrator] transfer failed for player %d: %v", req.PlayerID, err)
			}
		}
	}
}

func (o *Orchestrator) runLeaderboardForwarder() {
	for {
		select {
		case <-o.ctx.Done():
			return
		case d := <-o.leaderboardIn:
			o.leaderboardState.Apply(d)
			o.lbBroadcast.Publish(d, nil)
		}
	}
}

func (o *Orchestrator) runChatForwarder() {
	for {
		select {
		case <-o.ctx.Done():
			return
		case r := <-o.chatIn:
			o.chatBroadcast.Publish(r, r.Visible)
		}
	}
}
