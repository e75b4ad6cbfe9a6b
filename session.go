package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"math"
	"strings"

	"github.com/quic-go/webtransport-go"
	"golang.org/x/time/rate"

	"evadearena/internal/chat"
	"evadearena/internal/geom"
	"evadearena/internal/leaderboard"
	"evadearena/internal/orchestrator"
)

// datagramSafeSize is a conservative per-datagram payload budget, used until
// webtransport-go exposes the QUIC-negotiated path MTU directly. It leaves
// headroom under the typical internet path MTU for IP/UDP/QUIC framing
// overhead (spec.md §4.5 "max_datagram_size").
const datagramSafeSize = 1200

// maxChatLine bounds a single client chat submission in bytes (spec.md says
// nothing about an exact limit). The broadcast frame's 1-byte length field
// holds at most 255, and chat.Encode truncates longer messages to that.
const maxChatLine = 500

// Chat/command throttling per session: a short burst is fine, sustained
// flooding is not. Input datagrams are deliberately not limited.
const (
	chatRatePerSec = 4
	chatRateBurst  = 8
)

// sessionConn adapts a *webtransport.Session to ecs.DatagramConn, the seam
// the area's render-dispatch system uses to reach a hero's client directly.
type sessionConn struct {
	sess *webtransport.Session
}

func (c *sessionConn) SendDatagram(b []byte) error { return c.sess.SendDatagram(b) }
func (c *sessionConn) MaxDatagramSize() int        { return datagramSafeSize }

// runSession manages one WebTransport session from accept to disconnect
// (spec.md §4.4). id is a server-assigned player ID, unique for the life of
// the process; it becomes the hero's player ID only if INIT succeeds.
func runSession(ctx context.Context, sess *webtransport.Session, game *orchestrator.Orchestrator, id uint64) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var spawned bool
	defer func() {
		if spawned {
			game.DespawnHero(id)
		}
		sess.CloseWithError(0, "bye")
	}()

	// The handshake bi-stream must arrive before anything else is useful,
	// but the client may also open its periodic PING bi-stream at any
	// point afterward, so every accepted bi-stream is dispatched on its
	// own goroutine rather than assuming a fixed sequence.
	for {
		stream, err := sess.AcceptStream(ctx)
		if err != nil {
			return
		}
		if !spawned {
			// Handle the first stream inline: nothing else can proceed
			// (chat/datagram loops, broadcast forwarding) until INIT
			// either succeeds or fails.
			subs, ok := handleInit(ctx, stream, sess, game, id)
			if !ok {
				return
			}
			spawned = true
			go runChatIngest(ctx, sess, game, id)
			go runInputDatagrams(ctx, sess, game, id)
			go runLeaderboardForward(ctx, sess, subs.leaderboard, subs.unsubLeaderboard, id)
			go runChatForward(ctx, sess, subs.chat, subs.unsubChat, id)
			go runAreaDefForward(ctx, sess, subs.areaDef, subs.unsubAreaDef, id)
			continue
		}
		go handleBiStream(stream, id)
	}
}

// broadcastSubs holds the three live broadcast subscriptions opened at INIT
// time, handed to their forwarder goroutines so there is no gap between
// taking the leaderboard snapshot and observing subsequent deltas (spec.md
// §5: "state snapshots delivered at join time are consistent with the
// prefix of deltas the session will subsequently receive").
type broadcastSubs struct {
	leaderboard      <-chan leaderboard.Delta
	unsubLeaderboard func()
	chat             <-chan chat.Request
	unsubChat        func()
	areaDef          <-chan []byte
	unsubAreaDef     func()
}

// handleInit reads the INIT request off stream, spawns the hero on success,
// and writes the status/body reply (spec.md §4.4, §6 "Init").
func handleInit(ctx context.Context, stream *webtransport.Stream, sess *webtransport.Session, game *orchestrator.Orchestrator, id uint64) (broadcastSubs, bool) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(stream, header); err != nil {
		log.Printf("[session %d] init: read header: %v", id, err)
		return broadcastSubs{}, false
	}
	if string(header) != "INIT" {
		log.Printf("[session %d] init: unexpected header %q", id, header)
		return broadcastSubs{}, false
	}
	nameBytes, err := io.ReadAll(stream)
	if err != nil {
		log.Printf("[session %d] init: read name: %v", id, err)
		return broadcastSubs{}, false
	}
	name, err := validatePlayerName(string(nameBytes))
	if err != nil {
		writeInitReply(stream, 1, nil)
		return broadcastSubs{}, false
	}

	// Subscribe before spawning: SpawnHero queues this player's own
	// leaderboard Add delta for the forwarder and publishes the starting
	// area definition before it returns, so the subscription must already
	// exist to observe them (spec.md §5
	// "state snapshots delivered at join time are consistent with the
	// prefix of deltas the session will subsequently receive").
	entries, lbCh, unsubLB := game.SubscribeLeaderboard(id)
	chatCh, unsubChat := game.SubscribeChat(id)
	areaDefCh, unsubAreaDef := game.SubscribeAreaDef(id)
	subs := broadcastSubs{
		leaderboard: lbCh, unsubLeaderboard: unsubLB,
		chat: chatCh, unsubChat: unsubChat,
		areaDef: areaDefCh, unsubAreaDef: unsubAreaDef,
	}
	fail := func() (broadcastSubs, bool) {
		unsubLB()
		unsubChat()
		unsubAreaDef()
		return broadcastSubs{}, false
	}

	if err := game.SpawnHero(id, name); err != nil {
		log.Printf("[session %d] init: spawn %q: %v", id, name, err)
		writeInitReply(stream, 2, nil)
		return fail()
	}
	if err := game.AttachConnection(id, &sessionConn{sess: sess}); err != nil {
		log.Printf("[session %d] init: attach connection: %v", id, err)
		game.DespawnHero(id)
		writeInitReply(stream, 2, nil)
		return fail()
	}

	snapshot, err := leaderboard.EncodeSnapshotWithIDs(entries)
	if err != nil {
		log.Printf("[session %d] init: encode leaderboard snapshot: %v", id, err)
		game.DespawnHero(id)
		writeInitReply(stream, 2, nil)
		return fail()
	}

	body := make([]byte, 8)
	binary.LittleEndian.PutUint64(body, id)
	body = append(body, snapshot...)
	writeInitReply(stream, 0, body)
	return subs, true
}

// writeInitReply writes the INIT bi-stream response: status byte, then body
// on success (spec.md §6 "Init").
func writeInitReply(stream *webtransport.Stream, status byte, body []byte) {
	buf := append([]byte{status}, body...)
	if _, err := stream.Write(buf); err != nil {
		log.Printf("[session] init: write reply: %v", err)
	}
	_ = stream.Close()
}

// validatePlayerName rejects the empty name and any of the reserved
// characters spec.md §4.4 lists.
func validatePlayerName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("session: empty name")
	}
	if strings.ContainsAny(name, "#@$^:/\\*") {
		return "", fmt.Errorf("session: name %q contains a reserved character", name)
	}
	return name, nil
}

// handleBiStream answers a bi-stream opened after INIT: only PING is
// recognized (spec.md §4.4); anything else is a protocol error, logged and
// ignored per spec.md §7.
func handleBiStream(stream *webtransport.Stream, id uint64) {
	defer stream.Close()
	header := make([]byte, 4)
	if _, err := io.ReadFull(stream, header); err != nil {
		return
	}
	switch string(header) {
	case "PING":
		if _, err := stream.Write([]byte("PONG")); err != nil {
			log.Printf("[session %d] ping: write pong: %v", id, err)
		}
	default:
		log.Printf("[session %d] unrecognized bi-stream header %q", id, header)
	}
}

// runChatIngest accepts client CHAT uni-streams and dispatches each line as
// either a slash command or a normal chat message (spec.md §4.4).
func runChatIngest(ctx context.Context, sess *webtransport.Session, game *orchestrator.Orchestrator, id uint64) {
	limiter := rate.NewLimiter(chatRatePerSec, chatRateBurst)
	for {
		stream, err := sess.AcceptUniStream(ctx)
		if err != nil {
			return
		}
		go ingestChatStream(stream, game, id, limiter)
	}
}

func ingestChatStream(stream *webtransport.ReceiveStream, game *orchestrator.Orchestrator, id uint64, limiter *rate.Limiter) {
	data, err := io.ReadAll(io.LimitReader(stream, maxChatLine+4))
	if err != nil {
		return
	}
	if len(data) < 4 || string(data[:4]) != "CHAT" {
		log.Printf("[session %d] chat: unrecognized uni-stream header", id)
		return
	}
	if !limiter.Allow() {
		log.Printf("[session %d] chat: rate limit exceeded, dropping message", id)
		return
	}
	text := string(data[4:])

	var req *chat.Request
	if strings.HasPrefix(text, "/") {
		req, err = game.Commands().Dispatch(strings.TrimPrefix(text, "/"), id, game)
		if err != nil {
			r := chat.ErrorTo(id, err.Error())
			req = &r
		}
	} else {
		r := chat.NormalMessage(id, text)
		req = &r
	}
	if req == nil {
		return
	}
	game.PublishChat(*req)
}

// runInputDatagrams forwards every input datagram to the orchestrator until
// the session ends (spec.md §4.4).
func runInputDatagrams(ctx context.Context, sess *webtransport.Session, game *orchestrator.Orchestrator, id uint64) {
	for {
		data, err := sess.ReceiveDatagram(ctx)
		if err != nil {
			return
		}
		if len(data) != 8 {
			continue // protocol error: short frame, silently ignored (spec.md §7)
		}
		x := decodeFloat32(data[0:4])
		y := decodeFloat32(data[4:8])
		if err := game.UpdatePlayerInput(id, geom.Vec2{X: x, Y: y}); err != nil {
			return
		}
	}
}

func decodeFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// runLeaderboardForward relays leaderboard deltas to the client on uni-
// streams until the subscription is torn down or the session ends.
func runLeaderboardForward(ctx context.Context, sess *webtransport.Session, deltas <-chan leaderboard.Delta, unsub func(), id uint64) {
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deltas:
			if !ok {
				return
			}
			encoded, err := leaderboard.Encode(d)
			if err != nil {
				log.Printf("[session %d] leaderboard: encode: %v", id, err)
				continue
			}
			if !pushUniStream(ctx, sess, encoded) {
				return
			}
		}
	}
}

// runChatForward relays chat broadcasts visible to id on uni-streams.
func runChatForward(ctx context.Context, sess *webtransport.Session, reqs <-chan chat.Request, unsub func(), id uint64) {
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-reqs:
			if !ok {
				return
			}
			if !r.Visible(id) {
				continue
			}
			if !pushUniStream(ctx, sess, chat.Encode(r)) {
				return
			}
		}
	}
}

// runAreaDefForward pushes area-definition frames to the client: once right
// after INIT (a hero's starting area) and again on every subsequent
// transfer (spec.md §4.3 step 8, §7 "area definitions are re-sent on every
// transfer").
func runAreaDefForward(ctx context.Context, sess *webtransport.Session, defs <-chan []byte, unsub func(), id uint64) {
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case def, ok := <-defs:
			if !ok {
				return
			}
			if !pushUniStream(ctx, sess, def) {
				return
			}
		}
	}
}

// pushUniStream opens a fresh uni-stream, writes payload (already carrying
// its own 4-byte tag), and closes it. Used for area-definition, chat, and
// leaderboard server→client pushes, which each get their own stream per
// message (spec.md §6).
func pushUniStream(ctx context.Context, sess *webtransport.Session, payload []byte) bool {
	stream, err := sess.OpenUniStreamSync(ctx)
	if err != nil {
		return false
	}
	defer stream.Close()
	if _, err := stream.Write(payload); err != nil {
		return false
	}
	return true
}
