// Package chat implements the chat broadcast shape and its wire codec
// (spec.md §4.4, §4.7, §6). The command dispatch table lives in commands.go
// and depends on a Game interface satisfied by the orchestrator, so this
// package never imports internal/orchestrator (orchestrator imports chat).
package chat

import (
	"encoding/binary"
	"fmt"
)

// Kind discriminates the five chat message shapes spec.md §6 lists.
type Kind uint8

const (
	Normal Kind = iota
	Whisper
	CommandResponse
	ServerAnnouncement
	ServerError
)

// Request is one chat message en route to the broadcast channel. Recipients
// is nil for a true broadcast (every session) or a non-nil filter list for
// whisper/command replies that only the addressed sessions should see.
type Request struct {
	Kind       Kind
	SenderID   uint64
	Message    string
	TargetID   uint64 // valid when Kind == Whisper
	Recipients []uint64
}

// NormalMessage builds a broadcast chat message from a connected player.
func NormalMessage(senderID uint64, msg string) Request {
	return Request{Kind: Normal, SenderID: senderID, Message: msg}
}

// Announcement builds a server-wide announcement (e.g. join/leave, victory).
func Announcement(msg string) Request {
	return Request{Kind: ServerAnnouncement, Message: msg}
}

// ErrorTo builds a ServerError reply visible only to recipientID.
func ErrorTo(recipientID uint64, msg string) Request {
	return Request{Kind: ServerError, Message: msg, Recipients: []uint64{recipientID}}
}

// ResponseTo builds a CommandResponse reply visible only to recipientID.
func ResponseTo(recipientID uint64, msg string) Request {
	return Request{Kind: CommandResponse, Message: msg, Recipients: []uint64{recipientID}}
}

// WhisperTo builds a Whisper visible only to sender and target.
func WhisperTo(senderID, targetID uint64, msg string) Request {
	return Request{
		Kind:       Whisper,
		SenderID:   senderID,
		TargetID:   targetID,
		Message:    msg,
		Recipients: []uint64{senderID, targetID},
	}
}

// Visible reports whether sessionPlayerID should see this request: nil
// Recipients means broadcast to everyone.
func (r Request) Visible(sessionPlayerID uint64) bool {
	if r.Recipients == nil {
		return true
	}
	for _, id := range r.Recipients {
		if id == sessionPlayerID {
			return true
		}
	}
	return false
}

var chatTag = [4]byte{'C', 'H', 'B', 'R'}

// Encode writes r's wire form: "CHBR" | type | sender_id | msg_len | msg |
// [target_id if Whisper] (spec.md §6).
func Encode(r Request) []byte {
	buf := make([]byte, 0, 4+1+8+1+len(r.Message)+8)
	buf = append(buf, chatTag[:]...)
	buf = append(buf, byte(r.Kind))
	var sid [8]byte
	binary.LittleEndian.PutUint64(sid[:], r.SenderID)
	buf = append(buf, sid[:]...)
	msg := r.Message
	if len(msg) > 255 {
		msg = msg[:255]
	}
	buf = append(buf, byte(len(msg)))
	buf = append(buf, msg...)
	if r.Kind == Whisper {
		var tid [8]byte
		binary.LittleEndian.PutUint64(tid[:], r.TargetID)
		buf = append(buf, tid[:]...)
	}
	return buf
}

// Decode parses a chat broadcast frame, starting with its 4-byte tag, which
// it checks itself.
func Decode(b []byte) (Request, error) {
	if len(b) < 4+1+8+1 {
		return Request{}, fmt.Errorf("chat: short frame (%d bytes)", len(b))
	}
	if [4]byte(b[:4]) != chatTag {
		return Request{}, fmt.Errorf("chat: bad tag %q", b[:4])
	}
	kind := Kind(b[4])
	senderID := binary.LittleEndian.Uint64(b[5:13])
	msgLen := int(b[13])
	rest := b[14:]
	if len(rest) < msgLen {
		return Request{}, fmt.Errorf("chat: truncated message")
	}
	msg := string(rest[:msgLen])
	rest = rest[msgLen:]

	r := Request{Kind: kind, SenderID: senderID, Message: msg}
	if kind == Whisper {
		if len(rest) < 8 {
			return Request{}, fmt.Errorf("chat: missing whisper target_id")
		}
		r.TargetID = binary.LittleEndian.Uint64(rest[:8])
	}
	return r, nil
}
