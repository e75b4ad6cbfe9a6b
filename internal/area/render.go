package area

import (
	"encoding/binary"
	"math"

	"evadearena/internal/ecs"
	"evadearena/internal/geom"
)

// RenderNode is one drawable entity in a tick's render packet (spec.md
// §4.5). Node wire length is fixed at 25 bytes: 4+4+4+4+1+8.
type RenderNode struct {
	X, Y      float32
	Radius    float32
	Color     geom.Color
	HasBorder bool
	IsHero    bool
	Downed    bool
	PlayerID  uint64
}

const nodeWireLen = 4 + 4 + 4 + 4 + 1 + 8
const fragmentHeaderLen = 4 + 4 + 1 + 2

func (n RenderNode) flags() byte {
	var f byte
	if n.HasBorder {
		f |= 1 << 0
	}
	if n.IsHero {
		f |= 1 << 1
	}
	if n.Downed {
		f |= 1 << 2
	}
	return f
}

func (n RenderNode) appendTo(buf []byte) []byte {
	var tmp [nodeWireLen]byte
	binary.LittleEndian.PutUint32(tmp[0:4], math.Float32bits(n.X))
	binary.LittleEndian.PutUint32(tmp[4:8], math.Float32bits(n.Y))
	binary.LittleEndian.PutUint32(tmp[8:12], math.Float32bits(n.Radius))
	tmp[12] = n.Color.R
	tmp[13] = n.Color.G
	tmp[14] = n.Color.B
	tmp[15] = n.Color.A
	tmp[16] = n.flags()
	binary.LittleEndian.PutUint64(tmp[17:25], n.PlayerID)
	return append(buf, tmp[:]...)
}

// RenderPacket is one tick's full world snapshot, before per-receiver
// offsetting and fragmentation.
type RenderPacket struct {
	Nodes []RenderNode
}

// systemRenderAssemble builds a RenderPacket from the world snapshot
// (spec.md §4.1 step 10).
func (a *Area) systemRenderAssemble() RenderPacket {
	entities := a.world.AllEntities()
	nodes := make([]RenderNode, 0, len(entities))
	for _, e := range entities {
		pos, ok := a.world.Position(e)
		if !ok {
			continue
		}
		size, _ := a.world.Size(e)
		color, _ := a.world.Color(e)
		isHero := a.world.IsHero(e)
		downed := a.world.IsDowned(e)
		var playerID uint64
		if pid, ok := a.world.PlayerID(e); ok {
			playerID = pid.Value
		}
		nodes = append(nodes, RenderNode{
			X:         pos.Vec.X,
			Y:         pos.Vec.Y,
			Radius:    size.Diameter / 2,
			Color:     color.Value,
			HasBorder: isHero,
			IsHero:    isHero,
			Downed:    downed,
			PlayerID:  playerID,
		})
	}
	return RenderPacket{Nodes: nodes}
}

// systemRenderDispatch fragments packet against each receiver's own
// max_datagram_size and offset (its own position) and sends the fragments
// (spec.md §4.1 step 11, §4.5). A receiver whose max_datagram_size is not
// yet known, or too small to carry even one node, is skipped silently for
// this tick rather than buffered.
func (a *Area) systemRenderDispatch(packet RenderPacket) {
	a.world.EachRenderReceiver(func(_ ecs.Entity, recv ecs.RenderReceiver, pos ecs.Position) {
		if recv.Connection == nil {
			return
		}
		max := recv.Connection.MaxDatagramSize()
		if max < fragmentHeaderLen+nodeWireLen {
			return
		}
		for _, frag := range FragmentPacket(packet, pos.Vec, max) {
			_ = recv.Connection.SendDatagram(frag) // render is send-and-forget (spec.md §5)
		}
	})
}

// FragmentPacket splits packet into one or more datagram payloads no larger
// than maxDatagramSize, each prefixed with the 11-byte fragment header
// (offset_x, offset_y, is_last, node_count). Node order across fragments is
// not significant. If maxDatagramSize cannot fit even one node alongside
// the header, no fragments are produced.
func FragmentPacket(packet RenderPacket, offset geom.Vec2, maxDatagramSize int) [][]byte {
	capacity := maxDatagramSize - fragmentHeaderLen
	if capacity < nodeWireLen {
		return nil
	}
	nodesPerFragment := capacity / nodeWireLen

	nodes := packet.Nodes
	if len(nodes) == 0 {
		return [][]byte{buildFragment(offset, nil, true)}
	}

	var frags [][]byte
	for i := 0; i < len(nodes); i += nodesPerFragment {
		end := i + nodesPerFragment
		if end > len(nodes) {
			end = len(nodes)
		}
		isLast := end == len(nodes)
		frags = append(frags, buildFragment(offset, nodes[i:end], isLast))
	}
	return frags
}

func buildFragment(offset geom.Vec2, nodes []RenderNode, isLast bool) []byte {
	buf := make([]byte, 0, fragmentHeaderLen+len(nodes)*nodeWireLen)
	var hdr [fragmentHeaderLen]byte
	binary.LittleEndian.PutUint32(hdr[0:4], math.Float32bits(offset.X))
	binary.LittleEndian.PutUint32(hdr[4:8], math.Float32bits(offset.Y))
	if isLast {
		hdr[8] = 1
	}
	binary.LittleEndian.PutUint16(hdr[9:11], uint16(len(nodes)))
	buf = append(buf, hdr[:]...)
	for _, n := range nodes {
		buf = n.appendTo(buf)
	}
	return buf
}

var (
	adefTag = [4]byte{'A', 'D', 'E', 'F'}
)

// EncodeDefinition writes an area's "ADEF" definition frame (spec.md §6),
// sent once on a uni-stream when a session's hero enters the area.
func (a *Area) EncodeDefinition() []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, adefTag[:]...)
	buf = appendF32(buf, a.Bounds.W)
	buf = appendF32(buf, a.Bounds.H)
	buf = appendU16(buf, uint16(len(a.Walls)))
	buf = appendU16(buf, uint16(len(a.SafeZones)))
	buf = appendU16(buf, uint16(len(a.Portals)))
	for _, w := range a.Walls {
		buf = w.AppendTo(buf)
	}
	for _, s := range a.SafeZones {
		buf = s.AppendTo(buf)
	}
	for _, p := range a.Portals {
		buf = p.Rect.AppendTo(buf)
		buf = p.Color.AppendTo(buf)
	}
	var flags byte
	if a.Flags.Boss {
		flags |= 1 << 0
	}
	if a.Flags.Victory {
		flags |= 1 << 1
	}
	if a.TextColor != nil {
		flags |= 1 << 2
	}
	buf = append(buf, flags)
	buf = a.Background.AppendTo(buf)
	buf = appendLenStr(buf, a.Name)
	buf = appendLenStr(buf, a.Key.MapID)
	if a.TextColor != nil {
		buf = a.TextColor.AppendTo(buf)
	}
	if a.Message != nil {
		buf = appendLenStr(buf, a.Message.Text)
		buf = a.Message.Color.AppendTo(buf)
	} else {
		buf = appendLenStr(buf, "")
	}
	return buf
}

func appendF32(buf []byte, v float32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(v))
	return append(buf, tmp[:]...)
}

func appendU16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendLenStr(buf []byte, s string) []byte {
	if len(s) > 255 {
		s = s[:255]
	}
	buf = append(buf, byte(len(s)))
	return append(buf, s...)
}
