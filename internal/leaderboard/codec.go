package leaderboard

import (
	"encoding/binary"
	"fmt"
)

var (
	tagAdd       = [4]byte{'P', 'A', 'D', 'D'}
	tagRemove    = [4]byte{'P', 'R', 'M', 'V'}
	tagTransfer  = [4]byte{'P', 'T', 'R', 'F'}
	tagSetDowned = [4]byte{'P', 'S', 'D', 'N'}
)

func appendLenString(buf []byte, s string) []byte {
	if len(s) > 255 {
		s = s[:255]
	}
	buf = append(buf, byte(len(s)))
	return append(buf, s...)
}

func readLenString(b []byte) (string, []byte, bool) {
	if len(b) < 1 {
		return "", b, false
	}
	n := int(b[0])
	b = b[1:]
	if len(b) < n {
		return "", b, false
	}
	return string(b[:n]), b[n:], true
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// appendAreaInfo appends the area_info wire shape spec.md §6 defines:
// map_id_len|map_id|name_len|name|order|victory|has_color|[color_len|color].
func appendAreaInfo(buf []byte, info AreaInfo) []byte {
	buf = appendLenString(buf, info.MapID)
	buf = appendLenString(buf, info.AreaName)
	var orderBuf [2]byte
	binary.LittleEndian.PutUint16(orderBuf[:], info.Order)
	buf = append(buf, orderBuf[:]...)
	buf = append(buf, boolByte(info.Victory))
	if info.TextColor != nil {
		buf = append(buf, 1)
		buf = appendLenString(buf, *info.TextColor)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

func readAreaInfo(b []byte) (AreaInfo, []byte, bool) {
	var info AreaInfo
	var ok bool
	info.MapID, b, ok = readLenString(b)
	if !ok {
		return info, b, false
	}
	info.AreaName, b, ok = readLenString(b)
	if !ok {
		return info, b, false
	}
	if len(b) < 2 {
		return info, b, false
	}
	info.Order = binary.LittleEndian.Uint16(b[:2])
	b = b[2:]
	if len(b) < 1 {
		return info, b, false
	}
	info.Victory = b[0] != 0
	b = b[1:]
	if len(b) < 1 {
		return info, b, false
	}
	hasColor := b[0] != 0
	b = b[1:]
	if hasColor {
		var s string
		s, b, ok = readLenString(b)
		if !ok {
			return info, b, false
		}
		info.TextColor = &s
	}
	return info, b, true
}

// Encode writes d's wire form: tag(4) | player_id(8) | tag-specific fields
// (spec.md §6).
func Encode(d Delta) ([]byte, error) {
	buf := make([]byte, 0, 32)
	var pid [8]byte
	binary.LittleEndian.PutUint64(pid[:], d.PlayerID)

	switch d.Kind {
	case DeltaAdd:
		buf = append(buf, tagAdd[:]...)
		buf = append(buf, pid[:]...)
		buf = appendLenString(buf, d.PlayerName)
		buf = append(buf, boolByte(d.Downed))
		buf = appendAreaInfo(buf, d.AreaInfo)
	case DeltaRemove:
		buf = append(buf, tagRemove[:]...)
		buf = append(buf, pid[:]...)
	case DeltaTransfer:
		buf = append(buf, tagTransfer[:]...)
		buf = append(buf, pid[:]...)
		buf = appendAreaInfo(buf, d.AreaInfo)
	case DeltaSetDowned:
		buf = append(buf, tagSetDowned[:]...)
		buf = append(buf, pid[:]...)
		buf = append(buf, boolByte(d.Downed))
	default:
		return nil, fmt.Errorf("leaderboard: unknown delta kind %d", d.Kind)
	}
	return buf, nil
}

// Decode parses one delta from the front of b, returning the delta and any
// trailing bytes.
func Decode(b []byte) (Delta, []byte, error) {
	if len(b) < 12 {
		return Delta{}, b, fmt.Errorf("leaderboard: short frame (%d bytes)", len(b))
	}
	var tag [4]byte
	copy(tag[:], b[:4])
	playerID := binary.LittleEndian.Uint64(b[4:12])
	rest := b[12:]

	switch tag {
	case tagAdd:
		name, r, ok := readLenString(rest)
		if !ok || len(r) < 1 {
			return Delta{}, b, fmt.Errorf("leaderboard: malformed PADD frame")
		}
		downed := r[0] != 0
		r = r[1:]
		info, r, ok := readAreaInfo(r)
		if !ok {
			return Delta{}, b, fmt.Errorf("leaderboard: malformed PADD area_info")
		}
		return Delta{Kind: DeltaAdd, PlayerID: playerID, PlayerName: name, Downed: downed, AreaInfo: info}, r, nil
	case tagRemove:
		return Delta{Kind: DeltaRemove, PlayerID: playerID}, rest, nil
	case tagTransfer:
		info, r, ok := readAreaInfo(rest)
		if !ok {
			return Delta{}, b, fmt.Errorf("leaderboard: malformed PTRF area_info")
		}
		return Delta{Kind: DeltaTransfer, PlayerID: playerID, AreaInfo: info}, r, nil
	case tagSetDowned:
		if len(rest) < 1 {
			return Delta{}, b, fmt.Errorf("leaderboard: malformed PSDN frame")
		}
		return Delta{Kind: DeltaSetDowned, PlayerID: playerID, Downed: rest[0] != 0}, rest[1:], nil
	default:
		return Delta{}, b, fmt.Errorf("leaderboard: unknown tag %q", tag)
	}
}

// EncodeSnapshotWithIDs writes a state snapshot's wire form: count(1) |
// entries[count], each entry mirroring a PADD delta's payload including
// player_id (needed for a faithful round trip in tests and for the INIT
// reply, which must tell the client who everyone is).
func EncodeSnapshotWithIDs(entries []Entry) ([]byte, error) {
	if len(entries) > 255 {
		return nil, fmt.Errorf("leaderboard: snapshot has %d entries, max 255", len(entries))
	}
	buf := []byte{byte(len(entries))}
	for _, e := range entries {
		var pid [8]byte
		binary.LittleEndian.PutUint64(pid[:], e.PlayerID)
		buf = append(buf, pid[:]...)
		buf = appendLenString(buf, e.PlayerName)
		buf = append(buf, boolByte(e.Downed))
		buf = appendAreaInfo(buf, e.AreaInfo)
	}
	return buf, nil
}

// DecodeSnapshotWithIDs parses a snapshot written by EncodeSnapshotWithIDs.
func DecodeSnapshotWithIDs(b []byte) ([]Entry, error) {
	if len(b) < 1 {
		return nil, fmt.Errorf("leaderboard: empty snapshot frame")
	}
	count := int(b[0])
	b = b[1:]
	entries := make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		if len(b) < 8 {
			return nil, fmt.Errorf("leaderboard: truncated snapshot entry %d", i)
		}
		pid := binary.LittleEndian.Uint64(b[:8])
		b = b[8:]
		name, r, ok := readLenString(b)
		if !ok || len(r) < 1 {
			return nil, fmt.Errorf("leaderboard: malformed snapshot entry %d", i)
		}
		downed := r[0] != 0
		r = r[1:]
		info, r, ok := readAreaInfo(r)
		if !ok {
			return nil, fmt.Errorf("leaderboard: malformed snapshot area_info at entry %d", i)
		}
		b = r
		entries = append(entries, Entry{PlayerID: pid, PlayerName: name, Downed: downed, AreaInfo: info})
	}
	return entries, nil
}
