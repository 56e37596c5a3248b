// Package wire frames relationship member lists for the relationship
// namespace. Entity values go through the configured codec; member lists
// always use this format so the index never depends on the entity codec.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version     byte = 1
	kindMembers byte = 1
	hdrLen           = 4 + 1 + 1 + 4
)

var (
	ErrCorrupt = errors.New("relcache: corrupt member list")
	magic4     = [...]byte{'R', 'E', 'L', 'M'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Members:
//
//	magic(4) | ver(1) | kind(1=members) | n(u32 be)
//	idLen(u32 be) | id(idLen) * n
func EncodeMembers(ids []string) []byte {
	total := hdrLen
	for _, id := range ids {
		total += 4 + len(id)
	}

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindMembers)

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(ids)))
	buf.Write(u4[:])

	for _, id := range ids {
		binary.BigEndian.PutUint32(u4[:], uint32(len(id)))
		buf.Write(u4[:])
		buf.WriteString(id)
	}
	return buf.Bytes()
}

// DecodeMembers parses an EncodeMembers frame. Trailing bytes are rejected.
func DecodeMembers(b []byte) ([]string, error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version || b[5] != kindMembers {
		return nil, ErrCorrupt
	}
	off := 6

	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	// every id needs at least its 4-byte length
	if n < 0 || n > (len(b)-off)/4 {
		return nil, ErrCorrupt
	}

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if off+4 > len(b) {
			return nil, ErrCorrupt
		}
		l := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if l < 0 || l > len(b)-off { // overflow-safe bound check
			return nil, ErrCorrupt
		}
		ids = append(ids, string(b[off:off+l]))
		off += l
	}
	if off != len(b) {
		return nil, ErrCorrupt
	}
	return ids, nil
}
