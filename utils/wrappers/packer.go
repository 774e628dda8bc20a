// Package wrappers provides a small manual byte packer, grounded on the
// teacher's usage of wrappers.Packer in
// snow/engine/common/queue/prefixed_state.go (PackByte/PackInt ahead of a
// database key). It is used here for the handful of places that need a
// canonical, hashable/signable byte encoding: wire message bodies and
// block headers minus their signature field. It deliberately is not a
// protobuf/gRPC encoding — see DESIGN.md for why those two teacher
// dependencies were dropped instead of used here.
package wrappers

import (
	"encoding/binary"
	"errors"
)

// IntLen is the number of bytes used to pack a uint32.
const IntLen = 4

// LongLen is the number of bytes used to pack a uint64.
const LongLen = 8

// ErrInsufficientLength is returned by Unpacker reads that run past the end
// of the buffer.
var ErrInsufficientLength = errors.New("wrappers: insufficient length")

// Packer accumulates a byte slice via a sequence of fixed-width Pack calls.
type Packer struct {
	Bytes []byte
}

// PackByte appends a single byte.
func (p *Packer) PackByte(b byte) { p.Bytes = append(p.Bytes, b) }

// PackBool appends a byte encoding b.
func (p *Packer) PackBool(b bool) {
	if b {
		p.PackByte(1)
		return
	}
	p.PackByte(0)
}

// PackInt appends a big-endian uint32.
func (p *Packer) PackInt(i uint32) {
	var buf [IntLen]byte
	binary.BigEndian.PutUint32(buf[:], i)
	p.Bytes = append(p.Bytes, buf[:]...)
}

// PackLong appends a big-endian uint64.
func (p *Packer) PackLong(i uint64) {
	var buf [LongLen]byte
	binary.BigEndian.PutUint64(buf[:], i)
	p.Bytes = append(p.Bytes, buf[:]...)
}

// PackUint64LE returns i as a new 8-byte little-endian slice, for
// leader-election's first-8-bytes-little-endian(SHA256(...)) convention
// (spec.md §4.5).
func PackUint64LE(i uint64) []byte {
	var buf [LongLen]byte
	binary.LittleEndian.PutUint64(buf[:], i)
	return buf[:]
}

// Uint64LE decodes the first 8 bytes of buf as a little-endian uint64.
func Uint64LE(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf[:LongLen])
}

// PackFixedBytes appends b verbatim (used for IDs/ShortIDs/signatures).
func (p *Packer) PackFixedBytes(b []byte) { p.Bytes = append(p.Bytes, b...) }

// PackBytes appends a uint32 length prefix followed by b.
func (p *Packer) PackBytes(b []byte) {
	p.PackInt(uint32(len(b)))
	p.PackFixedBytes(b)
}

// PackStr appends a uint32 length prefix followed by the UTF-8 bytes of s.
func (p *Packer) PackStr(s string) { p.PackBytes([]byte(s)) }

// Unpacker reads fixed-width values back out of a byte slice in sequence.
type Unpacker struct {
	Bytes  []byte
	Offset int
	Err    error
}

func (u *Unpacker) take(n int) []byte {
	if u.Err != nil {
		return nil
	}
	if u.Offset+n > len(u.Bytes) {
		u.Err = ErrInsufficientLength
		return nil
	}
	b := u.Bytes[u.Offset : u.Offset+n]
	u.Offset += n
	return b
}

// UnpackByte reads a single byte.
func (u *Unpacker) UnpackByte() byte {
	b := u.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// UnpackBool reads a single byte as a bool.
func (u *Unpacker) UnpackBool() bool { return u.UnpackByte() != 0 }

// UnpackInt reads a big-endian uint32.
func (u *Unpacker) UnpackInt() uint32 {
	b := u.take(IntLen)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// UnpackLong reads a big-endian uint64.
func (u *Unpacker) UnpackLong() uint64 {
	b := u.take(LongLen)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// UnpackFixedBytes reads exactly n bytes.
func (u *Unpacker) UnpackFixedBytes(n int) []byte {
	b := u.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// UnpackBytes reads a uint32 length prefix followed by that many bytes.
func (u *Unpacker) UnpackBytes() []byte {
	n := u.UnpackInt()
	return u.UnpackFixedBytes(int(n))
}

// UnpackStr reads a length-prefixed UTF-8 string.
func (u *Unpacker) UnpackStr() string { return string(u.UnpackBytes()) }
