// Package ids defines the fixed-size identifier types used throughout the
// node: 32-byte IDs (transaction/block/vertex hashes) and 20-byte ShortIDs
// (addresses, masternode identities). The shapes mirror the teacher's
// ids.ID / ids.ShortID / ids.Set / ids.Bag, which the rest of this module's
// packages (utxo, consensus/avalanche, network, ...) were written against.
package ids

import (
	"bytes"
	"encoding/hex"
	"errors"
	"sort"

	"github.com/timecoin/timecoin/utils/hashing"
)

// IDLen is the length in bytes of an ID.
const IDLen = 32

// ShortIDLen is the length in bytes of a ShortID.
const ShortIDLen = 20

var (
	errWrongLen    = errors.New("wrong length byte slice")
	errBadChecksum = errors.New("base58check: bad checksum")
)

// ID is a 32-byte identifier: a transaction hash, a block hash, or a header
// hash.
type ID [IDLen]byte

// Empty is the zero-value ID.
var Empty = ID{}

// ToID converts a byte slice into an ID. The slice must have length IDLen.
func ToID(b []byte) (ID, error) {
	var id ID
	if len(b) != IDLen {
		return id, errWrongLen
	}
	copy(id[:], b)
	return id, nil
}

// NewID hashes buf with SHA-256 and returns the result as an ID.
func NewID(buf []byte) ID {
	return ID(hashing.ComputeHash256Array(buf))
}

// Bytes returns a copy of the underlying bytes.
func (id ID) Bytes() []byte {
	b := make([]byte, IDLen)
	copy(b, id[:])
	return b
}

// Key returns id itself; it exists so map keys read the same way the
// teacher's code reads (vtxID.Key()), even though ID is already
// comparable.
func (id ID) Key() [32]byte { return id }

// String returns the lowercase hex encoding of id.
func (id ID) String() string { return hex.EncodeToString(id[:]) }

// Less reports whether id sorts before other, lexicographically on the raw
// bytes. Used for the bit-exact transaction and block-hash tie-break
// ordering required by the wire format.
func (id ID) Less(other ID) bool { return bytes.Compare(id[:], other[:]) < 0 }

// SortIDs sorts ids in place by raw byte order.
func SortIDs(list []ID) {
	sort.Slice(list, func(i, j int) bool { return list[i].Less(list[j]) })
}

// Set is an unordered collection of distinct IDs.
type Set map[ID]struct{}

// NewSet returns an empty set pre-sized for size elements.
func NewSet(size int) Set {
	if size < 0 {
		size = 0
	}
	return make(Set, size)
}

// Add inserts id into the set.
func (s Set) Add(id ID) { s[id] = struct{}{} }

// Remove deletes id from the set, if present.
func (s Set) Remove(id ID) { delete(s, id) }

// Contains reports whether id is in the set.
func (s Set) Contains(id ID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of elements in the set.
func (s Set) Len() int { return len(s) }

// List returns the set's elements as a slice, in no particular order.
func (s Set) List() []ID {
	list := make([]ID, 0, len(s))
	for id := range s {
		list = append(list, id)
	}
	return list
}

// Bag counts occurrences of IDs, used to tally Avalanche query responses.
type Bag struct {
	counts map[ID]int
}

// Add increments the count for id by one.
func (b *Bag) Add(id ID) {
	if b.counts == nil {
		b.counts = make(map[ID]int)
	}
	b.counts[id]++
}

// AddCount increments the count for id by count.
func (b *Bag) AddCount(id ID, count int) {
	if b.counts == nil {
		b.counts = make(map[ID]int)
	}
	b.counts[id] += count
}

// Count returns the current count for id.
func (b *Bag) Count(id ID) int {
	if b.counts == nil {
		return 0
	}
	return b.counts[id]
}
