package ids

import (
	"encoding/hex"

	"github.com/mr-tron/base58"

	"github.com/timecoin/timecoin/utils/hashing"
)

// ShortID is a 20-byte identifier, used for addresses and masternode
// identities.
type ShortID [ShortIDLen]byte

// ShortEmpty is the zero-value ShortID.
var ShortEmpty = ShortID{}

// ToShortID converts a byte slice of length ShortIDLen into a ShortID.
func ToShortID(b []byte) (ShortID, error) {
	var id ShortID
	if len(b) != ShortIDLen {
		return id, errWrongLen
	}
	copy(id[:], b)
	return id, nil
}

// NewShortID returns id unchanged; it mirrors the teacher's
// ids.NewShortID(hashing.ComputeHash160Array(...)) call shape so callers
// read identically to network/network_test.go's id0/id1 construction.
func NewShortID(hash [ShortIDLen]byte) ShortID { return ShortID(hash) }

// Bytes returns a copy of the underlying bytes.
func (id ShortID) Bytes() []byte {
	b := make([]byte, ShortIDLen)
	copy(b, id[:])
	return b
}

// String returns the lowercase hex encoding of id. Use Address for the
// Base58Check wire representation.
func (id ShortID) String() string { return hex.EncodeToString(id[:]) }

// addressVersion is the tier-specific version byte prefixed before the
// Base58Check checksum, per spec §6 ("Addresses: Base58Check with
// tier-specific version byte").
type addressVersion byte

const (
	// VersionFree through VersionGold are the version bytes for each
	// masternode tier's address encoding.
	VersionFree  addressVersion = 0x00
	VersionBronze addressVersion = 0x10
	VersionSilver addressVersion = 0x20
	VersionGold   addressVersion = 0x30
)

// Address renders id as a Base58Check string with the given version byte,
// grounded on the teacher's go.mod dependency on github.com/mr-tron/base58
// (pulled in for exactly this purpose since the teacher's own address
// encoding source wasn't retrieved in the example pack).
func Address(id ShortID, version addressVersion) string {
	payload := make([]byte, 0, 1+ShortIDLen+4)
	payload = append(payload, byte(version))
	payload = append(payload, id[:]...)
	checksum := hashing.ComputeHash256(hashing.ComputeHash256(payload))
	payload = append(payload, checksum[:4]...)
	return base58.Encode(payload)
}

// ParseAddress decodes a Base58Check address, verifying its checksum and
// returning the embedded ShortID and version byte.
func ParseAddress(addr string) (ShortID, addressVersion, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return ShortID{}, 0, err
	}
	if len(raw) != 1+ShortIDLen+4 {
		return ShortID{}, 0, errWrongLen
	}
	payload, checksum := raw[:1+ShortIDLen], raw[1+ShortIDLen:]
	want := hashing.ComputeHash256(hashing.ComputeHash256(payload))
	for i := 0; i < 4; i++ {
		if checksum[i] != want[i] {
			return ShortID{}, 0, errBadChecksum
		}
	}
	id, err := ToShortID(payload[1:])
	if err != nil {
		return ShortID{}, 0, err
	}
	return id, addressVersion(payload[0]), nil
}
