// Package hashing provides the SHA-256 and RIPEMD-160-over-SHA-256
// primitives used throughout the node for IDs, addresses and the block
// header chain.
package hashing

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // used by ComputeHash160 only
)

// ComputeHash256 returns the SHA-256 digest of buf.
func ComputeHash256(buf []byte) []byte {
	sum := sha256.Sum256(buf)
	return sum[:]
}

// ComputeHash256Array returns the SHA-256 digest of buf as a fixed-size array.
func ComputeHash256Array(buf []byte) [32]byte {
	return sha256.Sum256(buf)
}

// ComputeHash160 returns RIPEMD160(SHA256(buf)), the 20-byte digest used for
// short addresses.
func ComputeHash160(buf []byte) []byte {
	h := sha256.Sum256(buf)
	r := ripemd160.New()
	_, _ = r.Write(h[:])
	return r.Sum(nil)
}

// ComputeHash160Array returns ComputeHash160 as a fixed-size array.
func ComputeHash160Array(buf []byte) [20]byte {
	var arr [20]byte
	copy(arr[:], ComputeHash160(buf))
	return arr
}
