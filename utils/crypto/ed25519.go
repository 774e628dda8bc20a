// Package crypto wraps Ed25519 key generation, signing and verification,
// the signature scheme spec.md §6 fixes for every signed wire message and
// block header. Grounded on the teacher's golang.org/x/crypto dependency;
// the teacher itself signs with SECP256K1 (vms/avm/tx.go's
// crypto.PrivateKeySECP256K1R), but this specification fixes Ed25519, so
// the key type changes while the "signer wraps a raw private key, Sign
// returns a fixed-length array" shape is kept.
package crypto

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/ed25519"
)

// SignatureLen is the length in bytes of an Ed25519 signature.
const SignatureLen = ed25519.SignatureSize

// PublicKeyLen is the length in bytes of an Ed25519 public key.
const PublicKeyLen = ed25519.PublicKeySize

// Signature is a fixed-size Ed25519 signature.
type Signature [SignatureLen]byte

// PublicKey is a fixed-size Ed25519 public key.
type PublicKey [PublicKeyLen]byte

// PrivateKey wraps an Ed25519 private key.
type PrivateKey struct {
	key ed25519.PrivateKey
}

var errVerifyFailed = errors.New("crypto: signature verification failed")

// NewPrivateKey generates a fresh Ed25519 keypair.
func NewPrivateKey() (*PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: priv}, nil
}

// PrivateKeyFromSeed derives a deterministic keypair from a 32-byte seed,
// used by tests that need reproducible masternode identities.
func PrivateKeyFromSeed(seed []byte) *PrivateKey {
	return &PrivateKey{key: ed25519.NewKeyFromSeed(seed)}
}

// PublicKey returns the public half of k.
func (k *PrivateKey) PublicKey() PublicKey {
	var pk PublicKey
	copy(pk[:], k.key.Public().(ed25519.PublicKey))
	return pk
}

// Sign signs msg and returns the signature.
func (k *PrivateKey) Sign(msg []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(k.key, msg))
	return sig
}

// Verify reports whether sig is a valid signature over msg by pk.
func Verify(pk PublicKey, msg []byte, sig Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pk[:]), msg, sig[:])
}

// VerifyOrError is Verify, returning errVerifyFailed instead of a bool, for
// call sites that want to propagate a typed validation error (spec.md §7's
// Validation error kind).
func VerifyOrError(pk PublicKey, msg []byte, sig Signature) error {
	if !Verify(pk, msg, sig) {
		return errVerifyFailed
	}
	return nil
}
