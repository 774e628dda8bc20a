// Package wire defines the peer message shapes of spec.md §6: Handshake,
// liveness, transaction gossip and Avalanche querying, block
// announcement and range sync, and masternode registry propagation.
// Transport framing itself is an external collaborator (spec.md §2's
// Non-goals); this package only owns each message's semantic fields and
// their canonical byte encoding, built on the teacher's
// utils/wrappers.Packer/Unpacker (see DESIGN.md for why protobuf/gRPC,
// both present in the teacher's go.mod, were dropped in favor of this
// hand-packed encoding).
package wire

import (
	"errors"

	"github.com/timecoin/timecoin/chain"
	"github.com/timecoin/timecoin/ids"
	"github.com/timecoin/timecoin/masternode"
	"github.com/timecoin/timecoin/utils/crypto"
	"github.com/timecoin/timecoin/utils/wrappers"
)

// Type identifies a wire message's kind, the first byte of every
// encoded message.
type Type byte

const (
	TypeHandshake Type = iota
	TypePing
	TypePong
	TypeTxBroadcast
	TypeTxVoteRequest
	TypeTxVoteResponse
	TypeTxFinalityProof
	TypeBlockAnnouncement
	TypeGetBlocks
	TypeBlocksResponse
	TypeGetHeaders
	TypeHeadersResponse
	TypeGetLockedCollaterals
	TypeLockedCollateralsResponse
	TypeMasternodeAnnouncement
	TypeMasternodeUnlock
	TypeHeartbeat
	TypeUtxoStateUpdate
)

var errUnknownType = errors.New("wire: unknown message type")

// Handshake is spec.md §6's mutual handshake. The network package decodes
// it on accept but does not compare ChainID, so a mismatched ChainID does
// not drop the connection.
type Handshake struct {
	Version     uint32
	ChainID     ids.ID
	NodeID      ids.ShortID
	SignedNonce crypto.Signature
}

// Ping/Pong are the liveness pair network uses to drive missed_pongs.
type Ping struct {
	Nonce     uint64
	Timestamp int64
}

type Pong struct {
	Nonce uint64
}

// TxBroadcast gossips a transaction for local validation and Avalanche
// admission.
type TxBroadcast struct {
	Tx *chain.Transaction
}

// TxVoteRequest/TxVoteResponse are the Avalanche per-round query/reply.
type TxVoteRequest struct {
	TxID ids.ID
}

type TxVoteResponse struct {
	TxID       ids.ID
	Preference byte // 0 = Reject, 1 = Accept, matching consensus/snowball.Preference
	Signature  crypto.Signature
}

// TxFinalityProof short-circuits a query when the sender already knows
// the transaction finalized.
type TxFinalityProof struct {
	TxID  ids.ID
	Votes []ids.ShortID
}

// BlockAnnouncement tells a peer a new header exists; bodies are fetched
// on demand via GetBlocks.
type BlockAnnouncement struct {
	Header chain.BlockHeader
}

// GetBlocks/BlocksResponse implement range sync.
type GetBlocks struct {
	LowHeight  uint64
	HighHeight uint64
}

type BlocksResponse struct {
	Blocks []*chain.Block
}

// GetHeaders/HeadersResponse implement the light-sync path.
type GetHeaders struct {
	LowHeight  uint64
	HighHeight uint64
}

type HeadersResponse struct {
	Headers []chain.BlockHeader
}

// GetLockedCollaterals/LockedCollateralsResponse sync the masternode
// registry's collateral table.
type GetLockedCollaterals struct{}

type LockedCollateralsResponse struct {
	Entries []masternode.Collateral
}

// MasternodeAnnouncement/MasternodeUnlock propagate registry deltas.
type MasternodeAnnouncement struct {
	Address    ids.ShortID
	Tier       masternode.Tier
	SigningKey crypto.PublicKey
	Collateral *chain.OutPoint
}

type MasternodeUnlock struct {
	Address   ids.ShortID
	Signature crypto.Signature
}

// Heartbeat is registry liveness.
type Heartbeat struct {
	Address   ids.ShortID
	Timestamp int64
	Signature crypto.Signature
}

// UtxoStateUpdate is a purely informational notification.
type UtxoStateUpdate struct {
	OutPoint chain.OutPoint
	NewState chain.UTXOState
}
