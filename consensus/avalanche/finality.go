package avalanche

import (
	"github.com/timecoin/timecoin/ids"
	"github.com/timecoin/timecoin/utils/crypto"
)

// SignedVote records one masternode's accepting vote in the round that
// finalized a transaction, the evidence a FinalityProof bundles.
type SignedVote struct {
	Voter ids.ShortID
}

// FinalityProof is broadcast once a transaction reaches beta consecutive
// accept quorums (spec.md §4.4): the finalizing node's own signature over
// the txid, plus the set of accepting votes observed in the deciding
// round. Peers that did not participate in sampling verify Signature
// against the well-known broadcaster identity rather than re-running the
// round themselves.
type FinalityProof struct {
	TxID      ids.ID
	Votes     []*SignedVote
	Signer    ids.ShortID
	Signature crypto.Signature
}

// Verify checks that Signature is a valid signature by signerKey over
// TxID.
func (p *FinalityProof) Verify(signerKey crypto.PublicKey) bool {
	return crypto.Verify(signerKey, p.TxID[:], p.Signature)
}
