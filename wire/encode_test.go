package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/timecoin/timecoin/chain"
	"github.com/timecoin/timecoin/ids"
)

func TestHandshakeRoundTrip(t *testing.T) {
	var chainID ids.ID
	chainID[0] = 7
	var nodeID ids.ShortID
	nodeID[0] = 3

	hs := &Handshake{Version: 1, ChainID: chainID, NodeID: nodeID}
	hs.SignedNonce[0] = 0xAB

	got, err := DecodeHandshake(hs.Bytes())
	assert.NoError(t, err)
	assert.Equal(t, hs, got)
}

func TestTypeFramingDispatchesOnLeadingByte(t *testing.T) {
	ping := &Ping{Nonce: 42, Timestamp: 100}
	framed := Encode(TypePing, ping.Bytes())

	typ, payload, err := DecodeType(framed)
	assert.NoError(t, err)
	assert.Equal(t, TypePing, typ)

	got, err := DecodePing(payload)
	assert.NoError(t, err)
	assert.Equal(t, ping, got)
}

func TestGetBlocksRoundTrip(t *testing.T) {
	req := &GetBlocks{LowHeight: 10, HighHeight: 20}
	got, err := DecodeGetBlocks(req.Bytes())
	assert.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestBlocksResponseRoundTripWithMultipleBlocks(t *testing.T) {
	b1 := &chain.Block{Header: chain.BlockHeader{Height: 1, MerkleRoot: chain.MerkleRoot(nil)}}
	b2 := &chain.Block{Header: chain.BlockHeader{Height: 2, MerkleRoot: chain.MerkleRoot(nil)}}
	resp := &BlocksResponse{Blocks: []*chain.Block{b1, b2}}

	got, err := DecodeBlocksResponse(resp.Bytes())
	assert.NoError(t, err)
	assert.Len(t, got.Blocks, 2)
	assert.Equal(t, uint64(1), got.Blocks[0].Header.Height)
	assert.Equal(t, uint64(2), got.Blocks[1].Header.Height)
}

func TestMasternodeAnnouncementRoundTripWithoutCollateral(t *testing.T) {
	var addr ids.ShortID
	addr[0] = 5
	ann := &MasternodeAnnouncement{Address: addr}

	got, err := DecodeMasternodeAnnouncement(ann.Bytes())
	assert.NoError(t, err)
	assert.Nil(t, got.Collateral)
	assert.Equal(t, addr, got.Address)
}

func TestMasternodeAnnouncementRoundTripWithCollateral(t *testing.T) {
	var addr ids.ShortID
	addr[0] = 5
	var txid ids.ID
	txid[0] = 9
	ann := &MasternodeAnnouncement{Address: addr, Collateral: &chain.OutPoint{TxID: txid, Vout: 2}}

	got, err := DecodeMasternodeAnnouncement(ann.Bytes())
	assert.NoError(t, err)
	assert.Equal(t, ann.Collateral, got.Collateral)
}
