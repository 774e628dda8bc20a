package wire

import (
	"github.com/timecoin/timecoin/chain"
	"github.com/timecoin/timecoin/ids"
	"github.com/timecoin/timecoin/masternode"
	"github.com/timecoin/timecoin/utils/crypto"
	"github.com/timecoin/timecoin/utils/wrappers"
)

// Encode prefixes msg's payload with its Type byte, the framing every
// peer connection reads to dispatch an incoming message.
func Encode(t Type, payload []byte) []byte {
	p := wrappers.Packer{Bytes: make([]byte, 0, len(payload)+1)}
	p.PackByte(byte(t))
	p.PackFixedBytes(payload)
	return p.Bytes
}

// DecodeType reads the leading Type byte and returns the remaining
// payload for dispatch to the matching Decode* function.
func DecodeType(data []byte) (Type, []byte, error) {
	u := wrappers.Unpacker{Bytes: data}
	t := u.UnpackByte()
	if u.Err != nil {
		return 0, nil, u.Err
	}
	return Type(t), data[u.Offset:], nil
}

func (m *Handshake) Bytes() []byte {
	p := wrappers.Packer{Bytes: make([]byte, 0, 4+ids.IDLen+ids.ShortIDLen+crypto.SignatureLen)}
	p.PackInt(m.Version)
	p.PackFixedBytes(m.ChainID[:])
	p.PackFixedBytes(m.NodeID[:])
	p.PackFixedBytes(m.SignedNonce[:])
	return p.Bytes
}

func DecodeHandshake(data []byte) (*Handshake, error) {
	u := wrappers.Unpacker{Bytes: data}
	version := u.UnpackInt()
	chainID, err := ids.ToID(u.UnpackFixedBytes(ids.IDLen))
	if err != nil {
		return nil, err
	}
	nodeID, err := ids.ToShortID(u.UnpackFixedBytes(ids.ShortIDLen))
	if err != nil {
		return nil, err
	}
	var sig crypto.Signature
	copy(sig[:], u.UnpackFixedBytes(crypto.SignatureLen))
	if u.Err != nil {
		return nil, u.Err
	}
	return &Handshake{Version: version, ChainID: chainID, NodeID: nodeID, SignedNonce: sig}, nil
}

func (m *Ping) Bytes() []byte {
	p := wrappers.Packer{Bytes: make([]byte, 0, wrappers.LongLen*2)}
	p.PackLong(m.Nonce)
	p.PackLong(uint64(m.Timestamp))
	return p.Bytes
}

func DecodePing(data []byte) (*Ping, error) {
	u := wrappers.Unpacker{Bytes: data}
	nonce := u.UnpackLong()
	ts := int64(u.UnpackLong())
	if u.Err != nil {
		return nil, u.Err
	}
	return &Ping{Nonce: nonce, Timestamp: ts}, nil
}

func (m *Pong) Bytes() []byte {
	p := wrappers.Packer{Bytes: make([]byte, 0, wrappers.LongLen)}
	p.PackLong(m.Nonce)
	return p.Bytes
}

func DecodePong(data []byte) (*Pong, error) {
	u := wrappers.Unpacker{Bytes: data}
	nonce := u.UnpackLong()
	if u.Err != nil {
		return nil, u.Err
	}
	return &Pong{Nonce: nonce}, nil
}

func (m *TxBroadcast) Bytes() []byte {
	p := wrappers.Packer{Bytes: make([]byte, 0, 256)}
	p.PackBytes(chain.EncodeTransaction(m.Tx))
	return p.Bytes
}

func DecodeTxBroadcast(data []byte) (*TxBroadcast, error) {
	u := wrappers.Unpacker{Bytes: data}
	raw := u.UnpackBytes()
	if u.Err != nil {
		return nil, u.Err
	}
	tx, err := chain.DecodeTransaction(raw)
	if err != nil {
		return nil, err
	}
	return &TxBroadcast{Tx: tx}, nil
}

func (m *TxVoteRequest) Bytes() []byte {
	p := wrappers.Packer{Bytes: make([]byte, 0, ids.IDLen)}
	p.PackFixedBytes(m.TxID[:])
	return p.Bytes
}

func DecodeTxVoteRequest(data []byte) (*TxVoteRequest, error) {
	u := wrappers.Unpacker{Bytes: data}
	txid, err := ids.ToID(u.UnpackFixedBytes(ids.IDLen))
	if err != nil {
		return nil, err
	}
	if u.Err != nil {
		return nil, u.Err
	}
	return &TxVoteRequest{TxID: txid}, nil
}

func (m *TxVoteResponse) Bytes() []byte {
	p := wrappers.Packer{Bytes: make([]byte, 0, ids.IDLen+1+crypto.SignatureLen)}
	p.PackFixedBytes(m.TxID[:])
	p.PackByte(m.Preference)
	p.PackFixedBytes(m.Signature[:])
	return p.Bytes
}

func DecodeTxVoteResponse(data []byte) (*TxVoteResponse, error) {
	u := wrappers.Unpacker{Bytes: data}
	txid, err := ids.ToID(u.UnpackFixedBytes(ids.IDLen))
	if err != nil {
		return nil, err
	}
	pref := u.UnpackByte()
	var sig crypto.Signature
	copy(sig[:], u.UnpackFixedBytes(crypto.SignatureLen))
	if u.Err != nil {
		return nil, u.Err
	}
	return &TxVoteResponse{TxID: txid, Preference: pref, Signature: sig}, nil
}

func (m *TxFinalityProof) Bytes() []byte {
	p := wrappers.Packer{Bytes: make([]byte, 0, ids.IDLen+wrappers.IntLen+len(m.Votes)*ids.ShortIDLen)}
	p.PackFixedBytes(m.TxID[:])
	p.PackInt(uint32(len(m.Votes)))
	for _, v := range m.Votes {
		p.PackFixedBytes(v[:])
	}
	return p.Bytes
}

func DecodeTxFinalityProof(data []byte) (*TxFinalityProof, error) {
	u := wrappers.Unpacker{Bytes: data}
	txid, err := ids.ToID(u.UnpackFixedBytes(ids.IDLen))
	if err != nil {
		return nil, err
	}
	count := u.UnpackInt()
	votes := make([]ids.ShortID, count)
	for i := range votes {
		v, err := ids.ToShortID(u.UnpackFixedBytes(ids.ShortIDLen))
		if err != nil {
			return nil, err
		}
		votes[i] = v
	}
	if u.Err != nil {
		return nil, u.Err
	}
	return &TxFinalityProof{TxID: txid, Votes: votes}, nil
}

func (m *BlockAnnouncement) Bytes() []byte {
	return chain.EncodeHeader(&m.Header)
}

func DecodeBlockAnnouncement(data []byte) (*BlockAnnouncement, error) {
	h, err := chain.DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	return &BlockAnnouncement{Header: *h}, nil
}

func (m *GetBlocks) Bytes() []byte {
	p := wrappers.Packer{Bytes: make([]byte, 0, wrappers.LongLen*2)}
	p.PackLong(m.LowHeight)
	p.PackLong(m.HighHeight)
	return p.Bytes
}

func DecodeGetBlocks(data []byte) (*GetBlocks, error) {
	u := wrappers.Unpacker{Bytes: data}
	low := u.UnpackLong()
	high := u.UnpackLong()
	if u.Err != nil {
		return nil, u.Err
	}
	return &GetBlocks{LowHeight: low, HighHeight: high}, nil
}

func (m *BlocksResponse) Bytes() []byte {
	p := wrappers.Packer{Bytes: make([]byte, 0, 256)}
	p.PackInt(uint32(len(m.Blocks)))
	for _, b := range m.Blocks {
		p.PackBytes(chain.EncodeBlock(b))
	}
	return p.Bytes
}

func DecodeBlocksResponse(data []byte) (*BlocksResponse, error) {
	u := wrappers.Unpacker{Bytes: data}
	count := u.UnpackInt()
	blocks := make([]*chain.Block, count)
	for i := range blocks {
		raw := u.UnpackBytes()
		if u.Err != nil {
			return nil, u.Err
		}
		b, err := chain.DecodeBlock(raw)
		if err != nil {
			return nil, err
		}
		blocks[i] = b
	}
	if u.Err != nil {
		return nil, u.Err
	}
	return &BlocksResponse{Blocks: blocks}, nil
}

func (m *GetHeaders) Bytes() []byte {
	p := wrappers.Packer{Bytes: make([]byte, 0, wrappers.LongLen*2)}
	p.PackLong(m.LowHeight)
	p.PackLong(m.HighHeight)
	return p.Bytes
}

func DecodeGetHeaders(data []byte) (*GetHeaders, error) {
	u := wrappers.Unpacker{Bytes: data}
	low := u.UnpackLong()
	high := u.UnpackLong()
	if u.Err != nil {
		return nil, u.Err
	}
	return &GetHeaders{LowHeight: low, HighHeight: high}, nil
}

func (m *HeadersResponse) Bytes() []byte {
	p := wrappers.Packer{Bytes: make([]byte, 0, 256)}
	p.PackInt(uint32(len(m.Headers)))
	for _, h := range m.Headers {
		p.PackBytes(chain.EncodeHeader(&h))
	}
	return p.Bytes
}

func DecodeHeadersResponse(data []byte) (*HeadersResponse, error) {
	u := wrappers.Unpacker{Bytes: data}
	count := u.UnpackInt()
	headers := make([]chain.BlockHeader, count)
	for i := range headers {
		raw := u.UnpackBytes()
		if u.Err != nil {
			return nil, u.Err
		}
		h, err := chain.DecodeHeader(raw)
		if err != nil {
			return nil, err
		}
		headers[i] = *h
	}
	if u.Err != nil {
		return nil, u.Err
	}
	return &HeadersResponse{Headers: headers}, nil
}

func (m *GetLockedCollaterals) Bytes() []byte { return nil }

func DecodeGetLockedCollaterals([]byte) (*GetLockedCollaterals, error) {
	return &GetLockedCollaterals{}, nil
}

func encodeCollateral(p *wrappers.Packer, c masternode.Collateral) {
	p.PackFixedBytes(c.Outpoint.TxID[:])
	p.PackInt(c.Outpoint.Vout)
	p.PackFixedBytes(c.MasternodeAddress[:])
	p.PackByte(byte(c.Tier))
	p.PackLong(c.LockedAtHeight)
	p.PackLong(c.Amount)
}

func decodeCollateral(u *wrappers.Unpacker) (masternode.Collateral, error) {
	txid, err := ids.ToID(u.UnpackFixedBytes(ids.IDLen))
	if err != nil {
		return masternode.Collateral{}, err
	}
	vout := u.UnpackInt()
	addr, err := ids.ToShortID(u.UnpackFixedBytes(ids.ShortIDLen))
	if err != nil {
		return masternode.Collateral{}, err
	}
	tier := masternode.Tier(u.UnpackByte())
	lockedAt := u.UnpackLong()
	amount := u.UnpackLong()
	if u.Err != nil {
		return masternode.Collateral{}, u.Err
	}
	return masternode.Collateral{
		Outpoint:          chain.OutPoint{TxID: txid, Vout: vout},
		MasternodeAddress: addr,
		Tier:              tier,
		LockedAtHeight:    lockedAt,
		Amount:            amount,
	}, nil
}

func (m *LockedCollateralsResponse) Bytes() []byte {
	p := wrappers.Packer{Bytes: make([]byte, 0, 256)}
	p.PackInt(uint32(len(m.Entries)))
	for _, e := range m.Entries {
		encodeCollateral(&p, e)
	}
	return p.Bytes
}

func DecodeLockedCollateralsResponse(data []byte) (*LockedCollateralsResponse, error) {
	u := wrappers.Unpacker{Bytes: data}
	count := u.UnpackInt()
	entries := make([]masternode.Collateral, count)
	for i := range entries {
		e, err := decodeCollateral(&u)
		if err != nil {
			return nil, err
		}
		entries[i] = e
	}
	if u.Err != nil {
		return nil, u.Err
	}
	return &LockedCollateralsResponse{Entries: entries}, nil
}

func (m *MasternodeAnnouncement) Bytes() []byte {
	p := wrappers.Packer{Bytes: make([]byte, 0, ids.ShortIDLen+1+crypto.PublicKeyLen+1+ids.IDLen+wrappers.IntLen)}
	p.PackFixedBytes(m.Address[:])
	p.PackByte(byte(m.Tier))
	p.PackFixedBytes(m.SigningKey[:])
	if m.Collateral == nil {
		p.PackBool(false)
	} else {
		p.PackBool(true)
		p.PackFixedBytes(m.Collateral.TxID[:])
		p.PackInt(m.Collateral.Vout)
	}
	return p.Bytes
}

func DecodeMasternodeAnnouncement(data []byte) (*MasternodeAnnouncement, error) {
	u := wrappers.Unpacker{Bytes: data}
	addr, err := ids.ToShortID(u.UnpackFixedBytes(ids.ShortIDLen))
	if err != nil {
		return nil, err
	}
	tier := masternode.Tier(u.UnpackByte())
	var key crypto.PublicKey
	copy(key[:], u.UnpackFixedBytes(crypto.PublicKeyLen))
	hasCollateral := u.UnpackBool()
	var collateral *chain.OutPoint
	if hasCollateral {
		txid, err := ids.ToID(u.UnpackFixedBytes(ids.IDLen))
		if err != nil {
			return nil, err
		}
		vout := u.UnpackInt()
		collateral = &chain.OutPoint{TxID: txid, Vout: vout}
	}
	if u.Err != nil {
		return nil, u.Err
	}
	return &MasternodeAnnouncement{Address: addr, Tier: tier, SigningKey: key, Collateral: collateral}, nil
}

func (m *MasternodeUnlock) Bytes() []byte {
	p := wrappers.Packer{Bytes: make([]byte, 0, ids.ShortIDLen+crypto.SignatureLen)}
	p.PackFixedBytes(m.Address[:])
	p.PackFixedBytes(m.Signature[:])
	return p.Bytes
}

func DecodeMasternodeUnlock(data []byte) (*MasternodeUnlock, error) {
	u := wrappers.Unpacker{Bytes: data}
	addr, err := ids.ToShortID(u.UnpackFixedBytes(ids.ShortIDLen))
	if err != nil {
		return nil, err
	}
	var sig crypto.Signature
	copy(sig[:], u.UnpackFixedBytes(crypto.SignatureLen))
	if u.Err != nil {
		return nil, u.Err
	}
	return &MasternodeUnlock{Address: addr, Signature: sig}, nil
}

func (m *Heartbeat) Bytes() []byte {
	p := wrappers.Packer{Bytes: make([]byte, 0, ids.ShortIDLen+wrappers.LongLen+crypto.SignatureLen)}
	p.PackFixedBytes(m.Address[:])
	p.PackLong(uint64(m.Timestamp))
	p.PackFixedBytes(m.Signature[:])
	return p.Bytes
}

func DecodeHeartbeat(data []byte) (*Heartbeat, error) {
	u := wrappers.Unpacker{Bytes: data}
	addr, err := ids.ToShortID(u.UnpackFixedBytes(ids.ShortIDLen))
	if err != nil {
		return nil, err
	}
	ts := int64(u.UnpackLong())
	var sig crypto.Signature
	copy(sig[:], u.UnpackFixedBytes(crypto.SignatureLen))
	if u.Err != nil {
		return nil, u.Err
	}
	return &Heartbeat{Address: addr, Timestamp: ts, Signature: sig}, nil
}

func (m *UtxoStateUpdate) Bytes() []byte {
	p := wrappers.Packer{Bytes: make([]byte, 0, ids.IDLen+wrappers.IntLen+1)}
	p.PackFixedBytes(m.OutPoint.TxID[:])
	p.PackInt(m.OutPoint.Vout)
	p.PackByte(byte(m.NewState))
	return p.Bytes
}

func DecodeUtxoStateUpdate(data []byte) (*UtxoStateUpdate, error) {
	u := wrappers.Unpacker{Bytes: data}
	txid, err := ids.ToID(u.UnpackFixedBytes(ids.IDLen))
	if err != nil {
		return nil, err
	}
	vout := u.UnpackInt()
	state := chain.UTXOState(u.UnpackByte())
	if u.Err != nil {
		return nil, u.Err
	}
	return &UtxoStateUpdate{OutPoint: chain.OutPoint{TxID: txid, Vout: vout}, NewState: state}, nil
}
