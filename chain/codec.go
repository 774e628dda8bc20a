package chain

import (
	"github.com/timecoin/timecoin/ids"
	"github.com/timecoin/timecoin/utils/crypto"
	"github.com/timecoin/timecoin/utils/wrappers"
)

// EncodeTransaction returns tx's full wire encoding (Bytes(), exposed under
// this name for callers that store/transmit transactions rather than hash
// them).
func EncodeTransaction(tx *Transaction) []byte { return tx.Bytes() }

// DecodeTransaction parses the encoding produced by EncodeTransaction,
// mirroring the exact field order UnsignedBytes/Bytes serialize in.
func DecodeTransaction(data []byte) (*Transaction, error) {
	u := wrappers.Unpacker{Bytes: data}
	inCount := u.UnpackInt()
	ops := make([]OutPoint, inCount)
	for i := range ops {
		txid, err := ids.ToID(u.UnpackFixedBytes(ids.IDLen))
		if err != nil {
			return nil, err
		}
		ops[i] = OutPoint{TxID: txid, Vout: u.UnpackInt()}
	}

	outCount := u.UnpackInt()
	outs := make([]TxOut, outCount)
	for i := range outs {
		addr, err := ids.ToShortID(u.UnpackFixedBytes(ids.ShortIDLen))
		if err != nil {
			return nil, err
		}
		outs[i] = TxOut{Address: addr, Amount: u.UnpackLong()}
	}

	fee := u.UnpackLong()
	timestamp := int64(u.UnpackLong())

	inputs := make([]TxIn, inCount)
	for i := range inputs {
		var key crypto.PublicKey
		copy(key[:], u.UnpackFixedBytes(crypto.PublicKeyLen))
		var sig crypto.Signature
		copy(sig[:], u.UnpackFixedBytes(crypto.SignatureLen))
		inputs[i] = TxIn{OutPoint: ops[i], SignerKey: key, Signature: sig}
	}

	if u.Err != nil {
		return nil, u.Err
	}
	return &Transaction{Inputs: inputs, Outputs: outs, Fee: fee, Timestamp: timestamp}, nil
}

// EncodeHeader returns h's full wire encoding (unsigned bytes plus the
// producer signature).
func EncodeHeader(h *BlockHeader) []byte {
	p := wrappers.Packer{Bytes: h.UnsignedBytes()}
	p.PackFixedBytes(h.ProducerSignature[:])
	return p.Bytes
}

// DecodeHeader parses the encoding produced by EncodeHeader.
func DecodeHeader(data []byte) (*BlockHeader, error) {
	u := wrappers.Unpacker{Bytes: data}
	height := u.UnpackLong()
	prevHash, err := ids.ToID(u.UnpackFixedBytes(ids.IDLen))
	if err != nil {
		return nil, err
	}
	merkle, err := ids.ToID(u.UnpackFixedBytes(ids.IDLen))
	if err != nil {
		return nil, err
	}
	timestamp := int64(u.UnpackLong())
	addr, err := ids.ToShortID(u.UnpackFixedBytes(ids.ShortIDLen))
	if err != nil {
		return nil, err
	}
	var sig crypto.Signature
	copy(sig[:], u.UnpackFixedBytes(crypto.SignatureLen))
	if u.Err != nil {
		return nil, u.Err
	}
	return &BlockHeader{
		Height:            height,
		PrevHash:          prevHash,
		MerkleRoot:        merkle,
		Timestamp:         timestamp,
		ProducerAddress:   addr,
		ProducerSignature: sig,
	}, nil
}

// EncodeBlock returns b's full wire encoding: its header followed by each
// transaction, length-prefixed.
func EncodeBlock(b *Block) []byte {
	p := wrappers.Packer{Bytes: EncodeHeader(&b.Header)}
	p.PackInt(uint32(len(b.Transactions)))
	for _, tx := range b.Transactions {
		p.PackBytes(EncodeTransaction(tx))
	}
	return p.Bytes
}

// DecodeBlock parses the encoding produced by EncodeBlock.
func DecodeBlock(data []byte) (*Block, error) {
	u := wrappers.Unpacker{Bytes: data}
	headerLen := headerEncodedLen()
	if len(data) < headerLen {
		return nil, wrappers.ErrInsufficientLength
	}
	header, err := DecodeHeader(data[:headerLen])
	if err != nil {
		return nil, err
	}
	u.Offset = headerLen

	txCount := u.UnpackInt()
	txs := make([]*Transaction, txCount)
	for i := range txs {
		raw := u.UnpackBytes()
		if u.Err != nil {
			return nil, u.Err
		}
		tx, err := DecodeTransaction(raw)
		if err != nil {
			return nil, err
		}
		txs[i] = tx
	}
	if u.Err != nil {
		return nil, u.Err
	}
	return &Block{Header: *header, Transactions: txs}, nil
}

// headerEncodedLen returns the fixed encoded length of a BlockHeader:
// height(8) + prev_hash(32) + merkle_root(32) + timestamp(8) +
// producer_address(20) + signature(64).
func headerEncodedLen() int {
	return wrappers.LongLen + ids.IDLen + ids.IDLen + wrappers.LongLen + ids.ShortIDLen + crypto.SignatureLen
}
