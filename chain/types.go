// Package chain defines the core data model of spec.md §3: outpoints,
// UTXOs and their state machine, transactions, blocks and headers.
// Grounded on the teacher's vms/avm/tx.go (UnsignedTx/Tx shape) and
// vms/components/avax.UTXO (referenced throughout the teacher as
// avax.UTXOID / avax.UTXO), reworked from the AVM's asset/fx model down
// to this spec's plain UTXO-of-amount-and-owner model.
package chain

import (
	"sort"

	"github.com/btcsuite/btcutil"

	"github.com/timecoin/timecoin/ids"
	"github.com/timecoin/timecoin/utils/crypto"
	"github.com/timecoin/timecoin/utils/hashing"
	"github.com/timecoin/timecoin/utils/wrappers"
)

// OutPoint uniquely identifies a transaction output.
type OutPoint struct {
	TxID ids.ID
	Vout uint32
}

// Bytes returns the canonical 36-byte encoding used as a UTXO/collateral
// store key (spec.md §6: "utxo/<txid><vout>").
func (o OutPoint) Bytes() []byte {
	p := wrappers.Packer{Bytes: make([]byte, 0, ids.IDLen+wrappers.IntLen)}
	p.PackFixedBytes(o.TxID[:])
	p.PackInt(o.Vout)
	return p.Bytes
}

// UTXOState is one state in the lifecycle described by spec.md §3.
type UTXOState int

const (
	// StateUnspent outputs are selectable as transaction inputs.
	StateUnspent UTXOState = iota
	// StateLocked outputs are reserved by a candidate transaction's
	// all-or-nothing input lock.
	StateLocked
	// StateSpentPending outputs are mid-finalization.
	StateSpentPending
	// StateSpentFinalized outputs have an Avalanche-finalized spend.
	StateSpentFinalized
	// StateConfirmed outputs are included in some finalized block.
	StateConfirmed
)

func (s UTXOState) String() string {
	switch s {
	case StateUnspent:
		return "Unspent"
	case StateLocked:
		return "Locked"
	case StateSpentPending:
		return "SpentPending"
	case StateSpentFinalized:
		return "SpentFinalized"
	case StateConfirmed:
		return "Confirmed"
	default:
		return "Unknown"
	}
}

// UTXO is a single unspent-or-transitioning transaction output.
type UTXO struct {
	OutPoint OutPoint
	Amount   uint64
	Owner    ids.ShortID
	State    UTXOState
	// Height is the height of the block whose ConfirmBlock call created
	// this output; zero for outputs seeded directly (e.g. genesis, or
	// test fixtures) rather than produced by a committed block.
	Height uint64
}

// TxIn references an existing output and the signature authorizing its
// consumption.
type TxIn struct {
	OutPoint  OutPoint
	Signature crypto.Signature
	SignerKey crypto.PublicKey
}

// TxOut creates a new output for the given address.
type TxOut struct {
	Address ids.ShortID
	Amount  uint64
}

// Transaction is spec.md §3's Transaction record.
type Transaction struct {
	Inputs    []TxIn
	Outputs   []TxOut
	Fee       uint64
	Timestamp int64

	id        ids.ID
	hasID     bool
	sizeBytes int
}

// UnsignedBytes returns the canonical encoding over which input
// signatures are computed, excluding the signatures themselves. The txid
// (ID) is hashed over Bytes, which does include them.
func (t *Transaction) UnsignedBytes() []byte {
	p := wrappers.Packer{}
	p.PackInt(uint32(len(t.Inputs)))
	for _, in := range t.Inputs {
		p.PackFixedBytes(in.OutPoint.Bytes())
	}
	p.PackInt(uint32(len(t.Outputs)))
	for _, out := range t.Outputs {
		p.PackFixedBytes(out.Address[:])
		p.PackLong(out.Amount)
	}
	p.PackLong(t.Fee)
	p.PackLong(uint64(t.Timestamp))
	return p.Bytes
}

// Bytes returns the full wire encoding, including input signatures.
func (t *Transaction) Bytes() []byte {
	p := wrappers.Packer{Bytes: t.UnsignedBytes()}
	for _, in := range t.Inputs {
		p.PackFixedBytes(in.SignerKey[:])
		p.PackFixedBytes(in.Signature[:])
	}
	return p.Bytes
}

// ID returns the transaction's hash, memoized.
func (t *Transaction) ID() ids.ID {
	if !t.hasID {
		t.id = ids.NewID(t.Bytes())
		t.hasID = true
		t.sizeBytes = len(t.Bytes())
	}
	return t.id
}

// Size returns the serialized size in bytes, used for fee-rate and pool
// bounding (spec.md §4.2).
func (t *Transaction) Size() int {
	if t.sizeBytes == 0 {
		t.sizeBytes = len(t.Bytes())
	}
	return t.sizeBytes
}

// FeeRate is fee / serialized_size, spec.md §4.2's eviction key.
func (t *Transaction) FeeRate() float64 {
	sz := t.Size()
	if sz == 0 {
		return 0
	}
	return float64(t.Fee) / float64(sz)
}

// FormatAmount renders a base-unit amount for log messages using
// btcsuite/btcutil.Amount's fixed-point string conversion (the teacher's
// go.mod carries btcutil for no other purpose than this kind of
// human-readable formatting — see DESIGN.md). Never used for on-chain
// math: all ledger arithmetic stays in integer uint64 base units.
func FormatAmount(baseUnits uint64) string {
	return btcutil.Amount(baseUnits).String()
}

// OwnerFromSignerKey derives the address a given signing key authorizes
// spends for: Hash160 of the raw public key, the same construction
// ids.Address wraps in Base58Check for display (spec.md §6). Used to bind
// a TxIn's SignerKey to the UTXO's recorded Owner during replay
// validation.
func OwnerFromSignerKey(pk crypto.PublicKey) ids.ShortID {
	return ids.NewShortID(hashing.ComputeHash160Array(pk[:]))
}

// InputOutPoints returns every OutPoint this transaction consumes.
func (t *Transaction) InputOutPoints() []OutPoint {
	out := make([]OutPoint, len(t.Inputs))
	for i, in := range t.Inputs {
		out[i] = in.OutPoint
	}
	return out
}

// TotalOut sums the amounts of t's outputs.
func TotalOut(t *Transaction) uint64 {
	var total uint64
	for _, o := range t.Outputs {
		total += o.Amount
	}
	return total
}

// BlockHeader is spec.md §3's Block header.
type BlockHeader struct {
	Height             uint64
	PrevHash           ids.ID
	MerkleRoot         ids.ID
	Timestamp          int64
	ProducerAddress    ids.ShortID
	ProducerSignature  crypto.Signature
}

// UnsignedBytes returns the header encoding minus the signature field,
// the exact surface the producer signs and validators verify against
// (spec.md §3: "signature verifies over the header minus the signature
// field").
func (h *BlockHeader) UnsignedBytes() []byte {
	p := wrappers.Packer{}
	p.PackLong(h.Height)
	p.PackFixedBytes(h.PrevHash[:])
	p.PackFixedBytes(h.MerkleRoot[:])
	p.PackLong(uint64(h.Timestamp))
	p.PackFixedBytes(h.ProducerAddress[:])
	return p.Bytes
}

// Hash returns SHA-256 over the full header, including the signature,
// the value the next block's PrevHash must equal (spec.md §3).
func (h *BlockHeader) Hash() ids.ID {
	p := wrappers.Packer{Bytes: h.UnsignedBytes()}
	p.PackFixedBytes(h.ProducerSignature[:])
	return ids.NewID(p.Bytes)
}

// Block is spec.md §3's Block: header plus an ordered transaction list.
type Block struct {
	Header       BlockHeader
	Transactions []*Transaction
}

// SortTransactions orders txs into the canonical block-body order spec.md
// §6 requires for the merkle root: a transaction spending an output
// another transaction in txs creates is ordered after its producer
// (spec.md §4.2's same-block dependency rule), with lexicographic txid
// order as the tie-break among transactions that don't depend on each
// other. Kahn's algorithm over that dependency DAG, the same
// topological-sort idiom mempool.OrderRespectingDependencies reuses from
// the teacher's snowstorm/tx.go, but broken by txid instead of input
// order so every node derives the identical order from the tx set alone
// — required since blockstore.Validator independently re-sorts to
// recompute the merkle root. A genuine dependency cycle can't occur (a
// transaction's id is a hash over its own inputs, so it can never be
// named as an input by a transaction it depends on); leftover
// transactions are appended defensively rather than dropped.
func SortTransactions(txs []*Transaction) {
	n := len(txs)
	if n < 2 {
		return
	}

	order := make([]ids.ID, n)
	byID := make(map[ids.ID]*Transaction, n)
	present := make(map[ids.ID]bool, n)
	for i, tx := range txs {
		id := tx.ID()
		order[i] = id
		byID[id] = tx
		present[id] = true
	}

	inDegree := make(map[ids.ID]int, n)
	children := make(map[ids.ID][]ids.ID, n)
	for _, id := range order {
		producers := make(map[ids.ID]bool)
		for _, in := range byID[id].Inputs {
			if present[in.OutPoint.TxID] {
				producers[in.OutPoint.TxID] = true
			}
		}
		inDegree[id] = len(producers)
		for p := range producers {
			children[p] = append(children[p], id)
		}
	}

	ready := make([]ids.ID, 0, n)
	for _, id := range order {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	sorted := make([]*Transaction, 0, n)
	emitted := make(map[ids.ID]bool, n)
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i].Less(ready[j]) })
		id := ready[0]
		ready = ready[1:]
		emitted[id] = true
		sorted = append(sorted, byID[id])
		for _, child := range children[id] {
			inDegree[child]--
			if inDegree[child] == 0 {
				ready = append(ready, child)
			}
		}
	}

	if len(sorted) != n {
		var leftover []ids.ID
		for _, id := range order {
			if !emitted[id] {
				leftover = append(leftover, id)
			}
		}
		sort.Slice(leftover, func(i, j int) bool { return leftover[i].Less(leftover[j]) })
		for _, id := range leftover {
			sorted = append(sorted, byID[id])
		}
	}
	copy(txs, sorted)
}

// MerkleRoot computes the block-body merkle root over txs, already
// ordered by SortTransactions. Pairs fold left-to-right with odd-tail
// duplication (spec.md §6); the empty-body convention is SHA-256 of the
// empty string (spec.md §8 scenario 1).
func MerkleRoot(txs []*Transaction) ids.ID {
	if len(txs) == 0 {
		return ids.NewID(nil)
	}
	level := make([][]byte, len(txs))
	for i, tx := range txs {
		id := tx.ID()
		level[i] = id.Bytes()
	}
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([][]byte, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, hashing.ComputeHash256(append(append([]byte{}, level[i]...), level[i+1]...)))
		}
		level = next
	}
	id, _ := ids.ToID(level[0])
	return id
}
