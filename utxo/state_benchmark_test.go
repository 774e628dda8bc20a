package utxo

import (
	"crypto/rand"
	mrand "math/rand"
	"testing"

	"github.com/timecoin/timecoin/chain"
	"github.com/timecoin/timecoin/ids"
)

// createRandomUTXOs builds count distinct genesis UTXOs with random
// owners, adapted from the teacher's database/merkledb/tree_benchmark_test.go
// CreateRandomValues helper (random-key generation over a map to avoid
// collisions), repurposed from generic tree keys to OutPoint/UTXO pairs
// sized for this spec's sharded map.
func createRandomUTXOs(count int) []*chain.UTXO {
	out := make([]*chain.UTXO, 0, count)
	seen := map[chain.OutPoint]bool{}
	for len(out) < count {
		var txid ids.ID
		_, _ = rand.Read(txid[:])
		op := chain.OutPoint{TxID: txid, Vout: uint32(mrand.Intn(8))} // #nosec G404
		if seen[op] {
			continue
		}
		seen[op] = true
		var owner ids.ShortID
		_, _ = rand.Read(owner[:])
		out = append(out, &chain.UTXO{OutPoint: op, Amount: uint64(mrand.Intn(1_000_000)), Owner: owner, State: chain.StateUnspent}) // #nosec G404
	}
	return out
}

func BenchmarkManager_Seed(b *testing.B) {
	tests := []struct {
		name string
		data []*chain.UTXO
	}{
		{"seed10k", createRandomUTXOs(10_000)},
		{"seed100k", createRandomUTXOs(100_000)},
	}

	for _, test := range tests {
		b.Run(test.name, func(b *testing.B) {
			m := NewManager()
			b.ResetTimer()
			m.Seed(test.data)
		})
	}
}

func BenchmarkManager_Get(b *testing.B) {
	tests := []struct {
		name string
		data []*chain.UTXO
	}{
		{"get10k", createRandomUTXOs(10_000)},
		{"get100k", createRandomUTXOs(100_000)},
	}

	for _, test := range tests {
		b.Run(test.name, func(b *testing.B) {
			m := NewManager()
			m.Seed(test.data)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				entry := test.data[i%len(test.data)]
				if _, ok := m.Get(entry.OutPoint); !ok {
					b.Fatalf("outpoint not found in the manager - %v", entry.OutPoint)
				}
			}
		})
	}
}

func BenchmarkManager_LockInputs(b *testing.B) {
	tests := []struct {
		name string
		data []*chain.UTXO
	}{
		{"lock10k", createRandomUTXOs(10_000)},
		{"lock100k", createRandomUTXOs(100_000)},
	}

	for _, test := range tests {
		b.Run(test.name, func(b *testing.B) {
			m := NewManager()
			m.Seed(test.data)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				entry := test.data[i%len(test.data)]
				tx := &chain.Transaction{Inputs: []chain.TxIn{{OutPoint: entry.OutPoint}}}
				_ = m.LockInputs(tx, nil, false)
				m.RejectLock(tx)
			}
		})
	}
}
