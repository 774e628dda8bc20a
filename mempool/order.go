// OrderRespectingDependencies is adapted from the teacher's
// snow/consensus/snowstorm/tx.go TopologicalSort (Kahn's algorithm over a
// DAG of transaction dependencies). The teacher sorts transactions that
// declare explicit Dependencies(); this spec's transactions have no such
// field, so the dependency edge here is derived structurally: a
// transaction that spends an output created by another transaction in the
// same candidate set must be ordered after its producer. Ties (no
// dependency relation) preserve the input ordering, which callers set to
// the (receive time, fee_rate) order required by spec.md §4.2.
package mempool

import (
	"github.com/timecoin/timecoin/ids"
)

// OrderRespectingDependencies returns entries reordered so that a
// transaction spending an output another entry in the set creates always
// comes after its producer, otherwise preserving the input order.
func OrderRespectingDependencies(entries []*Entry) []*Entry {
	txIDs := ids.NewSet(len(entries))
	for _, e := range entries {
		txIDs.Add(e.TxID)
	}

	byID := make(map[ids.ID]*Entry, len(entries))
	deps := make(map[ids.ID]ids.Set, len(entries))
	inDegree := make(map[ids.ID]int, len(entries))
	for _, e := range entries {
		byID[e.TxID] = e
		producers := ids.NewSet(0)
		for _, in := range e.Tx.InputOutPoints() {
			if txIDs.Contains(in.TxID) {
				producers.Add(in.TxID)
			}
		}
		deps[e.TxID] = producers
		inDegree[e.TxID] = producers.Len()
	}

	// children[p] = list of entries that depend on producer p, used to
	// decrement inDegree as producers are emitted. Built in input order so
	// ties resolve deterministically by original position.
	children := make(map[ids.ID][]ids.ID)
	order := make([]ids.ID, 0, len(entries))
	ready := make([]ids.ID, 0, len(entries))
	for _, e := range entries {
		order = append(order, e.TxID)
		for dep := range deps[e.TxID] {
			children[dep] = append(children[dep], e.TxID)
		}
		if inDegree[e.TxID] == 0 {
			ready = append(ready, e.TxID)
		}
	}

	sorted := make([]*Entry, 0, len(entries))
	emitted := ids.NewSet(len(entries))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		if emitted.Contains(id) {
			continue
		}
		emitted.Add(id)
		sorted = append(sorted, byID[id])
		for _, child := range children[id] {
			inDegree[child]--
			if inDegree[child] == 0 {
				ready = append(ready, child)
			}
		}
	}

	// Any entry not emitted sits in a dependency cycle, which cannot
	// happen for well-formed UTXO spends (a cycle would require a
	// transaction to spend its own output); append defensively in
	// original order rather than dropping it silently.
	if len(sorted) != len(entries) {
		for _, id := range order {
			if !emitted.Contains(id) {
				sorted = append(sorted, byID[id])
			}
		}
	}
	return sorted
}
