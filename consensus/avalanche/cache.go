package avalanche

import (
	"time"

	"github.com/allegro/bigcache"

	"github.com/timecoin/timecoin/chain"
	"github.com/timecoin/timecoin/ids"
)

// TxCache is the "last-query cache" spec.md §4.4's per-transaction state
// list names: when this node is queried about a txid it has not seen
// before, it must fetch the transaction body before it can begin its own
// round (§4.4, "Responding to queries"). Caching that body here means a
// second query for the same still-unfinalized txid — from the same peer
// retrying, or a different sampled masternode relaying the same round —
// does not re-trigger a fetch. Backed by allegro/bigcache so repeated
// inserts/evictions under high query volume don't pressure the GC the
// way a plain map of byte slices would.
type TxCache struct {
	cache *bigcache.BigCache
}

// NewTxCache builds a TxCache that evicts entries after ttl, matching the
// round-cap-bounded lifetime of an in-flight Avalanche decision (an entry
// only needs to survive as long as the round procedure might still be
// querying this node about that txid).
func NewTxCache(ttl time.Duration) (*TxCache, error) {
	cfg := bigcache.DefaultConfig(ttl)
	c, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, err
	}
	return &TxCache{cache: c}, nil
}

// Put records tx under its txid for later Get calls.
func (c *TxCache) Put(tx *chain.Transaction) error {
	return c.cache.Set(tx.ID().String(), chain.EncodeTransaction(tx))
}

// Get returns the cached transaction for txid, if still present.
func (c *TxCache) Get(txid ids.ID) (*chain.Transaction, bool) {
	data, err := c.cache.Get(txid.String())
	if err != nil {
		return nil, false
	}
	tx, err := chain.DecodeTransaction(data)
	if err != nil {
		return nil, false
	}
	return tx, true
}
