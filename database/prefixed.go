package database

// Prefixed returns a view over db where every key is implicitly prefixed
// with prefix, grounded on the teacher's vms/components/archive/archive.go
// (which wraps a raw state.State in a "archive" prefixdb.New namespace).
// This is used to lay out the persisted-state key layout of spec.md §6
// ("block/<hash>", "utxo/<txid><vout>", ...) over a single underlying
// Database.
func Prefixed(prefix string, db Database) Database {
	return &prefixedDB{prefix: []byte(prefix), db: db}
}

type prefixedDB struct {
	prefix []byte
	db     Database
}

func (p *prefixedDB) key(k []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(k))
	out = append(out, p.prefix...)
	out = append(out, k...)
	return out
}

func (p *prefixedDB) Has(key []byte) (bool, error)  { return p.db.Has(p.key(key)) }
func (p *prefixedDB) Get(key []byte) ([]byte, error) { return p.db.Get(p.key(key)) }
func (p *prefixedDB) Put(key, value []byte) error    { return p.db.Put(p.key(key), value) }
func (p *prefixedDB) Delete(key []byte) error        { return p.db.Delete(p.key(key)) }
func (p *prefixedDB) Close() error                   { return nil } // underlying db owns the lifecycle

func (p *prefixedDB) NewBatch() Batch { return &prefixedBatch{prefix: p.prefix, b: p.db.NewBatch()} }

func (p *prefixedDB) NewIteratorWithPrefix(prefix []byte) Iterator {
	return &prefixedIterator{prefixLen: len(p.prefix), it: p.db.NewIteratorWithPrefix(p.key(prefix))}
}

type prefixedBatch struct {
	prefix []byte
	b      Batch
}

func (pb *prefixedBatch) key(k []byte) []byte {
	out := make([]byte, 0, len(pb.prefix)+len(k))
	out = append(out, pb.prefix...)
	out = append(out, k...)
	return out
}

func (pb *prefixedBatch) Put(key, value []byte) error { return pb.b.Put(pb.key(key), value) }
func (pb *prefixedBatch) Delete(key []byte) error     { return pb.b.Delete(pb.key(key)) }
func (pb *prefixedBatch) Write() error                { return pb.b.Write() }
func (pb *prefixedBatch) Reset()                      { pb.b.Reset() }
func (pb *prefixedBatch) Size() int                   { return pb.b.Size() }

type prefixedIterator struct {
	prefixLen int
	it        Iterator
}

func (pi *prefixedIterator) Next() bool    { return pi.it.Next() }
func (pi *prefixedIterator) Key() []byte   { return pi.it.Key()[pi.prefixLen:] }
func (pi *prefixedIterator) Value() []byte { return pi.it.Value() }
func (pi *prefixedIterator) Release()      { pi.it.Release() }
func (pi *prefixedIterator) Error() error  { return pi.it.Error() }
