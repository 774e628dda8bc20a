// Package memdb is an in-memory database.Database implementation used by
// unit tests, grounded on the teacher's archive.go split between a
// concrete state/database pair and a prefixed view over it.
package memdb

import (
	"bytes"
	"sort"
	"sync"

	"github.com/timecoin/timecoin/database"
)

// Database is a goroutine-safe in-memory map backing database.Database.
type Database struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// New returns an empty in-memory database.
func New() *Database {
	return &Database{data: make(map[string][]byte)}
}

func (db *Database) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return false, database.ErrClosed
	}
	_, ok := db.data[string(key)]
	return ok, nil
}

func (db *Database) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, database.ErrClosed
	}
	v, ok := db.data[string(key)]
	if !ok {
		return nil, database.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (db *Database) Put(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return database.ErrClosed
	}
	v := make([]byte, len(value))
	copy(v, value)
	db.data[string(key)] = v
	return nil
}

func (db *Database) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return database.ErrClosed
	}
	delete(db.data, string(key))
	return nil
}

func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.closed = true
	return nil
}

// NewBatch returns a batch that buffers writes until Write is called.
func (db *Database) NewBatch() database.Batch { return &batch{db: db} }

// NewIteratorWithPrefix returns an ascending iterator over keys with the
// given prefix, snapshotting the matching keys at call time.
func (db *Database) NewIteratorWithPrefix(prefix []byte) database.Iterator {
	db.mu.RLock()
	defer db.mu.RUnlock()

	keys := make([]string, 0)
	for k := range db.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	return &iterator{db: db, keys: keys, pos: -1}
}

type batch struct {
	db  *Database
	ops []op
	sz  int
}

type op struct {
	key, value []byte
	del        bool
}

func (b *batch) Put(key, value []byte) error {
	b.ops = append(b.ops, op{key: key, value: value})
	b.sz += len(key) + len(value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.ops = append(b.ops, op{key: key, del: true})
	b.sz += len(key)
	return nil
}

func (b *batch) Size() int { return b.sz }

func (b *batch) Reset() {
	b.ops = nil
	b.sz = 0
}

func (b *batch) Write() error {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	if b.db.closed {
		return database.ErrClosed
	}
	for _, o := range b.ops {
		if o.del {
			delete(b.db.data, string(o.key))
			continue
		}
		v := make([]byte, len(o.value))
		copy(v, o.value)
		b.db.data[string(o.key)] = v
	}
	return nil
}

type iterator struct {
	db   *Database
	keys []string
	pos  int
}

func (it *iterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *iterator) Key() []byte { return []byte(it.keys[it.pos]) }

func (it *iterator) Value() []byte {
	it.db.mu.RLock()
	defer it.db.mu.RUnlock()
	v := it.db.data[it.keys[it.pos]]
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (it *iterator) Release()     {}
func (it *iterator) Error() error { return nil }
