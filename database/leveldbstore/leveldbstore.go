// Package leveldbstore is the durable database.Database adapter backed by
// github.com/syndtr/goleveldb, the teacher's own on-disk store dependency.
// This is one concrete instance of the out-of-scope "on-disk key-value
// store" spec.md §1 names as an external collaborator; the node only ever
// talks to it through the database.Database interface.
package leveldbstore

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/timecoin/timecoin/database"
)

// Store wraps a goleveldb database.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if absent) the LevelDB store at dir.
func Open(dir string) (*Store, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Has(key []byte) (bool, error) { return s.db.Has(key, nil) }

func (s *Store) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, database.ErrNotFound
	}
	return v, err
}

func (s *Store) Put(key, value []byte) error { return s.db.Put(key, value, nil) }

func (s *Store) Delete(key []byte) error { return s.db.Delete(key, nil) }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) NewBatch() database.Batch { return &batch{db: s.db, b: new(leveldb.Batch)} }

func (s *Store) NewIteratorWithPrefix(prefix []byte) database.Iterator {
	return &iter{it: s.db.NewIterator(util.BytesPrefix(prefix), nil)}
}

type batch struct {
	db *leveldb.DB
	b  *leveldb.Batch
}

func (b *batch) Put(key, value []byte) error { b.b.Put(key, value); return nil }
func (b *batch) Delete(key []byte) error     { b.b.Delete(key); return nil }
func (b *batch) Size() int                   { return b.b.Len() }
func (b *batch) Reset()                      { b.b.Reset() }
func (b *batch) Write() error                { return b.db.Write(b.b, nil) }

type iter struct {
	it iterator.Iterator
}

func (i *iter) Next() bool       { return i.it.Next() }
func (i *iter) Key() []byte      { return i.it.Key() }
func (i *iter) Value() []byte    { return i.it.Value() }
func (i *iter) Release()         { i.it.Release() }
func (i *iter) Error() error     { return i.it.Error() }
