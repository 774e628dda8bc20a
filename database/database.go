// Package database defines the opaque, durable blob-addressed key-value
// store spec.md §1 explicitly treats as an external collaborator. The
// interface is grounded on the teacher's database.Database usage (seen
// via vms/components/archive/archive.go's "database.Database" parameter
// and prefixdb.New call); two concrete adapters live in the sibling
// memdb and leveldbstore packages.
package database

import "errors"

// ErrNotFound is returned by Get when the key does not exist; Has reports
// a missing key as (false, nil).
var ErrNotFound = errors.New("database: not found")

// ErrClosed is returned by any operation performed after Close.
var ErrClosed = errors.New("database: closed")

// KeyValueReader reads key-addressed blobs.
type KeyValueReader interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
}

// KeyValueWriter writes key-addressed blobs.
type KeyValueWriter interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Batch accumulates writes for an atomic flush, grounded on the teacher's
// archive.go comment "We are not closing this soooo" about the prefixed
// database's batch lifecycle.
type Batch interface {
	KeyValueWriter
	Write() error
	Reset()
	Size() int
}

// Iterator walks a key range in ascending order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Database is the full durable store surface the rest of this module
// treats as an opaque collaborator.
type Database interface {
	KeyValueReader
	KeyValueWriter
	NewBatch() Batch
	NewIteratorWithPrefix(prefix []byte) Iterator
	Close() error
}
