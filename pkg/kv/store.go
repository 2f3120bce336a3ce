// Package kv implements the single byte-ordered keyspace that every
// collection's schema, sequence counters, symlinks, presets, and raft
// chunk staging area are stored under.
package kv

// OpKind distinguishes a put from a delete inside a BatchWrite.
type OpKind int

const (
	OpPut OpKind = iota
	OpDelete
)

// Op is one mutation inside an atomic batch.
type Op struct {
	Kind  OpKind
	Key   []byte
	Value []byte
}

// PutOp builds a put Op.
func PutOp(key, value []byte) Op {
	return Op{Kind: OpPut, Key: key, Value: value}
}

// DeleteOp builds a delete Op.
func DeleteOp(key []byte) Op {
	return Op{Kind: OpDelete, Key: key}
}

// Iterator walks a byte range in key order. Valid must be checked before
// the first call to Key/Value, and after every call to Next.
type Iterator interface {
	Next() bool
	Valid() bool
	Key() []byte
	Value() []byte
	Close() error
}

// Store is the key-value contract the rest of the write/search pipeline is
// built on: a single ordered keyspace supporting point reads/writes, atomic
// multi-key batches, and prefix range scans.
type Store interface {
	Put(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error

	// BatchWrite applies every Op atomically: either all of them land or
	// none do.
	BatchWrite(ops []Op) error

	// Scan returns an Iterator over [lowerBound, upperBound). A nil
	// upperBound scans to the end of the keyspace.
	Scan(lowerBound, upperBound []byte) (Iterator, error)

	// DeleteRange removes every key in [lowerBound, upperBound).
	DeleteRange(lowerBound, upperBound []byte) error

	// CompactRange reclaims space freed by DeleteRange. A no-op for
	// engines (like bbolt) that don't need manual compaction is legal.
	CompactRange(lowerBound, upperBound []byte) error

	// Flush forces buffered writes to durable storage.
	Flush() error

	// GetLatestSeq returns the sequence number of the most recent
	// BatchWrite/Put/Delete applied to the store.
	GetLatestSeq() uint64

	// GetUpdatesSince returns every batch applied after fromSeq, in
	// order, for followers catching up without a full snapshot.
	GetUpdatesSince(fromSeq uint64) ([]Batch, error)

	// Checkpoint writes a point-in-time copy of the store to path.
	Checkpoint(path string) error

	// Reload replaces the live store's contents. If clear is true the
	// existing keyspace is wiped first; otherwise snapshotPath's content
	// is layered on top of what's there. Used to restore from a raft
	// snapshot.
	Reload(clear bool, snapshotPath string) error

	Close() error
}

// Batch is one durably-applied group of Ops, tagged with the sequence
// number it was assigned.
type Batch struct {
	Seq uint64
	Ops []Op
}
