// Package idalloc hands out the monotonically increasing ids the write
// pipeline needs: one collection id per created collection, and one
// sequence id per document within a collection.
package idalloc

import (
	"encoding/binary"
	"fmt"

	"github.com/cuemby/glint/pkg/kv"
)

// CollectionIDAllocator assigns the next collection id from the single
// $CI counter key.
type CollectionIDAllocator struct {
	store kv.Store
}

// NewCollectionIDAllocator builds an allocator over store.
func NewCollectionIDAllocator(store kv.Store) *CollectionIDAllocator {
	return &CollectionIDAllocator{store: store}
}

// Next atomically reads and increments the collection id counter,
// returning the id just allocated.
func (a *CollectionIDAllocator) Next() (uint32, error) {
	current, err := a.Peek()
	if err != nil {
		return 0, err
	}
	next := current + 1
	if err := a.store.Put(kv.PrefixCollectionIDCounter, encodeUint32(next)); err != nil {
		return 0, fmt.Errorf("idalloc: persist collection id counter: %w", err)
	}
	return next, nil
}

// Peek returns the most recently allocated collection id without
// allocating a new one; Next allocates the id after it.
func (a *CollectionIDAllocator) Peek() (uint32, error) {
	v, err := a.store.Get(kv.PrefixCollectionIDCounter)
	if err != nil {
		return 0, fmt.Errorf("idalloc: read collection id counter: %w", err)
	}
	if v == nil {
		return 0, nil
	}
	return decodeUint32(v), nil
}

// SeqIDAllocator assigns the next document sequence id within one
// collection, backed by the $CN_<name> counter key.
type SeqIDAllocator struct {
	store kv.Store
	key   []byte
}

// NewSeqIDAllocator builds a sequence id allocator for the named
// collection.
func NewSeqIDAllocator(store kv.Store, collection string) *SeqIDAllocator {
	return &SeqIDAllocator{store: store, key: kv.CollectionKey(kv.PrefixNextSeqID, collection)}
}

// Next atomically reads and increments the collection's sequence counter.
func (a *SeqIDAllocator) Next() (uint64, error) {
	current, err := a.Peek()
	if err != nil {
		return 0, err
	}
	next := current + 1
	if err := a.store.Put(a.key, encodeUint64(next)); err != nil {
		return 0, fmt.Errorf("idalloc: persist seq id counter: %w", err)
	}
	return next, nil
}

// Peek returns the highest sequence id allocated so far without
// allocating a new one.
func (a *SeqIDAllocator) Peek() (uint64, error) {
	v, err := a.store.Get(a.key)
	if err != nil {
		return 0, fmt.Errorf("idalloc: read seq id counter: %w", err)
	}
	if v == nil {
		return 0, nil
	}
	return binary.BigEndian.Uint64(v), nil
}

func encodeUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func decodeUint32(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
