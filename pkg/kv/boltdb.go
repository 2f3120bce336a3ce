package kv

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

// bucketData is the single bucket every key in the store's keyspace lives
// under; bbolt's own key ordering gives us the byte-ordered prefix scans
// the rest of the pipeline needs.
var bucketData = []byte("data")

// bucketMeta holds the store's own bookkeeping: the latest applied
// sequence number.
var bucketMeta = []byte("meta")

var keyLatestSeq = []byte("latest_seq")

// BoltStore implements Store over a single bbolt database file with one
// flat, byte-ordered keyspace.
type BoltStore struct {
	db        *bolt.DB
	path      string
	updates   *updateLog
	latestSeq uint64
}

// NewBoltStore opens (creating if absent) a bbolt-backed Store rooted at
// dataDir/glint.db.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("kv: create data dir: %w", err)
	}
	dbPath := filepath.Join(dataDir, "glint.db")

	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("kv: open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketData); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMeta)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kv: init buckets: %w", err)
	}

	s := &BoltStore{db: db, path: dbPath, updates: newUpdateLog(256)}
	s.latestSeq, _ = s.loadLatestSeq()
	return s, nil
}

var _ Store = (*BoltStore)(nil)

func (s *BoltStore) loadLatestSeq() (uint64, error) {
	var seq uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketMeta).Get(keyLatestSeq)
		if v == nil {
			return nil
		}
		seq = decodeUint64(v)
		return nil
	})
	return seq, err
}

func (s *BoltStore) Put(key, value []byte) error {
	return s.BatchWrite([]Op{PutOp(key, value)})
}

func (s *BoltStore) Get(key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketData).Get(key)
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) Delete(key []byte) error {
	return s.BatchWrite([]Op{DeleteOp(key)})
}

func (s *BoltStore) BatchWrite(ops []Op) error {
	var newSeq uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketData)
		for _, op := range ops {
			switch op.Kind {
			case OpPut:
				if err := data.Put(op.Key, op.Value); err != nil {
					return err
				}
			case OpDelete:
				if err := data.Delete(op.Key); err != nil {
					return err
				}
			}
		}
		newSeq = s.latestSeq + 1
		return tx.Bucket(bucketMeta).Put(keyLatestSeq, encodeUint64(newSeq))
	})
	if err != nil {
		return fmt.Errorf("kv: batch write: %w", err)
	}
	s.latestSeq = newSeq
	s.updates.append(Batch{Seq: newSeq, Ops: ops})
	return nil
}

func (s *BoltStore) Scan(lowerBound, upperBound []byte) (Iterator, error) {
	tx, err := s.db.Begin(false)
	if err != nil {
		return nil, fmt.Errorf("kv: begin scan: %w", err)
	}
	cursor := tx.Bucket(bucketData).Cursor()
	return &boltIterator{tx: tx, cursor: cursor, lower: lowerBound, upper: upperBound}, nil
}

func (s *BoltStore) DeleteRange(lowerBound, upperBound []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketData)
		c := b.Cursor()
		var keys [][]byte
		for k, _ := c.Seek(lowerBound); k != nil && withinUpper(k, upperBound); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// CompactRange is a no-op: bbolt reclaims freed pages on its own free list
// and has no manual compaction step.
func (s *BoltStore) CompactRange(lowerBound, upperBound []byte) error {
	return nil
}

func (s *BoltStore) Flush() error {
	return s.db.Sync()
}

func (s *BoltStore) GetLatestSeq() uint64 {
	return s.latestSeq
}

func (s *BoltStore) GetUpdatesSince(fromSeq uint64) ([]Batch, error) {
	return s.updates.since(fromSeq), nil
}

func (s *BoltStore) Checkpoint(path string) error {
	return s.db.View(func(tx *bolt.Tx) error {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = tx.WriteTo(f)
		return err
	})
}

func (s *BoltStore) Reload(clear bool, snapshotPath string) error {
	snap, err := bolt.Open(snapshotPath, 0o400, &bolt.Options{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("kv: open snapshot: %w", err)
	}
	defer snap.Close()

	return s.db.Update(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketData)
		if clear {
			c := data.Cursor()
			for k, _ := c.First(); k != nil; k, _ = c.Next() {
				if err := data.Delete(k); err != nil {
					return err
				}
			}
		}
		return snap.View(func(snapTx *bolt.Tx) error {
			snapData := snapTx.Bucket(bucketData)
			if snapData == nil {
				return nil
			}
			return snapData.ForEach(func(k, v []byte) error {
				return data.Put(append([]byte(nil), k...), append([]byte(nil), v...))
			})
		})
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func withinUpper(key, upperBound []byte) bool {
	return upperBound == nil || bytes.Compare(key, upperBound) < 0
}

// boltIterator adapts a read-only bbolt transaction + cursor to Iterator.
// It owns the transaction and must be Closed to release it.
type boltIterator struct {
	tx      *bolt.Tx
	cursor  *bolt.Cursor
	lower   []byte
	upper   []byte
	key     []byte
	value   []byte
	started bool
	valid   bool
}

func (it *boltIterator) Next() bool {
	var k, v []byte
	if !it.started {
		it.started = true
		k, v = it.cursor.Seek(it.lower)
	} else {
		k, v = it.cursor.Next()
	}
	if k == nil || !withinUpper(k, it.upper) {
		it.valid = false
		it.key, it.value = nil, nil
		return false
	}
	it.key = append([]byte(nil), k...)
	it.value = append([]byte(nil), v...)
	it.valid = true
	return true
}

func (it *boltIterator) Valid() bool   { return it.valid }
func (it *boltIterator) Key() []byte   { return it.key }
func (it *boltIterator) Value() []byte { return it.value }
func (it *boltIterator) Close() error  { return it.tx.Rollback() }

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func decodeUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
