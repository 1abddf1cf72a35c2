package store

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"

	"noisepay/internal/domain"
)

// BoltFilename is the default database name under the home directory.
const BoltFilename = "receipts.db"

var bucketReceipts = []byte("receipts")

// BoltReceiptStore keeps receipts in a BoltDB bucket keyed by ID, one JSON
// value per receipt.
type BoltReceiptStore struct {
	db *bolt.DB
}

// OpenBoltReceiptStore opens (creating if needed) the database at path.
// Bolt holds an exclusive file lock, so a second process waits up to one
// second and then fails.
func OpenBoltReceiptStore(path string) (*BoltReceiptStore, error) {
	db, err := bolt.Open(filepath.Clean(path), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bucketReceipts)
		return e
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltReceiptStore{db: db}, nil
}

// Close releases the database file.
func (s *BoltReceiptStore) Close() error { return s.db.Close() }

// SaveReceipt inserts or replaces r.
func (s *BoltReceiptStore) SaveReceipt(r domain.Receipt) error {
	if err := validReceipt(r); err != nil {
		return err
	}
	v, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(bucketReceipts)
		if bk == nil {
			return bolt.ErrBucketNotFound
		}
		return bk.Put([]byte(r.ID), v)
	})
}

// GetReceipt returns the receipt with id.
func (s *BoltReceiptStore) GetReceipt(id string) (domain.Receipt, bool, error) {
	var (
		r  domain.Receipt
		ok bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(bucketReceipts)
		if bk == nil {
			return bolt.ErrBucketNotFound
		}
		v := bk.Get([]byte(id))
		if v == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(v, &r)
	})
	return r, ok, err
}

// ListReceipts returns receipts matching filter, newest first.
func (s *BoltReceiptStore) ListReceipts(filter domain.ReceiptFilter) ([]domain.Receipt, error) {
	var all []domain.Receipt
	err := s.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(bucketReceipts)
		if bk == nil {
			return bolt.ErrBucketNotFound
		}
		c := bk.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var r domain.Receipt
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			if filter.Match(r) {
				all = append(all, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ApplyFilter(all, filter), nil
}

// Prune deletes receipts with the given status created before cutoff and
// reports how many were removed.
func (s *BoltReceiptStore) Prune(status domain.ReceiptStatus, cutoff time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(bucketReceipts)
		if bk == nil {
			return bolt.ErrBucketNotFound
		}
		// Deleting under a live cursor can skip keys; collect first.
		var stale [][]byte
		err := bk.ForEach(func(k, v []byte) error {
			var r domain.Receipt
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			if r.Status == status && r.CreatedAt < cutoff.Unix() {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := bk.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// Compile-time assertion that BoltReceiptStore implements domain.ReceiptStore.
var _ domain.ReceiptStore = (*BoltReceiptStore)(nil)
