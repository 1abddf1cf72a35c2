package store

import (
	"path/filepath"
	"sync"

	"noisepay/internal/domain"
)

const receiptsFilename = "receipts.json"

// ReceiptFileStore keeps all receipts in one JSON document keyed by ID.
type ReceiptFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewReceiptFileStore returns a ReceiptFileStore rooted at dir.
func NewReceiptFileStore(dir string) *ReceiptFileStore {
	return &ReceiptFileStore{dir: dir}
}

func (s *ReceiptFileStore) path() string { return filepath.Join(s.dir, receiptsFilename) }

func (s *ReceiptFileStore) load() (map[string]domain.Receipt, error) {
	receipts := map[string]domain.Receipt{}
	if err := readJSON(s.path(), &receipts); err != nil {
		return nil, err
	}
	return receipts, nil
}

// SaveReceipt inserts or replaces r.
func (s *ReceiptFileStore) SaveReceipt(r domain.Receipt) error {
	if err := validReceipt(r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	receipts, err := s.load()
	if err != nil {
		return err
	}
	receipts[r.ID] = r
	return writeJSON(s.path(), receipts, 0o600)
}

// GetReceipt returns the receipt with id.
func (s *ReceiptFileStore) GetReceipt(id string) (domain.Receipt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	receipts, err := s.load()
	if err != nil {
		return domain.Receipt{}, false, err
	}
	r, ok := receipts[id]
	return r, ok, nil
}

// ListReceipts returns receipts matching filter, newest first.
func (s *ReceiptFileStore) ListReceipts(filter domain.ReceiptFilter) ([]domain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	receipts, err := s.load()
	if err != nil {
		return nil, err
	}
	all := make([]domain.Receipt, 0, len(receipts))
	for _, r := range receipts {
		all = append(all, r)
	}
	return ApplyFilter(all, filter), nil
}

// Compile-time assertion that ReceiptFileStore implements domain.ReceiptStore.
var _ domain.ReceiptStore = (*ReceiptFileStore)(nil)
