package store

import (
	"errors"
	"sort"

	"noisepay/internal/domain"
)

var errEmptyReceiptID = errors.New("receipt id is required")

// ApplyFilter sorts receipts newest first (ties by ID) and applies f.
func ApplyFilter(all []domain.Receipt, f domain.ReceiptFilter) []domain.Receipt {
	out := make([]domain.Receipt, 0, len(all))
	for _, r := range all {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func validReceipt(r domain.Receipt) error {
	if r.ID == "" {
		return errEmptyReceiptID
	}
	return nil
}
