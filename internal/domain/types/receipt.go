package types

// ReceiptStatus is the lifecycle position of a receipt.
type ReceiptStatus string

const (
	ReceiptProvisional ReceiptStatus = "provisional"
	ReceiptConfirmed   ReceiptStatus = "confirmed"
	ReceiptFailed      ReceiptStatus = "failed"
)

// Receipt records one payment between a payer and a payee.
type Receipt struct {
	ID        string            `json:"receipt_id"`
	Payer     PublicKey         `json:"payer"`
	Payee     PublicKey         `json:"payee"`
	MethodID  MethodID          `json:"method_id"`
	Amount    string            `json:"amount,omitempty"`
	Currency  string            `json:"currency,omitempty"`
	CreatedAt int64             `json:"created_at"`
	Status    ReceiptStatus     `json:"status"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// SameTerms reports whether r and o describe the same payment. Status,
// timestamps and metadata are ignored.
func (r Receipt) SameTerms(o Receipt) bool {
	return r.ID == o.ID &&
		r.Payer == o.Payer &&
		r.Payee == o.Payee &&
		r.MethodID == o.MethodID &&
		r.Amount == o.Amount &&
		r.Currency == o.Currency
}

// ReceiptFilter narrows a receipt listing. Zero fields match everything.
type ReceiptFilter struct {
	Status   ReceiptStatus
	Peer     PublicKey
	MethodID MethodID
	Limit    int
}

// Match reports whether r passes the filter (Limit is not considered).
func (f ReceiptFilter) Match(r Receipt) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Peer != "" && r.Payer != f.Peer && r.Payee != f.Peer {
		return false
	}
	if f.MethodID != "" && r.MethodID != f.MethodID {
		return false
	}
	return true
}
