package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"noisepay/internal/domain"
)

// Version is the only schema version produced and accepted.
const Version = 1

// Type discriminates the wire messages.
type Type string

const (
	TypePaymentRequest Type = "payment_request"
	TypeConfirmReceipt Type = "confirm_receipt"
	TypeReject         Type = "reject"
)

// Reject codes sent by a payee.
const (
	CodeWrongPayee = "WRONG_PAYEE"
	CodeWrongPayer = "WRONG_PAYER"
	CodeDeclined   = "DECLINED"
	CodeInternal   = "INTERNAL"
)

// Message is one of RequestReceipt, ConfirmReceipt or Reject.
type Message interface {
	Type() Type
	ReceiptID() string
	isMessage()
}

// RequestReceipt asks the payee to confirm a provisional receipt.
type RequestReceipt struct {
	Receipt domain.Receipt
}

// ConfirmReceipt answers a request with the finalised receipt.
type ConfirmReceipt struct {
	Receipt domain.Receipt
}

// Reject answers a request with a refusal.
type Reject struct {
	ID     string
	Code   string
	Reason string
}

func (RequestReceipt) Type() Type { return TypePaymentRequest }
func (ConfirmReceipt) Type() Type { return TypeConfirmReceipt }
func (Reject) Type() Type         { return TypeReject }

func (m RequestReceipt) ReceiptID() string { return m.Receipt.ID }
func (m ConfirmReceipt) ReceiptID() string { return m.Receipt.ID }
func (m Reject) ReceiptID() string         { return m.ID }

func (RequestReceipt) isMessage() {}
func (ConfirmReceipt) isMessage() {}
func (Reject) isMessage()         {}

// wireMessage is the flat JSON form shared by all three messages.
type wireMessage struct {
	V         int               `json:"v"`
	Type      Type              `json:"type"`
	ReceiptID string            `json:"receipt_id"`
	Payer     string            `json:"payer_pubkey,omitempty"`
	Payee     string            `json:"payee_pubkey,omitempty"`
	MethodID  string            `json:"method_id,omitempty"`
	Amount    string            `json:"amount,omitempty"`
	Currency  string            `json:"currency,omitempty"`
	CreatedAt int64             `json:"created_at,omitempty"`
	Status    string            `json:"status,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Code      string            `json:"code,omitempty"`
	Reason    string            `json:"reason,omitempty"`
}

func fromReceipt(t Type, r domain.Receipt) wireMessage {
	return wireMessage{
		V:         Version,
		Type:      t,
		ReceiptID: r.ID,
		Payer:     string(r.Payer),
		Payee:     string(r.Payee),
		MethodID:  string(r.MethodID),
		Amount:    r.Amount,
		Currency:  r.Currency,
		CreatedAt: r.CreatedAt,
		Status:    string(r.Status),
		Metadata:  r.Metadata,
	}
}

func (w wireMessage) receipt() domain.Receipt {
	return domain.Receipt{
		ID:        w.ReceiptID,
		Payer:     domain.PublicKey(w.Payer),
		Payee:     domain.PublicKey(w.Payee),
		MethodID:  domain.MethodID(w.MethodID),
		Amount:    w.Amount,
		Currency:  w.Currency,
		CreatedAt: w.CreatedAt,
		Status:    domain.ReceiptStatus(w.Status),
		Metadata:  w.Metadata,
	}
}

// Encode serialises m. Encoding is deterministic: fields are emitted in a
// fixed order and metadata keys are sorted.
func Encode(m Message) ([]byte, error) {
	var w wireMessage
	switch m := m.(type) {
	case RequestReceipt:
		w = fromReceipt(TypePaymentRequest, m.Receipt)
	case ConfirmReceipt:
		w = fromReceipt(TypeConfirmReceipt, m.Receipt)
	case Reject:
		w = wireMessage{V: Version, Type: TypeReject, ReceiptID: m.ID, Code: m.Code, Reason: m.Reason}
	default:
		return nil, fmt.Errorf("encode: unsupported message %T", m)
	}
	if err := w.validate(); err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// Decode parses and validates one message. Field names must match exactly
// and appear once.
func Decode(b []byte) (Message, error) {
	if err := canonicalKeys(b); err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	var w wireMessage
	if err := dec.Decode(&w); err != nil {
		return nil, violation("decode: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, violation("decode: trailing data after message")
	}
	if err := w.validate(); err != nil {
		return nil, err
	}

	switch w.Type {
	case TypePaymentRequest:
		return RequestReceipt{Receipt: w.receipt()}, nil
	case TypeConfirmReceipt:
		return ConfirmReceipt{Receipt: w.receipt()}, nil
	default:
		return Reject{ID: w.ReceiptID, Code: w.Code, Reason: w.Reason}, nil
	}
}

var wireKeys = map[string]bool{
	"v": true, "type": true, "receipt_id": true, "payer_pubkey": true,
	"payee_pubkey": true, "method_id": true, "amount": true, "currency": true,
	"created_at": true, "status": true, "metadata": true, "code": true, "reason": true,
}

// canonicalKeys walks the top-level object before encoding/json sees it,
// since json.Unmarshal folds key case and keeps the last duplicate.
func canonicalKeys(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	if t, err := dec.Token(); err != nil || t != json.Delim('{') {
		return violation("decode: message is not a JSON object")
	}
	seen := make(map[string]bool, len(wireKeys))
	for dec.More() {
		key, err := objectKey(dec)
		if err != nil {
			return err
		}
		if !wireKeys[key] {
			return violation("decode: unknown field %q", key)
		}
		if seen[key] {
			return violation("decode: duplicate field %q", key)
		}
		seen[key] = true
		if key == "metadata" {
			if err := uniqueKeys(dec); err != nil {
				return err
			}
			continue
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return violation("decode: %v", err)
		}
	}
	return nil
}

// uniqueKeys consumes a metadata value, rejecting repeated keys.
func uniqueKeys(dec *json.Decoder) error {
	t, err := dec.Token()
	if err != nil {
		return violation("decode: %v", err)
	}
	if t == nil {
		return nil
	}
	if t != json.Delim('{') {
		return violation("decode: metadata is not an object")
	}
	seen := make(map[string]bool)
	for dec.More() {
		key, err := objectKey(dec)
		if err != nil {
			return err
		}
		if seen[key] {
			return violation("decode: duplicate metadata key %q", key)
		}
		seen[key] = true
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return violation("decode: %v", err)
		}
	}
	if _, err := dec.Token(); err != nil {
		return violation("decode: %v", err)
	}
	return nil
}

func objectKey(dec *json.Decoder) (string, error) {
	t, err := dec.Token()
	if err != nil {
		return "", violation("decode: %v", err)
	}
	key, ok := t.(string)
	if !ok {
		return "", violation("decode: malformed object")
	}
	return key, nil
}

func (w wireMessage) validate() error {
	if w.V != Version {
		return violation("unsupported version %d", w.V)
	}
	switch w.Type {
	case TypePaymentRequest, TypeConfirmReceipt:
		if w.ReceiptID == "" || w.Payer == "" || w.Payee == "" || w.MethodID == "" {
			return violation("%s: receipt_id, payer_pubkey, payee_pubkey and method_id are required", w.Type)
		}
		if w.Code != "" || w.Reason != "" {
			return violation("%s: unexpected reject fields", w.Type)
		}
		want := domain.ReceiptProvisional
		if w.Type == TypeConfirmReceipt {
			want = domain.ReceiptConfirmed
		}
		if w.Status != "" && domain.ReceiptStatus(w.Status) != want {
			return violation("%s: status %q", w.Type, w.Status)
		}
	case TypeReject:
		if w.Reason == "" {
			return violation("reject: reason is required")
		}
		if w.Payer != "" || w.Payee != "" || w.MethodID != "" || w.Amount != "" ||
			w.Currency != "" || w.Status != "" || w.CreatedAt != 0 || w.Metadata != nil {
			return violation("reject: unexpected receipt fields")
		}
	default:
		return violation("unknown message type %q", w.Type)
	}
	return nil
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrProtocolViolation, fmt.Sprintf(format, args...))
}
