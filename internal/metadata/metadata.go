// Package metadata gives structure to the free-form receipt metadata map.
//
// Order, shipping and tax sections are stored as JSON strings under the
// reserved keys "order", "shipping" and "tax". Every other key is custom
// and passes through unchanged.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	KeyOrder    = "order"
	KeyShipping = "shipping"
	KeyTax      = "tax"
)

// ErrInvalid wraps every decode and validation failure.
var ErrInvalid = errors.New("invalid metadata")

type Item struct {
	Description string `json:"description"`
	Quantity    uint32 `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Currency    string `json:"currency"`
	SKU         string `json:"sku,omitempty"`
}

type Order struct {
	OrderID       string `json:"order_id,omitempty"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	Items         []Item `json:"items,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

type Address struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type Shipping struct {
	Address           *Address `json:"address,omitempty"`
	Method            string   `json:"method,omitempty"`
	Cost              string   `json:"cost,omitempty"`
	CostCurrency      string   `json:"cost_currency,omitempty"`
	TrackingNumber    string   `json:"tracking_number,omitempty"`
	Carrier           string   `json:"carrier,omitempty"`
	EstimatedDelivery int64    `json:"estimated_delivery,omitempty"` // unix seconds
}

type Tax struct {
	Description  string  `json:"description,omitempty"`
	Rate         float64 `json:"rate,omitempty"`
	Amount       string  `json:"amount,omitempty"`
	Currency     string  `json:"currency,omitempty"`
	Jurisdiction string  `json:"jurisdiction,omitempty"`
	TaxID        string  `json:"tax_id,omitempty"`
}

// Payment is the typed view of a receipt's metadata.
type Payment struct {
	Order    *Order
	Shipping *Shipping
	Tax      *Tax
	Custom   map[string]string
}

func (p Payment) IsEmpty() bool {
	return p.Order == nil && p.Shipping == nil && p.Tax == nil && len(p.Custom) == 0
}

// Merge returns p with every section present in other replacing p's.
// Custom keys are unioned, other winning on conflict.
func (p Payment) Merge(other Payment) Payment {
	if other.Order != nil {
		p.Order = other.Order
	}
	if other.Shipping != nil {
		p.Shipping = other.Shipping
	}
	if other.Tax != nil {
		p.Tax = other.Tax
	}
	if len(other.Custom) > 0 {
		custom := make(map[string]string, len(p.Custom)+len(other.Custom))
		for k, v := range p.Custom {
			custom[k] = v
		}
		for k, v := range other.Custom {
			custom[k] = v
		}
		p.Custom = custom
	}
	return p
}

func reserved(k string) bool { return k == KeyOrder || k == KeyShipping || k == KeyTax }

// Encode flattens p into a receipt metadata map. It returns nil for an
// empty Payment.
func Encode(p Payment) (map[string]string, error) {
	if p.IsEmpty() {
		return nil, nil
	}
	out := make(map[string]string, len(p.Custom)+3)
	for k, v := range p.Custom {
		if reserved(k) {
			return nil, fmt.Errorf("%w: custom key %q is reserved", ErrInvalid, k)
		}
		out[k] = v
	}
	sections := []struct {
		key string
		v   any
		set bool
	}{
		{KeyOrder, p.Order, p.Order != nil},
		{KeyShipping, p.Shipping, p.Shipping != nil},
		{KeyTax, p.Tax, p.Tax != nil},
	}
	for _, s := range sections {
		if !s.set {
			continue
		}
		b, err := json.Marshal(s.v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, s.key, err)
		}
		out[s.key] = string(b)
	}
	return out, nil
}

// Decode parses a receipt metadata map. Reserved keys must hold valid JSON
// for their section.
func Decode(m map[string]string) (Payment, error) {
	var p Payment
	for k, v := range m {
		var err error
		switch k {
		case KeyOrder:
			p.Order = new(Order)
			err = json.Unmarshal([]byte(v), p.Order)
		case KeyShipping:
			p.Shipping = new(Shipping)
			err = json.Unmarshal([]byte(v), p.Shipping)
		case KeyTax:
			p.Tax = new(Tax)
			err = json.Unmarshal([]byte(v), p.Tax)
		default:
			if p.Custom == nil {
				p.Custom = make(map[string]string)
			}
			p.Custom[k] = v
		}
		if err != nil {
			return Payment{}, fmt.Errorf("%w: %s: %w", ErrInvalid, k, err)
		}
	}
	return p, nil
}

// Validator lists the sections a payee insists on.
type Validator struct {
	RequireOrderID  bool
	RequireShipping bool
	RequireTax      bool
}

// Validate returns every unmet requirement joined into one error.
func (v Validator) Validate(p Payment) error {
	var errs []error
	if v.RequireOrderID && (p.Order == nil || p.Order.OrderID == "") {
		errs = append(errs, fmt.Errorf("%w: order id is required", ErrInvalid))
	}
	if v.RequireShipping {
		switch {
		case p.Shipping == nil:
			errs = append(errs, fmt.Errorf("%w: shipping is required", ErrInvalid))
		case p.Shipping.Address == nil:
			errs = append(errs, fmt.Errorf("%w: shipping address is required", ErrInvalid))
		}
	}
	if v.RequireTax && p.Tax == nil {
		errs = append(errs, fmt.Errorf("%w: tax is required", ErrInvalid))
	}
	return errors.Join(errs...)
}

// Zero reports whether v requires nothing.
func (v Validator) Zero() bool { return v == Validator{} }
