package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"noisepay/internal/domain"
	"noisepay/internal/metadata"
)

// ReceiptIDPrefix starts every generated receipt ID.
const ReceiptIDPrefix = "receipt_"

// PayRequest is what a caller knows before the payee's endpoint has been
// discovered.
type PayRequest struct {
	Payee    string // hex public key or pubky:// URI
	MethodID domain.MethodID
	Amount   string
	Currency string
	Metadata map[string]string
}

// NewReceiptID returns a fresh receipt identifier.
func NewReceiptID() string { return ReceiptIDPrefix + uuid.NewString() }

// NewProvisionalReceipt builds the payer's receipt for a payment that has
// not been confirmed yet.
func NewProvisionalReceipt(payer, payee domain.PublicKey, req PayRequest, now time.Time) domain.Receipt {
	return domain.Receipt{
		ID:        NewReceiptID(),
		Payer:     payer,
		Payee:     payee,
		MethodID:  req.MethodID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		CreatedAt: now.Unix(),
		Status:    domain.ReceiptProvisional,
		Metadata:  req.Metadata,
	}
}

// ErrDeclined is returned by a ReceiptGenerator that refuses a request. The
// payee answers with a DECLINED reject carrying the error text.
var ErrDeclined = errors.New("declined")

// Decline returns an ErrDeclined error with a reason for the payer.
func Decline(reason string) error { return fmt.Errorf("%w: %s", ErrDeclined, reason) }

// ReceiptGenerator decides whether a payee confirms a request and may add
// metadata to the confirmed receipt. It must not change the payment terms.
type ReceiptGenerator interface {
	GenerateReceipt(ctx context.Context, request domain.Receipt) (domain.Receipt, error)
}

// GeneratorFunc adapts a function to ReceiptGenerator.
type GeneratorFunc func(ctx context.Context, request domain.Receipt) (domain.Receipt, error)

func (f GeneratorFunc) GenerateReceipt(ctx context.Context, request domain.Receipt) (domain.Receipt, error) {
	return f(ctx, request)
}

// AcceptAll confirms every request unchanged.
var AcceptAll ReceiptGenerator = GeneratorFunc(func(_ context.Context, r domain.Receipt) (domain.Receipt, error) {
	r.Status = domain.ReceiptConfirmed
	return r, nil
})

// ValidatingGenerator declines requests whose metadata does not decode or
// does not satisfy v, and hands the rest to next.
func ValidatingGenerator(v metadata.Validator, next ReceiptGenerator) ReceiptGenerator {
	return GeneratorFunc(func(ctx context.Context, r domain.Receipt) (domain.Receipt, error) {
		md, err := metadata.Decode(r.Metadata)
		if err == nil {
			err = v.Validate(md)
		}
		if err != nil {
			return domain.Receipt{}, Decline(strings.ReplaceAll(err.Error(), "\n", "; "))
		}
		return next.GenerateReceipt(ctx, r)
	})
}
