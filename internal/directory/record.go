package directory

import (
	"errors"
	"fmt"

	"noisepay/internal/crypto"
	"noisepay/internal/domain"
	"noisepay/internal/endpoint"
)

const recordContext = "noisepay-endpoint:v1"

// ErrBadRecord is returned for records whose signature or contents do not
// verify.
var ErrBadRecord = errors.New("invalid endpoint record")

func recordMessage(pk domain.PublicKey, method domain.MethodID, locator string) []byte {
	msg := make([]byte, 0, len(recordContext)+len(pk)+len(method)+len(locator)+2)
	msg = append(msg, recordContext...)
	msg = append(msg, pk...)
	msg = append(msg, 0)
	msg = append(msg, method...)
	msg = append(msg, 0)
	msg = append(msg, locator...)
	return msg
}

// SignRecord returns id's signed record announcing loc for method.
func SignRecord(id domain.Identity, method domain.MethodID, loc domain.EndpointLocator) domain.EndpointRecord {
	pk := id.PublicKey()
	locator := loc.String()
	return domain.EndpointRecord{
		PublicKey: pk,
		MethodID:  method,
		Locator:   locator,
		Signature: crypto.SignEd25519(id.EdPriv, recordMessage(pk, method, locator)),
	}
}

// VerifyRecord checks rec's signature and returns its parsed locator.
func VerifyRecord(rec domain.EndpointRecord) (domain.EndpointLocator, error) {
	pub, ok := rec.PublicKey.Ed25519()
	if !ok {
		return domain.EndpointLocator{}, fmt.Errorf("%w: bad public key", ErrBadRecord)
	}
	if rec.MethodID == "" {
		return domain.EndpointLocator{}, fmt.Errorf("%w: empty method", ErrBadRecord)
	}
	if !crypto.VerifyEd25519(pub, recordMessage(rec.PublicKey, rec.MethodID, rec.Locator), rec.Signature) {
		return domain.EndpointLocator{}, fmt.Errorf("%w: bad signature", ErrBadRecord)
	}
	loc, err := endpoint.Parse(rec.Locator)
	if err != nil {
		return domain.EndpointLocator{}, fmt.Errorf("%w: %w", ErrBadRecord, err)
	}
	return loc, nil
}
