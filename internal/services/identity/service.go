package identity

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"noisepay/internal/crypto"
	"noisepay/internal/domain"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12

	// PubkyScheme prefixes recipient URIs copied from pubky apps.
	PubkyScheme = "pubky://"
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)
	// ErrInvalidPublicKey is returned by ParsePublicKey.
	ErrInvalidPublicKey = errors.New("invalid public key")
)

// Service manages identity key creation and access using a backing store.
type Service struct {
	store domain.IdentityStore
}

// New returns an identity service backed by the given store.
func New(s domain.IdentityStore) *Service { return &Service{store: s} }

// GenerateIdentity creates a new identity for device, saves it encrypted
// with the passphrase, and returns the identity plus a short fingerprint of
// its public key.
func (s *Service) GenerateIdentity(
	passphrase string,
	device domain.DeviceID,
) (domain.Identity, domain.Fingerprint, error) {
	if !isSecurePassphrase(passphrase) {
		return domain.Identity{}, "", ErrWeakPassphrase
	}
	if device == "" {
		return domain.Identity{}, "", errors.New("device id required")
	}

	signingPrivateKey, signingPublicKey, err := crypto.GenerateEd25519()
	if err != nil {
		return domain.Identity{}, "", err
	}
	id := domain.Identity{
		EdPub:    signingPublicKey,
		EdPriv:   signingPrivateKey,
		DeviceID: device,
	}
	if err := s.store.SaveIdentity(passphrase, id); err != nil {
		return domain.Identity{}, "", err
	}
	return id, Fingerprint(id), nil
}

// LoadIdentity decrypts and returns the local identity.
func (s *Service) LoadIdentity(passphrase string) (domain.Identity, error) {
	return s.store.LoadIdentity(passphrase)
}

// FingerprintIdentity returns a short fingerprint of the local public key.
func (s *Service) FingerprintIdentity(passphrase string) (domain.Fingerprint, error) {
	id, err := s.store.LoadIdentity(passphrase)
	if err != nil {
		return "", err
	}
	return Fingerprint(id), nil
}

// TransportKeys loads the identity and derives its transport keys for epoch.
func (s *Service) TransportKeys(passphrase string, epoch uint32) (domain.TransportKeys, error) {
	id, err := s.store.LoadIdentity(passphrase)
	if err != nil {
		return domain.TransportKeys{}, err
	}
	defer crypto.Wipe(id.EdPriv[:])
	return Transport(id, epoch)
}

// Transport derives the transport key pair of id's device for epoch and
// signs its binding.
func Transport(id domain.Identity, epoch uint32) (domain.TransportKeys, error) {
	priv, pub, err := crypto.DeriveTransportX25519(id.EdPriv, id.DeviceID, epoch)
	if err != nil {
		return domain.TransportKeys{}, fmt.Errorf("derive transport key: %w", err)
	}
	return domain.TransportKeys{
		Owner:    id.PublicKey(),
		DeviceID: id.DeviceID,
		Epoch:    epoch,
		Private:  priv,
		Public:   pub,
		Binding:  crypto.BindTransportKey(id.EdPriv, pub, epoch),
	}, nil
}

// Fingerprint returns a short fingerprint of id's public key.
func Fingerprint(id domain.Identity) domain.Fingerprint {
	return domain.Fingerprint(crypto.Fingerprint(id.EdPub.Slice()))
}

// ParsePublicKey normalises a recipient given as 64 hex characters,
// optionally prefixed with pubky://, into a PublicKey.
func ParsePublicKey(s string) (domain.PublicKey, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, PubkyScheme)
	s = strings.TrimSuffix(s, "/")
	pk := domain.PublicKey(strings.ToLower(s))
	if _, ok := pk.Ed25519(); !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPublicKey, s)
	}
	return pk, nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
