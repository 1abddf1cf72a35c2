package types

import (
	"encoding/hex"
	"strings"
)

// PublicKey is the hex-encoded Ed25519 identity key of a party.
type PublicKey string

// String returns the string form of the public key.
func (p PublicKey) String() string { return string(p) }

// Short returns the first eight characters, for log lines and prompts.
func (p PublicKey) Short() string {
	if len(p) <= 8 {
		return string(p)
	}
	return string(p[:8])
}

// Ed25519 decodes the key. ok is false if it is not 64 hex characters.
func (p PublicKey) Ed25519() (pub Ed25519Public, ok bool) {
	s := strings.ToLower(string(p))
	if len(s) != 2*len(pub) {
		return pub, false
	}
	if _, err := hex.Decode(pub[:], []byte(s)); err != nil {
		return pub, false
	}
	return pub, true
}

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// MethodID names a payment method such as "lightning" or "onchain".
type MethodID string

// String returns the string form of the method identifier.
func (m MethodID) String() string { return string(m) }

// DeviceID scopes transport keys to one installation of an identity.
type DeviceID string

// String returns the string form of the device identifier.
func (d DeviceID) String() string { return string(d) }
