package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"

	"noisepay/internal/domain"
)

const transportSalt = "noisepay-x25519:v1"

// DeriveTransportX25519 derives the X25519 transport key pair for one device
// and epoch from an Ed25519 signing key. Bumping the epoch rotates the key
// without touching the identity.
func DeriveTransportX25519(
	signing domain.Ed25519Private,
	device domain.DeviceID,
	epoch uint32,
) (priv domain.X25519Private, pub domain.X25519Public, err error) {
	if device == "" {
		return priv, pub, errors.New("device id required")
	}
	info := make([]byte, 0, len(device)+4)
	info = append(info, device...)
	info = binary.BigEndian.AppendUint32(info, epoch)

	// The first half of an Ed25519 private key is its seed.
	r := hkdf.New(sha256.New, signing[:32], []byte(transportSalt), info)
	if _, err = io.ReadFull(r, priv[:]); err != nil {
		return priv, pub, err
	}
	clamp(&priv)
	pub, err = PublicX25519(priv)
	return priv, pub, err
}
