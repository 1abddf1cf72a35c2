package crypto

import (
	"encoding/binary"
	"errors"

	"noisepay/internal/domain"
)

const bindingContext = "noisepay-binding:v1"

// BindingSize is the encoded length of a transport key binding:
// Ed25519 public key, big-endian epoch, Ed25519 signature.
const BindingSize = 32 + 4 + 64

var ErrBadBinding = errors.New("invalid transport key binding")

// BindTransportKey signs a statement that transport is the X25519 key of the
// identity owning signing for the given epoch.
func BindTransportKey(
	signing domain.Ed25519Private,
	transport domain.X25519Public,
	epoch uint32,
) []byte {
	out := make([]byte, 0, BindingSize)
	out = append(out, signing[32:]...)
	out = binary.BigEndian.AppendUint32(out, epoch)
	return append(out, SignEd25519(signing, bindingMessage(transport, epoch))...)
}

// VerifyBinding checks that b was produced by BindTransportKey for transport
// and returns the identity key and epoch it asserts.
func VerifyBinding(b []byte, transport domain.X25519Public) (domain.Ed25519Public, uint32, error) {
	var owner domain.Ed25519Public
	if len(b) != BindingSize {
		return owner, 0, ErrBadBinding
	}
	copy(owner[:], b[:32])
	epoch := binary.BigEndian.Uint32(b[32:36])
	if !VerifyEd25519(owner, bindingMessage(transport, epoch), b[36:]) {
		return owner, 0, ErrBadBinding
	}
	return owner, epoch, nil
}

func bindingMessage(transport domain.X25519Public, epoch uint32) []byte {
	msg := make([]byte, 0, len(bindingContext)+32+4)
	msg = append(msg, bindingContext...)
	msg = append(msg, transport[:]...)
	return binary.BigEndian.AppendUint32(msg, epoch)
}
