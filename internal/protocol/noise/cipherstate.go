package noise

import (
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"math"

	"golang.org/x/crypto/chacha20poly1305"

	"noisepay/internal/crypto"
)

// TagLen is the AEAD authentication tag length.
const TagLen = chacha20poly1305.Overhead

var (
	ErrNonceExhausted = errors.New("noise: nonce space exhausted")
	ErrAuthFailed     = errors.New("noise: message authentication failed")
	ErrDestroyed      = errors.New("noise: cipher state destroyed")
)

// CipherState encrypts one direction of traffic with an implicit,
// strictly increasing 64-bit nonce.
type CipherState struct {
	k      [32]byte
	n      uint64
	aead   cipher.AEAD
	hasKey bool
	dead   bool
}

func newCipherState(k [32]byte) *CipherState {
	cs := &CipherState{}
	cs.initializeKey(k)
	return cs
}

func (c *CipherState) initializeKey(k [32]byte) {
	c.k = k
	c.n = 0
	// chacha20poly1305.New only fails on a wrong key size.
	c.aead, _ = chacha20poly1305.New(c.k[:])
	c.hasKey = true
}

// Nonce returns the counter the next Encrypt or Decrypt will use.
func (c *CipherState) Nonce() uint64 { return c.n }

// Encrypt seals plaintext under the current nonce and advances it.
func (c *CipherState) Encrypt(ad, plaintext []byte) ([]byte, error) {
	if c.dead {
		return nil, ErrDestroyed
	}
	if !c.hasKey {
		return append([]byte(nil), plaintext...), nil
	}
	// 2^64-1 is reserved.
	if c.n == math.MaxUint64 {
		return nil, ErrNonceExhausted
	}
	out := c.aead.Seal(nil, nonce(c.n), plaintext, ad)
	c.n++
	return out, nil
}

// Decrypt opens ciphertext under the current nonce. The nonce only advances
// on success, so a forged or replayed message leaves the state unchanged.
func (c *CipherState) Decrypt(ad, ciphertext []byte) ([]byte, error) {
	if c.dead {
		return nil, ErrDestroyed
	}
	if !c.hasKey {
		return append([]byte(nil), ciphertext...), nil
	}
	if c.n == math.MaxUint64 {
		return nil, ErrNonceExhausted
	}
	out, err := c.aead.Open(nil, nonce(c.n), ciphertext, ad)
	if err != nil {
		return nil, ErrAuthFailed
	}
	c.n++
	return out, nil
}

// Destroy wipes the key. Later calls fail with ErrDestroyed.
func (c *CipherState) Destroy() {
	if c == nil {
		return
	}
	crypto.Wipe32(&c.k)
	c.aead = nil
	c.hasKey = false
	c.dead = true
}

// nonce encodes n as 32 zero bits followed by a little-endian counter.
func nonce(n uint64) []byte {
	var b [chacha20poly1305.NonceSize]byte
	binary.LittleEndian.PutUint64(b[4:], n)
	return b[:]
}
