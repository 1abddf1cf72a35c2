package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"noisepay/internal/crypto"
)

const (
	// The current supported version of the encrypted blob format stored on disk.
	keystoreFormatVersion = 1
)

// ErrWrongPassphrase is returned when the passphrase is incorrect or the
// ciphertext has been modified.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted identity")

// blob is the on‑disk JSON structure holding the ciphertext and KDF parameters.
type blob struct {
	V       int    `json:"v"`
	Purpose string `json:"purpose"`
	Salt    []byte `json:"salt"`
	N       int    `json:"scrypt_N"`
	R       int    `json:"scrypt_r"`
	P       int    `json:"scrypt_p"`
	Cipher  []byte `json:"cipher"`
}

// encrypt derives a key from passphrase and seals raw into a JSON blob.
// purpose is authenticated with the salt so a blob cannot be replayed as
// another kind of secret.
func encrypt(purpose, passphrase string, raw []byte, N, r, p int) ([]byte, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:] /* #nosec G404 */); err != nil {
		return nil, err
	}
	key, err := scrypt.Key([]byte(passphrase), salt[:], N, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [12]byte // zero nonce; salt‑bound key guarantees uniqueness
	ct := aead.Seal(nil, nonce[:], raw, additionalData(purpose, salt[:]))

	return json.Marshal(blob{
		V:       keystoreFormatVersion,
		Purpose: purpose,
		Salt:    salt[:],
		N:       N,
		R:       r,
		P:       p,
		Cipher:  ct,
	})
}

// decrypt opens a blob sealed for purpose using a key derived from
// passphrase.
func decrypt(purpose, passphrase string, b []byte) ([]byte, error) {
	var bl blob
	if err := json.Unmarshal(b, &bl); err != nil {
		return nil, err
	}
	if bl.V > keystoreFormatVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", bl.V)
	}
	if bl.Purpose != purpose {
		return nil, fmt.Errorf("blob sealed for %q, want %q", bl.Purpose, purpose)
	}

	key, err := scrypt.Key([]byte(passphrase), bl.Salt, bl.N, bl.R, bl.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [12]byte
	pt, err := aead.Open(nil, nonce[:], bl.Cipher, additionalData(purpose, bl.Salt))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

// Tunables for scrypt key derivation. Tests lower them via SetScryptCost.
var scryptN = 1 << 15

func scryptParamsDefault() (N, r, p int) { return scryptN, 8, 1 }

// SetScryptCost overrides the scrypt work factor for new blobs and returns
// the previous value. Existing blobs record their own parameters.
func SetScryptCost(n int) int {
	prev := scryptN
	scryptN = n
	return prev
}

func additionalData(purpose string, salt []byte) []byte {
	ad := make([]byte, 0, len(purpose)+1+len(salt))
	ad = append(ad, purpose...)
	ad = append(ad, 0)
	return append(ad, salt...)
}
