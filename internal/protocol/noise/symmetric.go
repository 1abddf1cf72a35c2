package noise

import (
	"crypto/hmac"
	"hash"

	"golang.org/x/crypto/blake2s"

	"noisepay/internal/crypto"
)

// HashLen is the BLAKE2s digest size.
const HashLen = blake2s.Size

type symmetricState struct {
	cs CipherState
	ck [HashLen]byte
	h  [HashLen]byte
}

func newBlake2s() hash.Hash {
	// An unkeyed BLAKE2s never fails to construct.
	h, _ := blake2s.New256(nil)
	return h
}

func (s *symmetricState) initialize(protocolName string) {
	if len(protocolName) <= HashLen {
		copy(s.h[:], protocolName)
	} else {
		s.h = blake2s.Sum256([]byte(protocolName))
	}
	s.ck = s.h
}

func (s *symmetricState) mixHash(data []byte) {
	h := newBlake2s()
	h.Write(s.h[:])
	h.Write(data)
	h.Sum(s.h[:0])
}

func (s *symmetricState) mixKey(ikm []byte) {
	ck, k := hkdf2(s.ck[:], ikm)
	s.ck = ck
	s.cs.initializeKey(k)
	crypto.Wipe32(&k)
}

func (s *symmetricState) encryptAndHash(plaintext []byte) ([]byte, error) {
	ct, err := s.cs.Encrypt(s.h[:], plaintext)
	if err != nil {
		return nil, err
	}
	s.mixHash(ct)
	return ct, nil
}

func (s *symmetricState) decryptAndHash(ciphertext []byte) ([]byte, error) {
	pt, err := s.cs.Decrypt(s.h[:], ciphertext)
	if err != nil {
		return nil, err
	}
	s.mixHash(ciphertext)
	return pt, nil
}

// split derives the initiator-to-responder and responder-to-initiator
// transport ciphers.
func (s *symmetricState) split() (*CipherState, *CipherState) {
	k1, k2 := hkdf2(s.ck[:], nil)
	c1, c2 := newCipherState(k1), newCipherState(k2)
	crypto.Wipe32(&k1)
	crypto.Wipe32(&k2)
	return c1, c2
}

func (s *symmetricState) destroy() {
	s.cs.Destroy()
	crypto.Wipe32(&s.ck)
}

// hkdf2 is the two-output Noise HKDF over HMAC-BLAKE2s.
func hkdf2(chainingKey, ikm []byte) (out1, out2 [HashLen]byte) {
	temp := hmacBlake2s(chainingKey, ikm)
	o1 := hmacBlake2s(temp, []byte{0x01})
	o2 := hmacBlake2s(temp, append(append([]byte(nil), o1...), 0x02))
	copy(out1[:], o1)
	copy(out2[:], o2)
	crypto.Wipe(temp)
	crypto.Wipe(o1)
	crypto.Wipe(o2)
	return out1, out2
}

func hmacBlake2s(key, data []byte) []byte {
	m := hmac.New(newBlake2s, key)
	m.Write(data)
	return m.Sum(nil)
}
