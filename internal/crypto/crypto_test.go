package crypto_test

import (
	"bytes"
	"testing"

	"noisepay/internal/crypto"
	"noisepay/internal/domain"
)

func seededIdentity(b byte) domain.Ed25519Private {
	priv, _ := crypto.Ed25519FromSeed(bytes.Repeat([]byte{b}, 32))
	return priv
}

func TestDeriveTransportX25519_Deterministic(t *testing.T) {
	signing := seededIdentity(7)

	priv1, pub1, err := crypto.DeriveTransportX25519(signing, "laptop", 0)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	priv2, pub2, err := crypto.DeriveTransportX25519(signing, "laptop", 0)
	if err != nil {
		t.Fatalf("derive again: %v", err)
	}
	if priv1 != priv2 || pub1 != pub2 {
		t.Fatal("derivation is not deterministic")
	}
	want, err := crypto.PublicX25519(priv1)
	if err != nil {
		t.Fatalf("public: %v", err)
	}
	if want != pub1 {
		t.Fatal("derived public key does not match private key")
	}
	if priv1[0]&7 != 0 || priv1[31]&128 != 0 || priv1[31]&64 == 0 {
		t.Fatal("derived private key is not clamped")
	}
}

func TestDeriveTransportX25519_ScopedByDeviceAndEpoch(t *testing.T) {
	signing := seededIdentity(7)

	_, base, _ := crypto.DeriveTransportX25519(signing, "laptop", 0)
	_, nextEpoch, _ := crypto.DeriveTransportX25519(signing, "laptop", 1)
	_, otherDevice, _ := crypto.DeriveTransportX25519(signing, "phone", 0)
	_, otherID, _ := crypto.DeriveTransportX25519(seededIdentity(8), "laptop", 0)

	if base == nextEpoch {
		t.Fatal("epoch did not change the key")
	}
	if base == otherDevice {
		t.Fatal("device did not change the key")
	}
	if base == otherID {
		t.Fatal("identity did not change the key")
	}
}

func TestDeriveTransportX25519_RequiresDevice(t *testing.T) {
	if _, _, err := crypto.DeriveTransportX25519(seededIdentity(1), "", 0); err == nil {
		t.Fatal("expected error for empty device id")
	}
}

func TestBinding_VerifyAndTamper(t *testing.T) {
	signing, owner := crypto.Ed25519FromSeed(bytes.Repeat([]byte{3}, 32))
	_, transport, err := crypto.DeriveTransportX25519(signing, "laptop", 4)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	b := crypto.BindTransportKey(signing, transport, 4)
	if len(b) != crypto.BindingSize {
		t.Fatalf("binding size = %d", len(b))
	}
	gotOwner, epoch, err := crypto.VerifyBinding(b, transport)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if gotOwner != owner || epoch != 4 {
		t.Fatalf("verify returned owner=%x epoch=%d", gotOwner, epoch)
	}

	other := transport
	other[0] ^= 1
	if _, _, err := crypto.VerifyBinding(b, other); err == nil {
		t.Fatal("binding verified for a different transport key")
	}
	for _, i := range []int{0, 33, 40, len(b) - 1} {
		bad := append([]byte(nil), b...)
		bad[i] ^= 0x80
		if _, _, err := crypto.VerifyBinding(bad, transport); err == nil {
			t.Fatalf("tampered byte %d accepted", i)
		}
	}
	if _, _, err := crypto.VerifyBinding(b[:10], transport); err == nil {
		t.Fatal("short binding accepted")
	}
}

func TestDH_Agreement(t *testing.T) {
	aPriv, aPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatal(err)
	}
	bPriv, bPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatal(err)
	}
	s1, err := crypto.DH(aPriv, bPub)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := crypto.DH(bPriv, aPub)
	if err != nil {
		t.Fatal(err)
	}
	if s1 != s2 {
		t.Fatal("shared secrets differ")
	}
	if _, err := crypto.DH(aPriv, domain.X25519Public{}); err == nil {
		t.Fatal("expected low-order point to be rejected")
	}
}

func TestFingerprintX25519(t *testing.T) {
	_, a, _ := crypto.DeriveTransportX25519(seededIdentity(1), "laptop", 0)
	_, b, _ := crypto.DeriveTransportX25519(seededIdentity(1), "laptop", 1)

	fa := crypto.FingerprintX25519(a)
	if len(fa) != 20 {
		t.Fatalf("fingerprint length %d", len(fa))
	}
	if fa != crypto.FingerprintX25519(a) {
		t.Fatal("fingerprint is not deterministic")
	}
	if fa == crypto.FingerprintX25519(b) {
		t.Fatal("rotated transport key kept its fingerprint")
	}
}
