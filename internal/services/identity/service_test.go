package identity_test

import (
	"errors"
	"os"
	"strings"
	"testing"

	"noisepay/internal/crypto"
	"noisepay/internal/services/identity"
	"noisepay/internal/store"
)

const strongPass = "Correct-Horse-9"

func TestMain(m *testing.M) {
	store.SetScryptCost(1 << 10)
	os.Exit(m.Run())
}

func TestGenerateIdentity_WeakPassphrase(t *testing.T) {
	svc := identity.New(store.NewIdentityFileStore(t.TempDir()))
	for _, p := range []string{"short", "alllowercase-123", "NoDigitsHere!!", "NoSymbols12345"} {
		if _, _, err := svc.GenerateIdentity(p, "laptop"); !errors.Is(err, identity.ErrWeakPassphrase) {
			t.Fatalf("%q: err = %v", p, err)
		}
	}
}

func TestGenerateAndLoad(t *testing.T) {
	svc := identity.New(store.NewIdentityFileStore(t.TempDir()))
	id, fp, err := svc.GenerateIdentity(strongPass, "laptop")
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	if len(fp) != 20 {
		t.Fatalf("fingerprint %q", fp)
	}

	loaded, err := svc.LoadIdentity(strongPass)
	if err != nil {
		t.Fatalf("LoadIdentity: %v", err)
	}
	if loaded.EdPub != id.EdPub || loaded.DeviceID != "laptop" {
		t.Fatal("loaded identity differs")
	}
	fp2, err := svc.FingerprintIdentity(strongPass)
	if err != nil || fp2 != fp {
		t.Fatalf("FingerprintIdentity = %q, %v", fp2, err)
	}
}

func TestTransportKeys_BoundToIdentity(t *testing.T) {
	svc := identity.New(store.NewIdentityFileStore(t.TempDir()))
	id, _, err := svc.GenerateIdentity(strongPass, "laptop")
	if err != nil {
		t.Fatal(err)
	}

	k0, err := svc.TransportKeys(strongPass, 0)
	if err != nil {
		t.Fatalf("TransportKeys: %v", err)
	}
	if k0.Owner != id.PublicKey() || k0.DeviceID != "laptop" {
		t.Fatalf("keys = %+v", k0)
	}
	owner, epoch, err := crypto.VerifyBinding(k0.Binding, k0.Public)
	if err != nil {
		t.Fatalf("VerifyBinding: %v", err)
	}
	if owner != id.EdPub || epoch != 0 {
		t.Fatal("binding names the wrong owner or epoch")
	}

	again, _ := svc.TransportKeys(strongPass, 0)
	if again.Public != k0.Public {
		t.Fatal("transport key not stable across loads")
	}
	k1, _ := svc.TransportKeys(strongPass, 1)
	if k1.Public == k0.Public {
		t.Fatal("epoch did not rotate the transport key")
	}
}

func TestParsePublicKey(t *testing.T) {
	hexKey := strings.Repeat("AB", 32)
	for _, in := range []string{hexKey, "pubky://" + hexKey, " pubky://" + hexKey + "/ "} {
		pk, err := identity.ParsePublicKey(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if string(pk) != strings.ToLower(hexKey) {
			t.Fatalf("%q: got %s", in, pk)
		}
	}
	for _, in := range []string{"", "pubky://", hexKey[:62], hexKey[:62] + "zz"} {
		if _, err := identity.ParsePublicKey(in); !errors.Is(err, identity.ErrInvalidPublicKey) {
			t.Fatalf("%q: err = %v", in, err)
		}
	}
}
