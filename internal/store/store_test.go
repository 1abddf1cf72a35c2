package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"noisepay/internal/domain"
	"noisepay/internal/store"
)

func TestMain(m *testing.M) {
	store.SetScryptCost(1 << 10)
	os.Exit(m.Run())
}

func TestIdentity_SaveLoad_OK(t *testing.T) {
	home := t.TempDir()
	pass := "pass"

	ids := store.NewIdentityFileStore(home)
	if ids.Exists() {
		t.Fatal("Exists() before save")
	}

	id := domain.Identity{
		EdPub:    domain.Ed25519Public{3},
		EdPriv:   domain.Ed25519Private{4},
		DeviceID: "laptop",
	}
	if err := ids.SaveIdentity(pass, id); err != nil {
		t.Fatalf("save identity: %v", err)
	}
	if !ids.Exists() {
		t.Fatal("Exists() after save")
	}

	got, err := ids.LoadIdentity(pass)
	if err != nil {
		t.Fatalf("load identity: %v", err)
	}
	if got != id {
		t.Fatalf("mismatch after load: %+v", got)
	}

	info, err := os.Stat(filepath.Join(home, "identity.json.enc"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("identity file mode = %v", info.Mode().Perm())
	}
}

func TestIdentity_WrongPassphrase_Fails(t *testing.T) {
	ids := store.NewIdentityFileStore(t.TempDir())
	if err := ids.SaveIdentity("correct", domain.Identity{EdPub: domain.Ed25519Public{1}}); err != nil {
		t.Fatalf("save identity: %v", err)
	}
	if _, err := ids.LoadIdentity("wrong"); !errors.Is(err, store.ErrWrongPassphrase) {
		t.Fatalf("err = %v, want ErrWrongPassphrase", err)
	}
}

func TestIdentity_Missing(t *testing.T) {
	ids := store.NewIdentityFileStore(t.TempDir())
	if _, err := ids.LoadIdentity("x"); !errors.Is(err, store.ErrNoIdentity) {
		t.Fatalf("err = %v, want ErrNoIdentity", err)
	}
}

func receipt(id string, created int64, status domain.ReceiptStatus) domain.Receipt {
	return domain.Receipt{
		ID:        id,
		Payer:     "payer",
		Payee:     "payee",
		MethodID:  "lightning",
		Amount:    "1000",
		Currency:  "SAT",
		CreatedAt: created,
		Status:    status,
	}
}

// exerciseReceiptStore runs the shared behaviour checks against s.
func exerciseReceiptStore(t *testing.T, s domain.ReceiptStore) {
	t.Helper()

	if _, ok, err := s.GetReceipt("missing"); err != nil || ok {
		t.Fatalf("get missing = %v, %v", ok, err)
	}
	if err := s.SaveReceipt(domain.Receipt{}); err == nil {
		t.Fatal("saved receipt without id")
	}

	for _, r := range []domain.Receipt{
		receipt("r1", 100, domain.ReceiptProvisional),
		receipt("r2", 300, domain.ReceiptConfirmed),
		receipt("r3", 200, domain.ReceiptFailed),
	} {
		if err := s.SaveReceipt(r); err != nil {
			t.Fatalf("save %s: %v", r.ID, err)
		}
	}

	// Upsert replaces.
	if err := s.SaveReceipt(receipt("r1", 100, domain.ReceiptConfirmed)); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.GetReceipt("r1")
	if err != nil || !ok {
		t.Fatalf("get r1 = %v, %v", ok, err)
	}
	if got.Status != domain.ReceiptConfirmed || got.Amount != "1000" {
		t.Fatalf("r1 = %+v", got)
	}

	all, err := s.ListReceipts(domain.ReceiptFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "r2" || all[1].ID != "r3" || all[2].ID != "r1" {
		t.Fatalf("order = %v", ids(all))
	}

	confirmed, err := s.ListReceipts(domain.ReceiptFilter{Status: domain.ReceiptConfirmed, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(confirmed) != 1 || confirmed[0].ID != "r2" {
		t.Fatalf("filtered = %v", ids(confirmed))
	}

	byPeer, err := s.ListReceipts(domain.ReceiptFilter{Peer: "nobody"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byPeer) != 0 {
		t.Fatalf("peer filter = %v", ids(byPeer))
	}
}

func ids(rs []domain.Receipt) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestReceiptFileStore(t *testing.T) {
	dir := t.TempDir()
	exerciseReceiptStore(t, store.NewReceiptFileStore(dir))

	// A fresh instance sees the same data.
	again := store.NewReceiptFileStore(dir)
	if _, ok, err := again.GetReceipt("r2"); err != nil || !ok {
		t.Fatalf("reopen = %v, %v", ok, err)
	}
}

func TestBoltReceiptStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), store.BoltFilename)
	s, err := store.OpenBoltReceiptStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	exerciseReceiptStore(t, s)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = store.OpenBoltReceiptStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, ok, err := s.GetReceipt("r3"); err != nil || !ok {
		t.Fatalf("after reopen = %v, %v", ok, err)
	}
}

func TestBoltReceiptStore_Prune(t *testing.T) {
	s, err := store.OpenBoltReceiptStore(filepath.Join(t.TempDir(), store.BoltFilename))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	now := time.Now()
	old := now.Add(-48 * time.Hour).Unix()
	for _, r := range []domain.Receipt{
		receipt("a", old, domain.ReceiptFailed),
		receipt("b", old, domain.ReceiptFailed),
		receipt("c", old, domain.ReceiptConfirmed),
		receipt("d", now.Unix(), domain.ReceiptFailed),
	} {
		if err := s.SaveReceipt(r); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.Prune(domain.ReceiptFailed, now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("pruned %d, want 2", n)
	}
	left, _ := s.ListReceipts(domain.ReceiptFilter{})
	if len(left) != 2 {
		t.Fatalf("left = %v", ids(left))
	}
}
