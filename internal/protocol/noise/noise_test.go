package noise_test

import (
	"bytes"
	"errors"
	"testing"

	"noisepay/internal/crypto"
	"noisepay/internal/domain"
	"noisepay/internal/protocol/noise"
)

func makeKeyPair(t *testing.T) noise.KeyPair {
	t.Helper()
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	return noise.KeyPair{Private: priv, Public: pub}
}

// handshake runs both sides to completion and returns their results.
func handshake(t *testing.T, is, rs noise.KeyPair) (ini, resp *noise.Result) {
	t.Helper()
	i, err := noise.NewInitiator(is, rs.Public)
	if err != nil {
		t.Fatalf("NewInitiator: %v", err)
	}
	r, err := noise.NewResponder(rs)
	if err != nil {
		t.Fatalf("NewResponder: %v", err)
	}
	m1, err := i.WriteMessage1([]byte("from initiator"))
	if err != nil {
		t.Fatalf("WriteMessage1: %v", err)
	}
	p1, err := r.ReadMessage1(m1)
	if err != nil {
		t.Fatalf("ReadMessage1: %v", err)
	}
	if string(p1) != "from initiator" {
		t.Fatalf("payload1 = %q", p1)
	}
	m2, resp, err := r.WriteMessage2([]byte("from responder"))
	if err != nil {
		t.Fatalf("WriteMessage2: %v", err)
	}
	p2, ini, err := i.ReadMessage2(m2)
	if err != nil {
		t.Fatalf("ReadMessage2: %v", err)
	}
	if string(p2) != "from responder" {
		t.Fatalf("payload2 = %q", p2)
	}
	return ini, resp
}

func TestHandshake_RoundTrip(t *testing.T) {
	is, rs := makeKeyPair(t), makeKeyPair(t)
	ini, resp := handshake(t, is, rs)

	if ini.PeerStatic != rs.Public {
		t.Fatal("initiator sees wrong peer static")
	}
	if resp.PeerStatic != is.Public {
		t.Fatal("responder sees wrong peer static")
	}
	if ini.HandshakeHash != resp.HandshakeHash {
		t.Fatal("handshake hashes differ")
	}

	ct, err := ini.Send.Encrypt(nil, []byte("ping"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	pt, err := resp.Recv.Decrypt(nil, ct)
	if err != nil || string(pt) != "ping" {
		t.Fatalf("responder decrypt = %q, %v", pt, err)
	}
	ct, err = resp.Send.Encrypt(nil, []byte("pong"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	pt, err = ini.Recv.Decrypt(nil, ct)
	if err != nil || string(pt) != "pong" {
		t.Fatalf("initiator decrypt = %q, %v", pt, err)
	}

	// The two directions use independent keys.
	ct, _ = ini.Send.Encrypt(nil, []byte("x"))
	if _, err := ini.Recv.Decrypt(nil, ct); err == nil {
		t.Fatal("send ciphertext opened with the receive key")
	}
}

func TestHandshake_EmptyPayloads(t *testing.T) {
	is, rs := makeKeyPair(t), makeKeyPair(t)
	i, _ := noise.NewInitiator(is, rs.Public)
	r, _ := noise.NewResponder(rs)

	m1, err := i.WriteMessage1(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(m1) != noise.Message1MinLen {
		t.Fatalf("len(m1) = %d, want %d", len(m1), noise.Message1MinLen)
	}
	if _, err := r.ReadMessage1(m1); err != nil {
		t.Fatal(err)
	}
	m2, _, err := r.WriteMessage2(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(m2) != noise.Message2MinLen {
		t.Fatalf("len(m2) = %d, want %d", len(m2), noise.Message2MinLen)
	}
	if _, _, err := i.ReadMessage2(m2); err != nil {
		t.Fatal(err)
	}
}

func TestHandshake_TamperMessage1EveryBit(t *testing.T) {
	is, rs := makeKeyPair(t), makeKeyPair(t)
	i, _ := noise.NewInitiator(is, rs.Public)
	m1, err := i.WriteMessage1([]byte("hi"))
	if err != nil {
		t.Fatal(err)
	}

	for bit := 0; bit < len(m1)*8; bit++ {
		bad := append([]byte(nil), m1...)
		bad[bit/8] ^= 1 << (bit % 8)

		r, _ := noise.NewResponder(rs)
		_, err := r.ReadMessage1(bad)
		if !errors.Is(err, domain.ErrDecryptFailure) {
			t.Fatalf("bit %d: err = %v, want ErrDecryptFailure", bit, err)
		}
		if r.State() != noise.StateFailed {
			t.Fatalf("bit %d: state = %s", bit, r.State())
		}
	}
}

func TestHandshake_TamperMessage2EveryBit(t *testing.T) {
	is, rs := makeKeyPair(t), makeKeyPair(t)

	// Each flip needs a fresh initiator since failure consumes it.
	for bit := 0; ; bit++ {
		i, _ := noise.NewInitiator(is, rs.Public)
		m1, err := i.WriteMessage1(nil)
		if err != nil {
			t.Fatal(err)
		}
		r, _ := noise.NewResponder(rs)
		if _, err := r.ReadMessage1(m1); err != nil {
			t.Fatal(err)
		}
		m2, _, err := r.WriteMessage2([]byte("ok"))
		if err != nil {
			t.Fatal(err)
		}
		if bit >= len(m2)*8 {
			break
		}
		m2[bit/8] ^= 1 << (bit % 8)

		_, _, err = i.ReadMessage2(m2)
		if !errors.Is(err, domain.ErrDecryptFailure) {
			t.Fatalf("bit %d: err = %v, want ErrDecryptFailure", bit, err)
		}
		if i.State() != noise.StateFailed {
			t.Fatalf("bit %d: state = %s", bit, i.State())
		}
	}
}

func TestHandshake_WrongResponderKey(t *testing.T) {
	is, rs, other := makeKeyPair(t), makeKeyPair(t), makeKeyPair(t)
	i, _ := noise.NewInitiator(is, other.Public)
	m1, _ := i.WriteMessage1(nil)

	r, _ := noise.NewResponder(rs)
	if _, err := r.ReadMessage1(m1); !errors.Is(err, domain.ErrDecryptFailure) {
		t.Fatalf("err = %v, want ErrDecryptFailure", err)
	}
}

func TestHandshake_ShortMessages(t *testing.T) {
	is, rs := makeKeyPair(t), makeKeyPair(t)
	r, _ := noise.NewResponder(rs)
	if _, err := r.ReadMessage1(make([]byte, noise.Message1MinLen-1)); !errors.Is(err, domain.ErrDecryptFailure) {
		t.Fatalf("short m1: err = %v", err)
	}

	i, _ := noise.NewInitiator(is, rs.Public)
	if _, err := i.WriteMessage1(nil); err != nil {
		t.Fatal(err)
	}
	if _, _, err := i.ReadMessage2(make([]byte, noise.Message2MinLen-1)); !errors.Is(err, domain.ErrDecryptFailure) {
		t.Fatalf("short m2: err = %v", err)
	}
}

func TestHandshake_ConsumedAfterCompletion(t *testing.T) {
	is, rs := makeKeyPair(t), makeKeyPair(t)
	i, _ := noise.NewInitiator(is, rs.Public)
	r, _ := noise.NewResponder(rs)
	m1, _ := i.WriteMessage1(nil)
	if _, err := r.ReadMessage1(m1); err != nil {
		t.Fatal(err)
	}
	m2, _, err := r.WriteMessage2(nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := i.ReadMessage2(m2); err != nil {
		t.Fatal(err)
	}

	if i.State() != noise.StateCompleted || r.State() != noise.StateCompleted {
		t.Fatalf("states = %s / %s", i.State(), r.State())
	}
	if _, err := i.WriteMessage1(nil); !errors.Is(err, noise.ErrHandshakeConsumed) {
		t.Fatalf("initiator reuse: err = %v", err)
	}
	if _, _, err := i.ReadMessage2(m2); !errors.Is(err, noise.ErrHandshakeConsumed) {
		t.Fatalf("initiator replay m2: err = %v", err)
	}
	if _, err := r.ReadMessage1(m1); !errors.Is(err, noise.ErrHandshakeConsumed) {
		t.Fatalf("responder replay m1: err = %v", err)
	}
	if _, ok := r.PeerStatic(); ok {
		t.Fatal("peer static still exposed after completion")
	}
}

func TestHandshake_ConsumedAfterFailure(t *testing.T) {
	rs := makeKeyPair(t)
	r, _ := noise.NewResponder(rs)
	if _, err := r.ReadMessage1(bytes.Repeat([]byte{1}, noise.Message1MinLen)); err == nil {
		t.Fatal("garbage accepted")
	}
	if _, _, err := r.WriteMessage2(nil); !errors.Is(err, noise.ErrHandshakeConsumed) {
		t.Fatalf("err = %v", err)
	}
}

func TestHandshake_WrongOrder(t *testing.T) {
	is, rs := makeKeyPair(t), makeKeyPair(t)
	i, _ := noise.NewInitiator(is, rs.Public)
	if _, _, err := i.ReadMessage2(make([]byte, 64)); !errors.Is(err, noise.ErrWrongState) {
		t.Fatalf("initiator: err = %v", err)
	}
	if i.State() != noise.StateCreated {
		t.Fatalf("wrong-order call changed state to %s", i.State())
	}
	r, _ := noise.NewResponder(rs)
	if _, _, err := r.WriteMessage2(nil); !errors.Is(err, noise.ErrWrongState) {
		t.Fatalf("responder: err = %v", err)
	}
}

func TestHandshake_Abort(t *testing.T) {
	is, rs := makeKeyPair(t), makeKeyPair(t)
	i, _ := noise.NewInitiator(is, rs.Public)
	m1, _ := i.WriteMessage1(nil)
	r, _ := noise.NewResponder(rs)
	if _, err := r.ReadMessage1(m1); err != nil {
		t.Fatal(err)
	}
	r.Abort()
	if _, _, err := r.WriteMessage2(nil); !errors.Is(err, noise.ErrHandshakeConsumed) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewInitiator_RejectsZeroKey(t *testing.T) {
	if _, err := noise.NewInitiator(makeKeyPair(t), domain.X25519Public{}); !errors.Is(err, noise.ErrInvalidKey) {
		t.Fatalf("err = %v", err)
	}
}

func TestRespond_Shorthand(t *testing.T) {
	is, rs := makeKeyPair(t), makeKeyPair(t)
	i, _ := noise.NewInitiator(is, rs.Public)
	m1, _ := i.WriteMessage1([]byte("a"))

	p1, m2, resp, err := noise.Respond(rs, m1, []byte("b"))
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if string(p1) != "a" {
		t.Fatalf("payload = %q", p1)
	}
	p2, ini, err := i.ReadMessage2(m2)
	if err != nil || string(p2) != "b" {
		t.Fatalf("ReadMessage2 = %q, %v", p2, err)
	}
	if ini.HandshakeHash != resp.HandshakeHash {
		t.Fatal("handshake hashes differ")
	}
}

func TestCipherState_NonceOrdering(t *testing.T) {
	is, rs := makeKeyPair(t), makeKeyPair(t)
	ini, resp := handshake(t, is, rs)

	c1, _ := ini.Send.Encrypt(nil, []byte("one"))
	c2, _ := ini.Send.Encrypt(nil, []byte("two"))

	// Out of order fails and leaves the receiver where it was.
	if _, err := resp.Recv.Decrypt(nil, c2); !errors.Is(err, noise.ErrAuthFailed) {
		t.Fatalf("out of order: err = %v", err)
	}
	if resp.Recv.Nonce() != 0 {
		t.Fatalf("nonce advanced on failure: %d", resp.Recv.Nonce())
	}
	if pt, err := resp.Recv.Decrypt(nil, c1); err != nil || string(pt) != "one" {
		t.Fatalf("first = %q, %v", pt, err)
	}
	if pt, err := resp.Recv.Decrypt(nil, c2); err != nil || string(pt) != "two" {
		t.Fatalf("second = %q, %v", pt, err)
	}
	if _, err := resp.Recv.Decrypt(nil, c1); !errors.Is(err, noise.ErrAuthFailed) {
		t.Fatalf("replay: err = %v", err)
	}
}

func TestCipherState_Destroy(t *testing.T) {
	is, rs := makeKeyPair(t), makeKeyPair(t)
	ini, _ := handshake(t, is, rs)
	ini.Destroy()
	if _, err := ini.Send.Encrypt(nil, []byte("x")); !errors.Is(err, noise.ErrDestroyed) {
		t.Fatalf("err = %v", err)
	}
	if _, err := ini.Recv.Decrypt(nil, make([]byte, 32)); !errors.Is(err, noise.ErrDestroyed) {
		t.Fatalf("err = %v", err)
	}
}
