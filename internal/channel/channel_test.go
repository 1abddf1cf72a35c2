package channel_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"noisepay/internal/channel"
	"noisepay/internal/crypto"
	"noisepay/internal/domain"
	"noisepay/internal/protocol/noise"
)

// makeLocal derives deterministic transport keys and a binding from seed.
func makeLocal(t *testing.T, seed byte) (channel.Local, domain.PublicKey) {
	t.Helper()
	signing, pub := crypto.Ed25519FromSeed(bytes.Repeat([]byte{seed}, 32))
	priv, xpub, err := crypto.DeriveTransportX25519(signing, "test", 0)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	return channel.Local{
		Static:  noise.KeyPair{Private: priv, Public: xpub},
		Binding: crypto.BindTransportKey(signing, xpub, 0),
	}, pub.PublicKey()
}

type acceptResult struct {
	s   *channel.Session
	err error
}

func acceptAsync(conn net.Conn, local channel.Local) <-chan acceptResult {
	out := make(chan acceptResult, 1)
	go func() {
		s, err := channel.Accept(context.Background(), conn, local)
		out <- acceptResult{s, err}
	}()
	return out
}

// pair returns an established initiator and responder over net.Pipe.
func pair(t *testing.T) (cli, srv *channel.Session) {
	t.Helper()
	a, b := net.Pipe()
	cliLocal, _ := makeLocal(t, 1)
	srvLocal, _ := makeLocal(t, 2)

	res := acceptAsync(b, srvLocal)
	cli, err := channel.Dial(context.Background(), a, cliLocal, srvLocal.Static.Public)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	r := <-res
	if r.err != nil {
		t.Fatalf("Accept: %v", r.err)
	}
	t.Cleanup(func() {
		_ = cli.Close()
		_ = r.s.Close()
	})
	return cli, r.s
}

func TestHandshake_PeersAuthenticated(t *testing.T) {
	cli, srv := pair(t)
	_, cliID := makeLocal(t, 1)
	srvLocal, srvID := makeLocal(t, 2)

	if cli.Peer() != srvID {
		t.Fatalf("initiator peer = %s, want %s", cli.Peer(), srvID)
	}
	if srv.Peer() != cliID {
		t.Fatalf("responder peer = %s, want %s", srv.Peer(), cliID)
	}
	if cli.PeerStatic() != srvLocal.Static.Public {
		t.Fatal("initiator peer static mismatch")
	}
	if cli.HandshakeHash() != srv.HandshakeHash() {
		t.Fatal("handshake hashes differ")
	}
	if cli.Role() != noise.RoleInitiator || srv.Role() != noise.RoleResponder {
		t.Fatalf("roles = %s / %s", cli.Role(), srv.Role())
	}
	if cli.ID() == srv.ID() {
		t.Fatal("session ids collide")
	}
}

func TestSession_SendRecvInOrder(t *testing.T) {
	cli, srv := pair(t)

	errc := make(chan error, 1)
	go func() {
		for _, m := range []string{"one", "two", "three"} {
			if err := cli.Send([]byte(m)); err != nil {
				errc <- err
				return
			}
		}
		errc <- nil
	}()
	for _, want := range []string{"one", "two", "three"} {
		got, err := srv.Recv()
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if string(got) != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
	if err := <-errc; err != nil {
		t.Fatalf("Send: %v", err)
	}

	go func() { errc <- srv.Send([]byte("reply")) }()
	got, err := cli.Recv()
	if err != nil || string(got) != "reply" {
		t.Fatalf("reply = %q, %v", got, err)
	}
	if err := <-errc; err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestSession_ReplayRejected(t *testing.T) {
	cli, srv := pair(t)

	f1, err := cli.Seal([]byte("first"))
	if err != nil {
		t.Fatal(err)
	}
	f2, err := cli.Seal([]byte("second"))
	if err != nil {
		t.Fatal(err)
	}
	if pt, err := srv.Open(f1); err != nil || string(pt) != "first" {
		t.Fatalf("open first = %q, %v", pt, err)
	}
	if pt, err := srv.Open(f2); err != nil || string(pt) != "second" {
		t.Fatalf("open second = %q, %v", pt, err)
	}
	if _, err := srv.Open(f1); !errors.Is(err, domain.ErrReplayOrDesync) {
		t.Fatalf("replay: err = %v, want ErrReplayOrDesync", err)
	}
	if !srv.Closed() {
		t.Fatal("session still open after replay")
	}
	if _, err := srv.Open(f2); !errors.Is(err, channel.ErrClosed) {
		t.Fatalf("after close: err = %v", err)
	}
}

func TestSession_ReorderRejected(t *testing.T) {
	cli, srv := pair(t)
	_, _ = cli.Seal([]byte("first"))
	f2, _ := cli.Seal([]byte("second"))
	if _, err := srv.Open(f2); !errors.Is(err, domain.ErrReplayOrDesync) {
		t.Fatalf("err = %v", err)
	}
}

func TestSession_CloseWipes(t *testing.T) {
	cli, srv := pair(t)
	if err := cli.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := cli.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !cli.Closed() {
		t.Fatal("Closed() = false")
	}
	if _, err := cli.Seal([]byte("x")); !errors.Is(err, channel.ErrClosed) {
		t.Fatalf("Seal after close: err = %v", err)
	}
	if err := cli.Send([]byte("x")); !errors.Is(err, channel.ErrClosed) {
		t.Fatalf("Send after close: err = %v", err)
	}
	if _, err := srv.Recv(); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("peer Recv after close: err = %v", err)
	}
}

func TestDial_WrongResponderKey(t *testing.T) {
	a, b := net.Pipe()
	cliLocal, _ := makeLocal(t, 1)
	srvLocal, _ := makeLocal(t, 2)
	other, _ := makeLocal(t, 3)

	res := acceptAsync(b, srvLocal)
	done := make(chan error, 1)
	go func() {
		_, err := channel.Dial(context.Background(), a, cliLocal, other.Static.Public)
		done <- err
	}()

	r := <-res
	if !errors.Is(r.err, domain.ErrDecryptFailure) {
		t.Fatalf("Accept err = %v, want ErrDecryptFailure", r.err)
	}
	_ = b.Close()
	if err := <-done; err == nil {
		t.Fatal("Dial succeeded against the wrong key")
	}
	_ = a.Close()
}

func TestAccept_ForgedBinding(t *testing.T) {
	a, b := net.Pipe()
	cliLocal, _ := makeLocal(t, 1)
	srvLocal, _ := makeLocal(t, 2)
	other, _ := makeLocal(t, 3)
	// Present another identity's binding with our own transport key.
	cliLocal.Binding = other.Binding

	res := acceptAsync(b, srvLocal)
	go func() {
		_, _ = channel.Dial(context.Background(), a, cliLocal, srvLocal.Static.Public)
	}()
	r := <-res
	if !errors.Is(r.err, domain.ErrDecryptFailure) {
		t.Fatalf("err = %v, want ErrDecryptFailure", r.err)
	}
	_ = a.Close()
	_ = b.Close()
}

func TestDial_Timeout(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	cliLocal, _ := makeLocal(t, 1)
	srvLocal, _ := makeLocal(t, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := channel.Dial(ctx, a, cliLocal, srvLocal.Static.Public)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestDial_Cancelled(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	cliLocal, _ := makeLocal(t, 1)
	srvLocal, _ := makeLocal(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	_, err := channel.Dial(ctx, a, cliLocal, srvLocal.Static.Public)
	if !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
}

func TestFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := channel.WriteFrame(&buf, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 4+5 {
		t.Fatalf("encoded %d bytes", buf.Len())
	}
	if binary.BigEndian.Uint32(buf.Bytes()) != 5 {
		t.Fatal("length prefix is not big-endian")
	}
	got, err := channel.ReadFrame(&buf, 0)
	if err != nil || string(got) != "hello" {
		t.Fatalf("ReadFrame = %q, %v", got, err)
	}
}

func TestFrame_Limits(t *testing.T) {
	if err := channel.WriteFrame(&bytes.Buffer{}, nil); !errors.Is(err, channel.ErrEmptyFrame) {
		t.Fatalf("empty write: err = %v", err)
	}
	if err := channel.WriteFrame(&bytes.Buffer{}, make([]byte, channel.MaxFrameLen+1)); !errors.Is(err, channel.ErrFrameTooLarge) {
		t.Fatalf("oversize write: err = %v", err)
	}

	// A huge length prefix with no body must fail on the header alone.
	hdr := []byte{0xff, 0xff, 0xff, 0xff}
	if _, err := channel.ReadFrame(bytes.NewReader(hdr), 0); !errors.Is(err, domain.ErrProtocolViolation) {
		t.Fatalf("oversize read: err = %v", err)
	}
	small := []byte{0, 0, 0, 10}
	if _, err := channel.ReadFrame(bytes.NewReader(small), 8); !errors.Is(err, channel.ErrFrameTooLarge) {
		t.Fatalf("custom max: err = %v", err)
	}
	if _, err := channel.ReadFrame(bytes.NewReader([]byte{0, 0, 0, 0}), 0); !errors.Is(err, channel.ErrEmptyFrame) {
		t.Fatalf("zero length: err = %v", err)
	}
	if _, err := channel.ReadFrame(bytes.NewReader([]byte{0, 0, 0, 5, 'a'}), 0); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("truncated: err = %v", err)
	}
}
