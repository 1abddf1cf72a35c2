package channel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"noisepay/internal/crypto"
	"noisepay/internal/domain"
	"noisepay/internal/protocol/noise"
)

// maxHandshakeLen bounds handshake frames to the Noise message limit.
const maxHandshakeLen = 65535

// Local is the key material one side brings to a handshake.
type Local struct {
	Static  noise.KeyPair
	Binding []byte
}

// LocalFromKeys adapts derived transport keys for a handshake.
func LocalFromKeys(k domain.TransportKeys) Local {
	return Local{
		Static:  noise.KeyPair{Private: k.Private, Public: k.Public},
		Binding: k.Binding,
	}
}

// Dial runs the initiator handshake on conn against the responder whose
// static key is remoteStatic. ctx bounds the handshake; conn is left open
// on failure for the caller to close.
func Dial(ctx context.Context, conn net.Conn, local Local, remoteStatic domain.X25519Public) (*Session, error) {
	stop := bindContext(ctx, conn)
	defer stop()

	ini, err := noise.NewInitiator(local.Static, remoteStatic)
	if err != nil {
		return nil, err
	}
	m1, err := ini.WriteMessage1(local.Binding)
	if err != nil {
		return nil, err
	}
	if err := WriteFrame(conn, m1); err != nil {
		ini.Abort()
		return nil, ioError(ctx, err)
	}
	m2, err := ReadFrame(conn, maxHandshakeLen)
	if err != nil {
		ini.Abort()
		return nil, ioError(ctx, err)
	}
	payload, res, err := ini.ReadMessage2(m2)
	if err != nil {
		return nil, err
	}
	peer, err := verifyPeer(payload, res.PeerStatic)
	if err != nil {
		res.Destroy()
		return nil, err
	}
	return newSession(conn, noise.RoleInitiator, res, peer), nil
}

// Accept runs the responder handshake on conn. The initiator's identity
// binding is verified before message 2 is sent.
func Accept(ctx context.Context, conn net.Conn, local Local) (*Session, error) {
	stop := bindContext(ctx, conn)
	defer stop()

	resp, err := noise.NewResponder(local.Static)
	if err != nil {
		return nil, err
	}
	m1, err := ReadFrame(conn, maxHandshakeLen)
	if err != nil {
		resp.Abort()
		return nil, ioError(ctx, err)
	}
	payload, err := resp.ReadMessage1(m1)
	if err != nil {
		return nil, err
	}
	rs, _ := resp.PeerStatic()
	peer, err := verifyPeer(payload, rs)
	if err != nil {
		resp.Abort()
		return nil, err
	}
	m2, res, err := resp.WriteMessage2(local.Binding)
	if err != nil {
		return nil, err
	}
	if err := WriteFrame(conn, m2); err != nil {
		res.Destroy()
		return nil, ioError(ctx, err)
	}
	return newSession(conn, noise.RoleResponder, res, peer), nil
}

func verifyPeer(payload []byte, static domain.X25519Public) (domain.PublicKey, error) {
	owner, _, err := crypto.VerifyBinding(payload, static)
	if err != nil {
		return "", fmt.Errorf("%w: peer identity: %w", domain.ErrDecryptFailure, err)
	}
	return owner.PublicKey(), nil
}

var aLongTimeAgo = time.Unix(1, 0)

// bindContext applies ctx's deadline to conn and interrupts blocked I/O if
// ctx is cancelled. stop clears both.
func bindContext(ctx context.Context, conn net.Conn) (stop func()) {
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	stopAfter := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(aLongTimeAgo)
	})
	return func() {
		if stopAfter() {
			_ = conn.SetDeadline(time.Time{})
		}
	}
}

// ioError reclassifies an I/O failure caused by ctx or a conn deadline.
func ioError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded), isTimeout(err):
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	default:
		return err
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
