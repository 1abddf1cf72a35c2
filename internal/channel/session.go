package channel

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"noisepay/internal/domain"
	"noisepay/internal/protocol/noise"
)

// ErrClosed is returned by every operation on a closed Session.
var ErrClosed = errors.New("session closed")

// maxPlaintext keeps sealed frames within MaxFrameLen.
const maxPlaintext = MaxFrameLen - noise.TagLen

// Session is an established encrypted channel. It exclusively owns its conn
// and both cipher states; Close wipes the keys and closes the conn. Any
// send, receive or decryption failure is fatal and closes the session.
type Session struct {
	id         string
	role       noise.Role
	conn       net.Conn
	peer       domain.PublicKey
	peerStatic domain.X25519Public
	hash       [noise.HashLen]byte

	mu     sync.Mutex
	send   *noise.CipherState
	recv   *noise.CipherState
	closed bool
}

func newSession(conn net.Conn, role noise.Role, res *noise.Result, peer domain.PublicKey) *Session {
	return &Session{
		id:         uuid.NewString(),
		role:       role,
		conn:       conn,
		peer:       peer,
		peerStatic: res.PeerStatic,
		hash:       res.HandshakeHash,
		send:       res.Send,
		recv:       res.Recv,
	}
}

// ID returns a random identifier for logs and registries.
func (s *Session) ID() string { return s.id }

// Role reports which side of the handshake this session played.
func (s *Session) Role() noise.Role { return s.role }

// Peer returns the identity key the peer proved ownership of.
func (s *Session) Peer() domain.PublicKey { return s.peer }

// PeerStatic returns the peer's authenticated transport key.
func (s *Session) PeerStatic() domain.X25519Public { return s.peerStatic }

// HandshakeHash returns the final transcript hash, identical on both sides.
func (s *Session) HandshakeHash() [noise.HashLen]byte { return s.hash }

// RemoteAddr returns the peer's network address.
func (s *Session) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// SetDeadline bounds the next Send and Recv calls.
func (s *Session) SetDeadline(t time.Time) error { return s.conn.SetDeadline(t) }

// SetReadDeadline bounds the next Recv call.
func (s *Session) SetReadDeadline(t time.Time) error { return s.conn.SetReadDeadline(t) }

// SetWriteDeadline bounds the next Send call.
func (s *Session) SetWriteDeadline(t time.Time) error { return s.conn.SetWriteDeadline(t) }

// Closed reports whether the session has been closed and its keys wiped.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Seal encrypts plaintext into the next outbound frame body.
func (s *Session) Seal(plaintext []byte) ([]byte, error) {
	if len(plaintext) > maxPlaintext {
		return nil, fmt.Errorf("%w: %d byte payload", ErrFrameTooLarge, len(plaintext))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	ct, err := s.send.Encrypt(nil, plaintext)
	if err != nil {
		_ = s.closeLocked()
		return nil, err
	}
	return ct, nil
}

// Open decrypts the next inbound frame body. Frames must be opened in the
// order they were sealed; anything else is reported as
// domain.ErrReplayOrDesync and closes the session.
func (s *Session) Open(frame []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	pt, err := s.recv.Decrypt(nil, frame)
	if err != nil {
		_ = s.closeLocked()
		if errors.Is(err, noise.ErrNonceExhausted) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrReplayOrDesync, err)
	}
	return pt, nil
}

// Send seals plaintext and writes it as one frame.
func (s *Session) Send(plaintext []byte) error {
	ct, err := s.Seal(plaintext)
	if err != nil {
		return err
	}
	if err := WriteFrame(s.conn, ct); err != nil {
		_ = s.Close()
		return err
	}
	return nil
}

// Recv reads and opens the next frame.
func (s *Session) Recv() ([]byte, error) {
	if s.Closed() {
		return nil, ErrClosed
	}
	frame, err := ReadFrame(s.conn, MaxFrameLen)
	if err != nil {
		_ = s.Close()
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %w", domain.ErrTimeout, err)
		}
		return nil, err
	}
	return s.Open(frame)
}

// Close wipes both cipher states and closes the conn. It is safe to call
// more than once and from any goroutine.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Session) closeLocked() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.send.Destroy()
	s.recv.Destroy()
	s.send, s.recv = nil, nil
	return s.conn.Close()
}
