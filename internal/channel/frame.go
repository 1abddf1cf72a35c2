package channel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"noisepay/internal/domain"
)

// MaxFrameLen is the largest frame body accepted or produced.
const MaxFrameLen = 1 << 20

const headerLen = 4

var (
	ErrFrameTooLarge = errors.New("frame exceeds maximum length")
	ErrEmptyFrame    = errors.New("empty frame")
)

// WriteFrame writes b as one length-prefixed frame with a single Write.
func WriteFrame(w io.Writer, b []byte) error {
	if len(b) == 0 {
		return ErrEmptyFrame
	}
	if len(b) > MaxFrameLen {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(b))
	}
	buf := make([]byte, headerLen+len(b))
	binary.BigEndian.PutUint32(buf, uint32(len(b)))
	copy(buf[headerLen:], b)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("%w: write frame: %w", domain.ErrTransport, err)
	}
	return nil
}

// ReadFrame reads one frame of at most max bytes (MaxFrameLen if max <= 0
// or larger). Oversized and empty frames are protocol violations.
func ReadFrame(r io.Reader, max int) ([]byte, error) {
	if max <= 0 || max > MaxFrameLen {
		max = MaxFrameLen
	}
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: read frame header: %w", domain.ErrTransport, err)
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrProtocolViolation, ErrEmptyFrame)
	}
	if uint64(n) > uint64(max) {
		return nil, fmt.Errorf("%w: %w: %d bytes", domain.ErrProtocolViolation, ErrFrameTooLarge, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: read frame body: %w", domain.ErrTransport, err)
	}
	return buf, nil
}
