package payment

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"noisepay/internal/domain"
	"noisepay/internal/protocol/message"
)

var (
	// ErrInvalidRequest marks bad input from the local caller.
	ErrInvalidRequest = errors.New("invalid payment request")
	// ErrStorage marks a failure to persist a receipt.
	ErrStorage = errors.New("receipt storage failed")
)

// Kind classifies why a negotiation ended.
type Kind uint8

const (
	KindMalformedEndpoint Kind = iota + 1
	KindTransport
	KindDecryptFailure
	KindReplayOrDesync
	KindProtocolViolation
	KindTimeout
	KindCancelled
	KindRejected
	KindNotFound
	KindInvalidRequest
	KindStorage
)

var kindNames = map[Kind]string{
	KindMalformedEndpoint: "malformed_endpoint",
	KindTransport:         "transport",
	KindDecryptFailure:    "decrypt_failure",
	KindReplayOrDesync:    "replay_or_desync",
	KindProtocolViolation: "protocol_violation",
	KindTimeout:           "timeout",
	KindCancelled:         "cancelled",
	KindRejected:          "rejected",
	KindNotFound:          "not_found",
	KindInvalidRequest:    "invalid_request",
	KindStorage:           "storage",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) sentinel() error {
	switch k {
	case KindMalformedEndpoint:
		return domain.ErrMalformedEndpoint
	case KindTransport:
		return domain.ErrTransport
	case KindDecryptFailure:
		return domain.ErrDecryptFailure
	case KindReplayOrDesync:
		return domain.ErrReplayOrDesync
	case KindProtocolViolation:
		return domain.ErrProtocolViolation
	case KindTimeout:
		return domain.ErrTimeout
	case KindCancelled:
		return domain.ErrCancelled
	case KindRejected:
		return domain.ErrRejected
	case KindNotFound:
		return domain.ErrNotFound
	case KindInvalidRequest:
		return ErrInvalidRequest
	case KindStorage:
		return ErrStorage
	default:
		return nil
	}
}

// TimeoutKind names the bounded wait that expired.
type TimeoutKind string

const (
	DiscoveryTimeout    TimeoutKind = "discovery"
	ConnectTimeout      TimeoutKind = "connect"
	HandshakeTimeout    TimeoutKind = "handshake"
	SendTimeout         TimeoutKind = "send"
	ConfirmationTimeout TimeoutKind = "confirmation"
	RequestTimeout      TimeoutKind = "request"
)

// Error is returned by every payment entry point on failure.
//
// errors.Is matches both the domain sentinel for Kind (for example
// domain.ErrTimeout) and anything in the wrapped chain.
type Error struct {
	Side    message.Side
	State   string
	Kind    Kind
	Timeout TimeoutKind // set when Kind is KindTimeout
	Code    string      // reject code when Kind is KindRejected
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Side, e.Kind)
	if e.Timeout != "" {
		fmt.Fprintf(&b, " (%s)", e.Timeout)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s]", e.Code)
	}
	fmt.Fprintf(&b, " in %s", e.State)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// classify maps a lower-layer error onto a Kind.
func classify(err error) Kind {
	switch {
	case errors.Is(err, domain.ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, domain.ErrMalformedEndpoint):
		return KindMalformedEndpoint
	case errors.Is(err, domain.ErrDecryptFailure):
		return KindDecryptFailure
	case errors.Is(err, domain.ErrReplayOrDesync):
		return KindReplayOrDesync
	case errors.Is(err, domain.ErrProtocolViolation):
		return KindProtocolViolation
	case errors.Is(err, domain.ErrRejected):
		return KindRejected
	case errors.Is(err, domain.ErrNotFound):
		return KindNotFound
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return KindTimeout
	default:
		return KindTransport
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
