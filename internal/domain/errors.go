package domain

import "errors"

// Error classes shared by every layer. Lower packages wrap these with
// fmt.Errorf("%w: ...") so callers can match with errors.Is.
var (
	ErrMalformedEndpoint = errors.New("malformed endpoint")
	ErrTransport         = errors.New("transport error")
	ErrDecryptFailure    = errors.New("decrypt failure")
	ErrReplayOrDesync    = errors.New("replay or desync")
	ErrProtocolViolation = errors.New("protocol violation")
	ErrTimeout           = errors.New("timeout")
	ErrCancelled         = errors.New("cancelled")
	ErrRejected          = errors.New("rejected by peer")
	ErrNotFound          = errors.New("not found")
)
