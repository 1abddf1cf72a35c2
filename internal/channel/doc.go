// Package channel runs the Noise handshake over a net.Conn and turns the
// result into a Session: framed, ordered, authenticated delivery of opaque
// payloads.
//
// Every frame on the wire, handshake or transport, is a 4-byte big-endian
// length followed by that many bytes. Frames larger than MaxFrameLen or of
// zero length are rejected before any allocation.
//
// The handshake payloads carry each side's identity binding (see
// crypto.BindTransportKey), so a Session knows not just the peer's transport
// key but the identity behind it.
//
// Concurrency: one goroutine may Send while another Receives. Close may be
// called from any goroutine, at any time, and is idempotent.
package channel
