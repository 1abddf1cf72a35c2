// Package noise implements the Noise_IK_25519_ChaChaPoly_BLAKE2s handshake
// and the transport cipher states it produces.
//
// IK is a one round trip pattern: the initiator already knows the
// responder's static key, sends its own static key encrypted in the first
// message, and both sides are mutually authenticated after the second.
//
//	<- s
//	...
//	-> e, es, s, ss
//	<- e, ee, se
//
// Handshake objects are single use. After Completed or Failed every method
// returns ErrHandshakeConsumed and the ephemeral and chaining keys have been
// wiped. The Result of a completed handshake owns the two directional
// CipherStates; callers are responsible for calling Destroy on them.
//
// Concurrency: handshake objects and CipherStates are NOT safe for
// concurrent use.
package noise
