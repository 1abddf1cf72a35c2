// Package identity manages creation, encryption and loading of the local
// identity, and derives the per-device transport keys used for handshakes.
//
// It enforces passphrase policy, generates the Ed25519 identity key pair,
// and persists it via the domain.IdentityStore. X25519 transport keys are
// never stored: Transport derives them from the signing seed for a device
// and epoch and signs a binding that lets peers tie the transport key back
// to the identity.
package identity
