// Package crypto exposes the minimal primitives used by noisepay.
//
// Contents
//
//   - X25519 key generation, clamping and Diffie–Hellman (GenerateX25519,
//     PublicX25519, DH)
//   - Ed25519 key generation, signing and verification (GenerateEd25519,
//     SignEd25519, VerifyEd25519)
//   - Per-device transport key derivation from the Ed25519 seed
//     (DeriveTransportX25519)
//   - Signed bindings that tie a transport key to an identity key
//     (BindTransportKey, VerifyBinding)
//   - Best-effort memory wiping for sensitive byte slices (Wipe, Wipe32)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// All functions return fixed-size array types defined in internal/domain to
// avoid accidental reallocations. Callers should treat returned secrets as
// sensitive and rely on Wipe when practical to reduce lifetime in memory.
package crypto
