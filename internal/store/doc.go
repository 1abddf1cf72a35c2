// Package store provides on-disk persistence for noisepay's identity and
// receipts.
//
// It contains concrete implementations of the domain storage interfaces.
// All methods are concurrency-safe via internal locking. Stored files
// typically live under the user's configured home directory.
//
// The package includes:
//   - IdentityFileStore: the identity, sealed with a passphrase-derived key
//   - ReceiptFileStore: receipts as one JSON document, replaced atomically
//   - BoltReceiptStore: receipts in a BoltDB bucket, for larger histories
package store
