// Package main runs the in-memory endpoint directory used by noisepay during
// development and tests. Payees publish signed endpoint records and payers
// resolve them by public key and payment method.
//
// HTTP API
//
//	POST /endpoints
//	    Store a signed EndpointRecord. The signature is checked against the
//	    record's public key before it is accepted.
//
//	GET /endpoints/{pubkey}/{method}
//	    Return the latest record for {pubkey} and {method}.
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - An access log records method, path, remote, status, bytes and duration
//     for each request at debug level.
//   - The default listen address is :8080.
//
// The directory is untrusted. It only stores public, signed records, and a
// substituted locator fails the payer's Noise handshake.
package main
