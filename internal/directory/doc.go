// Package directory publishes and resolves payee endpoints.
//
// A payee publishes one signed EndpointRecord per payment method, mapping
// its public key to a noise:// locator. Payers resolve the record, check
// the signature against the payee key they intended to pay, and parse the
// locator. The directory is untrusted: a forged or stale record can at
// worst point at a listener that fails the Noise handshake.
//
// HTTP API served by Server and consumed by HTTP
//
//	POST /endpoints
//	    Store a signed EndpointRecord. Records with a bad signature or an
//	    unparsable locator are refused with 400.
//
//	GET /endpoints/{pubkey}/{method}
//	    Return the latest record for the pair, or 404.
//
// All bodies are JSON. Non-2xx statuses carry a short error message.
package directory
