// Package endpoint parses and formats endpoint locators of the form
//
//	noise://<host>:<port>@<64 hex chars>
//
// A locator names the TCP address of a payee and the static X25519 key that
// must answer the handshake there. Parsing never touches the network.
package endpoint
