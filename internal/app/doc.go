// Package app wires application dependencies for the CLI.
//
// It builds the concrete stores, directory client, logger, metrics and
// identity service from Config, exposing them via the Wire struct. Unlock
// turns a Wire plus passphrase into an App that can pay and receive.
package app
