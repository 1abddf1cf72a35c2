// Package commands defines the noisepay CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init        Create the local identity
//   - whoami      Print the public key, fingerprint and transport key
//   - publish     Publish a signed endpoint record to the directory
//   - pay         Pay a recipient found through the directory
//   - pay-direct  Pay a noise:// locator without the directory
//   - receive     Listen for payments and confirm them
//   - receipts    List or prune stored receipts
//
// # Implementation
//
// The root command builds the dependency graph (stores, directory client,
// logger, metrics) before any subcommand runs. Commands that need keys
// unlock the identity with the passphrase from -p or NOISEPAY_PASSPHRASE.
package commands
