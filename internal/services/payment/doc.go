// Package payment coordinates one payment negotiation per connection.
//
// A Payer dials the payee's endpoint, completes the Noise handshake, sends
// one payment_request and waits for a confirm_receipt or reject. A Payee
// runs the mirror image on an accepted connection. Server accepts
// connections and runs one Payee negotiation per connection, each on its
// own goroutine.
//
// Both sides are explicit state machines:
//
//	payer: Idle → ResolvingRecipient → DiscoveringEndpoint → Connecting →
//	       Handshaking → SendingRequest → AwaitingConfirmation →
//	       Completed | Failed | Cancelled
//	payee: Listening → Accepting → Handshaking → AwaitingRequest →
//	       GeneratingConfirmation → SendingConfirmation → Done | Failed
//
// Every state that waits on the network is bounded by a Config timeout.
// Cancelling the context closes the connection, wipes the session keys and
// returns before the entry point does. There are no retries: any failure is
// terminal for the attempt and is reported as an *Error carrying the state
// it happened in and its Kind.
//
// A payer records a receipt as confirmed only after it has decrypted a
// matching confirm_receipt; a payee records it only after the confirmation
// frame has been written. Once its request is on the wire, the payer marks
// the receipt failed only when the answer was definitely unusable; a
// timeout leaves it provisional.
package payment
