// Package message defines the three messages exchanged inside an
// established session and their JSON encoding:
//
//	payment_request  payer -> payee, carries the provisional receipt
//	confirm_receipt  payee -> payer, carries the confirmed receipt
//	reject           payee -> payer, carries a code and a reason
//
// Decoding is strict: unknown fields, unknown types, a wrong version or a
// missing required field are all domain.ErrProtocolViolation. Sequencer
// enforces the one-request, one-answer ordering for one session.
package message
