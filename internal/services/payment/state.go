package payment

import (
	"time"

	"noisepay/internal/protocol/message"
)

// PayerState is a position in the payer state machine.
type PayerState uint8

const (
	PayerIdle PayerState = iota
	PayerResolvingRecipient
	PayerDiscoveringEndpoint
	PayerConnecting
	PayerHandshaking
	PayerSendingRequest
	PayerAwaitingConfirmation
	PayerCompleted
	PayerFailed
	PayerCancelled
)

var payerStateNames = [...]string{
	PayerIdle:                 "Idle",
	PayerResolvingRecipient:   "ResolvingRecipient",
	PayerDiscoveringEndpoint:  "DiscoveringEndpoint",
	PayerConnecting:           "Connecting",
	PayerHandshaking:          "Handshaking",
	PayerSendingRequest:       "SendingRequest",
	PayerAwaitingConfirmation: "AwaitingConfirmation",
	PayerCompleted:            "Completed",
	PayerFailed:               "Failed",
	PayerCancelled:            "Cancelled",
}

func (s PayerState) String() string {
	if int(s) < len(payerStateNames) {
		return payerStateNames[s]
	}
	return "Unknown"
}

// Terminal reports whether no further transition is possible.
func (s PayerState) Terminal() bool {
	return s == PayerCompleted || s == PayerFailed || s == PayerCancelled
}

// PayeeState is a position in the payee state machine.
type PayeeState uint8

const (
	PayeeListening PayeeState = iota
	PayeeAccepting
	PayeeHandshaking
	PayeeAwaitingRequest
	PayeeGeneratingConfirmation
	PayeeSendingConfirmation
	PayeeDone
	PayeeFailed
)

var payeeStateNames = [...]string{
	PayeeListening:              "Listening",
	PayeeAccepting:              "Accepting",
	PayeeHandshaking:            "Handshaking",
	PayeeAwaitingRequest:        "AwaitingRequest",
	PayeeGeneratingConfirmation: "GeneratingConfirmation",
	PayeeSendingConfirmation:    "SendingConfirmation",
	PayeeDone:                   "Done",
	PayeeFailed:                 "Failed",
}

func (s PayeeState) String() string {
	if int(s) < len(payeeStateNames) {
		return payeeStateNames[s]
	}
	return "Unknown"
}

// Terminal reports whether no further transition is possible.
func (s PayeeState) Terminal() bool { return s == PayeeDone || s == PayeeFailed }

// Transition describes one state change of one negotiation.
type Transition struct {
	Side      message.Side
	Attempt   string
	ReceiptID string
	From      string
	To        string
	At        time.Time
	// Err is set on the transition into a failed or cancelled state.
	Err *Error
}

// Observer is called synchronously on every transition. It must not block.
type Observer func(Transition)
