package message

// Side is the party a Sequencer polices.
type Side uint8

const (
	SidePayer Side = iota + 1
	SidePayee
)

func (s Side) String() string {
	switch s {
	case SidePayer:
		return "payer"
	case SidePayee:
		return "payee"
	default:
		return "unknown"
	}
}

// Sequencer enforces message order within one session: exactly one
// payment_request from payer to payee, then at most one confirm_receipt or
// reject in the other direction, referring to the same receipt.
//
// Not safe for concurrent use.
type Sequencer struct {
	side      Side
	requestID string
	requested bool
	answered  bool
}

// NewSequencer returns a Sequencer for the given side.
func NewSequencer(side Side) *Sequencer { return &Sequencer{side: side} }

// Outbound checks that m may be sent next and records it.
func (s *Sequencer) Outbound(m Message) error {
	return s.record(m, s.side == SidePayer)
}

// Inbound checks that m may be received next and records it.
func (s *Sequencer) Inbound(m Message) error {
	return s.record(m, s.side == SidePayee)
}

// Done reports whether the request has been answered.
func (s *Sequencer) Done() bool { return s.answered }

// record applies m travelling towards the payee if toPayee is set, else
// towards the payer.
func (s *Sequencer) record(m Message, toPayee bool) error {
	switch m.Type() {
	case TypePaymentRequest:
		if !toPayee {
			return violation("payment_request must travel from payer to payee")
		}
		if s.requested {
			return violation("second payment_request in one session")
		}
		s.requested = true
		s.requestID = m.ReceiptID()
		return nil
	case TypeConfirmReceipt, TypeReject:
		if toPayee {
			return violation("%s must travel from payee to payer", m.Type())
		}
		if !s.requested {
			return violation("%s before any payment_request", m.Type())
		}
		if s.answered {
			return violation("payment_request already answered")
		}
		if id := m.ReceiptID(); id != s.requestID && (m.Type() != TypeReject || id != "") {
			return violation("%s for receipt %q, request was %q", m.Type(), id, s.requestID)
		}
		s.answered = true
		return nil
	default:
		return violation("unknown message type %q", m.Type())
	}
}
