package payment

import (
	"sync"
	"time"

	"noisepay/internal/protocol/message"
)

// PaymentStatus is the coarse lifecycle of one receipt as seen by one side.
type PaymentStatus uint8

const (
	StatusPending PaymentStatus = iota + 1
	StatusProcessing
	StatusConfirmed
	StatusFailed
	StatusCancelled
	StatusExpired
)

var statusNames = map[PaymentStatus]string{
	StatusPending:    "pending",
	StatusProcessing: "processing",
	StatusConfirmed:  "confirmed",
	StatusFailed:     "failed",
	StatusCancelled:  "cancelled",
	StatusExpired:    "expired",
}

func (s PaymentStatus) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// Terminal reports whether the status can no longer change.
func (s PaymentStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed || s == StatusCancelled || s == StatusExpired
}

func (s PaymentStatus) InProgress() bool { return s == StatusPending || s == StatusProcessing }

func (s PaymentStatus) Success() bool { return s == StatusConfirmed }

// StatusInfo is the latest known status of one receipt on one side.
type StatusInfo struct {
	Side      message.Side
	ReceiptID string
	Status    PaymentStatus
	UpdatedAt time.Time
	Error     string
}

// StatusTracker folds state transitions into per-receipt statuses. Its
// Observe method can be used directly as an Observer.
type StatusTracker struct {
	mu       sync.RWMutex
	entries  map[string]StatusInfo
	onChange []func(StatusInfo)
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{entries: make(map[string]StatusInfo)}
}

func statusKey(side message.Side, id string) string { return side.String() + "/" + id }

// OnChange registers fn to be called after every status change. fn runs on
// the negotiation goroutine and must not block.
func (t *StatusTracker) OnChange(fn func(StatusInfo)) {
	t.mu.Lock()
	t.onChange = append(t.onChange, fn)
	t.mu.Unlock()
}

// Observe records tr. Transitions before the receipt id is known and
// transitions that do not change the status are ignored.
func (t *StatusTracker) Observe(tr Transition) {
	if tr.ReceiptID == "" {
		return
	}
	st, ok := statusOf(tr)
	if !ok {
		return
	}
	info := StatusInfo{Side: tr.Side, ReceiptID: tr.ReceiptID, Status: st, UpdatedAt: tr.At}
	if tr.Err != nil {
		info.Error = tr.Err.Error()
	}

	key := statusKey(tr.Side, tr.ReceiptID)
	t.mu.Lock()
	prev, seen := t.entries[key]
	if seen && (prev.Status == st || prev.Status.Terminal()) {
		t.mu.Unlock()
		return
	}
	t.entries[key] = info
	hooks := t.onChange
	t.mu.Unlock()

	for _, fn := range hooks {
		fn(info)
	}
}

// Get returns the status of receipt id on side.
func (t *StatusTracker) Get(side message.Side, id string) (StatusInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	info, ok := t.entries[statusKey(side, id)]
	return info, ok
}

// InProgress returns every receipt that is pending or processing.
func (t *StatusTracker) InProgress() []StatusInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []StatusInfo
	for _, info := range t.entries {
		if info.Status.InProgress() {
			out = append(out, info)
		}
	}
	return out
}

// ByStatus counts tracked receipts per status.
func (t *StatusTracker) ByStatus() map[PaymentStatus]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[PaymentStatus]int)
	for _, info := range t.entries {
		out[info.Status]++
	}
	return out
}

// CleanupBefore forgets terminal entries last updated before cutoff and
// returns how many were removed.
func (t *StatusTracker) CleanupBefore(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for k, info := range t.entries {
		if info.Status.Terminal() && info.UpdatedAt.Before(cutoff) {
			delete(t.entries, k)
			n++
		}
	}
	return n
}

func statusOf(tr Transition) (PaymentStatus, bool) {
	switch tr.To {
	case PayerConnecting.String(), PayerHandshaking.String(), PayerSendingRequest.String(),
		PayeeAwaitingRequest.String():
		return StatusPending, true
	case PayerAwaitingConfirmation.String(), PayeeGeneratingConfirmation.String(),
		PayeeSendingConfirmation.String():
		return StatusProcessing, true
	case PayerCompleted.String(), PayeeDone.String():
		return StatusConfirmed, true
	case PayerFailed.String(), PayerCancelled.String(), PayeeFailed.String():
		if tr.Err == nil {
			return StatusFailed, true
		}
		switch tr.Err.Kind {
		case KindCancelled:
			return StatusCancelled, true
		case KindTimeout:
			return StatusExpired, true
		}
		return StatusFailed, true
	}
	return 0, false
}

// Chain returns an Observer that calls each non-nil observer in order.
func Chain(obs ...Observer) Observer {
	var live []Observer
	for _, o := range obs {
		if o != nil {
			live = append(live, o)
		}
	}
	return func(tr Transition) {
		for _, o := range live {
			o(tr)
		}
	}
}
