package payment

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"noisepay/internal/channel"
	"noisepay/internal/domain"
	"noisepay/internal/observability"
	"noisepay/internal/protocol/message"
	"noisepay/internal/services/identity"
)

// Dialer opens the outbound TCP connection. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Payer initiates payments. It is safe for concurrent use; each call runs
// an independent attempt over its own connection.
type Payer struct {
	keys      domain.TransportKeys
	store     domain.ReceiptStore
	directory domain.DirectoryService
	cfg       Config

	Dialer   Dialer
	Logger   zerolog.Logger
	Metrics  *observability.Metrics
	Observer Observer
}

// NewPayer returns a Payer using keys for handshakes and store for
// receipts. directory may be nil if only InitiatePayment is used.
func NewPayer(
	keys domain.TransportKeys,
	store domain.ReceiptStore,
	directory domain.DirectoryService,
	cfg Config,
) *Payer {
	return &Payer{
		keys:      keys,
		store:     store,
		directory: directory,
		cfg:       cfg.withDefaults(),
		Dialer:    &net.Dialer{},
		Logger:    zerolog.Nop(),
	}
}

// Pay resolves the recipient, discovers its endpoint for the method, and
// runs InitiatePayment with a fresh provisional receipt.
func (p *Payer) Pay(ctx context.Context, req PayRequest) (domain.Receipt, error) {
	a := p.newAttempt()

	a.to(PayerResolvingRecipient)
	payee, err := identity.ParsePublicKey(req.Payee)
	if err != nil {
		return domain.Receipt{}, a.fail(ctx, fmt.Errorf("%w: %w", ErrInvalidRequest, err), "")
	}
	if payee == p.keys.Owner {
		return domain.Receipt{}, a.fail(ctx, fmt.Errorf("%w: cannot pay yourself", ErrInvalidRequest), "")
	}
	if req.MethodID == "" {
		return domain.Receipt{}, a.fail(ctx, fmt.Errorf("%w: method id required", ErrInvalidRequest), "")
	}

	a.to(PayerDiscoveringEndpoint)
	if p.directory == nil {
		return domain.Receipt{}, a.fail(ctx, fmt.Errorf("%w: no directory configured", domain.ErrNotFound), "")
	}
	dctx, cancel := context.WithTimeout(ctx, p.cfg.Discovery)
	loc, ok, err := p.directory.ResolveEndpoint(dctx, payee, req.MethodID)
	cancel()
	if err != nil {
		return domain.Receipt{}, a.fail(ctx, err, DiscoveryTimeout)
	}
	if !ok {
		return domain.Receipt{}, a.fail(ctx,
			fmt.Errorf("%w: no %s endpoint published for %s", domain.ErrNotFound, req.MethodID, payee.Short()), "")
	}

	prov := NewProvisionalReceipt(p.keys.Owner, payee, req, time.Now())
	return a.exchange(ctx, loc, prov)
}

// InitiatePayment connects to loc, authenticates the payee and negotiates
// provisional. On success the confirmed receipt has been persisted. On a
// reject the receipt is persisted as failed and returned with the error.
func (p *Payer) InitiatePayment(
	ctx context.Context,
	loc domain.EndpointLocator,
	provisional domain.Receipt,
) (domain.Receipt, error) {
	a := p.newAttempt()
	if err := p.checkProvisional(loc, &provisional); err != nil {
		return domain.Receipt{}, a.fail(ctx, err, "")
	}
	return a.exchange(ctx, loc, provisional)
}

func (p *Payer) checkProvisional(loc domain.EndpointLocator, r *domain.Receipt) error {
	if loc.Host == "" || loc.Port == 0 || loc.RemoteStatic.IsZero() {
		return fmt.Errorf("%w: incomplete locator %q", domain.ErrMalformedEndpoint, loc.String())
	}
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: receipt id required", ErrInvalidRequest)
	case r.Payer != p.keys.Owner:
		return fmt.Errorf("%w: receipt payer is not the local identity", ErrInvalidRequest)
	case r.Payee == "" || r.Payee == p.keys.Owner:
		return fmt.Errorf("%w: receipt payee must be another party", ErrInvalidRequest)
	case r.MethodID == "":
		return fmt.Errorf("%w: method id required", ErrInvalidRequest)
	case r.Status != "" && r.Status != domain.ReceiptProvisional:
		return fmt.Errorf("%w: receipt status %q is not provisional", ErrInvalidRequest, r.Status)
	}
	r.Status = domain.ReceiptProvisional
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().Unix()
	}
	return nil
}

type payerAttempt struct {
	conduit

	p     *Payer
	id    string
	log   zerolog.Logger
	start time.Time

	// sent is the provisional receipt once the request is on the wire.
	sent *domain.Receipt

	stateMu   sync.Mutex
	state     PayerState
	receiptID string
}

// markFailed records a receipt whose negotiation definitely did not
// complete. Timeouts and transport loss leave the provisional record.
func (a *payerAttempt) markFailed(r domain.Receipt) {
	r.Status = domain.ReceiptFailed
	if err := a.p.store.SaveReceipt(r); err != nil {
		a.log.Error().Err(err).Msg("persist failed receipt")
	}
}

func (p *Payer) newAttempt() *payerAttempt {
	id := uuid.NewString()
	return &payerAttempt{
		conduit: conduit{metrics: p.Metrics},
		p:       p,
		id:      id,
		log:     p.Logger.With().Str("component", "payer").Str("attempt", id).Logger(),
		start:   time.Now(),
		state:   PayerIdle,
	}
}

func (a *payerAttempt) current() PayerState {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.state
}

func (a *payerAttempt) to(next PayerState) { a.transition(next, nil) }

func (a *payerAttempt) transition(next PayerState, perr *Error) {
	a.stateMu.Lock()
	from := a.state
	a.state = next
	rid := a.receiptID
	a.stateMu.Unlock()

	a.log.Debug().Str("from", from.String()).Str("to", next.String()).Msg("payer state")
	if a.p.Observer != nil {
		a.p.Observer(Transition{
			Side:      message.SidePayer,
			Attempt:   a.id,
			ReceiptID: rid,
			From:      from.String(),
			To:        next.String(),
			At:        time.Now(),
			Err:       perr,
		})
	}
}

func (a *payerAttempt) exchange(ctx context.Context, loc domain.EndpointLocator, prov domain.Receipt) (domain.Receipt, error) {
	p := a.p
	a.stateMu.Lock()
	a.receiptID = prov.ID
	a.stateMu.Unlock()
	a.log = a.log.With().Str("receipt_id", prov.ID).Logger()

	if err := ctx.Err(); err != nil {
		return domain.Receipt{}, a.fail(ctx, err, "")
	}
	stop := context.AfterFunc(ctx, a.abort)
	defer stop()
	defer a.release()

	a.to(PayerConnecting)
	dctx, cancel := context.WithTimeout(ctx, p.cfg.Connect)
	conn, err := p.Dialer.DialContext(dctx, "tcp", loc.Address())
	cancel()
	if err != nil {
		return domain.Receipt{}, a.fail(ctx, fmt.Errorf("%w: dial %s: %w", domain.ErrTransport, loc.Address(), err), ConnectTimeout)
	}
	if !a.attachConn(conn) {
		return domain.Receipt{}, a.fail(ctx, domain.ErrCancelled, "")
	}

	a.to(PayerHandshaking)
	hctx, cancel := context.WithTimeout(ctx, p.cfg.Handshake)
	sess, err := channel.Dial(hctx, conn, channel.LocalFromKeys(p.keys), loc.RemoteStatic)
	cancel()
	p.Metrics.Handshake("initiator", err == nil)
	if err != nil {
		return domain.Receipt{}, a.fail(ctx, err, HandshakeTimeout)
	}
	if !a.attachSession(sess) {
		return domain.Receipt{}, a.fail(ctx, domain.ErrCancelled, "")
	}
	a.log = observability.WithSession(a.log, sess.ID(), sess.Peer().Short())
	if sess.Peer() != prov.Payee {
		return domain.Receipt{}, a.fail(ctx, fmt.Errorf("%w: endpoint belongs to %s, not payee %s",
			domain.ErrProtocolViolation, sess.Peer().Short(), prov.Payee.Short()), "")
	}

	a.to(PayerSendingRequest)
	seq := message.NewSequencer(message.SidePayer)
	req := message.RequestReceipt{Receipt: prov}
	if err := seq.Outbound(req); err != nil {
		return domain.Receipt{}, a.fail(ctx, err, "")
	}
	b, err := message.Encode(req)
	if err != nil {
		return domain.Receipt{}, a.fail(ctx, fmt.Errorf("%w: %w", ErrInvalidRequest, err), "")
	}
	if err := p.store.SaveReceipt(prov); err != nil {
		return domain.Receipt{}, a.fail(ctx, fmt.Errorf("%w: %w", ErrStorage, err), "")
	}
	_ = sess.SetWriteDeadline(time.Now().Add(p.cfg.Send))
	if err := sess.Send(b); err != nil {
		return domain.Receipt{}, a.fail(ctx, err, SendTimeout)
	}
	a.sent = &prov
	p.Metrics.Frame("out")

	a.to(PayerAwaitingConfirmation)
	_ = sess.SetReadDeadline(time.Now().Add(p.cfg.Confirmation))
	raw, err := sess.Recv()
	if err != nil {
		return domain.Receipt{}, a.fail(ctx, err, ConfirmationTimeout)
	}
	p.Metrics.Frame("in")
	msg, err := message.Decode(raw)
	if err != nil {
		return domain.Receipt{}, a.fail(ctx, err, "")
	}
	if err := seq.Inbound(msg); err != nil {
		return domain.Receipt{}, a.fail(ctx, err, "")
	}

	switch m := msg.(type) {
	case message.ConfirmReceipt:
		if !m.Receipt.SameTerms(prov) {
			return domain.Receipt{}, a.fail(ctx,
				fmt.Errorf("%w: confirmation does not match the request", domain.ErrProtocolViolation), "")
		}
		final := m.Receipt
		final.Status = domain.ReceiptConfirmed
		final.CreatedAt = prov.CreatedAt
		if err := p.store.SaveReceipt(final); err != nil {
			return final, a.fail(ctx, fmt.Errorf("%w: %w", ErrStorage, err), "")
		}
		a.release()
		a.to(PayerCompleted)
		a.log.Info().Str("method", string(final.MethodID)).Str("amount", final.Amount).
			Str("currency", final.Currency).Msg("payment confirmed")
		p.Metrics.Payment("payer", "completed", time.Since(a.start))
		return final, nil

	case message.Reject:
		a.sent = nil
		a.markFailed(prov)
		failed := prov
		failed.Status = domain.ReceiptFailed
		perr := a.fail(ctx, fmt.Errorf("%w: %s: %s", domain.ErrRejected, m.Code, m.Reason), "")
		perr.Code = m.Code
		return failed, perr

	default:
		return domain.Receipt{}, a.fail(ctx, fmt.Errorf("%w: unexpected %s", domain.ErrProtocolViolation, msg.Type()), "")
	}
}

// fail ends the attempt. Any error after ctx is cancelled is reported as
// cancellation. Timeouts record which wait expired.
func (a *payerAttempt) fail(ctx context.Context, err error, timeout TimeoutKind) *Error {
	perr := &Error{
		Side:  message.SidePayer,
		State: a.current().String(),
		Kind:  classify(err),
		Err:   err,
	}
	final := PayerFailed
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		perr.Kind = KindCancelled
		final = PayerCancelled
	case ctx.Err() != nil:
		perr.Kind = KindTimeout
		perr.Timeout = timeout
	case perr.Kind == KindTimeout:
		perr.Timeout = timeout
	}

	a.release()
	if a.sent != nil && (perr.Kind == KindProtocolViolation || perr.Kind == KindReplayOrDesync) {
		a.markFailed(*a.sent)
	}
	a.transition(final, perr)

	ev := a.log.Warn()
	if perr.Kind == KindCancelled {
		ev = a.log.Info()
	}
	ev.Err(err).Str("state", perr.State).Str("kind", perr.Kind.String()).
		Str("timeout", string(perr.Timeout)).Msg("payment ended")
	a.p.Metrics.Payment("payer", perr.Kind.String(), time.Since(a.start))
	return perr
}

// KindOf returns the Kind of err if it is an *Error, or zero.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return 0
}
