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
)

// Payee answers inbound payment negotiations, one connection at a time per
// AcceptConnection call. Concurrent calls are independent.
type Payee struct {
	keys      domain.TransportKeys
	store     domain.ReceiptStore
	generator ReceiptGenerator
	cfg       Config

	Logger   zerolog.Logger
	Metrics  *observability.Metrics
	Observer Observer
	Registry *Registry
}

// NewPayee returns a Payee. A nil generator confirms every request.
func NewPayee(keys domain.TransportKeys, store domain.ReceiptStore, generator ReceiptGenerator, cfg Config) *Payee {
	if generator == nil {
		generator = AcceptAll
	}
	return &Payee{
		keys:      keys,
		store:     store,
		generator: generator,
		cfg:       cfg.withDefaults(),
		Logger:    zerolog.Nop(),
	}
}

// PublicKey is the identity payers must address.
func (p *Payee) PublicKey() domain.PublicKey { return p.keys.Owner }

// AcceptConnection runs the responder side on conn and always closes it.
// The returned receipt is the confirmed one, persisted after the
// confirmation frame was written.
func (p *Payee) AcceptConnection(ctx context.Context, conn net.Conn) (domain.Receipt, error) {
	r := p.newRun(conn)
	if err := ctx.Err(); err != nil {
		_ = conn.Close()
		return domain.Receipt{}, r.fail(ctx, err, "")
	}
	stop := context.AfterFunc(ctx, r.abort)
	defer stop()
	defer r.release()

	r.to(PayeeAccepting)
	if !r.attachConn(conn) {
		return domain.Receipt{}, r.fail(ctx, domain.ErrCancelled, "")
	}

	r.to(PayeeHandshaking)
	hctx, cancel := context.WithTimeout(ctx, p.cfg.Handshake)
	sess, err := channel.Accept(hctx, conn, channel.LocalFromKeys(p.keys))
	cancel()
	p.Metrics.Handshake("responder", err == nil)
	if err != nil {
		return domain.Receipt{}, r.fail(ctx, err, HandshakeTimeout)
	}
	if !r.attachSession(sess) {
		return domain.Receipt{}, r.fail(ctx, domain.ErrCancelled, "")
	}
	r.session = sess
	r.log = observability.WithSession(r.log, sess.ID(), sess.Peer().Short())

	r.to(PayeeAwaitingRequest)
	seq := message.NewSequencer(message.SidePayee)
	_ = sess.SetReadDeadline(time.Now().Add(p.cfg.Request))
	raw, err := sess.Recv()
	if err != nil {
		return domain.Receipt{}, r.fail(ctx, err, RequestTimeout)
	}
	p.Metrics.Frame("in")
	msg, err := message.Decode(raw)
	if err != nil {
		return domain.Receipt{}, r.fail(ctx, err, "")
	}
	if err := seq.Inbound(msg); err != nil {
		return domain.Receipt{}, r.fail(ctx, err, "")
	}
	req := msg.(message.RequestReceipt).Receipt
	r.setReceipt(req.ID)

	switch {
	case req.Payee != p.keys.Owner:
		return domain.Receipt{}, r.reject(ctx, seq, req.ID, message.CodeWrongPayee,
			fmt.Sprintf("this endpoint belongs to %s", p.keys.Owner))
	case req.Payer != sess.Peer():
		return domain.Receipt{}, r.reject(ctx, seq, req.ID, message.CodeWrongPayer,
			"payer key does not match the authenticated peer")
	}

	r.to(PayeeGeneratingConfirmation)
	confirmed, err := p.generator.GenerateReceipt(ctx, req)
	switch {
	case ctx.Err() != nil:
		return domain.Receipt{}, r.fail(ctx, ctx.Err(), "")
	case errors.Is(err, ErrDeclined):
		return domain.Receipt{}, r.reject(ctx, seq, req.ID, message.CodeDeclined, err.Error())
	case err != nil:
		r.log.Error().Err(err).Msg("receipt generator failed")
		return domain.Receipt{}, r.reject(ctx, seq, req.ID, message.CodeInternal, "receipt generation failed")
	case !confirmed.SameTerms(req):
		r.log.Error().Msg("receipt generator changed the payment terms")
		return domain.Receipt{}, r.reject(ctx, seq, req.ID, message.CodeInternal, "receipt generation failed")
	}
	confirmed.Status = domain.ReceiptConfirmed

	r.to(PayeeSendingConfirmation)
	out := message.ConfirmReceipt{Receipt: confirmed}
	if err := r.send(seq, out); err != nil {
		return domain.Receipt{}, r.fail(ctx, err, SendTimeout)
	}
	if err := p.store.SaveReceipt(confirmed); err != nil {
		return confirmed, r.fail(ctx, fmt.Errorf("%w: %w", ErrStorage, err), "")
	}

	r.release()
	r.to(PayeeDone)
	r.log.Info().Str("method", string(confirmed.MethodID)).Str("amount", confirmed.Amount).
		Str("currency", confirmed.Currency).Msg("payment confirmed")
	p.Metrics.Payment("payee", "completed", time.Since(r.start))
	return confirmed, nil
}

type payeeRun struct {
	conduit

	p       *Payee
	id      string
	log     zerolog.Logger
	start   time.Time
	session *channel.Session

	stateMu   sync.Mutex
	state     PayeeState
	receiptID string
}

func (p *Payee) newRun(conn net.Conn) *payeeRun {
	id := uuid.NewString()
	l := p.Logger.With().Str("component", "payee").Str("attempt", id)
	if addr := conn.RemoteAddr(); addr != nil {
		l = l.Str("remote", addr.String())
	}
	return &payeeRun{
		conduit: conduit{metrics: p.Metrics, registry: p.Registry},
		p:       p,
		id:      id,
		log:     l.Logger(),
		start:   time.Now(),
		state:   PayeeListening,
	}
}

func (r *payeeRun) setReceipt(id string) {
	r.stateMu.Lock()
	r.receiptID = id
	r.stateMu.Unlock()
	r.log = r.log.With().Str("receipt_id", id).Logger()
}

func (r *payeeRun) current() PayeeState {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.state
}

func (r *payeeRun) to(next PayeeState) { r.transition(next, nil) }

func (r *payeeRun) transition(next PayeeState, perr *Error) {
	r.stateMu.Lock()
	from := r.state
	r.state = next
	rid := r.receiptID
	r.stateMu.Unlock()

	r.log.Debug().Str("from", from.String()).Str("to", next.String()).Msg("payee state")
	if r.p.Observer != nil {
		r.p.Observer(Transition{
			Side:      message.SidePayee,
			Attempt:   r.id,
			ReceiptID: rid,
			From:      from.String(),
			To:        next.String(),
			At:        time.Now(),
			Err:       perr,
		})
	}
}

func (r *payeeRun) send(seq *message.Sequencer, m message.Message) error {
	if err := seq.Outbound(m); err != nil {
		return err
	}
	b, err := message.Encode(m)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrProtocolViolation, err)
	}
	_ = r.session.SetWriteDeadline(time.Now().Add(r.p.cfg.Send))
	if err := r.session.Send(b); err != nil {
		return err
	}
	r.p.Metrics.Frame("out")
	return nil
}

// reject answers the request with a Reject and ends the run as rejected.
func (r *payeeRun) reject(ctx context.Context, seq *message.Sequencer, id, code, reason string) *Error {
	r.to(PayeeSendingConfirmation)
	if err := r.send(seq, message.Reject{ID: id, Code: code, Reason: reason}); err != nil {
		return r.fail(ctx, err, SendTimeout)
	}
	perr := r.fail(ctx, fmt.Errorf("%w: %s: %s", domain.ErrRejected, code, reason), "")
	perr.Code = code
	return perr
}

func (r *payeeRun) fail(ctx context.Context, err error, timeout TimeoutKind) *Error {
	perr := &Error{
		Side:  message.SidePayee,
		State: r.current().String(),
		Kind:  classify(err),
		Err:   err,
	}
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		perr.Kind = KindCancelled
	case ctx.Err() != nil:
		perr.Kind = KindTimeout
		perr.Timeout = timeout
	case perr.Kind == KindTimeout:
		perr.Timeout = timeout
	}

	r.release()
	r.transition(PayeeFailed, perr)

	ev := r.log.Warn()
	if perr.Kind == KindRejected || perr.Kind == KindCancelled {
		ev = r.log.Info()
	}
	ev.Err(err).Str("state", perr.State).Str("kind", perr.Kind.String()).
		Str("timeout", string(perr.Timeout)).Msg("negotiation ended")
	r.p.Metrics.Payment("payee", perr.Kind.String(), time.Since(r.start))
	return perr
}
