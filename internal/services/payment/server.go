package payment

import (
	"context"
	"errors"
	"net"
	"sync"

	"noisepay/internal/channel"
	"noisepay/internal/domain"
)

// Registry tracks live sessions so they can be closed on shutdown.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*channel.Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*channel.Session)}
}

func (r *Registry) Add(s *channel.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll closes every registered session and empties the registry.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	live := make([]*channel.Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		live = append(live, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range live {
		_ = s.Close()
	}
}

// Result is reported for every connection the server handled.
type Result struct {
	Remote  net.Addr
	Receipt domain.Receipt
	Err     error
}

// Server accepts connections and runs one Payee negotiation per connection.
type Server struct {
	payee *Payee

	// Limiter, when set, drops connections before the handshake.
	Limiter *HandshakeLimiter
	// OnResult, when set, is called from the connection goroutine.
	OnResult func(Result)

	wg sync.WaitGroup
}

// NewServer returns a Server for payee. If payee has no Registry one is
// created.
func NewServer(payee *Payee) *Server {
	if payee.Registry == nil {
		payee.Registry = NewRegistry()
	}
	return &Server{payee: payee}
}

// Registry returns the live-session registry.
func (s *Server) Registry() *Registry { return s.payee.Registry }

// Serve accepts on ln until ctx is cancelled or ln fails. On return the
// listener is closed, in-flight negotiations have been cancelled and
// every connection goroutine has finished.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := s.payee.Logger.With().Str("component", "server").Str("addr", ln.Addr().String()).Logger()
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	connCtx, cancelConns := context.WithCancel(ctx)
	defer func() {
		_ = ln.Close()
		cancelConns()
		s.payee.Registry.CloseAll()
		s.wg.Wait()
	}()

	log.Info().Str("payee", s.payee.PublicKey().Short()).Msg("listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info().Msg("listener stopped")
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}
		if s.Limiter != nil && !s.Limiter.Allow(conn.RemoteAddr()) {
			s.payee.Metrics.Limited()
			log.Warn().Str("remote", conn.RemoteAddr().String()).Msg("handshake rate limited")
			_ = conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			rec, err := s.payee.AcceptConnection(connCtx, conn)
			if s.OnResult != nil {
				s.OnResult(Result{Remote: conn.RemoteAddr(), Receipt: rec, Err: err})
			}
		}()
	}
}
