package payment

import (
	"net"
	"sync"

	"noisepay/internal/channel"
	"noisepay/internal/observability"
)

// conduit owns the connection and session of one negotiation and lets the
// cancellation watcher close them from another goroutine.
type conduit struct {
	metrics  *observability.Metrics
	registry *Registry

	mu      sync.Mutex
	conn    net.Conn
	sess    *channel.Session
	aborted bool
}

// attachConn takes ownership of conn. It returns false, having closed conn,
// if the negotiation was already aborted.
func (c *conduit) attachConn(conn net.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.aborted {
		_ = conn.Close()
		return false
	}
	c.conn = conn
	return true
}

// attachSession takes ownership of an established session.
func (c *conduit) attachSession(s *channel.Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.aborted {
		_ = s.Close()
		return false
	}
	c.sess = s
	c.metrics.SessionOpened()
	if c.registry != nil {
		c.registry.Add(s)
	}
	return true
}

// abort is run by the context watcher: it closes everything so blocked
// I/O returns immediately.
func (c *conduit) abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aborted = true
	c.closeLocked()
}

// release closes the session (wiping its keys) and the connection.
func (c *conduit) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *conduit) closeLocked() {
	if c.sess != nil {
		_ = c.sess.Close()
		c.metrics.SessionClosed()
		if c.registry != nil {
			c.registry.Remove(c.sess.ID())
		}
		c.sess = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}
