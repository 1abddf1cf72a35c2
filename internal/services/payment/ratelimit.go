package payment

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultHandshakesPerMinute = 10
	DefaultMaxTrackedIPs       = 10000
)

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// HandshakeLimiter admits at most PerMinute inbound connections per remote
// IP, with a burst of the same size.
type HandshakeLimiter struct {
	perMinute int
	maxIPs    int
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*ipEntry
}

// NewHandshakeLimiter returns a limiter. Non-positive arguments take the
// defaults.
func NewHandshakeLimiter(perMinute, maxIPs int) *HandshakeLimiter {
	if perMinute <= 0 {
		perMinute = DefaultHandshakesPerMinute
	}
	if maxIPs <= 0 {
		maxIPs = DefaultMaxTrackedIPs
	}
	return &HandshakeLimiter{
		perMinute: perMinute,
		maxIPs:    maxIPs,
		now:       time.Now,
		entries:   make(map[string]*ipEntry),
	}
}

// Allow reports whether a connection from addr may proceed to the
// handshake. When the table is full and nothing can be evicted, new
// addresses are refused.
func (l *HandshakeLimiter) Allow(addr net.Addr) bool {
	ip := hostOf(addr)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[ip]
	if !ok {
		if len(l.entries) >= l.maxIPs {
			l.evictIdle(now)
			if len(l.entries) >= l.maxIPs {
				return false
			}
		}
		e = &ipEntry{limiter: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.perMinute)}
		l.entries[ip] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Tracked returns the number of addresses currently held.
func (l *HandshakeLimiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// evictIdle drops addresses whose bucket has refilled completely.
func (l *HandshakeLimiter) evictIdle(now time.Time) {
	for ip, e := range l.entries {
		if now.Sub(e.lastSeen) >= time.Minute {
			delete(l.entries, ip)
		}
	}
}

func hostOf(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP.String()
	case *net.UDPAddr:
		return a.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
