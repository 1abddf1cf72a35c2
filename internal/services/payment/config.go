package payment

import "time"

// Config bounds every waiting state. Zero fields take the defaults.
type Config struct {
	Discovery    time.Duration // payer: directory lookup
	Connect      time.Duration // payer: TCP connect
	Handshake    time.Duration // both: full Noise handshake
	Send         time.Duration // both: writing one frame
	Confirmation time.Duration // payer: waiting for confirm_receipt or reject
	Request      time.Duration // payee: waiting for payment_request
}

// DefaultConfig returns the default timeouts.
func DefaultConfig() Config {
	return Config{
		Discovery:    10 * time.Second,
		Connect:      10 * time.Second,
		Handshake:    10 * time.Second,
		Send:         10 * time.Second,
		Confirmation: 30 * time.Second,
		Request:      30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Discovery <= 0 {
		c.Discovery = d.Discovery
	}
	if c.Connect <= 0 {
		c.Connect = d.Connect
	}
	if c.Handshake <= 0 {
		c.Handshake = d.Handshake
	}
	if c.Send <= 0 {
		c.Send = d.Send
	}
	if c.Confirmation <= 0 {
		c.Confirmation = d.Confirmation
	}
	if c.Request <= 0 {
		c.Request = d.Request
	}
	return c
}
