package app

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"noisepay/internal/crypto"
	"noisepay/internal/directory"
	"noisepay/internal/domain"
	"noisepay/internal/services/identity"
	"noisepay/internal/services/payment"
)

// App is a Wire with the identity unlocked and transport keys derived.
type App struct {
	*Wire
	ID   domain.Identity
	Keys domain.TransportKeys
}

// Unlock decrypts the identity and derives transport keys for the
// configured epoch.
func (w *Wire) Unlock(passphrase string) (*App, error) {
	id, err := w.Identity.LoadIdentity(passphrase)
	if err != nil {
		return nil, err
	}
	keys, err := identity.Transport(id, w.Config.Epoch)
	if err != nil {
		crypto.Wipe(id.EdPriv[:])
		return nil, err
	}
	return &App{Wire: w, ID: id, Keys: keys}, nil
}

// Close wipes the unlocked key material and closes the wire.
func (a *App) Close() error {
	crypto.Wipe(a.ID.EdPriv[:])
	crypto.Wipe32((*[32]byte)(&a.Keys.Private))
	return a.Wire.Close()
}

// Payer returns a payer wired to the app's store, directory, logger,
// metrics and status tracker.
func (a *App) Payer() *payment.Payer {
	p := payment.NewPayer(a.Keys, a.Receipts, a.Directory, a.Config.Payment)
	p.Logger = a.Logger
	p.Metrics = a.Metrics
	p.Observer = a.Status.Observe
	return p
}

// Server returns a payee server, rate limited when configured.
func (a *App) Server(gen payment.ReceiptGenerator) *payment.Server {
	p := payment.NewPayee(a.Keys, a.Receipts, gen, a.Config.Payment)
	p.Logger = a.Logger
	p.Metrics = a.Metrics
	p.Observer = a.Status.Observe
	s := payment.NewServer(p)
	if a.Config.RateLimit > 0 {
		s.Limiter = payment.NewHandshakeLimiter(a.Config.RateLimit, 0)
	}
	return s
}

// Locator returns the locator advertised for a listener on listenAddr.
func (a *App) Locator(listenAddr string) (domain.EndpointLocator, error) {
	_, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return domain.EndpointLocator{}, fmt.Errorf("listen address: %w", err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return domain.EndpointLocator{}, fmt.Errorf("listen address %q: bad port", listenAddr)
	}
	return domain.EndpointLocator{
		Host:         a.Config.PublicHost,
		Port:         uint16(port),
		RemoteStatic: a.Keys.Public,
	}, nil
}

// Publish signs and uploads the endpoint record for method.
func (a *App) Publish(ctx context.Context, method domain.MethodID, loc domain.EndpointLocator) (domain.EndpointRecord, error) {
	if a.Directory == nil {
		return domain.EndpointRecord{}, fmt.Errorf("no directory configured")
	}
	rec := directory.SignRecord(a.ID, method, loc)
	if err := a.Directory.Publish(ctx, rec); err != nil {
		return domain.EndpointRecord{}, fmt.Errorf("publish: %w", err)
	}
	return rec, nil
}
