package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"noisepay/internal/directory"
	"noisepay/internal/domain"
	"noisepay/internal/observability"
	"noisepay/internal/services/identity"
	"noisepay/internal/services/payment"
	"noisepay/internal/store"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Config    Config
	Identity  *identity.Service
	Receipts  domain.ReceiptStore
	Directory domain.DirectoryService
	Logger    zerolog.Logger
	Metrics   *observability.Metrics
	Registry  *prometheus.Registry
	Status    *payment.StatusTracker

	closer io.Closer
}

// NewWire constructs the dependency graph from cfg. Close releases the
// receipt store.
func NewWire(cfg Config, logOut io.Writer) (*Wire, error) {
	if cfg.Home == "" {
		cfg.Home = DefaultHome()
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, fmt.Errorf("create home: %w", err)
	}

	logger := observability.NewLogger("noisepay", observability.LogOptions{
		Level:  cfg.LogLevel,
		JSON:   cfg.LogJSON,
		Output: logOut,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(reg)

	w := &Wire{
		Config:   cfg,
		Identity: identity.New(store.NewIdentityFileStore(cfg.Home)),
		Logger:   logger,
		Metrics:  metrics,
		Registry: reg,
		Status:   payment.NewStatusTracker(),
	}

	switch cfg.ReceiptBackend {
	case "", BackendFile:
		w.Receipts = store.NewReceiptFileStore(cfg.Home)
	case BackendBolt:
		bs, err := store.OpenBoltReceiptStore(filepath.Join(cfg.Home, store.BoltFilename))
		if err != nil {
			return nil, fmt.Errorf("open receipts: %w", err)
		}
		w.Receipts = bs
		w.closer = bs
	default:
		return nil, fmt.Errorf("unknown receipt backend %q", cfg.ReceiptBackend)
	}

	if cfg.DirectoryURL != "" {
		dc := directory.NewHTTP(cfg.DirectoryURL)
		dc.HTTP = cfg.httpClient()
		w.Directory = dc
	}
	return w, nil
}

// Pruner is implemented by receipt stores that support bulk deletion.
type Pruner interface {
	Prune(status domain.ReceiptStatus, cutoff time.Time) (int, error)
}

var _ Pruner = (*store.BoltReceiptStore)(nil)

// Close releases resources held by the wire.
func (w *Wire) Close() error {
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
