package app

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"noisepay/internal/services/payment"
)

// Receipt store backends.
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home           string       // config directory, e.g. $HOME/.noisepay
	DeviceID       string       // device name used at init and for key derivation
	Epoch          uint32       // transport key epoch
	DirectoryURL   string       // directory base URL, e.g. http://127.0.0.1:8080
	ReceiptBackend string       // "file" or "bolt"
	HTTP           *http.Client // optional; defaults to a client with a 10s timeout

	Payment    payment.Config
	ListenAddr string // payee listener, e.g. 0.0.0.0:9735
	PublicHost string // host advertised in published locators
	// RateLimit is the per-IP handshake limit per minute; 0 disables it.
	RateLimit   int
	MetricsAddr string // serve /metrics here when non-empty

	LogLevel string
	LogJSON  bool
}

// DefaultHome returns $HOME/.noisepay, or .noisepay if HOME is unknown.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".noisepay"
	}
	return filepath.Join(home, ".noisepay")
}

// DefaultConfig returns the settings used when no flags are given.
func DefaultConfig() Config {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "default"
	}
	return Config{
		Home:           DefaultHome(),
		DeviceID:       host,
		DirectoryURL:   "http://127.0.0.1:8080",
		ReceiptBackend: BackendFile,
		Payment:        payment.DefaultConfig(),
		ListenAddr:     "0.0.0.0:9735",
		PublicHost:     "127.0.0.1",
		LogLevel:       "info",
	}
}

func (c Config) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}
