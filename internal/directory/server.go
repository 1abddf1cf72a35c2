package directory

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"noisepay/internal/domain"
)

// Server is an in-memory directory for development and tests. All state is
// lost on exit.
type Server struct {
	log zerolog.Logger

	mu      sync.RWMutex
	records map[string]domain.EndpointRecord
}

func NewServer(log zerolog.Logger) *Server {
	return &Server{
		log:     log.With().Str("component", "directory").Logger(),
		records: make(map[string]domain.EndpointRecord),
	}
}

func recordKey(pk domain.PublicKey, method domain.MethodID) string {
	return string(pk) + "/" + string(method)
}

// Handler returns the HTTP API wrapped in an access log.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /endpoints", s.handlePublish)
	mux.HandleFunc("GET /endpoints/{pubkey}/{method}", s.handleResolve)
	return s.accessLog(mux)
}

// Len returns the number of stored records.
func (s *Server) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var rec domain.EndpointRecord
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&rec); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := VerifyRecord(rec); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.records[recordKey(rec.PublicKey, rec.MethodID)] = rec
	s.mu.Unlock()
	s.log.Info().Str("payee", rec.PublicKey.Short()).Str("method", string(rec.MethodID)).
		Str("locator", rec.Locator).Msg("endpoint published")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	key := recordKey(domain.PublicKey(r.PathValue("pubkey")), domain.MethodID(r.PathValue("method")))
	s.mu.RLock()
	rec, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rec)
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Int("status", sw.status).
			Int("bytes", sw.bytes).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
