package mockhttp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/justinas/alice"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Server is a mock HTTP server. Mocks registered with Mock and activated with
// Create intercept matching requests until they are removed.
//
// A Server is safe for concurrent requests, but the set of mocks is shared:
// tests that register mocks on the same Server must not run in parallel.
type Server struct {
	srv         *httptest.Server
	logger      *zap.Logger
	useTLS      bool
	defaultCode int
	capture     *Capture

	mu    sync.Mutex
	mocks []*Mock
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request tracing and unmatched requests.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithTLS serves over HTTPS. Use Client for requests.
func WithTLS() Option {
	return func(s *Server) { s.useTLS = true }
}

// WithDefaultStatus sets the status code returned when no mock matches.
func WithDefaultStatus(code int) Option {
	return func(s *Server) { s.defaultCode = code }
}

// NewServer starts a mock server. Close it when done.
func NewServer(opts ...Option) *Server {
	s := &Server{
		logger:      zap.NewNop(),
		defaultCode: http.StatusNotImplemented,
		capture:     &Capture{},
	}
	for _, opt := range opts {
		opt(s)
	}

	handler := alice.New(s.logRequests, bufferBody).ThenFunc(s.dispatch)
	if s.useTLS {
		s.srv = httptest.NewTLSServer(handler)
	} else {
		s.srv = httptest.NewServer(handler)
	}
	return s
}

// URL returns the base URL of the server, without a trailing slash.
func (s *Server) URL() string {
	return s.srv.URL
}

// Client returns an HTTP client configured for the server (important for TLS).
func (s *Server) Client() *http.Client {
	return s.srv.Client()
}

// Close shuts the server down and blocks until outstanding requests complete.
func (s *Server) Close() {
	s.srv.Close()
}

// Mock starts describing an endpoint. It intercepts nothing until Create is called.
func (s *Server) Mock(method, path string) *Mock {
	return newMock(s, method, path)
}

// Requests returns the capture of every request the server received.
func (s *Server) Requests() *Capture {
	return s.capture
}

// Reset removes every active mock and clears captured requests.
func (s *Server) Reset() {
	s.mu.Lock()
	for _, m := range s.mocks {
		m.active = false
	}
	s.mocks = nil
	s.mu.Unlock()

	s.capture.Clear()
}

// Verify checks every active mock and returns all unmet expectations.
func (s *Server) Verify() error {
	s.mu.Lock()
	mocks := append([]*Mock(nil), s.mocks...)
	s.mu.Unlock()

	var errs error
	for _, m := range mocks {
		errs = multierr.Append(errs, m.Verify())
	}
	return errs
}

func (s *Server) activate(m *Mock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.active {
		return
	}
	m.active = true
	s.mocks = append(s.mocks, m)
}

func (s *Server) deactivate(m *Mock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !m.active {
		return
	}
	m.active = false
	for i, other := range s.mocks {
		if other == m {
			s.mocks = append(s.mocks[:i], s.mocks[i+1:]...)
			break
		}
	}
}

// match returns the first active mock accepting the request, counting the hit.
func (s *Server) match(r *http.Request, body []byte) *Mock {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.mocks {
		if m.matches(r, body) {
			m.hits++
			return m
		}
	}
	return nil
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	body, _ := r.Context().Value(bodyKey{}).([]byte)

	m := s.match(r, body)
	s.capture.record(r, body, m != nil)

	if m == nil {
		s.logger.Warn("no mock matched request",
			zap.String("method", r.Method),
			zap.String("uri", r.URL.RequestURI()),
		)
		http.Error(w, fmt.Sprintf("no mock matched %s %s", r.Method, r.URL.RequestURI()), s.defaultCode)
		return
	}
	m.respond(w)
}

type bodyKey struct{}

// bufferBody reads the request body once so that matchers and capture can
// both inspect it.
func bufferBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			var err error
			body, err = io.ReadAll(r.Body)
			r.Body.Close()
			if err != nil {
				http.Error(w, "read request body: "+err.Error(), http.StatusBadRequest)
				return
			}
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), bodyKey{}, body)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("mock request",
			zap.String("method", r.Method),
			zap.String("uri", r.URL.RequestURI()),
			zap.Int("status", rec.status),
		)
	})
}
