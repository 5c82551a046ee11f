package mockhttp

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TestingT is the subset of testing.TB used by Assert.
type TestingT interface {
	Helper()
	Errorf(format string, args ...any)
}

type headerMatcher struct {
	name    string
	matcher Matcher
}

// Mock describes one simulated endpoint. Configure it before calling Create;
// setters return the mock for chaining.
type Mock struct {
	server *Server
	method string
	path   string

	route    *mux.Route
	rawQuery string
	hasQuery bool

	status         int
	headers        http.Header
	body           []byte
	bodyFile       string
	bodyMatcher    Matcher
	headerMatchers []headerMatcher

	// atMost < 0 means unbounded.
	atLeast int
	atMost  int

	// Guarded by server.mu once the mock is active.
	active bool
	hits   int
	err    error
}

func newMock(s *Server, method, path string) *Mock {
	m := &Mock{
		server:  s,
		method:  strings.ToUpper(method),
		path:    path,
		status:  http.StatusOK,
		headers: make(http.Header),
		atLeast: 1,
		atMost:  1,
	}

	p, q, hasQuery := strings.Cut(path, "?")
	m.rawQuery, m.hasQuery = q, hasQuery

	route := mux.NewRouter().NewRoute()
	if prefix, ok := strings.CutSuffix(p, "*"); ok {
		route = route.PathPrefix(prefix)
	} else {
		route = route.Path(p)
	}
	if m.method != "" && m.method != "*" {
		route = route.Methods(m.method)
	}
	if err := route.GetError(); err != nil {
		m.err = fmt.Errorf("invalid path %q: %w", path, err)
	}
	m.route = route
	return m
}

// WithStatus sets the response status code.
func (m *Mock) WithStatus(code int) *Mock {
	m.status = code
	return m
}

// WithHeader adds a response header.
func (m *Mock) WithHeader(name, value string) *Mock {
	m.headers.Add(name, value)
	return m
}

// WithBody sets a literal response body, replacing any body file.
func (m *Mock) WithBody(body string) *Mock {
	m.body = []byte(body)
	m.bodyFile = ""
	return m
}

// WithBodyFromFile serves the contents of path as the response body,
// replacing any literal body. The file is read on every response; if it
// cannot be read the connection is aborted and Verify reports the error.
func (m *Mock) WithBodyFromFile(path string) *Mock {
	m.bodyFile = path
	m.body = nil
	return m
}

// MatchBody requires the request body to satisfy matcher.
func (m *Mock) MatchBody(matcher Matcher) *Mock {
	m.bodyMatcher = matcher
	return m
}

// MatchHeader requires the named request header to satisfy matcher. Matchers
// accumulate; a request must satisfy all of them, including repeated names.
func (m *Mock) MatchHeader(name string, matcher Matcher) *Mock {
	m.headerMatchers = append(m.headerMatchers, headerMatcher{name: name, matcher: matcher})
	return m
}

// Expect requires exactly hits matching requests.
func (m *Mock) Expect(hits int) *Mock {
	m.atLeast, m.atMost = hits, hits
	return m
}

// ExpectAtLeast requires hits or more matching requests.
func (m *Mock) ExpectAtLeast(hits int) *Mock {
	m.atLeast, m.atMost = hits, -1
	return m
}

// Create activates the mock. It intercepts matching requests until Remove
// is called or the server is reset.
func (m *Mock) Create() *Mock {
	m.server.activate(m)
	m.server.logger.Debug("mock created", zap.String("mock", m.String()))
	return m
}

// Remove deactivates the mock. It is safe to call more than once.
func (m *Mock) Remove() {
	m.server.deactivate(m)
}

// Hits returns the number of requests the mock has served.
func (m *Mock) Hits() int {
	m.server.mu.Lock()
	defer m.server.mu.Unlock()
	return m.hits
}

// Matched reports whether the mock's expectation is met.
func (m *Mock) Matched() bool {
	return m.Verify() == nil
}

// Verify returns an error if the recorded hits do not satisfy the expectation
// or if the mock failed to produce a response.
func (m *Mock) Verify() error {
	m.server.mu.Lock()
	hits, err := m.hits, m.err
	m.server.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%s: %w", m, err)
	}
	if hits < m.atLeast || (m.atMost >= 0 && hits > m.atMost) {
		return fmt.Errorf("%s: expected %s, received %d", m, m.expectation(), hits)
	}
	return nil
}

// Assert fails the test if Verify returns an error.
func (m *Mock) Assert(t TestingT) {
	t.Helper()
	if err := m.Verify(); err != nil {
		t.Errorf("mock assertion failed: %v", err)
	}
}

// String describes the mock as "METHOD path".
func (m *Mock) String() string {
	return m.method + " " + m.path
}

func (m *Mock) expectation() string {
	switch {
	case m.atMost < 0:
		return fmt.Sprintf("at least %d request(s)", m.atLeast)
	default:
		return fmt.Sprintf("exactly %d request(s)", m.atLeast)
	}
}

// matches is called with server.mu held.
func (m *Mock) matches(r *http.Request, body []byte) bool {
	if !m.route.Match(r, &mux.RouteMatch{}) {
		return false
	}
	if m.hasQuery && r.URL.RawQuery != m.rawQuery {
		return false
	}
	for _, hm := range m.headerMatchers {
		values := r.Header.Values(hm.name)
		if !matchHeader(hm.matcher, values) {
			return false
		}
	}
	if m.bodyMatcher != nil && !m.bodyMatcher.Match(string(body), true) {
		return false
	}
	return true
}

func matchHeader(matcher Matcher, values []string) bool {
	if len(values) == 0 {
		return matcher.Match("", false)
	}
	for _, v := range values {
		if matcher.Match(v, true) {
			return true
		}
	}
	return false
}

func (m *Mock) respond(w http.ResponseWriter) {
	body := m.body
	if m.bodyFile != "" {
		data, err := os.ReadFile(m.bodyFile)
		if err != nil {
			m.server.mu.Lock()
			m.err = fmt.Errorf("read response body: %w", err)
			m.server.mu.Unlock()
			m.server.logger.Error("mock response failed", zap.String("mock", m.String()), zap.Error(err))
			// Closes the connection without a response.
			panic(http.ErrAbortHandler)
		}
		body = data
	}

	for name, values := range m.headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(m.status)
	_, _ = w.Write(body)
}
