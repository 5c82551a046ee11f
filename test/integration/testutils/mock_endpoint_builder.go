package testutils

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/JakeShirley/sentry-cli/internal/testutil/mockhttp"
)

// ResponsesDir is the fixture root for WithResponseFile, relative to the
// directory of the test package.
const ResponsesDir = "_responses/"

type headerMatcher struct {
	key     string
	matcher mockhttp.Matcher
}

// MockEndpointBuilder collects the configuration of one mock endpoint.
// Nothing is registered until the builder is passed to MockEndpoint.
//
// Configuration methods modify the builder and return it for chaining. A
// builder belongs to a single chain: do not share it, and do not configure it
// after MockEndpoint has consumed it.
type MockEndpointBuilder struct {
	method string
	path   string
	status int

	body     string
	bodyFile string

	matcher        mockhttp.Matcher
	headerMatchers []headerMatcher

	hits      int
	atLeast   bool
	hasExpect bool

	consumed bool
}

// New creates a builder for an endpoint that answers method and path with
// status and a "content-type: application/json" header. Method, path and
// status are passed through to the mock server unvalidated.
func New(method, path string, status int) *MockEndpointBuilder {
	return &MockEndpointBuilder{
		method: method,
		path:   path,
		status: status,
	}
}

// WithResponseBody sets the response body. It replaces a body set earlier by
// WithResponseBody or WithResponseFile.
func (b *MockEndpointBuilder) WithResponseBody(body string) *MockEndpointBuilder {
	b.mustBeOpen()
	b.body = body
	b.bodyFile = ""
	return b
}

// WithResponseFile serves the file ResponsesDir+path as the response body. It
// replaces a body set earlier by WithResponseBody or WithResponseFile.
//
// The file is read when a request is served. If it cannot be read the
// connection is dropped and asserting the mock reports the error.
func (b *MockEndpointBuilder) WithResponseFile(path string) *MockEndpointBuilder {
	b.mustBeOpen()
	b.bodyFile = ResponsesDir + path
	b.body = ""
	return b
}

// WithMatcher makes the endpoint respond only to requests whose body
// satisfies matcher. Other requests fall through to the server's default
// response.
func (b *MockEndpointBuilder) WithMatcher(matcher mockhttp.Matcher) *MockEndpointBuilder {
	b.mustBeOpen()
	b.matcher = matcher
	return b
}

// WithHeaderMatcher makes the endpoint respond only to requests whose key
// header satisfies matcher. All header matchers must pass, including several
// for the same key.
func (b *MockEndpointBuilder) WithHeaderMatcher(key string, matcher mockhttp.Matcher) *MockEndpointBuilder {
	b.mustBeOpen()
	b.headerMatchers = append(b.headerMatchers, headerMatcher{key: key, matcher: matcher})
	return b
}

// ExpectAtLeast expects the endpoint to be hit hits times or more. It
// replaces any earlier expectation and is checked when the mock is asserted.
func (b *MockEndpointBuilder) ExpectAtLeast(hits int) *MockEndpointBuilder {
	b.setExpectation(hits, true)
	return b
}

// Expect expects the endpoint to be hit exactly hits times. It replaces any
// earlier expectation and is checked when the mock is asserted.
func (b *MockEndpointBuilder) Expect(hits int) *MockEndpointBuilder {
	b.setExpectation(hits, false)
	return b
}

func (b *MockEndpointBuilder) setExpectation(hits int, atLeast bool) {
	b.mustBeOpen()
	if hits < 0 {
		panic("testutils: negative hit count")
	}
	b.hits, b.atLeast, b.hasExpect = hits, atLeast, true
}

func (b *MockEndpointBuilder) mustBeOpen() {
	if b.consumed {
		panic("testutils: MockEndpointBuilder used after MockEndpoint")
	}
}

// MockEndpoint registers the endpoint described by b on srv and returns the
// live mock. The mock intercepts matching requests until the test and its
// subtests finish, when it is removed even if the test failed or panicked.
// Without Expect or ExpectAtLeast the mock expects exactly one hit.
//
// MockEndpoint consumes b; configuring it afterwards panics.
//
//	mock := testutils.MockEndpoint(t, srv,
//		testutils.New("POST", "/api/upload", 200).
//			WithResponseBody(`{"id":42}`).
//			Expect(1))
//	// exercise the client
//	mock.Assert(t)
func MockEndpoint(t testing.TB, srv *mockhttp.Server, b *MockEndpointBuilder) *mockhttp.Mock {
	t.Helper()
	b.mustBeOpen()
	b.consumed = true

	m := srv.Mock(b.method, b.path).
		WithStatus(b.status).
		WithHeader("content-type", "application/json")

	if b.bodyFile != "" {
		m.WithBodyFromFile(b.bodyFile)
	} else {
		m.WithBody(b.body)
	}
	if b.matcher != nil {
		m.MatchBody(b.matcher)
	}
	for _, hm := range b.headerMatchers {
		m.MatchHeader(hm.key, hm.matcher)
	}
	if b.hasExpect {
		if b.atLeast {
			m.ExpectAtLeast(b.hits)
		} else {
			m.Expect(b.hits)
		}
	}

	m.Create()
	t.Cleanup(m.Remove)
	return m
}

// NewServer starts a mock server that logs to the test and closes it when the
// test finishes. Unmatched requests are answered with 501 Not Implemented.
func NewServer(t testing.TB, opts ...mockhttp.Option) *mockhttp.Server {
	t.Helper()
	opts = append([]mockhttp.Option{mockhttp.WithLogger(zaptest.NewLogger(t))}, opts...)
	srv := mockhttp.NewServer(opts...)
	t.Cleanup(srv.Close)
	return srv
}
