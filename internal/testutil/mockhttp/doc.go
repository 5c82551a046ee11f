// Package mockhttp provides a mock HTTP server for tests.
//
// Endpoints are described with Mock, activated with Create, and checked with
// Verify or Assert. Requests that match no active mock receive 501 Not
// Implemented (see WithDefaultStatus).
//
// # Basic Usage
//
//	srv := mockhttp.NewServer()
//	defer srv.Close()
//
//	m := srv.Mock("POST", "/api/upload").
//		WithStatus(200).
//		WithHeader("content-type", "application/json").
//		WithBody(`{"id":42}`).
//		Expect(1).
//		Create()
//	defer m.Remove()
//
//	// ... point the client under test at srv.URL() ...
//
//	m.Assert(t)
//
// # Matching
//
// Paths match exactly, or by prefix with a trailing "*". Route templates such
// as "/api/0/projects/{org}/{project}/" are supported. A "?query" suffix must
// equal the raw query string.
//
// Bodies and headers are matched with a Matcher:
//
//	srv.Mock("POST", "/api/items").
//		MatchHeader("Authorization", mockhttp.Regex(`^Bearer `)).
//		MatchBody(mockhttp.PartialJSON(map[string]any{"name": "widget"})).
//		Create()
//
// # Expectations
//
// A mock expects exactly one request unless Expect or ExpectAtLeast says
// otherwise. Expectations are only checked by Verify and Assert.
//
// # Request Capture
//
// Every request is captured, matched or not:
//
//	req := srv.Requests().Last()
//	if req.Method != "POST" {
//		t.Errorf("expected POST, got %s", req.Method)
//	}
package mockhttp
