package mockhttp

import (
	"encoding/json"
	"net/http"
	"sync"
)

// Capture stores received HTTP requests for test assertions.
type Capture struct {
	mu       sync.Mutex
	requests []CapturedRequest
}

// CapturedRequest holds data from a received HTTP request.
type CapturedRequest struct {
	Method  string
	Path    string
	Headers http.Header
	Body    []byte
	Query   map[string][]string
	// Matched is false when no mock intercepted the request.
	Matched bool
}

func (c *Capture) record(r *http.Request, body []byte, matched bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, CapturedRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		Headers: r.Header.Clone(),
		Body:    body,
		Query:   r.URL.Query(),
		Matched: matched,
	})
}

// Count returns the number of captured requests.
func (c *Capture) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// Last returns the most recent captured request, or nil if none.
func (c *Capture) Last() *CapturedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return nil
	}
	r := c.requests[len(c.requests)-1]
	return &r
}

// All returns all captured requests.
func (c *Capture) All() []CapturedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]CapturedRequest, len(c.requests))
	copy(result, c.requests)
	return result
}

// Unmatched returns the requests no mock intercepted.
func (c *Capture) Unmatched() []CapturedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []CapturedRequest
	for _, r := range c.requests {
		if !r.Matched {
			result = append(result, r)
		}
	}
	return result
}

// Clear removes all captured requests.
func (c *Capture) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = nil
}

// BodyJSON decodes the request body as JSON into v.
func (r *CapturedRequest) BodyJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}
