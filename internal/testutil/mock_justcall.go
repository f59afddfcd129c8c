// Package testutil provides testing utilities for the JustCall client.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock JustCall endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request as seen by the mock server.
type RecordedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Header http.Header
	Body   []byte
}

// JSONBody decodes the recorded body into a map. Returns nil for an empty body.
func (r RecordedRequest) JSONBody() map[string]any {
	if len(r.Body) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(r.Body, &out); err != nil {
		return nil
	}
	return out
}

// MockJustCall is a configurable mock JustCall API server for testing.
type MockJustCall struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewMockJustCall creates a new mock JustCall server.
func NewMockJustCall() *MockJustCall {
	mock := &MockJustCall{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		handler, exists := mock.handlers[r.Method+" "+r.URL.Path]
		if !exists {
			handler, exists = mock.handlers[r.URL.Path]
		}
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockJustCall) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockJustCall) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockJustCall) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// SetHandler sets a custom handler for a path, regardless of method.
func (m *MockJustCall) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetRoute sets a custom handler for a method and path.
func (m *MockJustCall) SetRoute(method, path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[method+" "+path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockJustCall) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, resp.Handler())
}

// SetSequence serves the given responses in order for a path; the last one repeats.
func (m *MockJustCall) SetSequence(path string, responses ...MockResponse) {
	var (
		mu sync.Mutex
		n  int
	)
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[min(n, len(responses)-1)]
		n++
		mu.Unlock()
		resp.Handler()(w, r)
	})
}

// Handler returns an http.HandlerFunc serving the response.
func (resp MockResponse) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			_, _ = w.Write([]byte(resp.Body))
		}
	}
}

// Requests returns a copy of the recorded requests.
func (m *MockJustCall) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns the number of requests made to the server.
func (m *MockJustCall) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// PathCount returns the number of requests made to a path.
func (m *MockJustCall) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

// LastRequest returns the most recent request. ok is false if none was made.
func (m *MockJustCall) LastRequest() (RecordedRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return RecordedRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}

// defaultHandler answers with an empty successful list.
func (m *MockJustCall) defaultHandler(w http.ResponseWriter, _ *http.Request) {
	setRateLimitHeaders(w, 60, 59)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"success","data":[]}`))
}

func setRateLimitHeaders(w http.ResponseWriter, limit, remaining int) {
	w.Header().Set("X-Rate-Limit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-Rate-Limit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-Rate-Limit-Reset", "60")
}

// NewJSONResponse creates a 200 OK response carrying data.
func NewJSONResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"X-Rate-Limit-Limit":     "60",
			"X-Rate-Limit-Remaining": "59",
			"X-Rate-Limit-Reset":     "60",
			"Content-Type":           "application/json",
		},
	}
}

// NewErrorResponse creates an error response in JustCall's {"status","message"} shape.
func NewErrorResponse(status int, message string) MockResponse {
	body, _ := json.Marshal(map[string]string{"status": "error", "message": message})
	return MockResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter int) MockResponse {
	resp := NewErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded")
	resp.Headers["Retry-After"] = strconv.Itoa(retryAfter)
	return resp
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return NewErrorResponse(http.StatusInternalServerError, "Internal server error")
}

// PageParam reads an integer paging parameter from the query string or the JSON body.
// JustCall v1 endpoints take paging in the body, v2.1 endpoints in the query.
func PageParam(r *http.Request, key string) (int, bool) {
	if v := r.URL.Query().Get(key); v != "" {
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	if r.Body == nil {
		return 0, false
	}
	body, err := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return 0, false
	}
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	case float64:
		return int(v), true
	}
	return 0, false
}

// NewPagedHandler serves pages[page-start] under itemsKey for the requested page.
// Pages past the end are empty. When total >= 0 it is reported in a "total" field.
func NewPagedHandler(pages [][]map[string]any, start int, itemsKey string, total int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, ok := PageParam(r, "page")
		if !ok {
			page = start
		}
		items := []map[string]any{}
		if idx := page - start; idx >= 0 && idx < len(pages) {
			items = pages[idx]
		}

		resp := map[string]any{
			"status": "success",
			"count":  len(items),
			itemsKey: items,
		}
		if total >= 0 {
			resp["total"] = total
		}
		writeJSON(w, resp)
	}
}

// NewLastIDHandler serves ids in descending order, per_page at a time, starting
// below the id given in cursorKey.
func NewLastIDHandler(ids []int, cursorKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		perPage, ok := PageParam(r, "per_page")
		if !ok || perPage <= 0 {
			perPage = 20
		}
		last, hasLast := PageParam(r, cursorKey)

		items := []map[string]any{}
		for _, id := range ids {
			if hasLast && id >= last {
				continue
			}
			if len(items) == perPage {
				break
			}
			items = append(items, map[string]any{"id": id})
		}

		writeJSON(w, map[string]any{
			"status": "success",
			"count":  len(items),
			"data":   items,
		})
	}
}

// Items builds n records with sequential ids starting at from.
func Items(from, n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{"id": from + i, "name": fmt.Sprintf("item-%d", from+i)}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	setRateLimitHeaders(w, 60, 59)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
