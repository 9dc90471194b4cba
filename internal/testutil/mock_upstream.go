// Package testutil provides testing utilities for the cross-reference client.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// ClustersPath is the default path of the cluster collection.
const ClustersPath = "/v1/clusters"

// MockResponse defines the behavior for a mock upstream response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockUpstream is a configurable mock cluster provider for testing.
type MockUpstream struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	sequence map[string][]MockResponse

	// Tracking
	requestCount      int
	pathCount         map[string]int
	lastRequestHeader http.Header
}

// NewMockUpstream starts a new mock upstream server.
func NewMockUpstream() *MockUpstream {
	mock := &MockUpstream{
		handlers:  make(map[string]http.HandlerFunc),
		sequence:  make(map[string][]MockResponse),
		pathCount: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCount[r.URL.Path]++
		mock.lastRequestHeader = r.Header.Clone()

		// Queued responses are served first, the last one repeats
		if queue := mock.sequence[r.URL.Path]; len(queue) > 0 {
			resp := queue[0]
			if len(queue) > 1 {
				mock.sequence[r.URL.Path] = queue[1:]
			}
			mock.mu.Unlock()
			writeResponse(w, r, resp)
			return
		}

		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		http.NotFound(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockUpstream) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockUpstream) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.pathCount = make(map[string]int)
	m.lastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockUpstream) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockUpstream) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, r, resp)
	})
}

// SetSequence serves responses for path in order. The last response is
// repeated once the queue is drained.
func (m *MockUpstream) SetSequence(path string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence[path] = responses
}

// RequestCount returns the number of requests made to the server.
func (m *MockUpstream) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PathCount returns the number of requests made to path.
func (m *MockUpstream) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCount[path]
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockUpstream) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

func writeResponse(w http.ResponseWriter, r *http.Request, resp MockResponse) {
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

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewClustersResponse creates a 200 OK response carrying body as JSON.
func NewClustersResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewCacheableResponse creates a 200 OK response with a Cache-Control max-age.
func NewCacheableResponse(body string, maxAge time.Duration) MockResponse {
	resp := NewClustersResponse(body)
	resp.Headers["Cache-Control"] = "public, max-age=" + strconv.Itoa(int(maxAge.Seconds()))
	return resp
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     "30",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// SampleClusters is a small heterogeneous payload: three clusters, one of
// which references 2:247 through a composite id, plus one cluster without id.
const SampleClusters = `[
  {
    "id": "c-saul",
    "summary": "Saul (Talut) appointed king over Israel",
    "similarity": 0.91,
    "verses": [
      {"source": "Quran", "ref": "al-baqarah:247", "text": "Allah has appointed Talut as a king over you"},
      {"source": "bible", "ref": "1 Samuel:10:24", "text": "See ye him whom the LORD hath chosen"}
    ]
  },
  {
    "id": "c-flood",
    "summary": "The flood of Noah",
    "similarity": "0.84",
    "verses": [
      {"scripture": "QURAN", "chapter": 11, "verse": "40", "text": "the oven overflowed"},
      {"tag": "torah", "book": "Genesis", "chapter_number": 7, "verse_number": 11, "content": "the fountains of the great deep"}
    ]
  },
  {
    "id": 3,
    "summary": "Psalms given to David",
    "similarity": 1.7,
    "verses": [
      {"source": "koran", "key": "4:163", "text": "to David We gave the Zabur"},
      {"source": "psalms", "ref": "Psalms:1:1", "text": "Blessed is the man"},
      {"source": "vedas", "ref": "Rigveda:1:1", "text": "dropped"}
    ]
  },
  {
    "summary": "cluster without id is dropped",
    "verses": []
  }
]`
