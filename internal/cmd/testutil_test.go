// Test helpers for running commands against a mock API.
//
// A typical test registers routes, points the CLI at the mock server and
// captures what the command printed:
//
//	handler := newRouteHandler().
//	    On("GET", "/api/stats", jsonResponse(200, `{"today_usd": 1.5}`))
//	setupTestEnvWithHandler(t, handler)
//
//	output := captureStdout(t, func() {
//	    if err := Execute(context.Background(), []string{"stats"}); err != nil {
//	        t.Fatalf("stats failed: %v", err)
//	    }
//	})
package cmd

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
)

// captureStdout executes a function and captures its stdout output.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(&buf, r)
		close(done)
	}()

	fn()

	_ = w.Close()
	os.Stdout = old
	<-done
	return buf.String()
}

// captureStderr executes a function and captures its stderr output.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(&buf, r)
		close(done)
	}()

	fn()

	_ = w.Close()
	os.Stderr = old
	<-done
	return buf.String()
}

// captureOutput captures stdout and stderr of one run.
func captureOutput(t *testing.T, fn func()) (stdout, stderr string) {
	t.Helper()
	stderr = captureStderr(t, func() {
		stdout = captureStdout(t, fn)
	})
	return stdout, stderr
}

type testEnv struct {
	server *httptest.Server
}

// setupTestEnvWithHandler starts a mock API and points the CLI at it with a
// test token and text output. Everything is restored on cleanup.
func setupTestEnvWithHandler(t *testing.T, handler http.Handler) *testEnv {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("COSTLENS_API_URL", server.URL)
	t.Setenv("COSTLENS_TOKEN", "test-token")
	t.Setenv("COSTLENS_OUTPUT", "text")
	t.Setenv("COSTLENS_EXPORT_DIR", t.TempDir())

	return &testEnv{server: server}
}

// jsonResponse returns a handler that writes body with the given status.
func jsonResponse(statusCode int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_, _ = w.Write([]byte(body))
	}
}

// routeHandler routes by exact "METHOD PATH" and records every request.
// Unmatched routes get 404.
type routeHandler struct {
	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []*http.Request
}

func newRouteHandler() *routeHandler {
	return &routeHandler{routes: make(map[string]http.HandlerFunc)}
}

// On registers a handler for the given method and path.
func (rh *routeHandler) On(method, path string, handler http.HandlerFunc) *routeHandler {
	rh.routes[method+" "+path] = handler
	return rh
}

func (rh *routeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rh.mu.Lock()
	rh.requests = append(rh.requests, r.Clone(r.Context()))
	rh.mu.Unlock()

	if handler, ok := rh.routes[r.Method+" "+r.URL.Path]; ok {
		handler(w, r)
		return
	}
	http.NotFound(w, r)
}

// last returns the most recent request for method and path, or nil.
func (rh *routeHandler) last(method, path string) *http.Request {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	for i := len(rh.requests) - 1; i >= 0; i-- {
		if r := rh.requests[i]; r.Method == method && r.URL.Path == path {
			return r
		}
	}
	return nil
}

// count returns how many requests hit method and path.
func (rh *routeHandler) count(method, path string) int {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	n := 0
	for _, r := range rh.requests {
		if r.Method == method && r.URL.Path == path {
			n++
		}
	}
	return n
}
