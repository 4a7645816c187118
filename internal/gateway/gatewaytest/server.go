// Package gatewaytest provides a scripted HTTP backend for testing services
// built on the gateway client.
package gatewaytest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sudo-init-do/efresco/internal/config"
	"github.com/sudo-init-do/efresco/internal/gateway"
)

// Call is one request the server received.
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// JSON decodes the request body into v.
func (c Call) JSON(v any) error { return json.Unmarshal(c.Body, v) }

// HandlerFunc answers a call with a status and a value encoded as JSON.
type HandlerFunc func(c Call) (int, any)

type Server struct {
	t        testing.TB
	srv      *httptest.Server
	mu       sync.Mutex
	handlers map[string]HandlerFunc
	calls    []Call
}

// NewServer starts a backend rooted at /api. Unhandled routes answer 404.
func NewServer(t testing.TB) *Server {
	s := &Server{t: t, handlers: map[string]HandlerFunc{}}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.srv.Close)
	return s
}

// Handle registers h for "METHOD path", path relative to /api.
func (s *Server) Handle(route string, h HandlerFunc) {
	method, path, _ := strings.Cut(route, " ")
	s.mu.Lock()
	s.handlers[strings.ToUpper(method)+" "+strings.Trim(path, "/")] = h
	s.mu.Unlock()
}

// Reply registers a fixed answer.
func (s *Server) Reply(route string, status int, body any) {
	s.Handle(route, func(Call) (int, any) { return status, body })
}

func (s *Server) URL() string { return s.srv.URL + "/api" }

// Client returns a gateway client pointed at the server, with fast wake-up
// settings and no fallbacks.
func (s *Server) Client(opts ...gateway.Option) *gateway.Client {
	return gateway.New(config.APIConfig{
		URL:         s.URL(),
		Timeout:     2 * time.Second,
		WakeRetries: 1,
		WakeBackoff: time.Millisecond,
	}, opts...)
}

// Calls returns the requests received so far, health probes excluded.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Last returns the most recent call.
func (s *Server) Last() Call {
	calls := s.Calls()
	if len(calls) == 0 {
		s.t.Fatalf("gatewaytest: no calls recorded")
	}
	return calls[len(calls)-1]
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api"), "/")
	if path == "health" {
		w.WriteHeader(http.StatusOK)
		return
	}

	body, _ := io.ReadAll(r.Body)
	call := Call{Method: r.Method, Path: path, Query: r.URL.Query(), Header: r.Header.Clone(), Body: body}

	s.mu.Lock()
	s.calls = append(s.calls, call)
	h, ok := s.handlers[r.Method+" "+path]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"not found"}`)
		return
	}
	status, out := h(call)
	w.WriteHeader(status)
	if out != nil {
		_ = json.NewEncoder(w).Encode(out)
	}
}
