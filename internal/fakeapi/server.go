// Package fakeapi provides a fake contacts service for tests.
//
// It serves the contacts REST API under /api, plus the same API over the
// websocket frame protocol at /api/ws, from an in-memory contact set. Stub
// responses can override any route, and failure configurations can delay a
// request or drop the connection before anything is answered.
//
// We don't ship a binary for it; it is used as a library by integration tests.
package fakeapi

import (
	"bytes"
	"crypto/rand"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/agendacontatos/agenda.go/internal/codec"
	"github.com/agendacontatos/agenda.go/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Prefix is where the API is mounted.
const Prefix = "/api"

func cryptoRandFloat64() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(1<<53))
	return float64(n.Int64()) / float64(1<<53)
}

func cryptoRandInt64(rMax int64) int64 {
	if rMax <= 0 {
		return 0
	}
	n, _ := rand.Int(rand.Reader, big.NewInt(rMax))
	return n.Int64()
}

// FailureType represents the type of failure to inject during request processing
type FailureType string

const (
	// FailureNone indicates no failure injection
	FailureNone FailureType = "none"
	// FailureRequestDelay delays before processing the request
	FailureRequestDelay FailureType = "request_delay"
	// FailureDropConnection closes the connection without answering
	FailureDropConnection FailureType = "drop_connection"
	// FailureGarbage answers 200 with a body that is not JSON
	FailureGarbage FailureType = "garbage"
)

// FailureConfig defines how and when to inject a specific failure type
type FailureConfig struct {
	Type FailureType
	// Probability of triggering this failure (0.0 to 1.0)
	Probability float64
	// MinDelay and MaxDelay bound FailureRequestDelay
	MinDelay time.Duration
	MaxDelay time.Duration
}

// RequestMatcher selects requests by method and path, relative to Prefix.
// An empty Method matches any method.
type RequestMatcher struct {
	Method string
	Path   string
	// Matcher optionally inspects the raw request body.
	Matcher func(body []byte) bool
}

func (m RequestMatcher) matches(method, path string, body []byte) bool {
	if m.Method != "" && m.Method != method {
		return false
	}
	if m.Path != path {
		return false
	}
	return m.Matcher == nil || m.Matcher(body)
}

// StubResponse answers matching requests with Status and Body instead of the
// built-in handlers.
type StubResponse struct {
	Matcher  RequestMatcher
	Status   int
	Body     string
	Failures []FailureConfig
}

// Request is one request the server received.
type Request struct {
	Method        string
	Path          string
	Authorization string
	Body          []byte
}

type Server struct {
	mu             sync.RWMutex
	contacts       map[models.ID]models.Contact
	order          []models.ID
	users          map[string]string
	tokens         map[string]string
	stubResponses  []StubResponse
	globalFailures []FailureConfig
	requests       []Request

	// RequireAuth makes the contacts routes answer 401 without a token
	// issued by /auth/login.
	RequireAuth bool
	// Envelope, when set, nests the contact list under this key.
	Envelope string

	codec    codec.Codec
	router   chi.Router
	upgrader websocket.Upgrader
	http     *httptest.Server
}

// NewServer creates a fake contacts service. Call Start to serve it.
func NewServer() *Server {
	s := &Server{
		contacts: make(map[models.ID]models.Contact),
		users:    make(map[string]string),
		tokens:   make(map[string]string),
		codec:    codec.NewJSON(),
	}
	s.router = s.routes()
	return s
}

// Start serves on a random local port.
func (s *Server) Start() {
	s.http = httptest.NewServer(s)
}

// StartTLS serves over HTTPS with a self-signed certificate. Only Client
// trusts it.
func (s *Server) StartTLS() {
	s.http = httptest.NewTLSServer(s)
}

// Client returns an *http.Client configured for the running server.
func (s *Server) Client() *http.Client {
	return s.http.Client()
}

func (s *Server) Close() {
	if s.http != nil {
		s.http.CloseClientConnections()
		s.http.Close()
	}
}

// URL is the API base URL, e.g. http://127.0.0.1:1234/api.
func (s *Server) URL() string {
	return s.http.URL + Prefix
}

// AddUser registers a login. Without any user, every non-blank username is
// accepted with any password.
func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

// Seed adds contacts as if they had been created.
func (s *Server) Seed(contacts ...models.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range contacts {
		if _, ok := s.contacts[c.ID]; !ok {
			s.order = append(s.order, c.ID)
		}
		s.contacts[c.ID] = c
	}
}

// Contacts lists the stored contacts in creation order.
func (s *Server) Contacts() []models.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list()
}

// AddStubResponse adds a stub. Stubs are matched in the order they were added.
func (s *Server) AddStubResponse(stub StubResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubResponses = append(s.stubResponses, stub)
}

// ClearStubResponses removes every stub.
func (s *Server) ClearStubResponses() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubResponses = nil
}

// SetGlobalFailures sets failure configurations that apply to all requests.
// These are checked before stub-specific failures.
func (s *Server) SetGlobalFailures(failures []FailureConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globalFailures = failures
}

// Requests returns what the server received so far, websocket frames included.
func (s *Server) Requests() []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Request(nil), s.requests...)
}

// ServeHTTP applies stubs and failures, then routes. A dropped request
// hijacks and closes the connection.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, func() {
		hj, ok := w.(http.Hijacker)
		if !ok {
			panic(http.ErrAbortHandler)
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			panic(http.ErrAbortHandler)
		}
		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.SetLinger(0)
		}
		conn.Close()
	})
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, drop func()) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	path := strings.TrimPrefix(r.URL.Path, Prefix)

	s.mu.Lock()
	if path != "/ws" {
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          path,
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
		})
	}
	globalFailures := s.globalFailures
	var matchedStub *StubResponse
	for i := range s.stubResponses {
		if s.stubResponses[i].Matcher.matches(r.Method, path, body) {
			stub := s.stubResponses[i]
			matchedStub = &stub
			break
		}
	}
	s.mu.Unlock()

	if path == "/ws" {
		s.router.ServeHTTP(w, r)
		return
	}

	failures := globalFailures
	if matchedStub != nil {
		failures = append(append([]FailureConfig(nil), globalFailures...), matchedStub.Failures...)
	}
	for _, failure := range failures {
		if !shouldTriggerFailure(failure.Probability) {
			continue
		}
		switch failure.Type {
		case FailureRequestDelay:
			time.Sleep(randomDuration(failure.MinDelay, failure.MaxDelay))
		case FailureDropConnection:
			drop()
			return
		case FailureGarbage:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("\x00\x01not json"))
			return
		}
	}

	if matchedStub != nil {
		status := matchedStub.Status
		if status == 0 {
			status = http.StatusOK
		}
		if matchedStub.Body != "" {
			w.Header().Set("Content-Type", s.codec.ContentType())
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, matchedStub.Body)
		return
	}

	s.router.ServeHTTP(w, r)
}

func shouldTriggerFailure(probability float64) bool {
	if probability <= 0 {
		return false
	}
	if probability >= 1 {
		return true
	}
	return cryptoRandFloat64() < probability
}

func randomDuration(dMin, dMax time.Duration) time.Duration {
	if dMin >= dMax {
		return dMin
	}
	return dMin + time.Duration(cryptoRandInt64(int64(dMax-dMin)))
}

// list must be called with mu held.
func (s *Server) list() []models.Contact {
	out := make([]models.Contact, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.contacts[id])
	}
	return out
}

func (s *Server) newID() models.ID {
	return models.ID(uuid.NewString())
}

func (s *Server) issueToken(username string) string {
	token := "tok-" + uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = username
	s.mu.Unlock()
	return token
}

func (s *Server) tokenValid(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tokens[token]
	return ok
}

func (s *Server) checkPassword(username, password string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.users) == 0 {
		return true
	}
	want, ok := s.users[username]
	return ok && want == password
}

var _ http.Handler = (*Server)(nil)
