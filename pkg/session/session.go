// Package session derives the authenticated flag and identity from persisted
// credentials and changes them on login and logout.
package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/agendacontatos/agenda.go/pkg/apierror"
	"github.com/agendacontatos/agenda.go/pkg/connection"
	"github.com/agendacontatos/agenda.go/pkg/constants"
	"github.com/agendacontatos/agenda.go/pkg/credentials"
	"github.com/buger/jsonparser"
	"github.com/rs/zerolog"
)

const LoginPath = "/auth/login"

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type State struct {
	mu            sync.RWMutex
	authenticated bool
	identity      string

	store  credentials.Store
	conn   connection.Connection
	logger zerolog.Logger
}

type Option func(*State)

func WithLogger(l zerolog.Logger) Option {
	return func(s *State) { s.logger = l }
}

// New returns an unauthenticated State. Call CheckSession to pick up
// credentials persisted by an earlier run.
func New(store credentials.Store, conn connection.Connection, opts ...Option) *State {
	s := &State{store: store, conn: conn, logger: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *State) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// Identity returns the logged in username, if any.
func (s *State) Identity() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.authenticated
}

// Token returns the persisted bearer token, or "" when there is none.
func (s *State) Token(ctx context.Context) string {
	tok, err := s.store.Get(ctx, constants.AuthTokenKey)
	if err != nil {
		if !errors.Is(err, credentials.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("failed to read auth token")
		}
		return ""
	}
	return strings.TrimSpace(tok)
}

// CheckSession derives the flags from the store alone. The session is
// authenticated only when both a token and an identity are persisted.
func (s *State) CheckSession(ctx context.Context) {
	token := s.Token(ctx)
	identity, err := s.store.Get(ctx, constants.IdentityKey)
	if err != nil && !errors.Is(err, credentials.ErrNotFound) {
		s.logger.Warn().Err(err).Msg("failed to read identity")
	}
	identity = strings.TrimSpace(identity)

	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" || identity == "" {
		s.authenticated, s.identity = false, ""
		return
	}
	s.authenticated, s.identity = true, identity
}

// Login exchanges creds for a token, persists it with the identity and
// marks the session authenticated. A blank username fails before anything
// changes; any later failure leaves the session logged out.
func (s *State) Login(ctx context.Context, creds Credentials) apierror.Outcome[string] {
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" {
		return apierror.Fail[string](apierror.Invalid("Username is required."))
	}

	res, err := s.conn.Send(ctx, http.MethodPost, LoginPath, creds)
	if err != nil {
		return s.fail(ctx, err)
	}

	token := firstString(res.Data, []string{"token"}, []string{"accessToken"}, []string{"access_token"})
	if token == "" {
		return s.fail(ctx, constants.ErrMissingToken)
	}
	identity := firstString(res.Data, []string{"username"}, []string{"user", "username"})
	if identity == "" {
		identity = creds.Username
	}

	if err := s.store.Set(ctx, constants.AuthTokenKey, token); err != nil {
		return s.fail(ctx, err)
	}
	if err := s.store.Set(ctx, constants.IdentityKey, identity); err != nil {
		return s.fail(ctx, err)
	}

	s.mu.Lock()
	s.authenticated, s.identity = true, identity
	s.mu.Unlock()

	s.logger.Info().Str("identity", identity).Msg("logged in")
	return apierror.Succeed(identity)
}

func (s *State) fail(ctx context.Context, err error) apierror.Outcome[string] {
	out := apierror.Fail[string](err)
	s.logger.Warn().Err(err).Str("kind", string(out.Err.Kind)).Msg("login failed")
	s.clear(ctx)
	return out
}

// Logout forgets the persisted credentials and resets the flags. It cannot
// fail; store errors are only logged.
func (s *State) Logout(ctx context.Context) {
	s.clear(ctx)
	s.logger.Info().Msg("logged out")
}

func (s *State) clear(ctx context.Context) {
	for _, key := range []string{constants.AuthTokenKey, constants.IdentityKey} {
		if err := s.store.Remove(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to remove credential")
		}
	}

	s.mu.Lock()
	s.authenticated, s.identity = false, ""
	s.mu.Unlock()
}

func firstString(data []byte, paths ...[]string) string {
	for _, p := range paths {
		v, err := jsonparser.GetString(data, p...)
		if err == nil && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
