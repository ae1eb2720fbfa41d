package session

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/agendacontatos/agenda.go/pkg/apierror"
	"github.com/agendacontatos/agenda.go/pkg/connection"
	"github.com/agendacontatos/agenda.go/pkg/constants"
	"github.com/agendacontatos/agenda.go/pkg/credentials"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubConn answers every Send with res or err.
type stubConn struct {
	res   *connection.Response
	err   error
	calls int
	body  any
	path  string
}

func (c *stubConn) Connect(context.Context) error { return nil }
func (c *stubConn) Close(context.Context) error   { return nil }
func (c *stubConn) Send(_ context.Context, _, path string, body any) (*connection.Response, error) {
	c.calls++
	c.path, c.body = path, body
	return c.res, c.err
}

func ok(body string) *stubConn {
	return &stubConn{res: &connection.Response{Status: http.StatusOK, Data: []byte(body)}}
}

// failingStore errors on every call.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, error) { return "", errors.New("disk gone") }
func (failingStore) Set(context.Context, string, string) error   { return errors.New("disk gone") }
func (failingStore) Remove(context.Context, string) error        { return errors.New("disk gone") }

func TestCheckSession(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		token    string
		identity string
		authed   bool
	}{
		{"both present", "tok", "ana", true},
		{"no token", "", "ana", false},
		{"no identity", "tok", "", false},
		{"blank token", "  ", "ana", false},
		{"neither", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := credentials.NewMemory()
			if tc.token != "" {
				require.NoError(t, store.Set(ctx, constants.AuthTokenKey, tc.token))
			}
			if tc.identity != "" {
				require.NoError(t, store.Set(ctx, constants.IdentityKey, tc.identity))
			}

			s := New(store, &stubConn{})
			s.CheckSession(ctx)

			assert.Equal(t, tc.authed, s.IsAuthenticated())
			id, ok := s.Identity()
			assert.Equal(t, tc.authed, ok)
			if tc.authed {
				assert.Equal(t, tc.identity, id)
			} else {
				assert.Empty(t, id)
			}
		})
	}
}

func TestCheckSessionStoreFailure(t *testing.T) {
	s := New(failingStore{}, &stubConn{})
	s.CheckSession(context.Background())
	assert.False(t, s.IsAuthenticated())
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	store := credentials.NewMemory()
	conn := ok(`{"token":"tok-1","user":{"username":"ana.silva"}}`)
	s := New(store, conn)

	out := s.Login(ctx, Credentials{Username: "  ana ", Password: "secret"})
	require.True(t, out.Success)
	assert.Equal(t, "ana.silva", out.Value)
	assert.Equal(t, LoginPath, conn.path)
	b, err := json.Marshal(conn.body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"ana","password":"secret"}`, string(b))

	assert.True(t, s.IsAuthenticated())
	tok, err := store.Get(ctx, constants.AuthTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, "tok-1", s.Token(ctx))

	// a fresh State over the same store sees the session
	fresh := New(store, conn)
	fresh.CheckSession(ctx)
	id, ok := fresh.Identity()
	assert.True(t, ok)
	assert.Equal(t, "ana.silva", id)
}

func TestLoginResponseShapes(t *testing.T) {
	cases := map[string]struct {
		body     string
		identity string
	}{
		"accessToken":        {`{"accessToken":"t"}`, "ana"},
		"top-level username": {`{"token":"t","username":"ANA"}`, "ANA"},
		"snake case":         {`{"access_token":"t"}`, "ana"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s := New(credentials.NewMemory(), ok(tc.body))
			out := s.Login(context.Background(), Credentials{Username: "ana"})
			require.True(t, out.Success)
			assert.Equal(t, tc.identity, out.Value)
		})
	}
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("blank username", func(t *testing.T) {
		conn := ok(`{"token":"t"}`)
		out := New(credentials.NewMemory(), conn).Login(ctx, Credentials{Username: "   "})
		require.False(t, out.Success)
		assert.Equal(t, apierror.KindValidation, out.Err.Kind)
		assert.Zero(t, conn.calls)
	})

	t.Run("blank username keeps existing session", func(t *testing.T) {
		store := credentials.NewMemory()
		s := New(store, ok(`{"token":"t"}`))
		require.True(t, s.Login(ctx, Credentials{Username: "ana"}).Success)

		out := s.Login(ctx, Credentials{Username: " "})
		require.False(t, out.Success)
		assert.Equal(t, apierror.KindValidation, out.Err.Kind)
		assert.True(t, s.IsAuthenticated())
		tok, err := store.Get(ctx, constants.AuthTokenKey)
		require.NoError(t, err)
		assert.Equal(t, "t", tok)
	})

	t.Run("rejected", func(t *testing.T) {
		conn := &stubConn{err: &connection.Error{Response: &connection.Response{
			Status: http.StatusUnauthorized,
			Data:   []byte(`{"message":"invalid credentials"}`),
		}}}
		store := credentials.NewMemory()
		s := New(store, conn)
		out := s.Login(ctx, Credentials{Username: "ana", Password: "x"})
		require.False(t, out.Success)
		assert.Equal(t, apierror.KindServer, out.Err.Kind)
		assert.Equal(t, "invalid credentials", out.Err.Message)
		assert.False(t, s.IsAuthenticated())
		_, err := store.Get(ctx, constants.AuthTokenKey)
		assert.ErrorIs(t, err, credentials.ErrNotFound)
	})

	t.Run("no response", func(t *testing.T) {
		conn := &stubConn{err: &connection.Error{Err: errors.New("refused")}}
		out := New(credentials.NewMemory(), conn).Login(ctx, Credentials{Username: "ana"})
		assert.Equal(t, apierror.KindNetwork, out.Err.Kind)
	})

	t.Run("no token", func(t *testing.T) {
		out := New(credentials.NewMemory(), ok(`{"username":"ana"}`)).Login(ctx, Credentials{Username: "ana"})
		require.False(t, out.Success)
		assert.Equal(t, apierror.KindUnexpected, out.Err.Kind)
	})

	t.Run("store failure", func(t *testing.T) {
		s := New(failingStore{}, ok(`{"token":"t"}`))
		out := s.Login(ctx, Credentials{Username: "ana"})
		require.False(t, out.Success)
		assert.False(t, s.IsAuthenticated())
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	store := credentials.NewMemory()
	s := New(store, ok(`{"token":"t"}`))
	require.True(t, s.Login(ctx, Credentials{Username: "ana"}).Success)

	s.Logout(ctx)
	assert.False(t, s.IsAuthenticated())
	_, ok := s.Identity()
	assert.False(t, ok)
	_, err := store.Get(ctx, constants.IdentityKey)
	assert.ErrorIs(t, err, credentials.ErrNotFound)

	// store errors do not stop the reset
	broken := New(failingStore{}, &stubConn{})
	broken.mu.Lock()
	broken.authenticated, broken.identity = true, "ana"
	broken.mu.Unlock()
	broken.Logout(ctx)
	assert.False(t, broken.IsAuthenticated())
}

func TestRedirect(t *testing.T) {
	assert.Equal(t, "/login", Redirect(HomeRoute, false))
	assert.Equal(t, "", Redirect(HomeRoute, true))
	assert.Equal(t, "/", Redirect(LoginRoute, true))
	assert.Equal(t, "", Redirect(LoginRoute, false))
	assert.Equal(t, "", Redirect(SignupRoute, false))
	assert.Equal(t, "", Redirect(RegisterRoute, true))

	s := New(credentials.NewMemory(), &stubConn{})
	assert.Equal(t, "/login", s.Redirect(HomeRoute))
}
