package fakeapi

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/agendacontatos/agenda.go/pkg/connection"
	"github.com/agendacontatos/agenda.go/pkg/connection/gorillaws"
	httpconn "github.com/agendacontatos/agenda.go/pkg/connection/http"
	"github.com/agendacontatos/agenda.go/pkg/models"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer()
	s.Start()
	t.Cleanup(s.Close)
	return s
}

// transports runs f once over HTTP and once over the websocket.
func transports(t *testing.T, s *Server, f func(t *testing.T, conn connection.Connection)) {
	t.Helper()
	for name, dial := range map[string]func(*connection.Config) connection.Connection{
		"http": func(c *connection.Config) connection.Connection { return httpconn.New(c) },
		"ws":   func(c *connection.Config) connection.Connection { return gorillaws.New(c) },
	} {
		t.Run(name, func(t *testing.T) {
			conf, err := connection.ParseConfig(s.URL())
			require.NoError(t, err)
			conf.Timeout = 2 * time.Second
			conn := dial(conf)
			require.NoError(t, conn.Connect(context.Background()))
			t.Cleanup(func() { _ = conn.Close(context.Background()) })
			f(t, conn)
		})
	}
}

func TestContactsLifecycle(t *testing.T) {
	s := startServer(t)
	transports(t, s, func(t *testing.T, conn connection.Connection) {
		ctx := context.Background()

		res, err := conn.Send(ctx, http.MethodPost, "/contacts", models.ContactInput{Name: "Ana", Phone: "1"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, res.Status)
		var created models.Contact
		require.NoError(t, json.Unmarshal(res.Data, &created))
		assert.False(t, created.ID.IsZero())
		assert.Equal(t, "Ana", created.Name)

		res, err = conn.Send(ctx, http.MethodPut, "/contacts/"+created.ID.String(), models.ContactInput{Name: "Ana Maria"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"`+created.ID.String()+`","name":"Ana Maria","phone":"","email":""}`, string(res.Data))

		res, err = conn.Send(ctx, http.MethodGet, "/contacts", nil)
		require.NoError(t, err)
		var list []models.Contact
		require.NoError(t, json.Unmarshal(res.Data, &list))
		assert.Contains(t, list, models.Contact{ID: created.ID, Name: "Ana Maria"})

		_, err = conn.Send(ctx, http.MethodDelete, "/contacts/"+created.ID.String(), nil)
		require.NoError(t, err)
		assert.NotContains(t, s.Contacts(), models.Contact{ID: created.ID, Name: "Ana Maria"})
	})
}

func TestErrorBodies(t *testing.T) {
	s := startServer(t)
	transports(t, s, func(t *testing.T, conn connection.Connection) {
		ctx := context.Background()

		_, err := conn.Send(ctx, http.MethodPost, "/contacts", models.ContactInput{Name: " "})
		var cerr *connection.Error
		require.ErrorAs(t, err, &cerr)
		require.True(t, cerr.HasResponse())
		assert.Equal(t, http.StatusBadRequest, cerr.Response.Status)
		assert.JSONEq(t, `{"errorMessages":["Name is required."]}`, string(cerr.Response.Data))

		_, err = conn.Send(ctx, http.MethodDelete, "/contacts/missing", nil)
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, http.StatusNotFound, cerr.Response.Status)
		assert.JSONEq(t, `{"message":"Contact not found."}`, string(cerr.Response.Data))
	})
}

func TestLoginAndRequireAuth(t *testing.T) {
	s := startServer(t)
	s.AddUser("ana", "secret")
	s.RequireAuth = true

	conf, err := connection.ParseConfig(s.URL())
	require.NoError(t, err)
	var token string
	conf.Token = func(context.Context) string { return token }
	unauthorized := 0
	conf.OnUnauthorized = func(context.Context) { unauthorized++ }
	conn := httpconn.New(conf)
	ctx := context.Background()

	_, err = conn.Send(ctx, http.MethodGet, "/contacts", nil)
	var cerr *connection.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, http.StatusUnauthorized, cerr.Response.Status)
	assert.Equal(t, 1, unauthorized)

	_, err = conn.Send(ctx, http.MethodPost, "/auth/login", map[string]string{"username": "ana", "password": "wrong"})
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, http.StatusUnauthorized, cerr.Response.Status)

	res, err := conn.Send(ctx, http.MethodPost, "/auth/login", map[string]string{"username": "ana", "password": "secret"})
	require.NoError(t, err)
	var login loginResponse
	require.NoError(t, json.Unmarshal(res.Data, &login))
	assert.Equal(t, "ana", login.User.Username)
	token = login.Token

	_, err = conn.Send(ctx, http.MethodGet, "/contacts", nil)
	require.NoError(t, err)

	reqs := s.Requests()
	require.NotEmpty(t, reqs)
	assert.Equal(t, "Bearer "+token, reqs[len(reqs)-1].Authorization)
}

func TestEnvelope(t *testing.T) {
	s := startServer(t)
	s.Envelope = "data"
	s.Seed(models.Contact{ID: "1", Name: "Ana"})

	conf, err := connection.ParseConfig(s.URL())
	require.NoError(t, err)
	res, err := httpconn.New(conf).Send(context.Background(), http.MethodGet, "/contacts", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[{"id":"1","name":"Ana","phone":"","email":""}]}`, string(res.Data))
}

func TestStubResponse(t *testing.T) {
	s := startServer(t)
	s.AddStubResponse(StubResponse{
		Matcher: RequestMatcher{Method: http.MethodGet, Path: "/contacts"},
		Status:  http.StatusInternalServerError,
		Body:    `{"error":"boom"}`,
	})
	transports(t, s, func(t *testing.T, conn connection.Connection) {
		_, err := conn.Send(context.Background(), http.MethodGet, "/contacts", nil)
		var cerr *connection.Error
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, http.StatusInternalServerError, cerr.Response.Status)
		assert.JSONEq(t, `{"error":"boom"}`, string(cerr.Response.Data))
	})

	s.ClearStubResponses()
	conf, err := connection.ParseConfig(s.URL())
	require.NoError(t, err)
	_, err = httpconn.New(conf).Send(context.Background(), http.MethodGet, "/contacts", nil)
	assert.NoError(t, err)
}

func TestStubMatcherInspectsBody(t *testing.T) {
	s := startServer(t)
	s.AddStubResponse(StubResponse{
		Matcher: RequestMatcher{
			Method:  http.MethodPost,
			Path:    "/contacts",
			Matcher: func(body []byte) bool { return bytes.Contains(body, []byte("Duplicate")) },
		},
		Status: http.StatusConflict,
		Body:   `{"message":"duplicate"}`,
	})
	conf, err := connection.ParseConfig(s.URL())
	require.NoError(t, err)
	conn := httpconn.New(conf)

	_, err = conn.Send(context.Background(), http.MethodPost, "/contacts", models.ContactInput{Name: "Duplicate"})
	var cerr *connection.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, http.StatusConflict, cerr.Response.Status)

	_, err = conn.Send(context.Background(), http.MethodPost, "/contacts", models.ContactInput{Name: "Unique"})
	assert.NoError(t, err)
}

func TestDropConnection(t *testing.T) {
	s := startServer(t)
	s.SetGlobalFailures([]FailureConfig{{Type: FailureDropConnection, Probability: 1}})
	transports(t, s, func(t *testing.T, conn connection.Connection) {
		_, err := conn.Send(context.Background(), http.MethodGet, "/contacts", nil)
		var cerr *connection.Error
		require.ErrorAs(t, err, &cerr)
		assert.False(t, cerr.HasResponse())
	})
}

func TestRequestDelay(t *testing.T) {
	s := startServer(t)
	s.SetGlobalFailures([]FailureConfig{{
		Type:        FailureRequestDelay,
		Probability: 1,
		MinDelay:    50 * time.Millisecond,
		MaxDelay:    60 * time.Millisecond,
	}})
	conf, err := connection.ParseConfig(s.URL())
	require.NoError(t, err)

	start := time.Now()
	_, err = httpconn.New(conf).Send(context.Background(), http.MethodGet, "/contacts", nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = httpconn.New(conf).Send(ctx, http.MethodGet, "/contacts", nil)
	var cerr *connection.Error
	require.ErrorAs(t, err, &cerr)
	assert.False(t, cerr.HasResponse())
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestShouldTriggerFailure(t *testing.T) {
	assert.False(t, shouldTriggerFailure(0))
	assert.False(t, shouldTriggerFailure(-1))
	assert.True(t, shouldTriggerFailure(1))
	assert.True(t, shouldTriggerFailure(2))
}

func TestRandomDuration(t *testing.T) {
	assert.Equal(t, time.Second, randomDuration(time.Second, time.Second))
	assert.Equal(t, time.Second, randomDuration(time.Second, 0))
	for i := 0; i < 20; i++ {
		d := randomDuration(10*time.Millisecond, 20*time.Millisecond)
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.Less(t, d, 20*time.Millisecond)
	}
}
