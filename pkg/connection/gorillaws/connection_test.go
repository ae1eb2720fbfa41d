package gorillaws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agendacontatos/agenda.go/pkg/connection"
	"github.com/agendacontatos/agenda.go/pkg/constants"
	"github.com/goccy/go-json"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replyFunc func(f Frame) (Reply, bool)

func newTestServer(t *testing.T, reply replyFunc) *connection.Config {
	t.Helper()

	upgrader := gorilla.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ws" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f Frame
			if err := json.Unmarshal(data, &f); err != nil {
				return
			}
			res, ok := reply(f)
			if !ok {
				continue
			}
			res.ID = f.ID
			out, _ := json.Marshal(res)
			if err := conn.WriteMessage(gorilla.TextMessage, out); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	conf, err := connection.ParseConfig(srv.URL + "/api")
	require.NoError(t, err)
	return conf
}

func connect(t *testing.T, conf *connection.Config) *Connection {
	t.Helper()
	conn := New(conf)
	require.NoError(t, conn.Connect(context.Background()))
	t.Cleanup(func() { _ = conn.Close(context.Background()) })
	return conn
}

func TestSendMatchesReplyByID(t *testing.T) {
	var got Frame
	conf := newTestServer(t, func(f Frame) (Reply, bool) {
		got = f
		return Reply{Status: http.StatusOK, Body: json.RawMessage(`[{"id":"1","name":"Ana"}]`)}, true
	})
	conf.Token = func(context.Context) string { return "tok" }
	conn := connect(t, conf)

	res, err := conn.Send(context.Background(), http.MethodGet, "/contacts", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.JSONEq(t, `[{"id":"1","name":"Ana"}]`, string(res.Data))

	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/contacts", got.Path)
	assert.Equal(t, "tok", got.Token)
	assert.NotEmpty(t, got.ID)
}

func TestSendCarriesBody(t *testing.T) {
	conf := newTestServer(t, func(f Frame) (Reply, bool) {
		return Reply{Status: http.StatusCreated, Body: f.Body}, true
	})
	conn := connect(t, conf)

	res, err := conn.Send(context.Background(), http.MethodPost, "/contacts", map[string]string{"name": "Bia"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Bia"}`, string(res.Data))
}

func TestSendErrorStatusCarriesResponse(t *testing.T) {
	conf := newTestServer(t, func(f Frame) (Reply, bool) {
		if f.Path == "/contacts/9" {
			return Reply{Status: http.StatusUnauthorized}, true
		}
		return Reply{Status: http.StatusBadRequest, Body: json.RawMessage(`{"message":"bad"}`)}, true
	})
	unauthorized := 0
	conf.OnUnauthorized = func(context.Context) { unauthorized++ }
	conn := connect(t, conf)

	_, err := conn.Send(context.Background(), http.MethodPut, "/contacts/1", map[string]string{})
	var connErr *connection.Error
	require.True(t, errors.As(err, &connErr))
	require.True(t, connErr.HasResponse())
	assert.Equal(t, http.StatusBadRequest, connErr.Response.Status)
	assert.JSONEq(t, `{"message":"bad"}`, string(connErr.Response.Data))
	assert.Equal(t, 0, unauthorized)

	_, err = conn.Send(context.Background(), http.MethodDelete, "/contacts/9", nil)
	require.Error(t, err)
	assert.Equal(t, 1, unauthorized)
}

func TestSendTimeoutHasNoResponse(t *testing.T) {
	conf := newTestServer(t, func(Frame) (Reply, bool) { return Reply{}, false })
	conf.Timeout = 30 * time.Millisecond
	conn := connect(t, conf)

	_, err := conn.Send(context.Background(), http.MethodGet, "/contacts", nil)
	var connErr *connection.Error
	require.True(t, errors.As(err, &connErr))
	assert.False(t, connErr.HasResponse())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, constants.ErrTimeout)
}

func TestSendCallerCancelIsNotTimeout(t *testing.T) {
	conf := newTestServer(t, func(Frame) (Reply, bool) { return Reply{}, false })
	conn := connect(t, conf)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	_, err := conn.Send(ctx, http.MethodGet, "/contacts", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, constants.ErrTimeout)
}

func TestSendAfterCloseHasNoResponse(t *testing.T) {
	conf := newTestServer(t, func(Frame) (Reply, bool) { return Reply{Status: http.StatusOK}, true })
	conn := New(conf)
	require.NoError(t, conn.Connect(context.Background()))
	require.NoError(t, conn.Close(context.Background()))

	_, err := conn.Send(context.Background(), http.MethodGet, "/contacts", nil)
	var connErr *connection.Error
	require.True(t, errors.As(err, &connErr))
	assert.False(t, connErr.HasResponse())
}

func TestConcurrentSends(t *testing.T) {
	conf := newTestServer(t, func(f Frame) (Reply, bool) {
		return Reply{Status: http.StatusOK, Body: json.RawMessage(`"` + f.Path + `"`)}, true
	})
	conn := connect(t, conf)

	paths := []string{"/a", "/b", "/c", "/d", "/e"}
	errs := make(chan error, len(paths))
	for _, p := range paths {
		go func(p string) {
			res, err := conn.Send(context.Background(), http.MethodGet, p, nil)
			if err == nil && string(res.Data) != `"`+p+`"` {
				err = errors.New("mismatched reply for " + p)
			}
			errs <- err
		}(p)
	}
	for range paths {
		assert.NoError(t, <-errs)
	}
}

func TestEndpoint(t *testing.T) {
	c := &Connection{BaseURL: "https://example.com/api"}
	assert.Equal(t, "wss://example.com/api/ws", c.endpoint())
	c.BaseURL = "http://localhost:8080"
	assert.Equal(t, "ws://localhost:8080/ws", c.endpoint())
}
