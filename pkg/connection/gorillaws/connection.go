// Package gorillaws carries contacts service requests over a single websocket.
//
// Every Send writes one Frame and waits for the Reply with the same ID, so many
// requests can be in flight on the socket at once. Replies are matched by ID, not
// by arrival order.
package gorillaws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/agendacontatos/agenda.go/internal/codec"
	"github.com/agendacontatos/agenda.go/pkg/connection"
	"github.com/agendacontatos/agenda.go/pkg/constants"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// DefaultDialer is gorilla's default dialer with compression enabled.
var DefaultDialer = &gorilla.Dialer{
	Proxy:             gorilla.DefaultDialer.Proxy,
	HandshakeTimeout:  gorilla.DefaultDialer.HandshakeTimeout,
	EnableCompression: true,
}

// Frame is one request on the socket.
type Frame struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Path   string          `json:"path"`
	Token  string          `json:"token,omitempty"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// Reply answers the Frame with the same ID.
type Reply struct {
	ID     string          `json:"id"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body,omitempty"`
}

type Connection struct {
	BaseURL string
	Codec   codec.Codec

	// Timeout bounds the wait for a Reply after the Frame was written.
	// Zero leaves it to the caller's context.
	Timeout time.Duration

	Conn *gorilla.Conn
	// connLock serializes writes and guards Conn.
	connLock sync.Mutex

	responseChannels     map[string]chan Reply
	responseChannelsLock sync.RWMutex

	token          connection.TokenSource
	onUnauthorized connection.UnauthorizedHandler
	logger         zerolog.Logger

	connCloseCh    chan struct{}
	connCloseError error
	closeOnce      sync.Once
}

func New(p *connection.Config) *Connection {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultWSTimeout
	}
	return &Connection{
		BaseURL:          p.BaseURL,
		Codec:            p.Codec,
		Timeout:          timeout,
		responseChannels: make(map[string]chan Reply),
		token:            p.Token,
		onUnauthorized:   p.OnUnauthorized,
		logger:           p.Logger,
		connCloseCh:      make(chan struct{}),
	}
}

// endpoint maps the http(s) base URL onto ws(s) and appends /ws.
func (c *Connection) endpoint() string {
	u := c.BaseURL
	switch {
	case strings.HasPrefix(u, constants.HTTPSecureScheme+"://"):
		u = constants.WebsocketSecureScheme + strings.TrimPrefix(u, constants.HTTPSecureScheme)
	case strings.HasPrefix(u, constants.HTTPScheme+"://"):
		u = constants.WebsocketScheme + strings.TrimPrefix(u, constants.HTTPScheme)
	}
	return u + "/ws"
}

func (c *Connection) Connect(ctx context.Context) error {
	if c.BaseURL == "" {
		return constants.ErrNoBaseURL
	}
	if c.Codec == nil {
		return constants.ErrNoMarshaler
	}

	header := http.Header{}
	if c.token != nil {
		if token := c.token(ctx); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	conn, res, err := DefaultDialer.DialContext(ctx, c.endpoint(), header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.endpoint(), err)
	}
	if res != nil && res.Body != nil {
		defer res.Body.Close()
	}

	c.connLock.Lock()
	c.Conn = conn
	c.connLock.Unlock()

	go c.readLoop(conn)
	return nil
}

// Close sends a close frame and tears the socket down. Pending Sends fail
// with a transport error that has no response.
func (c *Connection) Close(ctx context.Context) error {
	c.connLock.Lock()
	conn := c.Conn
	c.Conn = nil
	c.connLock.Unlock()

	c.closeWithError(constants.ErrConnectionClosed)
	if conn == nil {
		return nil
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	if err := conn.WriteMessage(gorilla.CloseMessage, gorilla.FormatCloseMessage(constants.CloseMessageCode, "")); err != nil {
		c.logger.Debug().Err(err).Msg("failed to write close message")
	}
	return conn.Close()
}

func (c *Connection) Send(ctx context.Context, method, path string, body any) (*connection.Response, error) {
	frame := Frame{
		ID:     uuid.NewString(),
		Method: method,
		Path:   path,
	}
	if body != nil {
		data, err := c.Codec.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s %s body: %w", method, path, err)
		}
		frame.Body = data
	}
	if c.token != nil {
		frame.Token = c.token(ctx)
	}

	fail := func(err error) error {
		return &connection.Error{Method: method, Path: path, Err: err}
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	select {
	case <-c.connCloseCh:
		return nil, fail(c.connCloseError)
	default:
	}

	ch, err := c.createResponseChannel(frame.ID)
	if err != nil {
		return nil, err
	}
	defer c.removeResponseChannel(frame.ID)

	if err := c.write(frame); err != nil {
		return nil, fail(err)
	}

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fail(fmt.Errorf("%w: %w", constants.ErrTimeout, ctx.Err()))
		}
		return nil, fail(ctx.Err())
	case <-c.connCloseCh:
		return nil, fail(c.connCloseError)
	case reply := <-ch:
		res := &connection.Response{Status: reply.Status, Data: []byte(reply.Body)}
		if reply.Status >= 200 && reply.Status < 300 {
			return res, nil
		}
		if reply.Status == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return nil, &connection.Error{Method: method, Path: path, Response: res}
	}
}

func (c *Connection) write(frame Frame) error {
	data, err := c.Codec.Marshal(frame)
	if err != nil {
		return err
	}

	c.connLock.Lock()
	defer c.connLock.Unlock()
	if c.Conn == nil {
		return constants.ErrConnectionClosed
	}
	err = c.Conn.WriteMessage(gorilla.TextMessage, data)
	if errors.Is(err, gorilla.ErrCloseSent) {
		c.closeWithError(err)
	}
	return err
}

func (c *Connection) readLoop(conn *gorilla.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || gorilla.IsUnexpectedCloseError(err) || gorilla.IsCloseError(err, constants.CloseMessageCode) {
				c.closeWithError(constants.ErrConnectionClosed)
				return
			}
			c.logger.Error().Err(err).Msg("websocket read failed")
			c.closeWithError(err)
			return
		}
		c.handleReply(data)
	}
}

func (c *Connection) handleReply(data []byte) {
	var reply Reply
	if err := c.Codec.Unmarshal(data, &reply); err != nil {
		c.logger.Error().Err(err).Msg("failed to unmarshal reply")
		return
	}

	ch, ok := c.getResponseChannel(reply.ID)
	if !ok {
		c.logger.Warn().Str("id", reply.ID).Msg("reply for unknown request")
		return
	}
	select {
	case ch <- reply:
	default:
		c.logger.Warn().Str("id", reply.ID).Msg("duplicate reply dropped")
	}
}

func (c *Connection) closeWithError(err error) {
	c.closeOnce.Do(func() {
		c.connCloseError = err
		close(c.connCloseCh)
	})
}

func (c *Connection) createResponseChannel(id string) (chan Reply, error) {
	c.responseChannelsLock.Lock()
	defer c.responseChannelsLock.Unlock()

	if _, ok := c.responseChannels[id]; ok {
		return nil, fmt.Errorf("%w: %v", constants.ErrIDInUse, id)
	}
	ch := make(chan Reply, 1)
	c.responseChannels[id] = ch
	return ch, nil
}

func (c *Connection) getResponseChannel(id string) (chan Reply, bool) {
	c.responseChannelsLock.RLock()
	defer c.responseChannelsLock.RUnlock()
	ch, ok := c.responseChannels[id]
	return ch, ok
}

func (c *Connection) removeResponseChannel(id string) {
	c.responseChannelsLock.Lock()
	defer c.responseChannelsLock.Unlock()
	delete(c.responseChannels, id)
}

var _ connection.Connection = (*Connection)(nil)
