package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agendacontatos/agenda.go/internal/codec"
	"github.com/agendacontatos/agenda.go/pkg/connection"
	"github.com/agendacontatos/agenda.go/pkg/constants"
	"github.com/rs/zerolog"
)

type Connection struct {
	BaseURL string
	Codec   codec.Codec

	token          connection.TokenSource
	onUnauthorized connection.UnauthorizedHandler
	httpClient     *http.Client
	logger         zerolog.Logger
}

func New(p *connection.Config) *Connection {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	return &Connection{
		BaseURL:        p.BaseURL,
		Codec:          p.Codec,
		token:          p.Token,
		onUnauthorized: p.OnUnauthorized,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: p.Logger,
	}
}

// Connect only checks the configuration; HTTP needs no handshake.
func (c *Connection) Connect(ctx context.Context) error {
	if c.BaseURL == "" {
		return constants.ErrNoBaseURL
	}
	if c.Codec == nil {
		return constants.ErrNoMarshaler
	}
	return nil
}

func (c *Connection) Close(ctx context.Context) error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Connection) SetTimeout(timeout time.Duration) *Connection {
	c.httpClient.Timeout = timeout
	return c
}

func (c *Connection) SetHTTPClient(client *http.Client) *Connection {
	c.httpClient = client
	return c
}

func (c *Connection) Send(ctx context.Context, method, path string, body any) (*connection.Response, error) {
	if c.BaseURL == "" {
		return nil, constants.ErrNoBaseURL
	}

	var reqBody io.Reader = http.NoBody
	if body != nil {
		data, err := c.Codec.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s %s body: %w", method, path, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", c.Codec.ContentType())
	if body != nil {
		req.Header.Set("Content-Type", c.Codec.ContentType())
	}
	if c.token != nil {
		if token := c.token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	started := time.Now()
	res, err := c.MakeRequest(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return nil, &connection.Error{Method: method, Path: path, Err: err}
	}
	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", res.Status).
		Dur("elapsed", time.Since(started)).
		Msg("request done")

	if res.Status >= 200 && res.Status < 300 {
		return res, nil
	}

	if res.Status == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized(ctx)
	}
	return nil, &connection.Error{Method: method, Path: path, Response: res}
}

// MakeRequest performs req and reads the whole body. An error means nothing
// usable came back.
func (c *Connection) MakeRequest(req *http.Request) (*connection.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading HTTP response: %w", err)
	}

	return &connection.Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Data:   respBytes,
	}, nil
}

var _ connection.Connection = (*Connection)(nil)
