package connection

import (
	"context"
	"fmt"
	"net/http"
)

// Connection is the transport the contacts client talks through.
//
// Send performs one request and returns the response when the status is 2xx.
// Every other outcome is reported as a *Error: with a Response when the server
// answered, and without one when nothing came back (refused, reset, timed out).
// Failures that happen before a request could be sent, such as a body that does
// not marshal, are returned as plain wrapped errors.
type Connection interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	Send(ctx context.Context, method, path string, body any) (*Response, error)
}

// Response is what the server answered.
type Response struct {
	Status int
	Header http.Header
	Data   []byte
}

// Error is a failed transport call.
type Error struct {
	Method string
	Path   string
	// Response is nil when no response was received.
	Response *Response
	// Err is the underlying cause when there was no response.
	Err error
}

func (e *Error) Error() string {
	if e.Response == nil {
		return fmt.Sprintf("%s %s: no response: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Response.Status)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HasResponse reports whether the server answered at all.
func (e *Error) HasResponse() bool {
	return e.Response != nil
}

// TokenSource returns the bearer token to attach, or "" for none.
type TokenSource func(ctx context.Context) string

// UnauthorizedHandler is invoked when the server rejects the credentials.
type UnauthorizedHandler func(ctx context.Context)
