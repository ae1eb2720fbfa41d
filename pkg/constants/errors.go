package constants

import "errors"

var (
	ErrNoBaseURL         = errors.New("base url not set")
	ErrNoMarshaler       = errors.New("marshaler is not set")
	ErrTimeout           = errors.New("timeout")
	ErrConnectionClosed  = errors.New("connection closed")
	ErrIDInUse           = errors.New("id already in use")
	ErrUnknownBackend    = errors.New("unknown storage backend")
	ErrUnknownTransport  = errors.New("unknown transport")
	ErrMissingIdentifier = errors.New("response did not contain an identifier")
	ErrMissingToken      = errors.New("response did not contain a token")
)
