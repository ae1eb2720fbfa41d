// Package apierror turns whatever the contacts service (or the path to it)
// failed with into one canonical Error.
package apierror

import (
	"strings"
)

// Kind classifies a canonical Error.
type Kind string

const (
	// KindValidation carries one or more user-actionable messages.
	KindValidation Kind = "validation"
	// KindServer carries a single message from the service.
	KindServer Kind = "server"
	// KindNetwork means no response was received.
	KindNetwork Kind = "network"
	// KindUnexpected is everything that could not be classified.
	KindUnexpected Kind = "unexpected"
)

const (
	NetworkMessage    = "Connection error."
	ValidationMessage = "Invalid request."
	UnexpectedMessage = "An unexpected error occurred."
)

// Error is the canonical error. Exactly one of Message and Messages is set.
type Error struct {
	Kind     Kind     `json:"kind"`
	Message  string   `json:"message,omitempty"`
	Messages []string `json:"messages,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if len(e.Messages) > 0 {
		return string(e.Kind) + ": " + strings.Join(e.Messages, "; ")
	}
	return string(e.Kind) + ": " + e.Message
}

// Unwrap returns the error Normalize was given.
func (e *Error) Unwrap() error {
	return e.cause
}

// Lines returns the messages as a list, whichever form the error holds.
func (e *Error) Lines() []string {
	if len(e.Messages) > 0 {
		return append([]string(nil), e.Messages...)
	}
	return []string{e.Message}
}

// Is matches another *Error of the same Kind, so errors.Is(err, &Error{Kind: KindNetwork}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Messages == nil
}

func list(kind Kind, msgs []string, cause error) *Error {
	if len(msgs) == 0 {
		return &Error{Kind: kind, Message: ValidationMessage, cause: cause}
	}
	return &Error{Kind: kind, Messages: msgs, cause: cause}
}

func single(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, cause: cause}
}

// InputError is a failure detected before anything was sent.
type InputError struct {
	Messages []string
}

func (e *InputError) Error() string {
	return "invalid input: " + strings.Join(e.Messages, "; ")
}

// Invalid reports client-side input problems. Normalize classifies the result
// as a validation error.
func Invalid(msgs ...string) error {
	return &InputError{Messages: msgs}
}
