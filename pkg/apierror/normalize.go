package apierror

import (
	"bytes"
	"errors"
	"strings"

	"github.com/agendacontatos/agenda.go/pkg/connection"
	"github.com/buger/jsonparser"
)

// Normalize classifies err. The checks run in a fixed order and the first one
// that matches wins:
//
//  0. *InputError                        -> validation, its messages
//  1. transport failure with no response -> network
//  2. body object with errorMessages []  -> validation, the array
//  3. body is an array                   -> validation, the array
//  4. body is a plain string             -> server, the string
//  5. body object with message           -> server
//  6. body object with error             -> server
//  7. body object with errors (string|[])-> validation, the string or first element
//  8. anything else                      -> unexpected
//
// Empty validation lists fall back to ValidationMessage. A nil err returns nil.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}

	var canonical *Error
	if errors.As(err, &canonical) {
		return canonical
	}

	var input *InputError
	if errors.As(err, &input) {
		return list(KindValidation, nonBlank(input.Messages), err)
	}

	var connErr *connection.Error
	if !errors.As(err, &connErr) {
		return single(KindUnexpected, UnexpectedMessage, err)
	}
	if !connErr.HasResponse() {
		return single(KindNetwork, NetworkMessage, err)
	}

	if e := fromBody(connErr.Response.Data, err); e != nil {
		return e
	}
	return single(KindUnexpected, UnexpectedMessage, err)
}

func fromBody(body []byte, cause error) *Error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}

	// end is the offset just past the value
	value, dataType, end, err := jsonparser.Get(body)
	if err != nil {
		if body[0] == '{' || body[0] == '[' || body[0] == '"' {
			// broken JSON is not a message
			return nil
		}
		return single(KindServer, string(body), cause)
	}
	if end > 0 && end < len(body) && len(bytes.TrimSpace(body[end:])) > 0 {
		// "404 page not found" and friends start with a JSON scalar
		return single(KindServer, string(body), cause)
	}

	switch dataType {
	case jsonparser.Array:
		return list(KindValidation, strs(value), cause)
	case jsonparser.String:
		if s, err := jsonparser.ParseString(value); err == nil && s != "" {
			return single(KindServer, s, cause)
		}
		return nil
	case jsonparser.Object:
		return fromObject(value, cause)
	}
	return nil
}

func fromObject(obj []byte, cause error) *Error {
	if v, t, _, err := jsonparser.Get(obj, "errorMessages"); err == nil && t == jsonparser.Array {
		return list(KindValidation, strs(v), cause)
	}
	if msg, ok := text(obj, "message"); ok {
		return single(KindServer, msg, cause)
	}
	if msg, ok := text(obj, "error"); ok {
		return single(KindServer, msg, cause)
	}

	v, t, _, err := jsonparser.Get(obj, "errors")
	if err != nil {
		return nil
	}
	switch t {
	case jsonparser.String:
		if s, err := jsonparser.ParseString(v); err == nil && s != "" {
			return single(KindValidation, s, cause)
		}
	case jsonparser.Array:
		if msgs := strs(v); len(msgs) > 0 {
			return single(KindValidation, msgs[0], cause)
		}
		return single(KindValidation, ValidationMessage, cause)
	}
	return nil
}

// text reads a field that carries a message. Strings must be non-empty; numbers
// and booleans are used as written; null and missing fields do not match.
func text(obj []byte, key string) (string, bool) {
	v, t, _, err := jsonparser.Get(obj, key)
	if err != nil {
		return "", false
	}
	switch t {
	case jsonparser.String:
		s, err := jsonparser.ParseString(v)
		if err != nil || s == "" {
			return "", false
		}
		return s, true
	case jsonparser.Number, jsonparser.Boolean:
		return string(v), true
	case jsonparser.Object:
		// {"error": {"message": "..."}}
		return text(v, "message")
	}
	return "", false
}

// strs lists the array's elements as text. Strings are unescaped, blanks are
// dropped, and anything else is kept as raw JSON.
func strs(arr []byte) []string {
	var out []string
	_, _ = jsonparser.ArrayEach(arr, func(v []byte, t jsonparser.ValueType, _ int, err error) {
		if err != nil {
			return
		}
		switch t {
		case jsonparser.String:
			if s, err := jsonparser.ParseString(v); err == nil && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		case jsonparser.Null:
		default:
			out = append(out, string(v))
		}
	})
	return out
}

func nonBlank(msgs []string) []string {
	var out []string
	for _, m := range msgs {
		if strings.TrimSpace(m) != "" {
			out = append(out, m)
		}
	}
	return out
}
