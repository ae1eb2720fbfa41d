package models

import (
	"strings"

	"github.com/goccy/go-json"
)

// ID is the server-assigned contact identifier. The service has been seen to
// send both numbers and strings, so both decode into the same opaque string.
type ID string

func (id ID) String() string {
	return string(id)
}

func (id ID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Contact is one entry of the contacts collection.
type Contact struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// ContactInput is the payload for create and update; the server owns the ID.
type ContactInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Input strips the identifier.
func (c Contact) Input() ContactInput {
	return ContactInput{Name: c.Name, Phone: c.Phone, Email: c.Email}
}

// With returns the contact the input describes under the given identifier.
func (in ContactInput) With(id ID) Contact {
	return Contact{ID: id, Name: in.Name, Phone: in.Phone, Email: in.Email}
}
