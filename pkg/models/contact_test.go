package models

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDDecodesStringsAndNumbers(t *testing.T) {
	cases := map[string]ID{
		`{"id":"c-1","name":"Ana"}`: "c-1",
		`{"id":42,"name":"Ana"}`:    "42",
		`{"id":null,"name":"Ana"}`:  "",
		`{"name":"Ana"}`:            "",
	}

	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			var c Contact
			require.NoError(t, json.Unmarshal([]byte(in), &c))
			assert.Equal(t, want, c.ID)
			assert.Equal(t, "Ana", c.Name)
		})
	}
}

func TestIDRejectsObjects(t *testing.T) {
	var c Contact
	err := json.Unmarshal([]byte(`{"id":{"x":1}}`), &c)
	assert.Error(t, err)
}

func TestIDIsZero(t *testing.T) {
	assert.True(t, ID("").IsZero())
	assert.True(t, ID("  ").IsZero())
	assert.False(t, ID("7").IsZero())
}

func TestInputWithKeepsFields(t *testing.T) {
	c := Contact{ID: "9", Name: "Bia", Phone: "555", Email: "bia@example.com"}
	assert.Equal(t, c, c.Input().With("9"))
}
