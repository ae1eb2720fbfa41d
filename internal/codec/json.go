package codec

import (
	"io"

	"github.com/goccy/go-json"
)

// JSON is the codec the contacts service speaks.
type JSON struct{}

func NewJSON() *JSON {
	return &JSON{}
}

func (JSON) ContentType() string {
	return "application/json"
}

func (JSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSON) NewEncoder(w io.Writer) Encoder {
	return json.NewEncoder(w)
}

func (JSON) Unmarshal(data []byte, dst any) error {
	return json.Unmarshal(data, dst)
}

func (JSON) NewDecoder(r io.Reader) Decoder {
	return json.NewDecoder(r)
}

var _ Codec = JSON{}
