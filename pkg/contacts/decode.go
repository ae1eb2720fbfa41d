package contacts

import (
	"bytes"

	"github.com/agendacontatos/agenda.go/pkg/models"
	"github.com/buger/jsonparser"
)

// envelopeKeys are the fields a list may be nested under, in lookup order.
var envelopeKeys = []string{"data", "items", "contacts", "results", "value", "records"}

// decodeList recovers the contact list from a list response. The list may
// be the body itself or sit under one of envelopeKeys, directly or one
// object further down. Anything else yields an empty list.
func (s *Store) decodeList(body []byte) []models.Contact {
	arr := findArray(body, 1)
	if arr == nil {
		if len(bytes.TrimSpace(body)) > 0 {
			s.logger.Warn().Str("op", opLoad.name).Msg("no contact list in response")
		}
		return []models.Contact{}
	}

	out := []models.Contact{}
	seen := map[models.ID]struct{}{}
	_, _ = jsonparser.ArrayEach(arr, func(v []byte, t jsonparser.ValueType, _ int, err error) {
		if err != nil || t != jsonparser.Object {
			return
		}
		var c models.Contact
		if err := s.codec.Unmarshal(v, &c); err != nil {
			s.logger.Warn().Err(err).Msg("skipping undecodable contact")
			return
		}
		if c.ID.IsZero() {
			s.logger.Warn().Str("name", c.Name).Msg("skipping contact without id")
			return
		}
		if _, dup := seen[c.ID]; dup {
			s.logger.Warn().Str("contact_id", c.ID.String()).Msg("skipping duplicate contact")
			return
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	})
	s.order.sort(out)
	return out
}

func findArray(body []byte, depth int) []byte {
	v, t, _, err := jsonparser.Get(body)
	if err != nil {
		return nil
	}
	switch t {
	case jsonparser.Array:
		return v
	case jsonparser.Object:
	default:
		return nil
	}

	for _, key := range envelopeKeys {
		if inner, t, _, err := jsonparser.Get(v, key); err == nil && t == jsonparser.Array {
			return inner
		}
	}
	if depth == 0 {
		return nil
	}
	for _, key := range envelopeKeys {
		if inner, t, _, err := jsonparser.Get(v, key); err == nil && t == jsonparser.Object {
			if arr := findArray(inner, depth-1); arr != nil {
				return arr
			}
		}
	}
	return nil
}

// decodeOne decodes a single contact response over base. Fields the body
// leaves out keep base's values. An object under "data" or "contact" is used
// when the body itself has no id. A body that is not an object, empty
// included, returns base.
func (s *Store) decodeOne(body []byte, base models.Contact) (models.Contact, error) {
	body = bytes.TrimSpace(body)
	if _, t, _, err := jsonparser.Get(body); err != nil || t != jsonparser.Object {
		return base, nil
	}

	if _, _, _, err := jsonparser.Get(body, "id"); err != nil {
		for _, key := range []string{"data", "contact"} {
			if inner, t, _, err := jsonparser.Get(body, key); err == nil && t == jsonparser.Object {
				body = inner
				break
			}
		}
	}

	c := base
	if err := s.codec.Unmarshal(body, &c); err != nil {
		return models.Contact{}, err
	}
	return c, nil
}
