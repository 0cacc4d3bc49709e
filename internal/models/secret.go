package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Secret holds an opaque sensitive value (payment details, integration tokens)
// that must never leave the owning boundary in clear text. JSON marshaling
// always emits a redaction; storage round-trips keep the real value.
type Secret string

const redacted = "[REDACTED]"

func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal(redacted)
}

func (s *Secret) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = Secret(v)
	return nil
}

// Reveal returns the clear-text value for storage and for handing to the
// payout processor. Call sites are the audit surface.
func (s Secret) Reveal() string { return string(s) }

func (s Secret) Value() (driver.Value, error) { return string(s), nil }

func (s *Secret) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = Secret(v)
	case []byte:
		*s = Secret(v)
	case nil:
		*s = ""
	default:
		return errors.New("secret: unsupported scan type")
	}
	return nil
}
