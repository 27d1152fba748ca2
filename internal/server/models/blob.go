package models

import (
	"bytes"
	"encoding/json"
)

// Blob is a client-supplied JSON value carried byte for byte. Clients send
// base64 strings in practice, but any JSON value is accepted and never
// decoded by the relay. The zero Blob encodes as null.
type Blob []byte

var jsonNull = []byte("null")

// StringBlob wraps s as a JSON string.
func StringBlob(s string) Blob {
	b, _ := json.Marshal(s)
	return b
}

// JSONBlob encodes v. It panics if v cannot be encoded, so it is meant for
// literals.
func JSONBlob(v any) Blob {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// IsZero reports whether b is absent or null.
func (b Blob) IsZero() bool {
	return len(b) == 0 || bytes.Equal(b, jsonNull)
}

// JSON returns the raw value, null when absent.
func (b Blob) JSON() []byte {
	if len(b) == 0 {
		return jsonNull
	}
	return b
}

func (b Blob) MarshalJSON() ([]byte, error) {
	return b.JSON(), nil
}

func (b *Blob) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, jsonNull) {
		*b = nil
		return nil
	}
	*b = append((*b)[:0], data...)
	return nil
}

// String returns the text of a JSON string blob and the raw JSON otherwise.
func (b Blob) String() string {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return s
	}
	return string(b)
}
