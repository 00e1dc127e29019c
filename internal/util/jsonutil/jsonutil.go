package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrEmptyText is returned when a JSON-in-string field is absent, null or blank.
var ErrEmptyText = errors.New("json text is empty")

// MarshalNoEscape encodes v into JSON without escaping <, >, & into \u003c, etc.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalText is MarshalNoEscape for text columns. A nil slice or map
// encodes as "null", matching what json.Marshal produces.
func MarshalText(v any) (string, error) {
	b, err := MarshalNoEscape(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnwrapText returns the JSON document carried by raw. A JSON string is
// unquoted and its content returned; an inline object or array is returned
// as-is so producers that skip the extra encoding still decode.
func UnwrapText(raw json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrEmptyText
	}
	if trimmed[0] != '"' {
		return trimmed, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, err
	}
	inner := bytes.TrimSpace([]byte(s))
	if len(inner) == 0 {
		return nil, ErrEmptyText
	}
	return inner, nil
}

// UnmarshalText decodes the JSON document carried by raw (see UnwrapText)
// into v.
func UnmarshalText(raw json.RawMessage, v any) error {
	inner, err := UnwrapText(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(inner, v)
}

// QuoteText encodes v and wraps the result as a JSON string, the inverse of
// UnwrapText.
func QuoteText(v any) (json.RawMessage, error) {
	inner, err := MarshalNoEscape(v)
	if err != nil {
		return nil, err
	}
	return MarshalNoEscape(string(inner))
}
