package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Decode parses a JSON document into generic values, keeping numbers as
// json.Number so integers can be told apart from other numbers.
func Decode(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &Error{Path: "/", Reason: "no payload body"}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &Error{Path: "/", Reason: fmt.Sprintf("must be valid JSON: %v", err)}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &Error{Path: "/", Reason: "must contain a single JSON value"}
	}
	return v, nil
}

// ToValue converts a Go value into the generic form Validate expects, going
// through its JSON encoding.
func ToValue(in any) (any, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return Decode(raw)
}

// Canonical re-encodes a decoded document with object keys sorted and
// insignificant whitespace removed.
func Canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal canonical: %w", err)
	}
	return raw, nil
}
