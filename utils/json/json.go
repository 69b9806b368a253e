package json

import (
	"bytes"
	"encoding/json"
)

// Marshal encodes v without escaping &, < and >, which page text and templates use freely.
func Marshal(v interface{}) ([]byte, error) {
	return Marshal2(v, false)
}

// Marshal2 encodes v, escaping HTML characters when escapeHTML is true.
func Marshal2(v interface{}, escapeHTML bool) ([]byte, error) {
	var byteBuf bytes.Buffer
	encoder := json.NewEncoder(&byteBuf)
	encoder.SetEscapeHTML(escapeHTML)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	// Encode terminates the document with a newline
	return bytes.TrimSuffix(byteBuf.Bytes(), []byte("\n")), nil
}

// Unmarshal decodes b into v.
func Unmarshal(b []byte, v interface{}) error {
	return json.Unmarshal(b, v)
}

// Format indents a JSON document with two spaces.
func Format(b []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// MarshalIndent encodes v without HTML escaping and indents it.
func MarshalIndent(v interface{}) ([]byte, error) {
	b, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	return Format(b)
}
