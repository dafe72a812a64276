package jsonutil

import (
	"bytes"
	"encoding/json"
)

// IsNull reports whether a raw JSON value is absent or an explicit null.
// Callers use this to tell "field omitted" apart from "field present with a
// bad value".
func IsNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// AsString decodes raw as a JSON string. ok is false when the value is
// present but not a string.
func AsString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// AsObject decodes raw as a JSON object. ok is false when the value is
// present but not an object (a string, list, number or boolean), which
// callers report as a wrong-type error distinct from an empty object.
func AsObject(raw json.RawMessage) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	return m, true
}

// AsStringList decodes raw as a JSON array of strings.
func AsStringList(raw json.RawMessage) ([]string, bool) {
	var l []string
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, false
	}
	return l, true
}
