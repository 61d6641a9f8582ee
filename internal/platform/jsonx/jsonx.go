// Package jsonx holds lenient JSON scalar types for decoding upstream payloads whose fields
// arrive as strings in one response and numbers in the next.
package jsonx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Text decodes a JSON string, number or boolean into its textual form. null decodes to "".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*t = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	case b[0] == '{' || b[0] == '[':
		return fmt.Errorf("jsonx: cannot decode %s into text", b[:1])
	default:
		*t = Text(b)
	}
	return nil
}

func (t Text) String() string { return string(t) }

// Int decodes a JSON number or numeric string. Absent, null, empty and non-numeric values leave
// it unset rather than failing the whole payload.
type Int struct {
	Value int
	Valid bool
}

func (i *Int) UnmarshalJSON(b []byte) error {
	var t Text
	if err := t.UnmarshalJSON(b); err != nil {
		*i = Int{}
		return nil
	}
	s := strings.TrimSpace(string(t))
	if s == "" {
		*i = Int{}
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		*i = Int{Value: n, Valid: true}
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		*i = Int{Value: int(f), Valid: true}
		return nil
	}
	*i = Int{}
	return nil
}

// Ptr returns nil when unset.
func (i Int) Ptr() *int {
	if !i.Valid {
		return nil
	}
	v := i.Value
	return &v
}

// Bool decodes loosely: true, non-zero numbers and "true"/"1" strings are true.
type Bool bool

func (v *Bool) UnmarshalJSON(b []byte) error {
	var t Text
	if err := t.UnmarshalJSON(b); err != nil {
		*v = false
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(string(t))) {
	case "", "false", "0", "null":
		*v = false
	default:
		*v = true
	}
	return nil
}
