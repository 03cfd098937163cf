package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/agentstation/gamesync/pkg/errors"
)

// Record is one JSON object from a store.
// Field order and the raw bytes of every value survive a decode/encode round
// trip, so rewriting a store only changes the fields a job actually touched.
type Record struct {
	keys   []string
	fields map[string]json.RawMessage
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{fields: make(map[string]json.RawMessage)}
}

// ParseRecord decodes a single JSON object.
func ParseRecord(data []byte) (*Record, error) {
	r := NewRecord()
	if err := r.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return r, nil
}

// FromValue encodes v, which must encode to a JSON object, into a Record.
// Struct fields keep their declaration order.
func FromValue(v any) (*Record, error) {
	data, err := encode(v)
	if err != nil {
		return nil, err
	}
	return ParseRecord(data)
}

// UnmarshalJSON implements json.Unmarshaler.
// Duplicate keys keep their first position and their last value.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	r.keys = r.keys[:0]
	r.fields = make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if _, seen := r.fields[key]; !seen {
			r.keys = append(r.keys, key)
		}
		r.fields[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected data after JSON object")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := encode(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(r.fields[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Keys returns the field names in document order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Has reports whether the field is present.
func (r *Record) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

// Raw returns the undecoded value of a field.
func (r *Record) Raw(key string) (json.RawMessage, bool) {
	raw, ok := r.fields[key]
	return raw, ok
}

// SetRaw stores an already encoded value, appending the key if it is new.
func (r *Record) SetRaw(key string, raw json.RawMessage) {
	if r.fields == nil {
		r.fields = make(map[string]json.RawMessage)
	}
	if _, ok := r.fields[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.fields[key] = raw
}

// Set encodes v and stores it under key.
func (r *Record) Set(key string, v any) error {
	raw, err := encode(v)
	if err != nil {
		return fmt.Errorf("encoding field %s: %w", key, err)
	}
	r.SetRaw(key, raw)
	return nil
}

// Delete removes a field.
func (r *Record) Delete(key string) {
	if _, ok := r.fields[key]; !ok {
		return
	}
	delete(r.fields, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Get decodes a field into v. A missing field leaves v untouched.
func (r *Record) Get(key string, v any) error {
	raw, ok := r.fields[key]
	if !ok {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// String returns a string field, or "" when absent or not a string.
func (r *Record) String(key string) string {
	var s string
	if err := r.Get(key, &s); err != nil {
		return ""
	}
	return s
}

// Strings returns a string list field, or nil when absent or of another type.
func (r *Record) Strings(key string) []string {
	var s []string
	if err := r.Get(key, &s); err != nil {
		return nil
	}
	return s
}

// ID reads the integer id stored under field.
// Numbers and numeric strings are accepted; zero and negative ids are rejected.
func (r *Record) ID(field string) (int64, error) {
	raw, ok := r.fields[field]
	if !ok {
		return 0, errors.NewValidationError(field, nil, "missing id field")
	}
	id, err := ParseID(raw)
	if err != nil {
		return 0, errors.NewValidationError(field, string(raw), err.Error())
	}
	return id, nil
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := &Record{
		keys:   append([]string(nil), r.keys...),
		fields: make(map[string]json.RawMessage, len(r.fields)),
	}
	for k, v := range r.fields {
		c.fields[k] = append(json.RawMessage(nil), v...)
	}
	return c
}

// ParseID decodes an id from a JSON number or numeric string.
func ParseID(raw json.RawMessage) (int64, error) {
	s := strings.TrimSpace(string(raw))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not an integer id: %s", s)
	}
	if id <= 0 {
		return 0, fmt.Errorf("id must be positive: %d", id)
	}
	return id, nil
}

// encode marshals v without HTML escaping so non-ASCII and <, >, & stay readable.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
