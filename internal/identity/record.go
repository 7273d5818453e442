package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// AddressFields are the synthetic dotted sub-fields that select one address
// component during projection.
var AddressFields = []string{"address_street", "address_city", "address_state", "address_country"}

// ValidFields lists every key a projection may request.
var ValidFields = append([]string{
	"first_name", "last_name", "full_name", "email", "phone", "address",
	"username", "birthdate", "password", "created", "email_token",
}, AddressFields...)

// Field is one key/value pair of a record. Value is a string or a nested Record.
type Field struct {
	Key   string
	Value any
}

// Record is an ordered set of fields. Serialization keeps the field order.
type Record []Field

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// String returns the value under key as a string, or "" if it is absent or
// not a string.
func (r Record) String(key string) string {
	v, _ := r.Get(key)
	s, _ := v.(string)
	return s
}

// Keys returns the field keys in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

// IsValidField reports whether name may be used in a projection.
func IsValidField(name string) bool {
	return slices.Contains(ValidFields, name)
}

// Project returns a new record holding only the requested keys, in the order
// requested. address_<sub> keys pull a single component out of the nested
// address. Keys the record does not carry, and repeats, are skipped.
func (r Record) Project(fields []string) Record {
	out := make(Record, 0, len(fields))
	for _, name := range fields {
		if _, dup := out.Get(name); dup {
			continue
		}
		if v, ok := r.Get(name); ok {
			out = append(out, Field{Key: name, Value: v})
			continue
		}

		if !slices.Contains(AddressFields, name) {
			continue
		}
		addr, ok := r.Get("address")
		if !ok {
			continue
		}
		nested, ok := addr.(Record)
		if !ok {
			continue
		}
		if v, ok := nested.Get(strings.TrimPrefix(name, "address_")); ok {
			out = append(out, Field{Key: name, Value: v})
		}
	}
	return out
}

// Flatten lifts nested records into <key>_<subkey> fields.
func (r Record) Flatten() Record {
	out := make(Record, 0, len(r)+3)
	for _, f := range r {
		nested, ok := f.Value.(Record)
		if !ok {
			out = append(out, f)
			continue
		}
		for _, sub := range nested {
			out = append(out, Field{Key: f.Key + "_" + sub.Key, Value: sub.Value})
		}
	}
	return out
}

// MarshalJSON encodes the record as a JSON object in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshalJSON(f.Key)
		if err != nil {
			return nil, fmt.Errorf("marshal key %s: %w", f.Key, err)
		}
		v, err := marshalJSON(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", f.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// MarshalYAML encodes the record as a YAML mapping in field order.
func (r Record) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range r {
		var k, v yaml.Node
		if err := k.Encode(f.Key); err != nil {
			return nil, fmt.Errorf("marshal key %s: %w", f.Key, err)
		}
		if err := v.Encode(f.Value); err != nil {
			return nil, fmt.Errorf("marshal %s: %w", f.Key, err)
		}
		node.Content = append(node.Content, &k, &v)
	}
	return node, nil
}
