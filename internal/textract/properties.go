package textract

import (
	"bytes"
	"encoding/json"
)

// Properties is a string map that remembers insertion order. Setting an
// existing key replaces its value in place.
type Properties struct {
	keys   []string
	values map[string]string
}

// NewProperties creates an empty property set.
func NewProperties() *Properties {
	return &Properties{values: make(map[string]string)}
}

// Set stores value under key.
func (p *Properties) Set(key, value string) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// SetKey stores value under a fused-property key.
func (p *Properties) SetKey(k Key, value string) {
	p.Set(k.String(), value)
}

// Get returns the value stored under key.
func (p *Properties) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (p *Properties) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len returns the number of keys.
func (p *Properties) Len() int {
	return len(p.keys)
}

// Merge copies every entry of other into p, in other's order.
func (p *Properties) Merge(other *Properties) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		p.Set(k, other.values[k])
	}
}

// MarshalJSON encodes the properties as an object in insertion order.
// Strings are written without HTML escaping; an enclosing encoder must also
// have SetEscapeHTML(false) to keep '<', '>' and '&' literal.
func (p *Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(k); err != nil {
			return nil, err
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(p.values[k]); err != nil {
			return nil, err
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// trimNewline drops the newline json.Encoder appends after each value.
func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}
