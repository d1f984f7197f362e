// internal/models/params.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// nullSentinel is how callers spell "not provided" in request payloads.
const nullSentinel = "null"

// Params is the immutable, ordered set of request parameters. Absent values
// (JSON null or the "null" sentinel) are never stored, so Get is the single
// source of truth for presence.
type Params struct {
	keys   []string
	values map[string]string
}

// NewParams builds Params from a plain map. Keys are ordered lexically so the
// result is deterministic.
func NewParams(values map[string]string) Params {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := Params{values: make(map[string]string, len(values))}
	for _, k := range keys {
		p = p.set(k, values[k])
	}
	return p
}

// ParseParams decodes a flat JSON object, keeping the key order of the payload.
// Strings, numbers and booleans are stored in their textual form; nested
// objects and arrays are rejected.
func ParseParams(data []byte) (Params, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Params{}, fmt.Errorf("parse params: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return Params{}, fmt.Errorf("parse params: expected JSON object")
	}

	p := Params{values: make(map[string]string)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Params{}, fmt.Errorf("parse params: %w", err)
		}
		key, _ := keyTok.(string)

		valTok, err := dec.Token()
		if err != nil {
			return Params{}, fmt.Errorf("parse params: %w", err)
		}

		switch v := valTok.(type) {
		case nil:
			p = p.without(key)
		case string:
			p = p.set(key, v)
		case json.Number:
			p = p.set(key, v.String())
		case bool:
			p = p.set(key, strconv.FormatBool(v))
		case json.Delim:
			return Params{}, fmt.Errorf("parse params: field %q must be a scalar value", key)
		}
	}

	if _, err := dec.Token(); err != nil {
		return Params{}, fmt.Errorf("parse params: %w", err)
	}
	return p, nil
}

// Get returns the value for name and whether it was provided.
func (p Params) Get(name string) (string, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Has reports whether name was provided.
func (p Params) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Ptr returns the value as a pointer, nil when absent. Used where absence has
// to survive JSON encoding as null.
func (p Params) Ptr(name string) *string {
	v, ok := p.values[name]
	if !ok {
		return nil
	}
	return &v
}

// With returns a copy of p with name set to value.
func (p Params) With(name, value string) Params {
	return p.clone().set(name, value)
}

func (p Params) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Map returns a copy of the present values.
func (p Params) Map() map[string]string {
	out := make(map[string]string, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// MarshalJSON writes the present values in insertion order.
func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(p.values[k])
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON lets Params sit directly inside job variable structs.
func (p *Params) UnmarshalJSON(data []byte) error {
	parsed, err := ParseParams(data)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Params) clone() Params {
	out := Params{
		keys:   make([]string, len(p.keys)),
		values: make(map[string]string, len(p.values)),
	}
	copy(out.keys, p.keys)
	for k, v := range p.values {
		out.values[k] = v
	}
	return out
}

func (p Params) set(name, value string) Params {
	if strings.EqualFold(value, nullSentinel) {
		return p.without(name)
	}
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, exists := p.values[name]; !exists {
		p.keys = append(p.keys, name)
	}
	p.values[name] = value
	return p
}

func (p Params) without(name string) Params {
	if _, exists := p.values[name]; !exists {
		return p
	}
	delete(p.values, name)
	for i, k := range p.keys {
		if k == name {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
	return p
}
