package ygggo_formsql

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FormSchema is the JSON-schema description of a submitted form.
type FormSchema struct {
	Type       string     `json:"type"`
	Properties Properties `json:"properties"`
}

// Property is one field of a form schema. Extra holds every key of the
// property object other than "type".
type Property struct {
	Name  string
	Type  string
	Extra map[string]any
}

// Properties keeps schema fields in declaration order; that order becomes the
// column order of synthesized INSERTs.
type Properties []Property

// UnmarshalJSON decodes a JSON object while keeping key order. A repeated key
// keeps its first position and takes the last value.
func (ps *Properties) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*ps = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("properties: expected object, got %v", tok)
	}
	out := Properties{}
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := keyTok.(string)
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("properties: field %q: %w", name, err)
		}
		if raw == nil {
			return fmt.Errorf("properties: field %q must be an object", name)
		}
		p := Property{Name: name}
		if t, ok := raw["type"].(string); ok {
			p.Type = t
		}
		delete(raw, "type")
		if len(raw) > 0 {
			p.Extra = raw
		}
		if i, dup := index[name]; dup {
			out[i] = p
			continue
		}
		index[name] = len(out)
		out = append(out, p)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*ps = out
	return nil
}

// MarshalJSON writes the properties back as an object in declaration order.
func (ps Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range ps {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		obj := make(map[string]any, len(p.Extra)+1)
		for k, v := range p.Extra {
			obj[k] = v
		}
		if p.Type != "" {
			obj["type"] = p.Type
		}
		val, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Destination names the database and table a submission is written to.
type Destination struct {
	URL   string `json:"url"`
	Table string `json:"table"`
}

// Synthesize builds the INSERT template for a submission.
//
// Properties are visited in declaration order and a column is emitted only when its
// key is present in data, whatever the schema says about required fields. The table
// name is written verbatim. When nothing matches the result is the zero-column
// "INSERT INTO t () VALUES ()", left for the database to reject.
func Synthesize(schema FormSchema, dest Destination, data map[string]any) (string, error) {
	if schema.Type != "object" {
		return "", &UnsupportedSchemaTypeError{Type: schema.Type}
	}
	cols := make([]string, 0, len(schema.Properties))
	vals := make([]string, 0, len(schema.Properties))
	for _, p := range schema.Properties {
		if _, ok := data[p.Name]; !ok {
			continue
		}
		cols = append(cols, p.Name)
		if p.Type == "" {
			vals = append(vals, "{"+p.Name+"}")
		} else {
			vals = append(vals, "{"+p.Name+":"+p.Type+"}")
		}
	}
	var b strings.Builder
	b.Grow(32 + len(dest.Table) + 16*len(cols))
	b.WriteString("INSERT INTO ")
	b.WriteString(dest.Table)
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ","))
	b.WriteString(") VALUES (")
	b.WriteString(strings.Join(vals, ","))
	b.WriteString(")")
	return b.String(), nil
}
