package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Parsed holds a decoded argument object. Fields are read with the typed
// accessors; a field that is present with the wrong type is recorded in
// Skipped and read as absent.
type Parsed struct {
	fields  map[string]any
	Skipped []string
}

// Parse decodes raw tool arguments. Malformed JSON is repaired when possible.
// An empty payload decodes as an empty object. Anything that is not an
// object is an error.
func Parse(raw string) (*Parsed, error) {
	p := &Parsed{fields: map[string]any{}}
	if strings.TrimSpace(raw) == "" {
		return p, nil
	}
	var v any
	if err := unmarshalJSON([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("tools: parse arguments: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("tools: parse arguments: not an object")
	}
	p.fields = obj
	return p, nil
}

func unmarshalJSON(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		fixed, rerr := jsonrepair.JSONRepair(string(data))
		if rerr != nil {
			return err
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}

// String returns the trimmed string value of key. Numbers and booleans are
// formatted; other types are skipped.
func (p *Parsed) String(key string) string {
	v, ok := p.fields[key]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	p.skip(key)
	return ""
}

// List returns key as an ordered list. A string is split on commas; an array
// of strings is taken as is. Items are trimmed and empty items dropped.
func (p *Parsed) List(key string) []string {
	v, ok := p.fields[key]
	if !ok || v == nil {
		return nil
	}
	var items []string
	switch x := v.(type) {
	case string:
		items = strings.Split(x, ",")
	case []any:
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				p.skip(key)
				return nil
			}
			items = append(items, s)
		}
	default:
		p.skip(key)
		return nil
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (p *Parsed) skip(key string) {
	for _, k := range p.Skipped {
		if k == key {
			return
		}
	}
	p.Skipped = append(p.Skipped, key)
}
