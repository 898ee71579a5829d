package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"aiconfig/pkg/types"
)

// Decode parses b as a document in format f and validates it.
//
// YAML is first normalised into JSON so both formats share the typed
// decoders and the same number handling.
func Decode(b []byte, f Format) (*types.Document, error) {
	if f == FormatYAML {
		var v any
		if err := yaml.Unmarshal(b, &v); err != nil {
			return nil, types.ErrInvalidConfig("yaml: %v", err)
		}
		jb, err := json.Marshal(normalizeYAML(v))
		if err != nil {
			return nil, types.ErrInvalidConfig("yaml: %v", err)
		}
		b = jb
	}
	var raw any
	if err := decodeStrict(b, &raw); err != nil {
		return nil, types.ErrInvalidConfig("json: %v", err)
	}
	if err := checkShape(raw); err != nil {
		return nil, err
	}
	var doc types.Document
	if err := decodeStrict(b, &doc); err != nil {
		return nil, types.ErrInvalidConfig("%v", err)
	}
	if doc.Prompts == nil {
		doc.Prompts = []*types.Prompt{}
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Encode renders doc in format f with canonical key order: struct fields
// in declaration order, map keys sorted.
func Encode(doc *types.Document, f Format, includeOutputs bool) ([]byte, error) {
	out := *doc
	out.Prompts = make([]*types.Prompt, 0, len(doc.Prompts))
	for _, p := range doc.Prompts {
		if p == nil {
			continue
		}
		if !includeOutputs {
			c := *p
			c.Outputs = nil
			p = &c
		}
		out.Prompts = append(out.Prompts, p)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if f == FormatJSON {
		return buf.Bytes(), nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal(buf.Bytes(), &node); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	clearStyle(&node)
	var yb bytes.Buffer
	ye := yaml.NewEncoder(&yb)
	ye.SetIndent(2)
	if err := ye.Encode(&node); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if err := ye.Close(); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return yb.Bytes(), nil
}

// clearStyle drops the flow and quoting styles inherited from the JSON
// source so the encoder emits block YAML. Strings that would read back as
// another type are still quoted by the encoder.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}

func decodeStrict(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after document")
	}
	return nil
}

// normalizeYAML converts map[any]any (non-string keys) into map[string]any
// so the value can be re-encoded as JSON.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeYAML(e)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = normalizeYAML(e)
		}
		return m
	case []any:
		for i, e := range t {
			t[i] = normalizeYAML(e)
		}
		return t
	default:
		return v
	}
}
