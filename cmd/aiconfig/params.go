package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"aiconfig/internal/parser"
)

// parseParams turns repeated k=v flags into parameters. Values are read as
// YAML scalars, so "n=3" yields an int and "ok=true" a bool; anything that
// does not parse stays a string.
func parseParams(pairs []string) (parser.Params, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := parser.Params{}
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q (want key=value)", kv)
		}
		out[k] = scalar(v)
	}
	return out, nil
}

func scalar(s string) any {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	switch v.(type) {
	case int, float64, bool:
		return v
	}
	return s
}

// loadParamsFile reads a YAML (or JSON) list of parameter maps.
func loadParamsFile(path string) ([]parser.Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	out := make([]parser.Params, len(raw))
	for i, m := range raw {
		out[i] = parser.Params(m)
	}
	return out, nil
}

// merge overlays b on a; b wins.
func merge(a, b parser.Params) parser.Params {
	if len(a) == 0 {
		return b
	}
	out := make(parser.Params, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
