package parser

import (
	"encoding/json"
	"strconv"
)

// Settings loaded from a document keep numbers as json.Number; settings
// built in code use Go numbers. These helpers accept both.

// FloatSetting reads a numeric setting.
func FloatSetting(settings map[string]any, key string) (float64, bool) {
	switch v := settings[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// IntSetting reads an integral setting.
func IntSetting(settings map[string]any, key string) (int, bool) {
	switch v := settings[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true
		}
	}
	if f, ok := FloatSetting(settings, key); ok {
		return int(f), true
	}
	return 0, false
}

// BoolSetting reads a boolean setting.
func BoolSetting(settings map[string]any, key string) (bool, bool) {
	b, ok := settings[key].(bool)
	return b, ok
}

// StringsSetting reads a list of strings (e.g. stop sequences). A single
// string is a one-element list.
func StringsSetting(settings map[string]any, key string) []string {
	switch v := settings[key].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
