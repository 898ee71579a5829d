// Package view extracts presentable values from recorded outputs.
package view

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"aiconfig/pkg/types"
)

// Text returns the canonical text of an output. Error outputs have none.
// JSON payloads in the common chat shapes ({"content": ...},
// {"message": {"content": ...}}, {"text": ...}) yield the inner text; any
// other JSON value yields its compact encoding.
func Text(o *types.Output) (string, bool) {
	if o == nil || o.IsError() {
		return "", false
	}
	switch o.Data.Kind {
	case types.DataText:
		return o.Data.Text, true
	case types.DataBinary:
		if strings.HasPrefix(o.MimeType, "text/") {
			return string(o.Data.Binary), true
		}
		return "", false
	case types.DataJSON:
		if s, ok := chatText(o.Data.JSON); ok {
			return s, true
		}
		return encode(o.Data.JSON), true
	default:
		return "", false
	}
}

// Binary returns the raw bytes of an output: binary payloads as-is, text
// payloads as UTF-8.
func Binary(o *types.Output) ([]byte, bool) {
	if o == nil || o.IsError() {
		return nil, false
	}
	switch o.Data.Kind {
	case types.DataBinary:
		return o.Data.Binary, true
	case types.DataText:
		return []byte(o.Data.Text), true
	default:
		return nil, false
	}
}

// Summary renders any output as a single display string.
func Summary(o *types.Output) string {
	if o == nil {
		return ""
	}
	if o.IsError() {
		return fmt.Sprintf("[%s] %s", o.EName, o.EValue)
	}
	if s, ok := Text(o); ok {
		if o.Cancelled() {
			return s + " [cancelled]"
		}
		return s
	}
	return fmt.Sprintf("<%s, %d bytes>", mimeOr(o.MimeType, "binary"), len(o.Data.Binary))
}

func chatText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case map[string]any:
		for _, k := range []string{"content", "text"} {
			if s, ok := t[k].(string); ok {
				return s, true
			}
		}
		if m, ok := t["message"].(map[string]any); ok {
			if s, ok := m["content"].(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

func encode(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func mimeOr(m, def string) string {
	if m == "" {
		return def
	}
	return m
}
