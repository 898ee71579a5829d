package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
)

// SchemaVersionLatest is written by Create when no version is supplied.
const SchemaVersionLatest = "latest"

// Document is the declarative config: named prompts, the models they target,
// shared parameters and the outputs of the last run of each prompt.
type Document struct {
	// Human-friendly document name.
	// example: travel-planner
	Name string `json:"name" example:"travel-planner"`
	// Free-form description.
	Description string `json:"description"`
	// Opaque schema version string.
	// example: latest
	SchemaVersion string `json:"schema_version" example:"latest"`
	// Global metadata shared by all prompts.
	Metadata DocumentMetadata `json:"metadata"`
	// Ordered prompts; names are unique.
	Prompts []*Prompt `json:"prompts"`
}

// DocumentMetadata holds the global model settings and parameters.
type DocumentMetadata struct {
	// Model used by prompts that do not name one.
	DefaultModel string `json:"default_model,omitempty"`
	// Default settings per model id.
	Models map[string]map[string]any `json:"models,omitempty"`
	// Optional model id -> parser id override.
	ModelParsers map[string]string `json:"model_parsers,omitempty"`
	// Global template parameters.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Prompt is one named unit of input within a Document.
type Prompt struct {
	Name     string         `json:"name"`
	Input    PromptInput    `json:"input"`
	Metadata PromptMetadata `json:"metadata"`
	Outputs  []Output       `json:"outputs,omitempty"`
}

// PromptMetadata carries the model reference and per-prompt overrides.
type PromptMetadata struct {
	Model      *ModelRef      `json:"model,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	// RememberChatContext makes chat parsers replay earlier prompts that
	// target the same model as conversation turns.
	RememberChatContext *bool `json:"remember_chat_context,omitempty"`
}

// ModelRef is either a bare model id or {name, settings}. A nil Settings map
// encodes as the bare string form.
type ModelRef struct {
	Name     string
	Settings map[string]any
}

type modelRefObject struct {
	Name     string         `json:"name"`
	Settings map[string]any `json:"settings"`
}

func (m ModelRef) MarshalJSON() ([]byte, error) {
	if m.Settings == nil {
		return encodeJSON(m.Name)
	}
	return encodeJSON(modelRefObject{Name: m.Name, Settings: m.Settings})
}

func (m *ModelRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		m.Settings = nil
		return json.Unmarshal(b, &m.Name)
	}
	var obj modelRefObject
	if err := decodeJSON(b, &obj); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	m.Name = obj.Name
	m.Settings = obj.Settings
	if m.Settings == nil {
		m.Settings = map[string]any{}
	}
	return nil
}

// Attachment is a typed payload carried by a structured prompt input.
type Attachment struct {
	MimeType string         `json:"mime_type"`
	Data     any            `json:"data"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// PromptInput is either a plain template string or a structured payload
// (data plus attachments).
type PromptInput struct {
	Text        string
	Data        any
	Attachments []Attachment
	Structured  bool
}

type promptInputObject struct {
	Data        any          `json:"data"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// TextInput returns a plain string input.
func TextInput(s string) PromptInput { return PromptInput{Text: s} }

// StructuredInput returns a structured input.
func StructuredInput(data any, attachments ...Attachment) PromptInput {
	in := PromptInput{Data: data, Attachments: attachments, Structured: true}
	if s, ok := data.(string); ok {
		in.Text = s
	}
	return in
}

// TemplateText is the text the resolver expands: the plain string, or the
// structured data when it is a string, or the JSON encoding of the data.
func (in PromptInput) TemplateText() string {
	if !in.Structured {
		return in.Text
	}
	switch v := in.Data.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := encodeJSON(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

func (in PromptInput) MarshalJSON() ([]byte, error) {
	if !in.Structured {
		return encodeJSON(in.Text)
	}
	return encodeJSON(promptInputObject{Data: in.Data, Attachments: in.Attachments})
}

func (in *PromptInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		*in = PromptInput{}
		return json.Unmarshal(b, &in.Text)
	}
	if len(b) == 0 || b[0] != '{' {
		return fmt.Errorf("input: expected string or object")
	}
	var obj promptInputObject
	if err := decodeJSON(b, &obj); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	*in = StructuredInput(obj.Data, obj.Attachments...)
	return nil
}

var promptNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidPromptName reports whether name can be referenced from templates.
func ValidPromptName(name string) bool { return promptNamePattern.MatchString(name) }

// ModelName returns the model id the prompt names, or "".
func (p *Prompt) ModelName() string {
	if p.Metadata.Model == nil {
		return ""
	}
	return p.Metadata.Model.Name
}

// SetModel points the prompt at a model id. Nil settings keep the bare form.
func (p *Prompt) SetModel(id string, settings map[string]any) {
	p.Metadata.Model = &ModelRef{Name: id, Settings: settings}
}

// LatestOutput returns the most recent output, if any.
func (p *Prompt) LatestOutput() (Output, bool) {
	if len(p.Outputs) == 0 {
		return Output{}, false
	}
	return p.Outputs[len(p.Outputs)-1], true
}

// AddOutput appends an output to the prompt.
func (p *Prompt) AddOutput(o Output) { p.Outputs = append(p.Outputs, o) }

// ClearOutputs drops all outputs.
func (p *Prompt) ClearOutputs() { p.Outputs = nil }

// Clone returns a deep-enough copy: maps and slices owned by the prompt are
// copied, values stored inside them are shared.
func (p *Prompt) Clone() *Prompt {
	if p == nil {
		return nil
	}
	c := *p
	if p.Metadata.Model != nil {
		m := *p.Metadata.Model
		m.Settings = cloneMap(p.Metadata.Model.Settings)
		c.Metadata.Model = &m
	}
	c.Metadata.Parameters = cloneMap(p.Metadata.Parameters)
	c.Metadata.Tags = append([]string(nil), p.Metadata.Tags...)
	c.Input.Attachments = append([]Attachment(nil), p.Input.Attachments...)
	c.Outputs = append([]Output(nil), p.Outputs...)
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// decodeJSON decodes with UseNumber so numeric values keep their text form.
func decodeJSON(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}

// encodeJSON is json.Marshal without HTML escaping, so text survives a
// load/save cycle byte for byte.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
