// Package echo provides a parser that answers every prompt with its own
// resolved input. It backs tests and dry runs of a document.
//
// Settings:
//   - fail_on (string): fail when the resolved input contains it.
//   - delay_ms (number): pause between streamed fragments.
//   - prefix (string): prepended to the echoed text.
package echo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aiconfig/internal/parser"
	"aiconfig/pkg/types"
)

// ID is the parser id and the conventional model name.
const ID = "echo"

// Request is the native request of the echo parser.
type Request struct {
	Text        string             `json:"text"`
	Attachments []types.Attachment `json:"attachments,omitempty"`
	Settings    map[string]any     `json:"settings,omitempty"`
}

// Parser echoes resolved inputs.
type Parser struct {
	parser.Parameterized
}

// New returns an echo parser.
func New() *Parser { return &Parser{} }

func (p *Parser) ID() string { return ID }

// Serialize accepts a string, a Request or a list of strings (one prompt
// per turn).
func (p *Parser) Serialize(ctx context.Context, name string, request any, _ *types.Document, _ parser.Params) (prompts []*types.Prompt, err error) {
	end := p.BeginSerialize(ctx, name, request)
	defer func() { end(prompts, err) }()

	var turns []Request
	switch r := request.(type) {
	case string:
		turns = []Request{{Text: r}}
	case Request:
		turns = []Request{r}
	case *Request:
		turns = []Request{*r}
	case []string:
		for _, s := range r {
			turns = append(turns, Request{Text: s})
		}
	default:
		return nil, fmt.Errorf("echo: cannot serialize %T", request)
	}
	for i, t := range turns {
		pr := &types.Prompt{Name: parser.TurnName(name, i+1, len(turns))}
		if len(t.Attachments) > 0 {
			pr.Input = types.StructuredInput(t.Text, t.Attachments...)
		} else {
			pr.Input = types.TextInput(t.Text)
		}
		pr.SetModel(ID, t.Settings)
		prompts = append(prompts, pr)
	}
	return prompts, nil
}

// Deserialize resolves the prompt into a Request.
func (p *Parser) Deserialize(ctx context.Context, prompt *types.Prompt, doc *types.Document, params parser.Params) (any, error) {
	return p.request(ctx, prompt, doc, params)
}

func (p *Parser) request(ctx context.Context, prompt *types.Prompt, doc *types.Document, params parser.Params) (req Request, err error) {
	end := p.BeginDeserialize(ctx, prompt, params)
	defer func() { end(req, err) }()
	text, err := p.ResolveInput(ctx, doc, prompt, params)
	if err != nil {
		return Request{}, err
	}
	return Request{Text: text, Attachments: prompt.Input.Attachments, Settings: p.Settings(doc, prompt)}, nil
}

// RunInference returns the resolved input as a single output. When
// streaming, the text is delivered one word (with its trailing space) at a
// time.
func (p *Parser) RunInference(ctx context.Context, prompt *types.Prompt, doc *types.Document, opts *parser.InferenceOptions, params parser.Params) ([]types.Output, error) {
	req, err := p.request(ctx, prompt, doc, params)
	if err != nil {
		return nil, err
	}
	if failOn := parser.StringSetting(req.Settings, "fail_on", ""); failOn != "" && strings.Contains(req.Text, failOn) {
		return nil, fmt.Errorf("echo: input contains %q", failOn)
	}
	text := parser.StringSetting(req.Settings, "prefix", "") + req.Text
	meta := func(int) map[string]any { return map[string]any{"finish_reason": "stop"} }

	if !opts.Streaming() {
		if err := ctx.Err(); err != nil {
			return cancelled(err, nil)
		}
		return []types.Output{types.NewResult(types.TextData(text), meta(0))}, nil
	}

	var delay time.Duration
	if ms, ok := parser.IntSetting(req.Settings, "delay_ms"); ok && ms > 0 {
		delay = time.Duration(ms) * time.Millisecond
	}
	acc := parser.NewStreamAccumulator(opts)
	for i, frag := range Fragments(text) {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return cancelled(err, acc)
		}
		acc.Add(0, frag)
	}
	return acc.Outputs(meta), nil
}

func cancelled(err error, acc *parser.StreamAccumulator) ([]types.Output, error) {
	if !errors.Is(err, context.Canceled) {
		return nil, err
	}
	if acc == nil {
		return []types.Output{types.NewCancelled("")}, nil
	}
	return acc.Cancelled(), nil
}

func (p *Parser) GetOutputText(prompt *types.Prompt, _ *types.Document, o *types.Output) (string, error) {
	if s, ok := p.OutputText(prompt, o); ok {
		return s, nil
	}
	return "", fmt.Errorf("echo: output has no text")
}

// Fragments splits s after each run of spaces, so concatenating the
// fragments gives back s.
func Fragments(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' && (i+1 == len(s) || s[i+1] != ' ') {
			out = append(out, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

var _ parser.Parser = (*Parser)(nil)
