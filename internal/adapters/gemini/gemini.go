// Package gemini runs prompts through the Gemini API via the official genai
// client.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	genai "google.golang.org/genai"

	"aiconfig/internal/adapters/chat"
	"aiconfig/internal/parser"
	"aiconfig/pkg/types"
)

// ID is the parser id.
const ID = "gemini"

const roleModel = "model"

// Config configures the client. An empty APIKey lets genai read it from
// the environment.
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Parser implements parser.Parser over genai.
type Parser struct {
	parser.Parameterized
	cli *genai.Client
}

// Request is the native request of the gemini parser.
type Request struct {
	Model    string
	Contents []*genai.Content
	Config   *genai.GenerateContentConfig
}

// New returns a parser backed by the Gemini API.
func New(ctx context.Context, cfg Config) (*Parser, error) {
	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI, HTTPClient: cfg.HTTPClient}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &Parser{cli: cli}, nil
}

func (p *Parser) ID() string { return ID }

// Serialize accepts a Request, a chat.Request or a plain string.
func (p *Parser) Serialize(ctx context.Context, name string, request any, _ *types.Document, _ parser.Params) (prompts []*types.Prompt, err error) {
	end := p.BeginSerialize(ctx, name, request)
	defer func() { end(prompts, err) }()

	var req chat.Request
	switch r := request.(type) {
	case string:
		req = chat.Request{Turns: []chat.Turn{{Role: chat.RoleUser, Text: r}}}
	case chat.Request:
		req = r
	case Request:
		req = fromGenai(r)
	case *Request:
		req = fromGenai(*r)
	default:
		return nil, fmt.Errorf("gemini: cannot serialize %T", request)
	}
	settings := req.Settings()
	if req.Model != "" {
		settings["model"] = req.Model
	}
	prompts = chat.Prompts(name, "", settings, req.Turns)
	if len(prompts) == 0 {
		return nil, fmt.Errorf("gemini: request has no user message")
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
	cr, err := chat.Build(ctx, p.Parameterized, doc, prompt, params)
	if err != nil {
		return Request{}, err
	}
	req = toGenai(cr)
	if n, ok := parser.IntSetting(p.Settings(doc, prompt), "candidate_count"); ok && n > 1 {
		req.Config.CandidateCount = int32(n)
	}
	return req, nil
}

// RunInference generates content; each candidate becomes one output.
func (p *Parser) RunInference(ctx context.Context, prompt *types.Prompt, doc *types.Document, opts *parser.InferenceOptions, params parser.Params) ([]types.Output, error) {
	req, err := p.request(ctx, prompt, doc, params)
	if err != nil {
		return nil, err
	}
	if !opts.Streaming() {
		resp, err := p.cli.Models.GenerateContent(ctx, req.Model, req.Contents, req.Config)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		if len(resp.Candidates) == 0 {
			return nil, fmt.Errorf("gemini: response has no candidates")
		}
		outs := make([]types.Output, 0, len(resp.Candidates))
		for _, c := range resp.Candidates {
			outs = append(outs, types.NewResult(types.TextData(candidateText(c)), map[string]any{
				"finish_reason": string(c.FinishReason),
				"model":         req.Model,
			}))
		}
		return outs, nil
	}

	acc := parser.NewStreamAccumulator(opts)
	finish := map[int]string{}
	for resp, err := range p.cli.Models.GenerateContentStream(ctx, req.Model, req.Contents, req.Config) {
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return acc.Cancelled(), nil
			}
			return nil, fmt.Errorf("gemini: %w", err)
		}
		for _, c := range resp.Candidates {
			acc.Add(int(c.Index), candidateText(c))
			if c.FinishReason != "" {
				finish[int(c.Index)] = string(c.FinishReason)
			}
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return acc.Cancelled(), nil
		}
	}
	return acc.Outputs(func(i int) map[string]any {
		return map[string]any{"finish_reason": finish[i], "model": req.Model}
	}), nil
}

func candidateText(c *genai.Candidate) string {
	if c == nil || c.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range c.Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func (p *Parser) GetOutputText(prompt *types.Prompt, _ *types.Document, o *types.Output) (string, error) {
	if s, ok := p.OutputText(prompt, o); ok {
		return s, nil
	}
	return "", fmt.Errorf("gemini: output has no text")
}

func toGenai(r chat.Request) Request {
	contents := make([]*genai.Content, 0, len(r.Turns))
	for _, t := range r.Turns {
		role := chat.RoleUser
		if t.Role == chat.RoleAssistant {
			role = roleModel
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: t.Text}}})
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:     r.Temperature,
		TopP:            r.TopP,
		MaxOutputTokens: int32(r.MaxTokens),
		StopSequences:   r.Stop,
	}
	if r.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: r.System}}}
	}
	return Request{Model: r.Model, Contents: contents, Config: cfg}
}

func fromGenai(r Request) chat.Request {
	out := chat.Request{Model: r.Model}
	if c := r.Config; c != nil {
		out.Temperature, out.TopP = c.Temperature, c.TopP
		out.MaxTokens = int(c.MaxOutputTokens)
		out.Stop = c.StopSequences
		if c.SystemInstruction != nil {
			out.System = contentText(c.SystemInstruction)
		}
	}
	for _, c := range r.Contents {
		role := chat.RoleUser
		if c.Role == roleModel {
			role = chat.RoleAssistant
		}
		out.Turns = append(out.Turns, chat.Turn{Role: role, Text: contentText(c)})
	}
	return out
}

func contentText(c *genai.Content) string {
	var sb strings.Builder
	for _, part := range c.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

var _ parser.Parser = (*Parser)(nil)
