// Package openai runs prompts through the OpenAI chat completions API (or
// any compatible endpoint).
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"aiconfig/internal/adapters/chat"
	"aiconfig/internal/parser"
	"aiconfig/pkg/types"
)

// ID is the parser id.
const ID = "openai"

// Config configures the client.
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Parser implements parser.Parser over go-openai.
type Parser struct {
	parser.Parameterized
	client *openai.Client
}

// New returns a parser talking to cfg.BaseURL (the public API when empty).
func New(cfg Config) (*Parser, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}
	return &Parser{client: openai.NewClientWithConfig(config)}, nil
}

func (p *Parser) ID() string { return ID }

// Serialize accepts an openai.ChatCompletionRequest (or pointer), a
// chat.Request or a plain string. System messages become the
// system_prompt setting; each user message becomes one prompt and the
// assistant reply that follows it becomes that prompt's output.
func (p *Parser) Serialize(ctx context.Context, name string, request any, _ *types.Document, _ parser.Params) (prompts []*types.Prompt, err error) {
	end := p.BeginSerialize(ctx, name, request)
	defer func() { end(prompts, err) }()

	var req chat.Request
	switch r := request.(type) {
	case string:
		req = chat.Request{Turns: []chat.Turn{{Role: chat.RoleUser, Text: r}}}
	case chat.Request:
		req = r
	case openai.ChatCompletionRequest:
		req = fromOpenAI(r)
	case *openai.ChatCompletionRequest:
		req = fromOpenAI(*r)
	default:
		return nil, fmt.Errorf("openai: cannot serialize %T", request)
	}
	settings := req.Settings()
	if req.Model != "" {
		settings["model"] = req.Model
	}
	prompts = chat.Prompts(name, "", settings, req.Turns)
	if len(prompts) == 0 {
		return nil, fmt.Errorf("openai: request has no user message")
	}
	return prompts, nil
}

// Deserialize resolves the prompt into an openai.ChatCompletionRequest.
func (p *Parser) Deserialize(ctx context.Context, prompt *types.Prompt, doc *types.Document, params parser.Params) (any, error) {
	return p.request(ctx, prompt, doc, params)
}

func (p *Parser) request(ctx context.Context, prompt *types.Prompt, doc *types.Document, params parser.Params) (req openai.ChatCompletionRequest, err error) {
	end := p.BeginDeserialize(ctx, prompt, params)
	defer func() { end(req, err) }()
	cr, err := chat.Build(ctx, p.Parameterized, doc, prompt, params)
	if err != nil {
		return openai.ChatCompletionRequest{}, err
	}
	req = toOpenAI(cr)
	if n, ok := parser.IntSetting(p.Settings(doc, prompt), "n"); ok && n > 1 {
		req.N = n
	}
	return req, nil
}

// RunInference sends the chat request. Every returned choice becomes one
// output, in choice order.
func (p *Parser) RunInference(ctx context.Context, prompt *types.Prompt, doc *types.Document, opts *parser.InferenceOptions, params parser.Params) ([]types.Output, error) {
	req, err := p.request(ctx, prompt, doc, params)
	if err != nil {
		return nil, err
	}
	if !opts.Streaming() {
		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		outs := make([]types.Output, 0, len(resp.Choices))
		for _, c := range resp.Choices {
			outs = append(outs, types.NewResult(types.TextData(c.Message.Content), map[string]any{
				"finish_reason": string(c.FinishReason),
				"model":         resp.Model,
				"id":            resp.ID,
			}))
		}
		if len(outs) == 0 {
			return nil, fmt.Errorf("openai: response has no choices")
		}
		return outs, nil
	}

	req.Stream = true
	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	defer stream.Close()

	acc := parser.NewStreamAccumulator(opts)
	finish := map[int]string{}
	var model, id string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return acc.Cancelled(), nil
			}
			return nil, fmt.Errorf("openai: %w", err)
		}
		model, id = chunk.Model, chunk.ID
		for _, c := range chunk.Choices {
			acc.Add(c.Index, c.Delta.Content)
			if c.FinishReason != "" {
				finish[c.Index] = string(c.FinishReason)
			}
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return acc.Cancelled(), nil
		}
	}
	return acc.Outputs(func(i int) map[string]any {
		return map[string]any{"finish_reason": finish[i], "model": model, "id": id}
	}), nil
}

func (p *Parser) GetOutputText(prompt *types.Prompt, _ *types.Document, o *types.Output) (string, error) {
	if s, ok := p.OutputText(prompt, o); ok {
		return s, nil
	}
	return "", fmt.Errorf("openai: output has no text")
}

func toOpenAI(r chat.Request) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(r.Turns)+1)
	if r.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: r.System})
	}
	for _, t := range r.Turns {
		role := openai.ChatMessageRoleUser
		if t.Role == chat.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Text})
	}
	req := openai.ChatCompletionRequest{
		Model:     r.Model,
		Messages:  msgs,
		MaxTokens: r.MaxTokens,
		Stop:      r.Stop,
	}
	if r.Temperature != nil {
		req.Temperature = *r.Temperature
	}
	if r.TopP != nil {
		req.TopP = *r.TopP
	}
	return req
}

func fromOpenAI(r openai.ChatCompletionRequest) chat.Request {
	out := chat.Request{Model: r.Model, MaxTokens: r.MaxTokens, Stop: r.Stop}
	if r.Temperature != 0 {
		t := r.Temperature
		out.Temperature = &t
	}
	if r.TopP != 0 {
		tp := r.TopP
		out.TopP = &tp
	}
	for _, m := range r.Messages {
		switch m.Role {
		case openai.ChatMessageRoleSystem:
			out.System = m.Content
		case openai.ChatMessageRoleAssistant:
			out.Turns = append(out.Turns, chat.Turn{Role: chat.RoleAssistant, Text: m.Content})
		case openai.ChatMessageRoleUser:
			out.Turns = append(out.Turns, chat.Turn{Role: chat.RoleUser, Text: m.Content})
		}
	}
	return out
}

var _ parser.Parser = (*Parser)(nil)
