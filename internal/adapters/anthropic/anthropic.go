// Package anthropic runs prompts through the Anthropic messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"aiconfig/internal/adapters/chat"
	"aiconfig/internal/parser"
	"aiconfig/pkg/types"
)

// ID is the parser id.
const ID = "anthropic"

// DefaultMaxTokens is sent when no max_tokens setting is present; the API
// requires one.
const DefaultMaxTokens = 1024

// Config configures the client.
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Parser implements parser.Parser over go-anthropic.
type Parser struct {
	parser.Parameterized
	client *anthropic.Client
}

// New returns a parser for cfg.
func New(cfg Config) (*Parser, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, anthropic.WithHTTPClient(cfg.HTTPClient))
	}
	return &Parser{client: anthropic.NewClient(cfg.APIKey, opts...)}, nil
}

func (p *Parser) ID() string { return ID }

// Serialize accepts an anthropic.MessagesRequest, a chat.Request or a
// plain string.
func (p *Parser) Serialize(ctx context.Context, name string, request any, _ *types.Document, _ parser.Params) (prompts []*types.Prompt, err error) {
	end := p.BeginSerialize(ctx, name, request)
	defer func() { end(prompts, err) }()

	var req chat.Request
	switch r := request.(type) {
	case string:
		req = chat.Request{Turns: []chat.Turn{{Role: chat.RoleUser, Text: r}}}
	case chat.Request:
		req = r
	case anthropic.MessagesRequest:
		req = fromAnthropic(r)
	case *anthropic.MessagesRequest:
		req = fromAnthropic(*r)
	default:
		return nil, fmt.Errorf("anthropic: cannot serialize %T", request)
	}
	settings := req.Settings()
	if req.Model != "" {
		settings["model"] = req.Model
	}
	prompts = chat.Prompts(name, "", settings, req.Turns)
	if len(prompts) == 0 {
		return nil, fmt.Errorf("anthropic: request has no user message")
	}
	return prompts, nil
}

// Deserialize resolves the prompt into an anthropic.MessagesRequest.
func (p *Parser) Deserialize(ctx context.Context, prompt *types.Prompt, doc *types.Document, params parser.Params) (any, error) {
	return p.request(ctx, prompt, doc, params)
}

func (p *Parser) request(ctx context.Context, prompt *types.Prompt, doc *types.Document, params parser.Params) (req anthropic.MessagesRequest, err error) {
	end := p.BeginDeserialize(ctx, prompt, params)
	defer func() { end(req, err) }()
	cr, err := chat.Build(ctx, p.Parameterized, doc, prompt, params)
	if err != nil {
		return anthropic.MessagesRequest{}, err
	}
	return toAnthropic(cr), nil
}

// RunInference sends the messages request; the text blocks of the reply
// form a single output.
func (p *Parser) RunInference(ctx context.Context, prompt *types.Prompt, doc *types.Document, opts *parser.InferenceOptions, params parser.Params) ([]types.Output, error) {
	req, err := p.request(ctx, prompt, doc, params)
	if err != nil {
		return nil, err
	}
	if !opts.Streaming() {
		resp, err := p.client.CreateMessages(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("anthropic: %w", err)
		}
		var sb strings.Builder
		for _, c := range resp.Content {
			sb.WriteString(c.GetText())
		}
		return []types.Output{types.NewResult(types.TextData(sb.String()), meta(resp))}, nil
	}

	acc := parser.NewStreamAccumulator(opts)
	resp, err := p.client.CreateMessagesStream(ctx, anthropic.MessagesStreamRequest{
		MessagesRequest: req,
		OnContentBlockDelta: func(data anthropic.MessagesEventContentBlockDeltaData) {
			acc.Add(0, data.Delta.GetText())
		},
	})
	if errors.Is(ctx.Err(), context.Canceled) {
		return acc.Cancelled(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	return acc.Outputs(func(int) map[string]any { return meta(resp) }), nil
}

func meta(resp anthropic.MessagesResponse) map[string]any {
	return map[string]any{
		"finish_reason": string(resp.StopReason),
		"model":         string(resp.Model),
		"id":            resp.ID,
	}
}

func (p *Parser) GetOutputText(prompt *types.Prompt, _ *types.Document, o *types.Output) (string, error) {
	if s, ok := p.OutputText(prompt, o); ok {
		return s, nil
	}
	return "", fmt.Errorf("anthropic: output has no text")
}

func toAnthropic(r chat.Request) anthropic.MessagesRequest {
	msgs := make([]anthropic.Message, 0, len(r.Turns))
	for _, t := range r.Turns {
		if t.Role == chat.RoleAssistant {
			msgs = append(msgs, anthropic.NewAssistantTextMessage(t.Text))
		} else {
			msgs = append(msgs, anthropic.NewUserTextMessage(t.Text))
		}
	}
	maxTokens := r.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return anthropic.MessagesRequest{
		Model:         anthropic.Model(r.Model),
		System:        r.System,
		Messages:      msgs,
		MaxTokens:     maxTokens,
		StopSequences: r.Stop,
		Temperature:   r.Temperature,
		TopP:          r.TopP,
	}
}

func fromAnthropic(r anthropic.MessagesRequest) chat.Request {
	out := chat.Request{
		Model:       string(r.Model),
		System:      r.System,
		MaxTokens:   r.MaxTokens,
		Stop:        r.StopSequences,
		Temperature: r.Temperature,
		TopP:        r.TopP,
	}
	for _, m := range r.Messages {
		var sb strings.Builder
		for _, c := range m.Content {
			sb.WriteString(c.GetText())
		}
		role := chat.RoleUser
		if string(m.Role) == chat.RoleAssistant {
			role = chat.RoleAssistant
		}
		out.Turns = append(out.Turns, chat.Turn{Role: role, Text: sb.String()})
	}
	return out
}

var _ parser.Parser = (*Parser)(nil)
