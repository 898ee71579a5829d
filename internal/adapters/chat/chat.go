// Package chat holds what the chat-completion parsers share: conversation
// assembly from a document and the settings every provider understands.
package chat

import (
	"context"

	"aiconfig/internal/parser"
	"aiconfig/internal/resolver"
	"aiconfig/internal/view"
	"aiconfig/pkg/types"
)

// Roles of a conversation turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of a conversation.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Request is the provider-neutral form of a chat call.
type Request struct {
	Model       string   `json:"model"`
	System      string   `json:"system,omitempty"`
	Turns       []Turn   `json:"turns"`
	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// Remembers reports whether the prompt replays earlier turns. Defaults on.
func Remembers(p *types.Prompt) bool {
	if p.Metadata.RememberChatContext == nil {
		return true
	}
	return *p.Metadata.RememberChatContext
}

// History returns the turns that precede prompt: every earlier prompt
// targeting the same model contributes its input (resolved leniently) and
// the text of its latest non-error output.
func History(ctx context.Context, doc *types.Document, prompt *types.Prompt, params parser.Params) []Turn {
	if !Remembers(prompt) {
		return nil
	}
	model := doc.EffectiveModel(prompt)
	res := parser.ResolverFrom(ctx)
	var turns []Turn
	for _, p := range doc.Prompts {
		if p == nil || p == prompt || p.Name == prompt.Name {
			break
		}
		if doc.EffectiveModel(p) != model {
			continue
		}
		in, err := res.ResolvePrompt(doc, p, params, resolver.Lenient)
		if err != nil {
			in = p.Input.TemplateText()
		}
		turns = append(turns, Turn{Role: RoleUser, Text: in})
		if o, ok := p.LatestOutput(); ok && !o.IsError() {
			if text, ok := view.Text(&o); ok {
				turns = append(turns, Turn{Role: RoleAssistant, Text: text})
			}
		}
	}
	return turns
}

// Build resolves prompt into a Request for the provider model id
// (settings["model"] overrides the document model name).
func Build(ctx context.Context, base parser.Parameterized, doc *types.Document, prompt *types.Prompt, params parser.Params) (Request, error) {
	text, err := base.ResolveInput(ctx, doc, prompt, params)
	if err != nil {
		return Request{}, err
	}
	settings := base.Settings(doc, prompt)
	req := Request{
		Model:  parser.StringSetting(settings, "model", doc.EffectiveModel(prompt)),
		System: parser.StringSetting(settings, "system_prompt", ""),
		Turns:  append(History(ctx, doc, prompt, params), Turn{Role: RoleUser, Text: text}),
		Stop:   parser.StringsSetting(settings, "stop"),
	}
	if f, ok := parser.FloatSetting(settings, "temperature"); ok {
		v := float32(f)
		req.Temperature = &v
	}
	if f, ok := parser.FloatSetting(settings, "top_p"); ok {
		v := float32(f)
		req.TopP = &v
	}
	if n, ok := parser.IntSetting(settings, "max_tokens"); ok {
		req.MaxTokens = n
	}
	return req, nil
}

// Settings converts a Request back into model settings, omitting the
// model name and conversation.
func (r Request) Settings() map[string]any {
	s := map[string]any{}
	if r.System != "" {
		s["system_prompt"] = r.System
	}
	if r.Temperature != nil {
		s["temperature"] = float64(*r.Temperature)
	}
	if r.TopP != nil {
		s["top_p"] = float64(*r.TopP)
	}
	if r.MaxTokens > 0 {
		s["max_tokens"] = r.MaxTokens
	}
	if len(r.Stop) > 0 {
		s["stop"] = append([]string(nil), r.Stop...)
	}
	return s
}

// Prompts turns the user messages of a conversation into prompts named
// after name (name_1, name_2, ... when there are several). An assistant
// message following a user message becomes that prompt's output.
func Prompts(name, model string, settings map[string]any, turns []Turn) []*types.Prompt {
	var users []int
	for i, t := range turns {
		if t.Role == RoleUser {
			users = append(users, i)
		}
	}
	out := make([]*types.Prompt, 0, len(users))
	for n, i := range users {
		p := &types.Prompt{Name: parser.TurnName(name, n+1, len(users)), Input: types.TextInput(turns[i].Text)}
		var s map[string]any
		if len(settings) > 0 {
			s = make(map[string]any, len(settings))
			for k, v := range settings {
				s[k] = v
			}
		}
		p.SetModel(model, s)
		if i+1 < len(turns) && turns[i+1].Role == RoleAssistant {
			p.AddOutput(types.NewResult(types.TextData(turns[i+1].Text), nil))
		}
		out = append(out, p)
	}
	return out
}
