package parser

import (
	"context"
	"sync"

	"aiconfig/internal/callback"
	"aiconfig/internal/resolver"
	"aiconfig/internal/view"
	"aiconfig/pkg/types"
)

var (
	sharedOnce     sync.Once
	sharedResolver *resolver.Resolver
)

func defaultResolver() *resolver.Resolver {
	sharedOnce.Do(func() { sharedResolver = resolver.New(resolver.DefaultCacheSize, nil) })
	return sharedResolver
}

type resolverKey struct{}

// WithResolver returns ctx carrying r. The runtime installs a resolver that
// reads sibling outputs through their own parsers.
func WithResolver(ctx context.Context, r *resolver.Resolver) context.Context {
	return context.WithValue(ctx, resolverKey{}, r)
}

// ResolverFrom returns the resolver carried by ctx, or a process-wide
// default that reads outputs through the view layer.
func ResolverFrom(ctx context.Context) *resolver.Resolver {
	if ctx != nil {
		if r, ok := ctx.Value(resolverKey{}).(*resolver.Resolver); ok && r != nil {
			return r
		}
	}
	return defaultResolver()
}

// Parameterized carries the helpers every stock parser shares: merged
// model settings, strict template resolution and the resolve / serialize /
// deserialize lifecycle events. Embed it in a parser.
type Parameterized struct{}

// Settings merges the global settings of the prompt's model with the
// prompt's own, shallowly.
func (Parameterized) Settings(doc *types.Document, prompt *types.Prompt) map[string]any {
	return doc.ModelSettings(prompt)
}

// OutputText returns the text of o, or of the prompt's latest output when o
// is nil. Error outputs and outputs without text report false.
func (Parameterized) OutputText(prompt *types.Prompt, o *types.Output) (string, bool) {
	if o == nil && prompt != nil {
		if latest, ok := prompt.LatestOutput(); ok {
			o = &latest
		}
	}
	return view.Text(o)
}

// ResolveInput expands the prompt's input template strictly.
func (Parameterized) ResolveInput(ctx context.Context, doc *types.Document, prompt *types.Prompt, params Params) (string, error) {
	cb := callback.FromContext(ctx)
	cb.Emit(ctx, callback.NewEvent(callback.ResolveStart, prompt.Name).
		With("state", callback.StateResolving).
		With("template", prompt.Input.TemplateText()))
	text, err := ResolverFrom(ctx).ResolvePrompt(doc, prompt, params, resolver.Strict)
	end := callback.NewEvent(callback.ResolveEnd, prompt.Name).WithErr(err)
	if err == nil {
		end = end.With("resolved", text)
	}
	cb.Emit(ctx, end)
	return text, err
}

// BeginDeserialize emits on_deserialize_start and returns the function that
// emits the matching end event.
func (Parameterized) BeginDeserialize(ctx context.Context, prompt *types.Prompt, params Params) func(request any, err error) {
	cb := callback.FromContext(ctx)
	cb.Emit(ctx, callback.NewEvent(callback.DeserializeStart, prompt.Name).With("params", map[string]any(params)))
	return func(request any, err error) {
		e := callback.NewEvent(callback.DeserializeEnd, prompt.Name).WithErr(err)
		if err == nil {
			e = e.With("state", callback.StateDeserialized).With("request", request)
		}
		cb.Emit(ctx, e)
	}
}

// BeginSerialize emits on_serialize_start and returns the function that
// emits the matching end event.
func (Parameterized) BeginSerialize(ctx context.Context, promptName string, request any) func(prompts []*types.Prompt, err error) {
	cb := callback.FromContext(ctx)
	cb.Emit(ctx, callback.NewEvent(callback.SerializeStart, promptName).With("request", request))
	return func(prompts []*types.Prompt, err error) {
		e := callback.NewEvent(callback.SerializeEnd, promptName).WithErr(err)
		if err == nil {
			names := make([]string, 0, len(prompts))
			for _, p := range prompts {
				names = append(names, p.Name)
			}
			e = e.With("prompts", names)
		}
		cb.Emit(ctx, e)
	}
}

// StringSetting reads a string setting, returning def when absent.
func StringSetting(settings map[string]any, key, def string) string {
	if s, ok := settings[key].(string); ok && s != "" {
		return s
	}
	return def
}
