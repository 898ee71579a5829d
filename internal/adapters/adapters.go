// Package adapters wires the stock parsers into a registry from the runtime
// configuration.
package adapters

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"aiconfig/internal/adapters/anthropic"
	"aiconfig/internal/adapters/echo"
	"aiconfig/internal/adapters/gemini"
	"aiconfig/internal/adapters/llama"
	"aiconfig/internal/adapters/openai"
	"aiconfig/internal/config"
	"aiconfig/internal/registry"
)

// RegisterDefaults registers the echo parser and every provider that is
// configured: hosted APIs when a key is available, llama when enabled.
// Each parser is registered under its id plus the model ids configured for
// it. The returned closers release local models.
func RegisterDefaults(ctx context.Context, reg *registry.Registry, p config.Providers, log zerolog.Logger) ([]io.Closer, error) {
	reg.Register(echo.New())

	if key := p.OpenAI.Key(); key != "" {
		op, err := openai.New(openai.Config{APIKey: key, BaseURL: p.OpenAI.BaseURL})
		if err != nil {
			return nil, err
		}
		reg.Register(op, append([]string{openai.ID}, p.OpenAI.Models...)...)
		log.Debug().Strs("models", p.OpenAI.Models).Msg("openai parser registered")
	}
	if key := p.Anthropic.Key(); key != "" {
		ap, err := anthropic.New(anthropic.Config{APIKey: key, BaseURL: p.Anthropic.BaseURL})
		if err != nil {
			return nil, err
		}
		reg.Register(ap, append([]string{anthropic.ID}, p.Anthropic.Models...)...)
		log.Debug().Strs("models", p.Anthropic.Models).Msg("anthropic parser registered")
	}
	if key := p.Gemini.Key(); key != "" {
		gp, err := gemini.New(ctx, gemini.Config{APIKey: key, BaseURL: p.Gemini.BaseURL})
		if err != nil {
			return nil, err
		}
		reg.Register(gp, append([]string{gemini.ID}, p.Gemini.Models...)...)
		log.Debug().Strs("models", p.Gemini.Models).Msg("gemini parser registered")
	}

	var closers []io.Closer
	if p.Llama.Enabled {
		lp := llama.New(llama.Config{ModelsDir: p.Llama.ModelsDir, ContextSize: p.Llama.ContextSize, Threads: p.Llama.Threads})
		ids := append([]string{llama.ID}, p.Llama.Models...)
		if p.Llama.ModelsDir != "" {
			found, err := lp.Models()
			if err != nil {
				log.Warn().Err(err).Str("dir", p.Llama.ModelsDir).Msg("llama models dir unreadable")
			}
			ids = append(ids, found...)
		}
		reg.Register(lp, ids...)
		closers = append(closers, lp)
		log.Debug().Strs("models", ids[1:]).Msg("llama parser registered")
	}
	return closers, nil
}
