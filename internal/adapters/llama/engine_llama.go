//go:build llama

package llama

import (
	"context"
	"errors"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// cppEngine keeps each model loaded after first use.
type cppEngine struct {
	ctxSize int
	threads int

	mu     sync.Mutex
	models map[string]*llama.LLama
}

func newEngine(cfg Config) engine {
	return &cppEngine{ctxSize: cfg.ContextSize, threads: cfg.Threads, models: map[string]*llama.LLama{}}
}

func (e *cppEngine) load(path string) (*llama.LLama, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("model path is empty")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if m, ok := e.models[path]; ok {
		return m, nil
	}
	mo := []llama.ModelOption{}
	if e.ctxSize > 0 {
		mo = append(mo, llama.SetContext(e.ctxSize))
	}
	m, err := llama.New(path, mo...)
	if err != nil {
		return nil, err
	}
	e.models[path] = m
	return m, nil
}

func (e *cppEngine) Predict(ctx context.Context, path, prompt string, o Options, onToken func(string) bool) (string, error) {
	m, err := e.load(path)
	if err != nil {
		return "", err
	}
	m.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if onToken != nil {
			return onToken(tok)
		}
		return true
	})
	text, err := m.Predict(prompt, predictOptions(o, e.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return text, nil
}

func (e *cppEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for path, m := range e.models {
		m.Free()
		delete(e.models, path)
	}
	return nil
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orFloat(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

func predictOptions(o Options, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(orInt(o.MaxTokens, llama.DefaultOptions.Tokens)),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(orFloat(o.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(orInt(o.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(orFloat(o.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(orFloat(o.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if o.Seed != 0 {
		po = append(po, llama.SetSeed(o.Seed))
	}
	if len(o.Stop) > 0 {
		po = append(po, llama.SetStopWords(o.Stop...))
	}
	return po
}
