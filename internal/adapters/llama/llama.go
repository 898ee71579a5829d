// Package llama runs prompts against local GGUF models in-process through
// go-llama.cpp. Builds without the `llama` tag keep the parser but every
// inference fails with ErrUnavailable.
package llama

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"aiconfig/internal/common/fsutil"
	"aiconfig/internal/parser"
	"aiconfig/pkg/types"
)

// ID is the parser id.
const ID = "llama"

// ErrUnavailable is returned when the binary was built without llama support.
var ErrUnavailable = errors.New("llama support not built (missing 'llama' build tag)")

// Config configures model discovery and loading.
type Config struct {
	// ModelsDir is scanned for *.gguf files; a model id is the file name
	// with or without the extension.
	ModelsDir   string
	ContextSize int
	Threads     int
}

// Options are the sampling options of one prediction.
type Options struct {
	MaxTokens     int
	TopK          int
	Seed          int
	TopP          float32
	Temperature   float32
	RepeatPenalty float32
	Stop          []string
}

// Request is the native request of the llama parser.
type Request struct {
	ModelPath string  `json:"model_path"`
	Prompt    string  `json:"prompt"`
	Options   Options `json:"options"`
}

// engine owns loaded models. onToken returning false stops generation.
type engine interface {
	Predict(ctx context.Context, modelPath, prompt string, o Options, onToken func(string) bool) (string, error)
	Close() error
}

// Parser implements parser.Parser over an engine.
type Parser struct {
	parser.Parameterized
	cfg    Config
	engine engine

	mu     sync.Mutex
	models map[string]string
}

// New returns a parser for cfg. Models are discovered lazily.
func New(cfg Config) *Parser {
	return &Parser{cfg: cfg, engine: newEngine(cfg)}
}

func (p *Parser) ID() string { return ID }

// Close frees every loaded model.
func (p *Parser) Close() error { return p.engine.Close() }

// ModelFiles scans dir for *.gguf files and maps each model id to its
// absolute path. Both "name.gguf" and "name" are ids of the same file.
func ModelFiles(dir string) (map[string]string, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	out := map[string]string{}
	for _, e := range entries {
		if e.IsDir() || fsutil.Ext(e.Name()) != ".gguf" {
			continue
		}
		path := filepath.Join(abs, e.Name())
		out[e.Name()] = path
		out[strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))] = path
	}
	return out, nil
}

// Models returns the model ids found in the models directory, sorted.
func (p *Parser) Models() ([]string, error) {
	files, err := p.modelFiles()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(files))
	for id := range files {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (p *Parser) modelFiles() (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.models != nil {
		return p.models, nil
	}
	if p.cfg.ModelsDir == "" {
		return map[string]string{}, nil
	}
	m, err := ModelFiles(p.cfg.ModelsDir)
	if err != nil {
		return nil, err
	}
	p.models = m
	return m, nil
}

// modelPath prefers the model_path setting, then the models directory.
func (p *Parser) modelPath(settings map[string]any, model string) (string, error) {
	if path := parser.StringSetting(settings, "model_path", ""); path != "" {
		return fsutil.ExpandHome(path)
	}
	files, err := p.modelFiles()
	if err != nil {
		return "", err
	}
	if path, ok := files[model]; ok {
		return path, nil
	}
	return "", fmt.Errorf("llama: model %q not found in %q", model, p.cfg.ModelsDir)
}

// Serialize accepts a string, a Request or a list of strings.
func (p *Parser) Serialize(ctx context.Context, name string, request any, _ *types.Document, _ parser.Params) (prompts []*types.Prompt, err error) {
	end := p.BeginSerialize(ctx, name, request)
	defer func() { end(prompts, err) }()

	var texts []string
	var settings map[string]any
	switch r := request.(type) {
	case string:
		texts = []string{r}
	case []string:
		texts = r
	case Request:
		texts = []string{r.Prompt}
		settings = r.Options.settings()
		if r.ModelPath != "" {
			settings["model_path"] = r.ModelPath
		}
	default:
		return nil, fmt.Errorf("llama: cannot serialize %T", request)
	}
	for i, t := range texts {
		pr := &types.Prompt{Name: parser.TurnName(name, i+1, len(texts)), Input: types.TextInput(t)}
		pr.SetModel("", settings)
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
	settings := p.Settings(doc, prompt)
	if system := parser.StringSetting(settings, "system_prompt", ""); system != "" {
		text = system + "\n\n" + text
	}
	path, err := p.modelPath(settings, doc.EffectiveModel(prompt))
	if err != nil {
		return Request{}, err
	}
	return Request{ModelPath: path, Prompt: text, Options: optionsFrom(settings)}, nil
}

// RunInference predicts a completion for the resolved prompt. Streaming
// forwards every generated token.
func (p *Parser) RunInference(ctx context.Context, prompt *types.Prompt, doc *types.Document, opts *parser.InferenceOptions, params parser.Params) ([]types.Output, error) {
	req, err := p.request(ctx, prompt, doc, params)
	if err != nil {
		return nil, err
	}
	acc := parser.NewStreamAccumulator(opts)
	var onToken func(string) bool
	if opts.Streaming() {
		onToken = func(tok string) bool {
			if ctx.Err() != nil {
				return false
			}
			acc.Add(0, tok)
			return true
		}
	}
	text, err := p.engine.Predict(ctx, req.ModelPath, req.Prompt, req.Options, onToken)
	if errors.Is(ctx.Err(), context.Canceled) {
		return acc.Cancelled(), nil
	}
	if err != nil {
		return nil, err
	}
	meta := map[string]any{"finish_reason": "stop"}
	if onToken != nil {
		return acc.Outputs(func(int) map[string]any { return meta }), nil
	}
	return []types.Output{types.NewResult(types.TextData(text), meta)}, nil
}

func (p *Parser) GetOutputText(prompt *types.Prompt, _ *types.Document, o *types.Output) (string, error) {
	if s, ok := p.OutputText(prompt, o); ok {
		return s, nil
	}
	return "", fmt.Errorf("llama: output has no text")
}

func optionsFrom(s map[string]any) Options {
	var o Options
	o.MaxTokens, _ = parser.IntSetting(s, "max_tokens")
	o.TopK, _ = parser.IntSetting(s, "top_k")
	o.Seed, _ = parser.IntSetting(s, "seed")
	if f, ok := parser.FloatSetting(s, "top_p"); ok {
		o.TopP = float32(f)
	}
	if f, ok := parser.FloatSetting(s, "temperature"); ok {
		o.Temperature = float32(f)
	}
	if f, ok := parser.FloatSetting(s, "repeat_penalty"); ok {
		o.RepeatPenalty = float32(f)
	}
	o.Stop = parser.StringsSetting(s, "stop")
	return o
}

func (o Options) settings() map[string]any {
	s := map[string]any{}
	if o.MaxTokens > 0 {
		s["max_tokens"] = o.MaxTokens
	}
	if o.TopK > 0 {
		s["top_k"] = o.TopK
	}
	if o.Seed != 0 {
		s["seed"] = o.Seed
	}
	if o.TopP > 0 {
		s["top_p"] = float64(o.TopP)
	}
	if o.Temperature > 0 {
		s["temperature"] = float64(o.Temperature)
	}
	if o.RepeatPenalty > 0 {
		s["repeat_penalty"] = float64(o.RepeatPenalty)
	}
	if len(o.Stop) > 0 {
		s["stop"] = append([]string(nil), o.Stop...)
	}
	return s
}

var _ parser.Parser = (*Parser)(nil)
