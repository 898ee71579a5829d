package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"aiconfig/internal/callback"
	"aiconfig/internal/document"
	"aiconfig/internal/parser"
	"aiconfig/internal/registry"
	"aiconfig/internal/resolver"
	"aiconfig/internal/view"
	"aiconfig/pkg/types"
)

// Runtime executes the prompts of one document.
type Runtime struct {
	mu   sync.Mutex
	doc  *types.Document
	path string

	reg *registry.Registry
	cb  *callback.Manager
	log zerolog.Logger
	res *resolver.Resolver
}

// New wraps an in-memory document. The document is validated but parser
// availability is not checked; see Validate.
func New(doc *types.Document, cfg Config) (*Runtime, error) {
	if err := document.Validate(doc); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	r := &Runtime{
		doc: doc,
		reg: cfg.Registry,
		cb:  cfg.Callbacks,
		log: cfg.Logger,
	}
	r.res = resolver.New(cfg.TemplateCacheSize, r.outputText)
	return r, nil
}

// Load reads the document at path and wraps it. Save with an empty path
// writes back to the same file.
func Load(path string, cfg Config) (*Runtime, error) {
	doc, err := document.Load(path)
	if err != nil {
		return nil, err
	}
	r, err := New(doc, cfg)
	if err != nil {
		return nil, err
	}
	r.path = path
	r.log.Debug().Str("path", path).Int("prompts", len(doc.Prompts)).Msg("document loaded")
	return r, nil
}

// Create wraps a new empty document.
func Create(name, description string, cfg Config) *Runtime {
	r, err := New(document.Create(name, description), cfg)
	if err != nil {
		// an empty document always validates
		panic(err)
	}
	return r
}

// outputText reads a sibling's output through the parser that produced it,
// falling back to the view layer when no parser resolves.
func (r *Runtime) outputText(p *types.Prompt, o *types.Output) (string, error) {
	if ps, err := r.reg.ForPrompt(r.doc, p); err == nil {
		return ps.GetOutputText(p, r.doc, o)
	}
	if s, ok := view.Text(o); ok {
		return s, nil
	}
	return "", fmt.Errorf("output of %q has no text", p.Name)
}

// Document returns the owned document. Mutating it while a run is in
// flight is undefined.
func (r *Runtime) Document() *types.Document { return r.doc }

// Path returns the file the document was loaded from or last saved to.
func (r *Runtime) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Registry returns the parser registry in use.
func (r *Runtime) Registry() *registry.Registry { return r.reg }

// Callbacks returns the callback manager in use.
func (r *Runtime) Callbacks() *callback.Manager { return r.cb }

// Validate checks that every prompt resolves to a registered parser.
func (r *Runtime) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := document.Validate(r.doc); err != nil {
		return err
	}
	return r.reg.Validate(r.doc)
}

// Save writes the document. An empty path means the path it was loaded
// from; saving a created document to a path makes that its path.
func (r *Runtime) Save(path string, includeOutputs bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if path == "" {
		path = r.path
	}
	if path == "" {
		return fmt.Errorf("save: no path given and document was not loaded from a file")
	}
	if err := document.Save(r.doc, path, includeOutputs); err != nil {
		return err
	}
	if r.path == "" {
		r.path = path
	}
	r.log.Debug().Str("path", path).Bool("include_outputs", includeOutputs).Msg("document saved")
	return nil
}

// Render previews the named prompt's input with lenient resolution:
// unresolvable symbols stay as written.
func (r *Runtime) Render(name string, params parser.Params) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.doc.GetPrompt(name)
	if err != nil {
		return "", err
	}
	return r.res.ResolvePrompt(r.doc, p, params, resolver.Lenient)
}

// Resolve returns the adapter-native request the named prompt would send,
// without running it.
func (r *Runtime) Resolve(ctx context.Context, name string, params parser.Params) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.doc.GetPrompt(name)
	if err != nil {
		return nil, err
	}
	ps, err := r.reg.ForPrompt(r.doc, p)
	if err != nil {
		return nil, err
	}
	return ps.Deserialize(r.runContext(ctx), p, r.doc, params)
}

// GetOutputText returns the canonical text of the named prompt's latest
// output, or "" when it has none.
func (r *Runtime) GetOutputText(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.doc.GetPrompt(name)
	if err != nil {
		return "", err
	}
	o, ok := p.LatestOutput()
	if !ok || o.IsError() {
		return "", nil
	}
	return r.outputText(p, &o)
}

// Summaries describes every prompt: effective model, direct dependencies
// and output count.
func (r *Runtime) Summaries() []types.PromptSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.res.Graph(r.doc)
	out := make([]types.PromptSummary, 0, len(r.doc.Prompts))
	for _, p := range r.doc.Prompts {
		out = append(out, types.PromptSummary{
			Name:      p.Name,
			Model:     r.doc.EffectiveModel(p),
			DependsOn: g.Dependencies(p.Name),
			Outputs:   len(p.Outputs),
			Tags:      p.Metadata.Tags,
		})
	}
	return out
}

// Prompt returns a copy of the named prompt.
func (r *Runtime) Prompt(name string) (*types.Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.doc.GetPrompt(name)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// runContext installs the callback manager, the runtime's resolver and a
// run id (kept if ctx already carries one).
func (r *Runtime) runContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = callback.WithManager(ctx, r.cb)
	ctx = parser.WithResolver(ctx, r.res)
	if callback.RunIDFrom(ctx) == "" {
		ctx = callback.WithRunID(ctx, "")
	}
	return ctx
}
