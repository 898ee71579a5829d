package registry

import (
	"sort"
	"sync"

	"aiconfig/internal/parser"
	"aiconfig/pkg/types"
)

// Registry maps parser ids to parsers. It is safe for concurrent use;
// registrations are expected at startup, lookups at every run.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]parser.Parser
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{parsers: map[string]parser.Parser{}}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry, created on first use. Runtimes
// use it when their config names no registry.
func Default() *Registry {
	defaultOnce.Do(func() { defaultReg = New() })
	return defaultReg
}

// Register adds p under each of ids, or under p.ID() when none are given.
// Registering an id again replaces the previous parser.
func (r *Registry) Register(p parser.Parser, ids ...string) {
	if p == nil {
		return
	}
	if len(ids) == 0 {
		ids = []string{p.ID()}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if id != "" {
			r.parsers[id] = p
		}
	}
}

// Get returns the parser registered under id.
func (r *Registry) Get(id string) (parser.Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[id]
	return p, ok
}

// Remove drops id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.parsers, id)
	r.mu.Unlock()
}

// Clear drops every registration.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.parsers = map[string]parser.Parser{}
	r.mu.Unlock()
}

// IDs returns the registered ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.parsers))
	for id := range r.parsers {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Keys returns the ids tried, in order, for prompt: model_parsers[model],
// model, model_parsers[default_model], default_model.
func Keys(doc *types.Document, prompt *types.Prompt) []string {
	var keys []string
	add := func(k string) {
		if k == "" {
			return
		}
		for _, e := range keys {
			if e == k {
				return
			}
		}
		keys = append(keys, k)
	}
	for _, m := range []string{prompt.ModelName(), doc.Metadata.DefaultModel} {
		if m == "" {
			continue
		}
		add(doc.Metadata.ModelParsers[m])
		add(m)
	}
	return keys
}

// ForPrompt returns the parser responsible for prompt within doc.
func (r *Registry) ForPrompt(doc *types.Document, prompt *types.Prompt) (parser.Parser, error) {
	keys := Keys(doc, prompt)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, k := range keys {
		if p, ok := r.parsers[k]; ok {
			return p, nil
		}
	}
	return nil, types.ErrUnknownParser(prompt.Name, keys...)
}

// Validate checks that every prompt of doc resolves to a registered parser.
func (r *Registry) Validate(doc *types.Document) error {
	for _, p := range doc.Prompts {
		if _, err := r.ForPrompt(doc, p); err != nil {
			return err
		}
	}
	return nil
}

var _ parser.Lookup = (*Registry)(nil)
