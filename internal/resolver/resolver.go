package resolver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"aiconfig/internal/view"
	"aiconfig/pkg/types"
)

// DefaultCacheSize bounds the number of parsed templates kept in memory.
const DefaultCacheSize = 512

// Mode selects how unresolvable symbols are handled.
type Mode int

const (
	// Strict fails with UnresolvedSymbol or MissingOutput.
	Strict Mode = iota
	// Lenient leaves the {{ ... }} text in place.
	Lenient
)

// OutputTextFunc extracts the text of a prompt's output for x.output
// references. The runtime plugs in the owning parser's GetOutputText.
type OutputTextFunc func(p *types.Prompt, o *types.Output) (string, error)

// Resolver expands templates against a document scope.
type Resolver struct {
	cache      *lru.Cache[string, *Template]
	outputText OutputTextFunc
}

// New returns a resolver with an LRU of cacheSize parsed templates. A nil
// outputText reads outputs through the view layer.
func New(cacheSize int, outputText OutputTextFunc) *Resolver {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	c, err := lru.New[string, *Template](cacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	if outputText == nil {
		outputText = viewText
	}
	return &Resolver{cache: c, outputText: outputText}
}

func viewText(_ *types.Prompt, o *types.Output) (string, error) {
	s, ok := view.Text(o)
	if !ok {
		return "", fmt.Errorf("output has no text")
	}
	return s, nil
}

// WithOutputText returns a resolver sharing r's template cache but reading
// outputs through f.
func (r *Resolver) WithOutputText(f OutputTextFunc) *Resolver {
	if f == nil {
		f = viewText
	}
	return &Resolver{cache: r.cache, outputText: f}
}

// Parse returns the parsed template for text, using the cache.
func (r *Resolver) Parse(text string) *Template {
	if t, ok := r.cache.Get(text); ok {
		return t
	}
	t := Parse(text)
	r.cache.Add(text, t)
	return t
}

// ResolvePrompt expands the input template of prompt within doc.
func (r *Resolver) ResolvePrompt(doc *types.Document, prompt *types.Prompt, params map[string]any, mode Mode) (string, error) {
	return r.Expand(prompt.Input.TemplateText(), NewScope(doc, prompt, params), mode)
}

// Expand substitutes every symbol in text using scope. Text without "{{"
// is returned unchanged.
func (r *Resolver) Expand(text string, scope *Scope, mode Mode) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	t := r.Parse(text)
	if !t.HasSymbols() {
		return text, nil
	}
	var sb strings.Builder
	for _, s := range t.segs {
		if s.path == nil {
			sb.WriteString(s.literal)
			continue
		}
		v, err := scope.lookup(s.path, r.outputText)
		if err != nil {
			if mode == Lenient {
				sb.WriteString(s.raw)
				continue
			}
			return "", err
		}
		sb.WriteString(render(v))
	}
	return sb.String(), nil
}

// render turns a symbol value into template text: strings verbatim, every
// other value as its JSON encoding.
func render(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
