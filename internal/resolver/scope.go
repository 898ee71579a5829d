package resolver

import (
	"strings"

	"aiconfig/pkg/types"
)

// Scope is the symbol table for one prompt. Lookups go, highest priority
// first: reserved <prompt>.input / <prompt>.output, caller params, prompt
// parameters, document parameters.
type Scope struct {
	doc    *types.Document
	prompt *types.Prompt
	params map[string]any
}

// NewScope builds the scope of prompt within doc. prompt may be nil.
func NewScope(doc *types.Document, prompt *types.Prompt, params map[string]any) *Scope {
	return &Scope{doc: doc, prompt: prompt, params: params}
}

func (s *Scope) promptName() string {
	if s.prompt == nil {
		return ""
	}
	return s.prompt.Name
}

func (s *Scope) lookup(path []string, outputText OutputTextFunc) (any, error) {
	expr := strings.Join(path, ".")
	if len(path) >= 2 && s.doc != nil {
		if ref := s.doc.PromptIndex(path[0]); ref >= 0 {
			switch path[1] {
			case "input":
				if len(path) == 2 {
					return s.doc.Prompts[ref].Input.TemplateText(), nil
				}
			case "output":
				return s.output(s.doc.Prompts[ref], path[2:], outputText)
			}
		}
	}
	layers := []map[string]any{s.params}
	if s.prompt != nil {
		layers = append(layers, s.prompt.Metadata.Parameters)
	}
	if s.doc != nil {
		layers = append(layers, s.doc.Metadata.Parameters)
	}
	for _, m := range layers {
		root, ok := m[path[0]]
		if !ok {
			continue
		}
		if v, ok := traverse(root, path[1:]); ok {
			return v, nil
		}
		return nil, types.ErrUnresolvedSymbol(expr, s.promptName())
	}
	return nil, types.ErrUnresolvedSymbol(expr, s.promptName())
}

// output reads the latest output of dep. A trailing path traverses a JSON
// output payload.
func (s *Scope) output(dep *types.Prompt, rest []string, outputText OutputTextFunc) (any, error) {
	o, ok := dep.LatestOutput()
	if !ok || o.IsError() {
		return nil, types.ErrMissingOutput(dep.Name, s.promptName())
	}
	if len(rest) > 0 {
		if o.Data.Kind != types.DataJSON {
			return nil, types.ErrUnresolvedSymbol(dep.Name+".output."+strings.Join(rest, "."), s.promptName())
		}
		v, ok := traverse(o.Data.JSON, rest)
		if !ok {
			return nil, types.ErrUnresolvedSymbol(dep.Name+".output."+strings.Join(rest, "."), s.promptName())
		}
		return v, nil
	}
	text, err := outputText(dep, &o)
	if err != nil {
		return nil, types.ErrMissingOutput(dep.Name, s.promptName())
	}
	return text, nil
}

// traverse follows dotted keys through nested maps.
func traverse(v any, path []string) (any, bool) {
	for _, k := range path {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if v, ok = m[k]; !ok {
			return nil, false
		}
	}
	return v, true
}
