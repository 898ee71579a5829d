package document

import (
	"fmt"

	"aiconfig/pkg/types"
)

// Validate checks the structural invariants of a document: prompt names
// are present, referenceable and unique, model references name a model and
// model_parsers entries name a parser. Parser availability is checked by
// the registry, not here.
func Validate(doc *types.Document) error {
	if doc == nil {
		return types.ErrInvalidConfig("document is nil")
	}
	seen := make(map[string]int, len(doc.Prompts))
	for i, p := range doc.Prompts {
		if p == nil {
			return types.ErrInvalidConfig("prompts[%d] is null", i)
		}
		if p.Name == "" {
			return types.ErrInvalidConfig("prompts[%d]: name is required", i)
		}
		if !types.ValidPromptName(p.Name) {
			return types.ErrInvalidConfig("prompts[%d]: name %q must match [A-Za-z_][A-Za-z0-9_]*", i, p.Name)
		}
		if j, dup := seen[p.Name]; dup {
			return types.ErrInvalidConfig("prompts[%d]: duplicate prompt name %q (first at prompts[%d])", i, p.Name, j)
		}
		seen[p.Name] = i
		if m := p.Metadata.Model; m != nil && m.Name == "" {
			return types.ErrInvalidConfig("prompt %q: model name is empty", p.Name)
		}
		for j, o := range p.Outputs {
			if o.OutputType == types.OutputError && o.EName == "" {
				return types.ErrInvalidConfig("prompt %q: outputs[%d]: error output without ename", p.Name, j)
			}
		}
	}
	for model, parser := range doc.Metadata.ModelParsers {
		if model == "" || parser == "" {
			return types.ErrInvalidConfig("model_parsers: empty entry %q -> %q", model, parser)
		}
	}
	for id := range doc.Metadata.Models {
		if id == "" {
			return types.ErrInvalidConfig("models: empty model id")
		}
	}
	return nil
}

// checkShape validates the raw JSON value before typed decoding so missing
// or mistyped fields surface as InvalidConfig with a field path.
func checkShape(raw any) error {
	root, ok := raw.(map[string]any)
	if !ok {
		return types.ErrInvalidConfig("document must be an object")
	}
	if err := wantString(root, "name", "", true); err != nil {
		return err
	}
	for _, k := range []string{"description", "schema_version"} {
		if err := wantString(root, k, "", false); err != nil {
			return err
		}
	}
	if v, ok := root["metadata"]; ok && v != nil {
		md, ok := v.(map[string]any)
		if !ok {
			return types.ErrInvalidConfig("metadata must be an object")
		}
		if err := wantString(md, "default_model", "metadata.", false); err != nil {
			return err
		}
		for _, k := range []string{"models", "model_parsers", "parameters"} {
			if v, ok := md[k]; ok && v != nil {
				if _, ok := v.(map[string]any); !ok {
					return types.ErrInvalidConfig("metadata.%s must be an object", k)
				}
			}
		}
		if models, ok := md["models"].(map[string]any); ok {
			for id, s := range models {
				if _, ok := s.(map[string]any); !ok && s != nil {
					return types.ErrInvalidConfig("metadata.models.%s must be an object", id)
				}
			}
		}
	}
	v, ok := root["prompts"]
	if !ok || v == nil {
		return nil
	}
	prompts, ok := v.([]any)
	if !ok {
		return types.ErrInvalidConfig("prompts must be an array")
	}
	for i, e := range prompts {
		p, ok := e.(map[string]any)
		if !ok {
			return types.ErrInvalidConfig("prompts[%d] must be an object", i)
		}
		if err := wantString(p, "name", fmt.Sprintf("prompts[%d].", i), true); err != nil {
			return err
		}
		if _, ok := p["input"]; !ok {
			return types.ErrInvalidConfig("prompts[%d]: input is required", i)
		}
		if o, ok := p["outputs"]; ok && o != nil {
			if _, ok := o.([]any); !ok {
				return types.ErrInvalidConfig("prompts[%d]: outputs must be an array", i)
			}
		}
	}
	return nil
}

func wantString(m map[string]any, key, prefix string, required bool) error {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return types.ErrInvalidConfig("%s%s is required", prefix, key)
		}
		return nil
	}
	if _, ok := v.(string); !ok {
		return types.ErrInvalidConfig("%s%s must be a string", prefix, key)
	}
	return nil
}
