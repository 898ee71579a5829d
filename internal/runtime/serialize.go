package runtime

import (
	"context"

	"aiconfig/internal/parser"
	"aiconfig/pkg/types"
)

// Serialize captures an adapter-native request for model as prompts named
// after promptName and appends them to the document. Multi-turn requests
// become several prompts (promptName_1, promptName_2, ...). Prompts that
// name no model id are pointed at model.
func (r *Runtime) Serialize(ctx context.Context, model, promptName string, request any, params parser.Params) ([]*types.Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lookup := &types.Prompt{Name: promptName}
	lookup.SetModel(model, nil)
	p, err := r.reg.ForPrompt(r.doc, lookup)
	if err != nil {
		return nil, err
	}
	prompts, err := p.Serialize(r.runContext(ctx), promptName, request, r.doc, params)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, np := range prompts {
		switch {
		case np.Metadata.Model == nil:
			np.SetModel(model, nil)
		case np.Metadata.Model.Name == "":
			np.Metadata.Model.Name = model
		}
		if seen[np.Name] || r.doc.PromptIndex(np.Name) >= 0 {
			return nil, types.ErrDuplicateName(np.Name)
		}
		seen[np.Name] = true
	}
	for _, np := range prompts {
		if err := r.doc.AddPrompt(np.Name, np); err != nil {
			return nil, err
		}
	}
	return prompts, nil
}
