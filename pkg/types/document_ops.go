package types

// PromptIndex returns the position of the named prompt, or -1.
func (d *Document) PromptIndex(name string) int {
	for i, p := range d.Prompts {
		if p != nil && p.Name == name {
			return i
		}
	}
	return -1
}

// GetPrompt returns the named prompt.
func (d *Document) GetPrompt(name string) (*Prompt, error) {
	if i := d.PromptIndex(name); i >= 0 {
		return d.Prompts[i], nil
	}
	return nil, ErrUnknownPrompt(name)
}

// AddPrompt appends p under name. p.Name is overwritten with name.
func (d *Document) AddPrompt(name string, p *Prompt) error {
	if p == nil {
		return ErrInvalidConfig("prompt %q is nil", name)
	}
	if !ValidPromptName(name) {
		return ErrInvalidConfig("prompt name %q must match [A-Za-z_][A-Za-z0-9_]*", name)
	}
	if d.PromptIndex(name) >= 0 {
		return ErrDuplicateName(name)
	}
	p.Name = name
	d.Prompts = append(d.Prompts, p)
	return nil
}

// UpdatePrompt replaces the named prompt with p, keeping its position. If
// p.Name differs the prompt is renamed; an empty p.Name keeps the old name.
func (d *Document) UpdatePrompt(name string, p *Prompt) error {
	i := d.PromptIndex(name)
	if i < 0 {
		return ErrUnknownPrompt(name)
	}
	if p == nil {
		return ErrInvalidConfig("prompt %q is nil", name)
	}
	if p.Name == "" {
		p.Name = name
	}
	if p.Name != name {
		if !ValidPromptName(p.Name) {
			return ErrInvalidConfig("prompt name %q must match [A-Za-z_][A-Za-z0-9_]*", p.Name)
		}
		if d.PromptIndex(p.Name) >= 0 {
			return ErrDuplicateName(p.Name)
		}
	}
	d.Prompts[i] = p
	return nil
}

// DeletePrompt removes the named prompt.
func (d *Document) DeletePrompt(name string) error {
	i := d.PromptIndex(name)
	if i < 0 {
		return ErrUnknownPrompt(name)
	}
	d.Prompts = append(d.Prompts[:i], d.Prompts[i+1:]...)
	return nil
}

// AddModel sets (or replaces) the global settings for a model id.
func (d *Document) AddModel(id string, settings map[string]any) {
	if d.Metadata.Models == nil {
		d.Metadata.Models = map[string]map[string]any{}
	}
	if settings == nil {
		settings = map[string]any{}
	}
	d.Metadata.Models[id] = settings
}

// DeleteModel removes the global settings for a model id.
func (d *Document) DeleteModel(id string) {
	delete(d.Metadata.Models, id)
}

// SetParameter sets a global template parameter.
func (d *Document) SetParameter(key string, value any) {
	if d.Metadata.Parameters == nil {
		d.Metadata.Parameters = map[string]any{}
	}
	d.Metadata.Parameters[key] = value
}

// DeleteParameter removes a global template parameter.
func (d *Document) DeleteParameter(key string) {
	delete(d.Metadata.Parameters, key)
}

// SetDefaultModel sets the model used by prompts that name none.
func (d *Document) SetDefaultModel(id string) { d.Metadata.DefaultModel = id }

// SetModelParser routes a model id to a parser id.
func (d *Document) SetModelParser(model, parser string) {
	if d.Metadata.ModelParsers == nil {
		d.Metadata.ModelParsers = map[string]string{}
	}
	d.Metadata.ModelParsers[model] = parser
}

// EffectiveModel is the prompt's model id, falling back to default_model.
func (d *Document) EffectiveModel(p *Prompt) string {
	if id := p.ModelName(); id != "" {
		return id
	}
	return d.Metadata.DefaultModel
}

// ModelSettings merges the global settings of the prompt's effective model
// with the prompt's own settings, shallowly and key by key. The result is a
// fresh map.
func (d *Document) ModelSettings(p *Prompt) map[string]any {
	out := map[string]any{}
	for k, v := range d.Metadata.Models[d.EffectiveModel(p)] {
		out[k] = v
	}
	if p.Metadata.Model != nil {
		for k, v := range p.Metadata.Model.Settings {
			out[k] = v
		}
	}
	return out
}
