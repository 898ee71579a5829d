package document

import (
	"fmt"
	"os"

	"aiconfig/internal/common/fsutil"
	"aiconfig/pkg/types"
)

// Format selects the on-disk encoding of a document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// FormatFor picks the encoding from the file extension.
// Supports: .json, .yaml/.yml
func FormatFor(path string) (Format, error) {
	switch ext := fsutil.Ext(path); ext {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return FormatJSON, fmt.Errorf("unsupported document extension: %q", ext)
	}
}

// Create returns an empty document.
func Create(name, description string) *types.Document {
	return &types.Document{
		Name:          name,
		Description:   description,
		SchemaVersion: types.SchemaVersionLatest,
		Prompts:       []*types.Prompt{},
	}
}

// Load reads and validates the document at path. Every decoding or schema
// failure is an InvalidConfig error.
func Load(path string) (*types.Document, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	f, err := FormatFor(p)
	if err != nil {
		return nil, types.ErrInvalidConfig("%s: %v", path, err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	doc, err := Decode(b, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Save writes doc to path in the format implied by its extension. With
// includeOutputs false every prompt is written without outputs; doc itself
// is not modified.
func Save(doc *types.Document, path string, includeOutputs bool) error {
	if doc == nil {
		return fmt.Errorf("nil document")
	}
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return err
	}
	f, err := FormatFor(p)
	if err != nil {
		return err
	}
	b, err := Encode(doc, f, includeOutputs)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(p, b, 0o644); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}
