package parser

import (
	"context"
	"strconv"

	"aiconfig/pkg/types"
)

// Params are caller-supplied template parameters. They take precedence over
// prompt and document parameters.
type Params map[string]any

// Parser adapts one model family to the document model.
//
// Serialize and Deserialize are inverses: Deserialize turns a prompt into
// the adapter-native request, Serialize captures an adapter-native request
// as one or more prompts (multi-turn requests become input/output pairs).
// RunInference performs the call and returns the outputs to record; it
// must honour ctx and, on context.Canceled, return a cancelled output and
// a nil error. GetOutputText reads output, or the prompt's latest output
// when output is nil.
type Parser interface {
	ID() string
	Serialize(ctx context.Context, promptName string, request any, doc *types.Document, params Params) ([]*types.Prompt, error)
	Deserialize(ctx context.Context, prompt *types.Prompt, doc *types.Document, params Params) (any, error)
	RunInference(ctx context.Context, prompt *types.Prompt, doc *types.Document, opts *InferenceOptions, params Params) ([]types.Output, error)
	GetOutputText(prompt *types.Prompt, doc *types.Document, output *types.Output) (string, error)
}

// Lookup finds the parser responsible for a prompt.
type Lookup interface {
	ForPrompt(doc *types.Document, prompt *types.Prompt) (Parser, error)
}

// TurnName names the i-th (1-based) of n prompts produced by Serialize.
// A single turn keeps the base name.
func TurnName(base string, i, n int) string {
	if n <= 1 {
		return base
	}
	return base + "_" + strconv.Itoa(i)
}
