package parser

import (
	"context"
	"errors"

	"aiconfig/pkg/types"
)

// ExecuteFunc runs one prompt with its parser and records its outputs.
type ExecuteFunc func(ctx context.Context, p Parser, prompt *types.Prompt) ([]types.Output, error)

// CancelledAtKey is the output metadata key naming the node a dependency
// run stopped at.
const CancelledAtKey = "cancelled_at"

// DependencyRunner executes a prompt after the prompts its input references
// through x.output. Any Parser works with it; the registry supplies the
// parser of every node.
type DependencyRunner struct {
	Lookup  Lookup
	Execute ExecuteFunc
}

// Run executes the sub-graph rooted at name in topological order, visiting
// each node once, and returns the root's outputs.
//
// Every node's parser is looked up before anything runs, so an unknown
// parser fails the whole chain cleanly. An error on a node aborts the
// chain. A cancelled node stops the chain with a nil error and no
// dependent is started. If the root itself was cancelled its own outputs
// are returned; otherwise the result is a single cancelled output whose
// metadata names the stopped node under CancelledAtKey, and the root's
// recorded outputs are left as they were.
func (r DependencyRunner) Run(ctx context.Context, doc *types.Document, name string) ([]types.Output, error) {
	order, err := ResolverFrom(ctx).Graph(doc).Order(name)
	if err != nil {
		return nil, err
	}
	parsers := make([]Parser, len(order))
	for i, n := range order {
		prompt, err := doc.GetPrompt(n)
		if err != nil {
			return nil, err
		}
		if parsers[i], err = r.Lookup.ForPrompt(doc, prompt); err != nil {
			return nil, err
		}
	}
	var last []types.Output
	for i, n := range order {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				return cancelledAt(n), nil
			}
			return nil, err
		}
		prompt, _ := doc.GetPrompt(n)
		outs, err := r.Execute(ctx, parsers[i], prompt)
		if err != nil {
			return nil, err
		}
		last = outs
		if anyCancelled(outs) {
			if n == name {
				return outs, nil
			}
			return cancelledAt(n), nil
		}
	}
	return last, nil
}

func cancelledAt(node string) []types.Output {
	o := types.NewCancelled("")
	o.Metadata[CancelledAtKey] = node
	return []types.Output{o}
}

func anyCancelled(outs []types.Output) bool {
	for _, o := range outs {
		if o.Cancelled() {
			return true
		}
	}
	return false
}
