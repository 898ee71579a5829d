package runtime

import (
	"context"
	"errors"

	"aiconfig/internal/parser"
	"aiconfig/pkg/types"
)

// RunBatch executes the named prompt once per entry of paramsList, in
// order, and returns one output sequence per entry. A failing entry yields
// a single error output and the next entry proceeds. With withDeps each
// entry runs the prompt's dependencies first.
//
// The document keeps the outputs of the last entry that reached its
// parser. An entry rejected before inference (an unresolved symbol, a
// missing output) reports the error in its result but leaves the prompt's
// outputs as the previous entry recorded them. Once ctx is cancelled the
// remaining entries are not started and report a cancelled output.
func (r *Runtime) RunBatch(ctx context.Context, name string, paramsList []parser.Params, opts *parser.InferenceOptions, withDeps bool) ([][]types.Output, error) {
	if _, err := r.Prompt(name); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	run := r.Run
	if withDeps {
		run = r.RunWithDependencies
	}
	results := make([][]types.Output, len(paramsList))
	for i, params := range paramsList {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				results[i] = []types.Output{types.NewCancelled("")}
			} else {
				results[i] = []types.Output{types.ErrorOutput(err)}
			}
			continue
		}
		outs, err := run(ctx, name, params, opts)
		if err != nil {
			r.log.Debug().Err(err).Str("prompt", name).Int("entry", i).Msg("batch entry failed")
			results[i] = []types.Output{types.ErrorOutput(err)}
			continue
		}
		results[i] = outs
	}
	return results, nil
}
