package runtime

import (
	"context"
	"errors"
	"time"

	"aiconfig/internal/callback"
	"aiconfig/internal/parser"
	"aiconfig/internal/resolver"
	"aiconfig/pkg/types"
)

// Run executes the named prompt alone. References to siblings without an
// output fail with MissingOutput; use RunWithDependencies to run them
// first.
//
// On success or cancellation the returned outputs replace the prompt's
// outputs. An adapter failure replaces them with one error output and is
// returned as *types.AdapterError. Document, resolver and registry errors
// leave the outputs untouched.
func (r *Runtime) Run(ctx context.Context, name string, params parser.Params, opts *parser.InferenceOptions) ([]types.Output, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prompt, err := r.doc.GetPrompt(name)
	if err != nil {
		return nil, err
	}
	p, err := r.reg.ForPrompt(r.doc, prompt)
	if err != nil {
		return nil, err
	}
	return r.execute(r.runContext(ctx), p, prompt, params, opts)
}

// RunWithDependencies executes every prompt the named prompt transitively
// references through x.output, dependencies first, then the prompt itself.
// params and opts apply to every node. All nodes share one run id.
func (r *Runtime) RunWithDependencies(ctx context.Context, name string, params parser.Params, opts *parser.InferenceOptions) ([]types.Output, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.doc.GetPrompt(name); err != nil {
		return nil, err
	}
	ctx = r.runContext(ctx)
	dr := parser.DependencyRunner{
		Lookup: r.reg,
		Execute: func(ctx context.Context, p parser.Parser, prompt *types.Prompt) ([]types.Output, error) {
			return r.execute(ctx, p, prompt, params, opts)
		},
	}
	return dr.Run(ctx, r.doc, name)
}

// RunAndGetOutputText runs the named prompt and returns the canonical text
// of its first output.
func (r *Runtime) RunAndGetOutputText(ctx context.Context, name string, params parser.Params, opts *parser.InferenceOptions) (string, error) {
	outs, err := r.Run(ctx, name, params, opts)
	if err != nil {
		return "", err
	}
	if len(outs) == 0 || outs[0].IsError() {
		return "", nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	prompt, err := r.doc.GetPrompt(name)
	if err != nil {
		return "", err
	}
	return r.outputText(prompt, &outs[0])
}

// execute runs one prompt with p and records the result. Callers hold r.mu.
func (r *Runtime) execute(ctx context.Context, p parser.Parser, prompt *types.Prompt, params parser.Params, opts *parser.InferenceOptions) ([]types.Output, error) {
	start := time.Now()
	log := r.log.With().Str("prompt", prompt.Name).Str("parser", p.ID()).Str("run_id", callback.RunIDFrom(ctx)).Logger()
	r.cb.Emit(ctx, callback.NewEvent(callback.RunStart, prompt.Name).
		With("parser", p.ID()).
		With("state", callback.StatePending).
		With("params", map[string]any(params)))
	log.Debug().Msg("run start")

	end := func(state string, outs []types.Output, fragments int, err error) {
		dur := time.Since(start)
		r.cb.Emit(ctx, callback.NewEvent(callback.RunEnd, prompt.Name).
			With("parser", p.ID()).
			With("state", state).
			With("outputs", len(outs)).
			With("fragments", fragments).
			With("duration_seconds", dur.Seconds()).
			WithErr(err))
		ev := log.Debug()
		if err != nil {
			ev = log.Warn().Err(err)
		}
		ev.Str("state", state).Dur("duration", dur).Msg("run end")
	}

	// References must resolve before the adapter is called.
	if _, err := r.res.ResolvePrompt(r.doc, prompt, params, resolver.Strict); err != nil {
		end(callback.StateFailed, nil, 0, err)
		return nil, err
	}

	fragments := 0
	runOpts := opts
	if opts != nil && opts.StreamCallback != nil {
		cb := opts.StreamCallback
		runOpts = &parser.InferenceOptions{
			Stream: opts.Stream,
			StreamCallback: func(delta, acc string, index int) {
				fragments++
				log.Trace().Str("state", callback.StateStreamed).Int("index", index).Int("len", len(delta)).Msg("fragment")
				cb(delta, acc, index)
			},
		}
	}

	log.Debug().Str("state", callback.StateRunning).Bool("stream", runOpts.Streaming()).Msg("inference start")
	outs, err := p.RunInference(ctx, prompt, r.doc, runOpts, params)
	if err != nil && errors.Is(err, context.Canceled) && !types.IsCoreError(err) {
		// an adapter that surfaced the cancellation instead of a cancelled output
		outs, err = []types.Output{types.NewCancelled("")}, nil
	}
	if err != nil {
		if types.IsCoreError(err) {
			end(callback.StateFailed, nil, fragments, err)
			return nil, err
		}
		var ae *types.AdapterError
		if !errors.As(err, &ae) {
			ae = &types.AdapterError{Prompt: prompt.Name, Parser: p.ID(), Err: err}
		}
		prompt.Outputs = []types.Output{types.ErrorOutput(ae)}
		end(callback.StateFailed, prompt.Outputs, fragments, ae)
		return nil, ae
	}

	prompt.Outputs = append([]types.Output{}, outs...)
	state := callback.StateCompleted
	for _, o := range outs {
		if o.Cancelled() {
			state = callback.StateCancelled
			break
		}
	}
	end(state, outs, fragments, nil)
	return append([]types.Output(nil), outs...), nil
}
