package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"aiconfig/internal/parser"
	"aiconfig/internal/runtime"
	"aiconfig/internal/view"
	"aiconfig/pkg/types"
)

type runOptions struct {
	params         []string
	withDeps       bool
	stream         bool
	save           bool
	includeOutputs bool
	asJSON         bool
}

func newRunCmd(o *rootOptions) *cobra.Command {
	ro := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <document> <prompt>",
		Short: "Run one prompt and print its output",
		Example: `  aiconfig run travel.aiconfig.json get_activities -p city=Lisbon
  aiconfig run travel.aiconfig.yaml itinerary --with-deps --stream --save`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(ro.params)
			if err != nil {
				return err
			}
			a, err := o.setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			rt, err := a.open(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			var opts *parser.InferenceOptions
			if ro.stream {
				opts = &parser.InferenceOptions{
					StreamCallback: func(delta, _ string, _ int) {
						fmt.Fprint(out, delta)
					},
				}
			}
			run := rt.Run
			if ro.withDeps {
				run = rt.RunWithDependencies
			}
			outs, runErr := run(ctx, args[1], params, opts)
			if runErr != nil && types.IsCoreError(runErr) {
				return runErr
			}
			if ro.save {
				if err := rt.Save("", ro.includeOutputs); err != nil {
					return err
				}
				a.log.Info().Str("path", rt.Path()).Msg("document saved")
			}
			if runErr != nil {
				return runErr
			}
			if ro.asJSON {
				return writeJSON(out, outs)
			}
			if ro.stream {
				fmt.Fprintln(out)
				return nil
			}
			if len(outs) > 0 && outs[0].Cancelled() {
				a.log.Warn().Interface("cancelled_at", outs[0].Metadata[parser.CancelledAtKey]).Msg("run cancelled")
				fmt.Fprintln(out, outs[0].Data.Text)
				return nil
			}
			text, err := rt.GetOutputText(args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, text)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&ro.params, "param", "p", nil, "Parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&ro.withDeps, "with-deps", false, "Run the prompts this prompt references first")
	cmd.Flags().BoolVar(&ro.stream, "stream", false, "Print fragments as they arrive")
	cmd.Flags().BoolVar(&ro.save, "save", false, "Write the document back with the new outputs")
	cmd.Flags().BoolVar(&ro.includeOutputs, "include-outputs", true, "Keep outputs when saving")
	cmd.Flags().BoolVar(&ro.asJSON, "json", false, "Print the outputs as JSON")
	return cmd
}

func newBatchCmd(o *rootOptions) *cobra.Command {
	var (
		paramsFile string
		params     []string
		withDeps   bool
		save       bool
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "batch <document> <prompt>",
		Short: "Run one prompt once per entry of a parameters file",
		Long: `batch runs the prompt once per entry of --params-file, a YAML or JSON list
of parameter maps, in order. -p values apply to every entry unless the entry
sets the same key. A failing entry prints its error and the batch continues.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if paramsFile == "" {
				return fmt.Errorf("--params-file is required")
			}
			list, err := loadParamsFile(paramsFile)
			if err != nil {
				return err
			}
			common, err := parseParams(params)
			if err != nil {
				return err
			}
			for i := range list {
				list[i] = merge(common, list[i])
			}
			a, err := o.setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			rt, err := a.open(args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			results, err := rt.RunBatch(ctx, args[1], list, nil, withDeps)
			if err != nil {
				return err
			}
			if save {
				if err := rt.Save("", true); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, results)
			}
			failed := 0
			for i, outs := range results {
				line, ok := describe(outs)
				if !ok {
					failed++
				}
				fmt.Fprintf(out, "[%d] %s\n", i, line)
			}
			if failed > 0 {
				a.log.Warn().Int("failed", failed).Int("total", len(results)).Msg("batch finished with failures")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&paramsFile, "params-file", "f", "", "YAML or JSON list of parameter maps")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Parameter shared by every entry (repeatable)")
	cmd.Flags().BoolVar(&withDeps, "with-deps", false, "Run the prompts this prompt references first, for every entry")
	cmd.Flags().BoolVar(&save, "save", false, "Write the document back with the last entry's outputs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print every result as JSON")
	return cmd
}

// describe renders one batch entry as a single line.
func describe(outs []types.Output) (string, bool) {
	if len(outs) == 0 {
		return "(no output)", true
	}
	o := outs[0]
	if o.IsError() {
		return fmt.Sprintf("error: %s: %s", o.EName, o.EValue), false
	}
	if o.Cancelled() {
		return "cancelled", false
	}
	if s, ok := view.Text(&o); ok {
		return s, true
	}
	return view.Summary(&o), true
}

func newRenderCmd(o *rootOptions) *cobra.Command {
	var params []string
	cmd := &cobra.Command{
		Use:   "render <document> <prompt>",
		Short: "Print a prompt's input with parameters substituted",
		Long:  "render previews the resolved input. References that cannot be resolved yet are left as written.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseParams(params)
			if err != nil {
				return err
			}
			rt, done, err := openRuntime(o, cmd, args[0])
			if err != nil {
				return err
			}
			defer done()
			text, err := rt.Render(args[1], p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Parameter as key=value (repeatable)")
	return cmd
}

func newResolveCmd(o *rootOptions) *cobra.Command {
	var params []string
	cmd := &cobra.Command{
		Use:   "resolve <document> <prompt>",
		Short: "Print the request a prompt would send to its model, as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseParams(params)
			if err != nil {
				return err
			}
			rt, done, err := openRuntime(o, cmd, args[0])
			if err != nil {
				return err
			}
			defer done()
			req, err := rt.Resolve(commandContext(cmd), args[1], p)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), req)
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Parameter as key=value (repeatable)")
	return cmd
}

// openRuntime is setup plus open; done closes the app.
func openRuntime(o *rootOptions, cmd *cobra.Command, path string) (*runtime.Runtime, func(), error) {
	a, err := o.setup(cmd)
	if err != nil {
		return nil, nil, err
	}
	rt, err := a.open(path)
	if err != nil {
		_ = a.Close()
		return nil, nil, err
	}
	return rt, func() { _ = a.Close() }, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
