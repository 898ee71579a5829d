package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"aiconfig/internal/common/fsutil"
	"aiconfig/internal/journal"
	"aiconfig/internal/runtime"
)

func newInitCmd(o *rootOptions) *cobra.Command {
	var (
		name         string
		description  string
		defaultModel string
		force        bool
	)
	cmd := &cobra.Command{
		Use:   "init <document>",
		Short: "Create an empty document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if fsutil.PathExists(path) && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			a, err := o.setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if name == "" {
				base := filepath.Base(path)
				name = strings.TrimSuffix(strings.TrimSuffix(base, filepath.Ext(base)), ".aiconfig")
			}
			rt := runtime.Create(name, description, a.runtimeConfig())
			if defaultModel != "" {
				rt.Document().SetDefaultModel(defaultModel)
			}
			if err := rt.Save(path, true); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Document name (default from the file name)")
	cmd.Flags().StringVar(&description, "description", "", "Document description")
	cmd.Flags().StringVar(&defaultModel, "default-model", "", "Model used by prompts that name none")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newAddCmd(o *rootOptions) *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "add <document> <name> <text>...",
		Short: "Append prompts built by a model's parser from plain text",
		Long: `add hands the text to the parser of --model, which turns it into one or more
prompts. Several texts become several turns named <name>_1, <name>_2, ...`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, done, err := openRuntime(o, cmd, args[0])
			if err != nil {
				return err
			}
			defer done()
			if model == "" {
				model = rt.Document().Metadata.DefaultModel
			}
			if model == "" {
				return fmt.Errorf("--model is required when the document has no default_model")
			}
			var request any = args[2]
			if len(args) > 3 {
				request = args[2:]
			}
			prompts, err := rt.Serialize(commandContext(cmd), model, args[1], request, nil)
			if err != nil {
				return err
			}
			if err := rt.Save("", true); err != nil {
				return err
			}
			for _, p := range prompts {
				fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", p.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model id whose parser builds the prompts (default: document default_model)")
	return cmd
}

func newValidateCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <document>",
		Short: "Check the document and that every prompt has a parser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, done, err := openRuntime(o, cmd, args[0])
			if err != nil {
				return err
			}
			defer done()
			if err := rt.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d prompts)\n", args[0], len(rt.Summaries()))
			return nil
		},
	}
}

func newPromptsCmd(o *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "prompts <document>",
		Short: "List prompts with their model, dependencies and output count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, done, err := openRuntime(o, cmd, args[0])
			if err != nil {
				return err
			}
			defer done()
			summaries := rt.Summaries()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), summaries)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tMODEL\tDEPENDS ON\tOUTPUTS\tTAGS")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.Name, orDash(s.Model), orDash(strings.Join(s.DependsOn, ",")), s.Outputs, orDash(strings.Join(s.Tags, ",")))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newJournalCmd(o *rootOptions) *cobra.Command {
	var (
		f      journal.Filter
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List events recorded with --journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.journal == nil {
				return fmt.Errorf("no journal configured (use --journal or journal_path)")
			}
			entries, err := a.journal.Events(commandContext(cmd), f)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tRUN\tEVENT\tPROMPT\tERROR")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Timestamp.Local().Format(time.RFC3339), e.RunID, e.Event, e.Prompt, orDash(e.Error))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&f.RunID, "run-id", "", "Only events of this run")
	cmd.Flags().StringVar(&f.Prompt, "prompt", "", "Only events of this prompt")
	cmd.Flags().StringVar(&f.Event, "event", "", "Only events with this name, e.g. on_run_end")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "Maximum number of events (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
