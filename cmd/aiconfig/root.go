package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"aiconfig/internal/adapters"
	"aiconfig/internal/callback"
	"aiconfig/internal/config"
	"aiconfig/internal/journal"
	"aiconfig/internal/registry"
	"aiconfig/internal/runtime"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath  string
	logLevel    string
	logFormat   string
	envFiles    []string
	journalPath string
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "aiconfig",
		Short: "Run the prompts of aiconfig documents",
		Long: `aiconfig loads a prompt document (JSON or YAML), resolves its templates
and runs each prompt through the parser registered for its model.

Hosted providers are enabled by their API keys (OPENAI_API_KEY,
ANTHROPIC_API_KEY, GEMINI_API_KEY by default); the echo parser is always
available.`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	cmd.PersistentFlags().StringVar(&o.configPath, "config", "", "Runtime config file (.yaml, .json or .toml)")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (default from config, else info)")
	cmd.PersistentFlags().StringVar(&o.logFormat, "log-format", "", "Log format: console or json")
	cmd.PersistentFlags().StringSliceVar(&o.envFiles, "env-file", nil, "Dotenv files to load before reading provider keys (default .env if present)")
	cmd.PersistentFlags().StringVar(&o.journalPath, "journal", "", "SQLite file recording every lifecycle event")

	cmd.AddCommand(
		newInitCmd(o),
		newAddCmd(o),
		newRunCmd(o),
		newBatchCmd(o),
		newRenderCmd(o),
		newResolveCmd(o),
		newValidateCmd(o),
		newPromptsCmd(o),
		newJournalCmd(o),
		newServeCmd(o),
	)
	return cmd
}

// app holds the collaborators built from flags and config for one command.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	reg     *registry.Registry
	cb      *callback.Manager
	journal *journal.Store
	closers []io.Closer
}

// setup loads env files and config, builds the logger and registers the
// stock parsers. Callers must Close the returned app.
func (o *rootOptions) setup(cmd *cobra.Command) (*app, error) {
	if len(o.envFiles) > 0 {
		if err := godotenv.Load(o.envFiles...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	} else {
		// a missing .env is fine
		_ = godotenv.Load()
	}

	var cfg config.Config
	if o.configPath != "" {
		c, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}
	if o.journalPath != "" {
		cfg.JournalPath = o.journalPath
	}
	cfg.ApplyDefaults()

	log, err := newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, reg: registry.New()}
	a.cb = callback.NewManager(log, callback.LogHandler{Log: log.With().Str("component", "callback").Logger()})
	if cfg.JournalPath != "" {
		store, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return nil, err
		}
		a.journal = store
		a.closers = append(a.closers, store)
		a.cb.Register(store)
	}
	closers, err := adapters.RegisterDefaults(commandContext(cmd), a.reg, cfg.Providers, log)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closers...)
	log.Debug().Strs("parsers", a.reg.IDs()).Msg("parsers registered")
	return a, nil
}

// open loads the document at path into a runtime using the app's
// collaborators.
func (a *app) open(path string) (*runtime.Runtime, error) {
	return runtime.Load(path, a.runtimeConfig())
}

func (a *app) runtimeConfig() runtime.Config {
	return runtime.Config{
		Registry:          a.reg,
		Callbacks:         a.cb,
		Logger:            a.log,
		TemplateCacheSize: a.cfg.TemplateCacheSize,
	}
}

// Close releases local models and the journal.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newLogger(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}
	var out io.Writer
	switch format {
	case "console":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	case "json":
		out = w
	default:
		return zerolog.Nop(), fmt.Errorf("unsupported log format %q (want console or json)", format)
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// commandContext returns the command's context, never nil.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
