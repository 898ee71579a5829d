package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"aiconfig/internal/callback"
	"aiconfig/internal/httpapi"
	"aiconfig/internal/runtime"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	var (
		addr          string
		corsOrigins   string
		allowSavePath bool
	)
	cmd := &cobra.Command{
		Use:   "serve <document>",
		Short: "Serve the document's prompts over HTTP",
		Long: `serve exposes one document over a JSON API: GET /prompts, GET /prompts/{name},
POST /run, POST /batch, POST /render, POST /save, plus /healthz, /readyz and
/metrics. Outputs stay in memory until POST /save.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr != "" {
				a.cfg.Addr = addr
			}
			if corsOrigins != "" {
				a.cfg.CORS.Enabled = true
				a.cfg.CORS.Origins = splitCSV(corsOrigins)
			}
			rt, err := a.open(args[0])
			if err != nil {
				return err
			}
			if err := rt.Validate(); err != nil {
				// still serve: other prompts may run fine and /readyz reports it
				a.log.Warn().Err(err).Msg("document does not fully validate")
			}
			metrics, err := callback.NewMetricsHandler(prometheus.DefaultRegisterer)
			if err != nil {
				return fmt.Errorf("register metrics: %w", err)
			}
			a.cb.Register(metrics)

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			httpapi.SetBaseContext(ctx)
			srv := &http.Server{
				Addr:              a.cfg.Addr,
				Handler:           a.handler(rt, allowSavePath),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info().Str("addr", a.cfg.Addr).Str("document", args[0]).Strs("parsers", a.reg.IDs()).Msg("aiconfig listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			// Graceful shutdown (Ctrl+C / SIGTERM)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.log.Warn().Err(err).Msg("graceful shutdown error")
			}
			a.log.Info().Msg("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, e.g. :8080 (default from config)")
	cmd.Flags().StringVar(&corsOrigins, "cors-origins", "", "Comma-separated allowed origins; enables CORS")
	cmd.Flags().BoolVar(&allowSavePath, "allow-save-path", false, "Let POST /save write to a caller-chosen path")
	return cmd
}

// handler configures the HTTP layer from the app config and builds the
// router over rt.
func (a *app) handler(rt *runtime.Runtime, allowSavePath bool) http.Handler {
	httpapi.SetLogger(a.log.With().Str("component", "http").Logger())
	httpapi.SetDefaultLogLevel(a.cfg.LogLevel)
	httpapi.SetMaxBodyBytes(a.cfg.MaxBodyBytes)
	httpapi.SetRunTimeoutSeconds(a.cfg.RunTimeoutSeconds)
	httpapi.SetCORSOptions(a.cfg.CORS.Enabled, a.cfg.CORS.Origins, a.cfg.CORS.Methods, a.cfg.CORS.Headers)
	httpapi.SetSaveAnyPath(allowSavePath)
	return httpapi.NewMux(rt)
}

// splitCSV splits a comma-separated flag value, dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
