package httpapi

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"aiconfig/internal/parser"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// fragmentLog logs the fragments of a run as the parser produces them. It
// only exists for requests at debug level.
type fragmentLog struct {
	requestID string
	count     int
}

func newFragmentLog(r *http.Request) *fragmentLog {
	return &fragmentLog{requestID: middleware.GetReqID(r.Context())}
}

// Options returns inference options whose stream callback feeds the log.
// Fragments of dependencies run for the same request are logged too.
func (f *fragmentLog) Options() *parser.InferenceOptions {
	return &parser.InferenceOptions{StreamCallback: f.fragment}
}

func (f *fragmentLog) fragment(delta, accumulated string, index int) {
	f.count++
	if zlog == nil {
		log.Printf("run fragment #%d index=%d %q", f.count, index, delta)
		return
	}
	z := zlog.Debug().Int("n", f.count).Int("index", index).Str("delta", delta).Int("accumulated", len(accumulated))
	if f.requestID != "" {
		z = z.Str("request_id", f.requestID)
	}
	z.Msg("run fragment")
}

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

// parseLevel accepts the request level names and the zerolog ones; trace
// folds into debug and warn into error. Unknown names mean info.
func parseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "disabled":
		return LevelOff
	case "error", "warn", "fatal", "panic":
		return LevelError
	case "debug", "trace", "1":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// read once
var defaultLogLevel = parseLevel(os.Getenv("AICONFIG_HTTP_LOG_LEVEL"))

// SetDefaultLogLevel sets the level used when a request carries no
// ?log= or X-Log-Level override.
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}
