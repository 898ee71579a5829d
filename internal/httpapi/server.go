package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aiconfig/internal/parser"
	"aiconfig/pkg/types"
)

// Service defines the methods required by the HTTP API layer. A
// *runtime.Runtime satisfies it.
type Service interface {
	Document() *types.Document
	Validate() error
	Summaries() []types.PromptSummary
	Prompt(name string) (*types.Prompt, error)
	Run(ctx context.Context, name string, params parser.Params, opts *parser.InferenceOptions) ([]types.Output, error)
	RunWithDependencies(ctx context.Context, name string, params parser.Params, opts *parser.InferenceOptions) ([]types.Output, error)
	RunBatch(ctx context.Context, name string, paramsList []parser.Params, opts *parser.InferenceOptions, withDeps bool) ([][]types.Output, error)
	Render(name string, params parser.Params) (string, error)
	Save(path string, includeOutputs bool) error
	GetOutputText(name string) (string, error)
}

type handlers struct {
	svc Service
}

func NewMux(svc Service) http.Handler {
	h := &handlers{svc: svc}
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/prompts", h.listPrompts)
	r.Get("/prompts/{name}", h.getPrompt)
	r.Post("/run", h.run)
	r.Post("/batch", h.batch)
	r.Post("/render", h.render)
	r.Post("/save", h.save)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Validate(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	return r
}

// listPrompts godoc
// @Summary      List prompts
// @Description  Name, effective model, dependencies and output count of every prompt.
// @Tags         prompts
// @Produce      json
// @Success      200  {object}  types.PromptsResponse
// @Router       /prompts [get]
func (h *handlers) listPrompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.PromptsResponse{
		Document: h.svc.Document().Name,
		Prompts:  h.svc.Summaries(),
	})
}

// getPrompt godoc
// @Summary      Get one prompt
// @Tags         prompts
// @Produce      json
// @Param        name  path      string  true  "Prompt name"
// @Success      200   {object}  types.Prompt
// @Failure      404   {object}  types.ErrorResponse
// @Router       /prompts/{name} [get]
func (h *handlers) getPrompt(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Prompt(chi.URLParam(r, "name"))
	if err != nil {
		status, kind := statusFor(err)
		IncrementRunError(kind)
		writeJSONError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// run godoc
// @Summary      Run a prompt
// @Description  Executes the prompt and records its outputs in memory. With
// @Description  log=debug the fragments are logged as they arrive; the
// @Description  response is always the complete result.
// @Tags         run
// @Accept       json
// @Produce      json
// @Param        body  body      types.RunRequest  true  "Run request"
// @Success      200   {object}  types.RunResponse
// @Failure      400   {object}  types.ErrorResponse
// @Failure      404   {object}  types.ErrorResponse
// @Failure      422   {object}  types.ErrorResponse
// @Failure      502   {object}  types.ErrorResponse
// @Failure      504   {object}  types.ErrorResponse
// @Router       /run [post]
func (h *handlers) run(w http.ResponseWriter, r *http.Request) {
	var req types.RunRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	lvl := requestLogLevel(r)
	start := time.Now()
	logStart(r, lvl, "run", req.Prompt)

	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := runContext(r.Context())
	defer cancel()

	exec := h.svc.Run
	if req.WithDependencies {
		exec = h.svc.RunWithDependencies
	}
	var opts *parser.InferenceOptions
	if lvl >= LevelDebug {
		opts = newFragmentLog(r).Options()
	}
	outs, err := exec(ctx, req.Prompt, parser.Params(req.Params), opts)
	if err != nil {
		h.fail(w, r, lvl, "run", start, err)
		return
	}
	var text string
	if len(outs) > 0 && outs[0].Cancelled() {
		// the prompt's recorded outputs may predate a run stopped early
		text = outs[0].Data.Text
	} else {
		text, _ = h.svc.GetOutputText(req.Prompt)
	}
	writeJSON(w, http.StatusOK, types.RunResponse{Prompt: req.Prompt, Outputs: outs, Text: text})
	observeRun("run", "ok", start)
	logEnd(r, lvl, "run", http.StatusOK, start, nil)
}

// batch godoc
// @Summary      Run a prompt once per parameter set
// @Description  Entries run in order; an adapter failure is recorded as an
// @Description  error output and the batch continues.
// @Tags         run
// @Accept       json
// @Produce      json
// @Param        body  body      types.BatchRequest  true  "Batch request"
// @Success      200   {object}  types.BatchResponse
// @Failure      400   {object}  types.ErrorResponse
// @Failure      404   {object}  types.ErrorResponse
// @Failure      422   {object}  types.ErrorResponse
// @Router       /batch [post]
func (h *handlers) batch(w http.ResponseWriter, r *http.Request) {
	var req types.BatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	lvl := requestLogLevel(r)
	start := time.Now()
	logStart(r, lvl, "batch", req.Prompt)

	ctx, cancel := runContext(r.Context())
	defer cancel()
	list := make([]parser.Params, len(req.ParamsList))
	for i, p := range req.ParamsList {
		list[i] = parser.Params(p)
	}
	results, err := h.svc.RunBatch(ctx, req.Prompt, list, nil, req.WithDependencies)
	if err != nil {
		h.fail(w, r, lvl, "batch", start, err)
		return
	}
	writeJSON(w, http.StatusOK, types.BatchResponse{Prompt: req.Prompt, Results: results})
	observeRun("batch", "ok", start)
	logEnd(r, lvl, "batch", http.StatusOK, start, nil)
}

// render godoc
// @Summary      Preview a prompt's resolved input
// @Description  Unresolvable references stay as written.
// @Tags         prompts
// @Accept       json
// @Produce      json
// @Param        body  body      types.RenderRequest  true  "Render request"
// @Success      200   {object}  types.RenderResponse
// @Failure      404   {object}  types.ErrorResponse
// @Router       /render [post]
func (h *handlers) render(w http.ResponseWriter, r *http.Request) {
	var req types.RenderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	text, err := h.svc.Render(req.Prompt, parser.Params(req.Params))
	if err != nil {
		status, kind := statusFor(err)
		IncrementRunError(kind)
		writeJSONError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, types.RenderResponse{Prompt: req.Prompt, Text: text})
}

// save godoc
// @Summary      Write the document
// @Description  An empty path writes back to the file the document was loaded from.
// @Tags         document
// @Accept       json
// @Param        body  body  types.SaveRequest  true  "Save request"
// @Success      204
// @Failure      403   {object}  types.ErrorResponse
// @Router       /save [post]
func (h *handlers) save(w http.ResponseWriter, r *http.Request) {
	var req types.SaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Path != "" && !saveAnyPath {
		writeJSONError(w, http.StatusForbidden, "saving to an explicit path is disabled")
		return
	}
	if err := h.svc.Save(req.Path, req.IncludeOutputs); err != nil {
		status, kind := statusFor(err)
		IncrementRunError(kind)
		writeJSONError(w, status, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, lvl LogLevel, op string, start time.Time, err error) {
	// If context was canceled (client disconnect), just return.
	if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
		return
	}
	status, kind := statusFor(err)
	IncrementRunError(kind)
	observeRun(op, kind, start)
	writeJSONError(w, status, err.Error())
	logEnd(r, lvl, op, status, start, err)
}

// decodeJSON enforces a JSON content type and the body size limit.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// oversize bodies also land here; keep the message generic
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func logStart(r *http.Request, lvl LogLevel, op, prompt string) {
	if lvl < LevelInfo {
		return
	}
	if zlog != nil {
		z := zlog.Info().Str("path", r.URL.Path).Str("prompt", prompt)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg(op + " start")
		return
	}
	log.Printf("%s start path=%s prompt=%s", op, r.URL.Path, prompt)
}

func logEnd(r *http.Request, lvl LogLevel, op string, status int, start time.Time, err error) {
	if lvl < LevelInfo && !(lvl >= LevelError && err != nil) {
		return
	}
	if zlog != nil {
		z := zlog.Info()
		if err != nil {
			z = zlog.Error().Err(err)
		}
		z = z.Int("status", status).Dur("dur", time.Since(start))
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg(op + " end")
		return
	}
	if err != nil {
		log.Printf("%s end status=%d dur=%s err=%v", op, status, time.Since(start), err)
		return
	}
	log.Printf("%s end status=%d dur=%s", op, status, time.Since(start))
}
