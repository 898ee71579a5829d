package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"aiconfig/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusFor maps an error kind to a response status and a metrics label.
func statusFor(err error) (int, string) {
	var he HTTPError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case types.IsUnknownPrompt(err):
		return http.StatusNotFound, "unknown_prompt"
	case types.IsUnknownParser(err):
		return http.StatusNotFound, "unknown_parser"
	case types.IsUnresolvedSymbol(err):
		return http.StatusUnprocessableEntity, "unresolved_symbol"
	case types.IsMissingOutput(err):
		return http.StatusUnprocessableEntity, "missing_output"
	case types.IsCyclicDependency(err):
		return http.StatusUnprocessableEntity, "cyclic_dependency"
	case types.IsDuplicateName(err):
		return http.StatusConflict, "duplicate_name"
	case types.IsInvalidConfig(err):
		return http.StatusBadRequest, "invalid_config"
	case types.IsAdapterError(err):
		return http.StatusBadGateway, "adapter"
	case errors.As(err, &he):
		return he.StatusCode(), "service"
	}
	return http.StatusInternalServerError, "internal"
}
