package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"aiconfig/pkg/types"
)

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{types.ErrUnknownPrompt("p"), http.StatusNotFound},
		{types.ErrUnknownParser("p", "m"), http.StatusNotFound},
		{types.ErrUnresolvedSymbol("x", "p"), http.StatusUnprocessableEntity},
		{types.ErrMissingOutput("a", "b"), http.StatusUnprocessableEntity},
		{&types.CycleError{Cycle: []string{"a", "b", "a"}}, http.StatusUnprocessableEntity},
		{types.ErrDuplicateName("p"), http.StatusConflict},
		{types.ErrInvalidConfig("bad"), http.StatusBadRequest},
		{&types.AdapterError{Prompt: "p", Parser: "echo", Err: errors.New("boom")}, http.StatusBadGateway},
		{&types.AdapterError{Prompt: "p", Parser: "echo", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{fmt.Errorf("wrapped: %w", mockHTTPError{"busy", http.StatusTooManyRequests}), http.StatusTooManyRequests},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got, _ := statusFor(c.err); got != c.want {
			t.Fatalf("%v: got %d, want %d", c.err, got, c.want)
		}
	}
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSONError(w, http.StatusTeapot, "short and stout")
	if w.Code != http.StatusTeapot || w.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("code=%d headers=%v", w.Code, w.Header())
	}
	if got := w.Body.String(); got != "{\"error\":\"short and stout\",\"code\":418}\n" {
		t.Fatalf("body=%q", got)
	}
}
