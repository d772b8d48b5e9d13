package httpx

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ariefcatur/go-bar-pos/internal/cart"
	"github.com/ariefcatur/go-bar-pos/internal/dispatch"
	"github.com/ariefcatur/go-bar-pos/internal/fulfillment"
	"github.com/ariefcatur/go-bar-pos/internal/money"
	"github.com/ariefcatur/go-bar-pos/internal/register"
)

// Response is the one shape every endpoint answers with.
type Response struct {
	Data  any            `json:"data"`
	Error string         `json:"error,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, code int, data any, meta map[string]any) {
	writeJSON(w, code, Response{Data: data, Meta: meta})
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		logf("http: internal error: %v", err)
		msg = "internal error"
	}
	writeJSON(w, code, Response{Error: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, Response{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, fulfillment.ErrNotFound),
		errors.Is(err, register.ErrNotFound),
		errors.Is(err, dispatch.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, fulfillment.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, register.ErrConflict),
		errors.Is(err, register.ErrNoOpenRegister),
		errors.Is(err, register.ErrAlreadyClosed),
		errors.Is(err, register.ErrInProgress),
		errors.Is(err, dispatch.ErrNotRetryable):
		return http.StatusConflict
	case fulfillment.IsValidation(err),
		errors.Is(err, fulfillment.ErrInvalidStatus),
		errors.Is(err, fulfillment.ErrInvalidFilter),
		errors.Is(err, register.ErrInvalidMethod),
		errors.Is(err, register.ErrInvalidAmount),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, cart.ErrInvalidLine),
		errors.Is(err, dispatch.ErrUnknownKind):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(v)
}

func logf(format string, args ...any) { log.Printf(format, args...) }
