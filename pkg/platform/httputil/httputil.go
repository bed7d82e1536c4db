// Package httputil holds the small JSON response helpers shared by all HTTP
// handlers.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"paychain/pkg/derrors"
)

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to its HTTP status and a stable error body.
// Internal errors omit the description so storage details never reach
// clients.
func WriteError(w http.ResponseWriter, err error) {
	code := derrors.CodeOf(err)
	body := errorBody{Error: string(code)}
	if code != derrors.CodeInternal {
		body.ErrorDescription = derrors.MessageOf(err)
	}
	WriteJSON(w, derrors.HTTPStatus(code), body)
}

// Validatable is implemented by request payloads that validate and normalize
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes the JSON request body into T and runs its
// validation. On failure it writes the error response and reports false; the
// handler should return immediately.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (PT, bool) {
	var body T
	p := PT(&body)
	if err := json.NewDecoder(r.Body).Decode(p); err != nil {
		logger.WarnContext(r.Context(), "request decode failed", "error", err.Error())
		WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid JSON body"))
		return nil, false
	}
	if err := p.Validate(); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return p, true
}
