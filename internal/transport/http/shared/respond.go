// Package shared holds the JSON response helpers every handler uses, so
// error envelopes stay identical across the API surface.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "carteirinha/pkg/domain-errors"
)

type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError translates a domain error into a JSON error envelope. Errors
// without a domain code map to 500 internal.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Error:   string(code),
		Message: dErrors.MessageOf(err),
	})
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
