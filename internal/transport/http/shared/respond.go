// Package shared holds the response helpers every handler uses, keeping the
// wire envelope consistent across routers.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "eventdesk/pkg/domain-errors"
)

// errorEnvelope is the uniform failure shape. Success responses carry their
// payload directly.
type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error onto its HTTP status and writes the failure
// envelope. Unknown errors become 500s with their message passed through.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, dErrors.ToHTTPStatus(dErrors.CodeOf(err)), errorEnvelope{Success: false, Error: err.Error()})
}
