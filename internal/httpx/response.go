// Package httpx writes the JSON responses every handler in this backend
// emits. Error bodies follow one shape: {"error": <code>, "details": ...},
// where the code is a stable snake_case machine string ("invalid_json",
// "category_has_items", "confirmation_required") that clients branch on,
// and details carries structured context such as a validation.Violations
// map. Human-readable wording lives client-side; codes never change once
// shipped.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the single error body shape.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JSON writes payload with the given status. A nil payload writes JSON null.
// Marshal failures fall back to a 500 with a fixed body so the client never
// sees partial JSON.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	body := []byte("null")
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// JSONError writes an ErrorResponse with the given code and optional details.
func JSONError(w http.ResponseWriter, status int, code string, details any) {
	JSON(w, status, ErrorResponse{Error: code, Details: details})
}
