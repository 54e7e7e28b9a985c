package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding errors cannot be reported once headers are written.
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error to the standard JSON error shape.
func writeError(w http.ResponseWriter, err error) {
	apperrors.WriteError(w, err)
}

// readJSON decodes a request body, rejecting unknown fields.
func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.New(apperrors.CodeInvalidRequest, "invalid request body: "+err.Error())
	}
	return nil
}
