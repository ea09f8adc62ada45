package http

import (
	"encoding/json"
	"net/http"

	"fintrack/internal/log"
)

const msgInternal = "internal server error"

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to encode response", log.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}

// writeInternal logs err and answers with a generic 500. The cause never
// reaches the client.
func writeInternal(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		log.NewFields().WithOperation(op).WithError(err).ToSlice()...)
	writeError(w, r, http.StatusInternalServerError, msgInternal)
}
