// Package handlers exposes the scheduling engine over HTTP. Handlers
// parse and validate the request, delegate to the domain services, and
// translate domain errors to status codes; no scheduling decisions are
// made here.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/glowdesk/scheduling-engine/internal/availability"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps the availability error taxonomy to HTTP status
// codes. Unknown errors surface as 500 with a generic message so store
// internals never leak to callers.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, availability.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, availability.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider not found")
	case errors.Is(err, availability.ErrDataSource):
		writeError(w, http.StatusServiceUnavailable, "schedule data unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
