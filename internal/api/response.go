package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	terrors "github.com/fleettriage/fleettriage/internal/errors"
)

// errorResponse is the JSON error envelope all handlers use.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps classified errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, terrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, terrors.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, terrors.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, terrors.ErrDependency):
		status = http.StatusBadGateway
	}
	writeError(w, status, err.Error())
}
