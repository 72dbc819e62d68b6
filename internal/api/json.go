package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/uxr/internal/apperr"
	"github.com/starford/uxr/internal/assets"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps a service error to its status and message. Unexpected
// errors are logged with the failing operation.
func writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	msg := apperr.Message(err)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrPathEscape), errors.Is(err, apperr.ErrInvalidCategory):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrSaveInProgress):
		status = http.StatusConflict
	case errors.Is(err, assets.ErrUnsupported):
		status = http.StatusUnsupportedMediaType
		msg = err.Error()
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
	}
	writeJSON(w, status, errorBody(msg))
}
