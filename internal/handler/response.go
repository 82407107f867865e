package handler

// Every error response has the same shape:
//
//	{"error": "invalid_credentials", "message": "invalid username or password"}
//
// "error" is stable and machine-readable; "message" is safe to show to the
// student as is.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/eljunior/internal/apperror"
	"github.com/sakif/eljunior/internal/viewstate"
)

// ErrorResponse is the error body returned by all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// StateResponse is a screen snapshot as sent to the UI.
type StateResponse[T any] struct {
	IsLoading bool           `json:"isLoading"`
	Data      T              `json:"data"`
	Error     *ErrorResponse `json:"error,omitempty"`
}

func stateResponse[T any](s viewstate.Snapshot[T]) StateResponse[T] {
	return renderState(s, func(d T) T { return d })
}

// renderState sends the snapshot with its data passed through render.
func renderState[T, V any](s viewstate.Snapshot[T], render func(T) V) StateResponse[V] {
	resp := StateResponse[V]{IsLoading: s.IsLoading, Data: render(s.Data)}
	if s.Err != nil {
		_, body := classify(s.Err)
		resp.Error = &body
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are already sent
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	writeJSON(w, status, body)
}

// classify maps an error kind to its HTTP status and response body.
// Errors that are not *AppError never reveal their text.
func classify(err error) (int, ErrorResponse) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		}
	}

	status := http.StatusInternalServerError
	errorType := "internal_error"

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
		errorType = "validation_error"
	case errors.Is(err, apperror.ErrInvalidCredentials):
		status = http.StatusUnauthorized
		errorType = "invalid_credentials"
	case errors.Is(err, apperror.ErrNotAuthenticated):
		status = http.StatusUnauthorized
		errorType = "not_authenticated"
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
		errorType = "not_found"
	case errors.Is(err, apperror.ErrRemoteFetch):
		status = http.StatusBadGateway
		errorType = "remote_fetch_failed"
	case errors.Is(err, apperror.ErrProfileFetch):
		status = http.StatusBadGateway
		errorType = "profile_fetch_failed"
	case errors.Is(err, apperror.ErrStorage):
		errorType = "storage_error"
	}

	return status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
		Field:   appErr.Field,
	}
}
