package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	commonerrors "github.com/parcelworks/assessor-backend/internal/common/errors"
	"github.com/parcelworks/assessor-backend/internal/common/logger"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// HandleError maps domain errors onto HTTP responses and logs everything else
// as an internal error.
func HandleError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	if de, ok := commonerrors.AsDomainError(err); ok {
		WriteError(w, de.HTTPStatus(), de.Message())
		return
	}
	log.WithFields(r.Context(), logger.Fields{
		"path":   r.URL.Path,
		"action": "http_internal_error",
	}).Errorf("unhandled error: %v", err)
	WriteError(w, http.StatusInternalServerError, "internal server error")
}

func RequireMethod(method string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			next(w, r)
		}
	}
}

func WithTimeout(timeout time.Duration) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next(w, r.WithContext(ctx))
		}
	}
}
