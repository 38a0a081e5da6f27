package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/blackmichael/blogdemo/internal/domain"
)

const maxJSONBody = 1 << 20

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, errorResponse{Error: errType, Message: message})
}

// classify maps a service error to its HTTP status and error type.
func classify(err error) (int, string) {
	if _, ok := domain.AsValidationError(err); ok {
		return http.StatusUnprocessableEntity, "ValidationError"
	}
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "Unauthenticated"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "InvalidCredentials"
	case errors.Is(err, domain.ErrInvalidUploadToken):
		return http.StatusUnauthorized, "InvalidUploadToken"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrImageNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, "EmailTaken"
	case errors.Is(err, domain.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge, "UploadTooLarge"
	case errors.Is(err, domain.ErrInvalidUpload):
		return http.StatusBadRequest, "InvalidUpload"
	default:
		return http.StatusInternalServerError, "InternalError"
	}
}

// writeServiceError writes err as a JSON error body. Internal errors are
// logged and their details hidden from the client.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, errType := classify(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
		writeError(w, status, errType, "internal server error")
		return
	}

	resp := errorResponse{Error: errType, Message: err.Error()}
	if verr, ok := domain.AsValidationError(err); ok {
		resp.Message = "validation failed"
		resp.Fields = verr.Fields
	}
	if errors.Is(err, domain.ErrInvalidUploadToken) {
		resp.Message = domain.ErrInvalidUploadToken.Error()
	}
	writeJSON(w, status, resp)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
