package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/target/disclosure-collector/internal/errors"
)

// Machine-readable error codes returned in the "code" field of error bodies.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeAuthentication = "AUTHENTICATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeInternal       = "INTERNAL_ERROR"
)

const internalErrorMessage = "internal server error"

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// StatusFor maps an error kind to its HTTP status and machine code.
// Kinds without a public mapping surface as internal errors.
func StatusFor(err error) (int, string) {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest, CodeValidation
	case apperrors.ErrCodeAuthentication:
		return http.StatusUnauthorized, CodeAuthentication
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound, CodeNotFound
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// WriteError writes the structured error body for err.
// Internal failures are logged with the request id; their causes are not returned to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := StatusFor(err)
	body := ErrorBody{Code: code, RequestID: RequestIDFromContext(r.Context())}

	var appErr *apperrors.AppError
	switch {
	case status == http.StatusInternalServerError:
		body.Message = internalErrorMessage
		if errors.As(err, &appErr) && appErr.Code == apperrors.ErrCodeInternal && appErr.Message != "" {
			body.Message = appErr.Message
		}
		loggerFrom(r.Context()).ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	case errors.As(err, &appErr):
		body.Message = appErr.Message
		body.Details = errorDetails(appErr)
	default:
		body.Message = err.Error()
	}

	WriteJSON(w, status, body)
}

func errorDetails(e *apperrors.AppError) map[string]any {
	if e.Field == "" && len(e.Details) == 0 {
		return nil
	}
	out := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		out[k] = v
	}
	if e.Field != "" {
		out["field"] = e.Field
	}
	return out
}
