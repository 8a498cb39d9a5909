// Package response provides the JSON envelope used by the status endpoints.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/listenupapp/watcherd/internal/errors"
)

// Envelope provides a consistent JSON response structure.
type Envelope struct {
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Success bool   `json:"success"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	write(w, status, Envelope{Success: status < 400, Data: data}, logger)
}

// Success writes a successful JSON response (200 OK).
func Success(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusOK, data, logger)
}

// Error writes an error response with the given status code.
func Error(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	write(w, status, Envelope{Error: message}, logger)
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusNotFound, message, logger)
}

// ServiceUnavailable writes a 503 response carrying data, so health checks
// still report what is wrong.
func ServiceUnavailable(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusServiceUnavailable, data, logger)
}

// HandleError writes a response for err. Coded errors keep their code and
// message; anything else becomes a 500 with a generic message.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		write(w, httpStatus(domainErr.Code), Envelope{
			Error: domainErr.Message,
			Code:  string(domainErr.Code),
		}, logger)
		return
	}

	if logger != nil {
		logger.Error("unhandled error", "error", err)
	}
	Error(w, http.StatusInternalServerError, "internal server error", logger)
}

func httpStatus(code errors.Code) int {
	switch code {
	case errors.CodeConfig, errors.CodeValidation:
		return http.StatusBadRequest
	case errors.CodeWatch, errors.CodeStream:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func write(w http.ResponseWriter, status int, envelope Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		if logger != nil {
			logger.Error("failed to encode JSON response", "error", err)
		}
	}
}
