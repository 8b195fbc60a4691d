// Package api implements the read-only HTTP API over the station store.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"riverwatch/internal/types"
)

// APIResponse is the success envelope for all endpoints.
type APIResponse struct {
	Data any `json:"data"`
}

// APIErrorResponse is the error envelope for all endpoints.
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable code and a safe message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON marshals the payload and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(APIErrorResponse{Error: ErrorDetail{
			Code:    string(types.ErrCodeInternalUnexpected),
			Message: "failed to marshal response",
		}})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// writeData writes a 200 success envelope.
func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, APIResponse{Data: data})
}

// writeError maps an error to the envelope. AppError codes choose the
// status; anything else becomes an opaque 500 so internal details never
// leak to clients.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPStatus() >= 500 {
			logger.Error("request failed", "code", appErr.Code, "error", err)
		}
		writeJSON(w, appErr.HTTPStatus(), APIErrorResponse{Error: ErrorDetail{
			Code:    string(appErr.Code),
			Message: appErr.Message,
		}})
		return
	}

	logger.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, APIErrorResponse{Error: ErrorDetail{
		Code:    string(types.ErrCodeInternalUnexpected),
		Message: "an unexpected error occurred",
	}})
}
