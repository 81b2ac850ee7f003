package httputil

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"clipshare/internal/apperr"
)

// Error codes returned in the error envelope
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every non-2xx response:
// {"error": {"code": "NOT_FOUND", "message": "post not found"}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		// Headers are already sent; an encode failure cannot be reported.
		_ = json.NewEncoder(w).Encode(data)
	}
}

func WriteError(w http.ResponseWriter, status int, code string, message string) {
	WriteJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// WriteBadRequestWithCode is for 400s the client branches on, e.g. FILE_TOO_LARGE.
func WriteBadRequestWithCode(w http.ResponseWriter, code string, message string) {
	WriteError(w, http.StatusBadRequest, code, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// WriteUnauthorizedWithCode is for 401s the client branches on, e.g. TOKEN_EXPIRED.
func WriteUnauthorizedWithCode(w http.ResponseWriter, code string, message string) {
	WriteError(w, http.StatusUnauthorized, code, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

type kindStatus struct {
	status int
	code   string
}

var kindStatuses = map[apperr.Kind]kindStatus{
	apperr.KindValidation:   {http.StatusBadRequest, ErrCodeBadRequest},
	apperr.KindUnauthorized: {http.StatusUnauthorized, ErrCodeUnauthorized},
	apperr.KindForbidden:    {http.StatusForbidden, ErrCodeForbidden},
	apperr.KindNotFound:     {http.StatusNotFound, ErrCodeNotFound},
	apperr.KindConflict:     {http.StatusConflict, ErrCodeConflict},
}

// WriteAppError maps an apperr kind to its status code. Anything else is
// logged and reported with a generic message.
func WriteAppError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if ks, ok := kindStatuses[apperr.KindOf(err)]; ok {
		WriteError(w, ks.status, ks.code, apperr.MessageOf(err))
		return
	}
	if logger != nil {
		logger.Error("internal error", zap.Error(err))
	}
	WriteInternalError(w, "Internal server error")
}
