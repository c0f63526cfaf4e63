package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/idunn/internal/domain"
	"github.com/dukerupert/idunn/internal/middleware"
)

// ErrorCodeToHTTPStatus maps application error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EUNAVAILABLE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON error envelope returned by every endpoint.
type errorBody struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse writes a JSON error response derived from a domain error.
// Internal errors are logged with their cause; the body only ever carries
// the user-safe message.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)

	logger := middleware.GetLogger(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"error", err.Error(),
			"code", code,
			"op", domain.ErrorOp(err),
			"status", status,
		)
	} else {
		logger.Warn("request rejected",
			"error", err.Error(),
			"code", code,
			"status", status,
		)
	}

	JSONResponse(w, status, errorBody{
		Success: false,
		Code:    code,
		Message: domain.ErrorMessage(err),
	})
}

// JSONResponse writes v as a JSON body with the given status.
func JSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
