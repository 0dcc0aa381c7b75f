package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/esetaro2/progresso-backend-sub000/internal/apperr"
)

const maxBodyBytes = 1 << 20

// Codes raised by the transport itself rather than the allocation service.
const (
	codeUnauthenticated apperr.Code = "UNAUTHENTICATED"
	codeRateLimited     apperr.Code = "RATE_LIMITED"
	codeUnavailable     apperr.Code = "UNAVAILABLE"
)

type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error envelope.
func writeError(w http.ResponseWriter, status int, code apperr.Code, msg string) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: string(code), Message: msg}})
}

// writeAppError maps a service error to its HTTP status and envelope.
func (r *Router) writeAppError(w http.ResponseWriter, req *http.Request, err error) {
	appErr := apperr.From(err)
	status := appErr.Kind().HTTPStatus()
	if status >= http.StatusInternalServerError {
		r.logger.Error("request failed", "path", req.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]errorBody{"error": {
		Code:     string(appErr.Code),
		Message:  appErr.Message,
		Metadata: appErr.Metadata,
	}})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, req *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body required"
		}
		writeError(w, http.StatusBadRequest, apperr.CodeValidation, msg)
		return false
	}
	return true
}
