package server

import (
	"encoding/json"
	"net/http"

	"github.com/matzehuels/flowmend/pkg/errors"
)

type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code errors.Code, msg string) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: msg}})
}

// writeError maps a coded error to its HTTP status. Uncoded errors are
// internal.
func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeErr(w, statusFor(err, code), code, errors.UserMessage(err))
}

func statusFor(err error, code errors.Code) int {
	if errors.IsFatal(err) {
		return http.StatusUnprocessableEntity
	}
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case errors.ErrCodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case errors.ErrCodeNotFound, errors.ErrCodeWorkflowNotFound:
		return http.StatusNotFound
	case errors.ErrCodeStorage, errors.ErrCodeTimeout:
		return http.StatusServiceUnavailable
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}
