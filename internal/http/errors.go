// Package httpapi exposes the HTTP API layer of the service.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fairyhunter13/stock-locator-service/internal/model"
)

// errorBody is the error half of the response envelope, mirroring the
// upstream surface so clients see one shape end to end.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type errorEnvelope struct {
	Success   bool      `json:"success"`
	Error     errorBody `json:"error"`
	Timestamp string    `json:"timestamp"`
}

// WriteJSONError writes a JSON error envelope with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, code, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Error:     errorBody{Code: code, Message: message, Details: details},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// WriteDomainError maps a pipeline error onto the HTTP surface.
func WriteDomainError(w http.ResponseWriter, err error) {
	code := model.CodeOf(err)
	status := statusFor(code)
	var de *model.Error
	if errors.As(err, &de) {
		WriteJSONError(w, status, string(code), de.Message, de.Details)
		return
	}
	WriteJSONError(w, status, string(code), "internal error", "")
}

func statusFor(code model.Code) int {
	switch code {
	case model.CodeInvalidPostcode:
		return http.StatusBadRequest
	case model.CodeRateLimited:
		return http.StatusTooManyRequests
	case model.CodeTimeout:
		return http.StatusGatewayTimeout
	case model.CodeGeocodeUnavailable, model.CodeUpstreamError,
		model.CodeAllStoresUnreachable, model.CodeNoStoresFound:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
