package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "credhub/pkg/domain-errors"
)

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError centralizes domain error translation to HTTP responses.
// It translates transport-agnostic domain errors into HTTP status codes and error responses.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorWith(w, err, nil)
}

// WriteErrorWith writes the standard error envelope plus extra fields, such as
// the list of valid alternatives a caller can retry with.
func WriteErrorWith(w http.ResponseWriter, err error, extra map[string]any) {
	response := map[string]any{}
	for k, v := range extra {
		response[k] = v
	}

	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		response["error"] = string(domainErr.Code)
		status := DomainCodeToHTTPStatus(domainErr.Code)
		// 5xx descriptions may carry file paths or driver messages.
		if domainErr.Message != "" && status < http.StatusInternalServerError {
			response["error_description"] = domainErr.Message
		}
		WriteJSON(w, status, response)
		return
	}

	response["error"] = string(dErrors.CodeInternal)
	WriteJSON(w, http.StatusInternalServerError, response)
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation,
		dErrors.CodeMissingField, dErrors.CodeInvalidAddress, dErrors.CodeInvalidCommitment, dErrors.CodeUnsupportedType,
		dErrors.CodeMissingProof, dErrors.CodeMalformedProof:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeInternal, dErrors.CodePersistence:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
