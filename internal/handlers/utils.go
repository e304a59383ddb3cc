package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"media-converter/internal/apperror"
	"media-converter/internal/logging"
	"media-converter/internal/middleware"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatus writes v with the given status code.
func writeJSONStatus(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
	Field  string `json:"field,omitempty"`
}

// writeError maps err to its status code and JSON body. Only the message
// of an *apperror.Error reaches the client; wrapped causes are logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Wrap(apperror.Internal, err, "Internal server error")
	}

	status := apperror.HTTPStatus(appErr.Reason)
	id := middleware.RequestID(r.Context())
	if status >= http.StatusInternalServerError {
		logging.Error("[%s] %s %s failed: %v", id, r.Method, r.URL.Path, err)
	} else {
		logging.Debug("[%s] %s %s rejected: %v", id, r.Method, r.URL.Path, err)
	}

	message := appErr.Message
	if message == "" {
		message = string(appErr.Reason)
	}
	writeJSONStatus(w, status, ErrorResponse{
		Error:  message,
		Reason: string(appErr.Reason),
		Field:  appErr.Field,
	})
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, limit int64) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.New(apperror.InvalidRequest, "Request body is too large")
		}
		return apperror.Wrap(apperror.InvalidRequest, err, "Request body must be a JSON object")
	}
	return nil
}
