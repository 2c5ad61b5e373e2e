package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"flutterwatch/internal/supervisor"
	"flutterwatch/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// requestError rejects a malformed request before it reaches the service.
type requestError struct {
	status int
	msg    string
}

func (e requestError) Error() string   { return e.msg }
func (e requestError) StatusCode() int { return e.status }

// statusFor maps a service error to a response status. Reloads refused
// because the child is not in a reloadable state are conflicts, not failures.
func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if supervisor.IsDispatchRejected(err) {
		return http.StatusConflict
	}
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeError writes err with the status statusFor picks.
func writeError(w http.ResponseWriter, err error) int {
	status := statusFor(err)
	writeJSONError(w, status, err.Error())
	return status
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logf(LevelError, "encode response: %v", err)
	}
}
