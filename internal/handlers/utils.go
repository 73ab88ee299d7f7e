package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"visionvault/internal/logging"
	"visionvault/internal/tagstore"
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

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONStatus(w, statusCode, map[string]string{"error": message})
}

// statusFor maps the library error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, tagstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tagstore.ErrExists):
		return http.StatusConflict
	case errors.Is(err, tagstore.ErrInvalidName), errors.As(err, &validationErrs):
		return http.StatusBadRequest
	case errors.Is(err, tagstore.ErrPermission):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes the matching status. Client errors carry
// the error text; server errors only a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusBadRequest, http.StatusConflict:
		logging.Debug("%s %s: %v", r.Method, r.URL.Path, err)
		writeJSONError(w, err.Error(), status)
	case http.StatusInternalServerError:
		logging.Error("%s %s: %v", r.Method, r.URL.Path, err)
		writeJSONError(w, http.StatusText(status), status)
	default:
		logging.Debug("%s %s: %v", r.Method, r.URL.Path, err)
		writeJSONError(w, http.StatusText(status), status)
	}
}

// pathVar returns the {path} route variable, "" for the root.
func pathVar(r *http.Request) string {
	return mux.Vars(r)["path"]
}
