package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// RequireMethod validates that the request uses the given method. Returns
// false after writing the error response when it does not.
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// PathID extracts the numeric resource id from a path of the form
// prefix/{id} or prefix/{id}/suffix. Returns 0 and false when the segment
// is missing or not a number.
func PathID(path, prefix string) (uint64, bool) {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return 0, false
	}
	segment := rest
	if idx := strings.Index(rest, "/"); idx >= 0 {
		segment = rest[:idx]
	}
	id, err := strconv.ParseUint(segment, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// DecodeJSONBody decodes the request body into out, rejecting unknown fields
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
