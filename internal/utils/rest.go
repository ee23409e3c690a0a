// Package utils holds JSON response helpers shared by the admin endpoints.
package utils

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON body returned on any admin API error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondWithError sends an error response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondMethodNotAllowed rejects a request whose method the endpoint does
// not serve.
func RespondMethodNotAllowed(w http.ResponseWriter) {
	RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "Failed to encode response: "+err.Error(), http.StatusInternalServerError)
		return err
	}
	return nil
}
