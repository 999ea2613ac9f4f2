// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeError writes an error response of the given category.
func writeError(w http.ResponseWriter, code int, category, message string) {
	writeJSON(w, code, errorResponse{Error: category, Message: message})
}
