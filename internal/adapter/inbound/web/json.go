package web

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON shape of gateway transport errors.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteJSONError writes a transport error body with the given status.
// errType is a machine-readable token, message is human-readable.
func WriteJSONError(w http.ResponseWriter, status int, errType, message string) {
	WriteJSON(w, status, ErrorBody{Error: errType, Message: message})
}
