// Package handlers provides the HTTP handlers for the trading journal API.
package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	apperrors "tradejournal/internal/errors"
)

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Handlers] Encoding response: %v", err)
	}
}

// respondError maps an error to its HTTP status and writes a JSON body.
// Internal errors are logged but not echoed to the client.
func respondError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	message := err.Error()
	if status >= 500 {
		log.Printf("[Handlers] %v", err)
		if !apperrors.IsTransport(err) && !apperrors.IsConfiguration(err) {
			message = "internal server error"
		}
	}
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a request body into v with a size cap.
func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.Validation("invalid request body")
	}
	return nil
}
