// Package handler provides HTTP handlers for the webhook and admin API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/capitalize-ai/dispatch-core/internal/gateway"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// writeSendError maps dispatcher errors to status codes: 400 for invalid
// input, 429 for a spent budget and 502 for gateway failures.
func writeSendError(w http.ResponseWriter, err error, retryAfterSeconds int) {
	var (
		validation *gateway.ValidationError
		upstream   *gateway.Error
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.Is(err, gateway.ErrRateLimited):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &upstream):
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":       "gateway request failed",
			"status_code": upstream.StatusCode,
			"code":        upstream.Code,
			"type":        upstream.Type,
			"message":     upstream.Message,
		})
	default:
		writeError(w, http.StatusInternalServerError, "failed to send message")
	}
}
