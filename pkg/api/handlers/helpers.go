package handlers

import (
	"encoding/json"
	"net/http"

	"chatsync/pkg/errdefs"
)

// StatusFor maps a taxonomy kind onto an HTTP status for the local
// surface.
func StatusFor(kind errdefs.Kind) int {
	switch kind {
	case errdefs.KindNetworkUnavailable:
		return http.StatusServiceUnavailable
	case errdefs.KindAuthenticationMissing:
		return http.StatusUnauthorized
	case errdefs.KindAuthorizationDenied:
		return http.StatusForbidden
	case errdefs.KindServerRejected:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes a taxonomy-aware JSON error body.
func WriteError(w http.ResponseWriter, err error) {
	kind := errdefs.KindOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(kind))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"kind":  string(kind),
	})
}

// writeJSON writes a 200 JSON response.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes a request body, replying 400 on malformed input.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return false
	}
	return true
}
