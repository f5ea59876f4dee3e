package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Poll writes a 200 JSON response that clients and proxies must not cache.
// Polled state changes with the clock even when nothing is written.
func Poll(w http.ResponseWriter, data any) {
	w.Header().Set("Cache-Control", "no-store")
	JSON(w, http.StatusOK, data)
}
