package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/rylie-seo/vendor-relay/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// writeError emits the relay's error envelope. The message must already be
// safe for external eyes; internal detail belongs in logs only.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{
		Error:      message,
		StatusCode: status,
	})
}
