package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"reviewverso/internal/apierror"
	"reviewverso/models"
)

// MsgTooManyRequests is returned with 429 responses.
const MsgTooManyRequests = "Demasiadas solicitudes, inténtalo más tarde"

// WriteData writes a successful envelope.
func WriteData(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, models.Envelope{Success: true, Data: data, Status: status})
}

// WriteMessage writes a failed envelope with an explicit message.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, models.Envelope{Success: false, Error: message, Status: status})
}

// WriteError maps err onto its status and user-facing message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := apierror.Status(err)
	if status >= http.StatusInternalServerError || errors.Is(err, apierror.ErrConnection) {
		log.Printf("[api] %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	WriteMessage(w, status, apierror.Message(err))
}

func writeEnvelope(w http.ResponseWriter, env models.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.Status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}
