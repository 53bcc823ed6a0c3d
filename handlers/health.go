package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// Version is set at build time with -ldflags "-X reviewverso/handlers.Version=..."
// or read from version.txt.
var (
	Version     string
	versionOnce sync.Once
)

// GetVersion returns the build version (cached after first read).
func GetVersion() string {
	versionOnce.Do(func() {
		if Version != "" {
			return
		}
		for _, path := range []string{"version.txt", "/app/version.txt"} {
			data, err := os.ReadFile(path)
			if err == nil {
				Version = strings.TrimSpace(string(data))
				return
			}
		}
		Version = "unknown"
	})
	return Version
}

type sessionCounter interface {
	Count() int
}

// HealthHandler reports liveness. Its response is not wrapped in an envelope.
type HealthHandler struct {
	sessions sessionCounter
	started  time.Time
}

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
}

func NewHealthHandler(sessions sessionCounter) *HealthHandler {
	return &HealthHandler{sessions: sessions, started: time.Now()}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: GetVersion(),
		Uptime:  time.Since(h.started).Round(time.Second).String(),
	}
	if h.sessions != nil {
		resp.Sessions = h.sessions.Count()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
