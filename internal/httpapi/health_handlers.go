package httpapi

import (
	"net/http"
	"time"

	"applyflow-engine/internal/refresh"
)

type HealthHandler struct {
	Refresher *refresh.Refresher
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"ok":   true,
		"time": time.Now().Format(time.RFC3339),
	}
	if h.Refresher != nil {
		body["refresh"] = h.Refresher.Status()
	}
	writeJSON(w, body)
}
