package httpapi

import (
	"database/sql"
	"net/http"
	"strconv"

	"applyflow-engine/internal/refresh"
	"applyflow-engine/internal/store"
)

type ApplicationsHandler struct {
	DB        *sql.DB
	Refresher *refresh.Refresher
}

// List serves the locally cached application history.
func (h ApplicationsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	apps, err := store.ListApplications(r.Context(), h.DB, limit, offset)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if apps == nil {
		apps = []store.Application{}
	}
	writeJSON(w, map[string]any{"applications": apps})
}

// Refresh forces an immediate history pull instead of waiting for the timer.
func (h ApplicationsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	added, err := h.Refresher.RunOnce(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusBadGateway, "refresh_failed", err.Error())
		return
	}
	writeJSON(w, map[string]any{"added": added})
}

func (h ApplicationsHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Refresher.Status())
}

// Resumes serves the cached resume list for the submission picker.
func (h ApplicationsHandler) Resumes(w http.ResponseWriter, r *http.Request) {
	resumes := h.Refresher.Resumes()
	if resumes == nil {
		writeJSON(w, map[string]any{"resumes": []any{}})
		return
	}
	writeJSON(w, map[string]any{"resumes": resumes})
}
