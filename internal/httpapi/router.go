package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still attach /shutdown (needs srv+token).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Submissions
	sub := SubmissionsHandler{Registry: d.Submissions, New: d.NewSubmission}
	mux.HandleFunc("/submissions", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  sub.List,
		http.MethodPost: sub.Create,
	}))
	mux.HandleFunc("/submissions/", sub.ByPath) // /submissions/{id}[/{action}]

	// Application history + resumes
	ah := ApplicationsHandler{DB: d.DB, Refresher: d.Refresher}
	mux.HandleFunc("/applications", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ah.List,
	}))
	mux.HandleFunc("/applications/refresh", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ah.Refresh,
	}))
	mux.HandleFunc("/applications/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ah.Status,
	}))
	mux.HandleFunc("/resumes", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ah.Resumes,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// Secrets
	sh := SecretsHandler{}
	mux.HandleFunc("/api/secrets/token", methodMux(map[string]http.HandlerFunc{
		http.MethodPost:   sh.SetToken,
		http.MethodDelete: sh.DeleteToken,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	// Health
	hh := HealthHandler{Refresher: d.Refresher}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	return mux
}
