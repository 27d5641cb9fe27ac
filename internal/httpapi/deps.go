package httpapi

import (
	"database/sql"
	"sync/atomic"

	"applyflow-engine/internal/config"
	"applyflow-engine/internal/events"
	"applyflow-engine/internal/refresh"
	"applyflow-engine/internal/submit"
)

type Deps struct {
	DB *sql.DB

	Hub *events.Hub

	// Atomic store for the live config
	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Submission flows. NewSubmission allocates a registered controller
	// wired with the live config (inject for testability).
	Submissions   *submit.Registry
	NewSubmission func() *submit.Controller

	Refresher *refresh.Refresher
}
