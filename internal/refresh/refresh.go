// Package refresh keeps the local caches warm: it periodically pulls the
// application history and recent resumes from the backend, upserts the
// history into the local store and notifies SSE clients.
package refresh

import (
	"context"
	"database/sql"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"applyflow-engine/internal/backend"
	"applyflow-engine/internal/config"
	"applyflow-engine/internal/events"
	"applyflow-engine/internal/store"
)

// Status is the last refresh outcome, served on the status endpoint.
type Status struct {
	LastRunAt string `json:"last_run_at"`
	LastOkAt  string `json:"last_ok_at"`
	LastError string `json:"last_error"`
	LastAdded int    `json:"last_added"`
	Running   bool   `json:"running"`
}

// Service is the slice of the backend client the refresher consumes.
type Service interface {
	ListApplications(ctx context.Context, limit, offset int) ([]backend.JobApplication, error)
	RecentResumes(ctx context.Context) ([]backend.Resume, error)
}

type Refresher struct {
	db  *sql.DB
	svc Service
	hub *events.Hub

	cfgVal  *atomic.Value // config.Config
	status  atomic.Value  // Status
	resumes atomic.Value  // []backend.Resume
}

func New(db *sql.DB, svc Service, hub *events.Hub, cfgVal *atomic.Value) *Refresher {
	r := &Refresher{db: db, svc: svc, hub: hub, cfgVal: cfgVal}
	r.status.Store(Status{})
	r.resumes.Store([]backend.Resume(nil))
	return r
}

func (r *Refresher) Status() Status {
	return r.status.Load().(Status)
}

// Resumes returns the cached resume list from the last successful refresh.
func (r *Refresher) Resumes() []backend.Resume {
	return r.resumes.Load().([]backend.Resume)
}

// Start runs the refresh loop until ctx is cancelled. The interval is
// re-read from config each round so a saved config change takes effect
// without a restart.
func (r *Refresher) Start(ctx context.Context) {
	go func() {
		// run immediately
		if _, err := r.RunOnce(ctx); err != nil {
			log.Printf("[refresh] error: %v", err)
		}

		for {
			t := time.NewTimer(r.interval())
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
				if _, err := r.RunOnce(ctx); err != nil {
					log.Printf("[refresh] error: %v", err)
				}
			}
		}
	}()
}

func (r *Refresher) interval() time.Duration {
	seconds := 300
	if cfgAny := r.cfgVal.Load(); cfgAny != nil {
		if s := cfgAny.(config.Config).Refresh.Seconds; s > 0 {
			seconds = s
		}
	}
	return time.Duration(seconds) * time.Second
}

// RunOnce pulls applications and resumes concurrently and reports how many
// history records were new.
func (r *Refresher) RunOnce(ctx context.Context) (added int, err error) {
	st := r.Status()
	st.Running = true
	st.LastRunAt = time.Now().Format(time.RFC3339)
	r.status.Store(st)

	var apps []backend.JobApplication
	var resumes []backend.Resume

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var e error
		apps, e = r.svc.ListApplications(gctx, 200, 0)
		return e
	})
	g.Go(func() error {
		var e error
		resumes, e = r.svc.RecentResumes(gctx)
		return e
	})
	err = g.Wait()

	if err == nil {
		r.resumes.Store(resumes)
		for _, app := range apps {
			isNew, upErr := store.UpsertApplication(ctx, r.db, applicationRecord(app))
			if upErr != nil {
				err = upErr
				break
			}
			if isNew {
				added++
			}
		}
	}

	st = r.Status()
	st.Running = false
	st.LastAdded = added
	if err != nil {
		st.LastError = err.Error()
	} else {
		st.LastError = ""
		st.LastOkAt = time.Now().Format(time.RFC3339)
		log.Printf("[refresh] ok applications=%d added=%d resumes=%d", len(apps), added, len(resumes))
		r.hub.Emit("", events.TypeHistoryRefreshed, map[string]any{
			"applications": len(apps),
			"added":        added,
		})
	}
	r.status.Store(st)
	return added, err
}

func applicationRecord(app backend.JobApplication) store.Application {
	return store.Application{
		ApplicationID: app.ID,
		Code:          app.ApplicationCode,
		JobURL:        app.JobURL,
		ResumeID:      app.ResumeID,
		Title:         app.PositionTitle,
		Company:       app.CompanyName,
		Status:        app.Status,
		Notes:         app.Notes,
		ScreenshotURL: app.ScreenshotURL,
		AppliedAt:     app.AppliedAt,
	}
}
