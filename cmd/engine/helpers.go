package main

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"net"
	"net/http"
	"time"

	"applyflow-engine/internal/store"
	"applyflow-engine/internal/submit"
)

// attemptRecorder persists finished submission attempts into the local
// history cache, where the next refresh will reconcile them with the
// backend's view.
type attemptRecorder struct {
	db *sql.DB
}

func (r attemptRecorder) RecordAttempt(ctx context.Context, a submit.Attempt) error {
	_, err := store.UpsertApplication(ctx, r.db, store.Application{
		ApplicationID: a.ApplicationID,
		Code:          a.ApplicationCode,
		JobURL:        a.JobURL,
		ResumeID:      a.ResumeID,
		Title:         a.Title,
		Company:       a.Company,
		Status:        a.Status,
		Notes:         a.Notes,
		ScreenshotURL: a.ScreenshotURL,
	})
	return err
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func shutdownHandler(token *string, srv *http.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		// Local-only guard (covers typical desktop usage)
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			// RemoteAddr can sometimes be just a host; fall back safely
			host = r.RemoteAddr
		}
		if host != "127.0.0.1" && host != "::1" && host != "localhost" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		// Token guard
		got := r.Header.Get("X-Shutdown-Token")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(*token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// Respond immediately, then shutdown asynchronously
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("shutting down\n"))

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}
}
