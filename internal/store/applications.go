package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Application is one cached job-application record. The cache mirrors the
// backend's list for offline display; records are upserted, never deleted
// here (deletion belongs to the backend).
type Application struct {
	ID            int64  `json:"id"`
	ApplicationID int64  `json:"application_id"`
	Code          string `json:"application_code,omitempty"`
	JobURL        string `json:"job_url"`
	ResumeID      int64  `json:"resume_id"`
	Title         string `json:"position_title,omitempty"`
	Company       string `json:"company_name,omitempty"`
	Status        string `json:"status"`
	Notes         string `json:"notes,omitempty"`
	ScreenshotURL string `json:"screenshot_url,omitempty"`
	AppliedAt     string `json:"applied_at"`
}

// sourceKey dedupes records across refreshes: the stable application code
// when the backend issued one, else the numeric id.
func (a Application) sourceKey() string {
	if a.Code != "" {
		return a.Code
	}
	if a.ApplicationID != 0 {
		return fmt.Sprintf("id:%d", a.ApplicationID)
	}
	return ""
}

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS applications (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  application_id INTEGER NOT NULL DEFAULT 0,
  code TEXT NOT NULL DEFAULT '',
  source_key TEXT NOT NULL DEFAULT '',
  job_url TEXT NOT NULL,
  resume_id INTEGER NOT NULL DEFAULT 0,
  title TEXT NOT NULL DEFAULT '',
  company TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'submitted',
  notes TEXT NOT NULL DEFAULT '',
  screenshot_url TEXT NOT NULL DEFAULT '',
  applied_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_applications_source_key
ON applications(source_key)
WHERE source_key != '';
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_applications_applied_at
ON applications(applied_at DESC);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}

// UpsertApplication inserts or refreshes a record keyed by its source key.
// added reports whether a new row was created.
func UpsertApplication(ctx context.Context, db *sql.DB, a Application) (added bool, err error) {
	if a.AppliedAt == "" {
		a.AppliedAt = time.Now().UTC().Format(time.RFC3339)
	}
	key := a.sourceKey()
	if key == "" {
		// local-only record (e.g. manual-review fallback before the backend
		// assigned an id); always insert
		_, err = db.ExecContext(ctx, `
INSERT INTO applications (application_id, code, source_key, job_url, resume_id, title, company, status, notes, screenshot_url, applied_at)
VALUES (?, ?, '', ?, ?, ?, ?, ?, ?, ?, ?);`,
			a.ApplicationID, a.Code, a.JobURL, a.ResumeID, a.Title, a.Company, a.Status, a.Notes, a.ScreenshotURL, a.AppliedAt,
		)
		if err != nil {
			return false, fmt.Errorf("insert application: %w", err)
		}
		return true, nil
	}

	var exists int
	_ = db.QueryRowContext(ctx, `SELECT 1 FROM applications WHERE source_key = ? LIMIT 1;`, key).Scan(&exists)

	_, err = db.ExecContext(ctx, `
INSERT INTO applications (application_id, code, source_key, job_url, resume_id, title, company, status, notes, screenshot_url, applied_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(source_key) WHERE source_key != '' DO UPDATE SET
  application_id = excluded.application_id,
  status = excluded.status,
  notes = excluded.notes,
  screenshot_url = excluded.screenshot_url,
  title = CASE WHEN excluded.title != '' THEN excluded.title ELSE applications.title END,
  company = CASE WHEN excluded.company != '' THEN excluded.company ELSE applications.company END;`,
		a.ApplicationID, a.Code, key, a.JobURL, a.ResumeID, a.Title, a.Company, a.Status, a.Notes, a.ScreenshotURL, a.AppliedAt,
	)
	if err != nil {
		return false, fmt.Errorf("upsert application: %w", err)
	}
	return exists == 0, nil
}

func ListApplications(ctx context.Context, db *sql.DB, limit, offset int) ([]Application, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := db.QueryContext(ctx, `
SELECT id, application_id, code, job_url, resume_id, title, company, status, notes, screenshot_url, applied_at
FROM applications
ORDER BY applied_at DESC, id DESC
LIMIT ? OFFSET ?;`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Application
	for rows.Next() {
		var a Application
		if err := rows.Scan(
			&a.ID, &a.ApplicationID, &a.Code, &a.JobURL, &a.ResumeID,
			&a.Title, &a.Company, &a.Status, &a.Notes, &a.ScreenshotURL, &a.AppliedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
