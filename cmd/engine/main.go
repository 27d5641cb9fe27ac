package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"

	"applyflow-engine/internal/backend"
	"applyflow-engine/internal/config"
	"applyflow-engine/internal/events"
	"applyflow-engine/internal/httpapi"
	"applyflow-engine/internal/jobpage"
	"applyflow-engine/internal/refresh"
	"applyflow-engine/internal/secrets"
	"applyflow-engine/internal/store"
	"applyflow-engine/internal/submit"
)

func main() {
	// .env is optional; real config lives in the YAML file.
	_ = godotenv.Load()

	// Engine data dir: use env if provided (the desktop shell passes one),
	// else local folder.
	dataDir := os.Getenv("APPLYFLOW_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// Single-instance guard: two engines sharing one sqlite file corrupt the
	// upsert bookkeeping.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("instance lock failed: %v", err)
	}
	if !locked {
		log.Fatal("another engine instance is already running")
	}
	defer func() { _ = lock.Unlock() }()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		return config.Load(userCfgPath)
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	dbPath := filepath.Join(dataDir, "applyflow.db")
	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal(err)
	}

	hub := events.NewHub()

	// Backend base URL and rate limits are read once; a base_url change in
	// the saved config takes effect on the next engine start.
	client := backend.New(cfg.Backend.BaseURL, backendToken, backend.Options{
		Timeout:        time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
		RequestsPerSec: cfg.Backend.RequestsPerSec,
		Burst:          cfg.Backend.Burst,
	})

	registry := submit.NewRegistry()
	recorder := attemptRecorder{db: db.Pool}
	newSubmission := func() *submit.Controller {
		cur := cfgVal.Load().(config.Config)
		return registry.Create(client, submit.ControllerOptions{
			Recorder:              recorder,
			Hub:                   hub,
			Rules:                 cur.Prompts.Rules,
			RequiredProfileFields: cur.Profile.RequiredFields,
			MaxRounds:             cur.Retry.MaxRounds,
			Timeout:               time.Duration(cur.Backend.TimeoutSeconds) * time.Second,
			Domain:                jobpage.Domain,
			Enrich: func(ctx context.Context, jobURL string) (string, string) {
				p := jobpage.FetchPosting(ctx, jobURL)
				return p.Title, p.Company
			},
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refresher := refresh.New(db.Pool, client, hub, &cfgVal)
	refresher.Start(ctx)

	mux := httpapi.NewMux(httpapi.Deps{
		DB:            db.Pool,
		Hub:           hub,
		CfgVal:        &cfgVal,
		UserCfgPath:   userCfgPath,
		LoadCfg:       loadCfg,
		Submissions:   registry,
		NewSubmission: newSubmission,
		Refresher:     refresher,
	})

	srv := &http.Server{
		Handler: httpapi.Chain(mux,
			httpapi.Cors,
			httpapi.RequestID,
			httpapi.Recover,
			httpapi.AccessLog,
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Shutdown endpoint is token-guarded; the token is written next to the
	// db so only the desktop shell can stop us.
	shutdownToken, err := randomToken(16)
	if err != nil {
		log.Fatal(err)
	}
	tokenPath := filepath.Join(dataDir, "shutdown.token")
	if err := os.WriteFile(tokenPath, []byte(shutdownToken), 0o600); err != nil {
		log.Fatal(err)
	}
	mux.HandleFunc("/shutdown", shutdownHandler(&shutdownToken, srv))

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("engine listening on http://%s (db=%s backend=%s)", addr, dbPath, cfg.Backend.BaseURL)

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	log.Printf("engine stopped")
}

// backendToken is read per-request so a token saved through the API takes
// effect without a restart.
func backendToken() string {
	tok, err := secrets.GetBackendToken()
	if err != nil {
		return ""
	}
	return tok
}
