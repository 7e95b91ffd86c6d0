// cmd/web/main.go
//
// Rebound – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (jail-wide file → .env fallback).
//
//  2. Load and validate the layered configuration.
//
//  3. Start the daily rotating logger (tees to console in a TTY).
//
//  4. Open the control-plane DB and log the active-site count.
//
//  5. Select the rule-cache kv backend (in-process memory, or Redis when
//     replicas must share invalidations).
//
//  6. Wire store → cache → invalidator, the host resolver, and the
//     404-interception middleware.
//
//  7. Serve: a chi router carries /metrics and /healthz; every other
//     path falls through to the router's 404, which the middleware
//     intercepts and resolves against the redirect rules.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/rebound/internal/config"
	"github.com/yanizio/rebound/internal/database"
	"github.com/yanizio/rebound/internal/kv"
	"github.com/yanizio/rebound/internal/logger"
	"github.com/yanizio/rebound/internal/redirect"
	"github.com/yanizio/rebound/internal/rule"
	"github.com/yanizio/rebound/internal/rulecache"
	"github.com/yanizio/rebound/internal/site"
)

const serverEnvPath = "/usr/local/etc/rebound/global.env"

// loadEnv prefers the jail-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logOut, err := logger.New(cfg.Paths.Root, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}

	//
	// ── 1.  Control-plane DB connect ────────────────────────────────────
	//
	logOut.Infow("connecting to DB")
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		logOut.Fatalw("connect DB", "err", err)
	}
	defer db.Close()

	// Log active-site count as an early sanity check.
	if n, err := site.CountActive(ctx, db); err == nil {
		logOut.Infow("DB online", "active_sites", n)
	} else {
		logOut.Warnw("DB online, site count unavailable", "err", err)
	}

	//
	// ── 2.  Rule-cache kv backend ───────────────────────────────────────
	//
	var kvs kv.Store
	switch cfg.Cache.Backend {
	case "redis":
		rdb, err := kv.NewRedis(ctx, cfg.Cache.RedisAddr)
		if err != nil {
			logOut.Fatalw("connect redis", "addr", cfg.Cache.RedisAddr, "err", err)
		}
		defer rdb.Close()
		kvs = rdb
	default:
		kvs = kv.NewMemory()
	}

	//
	// ── 3.  Engine wiring: store → cache → invalidator ─────────────────
	//
	store := rule.NewStore(db, cfg.Redirect.AppendSlash)
	cache := rulecache.New(kvs, store, cfg.Redirect.CacheTTL, cfg.Redirect.ExcludeInactive)
	store.SetInvalidator(cache)

	sites := site.NewResolver(db, site.EntryTTL)

	mw := redirect.New(sites, cache, store, nil,
		cfg.Redirect.AppendSlash, cfg.Redirect.IgnoredPaths)

	//
	// ── 4.  Router: ops endpoints, then 404 interception ───────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Ping(); err != nil {
			http.Error(w, "db unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Every unrouted path 404s inside chi; the middleware intercepts that
	// 404 and resolves it against the rule store.  Site resolution runs
	// outermost so the interceptor finds the tenant in the context.
	root := site.Middleware(sites)(mw.Handler(r))

	logOut.Infow("redirect engine online", "listen", cfg.HTTP.ListenAddr)
	if err := http.ListenAndServe(cfg.HTTP.ListenAddr, root); err != nil {
		logOut.Fatalw("http server", "err", err)
	}
}
