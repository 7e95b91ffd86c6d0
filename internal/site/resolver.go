// internal/site/resolver.go
//
// Host → site resolution with a short-TTL cache.
//
// Context
// -------
// Every 404 that reaches the redirect engine needs the owning site so
// rule lookups stay tenant-scoped.  The resolver keeps a small host →
// Record cache in a sync.Map, guarded by singleflight so a cold host
// triggers exactly one query under concurrent load.  A request whose
// host matches no row falls back to the default site; when no default
// exists either, resolution yields nil and the engine scopes its cache
// keys to a "no site" sentinel instead of failing.
//
// The "multiple sites exist" answer is a cached count with its own
// short TTL, never a process-lifetime memo, so site creation and
// deletion are observed by long-running processes.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package site

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/singleflight"
)

// Static defaults.  Override via the Resolver fields before first use.
const (
	EntryTTL = 1 * time.Minute
	CountTTL = 30 * time.Second
)

// Resolver answers host → *Record with per-host caching.  Construct with
// NewResolver; zero value is unusable.
type Resolver struct {
	db  *sqlx.DB
	sfg singleflight.Group
	m   sync.Map // host → *resolved
	ttl time.Duration

	countMu sync.Mutex
	count   int
	countAt time.Time
}

type resolved struct {
	rec      *Record // nil when the host maps to no servable site
	loadedAt int64   // UnixNano
}

// NewResolver returns a Resolver reading from db with the given entry TTL.
func NewResolver(db *sqlx.DB, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = EntryTTL
	}
	return &Resolver{db: db, ttl: ttl}
}

// Resolve maps a request Host header (port allowed) to a site Record.
// A nil Record with nil error means "no site": the caller partitions its
// work under a sentinel scope rather than treating it as a failure.
func (r *Resolver) Resolve(ctx context.Context, hostport string) (*Record, error) {
	host := stripPort(hostport)

	if v, ok := r.m.Load(host); ok {
		ent := v.(*resolved)
		if time.Since(time.Unix(0, atomic.LoadInt64(&ent.loadedAt))) < r.ttl {
			return ent.rec, nil
		}
		r.m.Delete(host)
	}

	v, err, _ := r.sfg.Do(host, func() (interface{}, error) {
		rec, err := r.lookup(ctx, host)
		if err != nil {
			return nil, err
		}
		r.m.Store(host, &resolved{rec: rec, loadedAt: time.Now().UnixNano()})
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(*Record), nil
}

// lookup performs the uncached resolution: exact host row first, then the
// default site, then "no site."
func (r *Resolver) lookup(ctx context.Context, host string) (*Record, error) {
	rec, err := ByHost(ctx, r.db, host)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	rec, err = Default(ctx, r.db)
	if err == nil {
		return rec, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return nil, err
}

// MultiSite reports whether more than one servable site exists.  The count
// is cached for CountTTL; a count failure reuses the previous answer.
func (r *Resolver) MultiSite(ctx context.Context) bool {
	r.countMu.Lock()
	defer r.countMu.Unlock()

	if time.Since(r.countAt) < CountTTL {
		return r.count > 1
	}
	n, err := CountActive(ctx, r.db)
	if err != nil {
		return r.count > 1
	}
	r.count = n
	r.countAt = time.Now()
	return n > 1
}

// Invalidate drops one host from the resolver cache.  Used by tests and by
// site-mutation paths.
func (r *Resolver) Invalidate(hostport string) {
	r.m.Delete(stripPort(hostport))
}

// stripPort removes any ":port" suffix from the Host header.
func stripPort(h string) string {
	if i := strings.LastIndexByte(h, ':'); i != -1 && !strings.Contains(h[i:], "]") {
		return h[:i]
	}
	return h
}
