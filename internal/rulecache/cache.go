// internal/rulecache/cache.go
//
// Site-partitioned, read-through cache of rule snapshots.
//
// Context
// -------
// The matcher wants two ordered lists per request: literal rules and
// regex rules for the resolved site.  Loading both from the database on
// every 404 would make miss storms expensive, so the lists are cached
// under a short TTL with explicit invalidation as the primary coherence
// mechanism; the TTL is only a backstop.
//
// Key layout
// ----------
//	rebound:rules:<kind>:<site-id|none>
//
// The site id (or the "none" sentinel for requests that resolved no
// site) is part of every key, so one tenant's entries can never serve
// another tenant's requests.
//
// Failure semantics
// -----------------
// kv faults degrade to a direct store read and are logged, never raised.
// A *store* read failure propagates: fabricating an empty rule list
// would silently turn a transient outage into wrong 404 passthroughs.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package rulecache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/rebound/internal/kv"
	"github.com/yanizio/rebound/internal/metrics"
	"github.com/yanizio/rebound/internal/rule"
)

const keyPrefix = "rebound:rules:"

// Lister is the slice of the rule store the cache reads through to.
type Lister interface {
	ListBySite(ctx context.Context, siteID uint64, kind rule.Kind, activeOnly bool) ([]rule.Rule, error)
}

// Cache is safe for concurrent use.  Concurrent misses on one key may
// race to populate it; both writers compute the same value, so the last
// writer winning is fine and no populate-lock is taken.
type Cache struct {
	kv         kv.Store
	store      Lister
	ttl        time.Duration
	activeOnly bool
}

// New returns a Cache over kvs and store.  activeOnly applies the
// configured inactive-rule exclusion policy to the cached lists.
func New(kvs kv.Store, store Lister, ttl time.Duration, activeOnly bool) *Cache {
	return &Cache{kv: kvs, store: store, ttl: ttl, activeOnly: activeOnly}
}

// key builds the composite cache key.  siteID 0 is the "no site" partition.
func key(kind rule.Kind, siteID uint64) string {
	scope := "none"
	if siteID != 0 {
		scope = strconv.FormatUint(siteID, 10)
	}
	return keyPrefix + kind.String() + ":" + scope
}

// Rules returns the ordered rule list for (siteID, kind), populating the
// cache on a miss.
func (c *Cache) Rules(ctx context.Context, siteID uint64, kind rule.Kind) ([]rule.Rule, error) {
	k := key(kind, siteID)

	raw, ok, err := c.kv.Get(ctx, k)
	if err != nil {
		zap.S().Warnw("rule cache get failed, reading store directly", "key", k, "err", err)
	}
	if ok {
		var rules []rule.Rule
		if err := json.Unmarshal(raw, &rules); err == nil {
			metrics.RuleCacheHitTotal.Inc()
			return rules, nil
		}
		// Undecodable entry: drop it and fall through to the store.
		zap.S().Warnw("rule cache entry undecodable, evicting", "key", k)
		_ = c.kv.Delete(ctx, k)
	}
	metrics.RuleCacheMissTotal.Inc()

	rules, err := c.store.ListBySite(ctx, siteID, kind, c.activeOnly)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(rules); err == nil {
		if err := c.kv.Set(ctx, k, raw, c.ttl); err != nil {
			zap.S().Warnw("rule cache set failed", "key", k, "err", err)
		}
	}
	return rules, nil
}

// Invalidate removes both kinds' entries for siteID.  Idempotent, safe
// when no entry exists, and scoped so other sites' entries survive.
// Implements rule.Invalidator.
func (c *Cache) Invalidate(ctx context.Context, siteID uint64) {
	keys := []string{key(rule.KindLiteral, siteID), key(rule.KindRegex, siteID)}
	if err := c.kv.Delete(ctx, keys...); err != nil {
		// The TTL backstop bounds how long the stale entries can linger.
		zap.S().Warnw("rule cache invalidation failed", "site", siteID, "err", err)
	}
}
