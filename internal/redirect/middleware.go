// internal/redirect/middleware.go
//
// 404 interception and redirect resolution.
//
/*
Context
--------
The middleware wraps the downstream handler and acts only when that
handler produced a 404.  For every intercepted miss it:

  1. Resolves the owning site from the Host header (an outer middleware
     may have resolved it already via site.WithRecord).  No site means
     the "no site" partition, never a failure.
  2. Fetches the literal and regex rule lists through the rule cache.
  3. Runs the pure matcher.
  4. Serves a 301/302 to the absolute target on a usable match, counting
     the hit in-store; replays the original 404 otherwise, recording a
     deduplicated miss row when nothing matched at all.

An ignore list of path patterns (static assets, favicons) bypasses the
engine entirely: those requests never see the recorder.

Failure policy
--------------
Everything fails open toward the original 404.  A rule-store outage is
logged and counted but the client still gets the downstream response; a
failed hit-count write is logged and counted, never silently dropped,
and never blocks the redirect.

Notes
-----
  • Side effects are synchronous in the request path; nothing is queued.
  • Oxford commas, two spaces after periods.
*/
package redirect

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/rebound/internal/match"
	"github.com/yanizio/rebound/internal/metrics"
	"github.com/yanizio/rebound/internal/rule"
	"github.com/yanizio/rebound/internal/rulecache"
	"github.com/yanizio/rebound/internal/site"
	"github.com/yanizio/rebound/internal/ua"
)

// PageResolver turns a content-page reference into a URL.  The CMS side
// owns pages; the engine only consumes this contract.  Resolution
// failure degrades the match to "no usable target."
type PageResolver interface {
	PageURL(ctx context.Context, pageID uint64) (string, error)
}

// Middleware carries the engine's collaborators.  Construct with New.
type Middleware struct {
	sites *site.Resolver
	cache *rulecache.Cache
	store *rule.Store
	pages PageResolver // may be nil when the deployment has no page store

	appendSlash bool
	ignored     []*regexp.Regexp
}

// New compiles the ignore list and wires the collaborators.  A malformed
// ignore pattern is a non-fatal configuration error: it is logged and
// skipped, the rest of the list stands.
func New(
	sites *site.Resolver,
	cache *rulecache.Cache,
	store *rule.Store,
	pages PageResolver,
	appendSlash bool,
	ignoredPaths []string,
) *Middleware {
	m := &Middleware{
		sites:       sites,
		cache:       cache,
		store:       store,
		pages:       pages,
		appendSlash: appendSlash,
	}
	for _, pat := range ignoredPaths {
		re, err := regexp.Compile(pat)
		if err != nil {
			zap.S().Warnw("ignored-path pattern malformed, skipping", "pattern", pat, "err", err)
			continue
		}
		m.ignored = append(m.ignored, re)
	}
	return m
}

// Handler wraps next with 404 interception.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.isIgnored(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		rec := newRecorder(w)
		next.ServeHTTP(rec, r)
		if !rec.intercepted {
			return
		}

		m.handleMiss(w, r, rec)
	})
}

// handleMiss owns the intercepted-404 path.
func (m *Middleware) handleMiss(w http.ResponseWriter, r *http.Request, rec *recorder) {
	ctx := r.Context()

	siteRec := site.FromContext(ctx)
	if siteRec == nil && m.sites != nil {
		var err error
		siteRec, err = m.sites.Resolve(ctx, r.Host)
		if err != nil {
			metrics.SiteResolveErrorsTotal.Inc()
			zap.S().Warnw("site resolution failed, using no-site partition",
				"host", r.Host, "err", err)
		}
	}
	var siteID uint64
	if siteRec != nil {
		siteID = siteRec.ID
	}

	literals, err := m.cache.Rules(ctx, siteID, rule.KindLiteral)
	if err == nil {
		var regexes []rule.Rule
		regexes, err = m.cache.Rules(ctx, siteID, rule.KindRegex)
		if err == nil {
			m.resolve(w, r, rec, siteID, literals, regexes)
			return
		}
	}

	// Store outage: fail open toward the downstream 404.
	metrics.StoreErrorsTotal.Inc()
	zap.S().Errorw("rule lookup failed, serving original 404",
		"site", siteID, "path", r.URL.Path, "err", err)
	rec.replay()
}

// resolve runs the matcher and serves the outcome.
func (m *Middleware) resolve(
	w http.ResponseWriter, r *http.Request, rec *recorder,
	siteID uint64, literals, regexes []rule.Rule,
) {
	res := match.Resolve(r.URL.Path, r.URL.RawQuery, literals, regexes, m.appendSlash)

	switch res.Outcome {
	case match.Matched:
		target := res.Target
		if target == "" {
			target = m.resolvePage(r.Context(), res)
		}
		if target == "" {
			// Matched a rule whose destination cannot be resolved.
			m.countHit(r.Context(), res.Rule)
			metrics.RedirectNoTargetTotal.Inc()
			rec.replay()
			return
		}

		m.countHit(r.Context(), res.Rule)
		metrics.RedirectMatchTotal.WithLabelValues(res.Rule.Kind().String()).Inc()

		status := http.StatusFound
		if res.Rule.IsPermanent {
			status = http.StatusMovedPermanently
		}
		http.Redirect(w, r, absoluteTarget(r, target), status)

	case match.MatchedNoTarget:
		m.countHit(r.Context(), res.Rule)
		metrics.RedirectNoTargetTotal.Inc()
		rec.replay()

	default: // match.NoMatch
		m.recordMiss(r, siteID)
		rec.replay()
	}
}

// resolvePage follows a rule's page reference, re-expanding captures so a
// page URL containing `$1` lines up with the pattern that matched.
func (m *Middleware) resolvePage(ctx context.Context, res match.Result) string {
	if m.pages == nil || res.Rule.TargetPageID == nil {
		return ""
	}
	url, err := m.pages.PageURL(ctx, *res.Rule.TargetPageID)
	if err != nil {
		zap.S().Warnw("page target resolution failed",
			"rule", res.Rule.ID, "page", *res.Rule.TargetPageID, "err", err)
		return ""
	}
	return res.ExpandTarget(url)
}

// countHit bumps the matched rule's counter.  A write failure must not be
// silently dropped, so it is logged and counted, but it never blocks the
// response.
func (m *Middleware) countHit(ctx context.Context, r *rule.Rule) {
	if err := m.store.IncrementHits(ctx, r.ID); err != nil {
		metrics.StoreErrorsTotal.Inc()
		zap.S().Errorw("hit-count increment failed", "rule", r.ID, "err", err)
	}
}

// recordMiss captures a previously unseen 404 for triage.  The parsed
// User-Agent is logged with the new row so scanners are easy to separate
// from humans.
func (m *Middleware) recordMiss(r *http.Request, siteID uint64) {
	created, err := m.store.RecordMiss(r.Context(), siteID, r.URL.Path)
	if err != nil {
		metrics.StoreErrorsTotal.Inc()
		zap.S().Errorw("miss recording failed", "site", siteID, "path", r.URL.Path, "err", err)
		return
	}
	if !created {
		return
	}

	metrics.MissRecordedTotal.Inc()
	agent := ua.Parse(r.UserAgent())
	zap.S().Infow("unseen 404 recorded",
		"site", siteID,
		"path", r.URL.Path,
		"browser", agent.Browser,
		"os", agent.OS,
		"device", agent.Device,
		"bot", agent.IsBot,
	)
}

// isIgnored reports whether path matches any ignore pattern.  Patterns
// match from the start of the path, mirroring the configuration format
// ("^/static/", "^/favicon.ico").
func (m *Middleware) isIgnored(path string) bool {
	for _, re := range m.ignored {
		if loc := re.FindStringIndex(path); loc != nil && loc[0] == 0 {
			return true
		}
	}
	return false
}

// absoluteTarget prepends scheme and host to relative targets; absolute
// URLs pass through untouched.
func absoluteTarget(r *http.Request, target string) string {
	if strings.HasPrefix(target, "http") {
		return target
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + target
}
