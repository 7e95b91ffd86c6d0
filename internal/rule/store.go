// internal/rule/store.go
//
// Query helpers for the `redirect_rule` table.
//
// Context
// -------
// The store is the single write path for rules, so cache coherence hangs
// off it: every successful insert, update, or delete calls the bound
// Invalidator exactly once with the affected site.  That is a direct
// interface call, not a broadcast signal, so one site's mutation never
// disturbs another site's cache entries.
//
// Reads used by the request path:
//
//	ListBySite     – one kind's rules for a site, fallback rules last.
//	ExistsVariants – duplicate probe over a URL-variant set.
//
// Writes:
//
//	IncrementHits  – atomic in-store counter bump, never read-modify-write.
//	Insert/Update/Delete/SetActive – admin-surface mutations.
//	RecordMiss     – deduplicated capture of an unmatched 404.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
// • Max line length 100 columns.
package rule

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// ErrDuplicate is returned when an insert or update would collide with an
// existing source URL for the same site under the variant normalization.
var ErrDuplicate = errors.New("rule: a redirect for this URL already exists for the site")

// Invalidator receives one call per committed rule mutation.  The rule
// cache implements it; a nil invalidator is a no-op (tests, batch tools).
type Invalidator interface {
	Invalidate(ctx context.Context, siteID uint64)
}

// Store wraps a *sqlx.DB with rule queries.  AppendSlash mirrors the
// site-wide policy and feeds the variant set used by uniqueness checks
// and miss dedup.
type Store struct {
	db          *sqlx.DB
	inv         Invalidator
	appendSlash bool
}

// NewStore returns a Store.  Bind the cache afterwards with SetInvalidator;
// construction order would otherwise be circular.
func NewStore(db *sqlx.DB, appendSlash bool) *Store {
	return &Store{db: db, appendSlash: appendSlash}
}

// SetInvalidator binds the cache-invalidation hook.
func (s *Store) SetInvalidator(inv Invalidator) { s.inv = inv }

func (s *Store) invalidate(ctx context.Context, siteID uint64) {
	if s.inv != nil {
		s.inv.Invalidate(ctx, siteID)
	}
}

const ruleColumns = `id, site_id, source_url, is_regex, target_url, target_page_id,
               is_permanent, is_active, is_fallback, hits, last_hit_at,
               created_at, updated_at`

//
// Reads
//

// ListBySite returns one kind's rules for a site, non-fallback rules first,
// store insertion order otherwise.  siteID 0 means "no site resolved" and
// lifts the site filter, mirroring the unscoped behavior of that partition.
// activeOnly applies the optional inactive-rule exclusion policy.
func (s *Store) ListBySite(
	ctx context.Context, siteID uint64, kind Kind, activeOnly bool,
) ([]Rule, error) {
	q := `
        SELECT ` + ruleColumns + `
        FROM   redirect_rule
        WHERE  is_regex = ?`
	args := []any{kind == KindRegex}

	if siteID != 0 {
		q += `
          AND  site_id = ?`
		args = append(args, siteID)
	}
	if activeOnly {
		q += `
          AND  is_active = TRUE`
	}
	q += `
        ORDER  BY is_fallback ASC, id ASC`

	rules := make([]Rule, 0, 16)
	if err := s.db.SelectContext(ctx, &rules, q, args...); err != nil {
		return nil, err
	}
	return rules, nil
}

// ExistsVariants reports whether any rule for siteID has a source URL in
// urls.  It executes one query using IN (? … ?).  Empty urls returns
// false, nil.
func (s *Store) ExistsVariants(ctx context.Context, siteID uint64, urls []string) (bool, error) {
	return s.existsVariants(ctx, siteID, urls, 0)
}

// existsVariants is ExistsVariants with an optional row exclusion, used by
// Update so a rule never collides with itself.
func (s *Store) existsVariants(
	ctx context.Context, siteID uint64, urls []string, excludeID uint64,
) (bool, error) {
	if len(urls) == 0 {
		return false, nil
	}

	// Construct the IN clause placeholders dynamically.
	placeholders := make([]byte, 0, len(urls)*2)
	args := make([]any, 0, len(urls)+2)
	args = append(args, siteID)
	for i, u := range urls {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, u)
	}

	q := `SELECT 1
            FROM redirect_rule
           WHERE site_id = ?
             AND source_url IN (` + string(placeholders) + `)`
	if excludeID != 0 {
		q += `
             AND id <> ?`
		args = append(args, excludeID)
	}
	q += `
           LIMIT 1` // early exit once we find a hit

	var dummy int
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&dummy)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

//
// Hit counting
//

// IncrementHits bumps the counter in-store so concurrent hits on the same
// rule cannot lose updates, and stamps last_hit_at.
func (s *Store) IncrementHits(ctx context.Context, id uint64) error {
	const q = `
        UPDATE redirect_rule
        SET    hits = hits + 1, last_hit_at = NOW()
        WHERE  id = ?`
	_, err := s.db.ExecContext(ctx, q, id)
	return err
}

//
// Mutations
//

// variants applies the append-slash policy to a rule's source.  Regex
// sources are opaque patterns and never get slash variants.
func (s *Store) variants(r *Rule) []string {
	return URLVariants(r.SourceURL, s.appendSlash && !r.IsRegex)
}

// Insert validates, rejects duplicates, writes the row, fills r.ID, and
// invalidates the owning site's cache entries.
func (s *Store) Insert(ctx context.Context, r *Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	dup, err := s.ExistsVariants(ctx, r.SiteID, s.variants(r))
	if err != nil {
		return err
	}
	if dup {
		return ErrDuplicate
	}

	const q = `
        INSERT INTO redirect_rule
               (site_id, source_url, is_regex, target_url, target_page_id,
                is_permanent, is_active, is_fallback, hits)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		r.SiteID, r.SourceURL, r.IsRegex, r.TargetURL, r.TargetPageID,
		r.IsPermanent, r.IsActive, r.IsFallback, r.Hits)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		r.ID = uint64(id)
	}

	s.invalidate(ctx, r.SiteID)
	return nil
}

// Update validates, re-checks uniqueness against every row but r itself,
// writes, and invalidates.
func (s *Store) Update(ctx context.Context, r *Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	dup, err := s.existsVariants(ctx, r.SiteID, s.variants(r), r.ID)
	if err != nil {
		return err
	}
	if dup {
		return ErrDuplicate
	}

	const q = `
        UPDATE redirect_rule
        SET    source_url = ?, is_regex = ?, target_url = ?, target_page_id = ?,
               is_permanent = ?, is_active = ?, is_fallback = ?
        WHERE  id = ?`
	if _, err := s.db.ExecContext(ctx, q,
		r.SourceURL, r.IsRegex, r.TargetURL, r.TargetPageID,
		r.IsPermanent, r.IsActive, r.IsFallback, r.ID); err != nil {
		return err
	}

	s.invalidate(ctx, r.SiteID)
	return nil
}

// Delete removes one rule and invalidates its site.  Deleting an absent
// rule is a no-op.
func (s *Store) Delete(ctx context.Context, id uint64) error {
	siteID, err := s.siteOf(ctx, id)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	const q = `DELETE FROM redirect_rule WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return err
	}

	s.invalidate(ctx, siteID)
	return nil
}

// SetActive flips the is_active toggle and invalidates the owning site.
func (s *Store) SetActive(ctx context.Context, id uint64, active bool) error {
	siteID, err := s.siteOf(ctx, id)
	if err != nil {
		return err
	}

	const q = `UPDATE redirect_rule SET is_active = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, q, active, id); err != nil {
		return err
	}

	s.invalidate(ctx, siteID)
	return nil
}

func (s *Store) siteOf(ctx context.Context, id uint64) (uint64, error) {
	const q = `SELECT site_id FROM redirect_rule WHERE id = ?`
	var siteID uint64
	err := s.db.QueryRowContext(ctx, q, id).Scan(&siteID)
	return siteID, err
}

//
// Miss recording
//

// RecordMiss captures an unmatched 404 as an inactive-target row with one
// hit, unless a rule already covers any variant of path.  It reports
// whether a row was created.  Requests with no resolved site are not
// recorded; there is no tenant to own the row.
func (s *Store) RecordMiss(ctx context.Context, siteID uint64, path string) (bool, error) {
	if siteID == 0 {
		return false, nil
	}

	variants := URLVariants(path, s.appendSlash)
	dup, err := s.ExistsVariants(ctx, siteID, variants)
	if err != nil {
		return false, err
	}
	if dup {
		return false, nil
	}

	const q = `
        INSERT INTO redirect_rule
               (site_id, source_url, is_regex, is_permanent, is_active, is_fallback, hits)
        VALUES (?, ?, FALSE, FALSE, TRUE, FALSE, 1)`
	if _, err := s.db.ExecContext(ctx, q, siteID, path); err != nil {
		return false, err
	}

	s.invalidate(ctx, siteID)
	return true, nil
}
