package site

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// AllActive returns every site that is neither suspended nor deleted.  This
// helper is used by batch operations, not by the HTTP request path.
func AllActive(ctx context.Context, db *sqlx.DB) ([]Record, error) {
	const q = `
        SELECT id, host, name, is_default,
               suspended_at, deleted_at, created_at, updated_at
        FROM   site
        WHERE  suspended_at IS NULL
          AND  deleted_at   IS NULL`
	var rows []Record
	if err := db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// ByHost fetches a single site row that is not suspended or deleted.  The
// caller supplies a context so the lookup respects request deadlines.
func ByHost(ctx context.Context, db *sqlx.DB, host string) (*Record, error) {
	const q = `
        SELECT id, host, name, is_default,
               suspended_at, deleted_at, created_at, updated_at
        FROM   site
        WHERE  host = ?
          AND  suspended_at IS NULL
          AND  deleted_at   IS NULL
        LIMIT  1`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, host); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Default fetches the site flagged is_default, the fallback scope for
// requests whose Host header matches no row.
func Default(ctx context.Context, db *sqlx.DB) (*Record, error) {
	const q = `
        SELECT id, host, name, is_default,
               suspended_at, deleted_at, created_at, updated_at
        FROM   site
        WHERE  is_default   = TRUE
          AND  suspended_at IS NULL
          AND  deleted_at   IS NULL
        LIMIT  1`
	var rec Record
	if err := db.GetContext(ctx, &rec, q); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CountActive returns the number of servable sites.  The resolver caches
// this briefly to answer MultiSite without a query per request.
func CountActive(ctx context.Context, db *sqlx.DB) (int, error) {
	const q = `
        SELECT COUNT(*)
        FROM   site
        WHERE  suspended_at IS NULL
          AND  deleted_at   IS NULL`
	var n int
	if err := db.GetContext(ctx, &n, q); err != nil {
		return 0, err
	}
	return n, nil
}
