package site

import "time"

// Record mirrors one row in the persistent `site` table.  The operational
// state is captured by two nullable timestamps:
//
//   - SuspendedAt – site is temporarily disabled (e.g., billing).
//   - DeletedAt   – site is permanently removed.
//
// Either timestamp being non-NULL prevents the resolver from serving the
// site, which in turn keeps its redirect rules out of matching.
type Record struct {
	ID          uint64     `db:"id"`
	Host        string     `db:"host"`
	Name        string     `db:"name"`
	IsDefault   bool       `db:"is_default"`
	SuspendedAt *time.Time `db:"suspended_at"`
	DeletedAt   *time.Time `db:"deleted_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}
