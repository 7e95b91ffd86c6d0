// internal/rule/model.go
//
// Redirect-rule data model and invariants.
//
// Context
// -------
// One Rule row maps a source path (or pattern) to a target for a single
// site.  The matching engine never dispatches on the raw `is_regex`
// column; it asks for Kind, an explicit variant, so kind-specific
// ordering and comparison logic lives in one place per variant.
//
// Invariants enforced here:
//
//   - at most one of TargetURL / TargetPageID is set (both empty is a
//     valid "recorded miss" row with no defined target);
//   - per-site source uniqueness within a kind, where literal sources
//     that differ only by a trailing slash collide when the site-wide
//     append-slash policy is on (see URLVariants).
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package rule

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

//
// Kind variant
//

// Kind distinguishes the two matching strategies a Rule can carry.
type Kind int

const (
	// KindLiteral matches by exact string equality against the request
	// path, modulo trailing-slash variants.
	KindLiteral Kind = iota

	// KindRegex matches a case-insensitive pattern against the full
	// request path including query string, with capture substitution.
	KindRegex
)

func (k Kind) String() string {
	if k == KindRegex {
		return "regex"
	}
	return "literal"
}

//
// Rule row
//

// Rule mirrors one row in the persistent `redirect_rule` table.  JSON tags
// exist because cached rule snapshots are serialized through the kv layer.
type Rule struct {
	ID           uint64     `db:"id"             json:"id"`
	SiteID       uint64     `db:"site_id"        json:"site_id"        validate:"required"`
	SourceURL    string     `db:"source_url"     json:"source_url"     validate:"required,max=1000"`
	IsRegex      bool       `db:"is_regex"       json:"is_regex"`
	TargetURL    *string    `db:"target_url"     json:"target_url,omitempty"     validate:"omitempty,max=400"`
	TargetPageID *uint64    `db:"target_page_id" json:"target_page_id,omitempty"`
	IsPermanent  bool       `db:"is_permanent"   json:"is_permanent"`
	IsActive     bool       `db:"is_active"      json:"is_active"`
	IsFallback   bool       `db:"is_fallback"    json:"is_fallback"`
	Hits         uint64     `db:"hits"           json:"hits"`
	LastHitAt    *time.Time `db:"last_hit_at"    json:"last_hit_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at"     json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"     json:"updated_at"`
}

// Kind returns the matching variant for this rule.
func (r *Rule) Kind() Kind {
	if r.IsRegex {
		return KindRegex
	}
	return KindLiteral
}

// Target returns the raw target URL, or "" when only a page reference (or
// nothing) is set.
func (r *Rule) Target() string {
	if r.TargetURL == nil {
		return ""
	}
	return *r.TargetURL
}

// HasTarget reports whether the rule names any destination at all.  Rules
// recorded automatically from misses have none until triaged.
func (r *Rule) HasTarget() bool {
	return (r.TargetURL != nil && *r.TargetURL != "") || r.TargetPageID != nil
}

//
// Validation
//

// ErrBothTargets rejects rules that name a target URL and a target page at
// the same time.
var ErrBothTargets = errors.New("rule: choose either a target URL or a target page, not both")

var v = validator.New()

// Validate checks field constraints and the target mutual-exclusion
// invariant.  Uniqueness needs the store and is checked there.
func (r *Rule) Validate() error {
	if err := v.Struct(r); err != nil {
		return err
	}
	if r.TargetURL != nil && *r.TargetURL != "" && r.TargetPageID != nil {
		return ErrBothTargets
	}
	return nil
}

//
// URL-variant normalization
//

// URLVariants returns the set of source URLs considered equivalent to url
// under the append-slash policy.  The set drives uniqueness checks and
// miss dedup: with the policy on, `/foo` and `/foo/` are one source.
// Order is stable (trimmed input first) so queries are reproducible.
func URLVariants(url string, appendSlash bool) []string {
	sanitized := strings.TrimSpace(url)
	variants := []string{sanitized}
	if !appendSlash {
		return variants
	}

	stripped := strings.TrimRight(sanitized, "/")
	if stripped == "" {
		return variants
	}
	for _, cand := range []string{stripped, stripped + "/"} {
		if cand != sanitized {
			variants = append(variants, cand)
		}
	}
	return variants
}
