// internal/site/context.go
//
// Request-context plumbing for the resolved site.

package site

import "context"

type ctxKey struct{}

// WithRecord returns a child context carrying rec.  rec may be nil, which
// downstream code treats as the "no site" partition.
func WithRecord(ctx context.Context, rec *Record) context.Context {
	return context.WithValue(ctx, ctxKey{}, rec)
}

// FromContext returns the Record stored by WithRecord, or nil.
func FromContext(ctx context.Context) *Record {
	rec, _ := ctx.Value(ctxKey{}).(*Record)
	return rec
}
