// Package metrics holds Prometheus instruments for the redirect engine.
// All collectors are registered with the global registry, so importing
// this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RedirectMatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redirect_match_total",
			Help: "Redirects served, labelled by rule kind (literal or regex).",
		},
		[]string{"kind"})

	RedirectNoTargetTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redirect_no_target_total",
			Help: "Matches whose rule had no usable target, served as 404.",
		})

	MissRecordedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redirect_miss_recorded_total",
			Help: "Previously unseen 404 paths recorded for triage.",
		})

	RuleCacheHitTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rule_cache_hit_total",
			Help: "Rule-list lookups answered from the cache.",
		})

	RuleCacheMissTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rule_cache_miss_total",
			Help: "Rule-list lookups that fell through to the store.",
		})

	StoreErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rule_store_errors_total",
			Help: "Rule-store failures during lookup, hit counting, or miss recording.",
		})

	SiteResolveErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "site_resolve_errors_total",
			Help: "Requests whose Host header did not resolve to a site.",
		})
)

func init() {
	prometheus.MustRegister(
		RedirectMatchTotal,
		RedirectNoTargetTotal,
		MissRecordedTotal,
		RuleCacheHitTotal,
		RuleCacheMissTotal,
		StoreErrorsTotal,
		SiteResolveErrorsTotal,
	)
}
