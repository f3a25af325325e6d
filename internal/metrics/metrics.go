// Package metrics holds Prometheus instruments shared across the service.
// All collectors are registered with the global registry, so importing this
// package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActiveTenants = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_tenants",
			Help: "Number of tenants currently loaded in memory.",
		})

	TenantLoadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_load_total",
			Help: "Cumulative number of tenants successfully loaded.",
		})

	// TenantResolveErrorsTotal is labelled by reason: not_found,
	// ambiguous, or backend.
	TenantResolveErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_resolve_errors_total",
			Help: "Cumulative number of failed tenant resolutions.",
		}, []string{"reason"})

	TenantEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_evict_total",
			Help: "Cumulative number of tenants evicted or invalidated.",
		})

	TemplateCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "template_cache_total",
			Help: "Template set cache lookups by result (hit or miss).",
		}, []string{"result"})

	BundlesRegistered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_bundles_registered",
			Help: "Number of asset bundles in the registry.",
		})

	CouponEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coupon_evaluations_total",
			Help: "Coupon validity checks by outcome (valid or invalid).",
		}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(
		ActiveTenants,
		TenantLoadTotal,
		TenantResolveErrorsTotal,
		TenantEvictTotal,
		TemplateCacheTotal,
		BundlesRegistered,
		CouponEvaluationsTotal,
	)
}
