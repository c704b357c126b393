// Package metrics 采集与查询的 Prometheus 指标，通过 /metrics 暴露
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 采集单元结果
const (
	ResultOK      = "ok"
	ResultSkipped = "skipped"
)

var (
	SyncUnitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "encounter_sync_units_total",
			Help: "Harvest units processed, by pass and result",
		},
		[]string{"pass", "result"}, // pass: profile/activity/clip/link_discovery
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "encounter_sync_duration_seconds",
			Help:    "Duration of a full harvest pass",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"pass"},
	)

	ReconcileRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "encounter_reconcile_rows_total",
			Help: "Rows written by the reconciliation layer",
		},
		[]string{"entity", "op"}, // op: insert/update/delete/failed
	)

	LinksDiscoveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "encounter_links_discovered_total",
			Help: "Account links upserted, by link method",
		},
		[]string{"method"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "encounter_query_duration_seconds",
			Help:    "Duration of encounter queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"}, // player/cross
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "encounter_api_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveSince 记录从 start 起的耗时
func ObserveSince(h *prometheus.HistogramVec, label string, start time.Time) {
	h.WithLabelValues(label).Observe(time.Since(start).Seconds())
}

// RecordReconcile 记录一次写入结果
func RecordReconcile(entity string, inserted, updated, deleted, failed int) {
	ReconcileRowsTotal.WithLabelValues(entity, "insert").Add(float64(inserted))
	ReconcileRowsTotal.WithLabelValues(entity, "update").Add(float64(updated))
	ReconcileRowsTotal.WithLabelValues(entity, "delete").Add(float64(deleted))
	ReconcileRowsTotal.WithLabelValues(entity, "failed").Add(float64(failed))
}
