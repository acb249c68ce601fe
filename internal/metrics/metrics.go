// Package metrics exposes prometheus collectors for spreadsheet traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SheetsCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faellesspisning_sheets_calls_total",
		Help: "Calls to the Google Sheets API by operation and result.",
	}, []string{"op", "result"})

	SheetsLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "faellesspisning_sheets_call_seconds",
		Help:    "Latency of Google Sheets API calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faellesspisning_cache_lookups_total",
		Help: "Sheet cache lookups by result (hit, miss).",
	}, []string{"result"})

	CacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "faellesspisning_cache_invalidations_total",
		Help: "Times the sheet cache was invalidated after a write.",
	})
)

// ObserveSheetsCall records the outcome and duration of one API call.
func ObserveSheetsCall(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	SheetsCalls.WithLabelValues(op, result).Inc()
	SheetsLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
