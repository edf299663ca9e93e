package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mnemo_store_operations_total",
		Help: "Total number of store operations",
	}, []string{"operation", "status"})

	storeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mnemo_store_operation_duration_seconds",
		Help:    "Duration of store operations",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"operation"})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mnemo_cache_hits_total",
		Help: "Total number of memory cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mnemo_cache_misses_total",
		Help: "Total number of memory cache misses",
	})

	cacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mnemo_cache_evictions_total",
		Help: "Total number of memory cache evictions",
	})

	entriesInMemory = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mnemo_entries_in_memory",
		Help: "Current number of entries in the memory cache",
	})

	entriesExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mnemo_entries_expired_total",
		Help: "Total number of entries removed by expiry cleanup",
	})
)
