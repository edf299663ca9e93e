package rag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	retrievals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mnemo_rag_retrievals_total",
		Help: "Retrieval requests processed, by outcome.",
	}, []string{"status"})

	retrievalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mnemo_rag_retrieval_duration_seconds",
		Help:    "Wall time spent ranking a retrieval request.",
		Buckets: prometheus.DefBuckets,
	})

	retrievalCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mnemo_rag_candidates_considered",
		Help:    "Entries fetched from storage per retrieval before filtering.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
)
