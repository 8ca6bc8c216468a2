package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DerivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qtwsa_derivations_total",
			Help: "Total discharge derivations by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	DerivationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qtwsa_derivation_latency_seconds",
			Help:    "Discharge derivation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	NWISAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qtwsa_nwis_api_calls_total",
			Help: "Total USGS NWIS daily values API calls",
		},
		[]string{"status"},
	)

	NWISAPILatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qtwsa_nwis_api_latency_seconds",
			Help:    "NWIS API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DatasetRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qtwsa_dataset_rows",
			Help: "Rows loaded per static dataset table",
		},
		[]string{"table"},
	)

	NarrativesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qtwsa_narratives_total",
			Help: "Site narratives served by cache result",
		},
		[]string{"result"},
	)
)
