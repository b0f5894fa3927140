package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nilscript_stage_seconds",
		Help:    "Time spent in one compile stage across all files.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	CompileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nilscript_compile_seconds",
		Help:    "Wall time of a full compile call.",
		Buckets: prometheus.DefBuckets,
	})

	FilesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nilscript_files_processed_total",
		Help: "Total number of files run through a compile stage.",
	}, []string{"stage"})

	IssuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nilscript_issues_total",
		Help: "Total number of diagnostics reported, by kind.",
	}, []string{"kind"})

	ModelEntities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nilscript_model_entities",
		Help: "Number of program-wide entities in the current model.",
	})

	SqueezedSymbols = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nilscript_squeezed_symbols",
		Help: "Number of identifiers held by the squeezer.",
	})

	CheckerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nilscript_checker_requests_total",
		Help: "Total number of type-check requests sent to workers.",
	}, []string{"result"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nilscript_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	RebuildsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nilscript_rebuilds_skipped_total",
		Help: "Total number of watch rebuilds dropped by the rate limiter.",
	})
)
