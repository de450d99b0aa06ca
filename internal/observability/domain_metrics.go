package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pipelineStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querybridge_pipeline_steps_total",
			Help: "Pipeline step outcomes for translation requests.",
		},
		[]string{"step", "outcome"},
	)
	translationLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querybridge_translation_latency_seconds",
			Help:    "Latency of a single model translation call.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
	)
	scrapeResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querybridge_scrape_results_total",
			Help: "Products extracted per retailer scrape call.",
		},
		[]string{"retailer"},
	)
	searchResultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querybridge_search_results_total",
			Help: "Links extracted across web search calls.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		pipelineStepsTotal,
		translationLatencySeconds,
		scrapeResultsTotal,
		searchResultsTotal,
	)
}

func CountPipelineStep(step, outcome string) {
	pipelineStepsTotal.WithLabelValues(step, outcome).Inc()
}

func ObserveTranslationLatency(duration time.Duration) {
	translationLatencySeconds.Observe(duration.Seconds())
}

func CountScrapeResults(retailer string, count int) {
	scrapeResultsTotal.WithLabelValues(retailer).Add(float64(count))
}

func CountSearchResults(count int) {
	searchResultsTotal.Add(float64(count))
}
