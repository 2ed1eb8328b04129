package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	jobsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "encodeflow_jobs_submitted_total",
		Help: "Encoding jobs submitted to the remote service",
	})

	ingestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "encodeflow_ingest_failures_total",
		Help: "Ingest runs that failed, by stage",
	}, []string{"stage"})

	assetsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "encodeflow_assets_published_total",
		Help: "Output assets published for streaming",
	})

	publishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "encodeflow_publish_failures_total",
		Help: "Publish attempts swallowed after a remote API error",
	})

	eventsIgnored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "encodeflow_events_ignored_total",
		Help: "Notification events that required no action, by reason",
	}, []string{"reason"}) // reason=event_type|state
)

func RecordJobSubmitted() { jobsSubmitted.Inc() }

func RecordIngestFailure(stage string) { ingestFailures.WithLabelValues(stage).Inc() }

func RecordAssetPublished() { assetsPublished.Inc() }

func RecordPublishFailure() { publishFailures.Inc() }

func RecordEventIgnored(reason string) { eventsIgnored.WithLabelValues(reason).Inc() }

// Handler serves the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
