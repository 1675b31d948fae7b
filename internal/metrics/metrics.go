// Package metrics collects and exposes Prometheus metrics for the
// WebSub pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records pipeline metrics into a Prometheus registry.
type Collector struct {
	notificationsReceived  prometheus.Counter
	notificationsDuplicate prometheus.Counter
	entriesSkipped         prometheus.Counter
	enrichmentsPublished   prometheus.Counter
	videosUpserted         prometheus.Counter
	subscribeRequests      *prometheus.CounterVec
	ingestLatency          prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		notificationsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "websub_notifications_received_total",
			Help: "Total hub notification deliveries received",
		}),
		notificationsDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "websub_notifications_duplicate_total",
			Help: "Total notification entries dropped as hub redeliveries",
		}),
		entriesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "websub_entries_skipped_total",
			Help: "Total feed entries skipped for missing or invalid video IDs",
		}),
		enrichmentsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "websub_enrichments_published_total",
			Help: "Total enrichment messages handed to the queue",
		}),
		videosUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "websub_videos_upserted_total",
			Help: "Total canonical video records upserted",
		}),
		subscribeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "websub_subscribe_requests_total",
			Help: "Hub subscribe/unsubscribe attempts by mode and outcome",
		}, []string{"mode", "status"}),
		ingestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "websub_ingest_latency_seconds",
			Help:    "Notification ingestion latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.notificationsReceived,
		c.notificationsDuplicate,
		c.entriesSkipped,
		c.enrichmentsPublished,
		c.videosUpserted,
		c.subscribeRequests,
		c.ingestLatency,
	)

	return c
}

// RecordNotificationReceived counts one inbound notification delivery.
func (c *Collector) RecordNotificationReceived() {
	c.notificationsReceived.Inc()
}

// RecordDuplicate counts one entry dropped by replay detection.
func (c *Collector) RecordDuplicate() {
	c.notificationsDuplicate.Inc()
}

// RecordEntrySkipped counts one entry rejected for an invalid video ID.
func (c *Collector) RecordEntrySkipped() {
	c.entriesSkipped.Inc()
}

// RecordEnrichmentPublished counts enrichment messages enqueued.
func (c *Collector) RecordEnrichmentPublished(count int) {
	c.enrichmentsPublished.Add(float64(count))
}

// RecordVideoUpserted counts one canonical record upsert.
func (c *Collector) RecordVideoUpserted() {
	c.videosUpserted.Inc()
}

// RecordSubscribeRequest counts a hub call by mode and interpreted status.
func (c *Collector) RecordSubscribeRequest(mode, status string) {
	c.subscribeRequests.WithLabelValues(mode, status).Inc()
}

// RecordIngestLatency observes the time taken to ingest a notification.
func (c *Collector) RecordIngestLatency(duration time.Duration) {
	c.ingestLatency.Observe(duration.Seconds())
}

// Handler returns an HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
