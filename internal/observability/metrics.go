package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ytm",
		Name:      "cache_lookups_total",
		Help:      "Object store existence probes by result",
	}, []string{"result"}) // hit, miss, error

	Conversions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ytm",
		Name:      "conversions_total",
		Help:      "Convert requests by outcome",
	}, []string{"outcome"})

	ConversionsCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ytm",
		Name:      "conversions_coalesced_total",
		Help:      "Convert requests that waited on an identical in-flight conversion",
	})

	ConversionsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ytm",
		Name:      "conversions_in_flight",
		Help:      "Number of merges currently running",
	})

	TranscodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ytm",
		Name:      "transcode_duration_seconds",
		Help:      "Wall-clock duration of ffmpeg merges",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
	}, []string{"status"})

	UploadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ytm",
		Name:      "upload_bytes_total",
		Help:      "Bytes uploaded to the object store",
	})

	DecipherFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ytm",
		Name:      "decipher_failures_total",
		Help:      "Stream descriptors whose access URL could not be resolved",
	})

	ScratchFilesSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ytm",
		Name:      "scratch_files_swept_total",
		Help:      "Stale scratch files removed by the sweeper",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ytm",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ytm",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
