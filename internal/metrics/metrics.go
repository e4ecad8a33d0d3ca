package metrics

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records API and upload metrics into its own registry so that a
// short-lived CLI run can dump them to a textfile on exit
type Collector struct {
	logger   *slog.Logger
	registry *prometheus.Registry

	apiRequestDuration *prometheus.HistogramVec
	uploadedFiles      *prometheus.CounterVec
	uploadedBytes      prometheus.Counter
	sampleOutcomes     *prometheus.CounterVec
}

// NewCollector creates a new metrics collector with a private registry
func NewCollector(logger *slog.Logger) *Collector {
	c := &Collector{
		logger:   logger,
		registry: prometheus.NewRegistry(),
		apiRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "irida_prep_api_request_duration_seconds",
				Help:    "IRIDA API request duration in seconds by endpoint",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
			[]string{"endpoint", "status"},
		),
		uploadedFiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "irida_prep_uploaded_files_total",
				Help: "Sequence files accepted by the server",
			},
			[]string{"mode"},
		),
		uploadedBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "irida_prep_uploaded_bytes_total",
				Help: "Bytes of sequence files sent to the server",
			},
		),
		sampleOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "irida_prep_samples_total",
				Help: "Samples processed during upload by outcome",
			},
			[]string{"outcome"}, // "uploaded", "skipped", "failed"
		),
	}

	c.registry.MustRegister(c.apiRequestDuration, c.uploadedFiles, c.uploadedBytes, c.sampleOutcomes)
	return c
}

// RecordAPIRequest records an API request duration
func (c *Collector) RecordAPIRequest(endpoint string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	c.apiRequestDuration.WithLabelValues(endpoint, status).Observe(duration.Seconds())
}

// RecordUpload counts files and bytes accepted for a sample
func (c *Collector) RecordUpload(mode string, files int, bytes int64) {
	c.uploadedFiles.WithLabelValues(mode).Add(float64(files))
	c.uploadedBytes.Add(float64(bytes))
}

// RecordSample counts a sample outcome
func (c *Collector) RecordSample(outcome string) {
	c.sampleOutcomes.WithLabelValues(outcome).Inc()
}

// Registry exposes the underlying registry for gathering
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile dumps the current metrics in the node_exporter textfile format
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	c.logger.Debug("Wrote metrics", "path", path)
	return nil
}
