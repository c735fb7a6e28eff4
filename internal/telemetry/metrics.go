// Package telemetry implements the periodic host-telemetry sampler and
// its rotating CSV writer (spec §1 "periodic host telemetry and its
// rotating CSV writer", grounded on the original's server/src/monitor.rs),
// plus the Prometheus counters the sampler reads before each CSV row.
package telemetry

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// counter pairs a Prometheus counter (for /metrics scraping) with a plain
// atomic mirror (so the telemetry sampler can read the current value
// synchronously without parsing Prometheus's own wire format back out).
type counter struct {
	prom   prometheus.Counter
	mirror atomic.Uint64
}

func newCounter(name, help string) *counter {
	return &counter{prom: prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})}
}

// Add increments both the Prometheus counter and the atomic mirror.
func (c *counter) Add(delta uint64) {
	c.prom.Add(float64(delta))
	c.mirror.Add(delta)
}

// Inc increments by one.
func (c *counter) Inc() {
	c.Add(1)
}

// Value returns the current mirrored count.
func (c *counter) Value() uint64 {
	return c.mirror.Load()
}

// Metrics holds the process-wide counters the HTTP handlers increment and
// the telemetry sampler periodically snapshots into its CSV.
type Metrics struct {
	Registry *prometheus.Registry

	UploadsTotal   *counter
	DownloadsTotal *counter
	DeletesTotal   *counter
	SyncsTotal     *counter
	UploadBytes    *counter
}

// NewMetrics builds a fresh registry and registers every counter on it.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry:       reg,
		UploadsTotal:   newCounter("syncd_uploads_total", "Total number of successfully published uploads."),
		DownloadsTotal: newCounter("syncd_downloads_total", "Total number of completed downloads."),
		DeletesTotal:   newCounter("syncd_deletes_total", "Total number of processed delete requests."),
		SyncsTotal:     newCounter("syncd_syncs_total", "Total number of reconciliation requests served."),
		UploadBytes:    newCounter("syncd_upload_bytes_total", "Total bytes received across all uploads."),
	}

	reg.MustRegister(m.UploadsTotal.prom, m.DownloadsTotal.prom, m.DeletesTotal.prom, m.SyncsTotal.prom, m.UploadBytes.prom)

	return m
}
