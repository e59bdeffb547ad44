// Package prom exports workspace metrics to Prometheus.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/tablespace"
)

var _ tablespace.MetricsCollector = (*Collector)(nil)

// Collector implements tablespace.MetricsCollector with Prometheus metrics.
type Collector struct {
	taskLatency *prometheus.HistogramVec
	scheduled   *prometheus.CounterVec
	transfers   *prometheus.CounterVec
	xferLatency *prometheus.HistogramVec
	xferBytes   *prometheus.CounterVec
	cancelled   prometheus.Counter
}

// New creates a Collector and registers its metrics with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		taskLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tablespace_task_duration_seconds",
			Help:    "Duration of scheduled tasks.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		scheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tablespace_tasks_scheduled_total",
			Help: "Task submissions by mode and outcome.",
		}, []string{"mode", "status"}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tablespace_transfers_total",
			Help: "Table loads and exports.",
		}, []string{"op", "status"}),
		xferLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tablespace_transfer_duration_seconds",
			Help:    "Duration of table loads and exports.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		xferBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tablespace_transfer_bytes_total",
			Help: "Bytes of table files read and written.",
		}, []string{"op"}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tablespace_tasks_cancelled_total",
			Help: "Tasks affected by cancellation sweeps.",
		}),
	}

	for _, m := range []prometheus.Collector{
		c.taskLatency, c.scheduled, c.transfers, c.xferLatency, c.xferBytes, c.cancelled,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordTask implements tablespace.MetricsCollector.
func (c *Collector) RecordTask(d time.Duration, err error) {
	c.taskLatency.WithLabelValues(status(err)).Observe(d.Seconds())
}

// RecordSchedule implements tablespace.MetricsCollector.
func (c *Collector) RecordSchedule(mode tablespace.Mode, refused bool) {
	s := "accepted"
	if refused {
		s = "refused"
	}
	c.scheduled.WithLabelValues(mode.String(), s).Inc()
}

// RecordLoad implements tablespace.MetricsCollector.
func (c *Collector) RecordLoad(bytes int64, d time.Duration, err error) {
	c.transfer("load", bytes, d, err)
}

// RecordExport implements tablespace.MetricsCollector.
func (c *Collector) RecordExport(bytes int64, d time.Duration, err error) {
	c.transfer("export", bytes, d, err)
}

func (c *Collector) transfer(op string, bytes int64, d time.Duration, err error) {
	c.transfers.WithLabelValues(op, status(err)).Inc()
	c.xferLatency.WithLabelValues(op).Observe(d.Seconds())
	if bytes > 0 {
		c.xferBytes.WithLabelValues(op).Add(float64(bytes))
	}
}

// RecordCancel implements tablespace.MetricsCollector.
func (c *Collector) RecordCancel(n int) {
	c.cancelled.Add(float64(n))
}
