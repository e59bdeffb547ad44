package tablespace

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the prom
// package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordTask is called after every scheduled task. err is nil if the
	// task succeeded or was cancelled.
	RecordTask(duration time.Duration, err error)

	// RecordSchedule is called for every submission. refused is true if the
	// workspace was faulted and the task did not run.
	RecordSchedule(mode Mode, refused bool)

	// RecordLoad is called after each table load.
	RecordLoad(bytes int64, duration time.Duration, err error)

	// RecordExport is called after each table export.
	RecordExport(bytes int64, duration time.Duration, err error)

	// RecordCancel is called after a cancellation sweep with the number of
	// tasks it affected.
	RecordCancel(n int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordTask(time.Duration, error)          {}
func (NoopMetricsCollector) RecordSchedule(Mode, bool)                {}
func (NoopMetricsCollector) RecordLoad(int64, time.Duration, error)   {}
func (NoopMetricsCollector) RecordExport(int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordCancel(int)                         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	TaskCount      atomic.Int64
	TaskErrors     atomic.Int64
	TaskTotalNanos atomic.Int64
	Scheduled      atomic.Int64
	Refused        atomic.Int64
	LoadCount      atomic.Int64
	LoadErrors     atomic.Int64
	LoadBytes      atomic.Int64
	ExportCount    atomic.Int64
	ExportErrors   atomic.Int64
	ExportBytes    atomic.Int64
	Cancelled      atomic.Int64
}

// RecordTask implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTask(duration time.Duration, err error) {
	b.TaskCount.Add(1)
	b.TaskTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.TaskErrors.Add(1)
	}
}

// RecordSchedule implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSchedule(_ Mode, refused bool) {
	b.Scheduled.Add(1)
	if refused {
		b.Refused.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(bytes int64, _ time.Duration, err error) {
	b.LoadCount.Add(1)
	b.LoadBytes.Add(bytes)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordExport implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExport(bytes int64, _ time.Duration, err error) {
	b.ExportCount.Add(1)
	b.ExportBytes.Add(bytes)
	if err != nil {
		b.ExportErrors.Add(1)
	}
}

// RecordCancel implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCancel(n int) {
	b.Cancelled.Add(int64(n))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		TaskCount:    b.TaskCount.Load(),
		TaskErrors:   b.TaskErrors.Load(),
		TaskAvgNanos: b.getAvgTaskNanos(),
		Scheduled:    b.Scheduled.Load(),
		Refused:      b.Refused.Load(),
		LoadCount:    b.LoadCount.Load(),
		LoadErrors:   b.LoadErrors.Load(),
		LoadBytes:    b.LoadBytes.Load(),
		ExportCount:  b.ExportCount.Load(),
		ExportErrors: b.ExportErrors.Load(),
		ExportBytes:  b.ExportBytes.Load(),
		Cancelled:    b.Cancelled.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgTaskNanos() int64 {
	count := b.TaskCount.Load()
	if count == 0 {
		return 0
	}
	return b.TaskTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	TaskCount    int64
	TaskErrors   int64
	TaskAvgNanos int64
	Scheduled    int64
	Refused      int64
	LoadCount    int64
	LoadErrors   int64
	LoadBytes    int64
	ExportCount  int64
	ExportErrors int64
	ExportBytes  int64
	Cancelled    int64
}
