package prom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tablespace"
)

func TestCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.RecordSchedule(tablespace.Pooled, false)
	c.RecordSchedule(tablespace.Pooled, true)
	c.RecordLoad(128, time.Millisecond, nil)
	c.RecordExport(0, time.Millisecond, errors.New("x"))
	c.RecordCancel(3)
	c.RecordTask(time.Millisecond, nil)

	assert.Equal(t, 1.0, promtest.ToFloat64(c.scheduled.WithLabelValues("pooled", "refused")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.transfers.WithLabelValues("load", "success")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.transfers.WithLabelValues("export", "error")))
	assert.Equal(t, 128.0, promtest.ToFloat64(c.xferBytes.WithLabelValues("load")))
	assert.Equal(t, 3.0, promtest.ToFloat64(c.cancelled))
	assert.Equal(t, 1, promtest.CollectAndCount(c.taskLatency))
}

func TestCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestCollector_WiredIntoWorkspace(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	ws, err := tablespace.New(tablespace.WithMode(tablespace.Inline), tablespace.WithMetricsCollector(c))
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.Schedule(func(context.Context) error { return nil }))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.scheduled.WithLabelValues("inline", "accepted")))
}
