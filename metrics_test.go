package compositefs

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithMetrics(reg))

	c.Mount("/a", newFake("a", "f"))
	c.Mount("/b", newFake("b"))
	c.Mount("/b", newFake("b2"))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.metrics.mounts), "replacing keeps the count")

	c.GetInfo("/a/f", true)
	c.GetInfo("/a/missing", true)
	c.GetInfo("/zzz", true)
	c.MapToRelativeUTF8("/nowhere")

	ops := c.metrics.operations
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("get_info", resultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("get_info", resultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("get_info", resultNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("map_to_relative", resultMiss)))

	c.Unmount("/a")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.mounts))

	c.Close()
	assert.Equal(t, 0.0, testutil.ToFloat64(c.metrics.mounts))
}

func TestMetricsDisabled(t *testing.T) {
	c := New()
	c.Mount("/a", newFake("a"))
	c.GetInfo("/a", true)
	assert.Nil(t, c.metrics)
}
