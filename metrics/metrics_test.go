package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncrementCall("mint", "ok")
	m.IncrementCall("mint", "ok")
	m.IncrementCall("share", "UnknownToken")
	m.IncrementMinted()
	m.IncrementGroup("committed")
	m.ObserveGroupLatency(3 * time.Millisecond)
	m.IncrementHTTP("/livez", "200")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CallOutcome.WithLabelValues("mint", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallOutcome.WithLabelValues("share", "UnknownToken")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokensMinted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GroupOutcome.WithLabelValues("committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/livez", "200")))

	n, err := testutil.GatherAndCount(reg, "mednft_ledger_group_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementCall("mint", "ok")
		m.IncrementMinted()
		m.IncrementGroup("rejected")
		m.ObserveGroupLatency(time.Second)
		m.IncrementHTTP("/", "404")
	})
}

func TestNew_Unregistered(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil).IncrementMinted()
		New(nil).IncrementMinted()
	})
}
