package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	require.NotNil(t, m.Counter)
	return m.GetCounter().GetValue()
}

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	require.True(t, ok)
	var m dto.Metric
	require.NoError(t, metric.Write(&m))
	require.NotNil(t, m.Histogram)
	return m.GetHistogram().GetSampleCount()
}

func TestObserveRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRequest("/auth/login", "POST", 200, 15*time.Millisecond)
	m.ObserveRequest("/auth/login", "POST", 200, 5*time.Millisecond)
	m.ObserveRequest("/auth/login", "POST", 401, time.Millisecond)

	assert.Equal(t, 2.0, counterValue(t, m.requests.WithLabelValues("/auth/login", "POST", "200")))
	assert.Equal(t, 1.0, counterValue(t, m.requests.WithLabelValues("/auth/login", "POST", "401")))
	assert.EqualValues(t, 3, histogramCount(t, m.duration.WithLabelValues("/auth/login", "POST")))
}

func TestAuthEventAndPurged(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AuthEvent("login", OutcomeRejected)
	m.AuthEvent("login", OutcomeRejected)
	m.AuthEvent("register", OutcomeSuccess)
	m.Purged(4, nil)
	m.Purged(2, nil)
	m.Purged(0, errors.New("db down"))

	assert.Equal(t, 2.0, counterValue(t, m.authEvents.WithLabelValues("login", OutcomeRejected)))
	assert.Equal(t, 1.0, counterValue(t, m.authEvents.WithLabelValues("register", OutcomeSuccess)))
	assert.Equal(t, 6.0, counterValue(t, m.purged))
	assert.Equal(t, 1.0, counterValue(t, m.purgeErrors))
}

func TestNew_GathersUnderNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.AuthEvent("logout", OutcomeSuccess)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["shopkeeper_auth_events_total"])
}
