package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestVisitCounters(t *testing.T) {
	m := New()

	m.VisitEvent()
	m.VisitFlush()
	m.VisitDrop()
	m.VisitQueueDrop()
	m.VisitQueueDrop()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.visitEvents))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.visitFlushes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.visitDrops))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.visitQueueDrops))
}

func TestResolutionOutcomes(t *testing.T) {
	m := New()

	m.Resolution(OutcomeExact)
	m.Resolution(OutcomeExact)
	m.Resolution(OutcomeSuggest)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.resolutions.WithLabelValues(OutcomeExact)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues(OutcomeSuggest)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.resolutions.WithLabelValues(OutcomeError)))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.Resolution(OutcomeExact)
		m.VisitEvent()
		m.VisitFlush()
		m.VisitDrop()
		m.VisitQueueDrop()
		m.RegisterRenderQueueDepth(func() int { return 0 })
	})
}
