package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		ActiveSessions,
		SessionEventsTotal,
		ConnectionsRateLimited,
		GroupMembers,
		GroupSendFailures,
		PublisherTicksTotal,
		PublisherTickDuration,
	}

	for _, c := range collectors {
		desc := make(chan *prometheus.Desc, 1)
		c.Describe(desc)
		close(desc)

		require.NotNil(t, <-desc, "metric should have a valid descriptor")
	}
}

func TestPublisherTicksCounter(t *testing.T) {
	before := testutil.ToFloat64(PublisherTicksTotal.WithLabelValues("error"))
	PublisherTicksTotal.WithLabelValues("error").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(PublisherTicksTotal.WithLabelValues("error")))
}

func TestGroupMembersGauge(t *testing.T) {
	GroupMembers.WithLabelValues("metrics-test").Set(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(GroupMembers.WithLabelValues("metrics-test")))
}
