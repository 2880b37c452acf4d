package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(BillingEvents.WithLabelValues("RENEWAL", OutcomeApplied))
	BillingEvents.WithLabelValues("RENEWAL", OutcomeApplied).Inc()
	assert.InDelta(t, before+1, testutil.ToFloat64(BillingEvents.WithLabelValues("RENEWAL", OutcomeApplied)), 0.001)

	before = testutil.ToFloat64(NotificationsDropped)
	NotificationsDropped.Inc()
	assert.InDelta(t, before+1, testutil.ToFloat64(NotificationsDropped), 0.001)

	AccessDecisions.WithLabelValues(ResultDeny, "not_enrolled").Inc()
	assert.Equal(t, 1, testutil.CollectAndCount(AccessDecisions))
}
