package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveDecisionAndBrowserOp(t *testing.T) {
	m := New()

	m.ObserveDecision("YES", 2*time.Second)
	m.ObserveDecision("NO", time.Second)
	m.ObserveBrowserOp("submit", 100*time.Millisecond)

	require.Equal(t, float64(1), testutil.ToFloat64(m.DecisionsTotal.WithLabelValues("YES")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.DecisionsTotal.WithLabelValues("NO")))

	m.SendOutcomes.WithLabelValues("ok").Inc()
	require.Equal(t, float64(1), testutil.ToFloat64(m.SendOutcomes.WithLabelValues("ok")))
}
