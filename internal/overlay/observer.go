package overlay

import "comment-overlay/internal/platform/metrics"

// metricsObserver records scheduler outcomes in Prometheus.
type metricsObserver struct {
	m *metrics.Metrics
}

// NewMetricsObserver returns an Observer backed by m. A nil m yields an
// Observer that records nothing.
func NewMetricsObserver(m *metrics.Metrics) Observer {
	if m == nil {
		return nopObserver{}
	}
	return metricsObserver{m: m}
}

func (o metricsObserver) Activated(c Comment)      { o.m.IncActivations(c.Mode.String()) }
func (o metricsObserver) Deactivated(CommentID)    { o.m.IncDeactivations() }
func (o metricsObserver) Seeked()                  { o.m.IncSeeks() }
func (o metricsObserver) PlacementRefused(Comment) { o.m.IncPlacementsRefused() }
