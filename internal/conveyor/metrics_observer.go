package conveyor

import "github.com/dbbouncer/pgconvey/internal/wire"

// metricsCollector is the subset of metrics.Collector that MetricsObserver
// needs; kept narrow so this package doesn't have to import metrics just to
// silence an otherwise-unused dependency in tests that don't care about it.
type metricsCollector interface {
	MessageObserved(route, direction, kind string)
}

// MetricsObserver increments a message counter, labeled by route,
// direction, and kind, for every message the conveyor decodes.
type MetricsObserver struct {
	Collector metricsCollector
}

// Observe records one message in the collector.
func (m MetricsObserver) Observe(route string, msg wire.Message) {
	m.Collector.MessageObserved(route, msg.Side.String(), msg.Kind.String())
}
