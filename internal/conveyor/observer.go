package conveyor

import (
	"log/slog"

	"github.com/dbbouncer/pgconvey/internal/wire"
)

// Observer receives one callback per decoded message, in the exact order
// the conveyor framed them off their originating leg. The Message it
// receives is borrowed: its Body must not be retained past the call
// without first calling Message.Clone.
type Observer interface {
	Observe(route string, msg wire.Message)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(route string, msg wire.Message)

// Observe calls f.
func (f ObserverFunc) Observe(route string, msg wire.Message) { f(route, msg) }

// MultiObserver fans a single Observe call out to every observer in order.
// A panicking observer would take down the conveyor goroutine with it, so
// callers composing untrusted observers should wrap them defensively
// themselves — MultiObserver does not add recovery of its own.
type MultiObserver []Observer

// Observe calls Observe on every member in order.
func (m MultiObserver) Observe(route string, msg wire.Message) {
	for _, o := range m {
		o.Observe(route, msg)
	}
}

// LoggingObserver writes one structured log line per message at debug
// level, matching the proxy's existing slog usage for steady-state relay
// events.
type LoggingObserver struct{}

// Observe logs msg's side, kind, and route.
func (LoggingObserver) Observe(route string, msg wire.Message) {
	slog.Debug("message observed", "route", route, "side", msg.Side, "kind", msg.Kind)
}
