package conveyor

import (
	"testing"

	"github.com/dbbouncer/pgconvey/internal/wire"
)

type fakeMetricsCollector struct {
	calls []string
}

func (f *fakeMetricsCollector) MessageObserved(route, direction, kind string) {
	f.calls = append(f.calls, route+"/"+direction+"/"+kind)
}

func TestMetricsObserverObserve(t *testing.T) {
	fake := &fakeMetricsCollector{}
	obs := MetricsObserver{Collector: fake}

	obs.Observe("route_1", wire.Message{Side: wire.Frontend, Kind: wire.KindQuery})
	obs.Observe("route_1", wire.Message{Side: wire.Backend, Kind: wire.KindReadyForQuery})

	want := []string{"route_1/frontend/Query", "route_1/backend/ReadyForQuery"}
	if len(fake.calls) != len(want) {
		t.Fatalf("expected %d calls, got %d: %v", len(want), len(fake.calls), fake.calls)
	}
	for i, w := range want {
		if fake.calls[i] != w {
			t.Errorf("call %d = %q, want %q", i, fake.calls[i], w)
		}
	}
}

func TestMetricsObserverInMultiObserver(t *testing.T) {
	fake := &fakeMetricsCollector{}
	multi := MultiObserver{LoggingObserver{}, MetricsObserver{Collector: fake}}

	multi.Observe("route_2", wire.Message{Side: wire.Frontend, Kind: wire.KindStartup})

	if len(fake.calls) != 1 || fake.calls[0] != "route_2/frontend/Startup" {
		t.Errorf("expected MetricsObserver to receive the call via MultiObserver, got %v", fake.calls)
	}
}
