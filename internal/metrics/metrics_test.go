package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// newTestCollector creates a Collector registered with a fresh registry so
// tests don't conflict with each other or with the default registry.
func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	c := New()
	return c, c.Registry
}

func getGaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	g.Write(m)
	return m.GetGauge().GetValue()
}

func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	c.Write(m)
	return m.GetCounter().GetValue()
}

func TestMessageObserved(t *testing.T) {
	c, _ := newTestCollector(t)

	c.MessageObserved("analytics", "frontend", "Query")
	c.MessageObserved("analytics", "frontend", "Query")
	c.MessageObserved("analytics", "backend", "RowDescription")

	if v := getCounterValue(c.messagesTotal.WithLabelValues("analytics", "frontend", "Query")); v != 2 {
		t.Errorf("expected Query count=2, got %v", v)
	}
	if v := getCounterValue(c.messagesTotal.WithLabelValues("analytics", "backend", "RowDescription")); v != 1 {
		t.Errorf("expected RowDescription count=1, got %v", v)
	}
}

func TestBytesForwarded(t *testing.T) {
	c, _ := newTestCollector(t)

	c.BytesForwarded("analytics", "frontend", 128)
	c.BytesForwarded("analytics", "frontend", 64)

	if v := getCounterValue(c.bytesForwarded.WithLabelValues("analytics", "frontend")); v != 192 {
		t.Errorf("expected bytes=192, got %v", v)
	}
}

func TestConveyorStartedAndFinished(t *testing.T) {
	c, _ := newTestCollector(t)

	c.ConveyorStarted("analytics")
	c.ConveyorStarted("analytics")
	if v := getGaugeValue(c.conveyorsActive.WithLabelValues("analytics")); v != 2 {
		t.Errorf("expected active=2, got %v", v)
	}

	c.ConveyorFinished("analytics", "success", 50*time.Millisecond)
	if v := getGaugeValue(c.conveyorsActive.WithLabelValues("analytics")); v != 1 {
		t.Errorf("expected active=1 after finish, got %v", v)
	}

	families, err := c.Registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, f := range families {
		if f.GetName() == "pgconvey_conveyor_duration_seconds" {
			found = true
			if m := f.GetMetric(); len(m) == 0 || m[0].GetHistogram().GetSampleCount() != 1 {
				t.Errorf("expected 1 duration sample")
			}
		}
	}
	if !found {
		t.Error("conveyor duration metric not found")
	}
}

func TestTLSSpliceCompleted(t *testing.T) {
	c, _ := newTestCollector(t)

	c.TLSSpliceCompleted("analytics", "upgraded")
	c.TLSSpliceCompleted("analytics", "upgraded")
	c.TLSSpliceCompleted("analytics", "rejected")

	if v := getCounterValue(c.tlsSplicesTotal.WithLabelValues("analytics", "upgraded")); v != 2 {
		t.Errorf("expected upgraded=2, got %v", v)
	}
	if v := getCounterValue(c.tlsSplicesTotal.WithLabelValues("analytics", "rejected")); v != 1 {
		t.Errorf("expected rejected=1, got %v", v)
	}
}

func TestDecodeErrorObserved(t *testing.T) {
	c, _ := newTestCollector(t)

	c.DecodeErrorObserved("analytics", "unknown")
	if v := getCounterValue(c.decodeErrorsTotal.WithLabelValues("analytics", "unknown")); v != 1 {
		t.Errorf("expected unknown=1, got %v", v)
	}
}

func TestSetRouteHealth(t *testing.T) {
	c, _ := newTestCollector(t)

	c.SetRouteHealth("analytics", true)
	if v := getGaugeValue(c.routeHealth.WithLabelValues("analytics")); v != 1 {
		t.Errorf("expected health=1 (healthy), got %v", v)
	}

	c.SetRouteHealth("analytics", false)
	if v := getGaugeValue(c.routeHealth.WithLabelValues("analytics")); v != 0 {
		t.Errorf("expected health=0 (unhealthy), got %v", v)
	}
}

func TestHealthCheckCompletedAndError(t *testing.T) {
	c, reg := newTestCollector(t)

	c.HealthCheckCompleted("analytics", 5*time.Millisecond, true)
	c.HealthCheckError("analytics", "timeout")

	if v := getCounterValue(c.healthCheckErrors.WithLabelValues("analytics", "timeout")); v != 1 {
		t.Errorf("expected 1 health check error, got %v", v)
	}

	families, _ := reg.Gather()
	var found bool
	for _, f := range families {
		if f.GetName() == "pgconvey_health_check_duration_seconds" {
			found = true
		}
	}
	if !found {
		t.Error("health check duration metric not found")
	}
}

func TestRemoveRoute(t *testing.T) {
	c, reg := newTestCollector(t)

	c.MessageObserved("analytics", "frontend", "Query")
	c.SetRouteHealth("analytics", true)
	c.TLSSpliceCompleted("analytics", "upgraded")

	c.RemoveRoute("analytics")

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "route" && l.GetValue() == "analytics" {
					t.Errorf("metric %s still has analytics label after removal", f.GetName())
				}
			}
		}
	}
}

func TestNewDoesNotPanicOnMultipleCalls(t *testing.T) {
	// Calling New() multiple times should not panic because each creates
	// its own registry instead of using the global default.
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("New() panicked on repeated calls: %v", r)
		}
	}()

	c1 := New()
	c2 := New()

	c1.MessageObserved("r1", "frontend", "Query")
	c2.MessageObserved("r1", "frontend", "Query")

	v1 := getCounterValue(c1.messagesTotal.WithLabelValues("r1", "frontend", "Query"))
	v2 := getCounterValue(c2.messagesTotal.WithLabelValues("r1", "frontend", "Query"))
	if v1 != 1 || v2 != 1 {
		t.Errorf("expected both collectors at 1, got %v and %v", v1, v2)
	}
}
