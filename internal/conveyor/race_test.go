package conveyor

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dbbouncer/pgconvey/internal/wire"
)

func TestLegRacerDeliversRequestedLeg(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feA, feB := net.Pipe()
	beA, beB := net.Pipe()
	defer feA.Close()
	defer feB.Close()
	defer beA.Close()
	defer beB.Close()

	r := newLegRacer(ctx, feA, beA)
	r.request(wire.Frontend)

	go func() { _, _ = feB.Write([]byte{'Q'}) }()

	lb, err := r.next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if lb.side != wire.Frontend || lb.b != 'Q' {
		t.Fatalf("lb = %+v, want frontend 'Q'", lb)
	}
}

func TestLegRacerDoesNotDropSimultaneousBytes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feA, feB := net.Pipe()
	beA, beB := net.Pipe()
	defer feA.Close()
	defer feB.Close()
	defer beA.Close()
	defer beB.Close()

	r := newLegRacer(ctx, feA, beA)
	r.requestBoth()

	go func() { _, _ = feB.Write([]byte{'Q'}) }()
	go func() { _, _ = beB.Write([]byte{'R'}) }()

	seen := map[wire.Side]byte{}
	for i := 0; i < 2; i++ {
		lb, err := r.next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		seen[lb.side] = lb.b
	}
	if seen[wire.Frontend] != 'Q' {
		t.Fatalf("frontend byte = %q, want 'Q'", seen[wire.Frontend])
	}
	if seen[wire.Backend] != 'R' {
		t.Fatalf("backend byte = %q, want 'R'", seen[wire.Backend])
	}
}

func TestLegRacerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	feA, feB := net.Pipe()
	beA, beB := net.Pipe()
	defer feB.Close()
	defer beB.Close()

	r := newLegRacer(ctx, feA, beA)
	r.requestBoth()
	cancel()

	time.Sleep(10 * time.Millisecond)

	_, err := r.next(ctx)
	if err != context.Canceled {
		t.Fatalf("next after cancel = %v, want context.Canceled", err)
	}

	feA.Close()
	beA.Close()
}
