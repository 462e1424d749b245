package conveyor

import (
	"context"
	"io"

	"github.com/dbbouncer/pgconvey/internal/wire"
)

// legByte is one result of racing a single-byte read on either leg.
type legByte struct {
	side wire.Side
	b    byte
	err  error
}

// legRacer runs one persistent goroutine per leg, each blocked on a single
// byte read until told to go, and feeds both into one shared buffered
// channel. The buffer is sized 2 so that if both legs become ready on the
// same underlying wake-up, neither result is dropped waiting for the
// other to be drained — the not-yet-selected leg's byte sits in the
// channel until the next call to next(), instead of being discarded.
type legRacer struct {
	results  chan legByte
	frontReq chan struct{}
	backReq  chan struct{}
}

func newLegRacer(ctx context.Context, frontend, backend io.Reader) *legRacer {
	r := &legRacer{
		results:  make(chan legByte, 2),
		frontReq: make(chan struct{}, 1),
		backReq:  make(chan struct{}, 1),
	}
	go r.loop(ctx, wire.Frontend, frontend, r.frontReq)
	go r.loop(ctx, wire.Backend, backend, r.backReq)
	return r
}

func (r *legRacer) loop(ctx context.Context, side wire.Side, reader io.Reader, req chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-req:
		}
		var buf [1]byte
		_, err := io.ReadFull(reader, buf[:])
		select {
		case r.results <- legByte{side: side, b: buf[0], err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// request arms the given leg for one more byte. requestBoth arms both legs
// once before the first race; after that, request is called again for
// whichever leg won the previous race, once its frame is fully consumed.
func (r *legRacer) request(side wire.Side) {
	if side == wire.Frontend {
		r.frontReq <- struct{}{}
	} else {
		r.backReq <- struct{}{}
	}
}

func (r *legRacer) requestBoth() {
	r.request(wire.Frontend)
	r.request(wire.Backend)
}

// next blocks until either leg delivers its next byte, or ctx is done.
func (r *legRacer) next(ctx context.Context) (legByte, error) {
	select {
	case lb := <-r.results:
		return lb, nil
	case <-ctx.Done():
		return legByte{}, ctx.Err()
	}
}
