// Package sessions keeps a bounded in-memory record of recently finished
// conveyors for the API's /sessions endpoint. It is a pure observability
// aid: nothing here participates in forwarding bytes or making protocol
// decisions, and losing the ring buffer's contents changes no proxy
// behavior.
package sessions

import (
	"sync"
	"time"

	"github.com/dbbouncer/pgconvey/internal/wire"
)

// Summary is one finished conveyor's recap.
type Summary struct {
	Route        string    `json:"route"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	Duration     float64   `json:"duration_seconds"`
	MessageCount int       `json:"message_count"`
	BytesFwd     int64     `json:"bytes_forwarded"`
	Result       string    `json:"result"` // "ok", "error", "tls_rejected", ...
	Error        string    `json:"error,omitempty"`
}

// Recorder is a fixed-capacity ring buffer of the most recent Summaries.
type Recorder struct {
	mu   sync.Mutex
	buf  []Summary
	next int
	full bool
	cap  int
}

// NewRecorder creates a Recorder holding at most capacity summaries.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = 1
	}
	return &Recorder{buf: make([]Summary, capacity), cap: capacity}
}

// Record appends s, evicting the oldest entry once the buffer is full.
func (r *Recorder) Record(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = s
	r.next = (r.next + 1) % r.cap
	if r.next == 0 {
		r.full = true
	}
}

// Recent returns the recorded summaries, newest first.
func (r *Recorder) Recent() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.next
	if r.full {
		n = r.cap
	}
	out := make([]Summary, 0, n)
	idx := r.next
	for i := 0; i < n; i++ {
		idx = (idx - 1 + r.cap) % r.cap
		out = append(out, r.buf[idx])
	}
	return out
}

// Session tracks one in-flight conveyor and implements conveyor.Observer so
// it can be composed into a MultiObserver alongside logging/metrics
// observers. Call Finish once the conveyor returns to push the completed
// Summary into the owning Recorder.
type Session struct {
	rec       *Recorder
	route     string
	startedAt time.Time

	mu    sync.Mutex
	count int
}

// NewSession begins tracking a conveyor for route, recording into rec on Finish.
func NewSession(rec *Recorder, route string) *Session {
	return &Session{rec: rec, route: route, startedAt: time.Now()}
}

// Observe implements conveyor.Observer.
func (s *Session) Observe(route string, msg wire.Message) {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
}

// Finish records the session's summary. result should be one of "ok",
// "error", "tls_rejected" and the like; err may be nil.
func (s *Session) Finish(result string, err error) {
	s.mu.Lock()
	count := s.count
	s.mu.Unlock()

	summary := Summary{
		Route:        s.route,
		StartedAt:    s.startedAt,
		EndedAt:      time.Now(),
		MessageCount: count,
		Result:       result,
	}
	summary.Duration = summary.EndedAt.Sub(summary.StartedAt).Seconds()
	if err != nil {
		summary.Error = err.Error()
	}
	s.rec.Record(summary)
}
