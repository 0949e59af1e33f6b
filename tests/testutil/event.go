// Package testutil holds helpers shared by the integration suites.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/stockrecon/internal/domain/shared"
)

// RecordingEventHandler subscribes to the bus and keeps what it receives
type RecordingEventHandler struct {
	types []string

	mu     sync.Mutex
	events []shared.DomainEvent
	fail   error
}

// NewRecordingEventHandler subscribes to types, or to everything when none
// are given.
func NewRecordingEventHandler(types ...string) *RecordingEventHandler {
	return &RecordingEventHandler{types: types}
}

func (h *RecordingEventHandler) EventTypes() []string { return h.types }

// Handle keeps event, then returns the error set by FailWith
func (h *RecordingEventHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.fail
}

// FailWith makes later Handle calls return err. Events are still kept.
func (h *RecordingEventHandler) FailWith(err error) {
	h.mu.Lock()
	h.fail = err
	h.mu.Unlock()
}

func (h *RecordingEventHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

// HandledOfType returns the received events of eventType in arrival order
func (h *RecordingEventHandler) HandledOfType(eventType string) []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range h.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// WaitForCondition polls cond every interval and reports whether it held
// before timeout.
func WaitForCondition(t *testing.T, cond func() bool, timeout, interval time.Duration) bool {
	t.Helper()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		if cond() {
			return true
		}
		select {
		case <-deadline.C:
			return cond()
		case <-tick.C:
		}
	}
}

// WaitForEventCount waits until h has received at least n events
func WaitForEventCount(t *testing.T, h *RecordingEventHandler, n int, timeout time.Duration) bool {
	t.Helper()
	return WaitForCondition(t, func() bool { return h.Count() >= n }, timeout, 10*time.Millisecond)
}
