package room

import (
	"sync"
	"testing"

	"github.com/mcdev12/whist/go/internal/whist/events"
	"github.com/mcdev12/whist/go/internal/whist/rules"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	evs []events.Event
}

func (r *recorder) Emit(_ string, evs []events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, evs...)
}

// take returns everything recorded so far and resets the buffer.
func (r *recorder) take() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.evs
	r.evs = nil
	return out
}

func (r *recorder) find(kind events.Kind) (events.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.evs) - 1; i >= 0; i-- {
		if r.evs[i].Kind == kind {
			return r.evs[i], true
		}
	}
	return events.Event{}, false
}

func kinds(evs []events.Event) []events.Kind {
	out := make([]events.Kind, len(evs))
	for i, e := range evs {
		out[i] = e.Kind
	}
	return out
}

func requireReason(t *testing.T, err error, want rules.Reason) {
	t.Helper()
	reason, ok := rules.ReasonOf(err)
	require.True(t, ok, "expected %s rejection, got %v", want, err)
	require.Equal(t, want, reason)
}
