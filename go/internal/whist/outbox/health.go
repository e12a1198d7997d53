package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// pendingAlertThreshold is the backlog size reported as an error.
const pendingAlertThreshold = 1000

type HealthStatus struct {
	Healthy         bool      `json:"healthy"`
	EventsProcessed uint64    `json:"events_processed"`
	LastEventTime   time.Time `json:"last_event_time"`
	PendingEvents   int       `json:"pending_events"`
	DatabaseOK      bool      `json:"database_connected"`
	NATSConnected   bool      `json:"nats_connected"`
	ListenerActive  bool      `json:"listener_active"`
	Errors          []string  `json:"errors"`
}

type pendingCounter interface {
	CountPending(ctx context.Context) (int, error)
}

type connectionState interface {
	Connected() bool
}

// HealthChecker reports relay health for the relay's /health endpoint.
type HealthChecker struct {
	listener  *Listener
	store     pendingCounter
	publisher connectionState
	threshold time.Duration // How long a backlog may sit without progress
}

func NewHealthChecker(listener *Listener, store pendingCounter, publisher connectionState, threshold time.Duration) *HealthChecker {
	return &HealthChecker{
		listener:  listener,
		store:     store,
		publisher: publisher,
		threshold: threshold,
	}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{Healthy: true, Errors: []string{}}

	status.EventsProcessed, status.LastEventTime = h.listener.Stats()

	status.ListenerActive = h.listener.Running()
	if !status.ListenerActive {
		status.Healthy = false
		status.Errors = append(status.Errors, "listener not active")
	}

	if h.publisher != nil {
		status.NATSConnected = h.publisher.Connected()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	pending, err := h.store.CountPending(ctx)
	if err != nil {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("database check failed: %v", err))
		return status
	}
	status.DatabaseOK = true
	status.PendingEvents = pending
	if pending > pendingAlertThreshold {
		status.Errors = append(status.Errors, fmt.Sprintf("high pending event count: %d", pending))
	}

	if pending > 0 && !status.LastEventTime.IsZero() {
		if since := time.Since(status.LastEventTime); since > h.threshold {
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("no events processed for %s", since))
		}
	}

	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}
