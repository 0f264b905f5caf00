package supervisor

import "time"

// EventType identifies a lifecycle notification.
type EventType string

const (
	// EventProcessStarted means the OS process was launched and survived
	// the grace period. It does NOT mean the world is loaded; collaborators
	// gating player-facing availability must wait for EventProcessReady.
	EventProcessStarted EventType = "process-started"

	// EventProcessReady means a readiness marker was seen in the server log.
	EventProcessReady EventType = "process-ready"

	// EventProcessStopped means the server left the registry, either through
	// an explicit stop (Unplanned=false) or a detected exit (Unplanned=true).
	EventProcessStopped EventType = "process-stopped"

	// EventLogLine carries one verbatim server log line.
	EventLogLine EventType = "log-line"
)

// Event is a lifecycle notification delivered to collaborators.
type Event struct {
	Type     EventType
	ServerID int64
	At       time.Time

	// PID accompanies EventProcessStarted so collaborators (the guardian)
	// can register the process for health monitoring.
	PID int

	// Unplanned qualifies EventProcessStopped.
	Unplanned bool

	// Line and IsError qualify EventLogLine.
	Line    string
	IsError bool
}

// EventSink receives lifecycle notifications. Publish must not block for
// long; it is called from the supervisor's internal goroutines.
type EventSink interface {
	Publish(event Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(event Event)

func (f EventSinkFunc) Publish(event Event) { f(event) }

// ChannelSink buffers events on a channel for consumers that prefer a
// select loop. Events are dropped when the buffer is full rather than
// stalling the supervisor.
type ChannelSink struct {
	ch chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelSink{ch: make(chan Event, buffer)}
}

func (s *ChannelSink) Publish(event Event) {
	select {
	case s.ch <- event:
	default:
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}
