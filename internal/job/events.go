package job

import "time"

// EventType classifies stream events.
type EventType string

// Event types emitted over a job's stream.
const (
	// EventStart echoes the job parameters and oracle availability.
	EventStart EventType = "start"
	// EventPhase marks a lifecycle transition (collecting -> analyzing).
	EventPhase EventType = "phase"
	// EventInfo carries progress notes.
	EventInfo EventType = "info"
	// EventItem carries one joined item + assessment.
	EventItem EventType = "item"
	// EventError carries a non-fatal per-item/per-source failure, or a
	// job-fatal one on the terminal event.
	EventError EventType = "error"
	// EventComplete carries the final aggregate summary.
	EventComplete EventType = "complete"
)

// Event is one entry in a job's ordered event feed.
type Event struct {
	Type      EventType `json:"type"`
	Seq       int       `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}
