package protocol

import "time"

// CaseRecord is the value stored for a case in the local case database.
// The case identifier is the map key.
type CaseRecord struct {
	TicketID string `json:"ticket_id"`
}

// EventKind identifies what happened to a case.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventClosed  EventKind = "closed"
	EventFailed  EventKind = "failed"
)

// Event is a single journal entry describing a case transition or a failed attempt.
type Event struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	CaseID    string    `json:"case_id"`
	TicketID  string    `json:"ticket_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Profile   string    `json:"profile,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
