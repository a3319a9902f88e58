package models

import "time"

// EventStatus enumerates stored and derived event states.
type EventStatus string

const (
	EventStatusScheduled  EventStatus = "scheduled"
	EventStatusActive     EventStatus = "active"
	EventStatusCompleted  EventStatus = "completed"
	EventStatusCancelled  EventStatus = "cancelled"
	EventStatusTerminated EventStatus = "terminated"
)

// Explicit reports whether the status is operator-set and must never be
// overridden by the computed time window.
func (s EventStatus) Explicit() bool {
	return s == EventStatusCancelled || s == EventStatusTerminated
}

// Event represents a guarded event with its staffing window configuration.
// CheckInTime and CheckOutTime are clock strings ("HH:MM:SS") combined with
// the date part of StartDate/EndDate when deriving the effective window.
type Event struct {
	ID                  string      `db:"id" json:"id"`
	Name                string      `db:"name" json:"name"`
	Description         *string     `db:"description" json:"description,omitempty"`
	Location            *string     `db:"location" json:"location,omitempty"`
	StartDate           time.Time   `db:"start_date" json:"start_date"`
	EndDate             time.Time   `db:"end_date" json:"end_date"`
	CheckInTime         *string     `db:"check_in_time" json:"check_in_time,omitempty"`
	CheckOutTime        *string     `db:"check_out_time" json:"check_out_time,omitempty"`
	Status              EventStatus `db:"status" json:"status"`
	AgentCreationBuffer *int        `db:"agent_creation_buffer" json:"agent_creation_buffer,omitempty"`
	CreatedBy           string      `db:"created_by" json:"created_by"`
	CreatedAt           time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time   `db:"updated_at" json:"updated_at"`
}

// EventWithStatus decorates an event with its derived status for read paths.
type EventWithStatus struct {
	Event
	EffectiveStatus EventStatus `json:"effective_status"`
}

// EventFilter narrows down event listings.
type EventFilter struct {
	Status    *EventStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
