package models

import "time"

// AttendanceStatus classifies a shift record once closed.
type AttendanceStatus string

const (
	AttendanceStatusCheckedIn  AttendanceStatus = "checked_in"
	AttendanceStatusCheckedOut AttendanceStatus = "checked_out"
	AttendanceStatusMissed     AttendanceStatus = "missed"
)

// Attendance records one agent's presence on an event shift, anchored to a
// confirmed assignment.
type Attendance struct {
	ID           string           `db:"id" json:"id"`
	AssignmentID string           `db:"assignment_id" json:"assignment_id"`
	AgentID      string           `db:"agent_id" json:"agent_id"`
	EventID      string           `db:"event_id" json:"event_id"`
	ZoneID       *string          `db:"zone_id" json:"zone_id,omitempty"`
	CheckInAt    *time.Time       `db:"check_in_at" json:"check_in_at,omitempty"`
	CheckOutAt   *time.Time       `db:"check_out_at" json:"check_out_at,omitempty"`
	Late         bool             `db:"late" json:"late"`
	LeftEarly    bool             `db:"left_early" json:"left_early"`
	Status       AttendanceStatus `db:"status" json:"status"`
	Notes        *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceDetail joins agent metadata for event rosters.
type AttendanceDetail struct {
	Attendance
	AgentFirstName string  `db:"agent_first_name" json:"agent_first_name"`
	AgentLastName  string  `db:"agent_last_name" json:"agent_last_name"`
	ZoneName       *string `db:"zone_name" json:"zone_name,omitempty"`
}

// AttendanceFilter scopes attendance listings.
type AttendanceFilter struct {
	EventID  string
	AgentID  string
	Status   *AttendanceStatus
	Page     int
	PageSize int
}

// AttendanceSummary aggregates presence counts for an event.
type AttendanceSummary struct {
	Expected   int     `json:"expected"`
	CheckedIn  int     `json:"checked_in"`
	CheckedOut int     `json:"checked_out"`
	Late       int     `json:"late"`
	Rate       float64 `json:"rate"`
}
