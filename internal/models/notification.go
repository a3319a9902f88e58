package models

import "time"

// NotificationType classifies dispatched notifications.
type NotificationType string

const (
	NotificationTypeAssignment        NotificationType = "assignment"
	NotificationTypeAssignmentUpdate  NotificationType = "assignment_update"
	NotificationTypeAssignmentConfirm NotificationType = "assignment_confirmed"
	NotificationTypeMessage           NotificationType = "message"
	NotificationTypeSystem            NotificationType = "system"
)

// Notification is a persisted, per-user notification. Dispatch is
// best-effort: a failed delivery never rolls back the operation that
// triggered it.
type Notification struct {
	ID           string           `db:"id" json:"id"`
	UserID       string           `db:"user_id" json:"user_id"`
	Type         NotificationType `db:"type" json:"type"`
	Title        string           `db:"title" json:"title"`
	Message      string           `db:"message" json:"message"`
	EventID      *string          `db:"event_id" json:"event_id,omitempty"`
	AssignmentID *string          `db:"assignment_id" json:"assignment_id,omitempty"`
	Read         bool             `db:"read" json:"read"`
	ReadAt       *time.Time       `db:"read_at" json:"read_at,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter scopes notification listings.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
