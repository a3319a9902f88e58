package models

import "time"

// ActivityAction constants represent actions recorded in the activity log.
const (
	ActivityActionLogin            = "LOGIN"
	ActivityActionLogout           = "LOGOUT"
	ActivityActionPasswordChange   = "PASSWORD_CHANGE"
	ActivityActionUserCreate       = "USER_CREATE"
	ActivityActionUserUpdate       = "USER_UPDATE"
	ActivityActionUserDeactivate   = "USER_DEACTIVATE"
	ActivityActionEventCreate      = "EVENT_CREATE"
	ActivityActionEventUpdate      = "EVENT_UPDATE"
	ActivityActionEventCancel      = "EVENT_CANCEL"
	ActivityActionZoneCreate       = "ZONE_CREATE"
	ActivityActionZoneUpdate       = "ZONE_UPDATE"
	ActivityActionAssignmentCreate = "ASSIGNMENT_CREATE"
	ActivityActionAssignmentUpdate = "ASSIGNMENT_UPDATE"
	ActivityActionAssignmentDelete = "ASSIGNMENT_DELETE"
	ActivityActionCheckIn          = "CHECK_IN"
	ActivityActionCheckOut         = "CHECK_OUT"
)

// ActivityLog represents an audit trail record emitted by services and the
// audit middleware.
type ActivityLog struct {
	ID          string    `db:"id" json:"id"`
	UserID      *string   `db:"user_id" json:"user_id,omitempty"`
	Action      string    `db:"action" json:"action"`
	EntityType  string    `db:"entity_type" json:"entity_type"`
	EntityID    *string   `db:"entity_id" json:"entity_id,omitempty"`
	Description string    `db:"description" json:"description"`
	OldValues   []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues   []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress   string    `db:"ip_address" json:"ip_address"`
	UserAgent   string    `db:"user_agent" json:"user_agent"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
