package models

import "time"

// AssignmentRole is the role requested for an assignment, validated against
// the assignee's account role.
type AssignmentRole string

const (
	AssignmentRolePrimary    AssignmentRole = "primary"
	AssignmentRoleBackup     AssignmentRole = "backup"
	AssignmentRoleSupervisor AssignmentRole = "supervisor"
)

// Valid reports whether the role is a supported value.
func (r AssignmentRole) Valid() bool {
	switch r {
	case AssignmentRolePrimary, AssignmentRoleBackup, AssignmentRoleSupervisor:
		return true
	default:
		return false
	}
}

// CompatibleWith checks the assignment role against the assignee's account
// role: supervising requires a supervisor or admin account, guarding
// requires an agent account.
func (r AssignmentRole) CompatibleWith(account UserRole) bool {
	switch r {
	case AssignmentRoleSupervisor:
		return account == RoleSupervisor || account == RoleAdmin
	case AssignmentRolePrimary, AssignmentRoleBackup:
		return account == RoleAgent
	default:
		return false
	}
}

// AssignmentStatus tracks the lifecycle of an assignment.
type AssignmentStatus string

const (
	AssignmentStatusPending   AssignmentStatus = "pending"
	AssignmentStatusConfirmed AssignmentStatus = "confirmed"
	AssignmentStatusDeclined  AssignmentStatus = "declined"
	AssignmentStatusCancelled AssignmentStatus = "cancelled"
)

// Active reports whether the status occupies the (agent,event,zone) slot.
// Cancelled and declined rows are reusable by a later request.
func (s AssignmentStatus) Active() bool {
	return s == AssignmentStatusPending || s == AssignmentStatusConfirmed
}

// Label returns the operator-facing French label used in conflict messages.
func (s AssignmentStatus) Label() string {
	switch s {
	case AssignmentStatusPending:
		return "en attente"
	case AssignmentStatusConfirmed:
		return "confirmée"
	case AssignmentStatusDeclined:
		return "refusée"
	case AssignmentStatusCancelled:
		return "annulée"
	default:
		return string(s)
	}
}

// Assignment binds one user to one event, optionally scoped to a zone.
// At most one row with deleted_at IS NULL may exist per (agent, event, zone)
// triple; soft-deleted rows are restored rather than duplicated.
type Assignment struct {
	ID                 string           `db:"id" json:"id"`
	AgentID            string           `db:"agent_id" json:"agent_id"`
	EventID            string           `db:"event_id" json:"event_id"`
	ZoneID             *string          `db:"zone_id" json:"zone_id,omitempty"`
	Role               AssignmentRole   `db:"role" json:"role"`
	Status             AssignmentStatus `db:"status" json:"status"`
	Notes              *string          `db:"notes" json:"notes,omitempty"`
	AssignedBy         string           `db:"assigned_by" json:"assigned_by"`
	ConfirmedAt        *time.Time       `db:"confirmed_at" json:"confirmed_at,omitempty"`
	NotificationSent   bool             `db:"notification_sent" json:"notification_sent"`
	NotificationSentAt *time.Time       `db:"notification_sent_at" json:"notification_sent_at,omitempty"`
	DeletedAt          *time.Time       `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// Deleted reports whether the row is soft-deleted.
func (a *Assignment) Deleted() bool {
	return a.DeletedAt != nil
}

// AssignmentOutcome distinguishes the lifecycle branch taken by a staffing
// request; the distinction only affects caller messaging.
type AssignmentOutcome string

const (
	AssignmentOutcomeCreated    AssignmentOutcome = "created"
	AssignmentOutcomeRestored   AssignmentOutcome = "restored"
	AssignmentOutcomeReassigned AssignmentOutcome = "reassigned"
)

// AssignmentResult is the result shape for staffing requests.
type AssignmentResult struct {
	Outcome    AssignmentOutcome `json:"outcome"`
	Assignment *Assignment       `json:"assignment,omitempty"`
	Message    string            `json:"message"`
}

// AssignmentDetail joins agent and zone metadata for listings.
type AssignmentDetail struct {
	Assignment
	AgentFirstName string  `db:"agent_first_name" json:"agent_first_name"`
	AgentLastName  string  `db:"agent_last_name" json:"agent_last_name"`
	AgentEmail     string  `db:"agent_email" json:"agent_email"`
	ZoneName       *string `db:"zone_name" json:"zone_name,omitempty"`
	EventName      string  `db:"event_name" json:"event_name"`
}

// AssignmentFilter narrows assignment listings.
type AssignmentFilter struct {
	EventID  string
	AgentID  string
	ZoneID   *string
	Role     *AssignmentRole
	Status   *AssignmentStatus
	Page     int
	PageSize int
}
