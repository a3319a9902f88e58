package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/secuteam/gwm-api/internal/models"
)

// ErrDuplicateAssignment is returned when the partial unique index on
// (agent_id, event_id, zone_id) WHERE deleted_at IS NULL rejects a write.
// It covers the race where two concurrent requests both pass the existence
// check before either inserts; callers translate it into a conflict.
var ErrDuplicateAssignment = errors.New("an active assignment already exists for this agent, event and zone")

const uniqueViolationCode = "23505"

// AssignmentRepository persists agent-to-event staffing rows.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `id, agent_id, event_id, zone_id, role, status, notes, assigned_by,
       confirmed_at, notification_sent, notification_sent_at, deleted_at, created_at, updated_at`

// FindByID returns a non-deleted assignment by id.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE id = $1 AND deleted_at IS NULL`, assignmentColumns)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FindByTriple looks up the assignment row for (agent, event, zone),
// including soft-deleted rows. The bypass of the deleted_at filter is
// essential: the restore branch reuses the deleted row instead of inserting
// a duplicate that the unique index would reject.
func (r *AssignmentRepository) FindByTriple(ctx context.Context, agentID, eventID string, zoneID *string) (*models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments
WHERE agent_id = $1 AND event_id = $2 AND zone_id IS NOT DISTINCT FROM $3
ORDER BY deleted_at IS NOT NULL, updated_at DESC
LIMIT 1`, assignmentColumns)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, agentID, eventID, zoneID); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Create inserts a new assignment. Unique-index violations on the active
// triple surface as ErrDuplicateAssignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now
	const query = `INSERT INTO assignments
(id, agent_id, event_id, zone_id, role, status, notes, assigned_by, confirmed_at, notification_sent, notification_sent_at, created_at, updated_at)
VALUES (:id, :agent_id, :event_id, :zone_id, :role, :status, :notes, :assigned_by, :confirmed_at, :notification_sent, :notification_sent_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAssignment
		}
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of an assignment row, clearing any
// soft-delete marker. The same statement serves the restore and reassign
// branches of the lifecycle.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	assignment.DeletedAt = nil
	const query = `UPDATE assignments SET
	zone_id = :zone_id,
	role = :role,
	status = :status,
	notes = :notes,
	assigned_by = :assigned_by,
	confirmed_at = :confirmed_at,
	notification_sent = :notification_sent,
	notification_sent_at = :notification_sent_at,
	deleted_at = NULL,
	updated_at = :updated_at
WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, assignment)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAssignment
		}
		return fmt.Errorf("update assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus transitions the lifecycle status of a pending assignment.
func (r *AssignmentRepository) UpdateStatus(ctx context.Context, id string, status models.AssignmentStatus, confirmedAt *time.Time) error {
	const query = `UPDATE assignments SET status = $2, confirmed_at = $3, updated_at = $4
WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, status, confirmedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update assignment status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SoftDelete marks an assignment as deleted without removing the row.
func (r *AssignmentRepository) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	const query = `UPDATE assignments SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, deletedAt)
	if err != nil {
		return fmt.Errorf("soft delete assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// BulkConfirmByEvent confirms every pending assignment on the event whose
// role is in roles, as a single statement, and returns the affected rows.
func (r *AssignmentRepository) BulkConfirmByEvent(ctx context.Context, eventID string, roles []models.AssignmentRole, confirmedAt time.Time) ([]models.Assignment, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	roleValues := make([]string, len(roles))
	for i, role := range roles {
		roleValues[i] = string(role)
	}
	query := fmt.Sprintf(`UPDATE assignments
SET status = 'confirmed', confirmed_at = $2, updated_at = $2
WHERE event_id = $1 AND status = 'pending' AND deleted_at IS NULL AND role = ANY($3)
RETURNING %s`, assignmentColumns)
	var confirmed []models.Assignment
	if err := r.db.SelectContext(ctx, &confirmed, query, eventID, confirmedAt, pq.Array(roleValues)); err != nil {
		return nil, fmt.Errorf("bulk confirm assignments: %w", err)
	}
	return confirmed, nil
}

// MarkNotificationSent flags the assignment after a successful dispatch.
func (r *AssignmentRepository) MarkNotificationSent(ctx context.Context, id string, sentAt time.Time) error {
	const query = `UPDATE assignments SET notification_sent = TRUE, notification_sent_at = $2, updated_at = $2
WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, sentAt); err != nil {
		return fmt.Errorf("mark assignment notified: %w", err)
	}
	return nil
}

// ListByEvent returns active assignment rows for an event with agent and
// zone metadata joined in.
func (r *AssignmentRepository) ListByEvent(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error) {
	query := fmt.Sprintf(`SELECT a.%s, u.first_name AS agent_first_name, u.last_name AS agent_last_name,
       u.email AS agent_email, z.name AS zone_name, e.name AS event_name
FROM assignments a
JOIN users u ON u.id = a.agent_id
JOIN events e ON e.id = a.event_id
LEFT JOIN zones z ON z.id = a.zone_id
WHERE a.event_id = $1 AND a.deleted_at IS NULL
ORDER BY z.name NULLS FIRST, u.last_name ASC`, joinColumns("a"))
	var rows []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, filter.EventID); err != nil {
		return nil, fmt.Errorf("list assignments by event: %w", err)
	}
	return rows, nil
}

// ListByAgent returns an agent's active assignments across events.
func (r *AssignmentRepository) ListByAgent(ctx context.Context, agentID string) ([]models.AssignmentDetail, error) {
	query := fmt.Sprintf(`SELECT a.%s, u.first_name AS agent_first_name, u.last_name AS agent_last_name,
       u.email AS agent_email, z.name AS zone_name, e.name AS event_name
FROM assignments a
JOIN users u ON u.id = a.agent_id
JOIN events e ON e.id = a.event_id
LEFT JOIN zones z ON z.id = a.zone_id
WHERE a.agent_id = $1 AND a.deleted_at IS NULL
ORDER BY e.start_date DESC`, joinColumns("a"))
	var rows []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, agentID); err != nil {
		return nil, fmt.Errorf("list assignments by agent: %w", err)
	}
	return rows, nil
}

// CountActiveByZone returns active assignment counts per role for a zone.
func (r *AssignmentRepository) CountActiveByZone(ctx context.Context, zoneID string, role models.AssignmentRole) (int, error) {
	const query = `SELECT COUNT(*) FROM assignments
WHERE zone_id = $1 AND role = $2 AND deleted_at IS NULL AND status IN ('pending', 'confirmed')`
	var count int
	if err := r.db.GetContext(ctx, &count, query, zoneID, role); err != nil {
		return 0, fmt.Errorf("count zone assignments: %w", err)
	}
	return count, nil
}

// CountByEventAndStatus aggregates assignment statuses for dashboards.
func (r *AssignmentRepository) CountByEventAndStatus(ctx context.Context, eventID string) (map[models.AssignmentStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM assignments
WHERE event_id = $1 AND deleted_at IS NULL GROUP BY status`
	rows := []struct {
		Status models.AssignmentStatus `db:"status"`
		Total  int                     `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, eventID); err != nil {
		return nil, fmt.Errorf("count assignments by status: %w", err)
	}
	counts := make(map[models.AssignmentStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolationCode
}

// joinColumns prefixes the assignment column list for joined queries.
func joinColumns(alias string) string {
	return fmt.Sprintf(`id, %[1]s.agent_id, %[1]s.event_id, %[1]s.zone_id, %[1]s.role, %[1]s.status, %[1]s.notes, %[1]s.assigned_by,
       %[1]s.confirmed_at, %[1]s.notification_sent, %[1]s.notification_sent_at, %[1]s.deleted_at, %[1]s.created_at, %[1]s.updated_at`, alias)
}
