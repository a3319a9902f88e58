package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/secuteam/gwm-api/internal/models"
)

// AttendanceRepository persists shift attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `id, assignment_id, agent_id, event_id, zone_id, check_in_at, check_out_at, late, left_early, status, notes, created_at, updated_at`

// FindByID returns an attendance record by id.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.Attendance, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendances WHERE id = $1`, attendanceColumns)
	var record models.Attendance
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByAssignment returns the attendance record bound to an assignment.
func (r *AttendanceRepository) FindByAssignment(ctx context.Context, assignmentID string) (*models.Attendance, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendances WHERE assignment_id = $1`, attendanceColumns)
	var record models.Attendance
	if err := r.db.GetContext(ctx, &record, query, assignmentID); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts an attendance record opened by a check-in.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.Attendance) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO attendances (id, assignment_id, agent_id, event_id, zone_id, check_in_at, check_out_at, late, left_early, status, notes, created_at, updated_at)
VALUES (:id, :assignment_id, :agent_id, :event_id, :zone_id, :check_in_at, :check_out_at, :late, :left_early, :status, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// Update overwrites attendance fields, used by check-out.
func (r *AttendanceRepository) Update(ctx context.Context, record *models.Attendance) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE attendances SET check_in_at = :check_in_at, check_out_at = :check_out_at,
	late = :late, left_early = :left_early, status = :status, notes = :notes, updated_at = :updated_at
WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated attendance rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByEvent returns attendance rows for an event with agent metadata.
func (r *AttendanceRepository) ListByEvent(ctx context.Context, eventID string) ([]models.AttendanceDetail, error) {
	query := fmt.Sprintf(`SELECT a.%s, u.first_name AS agent_first_name, u.last_name AS agent_last_name, z.name AS zone_name
FROM attendances a
JOIN users u ON u.id = a.agent_id
LEFT JOIN zones z ON z.id = a.zone_id
WHERE a.event_id = $1
ORDER BY a.check_in_at ASC NULLS LAST`, attendanceJoinColumns())
	var rows []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &rows, query, eventID); err != nil {
		return nil, fmt.Errorf("list attendances: %w", err)
	}
	return rows, nil
}

// SummaryByEvent aggregates presence counts for an event.
func (r *AttendanceRepository) SummaryByEvent(ctx context.Context, eventID string) (*models.AttendanceSummary, error) {
	const query = `SELECT
	COUNT(*) FILTER (WHERE check_in_at IS NOT NULL) AS checked_in,
	COUNT(*) FILTER (WHERE check_out_at IS NOT NULL) AS checked_out,
	COUNT(*) FILTER (WHERE late) AS late
FROM attendances WHERE event_id = $1`
	row := struct {
		CheckedIn  int `db:"checked_in"`
		CheckedOut int `db:"checked_out"`
		Late       int `db:"late"`
	}{}
	if err := r.db.GetContext(ctx, &row, query, eventID); err != nil {
		return nil, fmt.Errorf("summarise attendances: %w", err)
	}
	return &models.AttendanceSummary{
		CheckedIn:  row.CheckedIn,
		CheckedOut: row.CheckedOut,
		Late:       row.Late,
	}, nil
}

func attendanceJoinColumns() string {
	return `id, a.assignment_id, a.agent_id, a.event_id, a.zone_id, a.check_in_at, a.check_out_at, a.late, a.left_early, a.status, a.notes, a.created_at, a.updated_at`
}
