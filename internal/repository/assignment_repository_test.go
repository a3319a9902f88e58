package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secuteam/gwm-api/internal/models"
)

func newAssignmentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func assignmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "agent_id", "event_id", "zone_id", "role", "status", "notes", "assigned_by",
		"confirmed_at", "notification_sent", "notification_sent_at", "deleted_at", "created_at", "updated_at",
	})
}

func TestAssignmentRepositoryFindByTripleIncludesDeleted(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	deletedAt := time.Now().UTC()
	zoneID := "zone-1"
	mock.ExpectQuery(`SELECT .+ FROM assignments\s+WHERE agent_id = \$1 AND event_id = \$2 AND zone_id IS NOT DISTINCT FROM \$3`).
		WithArgs("agent-1", "event-1", &zoneID).
		WillReturnRows(assignmentRows().
			AddRow("assign-1", "agent-1", "event-1", "zone-1", "primary", "pending", nil, "admin-1",
				nil, false, nil, deletedAt, time.Now(), time.Now()))

	found, err := repo.FindByTriple(context.Background(), "agent-1", "event-1", &zoneID)
	require.NoError(t, err)
	require.NotNil(t, found.DeletedAt)
	assert.True(t, found.Deleted())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCreateUniqueViolation(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec("INSERT INTO assignments").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "assignments_active_triple_idx"})

	err := repo.Create(context.Background(), &models.Assignment{
		AgentID:    "agent-1",
		EventID:    "event-1",
		Role:       models.AssignmentRolePrimary,
		Status:     models.AssignmentStatusPending,
		AssignedBy: "admin-1",
	})
	require.ErrorIs(t, err, ErrDuplicateAssignment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec("INSERT INTO assignments").
		WillReturnResult(sqlmock.NewResult(1, 1))

	assignment := &models.Assignment{
		AgentID:    "agent-1",
		EventID:    "event-1",
		Role:       models.AssignmentRolePrimary,
		Status:     models.AssignmentStatusPending,
		AssignedBy: "admin-1",
	}
	require.NoError(t, repo.Create(context.Background(), assignment))
	assert.NotEmpty(t, assignment.ID)
	assert.False(t, assignment.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryUpdateClearsDeletedAt(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(`UPDATE assignments SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	deletedAt := time.Now().UTC()
	assignment := &models.Assignment{
		ID:         "assign-1",
		AgentID:    "agent-1",
		EventID:    "event-1",
		Role:       models.AssignmentRolePrimary,
		Status:     models.AssignmentStatusPending,
		AssignedBy: "admin-1",
		DeletedAt:  &deletedAt,
	}
	require.NoError(t, repo.Update(context.Background(), assignment))
	assert.Nil(t, assignment.DeletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositorySoftDelete(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE assignments SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`)).
		WithArgs("assign-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SoftDelete(context.Background(), "assign-1", now))

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE assignments SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`)).
		WithArgs("assign-1", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.Error(t, repo.SoftDelete(context.Background(), "assign-1", now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryBulkConfirm(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`UPDATE assignments\s+SET status = 'confirmed'`).
		WithArgs("event-1", now, pq.Array([]string{"primary", "backup"})).
		WillReturnRows(assignmentRows().
			AddRow("assign-1", "agent-1", "event-1", nil, "primary", "confirmed", nil, "admin-1",
				now, false, nil, nil, time.Now(), now).
			AddRow("assign-2", "agent-2", "event-1", nil, "backup", "confirmed", nil, "admin-1",
				now, false, nil, nil, time.Now(), now))

	confirmed, err := repo.BulkConfirmByEvent(context.Background(), "event-1",
		[]models.AssignmentRole{models.AssignmentRolePrimary, models.AssignmentRoleBackup}, now)
	require.NoError(t, err)
	assert.Len(t, confirmed, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryBulkConfirmNoRoles(t *testing.T) {
	db, _, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	confirmed, err := repo.BulkConfirmByEvent(context.Background(), "event-1", nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, confirmed)
}
