package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secuteam/gwm-api/internal/models"
)

func newZoneMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func zoneRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "event_id", "name", "required_agents", "required_supervisors", "supervisors", "color", "priority", "created_at", "updated_at",
	})
}

func TestZoneRepositoryFindByIDAndEvent(t *testing.T) {
	db, mock, cleanup := newZoneMock(t)
	defer cleanup()
	repo := NewZoneRepository(db)

	supervisors := `["sup-1"]`
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, event_id, name, required_agents, required_supervisors, supervisors, color, priority, created_at, updated_at FROM zones WHERE id = $1 AND event_id = $2`)).
		WithArgs("zone-1", "event-1").
		WillReturnRows(zoneRows().AddRow("zone-1", "event-1", "Entrée Nord", 4, 1, supervisors, nil, 2, time.Now(), time.Now()))

	zone, err := repo.FindByIDAndEvent(context.Background(), "zone-1", "event-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"sup-1"}, zone.SupervisorIDs())

	mock.ExpectQuery(`SELECT .+ FROM zones WHERE id = \$1 AND event_id = \$2`).
		WithArgs("zone-1", "event-2").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.FindByIDAndEvent(context.Background(), "zone-1", "event-2")
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestZoneRepositoryUpdateSupervisors(t *testing.T) {
	db, mock, cleanup := newZoneMock(t)
	defer cleanup()
	repo := NewZoneRepository(db)

	payload := models.EncodeSupervisorSet([]string{"sup-1", "sup-2"})
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE zones SET supervisors = $2, updated_at = $3 WHERE id = $1`)).
		WithArgs("zone-1", payload, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateSupervisors(context.Background(), "zone-1", payload))

	// empty set nulls the column out
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE zones SET supervisors = $2, updated_at = $3 WHERE id = $1`)).
		WithArgs("zone-1", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateSupervisors(context.Background(), "zone-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestZoneRepositoryUpdateSupervisorsMissingZone(t *testing.T) {
	db, mock, cleanup := newZoneMock(t)
	defer cleanup()
	repo := NewZoneRepository(db)

	mock.ExpectExec(`UPDATE zones SET supervisors`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateSupervisors(context.Background(), "zone-missing", nil)
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestZoneRepositoryExistsByName(t *testing.T) {
	db, mock, cleanup := newZoneMock(t)
	defer cleanup()
	repo := NewZoneRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM zones WHERE event_id = $1 AND LOWER(name) = LOWER($2) AND id <> $3 LIMIT 1`)).
		WithArgs("event-1", "Entrée Nord", "").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsByName(context.Background(), "event-1", "Entrée Nord", "")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(`SELECT 1 FROM zones`).
		WithArgs("event-1", "Scène", "").
		WillReturnError(sql.ErrNoRows)

	exists, err = repo.ExistsByName(context.Background(), "event-1", "Scène", "")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
