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

// ZoneRepository persists event zones.
type ZoneRepository struct {
	db *sqlx.DB
}

// NewZoneRepository constructs the repository.
func NewZoneRepository(db *sqlx.DB) *ZoneRepository {
	return &ZoneRepository{db: db}
}

const zoneColumns = `id, event_id, name, required_agents, required_supervisors, supervisors, color, priority, created_at, updated_at`

// FindByID returns a zone by id.
func (r *ZoneRepository) FindByID(ctx context.Context, id string) (*models.Zone, error) {
	query := fmt.Sprintf(`SELECT %s FROM zones WHERE id = $1`, zoneColumns)
	var zone models.Zone
	if err := r.db.GetContext(ctx, &zone, query, id); err != nil {
		return nil, err
	}
	return &zone, nil
}

// FindByIDAndEvent returns the zone only when it belongs to the given
// event, preventing cross-event zone assignment.
func (r *ZoneRepository) FindByIDAndEvent(ctx context.Context, id, eventID string) (*models.Zone, error) {
	query := fmt.Sprintf(`SELECT %s FROM zones WHERE id = $1 AND event_id = $2`, zoneColumns)
	var zone models.Zone
	if err := r.db.GetContext(ctx, &zone, query, id, eventID); err != nil {
		return nil, err
	}
	return &zone, nil
}

// ListByEvent returns the zones of an event ordered by priority.
func (r *ZoneRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Zone, error) {
	query := fmt.Sprintf(`SELECT %s FROM zones WHERE event_id = $1 ORDER BY priority DESC, name ASC`, zoneColumns)
	var zones []models.Zone
	if err := r.db.SelectContext(ctx, &zones, query, eventID); err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	return zones, nil
}

// ExistsByName checks name uniqueness within an event.
func (r *ZoneRepository) ExistsByName(ctx context.Context, eventID, name, excludeID string) (bool, error) {
	const query = `SELECT 1 FROM zones WHERE event_id = $1 AND LOWER(name) = LOWER($2) AND id <> $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, eventID, name, excludeID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check zone name: %w", err)
	}
	return true, nil
}

// Create inserts a new zone.
func (r *ZoneRepository) Create(ctx context.Context, zone *models.Zone) error {
	if zone.ID == "" {
		zone.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if zone.CreatedAt.IsZero() {
		zone.CreatedAt = now
	}
	zone.UpdatedAt = now
	const query = `INSERT INTO zones (id, event_id, name, required_agents, required_supervisors, supervisors, color, priority, created_at, updated_at)
VALUES (:id, :event_id, :name, :required_agents, :required_supervisors, :supervisors, :color, :priority, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, zone); err != nil {
		return fmt.Errorf("create zone: %w", err)
	}
	return nil
}

// Update overwrites zone attributes other than the supervisor cache.
func (r *ZoneRepository) Update(ctx context.Context, zone *models.Zone) error {
	zone.UpdatedAt = time.Now().UTC()
	const query = `UPDATE zones SET name = :name, required_agents = :required_agents,
	required_supervisors = :required_supervisors, color = :color, priority = :priority, updated_at = :updated_at
WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, zone)
	if err != nil {
		return fmt.Errorf("update zone: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated zone rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateSupervisors persists the serialized supervisor set. A nil payload
// nulls the column out.
func (r *ZoneRepository) UpdateSupervisors(ctx context.Context, zoneID string, supervisors *string) error {
	const query = `UPDATE zones SET supervisors = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, zoneID, supervisors, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update zone supervisors: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated zone rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a zone.
func (r *ZoneRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM zones WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete zone: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted zone rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
