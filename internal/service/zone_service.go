package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/secuteam/gwm-api/internal/models"
	appErrors "github.com/secuteam/gwm-api/pkg/errors"
)

type zoneRepository interface {
	FindByID(ctx context.Context, id string) (*models.Zone, error)
	FindByIDAndEvent(ctx context.Context, id, eventID string) (*models.Zone, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.Zone, error)
	ExistsByName(ctx context.Context, eventID, name, excludeID string) (bool, error)
	Create(ctx context.Context, zone *models.Zone) error
	Update(ctx context.Context, zone *models.Zone) error
	Delete(ctx context.Context, id string) error
}

type zoneAssignmentCounter interface {
	CountActiveByZone(ctx context.Context, zoneID string, role models.AssignmentRole) (int, error)
}

// CreateZoneRequest is the payload for adding a zone to an event.
type CreateZoneRequest struct {
	EventID             string  `json:"event_id" validate:"required"`
	Name                string  `json:"name" validate:"required"`
	RequiredAgents      int     `json:"required_agents" validate:"min=0"`
	RequiredSupervisors int     `json:"required_supervisors" validate:"min=0"`
	Color               *string `json:"color"`
	Priority            int     `json:"priority" validate:"min=0"`
}

// UpdateZoneRequest carries mutable zone fields. The supervisors column is
// deliberately absent: roster mutations go through ZoneSupervisorService.
type UpdateZoneRequest struct {
	Name                *string `json:"name"`
	RequiredAgents      *int    `json:"required_agents" validate:"omitempty,min=0"`
	RequiredSupervisors *int    `json:"required_supervisors" validate:"omitempty,min=0"`
	Color               *string `json:"color"`
	Priority            *int    `json:"priority" validate:"omitempty,min=0"`
}

// ZoneService manages event zones and their staffing targets.
type ZoneService struct {
	repo        zoneRepository
	events      assignmentEventReader
	assignments zoneAssignmentCounter
	activity    activityRecorder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewZoneService constructs a ZoneService instance.
func NewZoneService(repo zoneRepository, events assignmentEventReader, assignments zoneAssignmentCounter, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *ZoneService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZoneService{repo: repo, events: events, assignments: assignments, activity: activity, validator: validate, logger: logger}
}

// Get returns one zone with its decoded supervisor roster and live
// assignment counts.
func (s *ZoneService) Get(ctx context.Context, id string) (*models.ZoneDetail, error) {
	zone, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "zone not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load zone")
	}
	detail := s.detail(ctx, zone)
	return &detail, nil
}

// ListByEvent returns every zone of an event with details, ordered as the
// repository returns them (priority first).
func (s *ZoneService) ListByEvent(ctx context.Context, eventID string) ([]models.ZoneDetail, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load event")
	}

	zones, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list zones")
	}

	details := make([]models.ZoneDetail, 0, len(zones))
	for i := range zones {
		details = append(details, s.detail(ctx, &zones[i]))
	}
	return details, nil
}

// Create adds a zone to an event. Zone names are unique per event.
func (s *ZoneService) Create(ctx context.Context, req CreateZoneRequest, createdBy string) (*models.Zone, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid zone payload")
	}

	if _, err := s.events.FindByID(ctx, req.EventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load event")
	}

	exists, err := s.repo.ExistsByName(ctx, req.EventID, req.Name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to check zone name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a zone with this name already exists on the event")
	}

	zone := &models.Zone{
		EventID:             req.EventID,
		Name:                req.Name,
		RequiredAgents:      req.RequiredAgents,
		RequiredSupervisors: req.RequiredSupervisors,
		Color:               req.Color,
		Priority:            req.Priority,
	}
	if err := s.repo.Create(ctx, zone); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to create zone")
	}

	s.record(ctx, createdBy, models.ActivityActionZoneCreate, zone.ID, "zone created: "+zone.Name)
	return zone, nil
}

// Update applies a partial zone update.
func (s *ZoneService) Update(ctx context.Context, id string, req UpdateZoneRequest, updatedBy string) (*models.Zone, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid zone payload")
	}

	zone, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "zone not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load zone")
	}

	if req.Name != nil && *req.Name != zone.Name {
		exists, err := s.repo.ExistsByName(ctx, zone.EventID, *req.Name, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to check zone name")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a zone with this name already exists on the event")
		}
		zone.Name = *req.Name
	}
	if req.RequiredAgents != nil {
		zone.RequiredAgents = *req.RequiredAgents
	}
	if req.RequiredSupervisors != nil {
		zone.RequiredSupervisors = *req.RequiredSupervisors
	}
	if req.Color != nil {
		zone.Color = req.Color
	}
	if req.Priority != nil {
		zone.Priority = *req.Priority
	}

	if err := s.repo.Update(ctx, zone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "zone not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to update zone")
	}

	s.record(ctx, updatedBy, models.ActivityActionZoneUpdate, zone.ID, "zone updated: "+zone.Name)
	return zone, nil
}

// Delete removes a zone that has no active assignments.
func (s *ZoneService) Delete(ctx context.Context, id string, deletedBy string) error {
	zone, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "zone not found")
		}
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load zone")
	}

	for _, role := range []models.AssignmentRole{models.AssignmentRolePrimary, models.AssignmentRoleBackup, models.AssignmentRoleSupervisor} {
		count, err := s.assignments.CountActiveByZone(ctx, id, role)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to count zone assignments")
		}
		if count > 0 {
			return appErrors.Clone(appErrors.ErrConflict, "zone still has active assignments")
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "zone not found")
		}
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to delete zone")
	}

	s.record(ctx, deletedBy, models.ActivityActionZoneUpdate, id, "zone deleted: "+zone.Name)
	return nil
}

func (s *ZoneService) detail(ctx context.Context, zone *models.Zone) models.ZoneDetail {
	detail := models.ZoneDetail{Zone: *zone, SupervisorIDs: zone.SupervisorIDs()}

	if s.assignments != nil {
		agents, err := s.assignments.CountActiveByZone(ctx, zone.ID, models.AssignmentRolePrimary)
		if err != nil {
			s.logger.Warn("failed to count zone agents", zap.String("zone_id", zone.ID), zap.Error(err))
		}
		supervisors, err := s.assignments.CountActiveByZone(ctx, zone.ID, models.AssignmentRoleSupervisor)
		if err != nil {
			s.logger.Warn("failed to count zone supervisors", zap.String("zone_id", zone.ID), zap.Error(err))
		}
		detail.AssignedAgents = agents
		detail.AssignedSupervisor = supervisors
	}

	return detail
}

func (s *ZoneService) record(ctx context.Context, actorID, action, entityID, description string) {
	if s.activity == nil {
		return
	}
	entry := &models.ActivityLog{
		UserID:      &actorID,
		Action:      action,
		EntityType:  "zone",
		EntityID:    &entityID,
		Description: description,
	}
	if err := s.activity.CreateActivityLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record zone activity", zap.String("zone_id", entityID), zap.Error(err))
	}
}
