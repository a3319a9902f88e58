package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/secuteam/gwm-api/internal/models"
	appErrors "github.com/secuteam/gwm-api/pkg/errors"
)

type eventRepository interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	UpdateStatus(ctx context.Context, id string, status models.EventStatus) error
	CountByStatus(ctx context.Context) (map[models.EventStatus]int, error)
}

// CreateEventRequest is the payload for scheduling an event.
type CreateEventRequest struct {
	Name                string    `json:"name" validate:"required"`
	Description         *string   `json:"description"`
	Location            *string   `json:"location"`
	StartDate           time.Time `json:"start_date" validate:"required"`
	EndDate             time.Time `json:"end_date" validate:"required"`
	CheckInTime         *string   `json:"check_in_time"`
	CheckOutTime        *string   `json:"check_out_time"`
	AgentCreationBuffer *int      `json:"agent_creation_buffer" validate:"omitempty,min=0"`
}

// UpdateEventRequest carries mutable event fields.
type UpdateEventRequest struct {
	Name                *string    `json:"name"`
	Description         *string    `json:"description"`
	Location            *string    `json:"location"`
	StartDate           *time.Time `json:"start_date"`
	EndDate             *time.Time `json:"end_date"`
	CheckInTime         *string    `json:"check_in_time"`
	CheckOutTime        *string    `json:"check_out_time"`
	AgentCreationBuffer *int       `json:"agent_creation_buffer" validate:"omitempty,min=0"`
}

// EventService manages guarded events and derives their effective status
// from the configured check-in/check-out window.
type EventService struct {
	repo      eventRepository
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEventService constructs an EventService instance.
func NewEventService(repo eventRepository, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{repo: repo, activity: activity, validator: validate, logger: logger, now: time.Now}
}

// Get returns one event decorated with its derived status. A scheduled or
// active event whose window has fully elapsed is lazily persisted as
// completed: there is no background sweeper, read paths materialise the
// transition when they observe it.
func (s *EventService) Get(ctx context.Context, id string) (*models.EventWithStatus, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load event")
	}

	decorated := s.decorate(ctx, event)
	return &decorated, nil
}

// List returns a filtered page of events, each with its derived status.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.EventWithStatus, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list events")
	}

	decorated := make([]models.EventWithStatus, 0, len(events))
	for i := range events {
		decorated = append(decorated, s.decorate(ctx, &events[i]))
	}

	return decorated, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Create schedules a new event.
func (s *EventService) Create(ctx context.Context, req CreateEventRequest, createdBy string) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must not precede start date")
	}

	event := &models.Event{
		Name:                req.Name,
		Description:         req.Description,
		Location:            req.Location,
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
		CheckInTime:         req.CheckInTime,
		CheckOutTime:        req.CheckOutTime,
		Status:              models.EventStatusScheduled,
		AgentCreationBuffer: req.AgentCreationBuffer,
		CreatedBy:           createdBy,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to create event")
	}

	s.record(ctx, createdBy, models.ActivityActionEventCreate, event.ID, "event scheduled: "+event.Name)
	return event, nil
}

// Update applies a partial event update. Cancelled and terminated events
// are frozen.
func (s *EventService) Update(ctx context.Context, id string, req UpdateEventRequest, updatedBy string) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}

	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load event")
	}
	if event.Status.Explicit() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "event is "+string(event.Status)+" and can no longer be modified")
	}

	if req.Name != nil {
		event.Name = *req.Name
	}
	if req.Description != nil {
		event.Description = req.Description
	}
	if req.Location != nil {
		event.Location = req.Location
	}
	if req.StartDate != nil {
		event.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		event.EndDate = *req.EndDate
	}
	if req.CheckInTime != nil {
		event.CheckInTime = req.CheckInTime
	}
	if req.CheckOutTime != nil {
		event.CheckOutTime = req.CheckOutTime
	}
	if req.AgentCreationBuffer != nil {
		event.AgentCreationBuffer = req.AgentCreationBuffer
	}
	if event.EndDate.Before(event.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must not precede start date")
	}

	if err := s.repo.Update(ctx, event); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to update event")
	}

	s.record(ctx, updatedBy, models.ActivityActionEventUpdate, event.ID, "event updated: "+event.Name)
	return event, nil
}

// SetStatus applies an explicit operator transition (cancel, terminate, or
// reopen to scheduled). Explicit statuses always win over the computed
// window.
func (s *EventService) SetStatus(ctx context.Context, id string, status models.EventStatus, changedBy string) error {
	switch status {
	case models.EventStatusCancelled, models.EventStatusTerminated, models.EventStatusScheduled:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "status must be cancelled, terminated or scheduled")
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to update event status")
	}

	action := models.ActivityActionEventUpdate
	if status == models.EventStatusCancelled {
		action = models.ActivityActionEventCancel
	}
	s.record(ctx, changedBy, action, id, "event status set to "+string(status))
	return nil
}

func (s *EventService) decorate(ctx context.Context, event *models.Event) models.EventWithStatus {
	effective := EffectiveStatus(event, s.now())

	if effective == models.EventStatusCompleted && event.Status != models.EventStatusCompleted {
		if err := s.repo.UpdateStatus(ctx, event.ID, models.EventStatusCompleted); err != nil {
			// derived status still served; the write retries on the next read
			s.logger.Warn("failed to materialise completed event", zap.String("event_id", event.ID), zap.Error(err))
		} else {
			event.Status = models.EventStatusCompleted
		}
	}

	return models.EventWithStatus{Event: *event, EffectiveStatus: effective}
}

func (s *EventService) record(ctx context.Context, actorID, action, entityID, description string) {
	if s.activity == nil {
		return
	}
	entry := &models.ActivityLog{
		UserID:      &actorID,
		Action:      action,
		EntityType:  "event",
		EntityID:    &entityID,
		Description: description,
	}
	if err := s.activity.CreateActivityLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record event activity", zap.String("event_id", entityID), zap.Error(err))
	}
}
