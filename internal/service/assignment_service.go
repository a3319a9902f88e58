package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/secuteam/gwm-api/internal/models"
	"github.com/secuteam/gwm-api/internal/repository"
	appErrors "github.com/secuteam/gwm-api/pkg/errors"
)

type assignmentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	FindByTriple(ctx context.Context, agentID, eventID string, zoneID *string) (*models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	UpdateStatus(ctx context.Context, id string, status models.AssignmentStatus, confirmedAt *time.Time) error
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) error
	BulkConfirmByEvent(ctx context.Context, eventID string, roles []models.AssignmentRole, confirmedAt time.Time) ([]models.Assignment, error)
	MarkNotificationSent(ctx context.Context, id string, sentAt time.Time) error
	ListByEvent(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error)
	ListByAgent(ctx context.Context, agentID string) ([]models.AssignmentDetail, error)
}

type assignmentUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type assignmentEventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

type assignmentZoneReader interface {
	FindByIDAndEvent(ctx context.Context, id, eventID string) (*models.Zone, error)
}

type supervisorRoster interface {
	Add(ctx context.Context, supervisorID, zoneID string) (SupervisorSetOutcome, []string, error)
	Remove(ctx context.Context, supervisorID, zoneID string) (SupervisorSetOutcome, []string, error)
}

type assignmentNotifier interface {
	Dispatch(ctx context.Context, notification *models.Notification) error
}

type activityRecorder interface {
	CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error
}

// RequestAssignmentRequest describes a staffing request.
type RequestAssignmentRequest struct {
	AgentID     string  `json:"agent_id" validate:"required"`
	EventID     string  `json:"event_id" validate:"required"`
	ZoneID      *string `json:"zone_id"`
	Role        string  `json:"role"`
	Notes       *string `json:"notes"`
	RequestedBy string  `json:"requested_by" validate:"required"`
}

// BulkConfirmRequest describes a bulk confirmation over one event.
type BulkConfirmRequest struct {
	EventID            string  `json:"event_id" validate:"required"`
	Role               *string `json:"role"`
	ConfirmAgents      bool    `json:"confirm_agents"`
	ConfirmSupervisors bool    `json:"confirm_supervisors"`
}

// BulkConfirmResult reports the outcome of a bulk confirmation.
type BulkConfirmResult struct {
	Confirmed   int                 `json:"confirmed"`
	Assignments []models.Assignment `json:"assignments"`
}

// AssignmentService governs the lifecycle of agent-to-event bindings:
// create, restore, reassign, reject. It enforces exactly one active
// assignment per (agent, event, zone) triple, reusing soft-deleted rows
// instead of violating the unique index.
type AssignmentService struct {
	assignments assignmentRepo
	users       assignmentUserReader
	events      assignmentEventReader
	zones       assignmentZoneReader
	roster      supervisorRoster
	notifier    assignmentNotifier
	activity    activityRecorder
	validator   *validator.Validate
	logger      *zap.Logger

	// detachSupervisorOnDelete resolves the historical asymmetry where
	// zone rosters kept supervisors whose assignment had been deleted.
	// The default keeps the roster untouched on delete.
	detachSupervisorOnDelete bool
}

// NewAssignmentService creates a service instance.
func NewAssignmentService(
	assignments assignmentRepo,
	users assignmentUserReader,
	events assignmentEventReader,
	zones assignmentZoneReader,
	roster supervisorRoster,
	notifier assignmentNotifier,
	activity activityRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
	detachSupervisorOnDelete bool,
) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		assignments:              assignments,
		users:                    users,
		events:                   events,
		zones:                    zones,
		roster:                   roster,
		notifier:                 notifier,
		activity:                 activity,
		validator:                validate,
		logger:                   logger,
		detachSupervisorOnDelete: detachSupervisorOnDelete,
	}
}

// Request assigns an agent or supervisor to an event, optionally scoped to
// a zone. Depending on what already occupies the (agent, event, zone)
// triple the call creates a new row, restores a soft-deleted one, reassigns
// a cancelled/declined one, or rejects with a conflict.
func (s *AssignmentService) Request(ctx context.Context, req RequestAssignmentRequest) (*models.AssignmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	role := models.AssignmentRole(req.Role)
	if req.Role == "" {
		role = models.AssignmentRolePrimary
	}
	if !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown assignment role %q", req.Role))
	}

	agent, err := s.users.FindByID(ctx, req.AgentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "agent not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load agent")
	}

	if !role.CompatibleWith(agent.Role) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("role %s is not compatible with a %s account", role, agent.Role))
	}

	if !agent.IsActive() {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "agent account is inactive")
	}

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load event")
	}

	var zone *models.Zone
	if req.ZoneID != nil && *req.ZoneID != "" {
		zone, err = s.zones.FindByIDAndEvent(ctx, *req.ZoneID, event.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "zone not found for this event")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load zone")
		}
	} else {
		req.ZoneID = nil
	}

	existing, err := s.assignments.FindByTriple(ctx, req.AgentID, req.EventID, req.ZoneID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to look up existing assignment")
	}

	switch {
	case existing == nil:
		return s.createAssignment(ctx, req, role, agent, event, zone)
	case existing.Deleted():
		return s.reuseAssignment(ctx, existing, req, role, agent, event, zone, models.AssignmentOutcomeRestored)
	case existing.Status.Active():
		return nil, s.conflictError(existing.Status, zone)
	default:
		return s.reuseAssignment(ctx, existing, req, role, agent, event, zone, models.AssignmentOutcomeReassigned)
	}
}

func (s *AssignmentService) createAssignment(ctx context.Context, req RequestAssignmentRequest, role models.AssignmentRole, agent *models.User, event *models.Event, zone *models.Zone) (*models.AssignmentResult, error) {
	assignment := &models.Assignment{
		AgentID:    req.AgentID,
		EventID:    req.EventID,
		ZoneID:     req.ZoneID,
		Role:       role,
		Status:     models.AssignmentStatusPending,
		Notes:      req.Notes,
		AssignedBy: req.RequestedBy,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		if errors.Is(err, repository.ErrDuplicateAssignment) {
			// lost the race with a concurrent request for the same
			// triple; surface the same conflict the precondition check
			// would have produced
			return nil, s.conflictError(models.AssignmentStatusPending, zone)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to create assignment")
	}

	s.afterWrite(ctx, assignment, agent, event, zone, models.AssignmentOutcomeCreated, req.RequestedBy)

	return &models.AssignmentResult{
		Outcome:    models.AssignmentOutcomeCreated,
		Assignment: assignment,
		Message:    s.outcomeMessage(models.AssignmentOutcomeCreated, agent, zone),
	}, nil
}

// reuseAssignment covers both the restore branch (soft-deleted row) and the
// reassign branch (cancelled/declined row): the row is reset to a fresh
// pending assignment, clearing any soft-delete marker.
func (s *AssignmentService) reuseAssignment(ctx context.Context, existing *models.Assignment, req RequestAssignmentRequest, role models.AssignmentRole, agent *models.User, event *models.Event, zone *models.Zone, outcome models.AssignmentOutcome) (*models.AssignmentResult, error) {
	existing.ZoneID = req.ZoneID
	existing.Role = role
	existing.Status = models.AssignmentStatusPending
	existing.Notes = req.Notes
	existing.AssignedBy = req.RequestedBy
	existing.ConfirmedAt = nil
	existing.NotificationSent = false
	existing.NotificationSentAt = nil

	if err := s.assignments.Update(ctx, existing); err != nil {
		if errors.Is(err, repository.ErrDuplicateAssignment) {
			return nil, s.conflictError(models.AssignmentStatusPending, zone)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to update assignment")
	}

	s.afterWrite(ctx, existing, agent, event, zone, outcome, req.RequestedBy)

	return &models.AssignmentResult{
		Outcome:    outcome,
		Assignment: existing,
		Message:    s.outcomeMessage(outcome, agent, zone),
	}, nil
}

// afterWrite runs the side effects shared by every successful lifecycle
// write: supervisor roster registration, activity log and notification.
// All three are best-effort and never fail the primary operation.
func (s *AssignmentService) afterWrite(ctx context.Context, assignment *models.Assignment, agent *models.User, event *models.Event, zone *models.Zone, outcome models.AssignmentOutcome, actorID string) {
	if assignment.Role == models.AssignmentRoleSupervisor && assignment.ZoneID != nil && s.roster != nil {
		if _, _, err := s.roster.Add(ctx, assignment.AgentID, *assignment.ZoneID); err != nil {
			s.logger.Warn("failed to register supervisor on zone roster",
				zap.String("assignment_id", assignment.ID),
				zap.String("zone_id", *assignment.ZoneID),
				zap.Error(err))
		}
	}

	s.recordActivity(ctx, actorID, assignment, outcome)
	s.dispatchAssignmentNotification(ctx, assignment, agent, event, zone, outcome)
}

func (s *AssignmentService) recordActivity(ctx context.Context, actorID string, assignment *models.Assignment, outcome models.AssignmentOutcome) {
	if s.activity == nil {
		return
	}
	action := models.ActivityActionAssignmentCreate
	if outcome != models.AssignmentOutcomeCreated {
		action = models.ActivityActionAssignmentUpdate
	}
	newValues, _ := json.Marshal(assignment)
	entry := &models.ActivityLog{
		UserID:      &actorID,
		Action:      action,
		EntityType:  "assignment",
		EntityID:    &assignment.ID,
		Description: fmt.Sprintf("assignment %s for agent %s on event %s", outcome, assignment.AgentID, assignment.EventID),
		NewValues:   newValues,
	}
	if err := s.activity.CreateActivityLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record assignment activity", zap.String("assignment_id", assignment.ID), zap.Error(err))
	}
}

func (s *AssignmentService) dispatchAssignmentNotification(ctx context.Context, assignment *models.Assignment, agent *models.User, event *models.Event, zone *models.Zone, outcome models.AssignmentOutcome) {
	if s.notifier == nil {
		return
	}

	notifType := models.NotificationTypeAssignment
	title := "Nouvelle affectation"
	if outcome != models.AssignmentOutcomeCreated {
		notifType = models.NotificationTypeAssignmentUpdate
		title = "Affectation mise à jour"
	}
	message := fmt.Sprintf("Vous êtes affecté à l'événement %s", event.Name)
	if zone != nil {
		message = fmt.Sprintf("Vous êtes affecté à la zone %s de l'événement %s", zone.Name, event.Name)
	}

	notification := &models.Notification{
		UserID:       agent.ID,
		Type:         notifType,
		Title:        title,
		Message:      message,
		EventID:      &event.ID,
		AssignmentID: &assignment.ID,
	}
	if err := s.notifier.Dispatch(ctx, notification); err != nil {
		s.logger.Warn("assignment notification dispatch failed",
			zap.String("assignment_id", assignment.ID), zap.Error(err))
		return
	}

	now := time.Now().UTC()
	if err := s.assignments.MarkNotificationSent(ctx, assignment.ID, now); err != nil {
		s.logger.Warn("failed to flag assignment notification", zap.String("assignment_id", assignment.ID), zap.Error(err))
		return
	}
	assignment.NotificationSent = true
	assignment.NotificationSentAt = &now
}

func (s *AssignmentService) conflictError(status models.AssignmentStatus, zone *models.Zone) error {
	if zone != nil {
		return appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("Cet agent a déjà une affectation %s sur la zone %s. Résolvez l'affectation existante avant de réaffecter.", status.Label(), zone.Name))
	}
	return appErrors.Clone(appErrors.ErrConflict,
		fmt.Sprintf("Cet agent a déjà une affectation %s sur cet événement. Résolvez l'affectation existante avant de réaffecter.", status.Label()))
}

func (s *AssignmentService) outcomeMessage(outcome models.AssignmentOutcome, agent *models.User, zone *models.Zone) string {
	target := "l'événement"
	if zone != nil {
		target = fmt.Sprintf("la zone %s", zone.Name)
	}
	switch outcome {
	case models.AssignmentOutcomeRestored:
		return fmt.Sprintf("Affectation de %s restaurée sur %s", agent.FullName(), target)
	case models.AssignmentOutcomeReassigned:
		return fmt.Sprintf("%s réaffecté sur %s", agent.FullName(), target)
	default:
		return fmt.Sprintf("%s affecté sur %s", agent.FullName(), target)
	}
}

// Respond lets an agent confirm or decline a pending assignment.
func (s *AssignmentService) Respond(ctx context.Context, assignmentID, agentID string, response models.AssignmentStatus) (*models.Assignment, error) {
	if response != models.AssignmentStatusConfirmed && response != models.AssignmentStatusDeclined {
		return nil, appErrors.Clone(appErrors.ErrValidation, "response must be confirmed or declined")
	}

	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load assignment")
	}
	if assignment.AgentID != agentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	if assignment.Status != models.AssignmentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("assignment is already %s", assignment.Status.Label()))
	}

	var confirmedAt *time.Time
	if response == models.AssignmentStatusConfirmed {
		now := time.Now().UTC()
		confirmedAt = &now
	}
	if err := s.assignments.UpdateStatus(ctx, assignmentID, response, confirmedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to update assignment")
	}

	assignment.Status = response
	assignment.ConfirmedAt = confirmedAt
	return assignment, nil
}

// BulkConfirmByEvent confirms every pending assignment on the event whose
// role matches the request, as one batch statement, then dispatches
// notifications per affected row. Notification failures are independent
// and never roll the confirmation back.
func (s *AssignmentService) BulkConfirmByEvent(ctx context.Context, req BulkConfirmRequest) (*BulkConfirmResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk confirm payload")
	}

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load event")
	}

	roles, err := resolveBulkRoles(req)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return &BulkConfirmResult{}, nil
	}

	now := time.Now().UTC()
	confirmed, err := s.assignments.BulkConfirmByEvent(ctx, event.ID, roles, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to confirm assignments")
	}

	for i := range confirmed {
		assignment := &confirmed[i]
		if s.notifier == nil {
			continue
		}
		notification := &models.Notification{
			UserID:       assignment.AgentID,
			Type:         models.NotificationTypeAssignmentConfirm,
			Title:        "Affectation confirmée",
			Message:      fmt.Sprintf("Votre affectation sur l'événement %s est confirmée", event.Name),
			EventID:      &event.ID,
			AssignmentID: &assignment.ID,
		}
		if err := s.notifier.Dispatch(ctx, notification); err != nil {
			s.logger.Warn("bulk confirm notification failed",
				zap.String("assignment_id", assignment.ID), zap.Error(err))
		}
	}

	return &BulkConfirmResult{Confirmed: len(confirmed), Assignments: confirmed}, nil
}

func resolveBulkRoles(req BulkConfirmRequest) ([]models.AssignmentRole, error) {
	if req.Role != nil && *req.Role != "" {
		role := models.AssignmentRole(*req.Role)
		if !role.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown assignment role %q", *req.Role))
		}
		return []models.AssignmentRole{role}, nil
	}
	var roles []models.AssignmentRole
	if req.ConfirmAgents {
		roles = append(roles, models.AssignmentRolePrimary, models.AssignmentRoleBackup)
	}
	if req.ConfirmSupervisors {
		roles = append(roles, models.AssignmentRoleSupervisor)
	}
	return roles, nil
}

// Delete soft-deletes an assignment. Whether a supervisor assignment also
// leaves the zone roster is an explicit policy: the configured default can
// be overridden per call with detachSupervisor.
func (s *AssignmentService) Delete(ctx context.Context, assignmentID, deletedBy string, detachSupervisor *bool) error {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load assignment")
	}

	if err := s.assignments.SoftDelete(ctx, assignmentID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to delete assignment")
	}

	detach := s.detachSupervisorOnDelete
	if detachSupervisor != nil {
		detach = *detachSupervisor
	}
	if detach && assignment.Role == models.AssignmentRoleSupervisor && assignment.ZoneID != nil && s.roster != nil {
		if _, _, err := s.roster.Remove(ctx, assignment.AgentID, *assignment.ZoneID); err != nil {
			s.logger.Warn("failed to detach supervisor from zone roster",
				zap.String("assignment_id", assignment.ID),
				zap.String("zone_id", *assignment.ZoneID),
				zap.Error(err))
		}
	}

	if s.activity != nil {
		oldValues, _ := json.Marshal(assignment)
		entry := &models.ActivityLog{
			UserID:      &deletedBy,
			Action:      models.ActivityActionAssignmentDelete,
			EntityType:  "assignment",
			EntityID:    &assignment.ID,
			Description: fmt.Sprintf("assignment deleted for agent %s on event %s", assignment.AgentID, assignment.EventID),
			OldValues:   oldValues,
		}
		if err := s.activity.CreateActivityLog(ctx, entry); err != nil {
			s.logger.Warn("failed to record assignment deletion", zap.String("assignment_id", assignment.ID), zap.Error(err))
		}
	}

	return nil
}

// ListByEvent returns the active roster of an event.
func (s *AssignmentService) ListByEvent(ctx context.Context, eventID string) ([]models.AssignmentDetail, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load event")
	}
	rows, err := s.assignments.ListByEvent(ctx, models.AssignmentFilter{EventID: eventID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list assignments")
	}
	return rows, nil
}

// ListByAgent returns an agent's active assignments.
func (s *AssignmentService) ListByAgent(ctx context.Context, agentID string) ([]models.AssignmentDetail, error) {
	if _, err := s.users.FindByID(ctx, agentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "agent not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load agent")
	}
	rows, err := s.assignments.ListByAgent(ctx, agentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list assignments")
	}
	return rows, nil
}
