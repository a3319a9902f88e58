package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/secuteam/gwm-api/internal/models"
	appErrors "github.com/secuteam/gwm-api/pkg/errors"
)

type attendanceRepository interface {
	FindByAssignment(ctx context.Context, assignmentID string) (*models.Attendance, error)
	Create(ctx context.Context, record *models.Attendance) error
	Update(ctx context.Context, record *models.Attendance) error
	ListByEvent(ctx context.Context, eventID string) ([]models.AttendanceDetail, error)
	SummaryByEvent(ctx context.Context, eventID string) (*models.AttendanceSummary, error)
}

type attendanceAssignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

// AttendanceService records agent presence against the event time window.
// Check-in opens when the staffing window opens and closes two hours after
// the check-out moment, the same grace every read path applies.
type AttendanceService struct {
	repo        attendanceRepository
	assignments attendanceAssignmentReader
	events      assignmentEventReader
	activity    activityRecorder
	logger      *zap.Logger
	now         func() time.Time
}

// NewAttendanceService constructs an AttendanceService instance.
func NewAttendanceService(repo attendanceRepository, assignments attendanceAssignmentReader, events assignmentEventReader, activity activityRecorder, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:        repo,
		assignments: assignments,
		events:      events,
		activity:    activity,
		logger:      logger,
		now:         time.Now,
	}
}

// CheckIn opens an attendance record for a confirmed assignment. Arriving
// after the check-in moment flags the record as late; arriving before the
// staffing window opens or after the grace ends is rejected.
func (s *AttendanceService) CheckIn(ctx context.Context, assignmentID, agentID string, notes *string) (*models.Attendance, error) {
	assignment, event, err := s.loadShift(ctx, assignmentID, agentID)
	if err != nil {
		return nil, err
	}

	if assignment.Status != models.AssignmentStatusConfirmed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "assignment is not confirmed")
	}

	now := s.now()
	effective := EffectiveStatus(event, now)
	if effective.Explicit() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "event is "+string(effective))
	}
	if now.Before(StaffingOpensAt(event)) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "check-in window is not open yet")
	}
	if now.After(CheckOutMoment(event).Add(checkoutGrace)) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "event is over, check-in window has closed")
	}

	if existing, err := s.repo.FindByAssignment(ctx, assignmentID); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "agent is already checked in")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to look up attendance")
	}

	record := &models.Attendance{
		AssignmentID: assignmentID,
		AgentID:      assignment.AgentID,
		EventID:      assignment.EventID,
		ZoneID:       assignment.ZoneID,
		CheckInAt:    &now,
		Late:         now.After(CheckInMoment(event)),
		Status:       models.AttendanceStatusCheckedIn,
		Notes:        notes,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to record check-in")
	}

	s.record(ctx, agentID, models.ActivityActionCheckIn, record.ID, "agent checked in")
	return record, nil
}

// CheckOut closes an open attendance record. Leaving before the check-out
// moment flags the record as having left early.
func (s *AttendanceService) CheckOut(ctx context.Context, assignmentID, agentID string, notes *string) (*models.Attendance, error) {
	_, event, err := s.loadShift(ctx, assignmentID, agentID)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.FindByAssignment(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "agent has not checked in")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to look up attendance")
	}
	if record.Status == models.AttendanceStatusCheckedOut {
		return nil, appErrors.Clone(appErrors.ErrConflict, "agent is already checked out")
	}

	now := s.now()
	record.CheckOutAt = &now
	record.LeftEarly = now.Before(CheckOutMoment(event))
	record.Status = models.AttendanceStatusCheckedOut
	if notes != nil {
		record.Notes = notes
	}

	if err := s.repo.Update(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to record check-out")
	}

	s.record(ctx, agentID, models.ActivityActionCheckOut, record.ID, "agent checked out")
	return record, nil
}

// ListByEvent returns the attendance roster of an event.
func (s *AttendanceService) ListByEvent(ctx context.Context, eventID string) ([]models.AttendanceDetail, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load event")
	}
	rows, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list attendance")
	}
	return rows, nil
}

// SummaryByEvent aggregates presence counts for an event.
func (s *AttendanceService) SummaryByEvent(ctx context.Context, eventID string) (*models.AttendanceSummary, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load event")
	}
	summary, err := s.repo.SummaryByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to summarise attendance")
	}
	if summary.Expected > 0 {
		summary.Rate = float64(summary.CheckedIn) / float64(summary.Expected)
	}
	return summary, nil
}

func (s *AttendanceService) loadShift(ctx context.Context, assignmentID, agentID string) (*models.Assignment, *models.Event, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load assignment")
	}
	if assignment.AgentID != agentID {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}

	event, err := s.events.FindByID(ctx, assignment.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load event")
	}

	return assignment, event, nil
}

func (s *AttendanceService) record(ctx context.Context, actorID, action, entityID, description string) {
	if s.activity == nil {
		return
	}
	entry := &models.ActivityLog{
		UserID:      &actorID,
		Action:      action,
		EntityType:  "attendance",
		EntityID:    &entityID,
		Description: description,
	}
	if err := s.activity.CreateActivityLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record attendance activity", zap.String("attendance_id", entityID), zap.Error(err))
	}
}
