package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/secuteam/gwm-api/internal/models"
	appErrors "github.com/secuteam/gwm-api/pkg/errors"
)

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type dashboardEventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
	CountByStatus(ctx context.Context) (map[models.EventStatus]int, error)
}

type dashboardAssignmentReader interface {
	CountByEventAndStatus(ctx context.Context, eventID string) (map[models.AssignmentStatus]int, error)
}

type dashboardAttendanceReader interface {
	SummaryByEvent(ctx context.Context, eventID string) (*models.AttendanceSummary, error)
}

type dashboardZoneReader interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.Zone, error)
}

// Overview aggregates platform-wide counters for the landing dashboard.
type Overview struct {
	Events      map[models.EventStatus]int `json:"events"`
	GeneratedAt time.Time                  `json:"generated_at"`
	FromCache   bool                       `json:"-"`
}

// EventBoard aggregates the staffing picture of one event.
type EventBoard struct {
	EventID     string                          `json:"event_id"`
	EventName   string                          `json:"event_name"`
	Status      models.EventStatus              `json:"status"`
	Assignments map[models.AssignmentStatus]int `json:"assignments"`
	Attendance  *models.AttendanceSummary       `json:"attendance"`
	Zones       []models.ZoneDetail             `json:"zones"`
	GeneratedAt time.Time                       `json:"generated_at"`
	FromCache   bool                            `json:"-"`
}

// DashboardService serves aggregated staffing views, cached in Redis with a
// short TTL. Staleness up to the TTL is accepted instead of wiring cache
// invalidation into every write path.
type DashboardService struct {
	cache       dashboardCache
	events      dashboardEventReader
	assignments dashboardAssignmentReader
	attendance  dashboardAttendanceReader
	zones       dashboardZoneReader
	ttl         time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewDashboardService constructs a DashboardService instance.
func NewDashboardService(cache dashboardCache, events dashboardEventReader, assignments dashboardAssignmentReader, attendance dashboardAttendanceReader, zones dashboardZoneReader, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		cache:       cache,
		events:      events,
		assignments: assignments,
		attendance:  attendance,
		zones:       zones,
		ttl:         ttl,
		logger:      logger,
		now:         time.Now,
	}
}

// GetOverview returns platform-wide event counters.
func (s *DashboardService) GetOverview(ctx context.Context) (*Overview, error) {
	const key = "dashboard:overview"

	if s.cache != nil {
		var cached Overview
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			cached.FromCache = true
			return &cached, nil
		}
	}

	counts, err := s.events.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to count events")
	}

	overview := &Overview{Events: counts, GeneratedAt: s.now().UTC()}
	s.store(ctx, key, overview)
	return overview, nil
}

// GetEventBoard returns the staffing picture of one event.
func (s *DashboardService) GetEventBoard(ctx context.Context, eventID string) (*EventBoard, error) {
	key := "dashboard:event:" + eventID

	if s.cache != nil {
		var cached EventBoard
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			cached.FromCache = true
			return &cached, nil
		}
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}

	assignmentCounts, err := s.assignments.CountByEventAndStatus(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to count assignments")
	}
	summary, err := s.attendance.SummaryByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to summarise attendance")
	}
	zones, err := s.zones.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list zones")
	}

	now := s.now()
	details := make([]models.ZoneDetail, 0, len(zones))
	for i := range zones {
		details = append(details, models.ZoneDetail{Zone: zones[i], SupervisorIDs: zones[i].SupervisorIDs()})
	}

	board := &EventBoard{
		EventID:     event.ID,
		EventName:   event.Name,
		Status:      EffectiveStatus(event, now),
		Assignments: assignmentCounts,
		Attendance:  summary,
		Zones:       details,
		GeneratedAt: now.UTC(),
	}
	s.store(ctx, key, board)
	return board, nil
}

// Invalidate drops every cached dashboard view. Called after bulk writes
// where stale aggregates would be misleading.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func (s *DashboardService) store(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("failed to cache dashboard view", zap.String("key", key), zap.Error(err))
	}
}
