package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secuteam/gwm-api/internal/models"
	appErrors "github.com/secuteam/gwm-api/pkg/errors"
)

type mockDashboardCache struct {
	entries map[string][]byte
	deleted []string
}

func newMockDashboardCache() *mockDashboardCache {
	return &mockDashboardCache{entries: map[string][]byte{}}
}

func (m *mockDashboardCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockDashboardCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *mockDashboardCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	for k := range m.entries {
		delete(m.entries, k)
	}
	return nil
}

type mockDashboardEvents struct {
	counts map[models.EventStatus]int
	calls  int
}

func (m *mockDashboardEvents) FindByID(ctx context.Context, id string) (*models.Event, error) {
	return &models.Event{ID: id, Name: "Festival", Status: models.EventStatusScheduled,
		StartDate: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)}, nil
}

func (m *mockDashboardEvents) CountByStatus(ctx context.Context) (map[models.EventStatus]int, error) {
	m.calls++
	return m.counts, nil
}

type mockDashboardAssignments struct{}

func (m *mockDashboardAssignments) CountByEventAndStatus(ctx context.Context, eventID string) (map[models.AssignmentStatus]int, error) {
	return map[models.AssignmentStatus]int{models.AssignmentStatusPending: 3, models.AssignmentStatusConfirmed: 7}, nil
}

type mockDashboardAttendance struct{}

func (m *mockDashboardAttendance) SummaryByEvent(ctx context.Context, eventID string) (*models.AttendanceSummary, error) {
	return &models.AttendanceSummary{Expected: 10, CheckedIn: 7}, nil
}

type mockDashboardZones struct{}

func (m *mockDashboardZones) ListByEvent(ctx context.Context, eventID string) ([]models.Zone, error) {
	raw := `["sup-1","sup-2"]`
	return []models.Zone{{ID: "zone-1", EventID: eventID, Name: "Nord", RawSupervisors: &raw}}, nil
}

func newTestDashboardService(cache *mockDashboardCache, events *mockDashboardEvents) *DashboardService {
	return NewDashboardService(cache, events, &mockDashboardAssignments{}, &mockDashboardAttendance{}, &mockDashboardZones{}, time.Minute, nil)
}

func TestDashboardOverviewCachesResult(t *testing.T) {
	cache := newMockDashboardCache()
	events := &mockDashboardEvents{counts: map[models.EventStatus]int{models.EventStatusScheduled: 4}}
	svc := newTestDashboardService(cache, events)

	first, err := svc.GetOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, first.Events[models.EventStatusScheduled])

	second, err := svc.GetOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Events, second.Events)
	assert.Equal(t, 1, events.calls)
}

func TestDashboardEventBoardAggregates(t *testing.T) {
	cache := newMockDashboardCache()
	svc := newTestDashboardService(cache, &mockDashboardEvents{})

	board, err := svc.GetEventBoard(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Equal(t, "Festival", board.EventName)
	assert.Equal(t, 3, board.Assignments[models.AssignmentStatusPending])
	assert.Equal(t, 7, board.Attendance.CheckedIn)
	require.Len(t, board.Zones, 1)
	assert.Equal(t, []string{"sup-1", "sup-2"}, board.Zones[0].SupervisorIDs)
}

func TestDashboardInvalidateDropsCache(t *testing.T) {
	cache := newMockDashboardCache()
	events := &mockDashboardEvents{counts: map[models.EventStatus]int{}}
	svc := newTestDashboardService(cache, events)

	_, err := svc.GetOverview(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, cache.entries)

	svc.Invalidate(context.Background())
	assert.Empty(t, cache.entries)
	assert.Contains(t, cache.deleted, "dashboard:*")
}
