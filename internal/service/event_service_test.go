package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secuteam/gwm-api/internal/models"
	appErrors "github.com/secuteam/gwm-api/pkg/errors"
)

type mockEventRepo struct {
	events        map[string]*models.Event
	statusUpdates map[string]models.EventStatus
	statusErr     error
}

func newMockEventRepo(events ...*models.Event) *mockEventRepo {
	repo := &mockEventRepo{events: map[string]*models.Event{}, statusUpdates: map[string]models.EventStatus{}}
	for _, e := range events {
		repo.events[e.ID] = e
	}
	return repo
}

func (m *mockEventRepo) FindByID(ctx context.Context, id string) (*models.Event, error) {
	if e, ok := m.events[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEventRepo) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	var out []models.Event
	for _, e := range m.events {
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.Event) error {
	event.ID = "event-new"
	m.events[event.ID] = event
	return nil
}

func (m *mockEventRepo) Update(ctx context.Context, event *models.Event) error {
	if _, ok := m.events[event.ID]; !ok {
		return sql.ErrNoRows
	}
	m.events[event.ID] = event
	return nil
}

func (m *mockEventRepo) UpdateStatus(ctx context.Context, id string, status models.EventStatus) error {
	if m.statusErr != nil {
		return m.statusErr
	}
	e, ok := m.events[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Status = status
	m.statusUpdates[id] = status
	return nil
}

func (m *mockEventRepo) CountByStatus(ctx context.Context) (map[models.EventStatus]int, error) {
	counts := map[models.EventStatus]int{}
	for _, e := range m.events {
		counts[e.Status]++
	}
	return counts, nil
}

func pastEvent(id string) *models.Event {
	return &models.Event{
		ID:        id,
		Name:      "Concert",
		StartDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:    models.EventStatusScheduled,
	}
}

func TestEventGetMaterialisesCompletedStatus(t *testing.T) {
	repo := newMockEventRepo(pastEvent("event-1"))
	svc := NewEventService(repo, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC) }

	got, err := svc.Get(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusCompleted, got.EffectiveStatus)
	assert.Equal(t, models.EventStatusCompleted, repo.statusUpdates["event-1"])
}

func TestEventGetDoesNotMaterialiseActiveEvent(t *testing.T) {
	event := pastEvent("event-1")
	repo := newMockEventRepo(event)
	svc := NewEventService(repo, nil, nil, nil)
	// mid-window: default window covers the whole end date plus grace
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	got, err := svc.Get(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusActive, got.EffectiveStatus)
	assert.Empty(t, repo.statusUpdates)
}

func TestEventGetExplicitStatusWins(t *testing.T) {
	event := pastEvent("event-1")
	event.Status = models.EventStatusCancelled
	repo := newMockEventRepo(event)
	svc := NewEventService(repo, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC) }

	got, err := svc.Get(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusCancelled, got.EffectiveStatus)
	assert.Empty(t, repo.statusUpdates)
}

func TestEventGetMaterialisationFailureStillServesDerivedStatus(t *testing.T) {
	repo := newMockEventRepo(pastEvent("event-1"))
	repo.statusErr = assert.AnError
	svc := NewEventService(repo, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC) }

	got, err := svc.Get(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusCompleted, got.EffectiveStatus)
}

func TestEventCreateRejectsInvertedDates(t *testing.T) {
	svc := NewEventService(newMockEventRepo(), nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateEventRequest{
		Name:      "Concert",
		StartDate: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}, "admin-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestEventUpdateRejectsFrozenEvent(t *testing.T) {
	event := pastEvent("event-1")
	event.Status = models.EventStatusTerminated
	svc := NewEventService(newMockEventRepo(event), nil, nil, nil)

	name := "Renamed"
	_, err := svc.Update(context.Background(), "event-1", UpdateEventRequest{Name: &name}, "admin-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestEventSetStatusValidatesTransition(t *testing.T) {
	svc := NewEventService(newMockEventRepo(pastEvent("event-1")), nil, nil, nil)

	err := svc.SetStatus(context.Background(), "event-1", models.EventStatusActive, "admin-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	require.NoError(t, svc.SetStatus(context.Background(), "event-1", models.EventStatusCancelled, "admin-1"))
}
