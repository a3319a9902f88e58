package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secuteam/gwm-api/internal/models"
)

type zoneRepoStub struct {
	mu    sync.Mutex
	zones map[string]*models.Zone
}

func newZoneRepoStub(zones ...*models.Zone) *zoneRepoStub {
	stub := &zoneRepoStub{zones: make(map[string]*models.Zone)}
	for _, zone := range zones {
		stub.zones[zone.ID] = zone
	}
	return stub
}

func (s *zoneRepoStub) FindByID(ctx context.Context, id string) (*models.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	zone, ok := s.zones[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *zone
	return &cp, nil
}

func (s *zoneRepoStub) UpdateSupervisors(ctx context.Context, zoneID string, supervisors *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	zone, ok := s.zones[zoneID]
	if !ok {
		return sql.ErrNoRows
	}
	zone.RawSupervisors = supervisors
	return nil
}

func rawJSON(s string) *string { return &s }

func TestZoneSupervisorAddIdempotent(t *testing.T) {
	repo := newZoneRepoStub(&models.Zone{ID: "zone-1", EventID: "event-1", Name: "Scène"})
	svc := NewZoneSupervisorService(repo, nil)

	outcome, ids, err := svc.Add(context.Background(), "sup-1", "zone-1")
	require.NoError(t, err)
	assert.Equal(t, SupervisorAdded, outcome)
	assert.Equal(t, []string{"sup-1"}, ids)

	outcome, ids, err = svc.Add(context.Background(), "sup-1", "zone-1")
	require.NoError(t, err)
	assert.Equal(t, SupervisorAlreadyAssigned, outcome)
	assert.Equal(t, []string{"sup-1"}, ids)
}

func TestZoneSupervisorRemoveIdempotent(t *testing.T) {
	repo := newZoneRepoStub(&models.Zone{
		ID:             "zone-1",
		EventID:        "event-1",
		Name:           "Scène",
		RawSupervisors: rawJSON(`["sup-1","sup-2"]`),
	})
	svc := NewZoneSupervisorService(repo, nil)

	outcome, ids, err := svc.Remove(context.Background(), "sup-1", "zone-1")
	require.NoError(t, err)
	assert.Equal(t, SupervisorRemoved, outcome)
	assert.Equal(t, []string{"sup-2"}, ids)

	outcome, ids, err = svc.Remove(context.Background(), "sup-1", "zone-1")
	require.NoError(t, err)
	assert.Equal(t, SupervisorNotPresent, outcome)
	assert.Equal(t, []string{"sup-2"}, ids)
}

func TestZoneSupervisorRemoveLastNullsColumn(t *testing.T) {
	repo := newZoneRepoStub(&models.Zone{
		ID:             "zone-1",
		EventID:        "event-1",
		Name:           "Scène",
		RawSupervisors: rawJSON(`["sup-1"]`),
	})
	svc := NewZoneSupervisorService(repo, nil)

	outcome, ids, err := svc.Remove(context.Background(), "sup-1", "zone-1")
	require.NoError(t, err)
	assert.Equal(t, SupervisorRemoved, outcome)
	assert.Empty(t, ids)
	assert.Nil(t, repo.zones["zone-1"].RawSupervisors)
}

func TestZoneSupervisorLegacyEncodings(t *testing.T) {
	encodings := []*string{
		rawJSON(`["sup-9","sup-1"]`),
		rawJSON(`{"0":"sup-1","1":"sup-9"}`),
		rawJSON(`"[\"sup-1\",\"sup-9\"]"`),
		nil,
		rawJSON(`{not json`),
	}

	for _, raw := range encodings {
		repo := newZoneRepoStub(&models.Zone{ID: "zone-1", EventID: "event-1", Name: "Scène", RawSupervisors: raw})
		svc := NewZoneSupervisorService(repo, nil)

		_, _, err := svc.Add(context.Background(), "sup-2", "zone-1")
		require.NoError(t, err)

		zone := repo.zones["zone-1"]
		ids := zone.SupervisorIDs()
		assert.Contains(t, ids, "sup-2")
		// the persisted form is always a clean JSON array regardless of
		// the legacy shape it was read from
		assert.Equal(t, ids, models.DecodeSupervisorSet([]byte(*zone.RawSupervisors)))
	}
}

func TestZoneSupervisorZoneMissing(t *testing.T) {
	svc := NewZoneSupervisorService(newZoneRepoStub(), nil)

	_, _, err := svc.Add(context.Background(), "sup-1", "zone-missing")
	require.Error(t, err)

	_, _, err = svc.Remove(context.Background(), "sup-1", "zone-missing")
	require.Error(t, err)
}

func TestZoneSupervisorConcurrentAdds(t *testing.T) {
	repo := newZoneRepoStub(&models.Zone{ID: "zone-1", EventID: "event-1", Name: "Scène"})
	svc := NewZoneSupervisorService(repo, nil)

	var wg sync.WaitGroup
	supervisors := []string{"sup-1", "sup-2", "sup-3", "sup-4", "sup-5"}
	for _, id := range supervisors {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _, err := svc.Add(context.Background(), id, "zone-1")
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	ids := repo.zones["zone-1"].SupervisorIDs()
	assert.Len(t, ids, len(supervisors))
	for _, id := range supervisors {
		assert.Contains(t, ids, id)
	}
}
