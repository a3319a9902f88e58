package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/secuteam/gwm-api/internal/models"
	appErrors "github.com/secuteam/gwm-api/pkg/errors"
)

type zoneSupervisorRepo interface {
	FindByID(ctx context.Context, id string) (*models.Zone, error)
	UpdateSupervisors(ctx context.Context, zoneID string, supervisors *string) error
}

// SupervisorSetOutcome reports what a roster mutation actually did. Both
// operations are idempotent, so the no-op outcomes are normal results, not
// errors.
type SupervisorSetOutcome string

const (
	SupervisorAdded           SupervisorSetOutcome = "added"
	SupervisorAlreadyAssigned SupervisorSetOutcome = "already_assigned"
	SupervisorRemoved         SupervisorSetOutcome = "removed"
	SupervisorNotPresent      SupervisorSetOutcome = "not_present"
)

// ZoneSupervisorService maintains the denormalized supervisor roster cached
// on each zone row. The column is read-modify-written, so mutations on the
// same zone are serialized through a per-zone lock to avoid losing updates
// when several admins restaff an event at once.
type ZoneSupervisorService struct {
	zones  zoneSupervisorRepo
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewZoneSupervisorService constructs the service.
func NewZoneSupervisorService(zones zoneSupervisorRepo, logger *zap.Logger) *ZoneSupervisorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZoneSupervisorService{
		zones:  zones,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Add registers the supervisor on the zone roster. Adding an id that is
// already present leaves the roster untouched.
func (s *ZoneSupervisorService) Add(ctx context.Context, supervisorID, zoneID string) (SupervisorSetOutcome, []string, error) {
	lock := s.zoneLock(zoneID)
	lock.Lock()
	defer lock.Unlock()

	zone, err := s.loadZone(ctx, zoneID)
	if err != nil {
		return "", nil, err
	}

	ids := zone.SupervisorIDs()
	for _, id := range ids {
		if id == supervisorID {
			return SupervisorAlreadyAssigned, ids, nil
		}
	}

	ids = append(ids, supervisorID)
	if err := s.persist(ctx, zoneID, ids); err != nil {
		return "", nil, err
	}
	s.logger.Debug("supervisor added to zone roster",
		zap.String("zone_id", zoneID), zap.String("supervisor_id", supervisorID))
	return SupervisorAdded, ids, nil
}

// Remove drops the supervisor from the zone roster. Removing an id that is
// not present is a distinct no-op.
func (s *ZoneSupervisorService) Remove(ctx context.Context, supervisorID, zoneID string) (SupervisorSetOutcome, []string, error) {
	lock := s.zoneLock(zoneID)
	lock.Lock()
	defer lock.Unlock()

	zone, err := s.loadZone(ctx, zoneID)
	if err != nil {
		return "", nil, err
	}

	ids := zone.SupervisorIDs()
	filtered := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != supervisorID {
			filtered = append(filtered, id)
		}
	}
	if len(filtered) == len(ids) {
		return SupervisorNotPresent, ids, nil
	}

	if err := s.persist(ctx, zoneID, filtered); err != nil {
		return "", nil, err
	}
	s.logger.Debug("supervisor removed from zone roster",
		zap.String("zone_id", zoneID), zap.String("supervisor_id", supervisorID))
	return SupervisorRemoved, filtered, nil
}

func (s *ZoneSupervisorService) loadZone(ctx context.Context, zoneID string) (*models.Zone, error) {
	zone, err := s.zones.FindByID(ctx, zoneID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "zone not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load zone")
	}
	return zone, nil
}

func (s *ZoneSupervisorService) persist(ctx context.Context, zoneID string, ids []string) error {
	if err := s.zones.UpdateSupervisors(ctx, zoneID, models.EncodeSupervisorSet(ids)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "zone not found")
		}
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to persist zone supervisors")
	}
	return nil
}

func (s *ZoneSupervisorService) zoneLock(zoneID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[zoneID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[zoneID] = lock
	}
	return lock
}
