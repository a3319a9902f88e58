package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secuteam/gwm-api/internal/models"
	"github.com/secuteam/gwm-api/internal/repository"
	appErrors "github.com/secuteam/gwm-api/pkg/errors"
)

type stubAssignmentRepo struct {
	findByID     func(ctx context.Context, id string) (*models.Assignment, error)
	findByTriple func(ctx context.Context, agentID, eventID string, zoneID *string) (*models.Assignment, error)
	create       func(ctx context.Context, a *models.Assignment) error
	update       func(ctx context.Context, a *models.Assignment) error
	updateStatus func(ctx context.Context, id string, status models.AssignmentStatus, confirmedAt *time.Time) error
	softDelete   func(ctx context.Context, id string, deletedAt time.Time) error
	bulkConfirm  func(ctx context.Context, eventID string, roles []models.AssignmentRole, confirmedAt time.Time) ([]models.Assignment, error)
	markSent     func(ctx context.Context, id string, sentAt time.Time) error
	listByEvent  func(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error)
	listByAgent  func(ctx context.Context, agentID string) ([]models.AssignmentDetail, error)
}

func (s *stubAssignmentRepo) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if s.findByID == nil {
		return nil, sql.ErrNoRows
	}
	return s.findByID(ctx, id)
}

func (s *stubAssignmentRepo) FindByTriple(ctx context.Context, agentID, eventID string, zoneID *string) (*models.Assignment, error) {
	if s.findByTriple == nil {
		return nil, sql.ErrNoRows
	}
	return s.findByTriple(ctx, agentID, eventID, zoneID)
}

func (s *stubAssignmentRepo) Create(ctx context.Context, a *models.Assignment) error {
	if s.create == nil {
		a.ID = "assignment-1"
		a.CreatedAt = time.Now()
		return nil
	}
	return s.create(ctx, a)
}

func (s *stubAssignmentRepo) Update(ctx context.Context, a *models.Assignment) error {
	if s.update == nil {
		a.DeletedAt = nil
		return nil
	}
	return s.update(ctx, a)
}

func (s *stubAssignmentRepo) UpdateStatus(ctx context.Context, id string, status models.AssignmentStatus, confirmedAt *time.Time) error {
	if s.updateStatus == nil {
		return nil
	}
	return s.updateStatus(ctx, id, status, confirmedAt)
}

func (s *stubAssignmentRepo) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	if s.softDelete == nil {
		return nil
	}
	return s.softDelete(ctx, id, deletedAt)
}

func (s *stubAssignmentRepo) BulkConfirmByEvent(ctx context.Context, eventID string, roles []models.AssignmentRole, confirmedAt time.Time) ([]models.Assignment, error) {
	if s.bulkConfirm == nil {
		return nil, nil
	}
	return s.bulkConfirm(ctx, eventID, roles, confirmedAt)
}

func (s *stubAssignmentRepo) MarkNotificationSent(ctx context.Context, id string, sentAt time.Time) error {
	if s.markSent == nil {
		return nil
	}
	return s.markSent(ctx, id, sentAt)
}

func (s *stubAssignmentRepo) ListByEvent(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error) {
	if s.listByEvent == nil {
		return nil, nil
	}
	return s.listByEvent(ctx, filter)
}

func (s *stubAssignmentRepo) ListByAgent(ctx context.Context, agentID string) ([]models.AssignmentDetail, error) {
	if s.listByAgent == nil {
		return nil, nil
	}
	return s.listByAgent(ctx, agentID)
}

type stubUserReader struct {
	users map[string]*models.User
	err   error
}

func (s *stubUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type stubEventReader struct {
	events map[string]*models.Event
	err    error
}

func (s *stubEventReader) FindByID(ctx context.Context, id string) (*models.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	if e, ok := s.events[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

type stubZoneReader struct {
	zones map[string]*models.Zone
}

func (s *stubZoneReader) FindByIDAndEvent(ctx context.Context, id, eventID string) (*models.Zone, error) {
	z, ok := s.zones[id]
	if !ok || z.EventID != eventID {
		return nil, sql.ErrNoRows
	}
	return z, nil
}

type stubRoster struct {
	added   []string
	removed []string
	err     error
}

func (s *stubRoster) Add(ctx context.Context, supervisorID, zoneID string) (SupervisorSetOutcome, []string, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	s.added = append(s.added, supervisorID+"@"+zoneID)
	return SupervisorAdded, []string{supervisorID}, nil
}

func (s *stubRoster) Remove(ctx context.Context, supervisorID, zoneID string) (SupervisorSetOutcome, []string, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	s.removed = append(s.removed, supervisorID+"@"+zoneID)
	return SupervisorRemoved, nil, nil
}

type stubNotifier struct {
	dispatched []*models.Notification
	err        error
}

func (s *stubNotifier) Dispatch(ctx context.Context, n *models.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.dispatched = append(s.dispatched, n)
	return nil
}

type stubActivity struct {
	entries []*models.ActivityLog
}

func (s *stubActivity) CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error {
	s.entries = append(s.entries, entry)
	return nil
}

func strPtr(s string) *string { return &s }

func assignmentFixtures() (*stubUserReader, *stubEventReader, *stubZoneReader) {
	users := &stubUserReader{users: map[string]*models.User{
		"agent-1": {ID: "agent-1", FirstName: "Karim", LastName: "Diallo", Role: models.RoleAgent, Status: models.UserStatusActive},
		"sup-1":   {ID: "sup-1", FirstName: "Awa", LastName: "Ndiaye", Role: models.RoleSupervisor, Status: models.UserStatusActive},
		"agent-2": {ID: "agent-2", FirstName: "Paul", LastName: "Martin", Role: models.RoleAgent, Status: models.UserStatusInactive},
	}}
	events := &stubEventReader{events: map[string]*models.Event{
		"event-1": {ID: "event-1", Name: "Festival de Jazz", Status: models.EventStatusScheduled},
	}}
	zones := &stubZoneReader{zones: map[string]*models.Zone{
		"zone-1": {ID: "zone-1", EventID: "event-1", Name: "Entrée Nord"},
	}}
	return users, events, zones
}

func newTestAssignmentService(repo *stubAssignmentRepo, roster *stubRoster, notifier *stubNotifier, activity *stubActivity, detach bool) *AssignmentService {
	users, events, zones := assignmentFixtures()
	return NewAssignmentService(repo, users, events, zones, roster, notifier, activity, nil, nil, detach)
}

func TestAssignmentRequestCreatesWhenTripleIsFree(t *testing.T) {
	repo := &stubAssignmentRepo{}
	notifier := &stubNotifier{}
	activity := &stubActivity{}
	svc := newTestAssignmentService(repo, &stubRoster{}, notifier, activity, false)

	result, err := svc.Request(context.Background(), RequestAssignmentRequest{
		AgentID:     "agent-1",
		EventID:     "event-1",
		ZoneID:      strPtr("zone-1"),
		RequestedBy: "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentOutcomeCreated, result.Outcome)
	assert.Equal(t, models.AssignmentStatusPending, result.Assignment.Status)
	assert.Equal(t, models.AssignmentRolePrimary, result.Assignment.Role)
	assert.True(t, result.Assignment.NotificationSent)
	require.Len(t, notifier.dispatched, 1)
	assert.Equal(t, models.NotificationTypeAssignment, notifier.dispatched[0].Type)
	require.Len(t, activity.entries, 1)
	assert.Equal(t, models.ActivityActionAssignmentCreate, activity.entries[0].Action)
}

func TestAssignmentRequestRestoresSoftDeletedRow(t *testing.T) {
	deletedAt := time.Now().Add(-24 * time.Hour)
	row := &models.Assignment{
		ID:        "assignment-9",
		AgentID:   "agent-1",
		EventID:   "event-1",
		ZoneID:    strPtr("zone-1"),
		Role:      models.AssignmentRoleBackup,
		Status:    models.AssignmentStatusConfirmed,
		DeletedAt: &deletedAt,
	}
	var updated *models.Assignment
	repo := &stubAssignmentRepo{
		findByTriple: func(ctx context.Context, agentID, eventID string, zoneID *string) (*models.Assignment, error) {
			return row, nil
		},
		update: func(ctx context.Context, a *models.Assignment) error {
			a.DeletedAt = nil
			updated = a
			return nil
		},
	}
	svc := newTestAssignmentService(repo, &stubRoster{}, &stubNotifier{}, &stubActivity{}, false)

	result, err := svc.Request(context.Background(), RequestAssignmentRequest{
		AgentID:     "agent-1",
		EventID:     "event-1",
		ZoneID:      strPtr("zone-1"),
		Role:        "primary",
		RequestedBy: "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentOutcomeRestored, result.Outcome)
	require.NotNil(t, updated)
	assert.Equal(t, "assignment-9", updated.ID)
	assert.Nil(t, updated.DeletedAt)
	assert.Equal(t, models.AssignmentStatusPending, updated.Status)
	assert.Equal(t, models.AssignmentRolePrimary, updated.Role)
	assert.Nil(t, updated.ConfirmedAt)
}

func TestAssignmentRequestReassignsCancelledRow(t *testing.T) {
	row := &models.Assignment{
		ID:      "assignment-5",
		AgentID: "agent-1",
		EventID: "event-1",
		ZoneID:  strPtr("zone-1"),
		Role:    models.AssignmentRolePrimary,
		Status:  models.AssignmentStatusCancelled,
	}
	repo := &stubAssignmentRepo{
		findByTriple: func(ctx context.Context, agentID, eventID string, zoneID *string) (*models.Assignment, error) {
			return row, nil
		},
	}
	svc := newTestAssignmentService(repo, &stubRoster{}, &stubNotifier{}, &stubActivity{}, false)

	result, err := svc.Request(context.Background(), RequestAssignmentRequest{
		AgentID:     "agent-1",
		EventID:     "event-1",
		ZoneID:      strPtr("zone-1"),
		RequestedBy: "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentOutcomeReassigned, result.Outcome)
	assert.Equal(t, models.AssignmentStatusPending, result.Assignment.Status)
}

func TestAssignmentRequestRejectsActiveConflict(t *testing.T) {
	for _, status := range []models.AssignmentStatus{models.AssignmentStatusPending, models.AssignmentStatusConfirmed} {
		t.Run(string(status), func(t *testing.T) {
			repo := &stubAssignmentRepo{
				findByTriple: func(ctx context.Context, agentID, eventID string, zoneID *string) (*models.Assignment, error) {
					return &models.Assignment{ID: "a", AgentID: agentID, EventID: eventID, ZoneID: zoneID, Status: status}, nil
				},
			}
			svc := newTestAssignmentService(repo, &stubRoster{}, &stubNotifier{}, &stubActivity{}, false)

			_, err := svc.Request(context.Background(), RequestAssignmentRequest{
				AgentID:     "agent-1",
				EventID:     "event-1",
				ZoneID:      strPtr("zone-1"),
				RequestedBy: "admin-1",
			})
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
			assert.Contains(t, err.Error(), "Entrée Nord")
			assert.Contains(t, err.Error(), status.Label())
		})
	}
}

func TestAssignmentRequestPreconditions(t *testing.T) {
	tests := []struct {
		name string
		req  RequestAssignmentRequest
		want *appErrors.Error
	}{
		{
			name: "unknown agent",
			req:  RequestAssignmentRequest{AgentID: "ghost", EventID: "event-1", RequestedBy: "admin-1"},
			want: appErrors.ErrNotFound,
		},
		{
			name: "supervisor role on agent account",
			req:  RequestAssignmentRequest{AgentID: "agent-1", EventID: "event-1", Role: "supervisor", RequestedBy: "admin-1"},
			want: appErrors.ErrValidation,
		},
		{
			name: "agent role on supervisor account",
			req:  RequestAssignmentRequest{AgentID: "sup-1", EventID: "event-1", Role: "primary", RequestedBy: "admin-1"},
			want: appErrors.ErrValidation,
		},
		{
			name: "inactive agent",
			req:  RequestAssignmentRequest{AgentID: "agent-2", EventID: "event-1", RequestedBy: "admin-1"},
			want: appErrors.ErrInactiveAccount,
		},
		{
			name: "unknown event",
			req:  RequestAssignmentRequest{AgentID: "agent-1", EventID: "event-9", RequestedBy: "admin-1"},
			want: appErrors.ErrNotFound,
		},
		{
			name: "zone from another event",
			req:  RequestAssignmentRequest{AgentID: "agent-1", EventID: "event-1", ZoneID: strPtr("zone-9"), RequestedBy: "admin-1"},
			want: appErrors.ErrNotFound,
		},
		{
			name: "unknown role",
			req:  RequestAssignmentRequest{AgentID: "agent-1", EventID: "event-1", Role: "chief", RequestedBy: "admin-1"},
			want: appErrors.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestAssignmentService(&stubAssignmentRepo{}, &stubRoster{}, &stubNotifier{}, &stubActivity{}, false)
			_, err := svc.Request(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, tt.want), "expected %s, got %v", tt.want.Code, err)
		})
	}
}

func TestAssignmentRequestTranslatesUniqueViolation(t *testing.T) {
	repo := &stubAssignmentRepo{
		create: func(ctx context.Context, a *models.Assignment) error {
			return repository.ErrDuplicateAssignment
		},
	}
	svc := newTestAssignmentService(repo, &stubRoster{}, &stubNotifier{}, &stubActivity{}, false)

	_, err := svc.Request(context.Background(), RequestAssignmentRequest{
		AgentID:     "agent-1",
		EventID:     "event-1",
		ZoneID:      strPtr("zone-1"),
		RequestedBy: "admin-1",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Contains(t, err.Error(), "en attente")
}

func TestAssignmentRequestRegistersSupervisorOnRoster(t *testing.T) {
	roster := &stubRoster{}
	svc := newTestAssignmentService(&stubAssignmentRepo{}, roster, &stubNotifier{}, &stubActivity{}, false)

	result, err := svc.Request(context.Background(), RequestAssignmentRequest{
		AgentID:     "sup-1",
		EventID:     "event-1",
		ZoneID:      strPtr("zone-1"),
		Role:        "supervisor",
		RequestedBy: "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentOutcomeCreated, result.Outcome)
	assert.Equal(t, []string{"sup-1@zone-1"}, roster.added)
}

func TestAssignmentRequestRosterFailureDoesNotFailRequest(t *testing.T) {
	roster := &stubRoster{err: errors.New("redis down")}
	svc := newTestAssignmentService(&stubAssignmentRepo{}, roster, &stubNotifier{}, &stubActivity{}, false)

	result, err := svc.Request(context.Background(), RequestAssignmentRequest{
		AgentID:     "sup-1",
		EventID:     "event-1",
		ZoneID:      strPtr("zone-1"),
		Role:        "supervisor",
		RequestedBy: "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentOutcomeCreated, result.Outcome)
}

func TestAssignmentRequestNotificationFailureDoesNotFailRequest(t *testing.T) {
	notifier := &stubNotifier{err: errors.New("queue full")}
	svc := newTestAssignmentService(&stubAssignmentRepo{}, &stubRoster{}, notifier, &stubActivity{}, false)

	result, err := svc.Request(context.Background(), RequestAssignmentRequest{
		AgentID:     "agent-1",
		EventID:     "event-1",
		RequestedBy: "admin-1",
	})
	require.NoError(t, err)
	assert.False(t, result.Assignment.NotificationSent)
}

func TestAssignmentRespondConfirm(t *testing.T) {
	var gotConfirmedAt *time.Time
	repo := &stubAssignmentRepo{
		findByID: func(ctx context.Context, id string) (*models.Assignment, error) {
			return &models.Assignment{ID: id, AgentID: "agent-1", EventID: "event-1", Status: models.AssignmentStatusPending}, nil
		},
		updateStatus: func(ctx context.Context, id string, status models.AssignmentStatus, confirmedAt *time.Time) error {
			gotConfirmedAt = confirmedAt
			return nil
		},
	}
	svc := newTestAssignmentService(repo, &stubRoster{}, &stubNotifier{}, &stubActivity{}, false)

	updated, err := svc.Respond(context.Background(), "assignment-1", "agent-1", models.AssignmentStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusConfirmed, updated.Status)
	require.NotNil(t, gotConfirmedAt)
	assert.Equal(t, gotConfirmedAt, updated.ConfirmedAt)
}

func TestAssignmentRespondDeclineLeavesConfirmedAtEmpty(t *testing.T) {
	repo := &stubAssignmentRepo{
		findByID: func(ctx context.Context, id string) (*models.Assignment, error) {
			return &models.Assignment{ID: id, AgentID: "agent-1", EventID: "event-1", Status: models.AssignmentStatusPending}, nil
		},
	}
	svc := newTestAssignmentService(repo, &stubRoster{}, &stubNotifier{}, &stubActivity{}, false)

	updated, err := svc.Respond(context.Background(), "assignment-1", "agent-1", models.AssignmentStatusDeclined)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusDeclined, updated.Status)
	assert.Nil(t, updated.ConfirmedAt)
}

func TestAssignmentRespondRejectsForeignAssignment(t *testing.T) {
	repo := &stubAssignmentRepo{
		findByID: func(ctx context.Context, id string) (*models.Assignment, error) {
			return &models.Assignment{ID: id, AgentID: "agent-1", Status: models.AssignmentStatusPending}, nil
		},
	}
	svc := newTestAssignmentService(repo, &stubRoster{}, &stubNotifier{}, &stubActivity{}, false)

	_, err := svc.Respond(context.Background(), "assignment-1", "someone-else", models.AssignmentStatusConfirmed)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAssignmentRespondRejectsNonPending(t *testing.T) {
	repo := &stubAssignmentRepo{
		findByID: func(ctx context.Context, id string) (*models.Assignment, error) {
			return &models.Assignment{ID: id, AgentID: "agent-1", Status: models.AssignmentStatusConfirmed}, nil
		},
	}
	svc := newTestAssignmentService(repo, &stubRoster{}, &stubNotifier{}, &stubActivity{}, false)

	_, err := svc.Respond(context.Background(), "assignment-1", "agent-1", models.AssignmentStatusDeclined)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestAssignmentRespondRejectsInvalidResponse(t *testing.T) {
	svc := newTestAssignmentService(&stubAssignmentRepo{}, &stubRoster{}, &stubNotifier{}, &stubActivity{}, false)

	_, err := svc.Respond(context.Background(), "assignment-1", "agent-1", models.AssignmentStatusCancelled)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestBulkConfirmByEventResolvesRoles(t *testing.T) {
	var gotRoles []models.AssignmentRole
	repo := &stubAssignmentRepo{
		bulkConfirm: func(ctx context.Context, eventID string, roles []models.AssignmentRole, confirmedAt time.Time) ([]models.Assignment, error) {
			gotRoles = roles
			return []models.Assignment{
				{ID: "a-1", AgentID: "agent-1", EventID: eventID, Status: models.AssignmentStatusConfirmed},
				{ID: "a-2", AgentID: "sup-1", EventID: eventID, Status: models.AssignmentStatusConfirmed},
			}, nil
		},
	}
	notifier := &stubNotifier{}
	svc := newTestAssignmentService(repo, &stubRoster{}, notifier, &stubActivity{}, false)

	result, err := svc.BulkConfirmByEvent(context.Background(), BulkConfirmRequest{
		EventID:            "event-1",
		ConfirmAgents:      true,
		ConfirmSupervisors: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Confirmed)
	assert.Equal(t, []models.AssignmentRole{
		models.AssignmentRolePrimary,
		models.AssignmentRoleBackup,
		models.AssignmentRoleSupervisor,
	}, gotRoles)
	assert.Len(t, notifier.dispatched, 2)
}

func TestBulkConfirmByEventExplicitRole(t *testing.T) {
	var gotRoles []models.AssignmentRole
	repo := &stubAssignmentRepo{
		bulkConfirm: func(ctx context.Context, eventID string, roles []models.AssignmentRole, confirmedAt time.Time) ([]models.Assignment, error) {
			gotRoles = roles
			return nil, nil
		},
	}
	svc := newTestAssignmentService(repo, &stubRoster{}, &stubNotifier{}, &stubActivity{}, false)

	result, err := svc.BulkConfirmByEvent(context.Background(), BulkConfirmRequest{
		EventID: "event-1",
		Role:    strPtr("supervisor"),
	})
	require.NoError(t, err)
	assert.Zero(t, result.Confirmed)
	assert.Equal(t, []models.AssignmentRole{models.AssignmentRoleSupervisor}, gotRoles)
}

func TestBulkConfirmByEventNoRolesIsNoOp(t *testing.T) {
	called := false
	repo := &stubAssignmentRepo{
		bulkConfirm: func(ctx context.Context, eventID string, roles []models.AssignmentRole, confirmedAt time.Time) ([]models.Assignment, error) {
			called = true
			return nil, nil
		},
	}
	svc := newTestAssignmentService(repo, &stubRoster{}, &stubNotifier{}, &stubActivity{}, false)

	result, err := svc.BulkConfirmByEvent(context.Background(), BulkConfirmRequest{EventID: "event-1"})
	require.NoError(t, err)
	assert.Zero(t, result.Confirmed)
	assert.False(t, called)
}

func TestBulkConfirmByEventUnknownEvent(t *testing.T) {
	svc := newTestAssignmentService(&stubAssignmentRepo{}, &stubRoster{}, &stubNotifier{}, &stubActivity{}, false)

	_, err := svc.BulkConfirmByEvent(context.Background(), BulkConfirmRequest{EventID: "event-9", ConfirmAgents: true})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAssignmentDeleteKeepsRosterByDefault(t *testing.T) {
	roster := &stubRoster{}
	repo := &stubAssignmentRepo{
		findByID: func(ctx context.Context, id string) (*models.Assignment, error) {
			return &models.Assignment{ID: id, AgentID: "sup-1", EventID: "event-1", ZoneID: strPtr("zone-1"), Role: models.AssignmentRoleSupervisor, Status: models.AssignmentStatusConfirmed}, nil
		},
	}
	activity := &stubActivity{}
	svc := newTestAssignmentService(repo, roster, &stubNotifier{}, activity, false)

	require.NoError(t, svc.Delete(context.Background(), "assignment-1", "admin-1", nil))
	assert.Empty(t, roster.removed)
	require.Len(t, activity.entries, 1)
	assert.Equal(t, models.ActivityActionAssignmentDelete, activity.entries[0].Action)
}

func TestAssignmentDeleteDetachesSupervisorWhenConfigured(t *testing.T) {
	roster := &stubRoster{}
	repo := &stubAssignmentRepo{
		findByID: func(ctx context.Context, id string) (*models.Assignment, error) {
			return &models.Assignment{ID: id, AgentID: "sup-1", EventID: "event-1", ZoneID: strPtr("zone-1"), Role: models.AssignmentRoleSupervisor, Status: models.AssignmentStatusConfirmed}, nil
		},
	}
	svc := newTestAssignmentService(repo, roster, &stubNotifier{}, &stubActivity{}, true)

	require.NoError(t, svc.Delete(context.Background(), "assignment-1", "admin-1", nil))
	assert.Equal(t, []string{"sup-1@zone-1"}, roster.removed)
}

func TestAssignmentDeletePerCallOverrideWinsOverConfig(t *testing.T) {
	roster := &stubRoster{}
	repo := &stubAssignmentRepo{
		findByID: func(ctx context.Context, id string) (*models.Assignment, error) {
			return &models.Assignment{ID: id, AgentID: "sup-1", EventID: "event-1", ZoneID: strPtr("zone-1"), Role: models.AssignmentRoleSupervisor, Status: models.AssignmentStatusConfirmed}, nil
		},
	}
	svc := newTestAssignmentService(repo, roster, &stubNotifier{}, &stubActivity{}, true)

	keep := false
	require.NoError(t, svc.Delete(context.Background(), "assignment-1", "admin-1", &keep))
	assert.Empty(t, roster.removed)
}

func TestAssignmentDeleteUnknownAssignment(t *testing.T) {
	svc := newTestAssignmentService(&stubAssignmentRepo{}, &stubRoster{}, &stubNotifier{}, &stubActivity{}, false)

	err := svc.Delete(context.Background(), "ghost", "admin-1", nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAssignmentListByEventChecksEvent(t *testing.T) {
	svc := newTestAssignmentService(&stubAssignmentRepo{}, &stubRoster{}, &stubNotifier{}, &stubActivity{}, false)

	_, err := svc.ListByEvent(context.Background(), "event-9")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
