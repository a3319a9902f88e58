package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secuteam/gwm-api/internal/models"
	"github.com/secuteam/gwm-api/pkg/jobs"
)

type mockNotificationRepo struct {
	mu      sync.Mutex
	stored  []*models.Notification
	unread  map[string]int
	markAll int
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{unread: map[string]int{}}
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = append(m.stored, notification)
	m.unread[notification.UserID]++
	return nil
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.stored {
		if n.UserID == filter.UserID {
			out = append(out, *n)
		}
	}
	return out, len(out), nil
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unread[userID], nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID string, readAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unread[userID] > 0 {
		m.unread[userID]--
	}
	return nil
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID string, readAt time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.unread[userID]
	m.unread[userID] = 0
	m.markAll++
	return n, nil
}

func (m *mockNotificationRepo) storedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stored)
}

type mockCounterCache struct {
	mu       sync.Mutex
	counters map[string]int64
}

func newMockCounterCache() *mockCounterCache {
	return &mockCounterCache{counters: map[string]int64{}}
}

func (m *mockCounterCache) IncrCounter(ctx context.Context, key string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key] += delta
	return m.counters[key], nil
}

func (m *mockCounterCache) SetCounter(ctx context.Context, key string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key] = value
	return nil
}

func (m *mockCounterCache) GetCounter(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.counters[key]; ok {
		return v, nil
	}
	return -1, nil
}

func TestNotificationDispatchInlineWhenQueueStopped(t *testing.T) {
	repo := newMockNotificationRepo()
	cache := newMockCounterCache()
	svc := NewNotificationService(repo, cache, nil, jobs.QueueConfig{})

	err := svc.Dispatch(context.Background(), &models.Notification{UserID: "u1", Type: models.NotificationTypeAssignment, Title: "t", Message: "m"})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.storedCount())

	count, err := cache.GetCounter(context.Background(), unreadKey("u1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestNotificationDispatchThroughQueue(t *testing.T) {
	repo := newMockNotificationRepo()
	svc := NewNotificationService(repo, newMockCounterCache(), nil, jobs.QueueConfig{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.StartQueue(ctx)
	defer svc.StopQueue()

	require.NoError(t, svc.Dispatch(ctx, &models.Notification{UserID: "u1", Type: models.NotificationTypeSystem, Title: "t", Message: "m"}))

	assert.Eventually(t, func() bool {
		return repo.storedCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestUnreadCountUsesCacheFastPath(t *testing.T) {
	repo := newMockNotificationRepo()
	repo.unread["u1"] = 7
	cache := newMockCounterCache()
	require.NoError(t, cache.SetCounter(context.Background(), unreadKey("u1"), 3))

	svc := NewNotificationService(repo, cache, nil, jobs.QueueConfig{})

	count, err := svc.UnreadCount(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestUnreadCountRebuildsOnCacheMiss(t *testing.T) {
	repo := newMockNotificationRepo()
	repo.unread["u1"] = 4
	cache := newMockCounterCache()

	svc := NewNotificationService(repo, cache, nil, jobs.QueueConfig{})

	count, err := svc.UnreadCount(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	seeded, err := cache.GetCounter(context.Background(), unreadKey("u1"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), seeded)
}

func TestMarkAllReadResetsCounter(t *testing.T) {
	repo := newMockNotificationRepo()
	repo.unread["u1"] = 5
	cache := newMockCounterCache()
	require.NoError(t, cache.SetCounter(context.Background(), unreadKey("u1"), 5))

	svc := NewNotificationService(repo, cache, nil, jobs.QueueConfig{})

	n, err := svc.MarkAllRead(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	count, err := cache.GetCounter(context.Background(), unreadKey("u1"))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkReadResyncsCounterFromStore(t *testing.T) {
	repo := newMockNotificationRepo()
	repo.unread["u1"] = 2
	cache := newMockCounterCache()
	require.NoError(t, cache.SetCounter(context.Background(), unreadKey("u1"), 9))

	svc := NewNotificationService(repo, cache, nil, jobs.QueueConfig{})

	require.NoError(t, svc.MarkRead(context.Background(), "n1", "u1"))

	count, err := cache.GetCounter(context.Background(), unreadKey("u1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
