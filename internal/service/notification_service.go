package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/secuteam/gwm-api/internal/models"
	appErrors "github.com/secuteam/gwm-api/pkg/errors"
	"github.com/secuteam/gwm-api/pkg/jobs"
)

const notificationJobType = "notification.deliver"

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string, readAt time.Time) error
	MarkAllRead(ctx context.Context, userID string, readAt time.Time) (int, error)
}

type unreadCounterCache interface {
	IncrCounter(ctx context.Context, key string, delta int64) (int64, error)
	SetCounter(ctx context.Context, key string, value int64) error
	GetCounter(ctx context.Context, key string) (int64, error)
}

// NotificationService persists per-user notifications and maintains an
// unread badge counter in Redis. Delivery is asynchronous through the jobs
// queue; callers treat Dispatch as fire-and-forget.
type NotificationService struct {
	repo   notificationRepository
	cache  unreadCounterCache
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the service. Call StartQueue before
// dispatching; without a started queue Dispatch falls back to synchronous
// delivery.
func NewNotificationService(repo notificationRepository, cache unreadCounterCache, logger *zap.Logger, cfg jobs.QueueConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{repo: repo, cache: cache, logger: logger}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.handleJob, cfg)
	return s
}

// StartQueue starts the delivery workers.
func (s *NotificationService) StartQueue(ctx context.Context) {
	s.queue.Start(ctx)
}

// StopQueue drains the delivery workers.
func (s *NotificationService) StopQueue() {
	s.queue.Stop()
}

// Dispatch queues a notification for delivery. Falls back to synchronous
// delivery when the queue is not running so notifications are never lost
// silently in tests or degraded deployments.
func (s *NotificationService) Dispatch(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}

	err := s.queue.Enqueue(jobs.Job{
		ID:      notification.ID,
		Type:    notificationJobType,
		Payload: notification,
	})
	if err == nil {
		return nil
	}

	s.logger.Debug("notification queue unavailable, delivering inline", zap.Error(err))
	return s.deliver(ctx, notification)
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(*models.Notification)
	if !ok {
		s.logger.Error("notification job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.deliver(ctx, notification)
}

func (s *NotificationService) deliver(ctx context.Context, notification *models.Notification) error {
	if err := s.repo.Create(ctx, notification); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to persist notification")
	}

	if s.cache != nil {
		if _, err := s.cache.IncrCounter(ctx, unreadKey(notification.UserID), 1); err != nil {
			s.logger.Warn("failed to bump unread counter", zap.String("user_id", notification.UserID), zap.Error(err))
		}
	}
	return nil
}

// ListByUser returns a page of the user's notifications.
func (s *NotificationService) ListByUser(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	rows, total, err := s.repo.ListByUser(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list notifications")
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// UnreadCount returns the unread badge value. Redis is the fast path; on a
// miss the count is rebuilt from the database and written back.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetCounter(ctx, unreadKey(userID)); err == nil && cached >= 0 {
			return int(cached), nil
		}
	}

	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to count notifications")
	}
	if s.cache != nil {
		if err := s.cache.SetCounter(ctx, unreadKey(userID), int64(count)); err != nil {
			s.logger.Warn("failed to seed unread counter", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return count, nil
}

// MarkRead marks one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to mark notification read")
	}
	s.resyncCounter(ctx, userID)
	return nil
}

// MarkAllRead marks every unread notification of the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	n, err := s.repo.MarkAllRead(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to mark notifications read")
	}
	if s.cache != nil {
		if err := s.cache.SetCounter(ctx, unreadKey(userID), 0); err != nil {
			s.logger.Warn("failed to reset unread counter", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return n, nil
}

// resyncCounter rebuilds the badge from the database instead of decrementing
// so a stale counter self-heals on the next read.
func (s *NotificationService) resyncCounter(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to resync unread counter", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := s.cache.SetCounter(ctx, unreadKey(userID), int64(count)); err != nil {
		s.logger.Warn("failed to write unread counter", zap.String("user_id", userID), zap.Error(err))
	}
}

func unreadKey(userID string) string {
	return "notifications:unread:" + userID
}
