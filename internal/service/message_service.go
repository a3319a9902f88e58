package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/secuteam/gwm-api/internal/models"
	appErrors "github.com/secuteam/gwm-api/pkg/errors"
)

type messageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	ListBetween(ctx context.Context, filter models.MessageFilter) ([]models.Message, error)
	ListConversations(ctx context.Context, userID string) ([]models.Conversation, error)
	MarkConversationRead(ctx context.Context, userID, peerID string, readAt time.Time) (int, error)
}

// MessageService handles direct messaging between staff members.
type MessageService struct {
	repo     messageRepository
	users    assignmentUserReader
	notifier assignmentNotifier
	logger   *zap.Logger
}

// NewMessageService constructs a MessageService instance.
func NewMessageService(repo messageRepository, users assignmentUserReader, notifier assignmentNotifier, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{repo: repo, users: users, notifier: notifier, logger: logger}
}

// Send delivers a message to another user and dispatches a notification.
func (s *MessageService) Send(ctx context.Context, senderID, recipientID, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message body is empty")
	}
	if senderID == recipientID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot message yourself")
	}

	sender, err := s.users.FindByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sender not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load sender")
	}
	if _, err := s.users.FindByID(ctx, recipientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "recipient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load recipient")
	}

	message := &models.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
	}
	if err := s.repo.Create(ctx, message); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to store message")
	}

	if s.notifier != nil {
		notification := &models.Notification{
			UserID:  recipientID,
			Type:    models.NotificationTypeMessage,
			Title:   "Nouveau message",
			Message: "Message de " + sender.FullName(),
		}
		if err := s.notifier.Dispatch(ctx, notification); err != nil {
			s.logger.Warn("message notification dispatch failed", zap.String("message_id", message.ID), zap.Error(err))
		}
	}

	return message, nil
}

// History returns the exchange between the user and a peer, newest page
// first, and marks the incoming side as read.
func (s *MessageService) History(ctx context.Context, filter models.MessageFilter) ([]models.Message, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 200 {
		filter.PageSize = 50
	}

	rows, err := s.repo.ListBetween(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load messages")
	}

	if _, err := s.repo.MarkConversationRead(ctx, filter.UserID, filter.PeerID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to mark conversation read", zap.String("user_id", filter.UserID), zap.Error(err))
	}

	return rows, nil
}

// Conversations lists the user's conversations with unread counts.
func (s *MessageService) Conversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	rows, err := s.repo.ListConversations(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list conversations")
	}
	return rows, nil
}
