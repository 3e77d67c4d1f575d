package service

import (
	"context"
	"errors"
	"fmt"

	"shop-service/internal/models"
	"shop-service/internal/store"
)

// NotificationStore is the slice of the store the notification reads need.
type NotificationStore interface {
	ListNotifications(ctx context.Context, userID int64) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID int64) error
}

// NotificationService serves the read side of notifications; rows are
// written by the notification worker consuming order events.
type NotificationService struct {
	store NotificationStore
}

// NewNotificationService creates a new notification service
func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store}
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID int64) ([]models.Notification, error) {
	notifications, err := s.store.ListNotifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flips the read flag on one of the user's notifications.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id int64) error {
	if err := s.store.MarkNotificationRead(ctx, id, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("notification not found")
		}
		return err
	}
	return nil
}
