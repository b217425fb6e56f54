package ws

import (
	"context"

	"github.com/google/uuid"
)

// NotificationCreator сервис уведомлений, которым пользуется hub.
type NotificationCreator interface {
	CreateNotificationForWS(ctx context.Context, userID uuid.UUID, event string, data interface{}) error
}

// NotificationServiceAdapter адаптирует сервис уведомлений к NotificationSaver.
type NotificationServiceAdapter struct {
	service NotificationCreator
}

func NewNotificationServiceAdapter(service NotificationCreator) *NotificationServiceAdapter {
	return &NotificationServiceAdapter{service: service}
}

// CreateNotification реализует NotificationSaver.
func (a *NotificationServiceAdapter) CreateNotification(ctx context.Context, userID uuid.UUID, event string, data interface{}) error {
	return a.service.CreateNotificationForWS(ctx, userID, event, data)
}
