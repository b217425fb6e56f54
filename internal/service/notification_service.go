package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/crew-shifts-backend/internal/goroutine"
	"github.com/ignatzorin/crew-shifts-backend/internal/logger"
	"github.com/ignatzorin/crew-shifts-backend/internal/models"
	"github.com/ignatzorin/crew-shifts-backend/internal/queue"
)

// События уведомлений workflow смены.
const (
	EventApplicationApproved = "application_approved"
	EventWorkerCheckedIn     = "worker_checked_in"
	EventShiftCompleteMarked = "shift_complete_marked"
	EventShiftCompleted      = "shift_completed"
	EventShiftCancelled      = "shift_cancelled"
	EventRatingReceived      = "rating_received"
	EventDisputeOpened       = "dispute_opened"
	EventDisputeResolved     = "dispute_resolved"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// Notifier доставляет событие пользователю. Ошибки доставки не возвращаются.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, data any)
}

// UserPusher отправляет событие в открытые WebSocket соединения пользователя.
type UserPusher interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// EventPublisher публикует событие во внешнюю очередь.
type EventPublisher interface {
	Publish(ctx context.Context, queueName, messageID string, v any) error
}

// NotificationService содержит бизнес-логику работы с уведомлениями.
type NotificationService struct {
	repo      NotificationRepository
	pusher    UserPusher
	publisher EventPublisher
}

// NewNotificationService создаёт новый сервис уведомлений.
func NewNotificationService(repo NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// SetPusher подключает WebSocket hub. Hub сам сохраняет уведомление через CreateNotificationForWS.
func (s *NotificationService) SetPusher(pusher UserPusher) {
	s.pusher = pusher
}

// SetPublisher включает публикацию событий в очередь notifications.events.
func (s *NotificationService) SetPublisher(publisher EventPublisher) {
	s.publisher = publisher
}

// CreateNotification создаёт новое уведомление.
func (s *NotificationService) CreateNotification(ctx context.Context, userID uuid.UUID, event string, data interface{}) (*models.Notification, error) {
	payloadBytes, err := marshalPayload(event, data)
	if err != nil {
		return nil, err
	}

	notification := &models.Notification{
		UserID:  userID,
		Payload: payloadBytes,
		IsRead:  false,
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	return notification, nil
}

// ListNotifications возвращает список уведомлений пользователя.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkAsRead отмечает уведомление как прочитанное.
func (s *NotificationService) MarkAsRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id, userID)
}

// MarkAllAsRead отмечает все уведомления пользователя как прочитанные.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// CreateNotificationForWS создаёт уведомление (для использования в WebSocket hub).
func (s *NotificationService) CreateNotificationForWS(ctx context.Context, userID uuid.UUID, event string, data interface{}) error {
	_, err := s.CreateNotification(ctx, userID, event, data)
	return err
}

// Notify доставляет событие в фоне: WebSocket (с сохранением) и очередь.
// Переход смены к этому моменту уже зафиксирован, сбой доставки только логируется.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, event string, data any) {
	ctx = context.WithoutCancel(ctx)
	goroutine.SafeGo(func() {
		s.deliver(ctx, userID, event, data)
	})
}

func (s *NotificationService) deliver(ctx context.Context, userID uuid.UUID, event string, data any) {
	log := logger.L().WithFields(logrus.Fields{"op": "notification.deliver", "user_id": userID, "event": event})

	if s.pusher != nil {
		if err := s.pusher.BroadcastToUser(userID, event, data); err != nil {
			log.WithError(err).Warn("не удалось отправить уведомление в websocket")
		}
	} else if _, err := s.CreateNotification(ctx, userID, event, data); err != nil {
		log.WithError(err).Warn("не удалось сохранить уведомление")
	}

	if s.publisher == nil {
		return
	}
	payload, err := marshalPayload(event, data)
	if err != nil {
		log.WithError(err).Warn("не удалось сериализовать событие")
		return
	}
	evt := queue.NotificationEvent{
		ID:         uuid.New(),
		UserID:     userID,
		Type:       event,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, queue.NotificationEventsQueue, evt.ID.String(), evt); err != nil {
		log.WithError(err).Warn("не удалось опубликовать событие")
	}
}

func marshalPayload(event string, data any) (json.RawMessage, error) {
	payload := map[string]interface{}{
		"event": event,
		"data":  data,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("notification service: marshal payload %w", err)
	}
	return payloadBytes, nil
}
