package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Операции платёжного провайдера.
const (
	PaymentOpHold    = "hold"
	PaymentOpRelease = "release"
	PaymentOpRefund  = "refund"
)

// PaymentCommand команда провайдеру по холду смены.
type PaymentCommand struct {
	Op          string    `json:"op"`
	HoldID      uuid.UUID `json:"hold_id"`
	Amount      int64     `json:"amount,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// MessageID ключ идемпотентности команды: повтор той же операции по холду даёт тот же ID.
func (c PaymentCommand) MessageID() string {
	return c.Op + ":" + c.HoldID.String()
}

// NotificationEvent событие для внешних каналов доставки.
type NotificationEvent struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}
