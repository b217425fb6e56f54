package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating описывает оценку одного участника смены другим.
type Rating struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ShiftID    uuid.UUID `db:"shift_id" json:"shift_id"`
	FromUserID uuid.UUID `db:"from_user_id" json:"from_user_id"`
	ToUserID   uuid.UUID `db:"to_user_id" json:"to_user_id"`
	Value      int       `db:"value" json:"value"`
	Comment    *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// UserRatingStat агрегат оценок пользователя.
type UserRatingStat struct {
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	Average     float64   `db:"average" json:"average"`
	RatingCount int64     `db:"rating_count" json:"rating_count"`
	RatingSum   int64     `db:"rating_sum" json:"-"`
	Version     int64     `db:"version" json:"-"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
