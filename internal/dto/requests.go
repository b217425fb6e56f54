package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateShiftRequest тело POST /shifts.
// ClientID и CommissionPercent учитываются только для администратора.
type CreateShiftRequest struct {
	ClientID          *uuid.UUID       `json:"client_id"`
	Title             string           `json:"title" binding:"required"`
	Category          string           `json:"category" binding:"required"`
	Location          string           `json:"location" binding:"required"`
	StartsAt          time.Time        `json:"starts_at" binding:"required"`
	EndsAt            time.Time        `json:"ends_at" binding:"required"`
	RequiredWorkers   int              `json:"required_workers" binding:"required,min=1"`
	PayRate           int64            `json:"pay_rate" binding:"required,gt=0"`
	CommissionPercent *decimal.Decimal `json:"commission_percent"`
}

// ApplyToShiftRequest отклик работника.
type ApplyToShiftRequest struct {
	Message *string `json:"message"`
}

// CheckInRequest отметка о приходе. Фото загружается заранее через /evidence/photos.
type CheckInRequest struct {
	Latitude    *float64 `json:"latitude" binding:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude" binding:"omitempty,longitude"`
	PhotoHandle string   `json:"photo_handle"`
}

// CancelShiftRequest отмена смены клиентом или администратором.
type CancelShiftRequest struct {
	Reason *string `json:"reason"`
}

// FinalizeShiftRequest ручное закрытие смены администратором.
type FinalizeShiftRequest struct {
	Force bool `json:"force"`
}

// SubmitRatingRequest оценка участника смены. Диапазон проверяет сервис.
type SubmitRatingRequest struct {
	ToUserID uuid.UUID `json:"to_user_id" binding:"required"`
	Value    int       `json:"value"`
	Comment  *string   `json:"comment"`
}

// OpenDisputeRequest открытие спора. Причину и описание проверяет сервис.
type OpenDisputeRequest struct {
	ShiftID       *uuid.UUID `json:"shift_id"`
	AgainstUserID uuid.UUID  `json:"against_user_id" binding:"required"`
	Reason        string     `json:"reason"`
	Description   string     `json:"description"`
}

// BanRequest бан работника при закрытии спора. DurationHours == nil означает бессрочный бан.
type BanRequest struct {
	DurationHours *int   `json:"duration_hours" binding:"omitempty,min=1,max=87600"`
	Reason        string `json:"reason" binding:"required"`
}

// ResolveDisputeRequest решение администратора по спору.
type ResolveDisputeRequest struct {
	Outcome     string      `json:"outcome"`
	Resolution  string      `json:"resolution"`
	AdminNotes  *string     `json:"admin_notes"`
	ApplyRefund bool        `json:"apply_refund"`
	Ban         *BanRequest `json:"ban"`
}

// BanDuration переводит часы бана в time.Duration.
func (r *BanRequest) BanDuration() *time.Duration {
	if r == nil || r.DurationHours == nil {
		return nil
	}
	d := time.Duration(*r.DurationHours) * time.Hour
	return &d
}
