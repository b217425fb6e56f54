package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
)

// Shift представляет оплачиваемую смену, опубликованную клиентом.
type Shift struct {
	ID                uuid.UUID               `db:"id" json:"id"`
	ClientID          uuid.UUID               `db:"client_id" json:"client_id"`
	Title             string                  `db:"title" json:"title"`
	Category          string                  `db:"category" json:"category"`
	Location          string                  `db:"location" json:"location"`
	StartsAt          time.Time               `db:"starts_at" json:"starts_at"`
	EndsAt            time.Time               `db:"ends_at" json:"ends_at"`
	RequiredWorkers   int                     `db:"required_workers" json:"required_workers"`
	PayRate           int64                   `db:"pay_rate" json:"pay_rate"`
	CommissionPercent decimal.Decimal         `db:"commission_percent" json:"commission_percent"`
	State             valueobject.ShiftState  `db:"state" json:"state"`
	ResumeState       *valueobject.ShiftState `db:"resume_state" json:"resume_state,omitempty"`
	StateChangedAt    time.Time               `db:"state_changed_at" json:"state_changed_at"`
	CompletedAt       *time.Time              `db:"completed_at" json:"completed_at,omitempty"`
	CancelReason      *string                 `db:"cancel_reason" json:"cancel_reason,omitempty"`
	Version           int64                   `db:"version" json:"version"`
	CreatedAt         time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time               `db:"updated_at" json:"updated_at"`
}

// EffectiveState состояние, по которому проверяются переходы.
func (s *Shift) EffectiveState() valueobject.ShiftState {
	return valueobject.EffectiveShiftState(s.State, s.ResumeState)
}

// Application отклик работника на смену.
type Application struct {
	ID        uuid.UUID                     `db:"id" json:"id"`
	ShiftID   uuid.UUID                     `db:"shift_id" json:"shift_id"`
	WorkerID  uuid.UUID                     `db:"worker_id" json:"worker_id"`
	Status    valueobject.ApplicationStatus `db:"status" json:"status"`
	Message   *string                       `db:"message" json:"message,omitempty"`
	CreatedAt time.Time                     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time                     `db:"updated_at" json:"updated_at"`
}

// Assignment связывает одного работника с одной сменой.
type Assignment struct {
	ID               uuid.UUID                   `db:"id" json:"id"`
	ShiftID          uuid.UUID                   `db:"shift_id" json:"shift_id"`
	WorkerID         uuid.UUID                   `db:"worker_id" json:"worker_id"`
	State            valueobject.AssignmentState `db:"state" json:"state"`
	OnWayAt          *time.Time                  `db:"on_way_at" json:"on_way_at,omitempty"`
	CheckedInAt      *time.Time                  `db:"checked_in_at" json:"checked_in_at,omitempty"`
	CheckInLatitude  *float64                    `db:"check_in_latitude" json:"check_in_latitude,omitempty"`
	CheckInLongitude *float64                    `db:"check_in_longitude" json:"check_in_longitude,omitempty"`
	CheckInPhoto     *string                     `db:"check_in_photo" json:"check_in_photo,omitempty"`
	CheckedOutAt     *time.Time                  `db:"checked_out_at" json:"checked_out_at,omitempty"`
	ConfirmedAt      *time.Time                  `db:"confirmed_at" json:"confirmed_at,omitempty"`
	Version          int64                       `db:"version" json:"version"`
	CreatedAt        time.Time                   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time                   `db:"updated_at" json:"updated_at"`
}

// CheckInEvidence подтверждение прихода на объект. Содержимое не интерпретируется.
type CheckInEvidence struct {
	At          time.Time `json:"at"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	PhotoHandle string    `json:"photo_handle,omitempty"`
}

// ShiftDetails смена со всеми связанными записями.
type ShiftDetails struct {
	Shift         *Shift        `json:"shift"`
	Assignments   []*Assignment `json:"assignments"`
	Escrow        *EscrowHold   `json:"escrow,omitempty"`
	LedgerEntries []LedgerEntry `json:"ledger_entries"`
}
