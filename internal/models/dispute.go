package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
)

type Dispute struct {
	ID            uuid.UUID                 `db:"id" json:"id"`
	ShiftID       *uuid.UUID                `db:"shift_id" json:"shift_id,omitempty"`
	CreatedBy     uuid.UUID                 `db:"created_by" json:"created_by"`
	AgainstUserID uuid.UUID                 `db:"against_user_id" json:"against_user_id"`
	Reason        valueobject.DisputeReason `db:"reason" json:"reason"`
	Description   string                    `db:"description" json:"description"`
	Status        valueobject.DisputeStatus `db:"status" json:"status"`
	Resolution    *string                   `db:"resolution" json:"resolution,omitempty"`
	AdminNotes    *string                   `db:"admin_notes" json:"admin_notes,omitempty"`
	ResolvedBy    *uuid.UUID                `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt    *time.Time                `db:"resolved_at" json:"resolved_at,omitempty"`
	RefundApplied bool                      `db:"refund_applied" json:"refund_applied"`
	BanApplied    bool                      `db:"ban_applied" json:"ban_applied"`
	Version       int64                     `db:"version" json:"version"`
	CreatedAt     time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time                 `db:"updated_at" json:"updated_at"`
}

// WorkerProfile хранит бан работника.
type WorkerProfile struct {
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	Banned    bool       `db:"banned" json:"banned"`
	BanUntil  *time.Time `db:"ban_until" json:"ban_until,omitempty"`
	BanReason *string    `db:"ban_reason" json:"ban_reason,omitempty"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// IsBannedAt учитывает срок бана. BanUntil == nil означает бессрочный бан.
func (p *WorkerProfile) IsBannedAt(now time.Time) bool {
	if p == nil || !p.Banned {
		return false
	}
	return p.BanUntil == nil || now.Before(*p.BanUntil)
}
