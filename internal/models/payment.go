package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crew-shifts-backend/internal/escrow"
)

// Типы записей журнала
const (
	LedgerEntryEscrowHold         = "escrow_hold"
	LedgerEntryWorkerPayout       = "worker_payout"
	LedgerEntryPlatformCommission = "platform_commission"
	LedgerEntryClientReturn       = "client_return"
	LedgerEntryEscrowRefund       = "escrow_refund"
)

// EscrowHold деньги, заблокированные под смену.
type EscrowHold struct {
	ID                uuid.UUID                `db:"id" json:"id"`
	ShiftID           uuid.UUID                `db:"shift_id" json:"shift_id"`
	ClientID          uuid.UUID                `db:"client_id" json:"client_id"`
	WorkerCount       int                      `db:"worker_count" json:"worker_count"`
	WorkerAmount      int64                    `db:"worker_amount" json:"worker_amount"`
	CommissionPercent decimal.Decimal          `db:"commission_percent" json:"commission_percent"`
	CommissionAmount  int64                    `db:"commission_amount" json:"commission_amount"`
	TotalAmount       int64                    `db:"total_amount" json:"total_amount"`
	Status            valueobject.EscrowStatus `db:"status" json:"status"`
	CreatedAt         time.Time                `db:"created_at" json:"created_at"`
	HeldAt            *time.Time               `db:"held_at" json:"held_at,omitempty"`
	ResolvedAt        *time.Time               `db:"resolved_at" json:"resolved_at,omitempty"`
}

// Quote восстанавливает расчёт холда из записи.
func (h *EscrowHold) Quote() escrow.Quote {
	return escrow.Quote{
		WorkerCount:       h.WorkerCount,
		WorkerAmount:      h.WorkerAmount,
		CommissionPercent: h.CommissionPercent,
		CommissionAmount:  h.CommissionAmount,
		TotalAmount:       h.TotalAmount,
	}
}

// LedgerEntry запись журнала движения денег. UserID == nil означает платформу.
type LedgerEntry struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	ShiftID   uuid.UUID  `db:"shift_id" json:"shift_id"`
	HoldID    uuid.UUID  `db:"hold_id" json:"hold_id"`
	UserID    *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	Type      string     `db:"type" json:"type"`
	Amount    int64      `db:"amount" json:"amount"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
