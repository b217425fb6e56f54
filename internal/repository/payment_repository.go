package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	domainrepo "github.com/ignatzorin/crew-shifts-backend/internal/domain/repository"
	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crew-shifts-backend/internal/models"
	"github.com/ignatzorin/crew-shifts-backend/internal/repository/common"
)

// GetShiftEscrow возвращает последний холд смены.
func (q *queries) GetShiftEscrow(ctx context.Context, shiftID uuid.UUID) (*models.EscrowHold, error) {
	hold, err := common.GetOne[models.EscrowHold](ctx, q.ext, domainrepo.ErrEscrowNotFound,
		`SELECT * FROM escrow_holds WHERE shift_id = $1 ORDER BY created_at DESC LIMIT 1`, shiftID)
	if err != nil && err != domainrepo.ErrEscrowNotFound {
		return nil, fmt.Errorf("payment repository: get shift escrow %w", err)
	}
	return hold, err
}

// GetEscrow возвращает холд по ID.
func (q *queries) GetEscrow(ctx context.Context, id uuid.UUID) (*models.EscrowHold, error) {
	hold, err := common.GetByID[models.EscrowHold](ctx, q.ext, "escrow_holds", id, domainrepo.ErrEscrowNotFound)
	if err != nil && err != domainrepo.ErrEscrowNotFound {
		return nil, fmt.Errorf("payment repository: %w", err)
	}
	return hold, err
}

// ListPendingEscrows возвращает холды, которые провайдер ещё не подтвердил.
func (q *queries) ListPendingEscrows(ctx context.Context, createdBefore time.Time, limit int) ([]*models.EscrowHold, error) {
	var holds []*models.EscrowHold
	err := sqlx.SelectContext(ctx, q.ext, &holds, `
		SELECT * FROM escrow_holds WHERE status = 'pending' AND created_at <= $1 ORDER BY created_at LIMIT $2
	`, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("payment repository: list pending %w", err)
	}
	return holds, nil
}

// CreateEscrow создаёт холд. Второй незавершённый холд смены отклоняется индексом.
func (q *queries) CreateEscrow(ctx context.Context, h *models.EscrowHold) error {
	query := `
		INSERT INTO escrow_holds (id, shift_id, client_id, worker_count, worker_amount, commission_percent,
			commission_amount, total_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := q.ext.ExecContext(ctx, query,
		h.ID, h.ShiftID, h.ClientID, h.WorkerCount, h.WorkerAmount, h.CommissionPercent,
		h.CommissionAmount, h.TotalAmount, h.Status, h.CreatedAt,
	)
	if err != nil {
		if common.IsUniqueViolation(err, "uq_escrow_holds_active") {
			return domainrepo.ErrActiveEscrowExists
		}
		return fmt.Errorf("payment repository: create escrow %w", err)
	}
	return nil
}

// TransitionEscrow переводит холд из from в to. Если статус уже другой, возвращает ErrVersionConflict.
func (q *queries) TransitionEscrow(ctx context.Context, id uuid.UUID, from, to valueobject.EscrowStatus, at time.Time) error {
	query := `
		UPDATE escrow_holds
		SET status = $3,
			held_at = CASE WHEN $3 = 'held' THEN $4 ELSE held_at END,
			resolved_at = CASE WHEN $3 IN ('released', 'refunded') THEN $4 ELSE resolved_at END
		WHERE id = $1 AND status = $2
	`
	result, err := q.ext.ExecContext(ctx, query, id, from, to, at)
	if err != nil {
		return fmt.Errorf("payment repository: transition escrow %w", err)
	}
	return common.ExpectOneRow(result, domainrepo.ErrVersionConflict)
}

// AddLedgerEntries пишет записи журнала одной вставкой.
func (q *queries) AddLedgerEntries(ctx context.Context, entries []models.LedgerEntry) error {
	inserter := common.NewBatchInserter(q.ext,
		`INSERT INTO ledger_entries (id, shift_id, hold_id, user_id, type, amount, created_at)`, 7, len(entries))
	for _, e := range entries {
		if err := inserter.Add(ctx, e.ID, e.ShiftID, e.HoldID, e.UserID, e.Type, e.Amount, e.CreatedAt); err != nil {
			return fmt.Errorf("payment repository: add ledger entries %w", err)
		}
	}
	if err := inserter.Flush(ctx); err != nil {
		return fmt.Errorf("payment repository: add ledger entries %w", err)
	}
	return nil
}

// ListLedgerEntries возвращает журнал движения денег по смене.
func (q *queries) ListLedgerEntries(ctx context.Context, shiftID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := sqlx.SelectContext(ctx, q.ext, &entries,
		`SELECT * FROM ledger_entries WHERE shift_id = $1 ORDER BY created_at, id`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("payment repository: list ledger entries %w", err)
	}
	return entries, nil
}
