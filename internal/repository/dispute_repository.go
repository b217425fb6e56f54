package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	domainrepo "github.com/ignatzorin/crew-shifts-backend/internal/domain/repository"
	"github.com/ignatzorin/crew-shifts-backend/internal/models"
	"github.com/ignatzorin/crew-shifts-backend/internal/repository/common"
)

func (q *queries) CreateDispute(ctx context.Context, d *models.Dispute) error {
	query := `
		INSERT INTO disputes (id, shift_id, created_by, against_user_id, reason, description, status,
			version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`
	_, err := q.ext.ExecContext(ctx, query,
		d.ID, d.ShiftID, d.CreatedBy, d.AgainstUserID, d.Reason, d.Description, d.Status, d.Version, d.CreatedAt,
	)
	if err != nil {
		if common.IsUniqueViolation(err, "uq_disputes_open") {
			return domainrepo.ErrDuplicateOpenDispute
		}
		return fmt.Errorf("dispute repository: create %w", err)
	}
	return nil
}

func (q *queries) GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	d, err := common.GetByID[models.Dispute](ctx, q.ext, "disputes", id, domainrepo.ErrDisputeNotFound)
	if err != nil && err != domainrepo.ErrDisputeNotFound {
		return nil, fmt.Errorf("dispute repository: %w", err)
	}
	return d, err
}

// ListDisputes возвращает споры по фильтру, новые сначала.
func (q *queries) ListDisputes(ctx context.Context, filter domainrepo.DisputeFilter) ([]*models.Dispute, error) {
	query := `SELECT * FROM disputes WHERE 1 = 1`
	args := []interface{}{}
	argIndex := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.UserID != nil {
		query += fmt.Sprintf(" AND (created_by = $%d OR against_user_id = $%d)", argIndex, argIndex)
		args = append(args, *filter.UserID)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filter.Offset)
	}

	var disputes []*models.Dispute
	if err := sqlx.SelectContext(ctx, q.ext, &disputes, query, args...); err != nil {
		return nil, fmt.Errorf("dispute repository: list %w", err)
	}
	return disputes, nil
}

// CountOpenShiftDisputes считает незакрытые споры по смене.
func (q *queries) CountOpenShiftDisputes(ctx context.Context, shiftID uuid.UUID) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, q.ext, &count,
		`SELECT COUNT(*) FROM disputes WHERE shift_id = $1 AND status IN ('open', 'in_review')`, shiftID); err != nil {
		return 0, fmt.Errorf("dispute repository: count open %w", err)
	}
	return count, nil
}

// UpdateDispute сохраняет статус и решение, если версия не изменилась.
func (q *queries) UpdateDispute(ctx context.Context, d *models.Dispute, expectedVersion int64) error {
	result, err := q.ext.ExecContext(ctx, `
		UPDATE disputes
		SET status = $3, resolution = $4, admin_notes = $5, resolved_by = $6, resolved_at = $7,
			refund_applied = $8, ban_applied = $9, version = $2 + 1, updated_at = $10
		WHERE id = $1 AND version = $2
	`, d.ID, expectedVersion, d.Status, d.Resolution, d.AdminNotes, d.ResolvedBy, d.ResolvedAt,
		d.RefundApplied, d.BanApplied, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("dispute repository: update %w", err)
	}
	if err := common.ExpectOneRow(result, domainrepo.ErrVersionConflict); err != nil {
		return err
	}
	d.Version = expectedVersion + 1
	return nil
}

func (q *queries) GetWorkerProfile(ctx context.Context, userID uuid.UUID) (*models.WorkerProfile, error) {
	p, err := common.GetByField[models.WorkerProfile](ctx, q.ext, "worker_profiles", "user_id", userID, domainrepo.ErrProfileNotFound)
	if err != nil && err != domainrepo.ErrProfileNotFound {
		return nil, fmt.Errorf("worker profile repository: %w", err)
	}
	return p, err
}

// UpsertWorkerProfile создаёт профиль работника или обновляет бан.
func (q *queries) UpsertWorkerProfile(ctx context.Context, p *models.WorkerProfile) error {
	_, err := q.ext.ExecContext(ctx, `
		INSERT INTO worker_profiles (user_id, banned, ban_until, ban_reason, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET banned = EXCLUDED.banned, ban_until = EXCLUDED.ban_until,
			ban_reason = EXCLUDED.ban_reason, updated_at = EXCLUDED.updated_at
	`, p.UserID, p.Banned, p.BanUntil, p.BanReason, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("worker profile repository: upsert %w", err)
	}
	return nil
}
