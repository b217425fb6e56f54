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

// InsertRating вставляет оценку. Повтор тройки (смена, от кого, кому) даёт false без ошибки.
func (q *queries) InsertRating(ctx context.Context, r *models.Rating) (bool, error) {
	query := `
		INSERT INTO ratings (id, shift_id, from_user_id, to_user_id, value, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (shift_id, from_user_id, to_user_id) DO NOTHING
	`
	result, err := q.ext.ExecContext(ctx, query, r.ID, r.ShiftID, r.FromUserID, r.ToUserID, r.Value, r.Comment, r.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("rating repository: insert %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rating repository: insert rows affected %w", err)
	}
	return rows == 1, nil
}

// ListShiftRatings возвращает оценки по смене.
func (q *queries) ListShiftRatings(ctx context.Context, shiftID uuid.UUID) ([]*models.Rating, error) {
	var ratings []*models.Rating
	if err := sqlx.SelectContext(ctx, q.ext, &ratings,
		`SELECT * FROM ratings WHERE shift_id = $1 ORDER BY created_at`, shiftID); err != nil {
		return nil, fmt.Errorf("rating repository: list by shift %w", err)
	}
	return ratings, nil
}

// ListUserRatings возвращает оценки, полученные пользователем.
func (q *queries) ListUserRatings(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Rating, error) {
	var ratings []*models.Rating
	if err := sqlx.SelectContext(ctx, q.ext, &ratings, `
		SELECT * FROM ratings WHERE to_user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("rating repository: list by user %w", err)
	}
	return ratings, nil
}

// GetRatingStat возвращает агрегат оценок пользователя.
func (q *queries) GetRatingStat(ctx context.Context, userID uuid.UUID) (*models.UserRatingStat, error) {
	stat, err := common.GetByField[models.UserRatingStat](ctx, q.ext, "user_rating_stats", "user_id", userID, domainrepo.ErrStatNotFound)
	if err != nil && err != domainrepo.ErrStatNotFound {
		return nil, fmt.Errorf("rating repository: %w", err)
	}
	return stat, err
}

// LockRatingStat создаёт пустую строку статистики при отсутствии и блокирует её.
func (q *queries) LockRatingStat(ctx context.Context, userID uuid.UUID) (*models.UserRatingStat, error) {
	if _, err := q.ext.ExecContext(ctx,
		`INSERT INTO user_rating_stats (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return nil, fmt.Errorf("rating repository: ensure stat %w", err)
	}
	stat, err := common.GetOne[models.UserRatingStat](ctx, q.ext, domainrepo.ErrStatNotFound,
		`SELECT * FROM user_rating_stats WHERE user_id = $1 FOR UPDATE`, userID)
	if err != nil && err != domainrepo.ErrStatNotFound {
		return nil, fmt.Errorf("rating repository: lock stat %w", err)
	}
	return stat, err
}

// SaveRatingStat сохраняет статистику, если версия не изменилась.
func (q *queries) SaveRatingStat(ctx context.Context, stat *models.UserRatingStat, expectedVersion int64) error {
	result, err := q.ext.ExecContext(ctx, `
		UPDATE user_rating_stats
		SET average = $3, rating_count = $4, rating_sum = $5, version = $2 + 1, updated_at = $6
		WHERE user_id = $1 AND version = $2
	`, stat.UserID, expectedVersion, stat.Average, stat.RatingCount, stat.RatingSum, stat.UpdatedAt)
	if err != nil {
		return fmt.Errorf("rating repository: save stat %w", err)
	}
	if err := common.ExpectOneRow(result, domainrepo.ErrVersionConflict); err != nil {
		return err
	}
	stat.Version = expectedVersion + 1
	return nil
}
