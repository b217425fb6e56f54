package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domainrepo "github.com/ignatzorin/crew-shifts-backend/internal/domain/repository"
	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crew-shifts-backend/internal/logger"
	"github.com/ignatzorin/crew-shifts-backend/internal/models"
	"github.com/ignatzorin/crew-shifts-backend/internal/pkg/apperror"
	"github.com/ignatzorin/crew-shifts-backend/internal/validation"
)

// ShiftFinalizer завершает смену, когда собраны все оценки.
type ShiftFinalizer interface {
	FinalizeShift(ctx context.Context, caller Caller, shiftID uuid.UUID, force bool) (*TransitionResult, error)
}

// RatingResult сохранённая оценка и новый агрегат получателя.
type RatingResult struct {
	Rating   *models.Rating         `json:"rating"`
	Stat     *models.UserRatingStat `json:"stat"`
	Warnings []string               `json:"warnings,omitempty"`
}

// RatingService принимает оценки после смены и ведёт агрегаты пользователей.
type RatingService struct {
	ledger    domainrepo.Ledger
	cache     StatCache
	notifier  Notifier
	finalizer ShiftFinalizer
	now       func() time.Time
}

func NewRatingService(ledger domainrepo.Ledger, cache StatCache, notifier Notifier, finalizer ShiftFinalizer) *RatingService {
	return &RatingService{
		ledger:    ledger,
		cache:     cache,
		notifier:  notifier,
		finalizer: finalizer,
		now:       time.Now,
	}
}

// NextRatingStat добавляет оценку к агрегату. Среднее считается из суммы,
// поэтому результат не зависит от порядка оценок.
func NextRatingStat(stat models.UserRatingStat, value int) models.UserRatingStat {
	stat.RatingSum += int64(value)
	stat.RatingCount++
	stat.Average = float64(stat.RatingSum) / float64(stat.RatingCount)
	return stat
}

// SubmitRating сохраняет оценку и обновляет агрегат получателя в одной транзакции.
func (s *RatingService) SubmitRating(ctx context.Context, caller Caller, shiftID, toUserID uuid.UUID, value int, comment *string) (*RatingResult, error) {
	if value < 1 || value > 5 {
		return nil, apperror.ErrOutOfRange
	}
	if err := validation.ValidateOptionalText("комментарий", comment, validation.MaxRatingCommentLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if caller.ID == toUserID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "нельзя оценить самого себя")
	}

	now := s.now().UTC()
	rating := &models.Rating{
		ID:         uuid.New(),
		ShiftID:    shiftID,
		FromUserID: caller.ID,
		ToUserID:   toUserID,
		Value:      value,
		Comment:    comment,
		CreatedAt:  now,
	}
	res := &RatingResult{Rating: rating}
	readyToFinalize := false

	err := s.ledger.WithTx(ctx, func(tx domainrepo.LedgerTx) error {
		shift, err := tx.GetShift(ctx, shiftID)
		if err != nil {
			return err
		}
		eff := shift.EffectiveState()
		if shift.State == valueobject.ShiftDisputed || (eff != valueobject.ShiftAwaitingRating && eff != valueobject.ShiftCompleted) {
			return apperror.Newf(apperror.ErrCodeInvalidTransition, "оценки недоступны в состоянии %s", shift.State)
		}
		assignments, err := tx.ListShiftAssignments(ctx, shiftID)
		if err != nil {
			return err
		}
		if !isRatingPair(shift, assignments, caller.ID, toUserID) {
			return apperror.New(apperror.ErrCodeForbidden, "оценивать могут только клиент и выполнившие смену работники друг друга")
		}

		inserted, err := tx.InsertRating(ctx, rating)
		if err != nil {
			return err
		}
		if !inserted {
			return apperror.ErrDuplicateRating
		}

		stat, err := tx.LockRatingStat(ctx, toUserID)
		if err != nil {
			return err
		}
		next := NextRatingStat(*stat, value)
		next.UpdatedAt = now
		if err := tx.SaveRatingStat(ctx, &next, stat.Version); err != nil {
			return err
		}
		res.Stat = &next

		if eff == valueobject.ShiftAwaitingRating {
			ratings, err := tx.ListShiftRatings(ctx, shiftID)
			if err != nil {
				return err
			}
			readyToFinalize = requiredRatingsPresent(shift, assignments, ratings)
		}
		return nil
	})
	if err != nil {
		return nil, translateLedgerErr(err)
	}

	logger.Op("rating.submit").WithFields(logrus.Fields{
		"shift_id": shiftID,
		"actor_id": caller.ID,
		"to_user":  toUserID,
		"value":    value,
	}).Info("rating committed")

	if s.cache != nil {
		s.cache.Invalidate(ctx, toUserID)
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, toUserID, EventRatingReceived, map[string]any{
			"shift_id": shiftID,
			"value":    value,
		})
	}
	if readyToFinalize && s.finalizer != nil {
		fin, err := s.finalizer.FinalizeShift(ctx, SystemCaller, shiftID, false)
		if err != nil {
			// Планировщик повторит завершение.
			logger.Op("rating.finalize").WithError(err).WithField("shift_id", shiftID).Warn("не удалось завершить смену после оценок")
		} else {
			res.Warnings = append(res.Warnings, fin.Warnings...)
		}
	}
	return res, nil
}

// GetUserRating возвращает агрегат пользователя. Пользователь без оценок
// получает нулевой агрегат.
func (s *RatingService) GetUserRating(ctx context.Context, userID uuid.UUID) (*models.UserRatingStat, error) {
	if s.cache != nil {
		if stat, ok := s.cache.Get(ctx, userID); ok {
			return stat, nil
		}
	}

	stat, err := s.ledger.GetRatingStat(ctx, userID)
	if errors.Is(err, domainrepo.ErrStatNotFound) {
		return &models.UserRatingStat{UserID: userID}, nil
	}
	if err != nil {
		return nil, translateLedgerErr(err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, stat)
	}
	return stat, nil
}

// ListUserRatings возвращает оценки, полученные пользователем.
func (s *RatingService) ListUserRatings(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Rating, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	ratings, err := s.ledger.ListUserRatings(ctx, userID, limit, offset)
	if err != nil {
		return nil, translateLedgerErr(err)
	}
	return ratings, nil
}

// ListShiftRatings возвращает оценки по смене.
func (s *RatingService) ListShiftRatings(ctx context.Context, shiftID uuid.UUID) ([]*models.Rating, error) {
	ratings, err := s.ledger.ListShiftRatings(ctx, shiftID)
	if err != nil {
		return nil, translateLedgerErr(err)
	}
	return ratings, nil
}

// isRatingPair: клиент оценивает выполнившего работника и наоборот.
func isRatingPair(shift *models.Shift, assignments []*models.Assignment, from, to uuid.UUID) bool {
	completed := func(userID uuid.UUID) bool {
		for _, a := range assignments {
			if a.WorkerID == userID && a.State == valueobject.AssignmentCompleted {
				return true
			}
		}
		return false
	}
	switch {
	case from == shift.ClientID:
		return completed(to)
	case to == shift.ClientID:
		return completed(from)
	}
	return false
}
