package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/crew-shifts-backend/internal/config"
	domainrepo "github.com/ignatzorin/crew-shifts-backend/internal/domain/repository"
	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crew-shifts-backend/internal/escrow"
	"github.com/ignatzorin/crew-shifts-backend/internal/logger"
	"github.com/ignatzorin/crew-shifts-backend/internal/models"
	"github.com/ignatzorin/crew-shifts-backend/internal/pkg/apperror"
	"github.com/ignatzorin/crew-shifts-backend/internal/validation"
)

// Caller пользователь (или система), от имени которого выполняется операция.
type Caller struct {
	ID   uuid.UUID
	Role valueobject.Actor
}

// SystemCaller используется планировщиком и CLI.
var SystemCaller = Caller{Role: valueobject.ActorSystem}

// TransitionResult результат зафиксированного перехода.
// Warnings описывают сбои адаптеров после коммита: сам переход уже сохранён.
type TransitionResult struct {
	Shift      *models.Shift      `json:"shift"`
	Assignment *models.Assignment `json:"assignment,omitempty"`
	Escrow     *models.EscrowHold `json:"escrow,omitempty"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// CreateShiftInput условия новой смены.
type CreateShiftInput struct {
	ClientID          *uuid.UUID
	Title             string    `validate:"required"`
	Category          string    `validate:"required,max=100"`
	Location          string    `validate:"required,max=300"`
	StartsAt          time.Time `validate:"required"`
	EndsAt            time.Time `validate:"required,gtfield=StartsAt"`
	RequiredWorkers   int       `validate:"min=1,max=500"`
	PayRate           int64     `validate:"gt=0"`
	CommissionPercent *decimal.Decimal
}

// ShiftService ведёт смену по workflow от набора до выплаты.
type ShiftService struct {
	ledger   domainrepo.Ledger
	escrow   *EscrowService
	notifier Notifier
	policy   config.Policy
	now      func() time.Time
}

func NewShiftService(ledger domainrepo.Ledger, escrowService *EscrowService, notifier Notifier, policy config.Policy) *ShiftService {
	return &ShiftService{
		ledger:   ledger,
		escrow:   escrowService,
		notifier: notifier,
		policy:   policy,
		now:      time.Now,
	}
}

// CreateShift публикует новую смену в состоянии open.
func (s *ShiftService) CreateShift(ctx context.Context, caller Caller, in CreateShiftInput) (*models.Shift, error) {
	if caller.Role != valueobject.ActorClient && caller.Role != valueobject.ActorAdmin {
		return nil, apperror.ErrForbidden
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := validation.ValidateShiftTitle(in.Title); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	rate, err := valueobject.NewPayRate(in.PayRate, s.policy.MinPayRate)
	if err != nil {
		return nil, err
	}

	percent := s.policy.DefaultCommission
	clientID := caller.ID
	if caller.Role == valueobject.ActorAdmin {
		if in.CommissionPercent != nil {
			percent = *in.CommissionPercent
		}
		if in.ClientID != nil {
			clientID = *in.ClientID
		}
	}
	commission, err := valueobject.NewCommissionPercent(percent)
	if err != nil {
		return nil, err
	}
	if _, err := escrow.Compute(in.RequiredWorkers, rate.Amount.Int64(), commission.Value); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	shift := &models.Shift{
		ID:                uuid.New(),
		ClientID:          clientID,
		Title:             in.Title,
		Category:          in.Category,
		Location:          in.Location,
		StartsAt:          in.StartsAt.UTC(),
		EndsAt:            in.EndsAt.UTC(),
		RequiredWorkers:   in.RequiredWorkers,
		PayRate:           rate.Amount.Int64(),
		CommissionPercent: commission.Value,
		State:             valueobject.ShiftOpen,
		StateChangedAt:    now,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err = s.ledger.WithTx(ctx, func(tx domainrepo.LedgerTx) error {
		return tx.CreateShift(ctx, shift)
	})
	if err != nil {
		return nil, translateLedgerErr(err)
	}

	s.logTransition("shift.create", shift, caller)
	return shift, nil
}

// ApplyToShift создаёт отклик работника на открытую смену.
func (s *ShiftService) ApplyToShift(ctx context.Context, caller Caller, shiftID uuid.UUID, message *string) (*models.Application, error) {
	if caller.Role != valueobject.ActorWorker {
		return nil, apperror.ErrForbidden
	}
	if err := validation.ValidateOptionalText("сообщение", message, validation.MaxApplicationMessageLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	now := s.now().UTC()
	app := &models.Application{
		ID:        uuid.New(),
		ShiftID:   shiftID,
		WorkerID:  caller.ID,
		Status:    valueobject.ApplicationPending,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.ledger.WithTx(ctx, func(tx domainrepo.LedgerTx) error {
		shift, err := tx.GetShift(ctx, shiftID)
		if err != nil {
			return err
		}
		if shift.EffectiveState() != valueobject.ShiftOpen || shift.State == valueobject.ShiftDisputed {
			return apperror.Newf(apperror.ErrCodeInvalidTransition, "смена в состоянии %s не принимает отклики", shift.State)
		}
		if err := checkNotBanned(ctx, tx, caller.ID, now); err != nil {
			return err
		}
		return tx.CreateApplication(ctx, app)
	})
	if err != nil {
		return nil, translateLedgerErr(err)
	}
	return app, nil
}

// ApproveApplication назначает работника. Когда набор закрыт, создаётся холд
// и после коммита запрашивается блокировка денег у провайдера.
func (s *ShiftService) ApproveApplication(ctx context.Context, caller Caller, shiftID, workerID uuid.UUID) (*TransitionResult, error) {
	now := s.now().UTC()
	res := &TransitionResult{}
	var pendingHold *models.EscrowHold

	err := s.ledger.WithTx(ctx, func(tx domainrepo.LedgerTx) error {
		shift, err := tx.LockShift(ctx, shiftID)
		if err != nil {
			return err
		}
		if err := checkClientOwnership(caller, shift); err != nil {
			return err
		}

		assignments, err := tx.ListShiftAssignments(ctx, shiftID)
		if err != nil {
			return err
		}
		active := 0
		for _, a := range assignments {
			if a.State != valueobject.AssignmentCancelled {
				active++
			}
		}
		if active >= shift.RequiredWorkers {
			return apperror.New(apperror.ErrCodeInvalidTransition, "на смену уже назначено нужное число работников")
		}
		quotaMet := active+1 == shift.RequiredWorkers

		next, err := valueobject.NextShiftState(shift.EffectiveState(), valueobject.EventApprove, caller.Role,
			valueobject.TransitionFacts{QuotaMet: quotaMet})
		if err != nil {
			return err
		}

		app, err := tx.GetApplication(ctx, shiftID, workerID)
		if err != nil {
			return err
		}
		if app.Status != valueobject.ApplicationPending {
			return apperror.Newf(apperror.ErrCodeInvalidTransition, "отклик уже в статусе %s", app.Status)
		}
		if err := checkNotBanned(ctx, tx, workerID, now); err != nil {
			return err
		}

		assignment := &models.Assignment{
			ID:        uuid.New(),
			ShiftID:   shiftID,
			WorkerID:  workerID,
			State:     valueobject.AssignmentAssigned,
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.CreateAssignment(ctx, assignment); err != nil {
			return err
		}
		if err := tx.UpdateApplicationStatus(ctx, app.ID, valueobject.ApplicationApproved); err != nil {
			return err
		}

		if quotaMet {
			hold, err := newPendingHold(shift, now)
			if err != nil {
				return err
			}
			if err := tx.CreateEscrow(ctx, hold); err != nil {
				return err
			}
			pendingHold = hold
		}

		moveShift(shift, next, now)
		if err := tx.UpdateShift(ctx, shift, shift.Version); err != nil {
			return err
		}
		res.Shift, res.Assignment, res.Escrow = shift, assignment, pendingHold
		return nil
	})
	if err != nil {
		return nil, translateLedgerErr(err)
	}

	s.logTransition("shift.approve", res.Shift, caller)
	if pendingHold != nil {
		res.Warnings = append(res.Warnings, s.escrow.ConfirmHold(ctx, pendingHold)...)
	}
	s.notify(ctx, workerID, EventApplicationApproved, map[string]any{
		"shift_id":      shiftID,
		"assignment_id": res.Assignment.ID,
	})
	return res, nil
}

// MarkOnWay отмечает, что работник выехал на объект.
func (s *ShiftService) MarkOnWay(ctx context.Context, caller Caller, assignmentID uuid.UUID) (*TransitionResult, error) {
	if caller.Role != valueobject.ActorWorker {
		return nil, apperror.Newf(apperror.ErrCodeInvalidTransition, "роль %s не может отметить выезд", caller.Role)
	}
	now := s.now().UTC()
	res := &TransitionResult{}

	err := s.ledger.WithTx(ctx, func(tx domainrepo.LedgerTx) error {
		shift, a, err := lockAssignment(ctx, tx, caller, assignmentID)
		if err != nil {
			return err
		}
		if shift.State == valueobject.ShiftDisputed {
			return apperror.New(apperror.ErrCodeInvalidTransition, "смена заморожена открытым спором")
		}
		eff := shift.EffectiveState()
		if eff != valueobject.ShiftAssigned && eff != valueobject.ShiftCheckedIn {
			return apperror.Newf(apperror.ErrCodeInvalidTransition, "выезд недопустим в состоянии %s", eff)
		}
		if !a.State.CanTransitionTo(valueobject.AssignmentOnWay) {
			return apperror.Newf(apperror.ErrCodeInvalidTransition, "назначение в состоянии %s", a.State)
		}

		a.State = valueobject.AssignmentOnWay
		a.OnWayAt = &now
		a.UpdatedAt = now
		if err := tx.UpdateAssignment(ctx, a, a.Version); err != nil {
			return err
		}
		shift.UpdatedAt = now
		if err := tx.UpdateShift(ctx, shift, shift.Version); err != nil {
			return err
		}
		res.Shift, res.Assignment = shift, a
		return nil
	})
	if err != nil {
		return nil, translateLedgerErr(err)
	}
	return res, nil
}

// CheckIn фиксирует приход работника. Время отметки серверное и должно попасть
// в окно смены с учётом CHECKIN_GRACE.
func (s *ShiftService) CheckIn(ctx context.Context, caller Caller, assignmentID uuid.UUID, evidence models.CheckInEvidence) (*TransitionResult, error) {
	if (evidence.Latitude == nil) != (evidence.Longitude == nil) {
		return nil, apperror.New(apperror.ErrCodeValidation, "координаты передаются парой")
	}
	now := s.now().UTC()
	evidence.At = now
	res := &TransitionResult{}
	var clientID uuid.UUID

	err := s.ledger.WithTx(ctx, func(tx domainrepo.LedgerTx) error {
		shift, a, err := lockAssignment(ctx, tx, caller, assignmentID)
		if err != nil {
			return err
		}
		next, err := valueobject.NextShiftState(shift.EffectiveState(), valueobject.EventCheckIn, caller.Role, valueobject.TransitionFacts{})
		if err != nil {
			return err
		}
		if !a.State.CanTransitionTo(valueobject.AssignmentCheckedIn) {
			return apperror.Newf(apperror.ErrCodeInvalidTransition, "назначение в состоянии %s", a.State)
		}
		windowStart := shift.StartsAt.Add(-s.policy.CheckInGrace)
		windowEnd := shift.EndsAt.Add(s.policy.CheckInGrace)
		if evidence.At.Before(windowStart) || evidence.At.After(windowEnd) {
			return apperror.New(apperror.ErrCodeInvalidTransition, "отметка о приходе вне окна смены")
		}

		a.State = valueobject.AssignmentCheckedIn
		a.CheckedInAt = &evidence.At
		a.CheckInLatitude = evidence.Latitude
		a.CheckInLongitude = evidence.Longitude
		if evidence.PhotoHandle != "" {
			photo := evidence.PhotoHandle
			a.CheckInPhoto = &photo
		}
		a.UpdatedAt = now
		if err := tx.UpdateAssignment(ctx, a, a.Version); err != nil {
			return err
		}

		moveShift(shift, next, now)
		if err := tx.UpdateShift(ctx, shift, shift.Version); err != nil {
			return err
		}
		clientID = shift.ClientID
		res.Shift, res.Assignment = shift, a
		return nil
	})
	if err != nil {
		return nil, translateLedgerErr(err)
	}

	s.logTransition("shift.check_in", res.Shift, caller)
	s.notify(ctx, clientID, EventWorkerCheckedIn, map[string]any{
		"shift_id":      res.Shift.ID,
		"assignment_id": assignmentID,
		"worker_id":     res.Assignment.WorkerID,
	})
	return res, nil
}

// CheckOut отмечает уход работника. Когда ушли все отметившиеся, смена ждёт подтверждения клиента.
func (s *ShiftService) CheckOut(ctx context.Context, caller Caller, assignmentID uuid.UUID) (*TransitionResult, error) {
	now := s.now().UTC()
	res := &TransitionResult{}

	err := s.ledger.WithTx(ctx, func(tx domainrepo.LedgerTx) error {
		shift, a, err := lockAssignment(ctx, tx, caller, assignmentID)
		if err != nil {
			return err
		}
		if a.State != valueobject.AssignmentCheckedIn || a.CheckedOutAt != nil {
			return apperror.Newf(apperror.ErrCodeInvalidTransition, "уход недопустим для назначения в состоянии %s", a.State)
		}
		assignments, err := tx.ListShiftAssignments(ctx, shift.ID)
		if err != nil {
			return err
		}
		allOut := true
		for _, other := range assignments {
			if other.ID == a.ID || !isPendingWork(other.State) {
				continue
			}
			if other.State != valueobject.AssignmentCheckedIn || other.CheckedOutAt == nil {
				allOut = false
			}
		}
		next, err := valueobject.NextShiftState(shift.EffectiveState(), valueobject.EventCheckOut, caller.Role,
			valueobject.TransitionFacts{AllCheckedOut: allOut})
		if err != nil {
			return err
		}

		a.CheckedOutAt = &now
		a.UpdatedAt = now
		if err := tx.UpdateAssignment(ctx, a, a.Version); err != nil {
			return err
		}
		moveShift(shift, next, now)
		if err := tx.UpdateShift(ctx, shift, shift.Version); err != nil {
			return err
		}
		res.Shift, res.Assignment = shift, a
		return nil
	})
	if err != nil {
		return nil, translateLedgerErr(err)
	}

	s.logTransition("shift.check_out", res.Shift, caller)
	return res, nil
}

// CompleteShift отмечает выполнение смены клиентом. Не отметившиеся работники
// становятся no_show, деньги не двигаются.
func (s *ShiftService) CompleteShift(ctx context.Context, caller Caller, shiftID uuid.UUID) (*TransitionResult, error) {
	now := s.now().UTC()
	res := &TransitionResult{}
	var toConfirm []uuid.UUID

	err := s.ledger.WithTx(ctx, func(tx domainrepo.LedgerTx) error {
		shift, err := tx.GetShift(ctx, shiftID)
		if err != nil {
			return err
		}
		if err := checkClientOwnership(caller, shift); err != nil {
			return err
		}
		next, err := valueobject.NextShiftState(shift.EffectiveState(), valueobject.EventComplete, caller.Role, valueobject.TransitionFacts{})
		if err != nil {
			return err
		}

		assignments, err := tx.ListShiftAssignments(ctx, shiftID)
		if err != nil {
			return err
		}
		for _, a := range assignments {
			if a.State == valueobject.AssignmentCheckedIn {
				toConfirm = append(toConfirm, a.WorkerID)
			}
		}
		if len(toConfirm) == 0 {
			return apperror.New(apperror.ErrCodeInvalidTransition, "ни один работник не отметился на смене")
		}

		for _, a := range assignments {
			if a.State != valueobject.AssignmentAssigned && a.State != valueobject.AssignmentOnWay {
				continue
			}
			a.State = valueobject.AssignmentNoShow
			a.UpdatedAt = now
			if err := tx.UpdateAssignment(ctx, a, a.Version); err != nil {
				return err
			}
		}

		moveShift(shift, next, now)
		if err := tx.UpdateShift(ctx, shift, shift.Version); err != nil {
			return err
		}
		res.Shift = shift
		return nil
	})
	if err != nil {
		return nil, translateLedgerErr(err)
	}

	s.logTransition("shift.complete", res.Shift, caller)
	for _, workerID := range toConfirm {
		s.notify(ctx, workerID, EventShiftCompleteMarked, map[string]any{"shift_id": shiftID})
	}
	return res, nil
}

// ConfirmCompletion подтверждение выполнения работником. Подтверждения по одной смене
// сериализуются блокировкой строки смены. Назначения переходят в completed вместе
// со сменой, когда подтвердил последний отметившийся работник.
func (s *ShiftService) ConfirmCompletion(ctx context.Context, caller Caller, assignmentID uuid.UUID) (*TransitionResult, error) {
	now := s.now().UTC()
	res := &TransitionResult{}

	err := s.ledger.WithTx(ctx, func(tx domainrepo.LedgerTx) error {
		shift, a, err := lockAssignment(ctx, tx, caller, assignmentID)
		if err != nil {
			return err
		}
		assignments, err := tx.ListShiftAssignments(ctx, shift.ID)
		if err != nil {
			return err
		}
		allConfirmed := true
		for _, other := range assignments {
			if other.ID != a.ID && other.State == valueobject.AssignmentCheckedIn && other.ConfirmedAt == nil {
				allConfirmed = false
			}
		}
		next, err := valueobject.NextShiftState(shift.EffectiveState(), valueobject.EventConfirm, caller.Role,
			valueobject.TransitionFacts{AllConfirmed: allConfirmed})
		if err != nil {
			return err
		}
		if a.State != valueobject.AssignmentCheckedIn || a.ConfirmedAt != nil {
			return apperror.Newf(apperror.ErrCodeInvalidTransition, "подтверждение недопустимо для назначения в состоянии %s", a.State)
		}

		a.ConfirmedAt = &now
		a.UpdatedAt = now
		if next == valueobject.ShiftAwaitingRating {
			if err := completeCheckedIn(ctx, tx, assignments, a, now); err != nil {
				return err
			}
		} else if err := tx.UpdateAssignment(ctx, a, a.Version); err != nil {
			return err
		}

		moveShift(shift, next, now)
		if err := tx.UpdateShift(ctx, shift, shift.Version); err != nil {
			return err
		}
		res.Shift, res.Assignment = shift, a
		return nil
	})
	if err != nil {
		return nil, translateLedgerErr(err)
	}

	s.logTransition("shift.confirm", res.Shift, caller)
	return res, nil
}

// AdvanceConfirmTimeout переводит смену к оценкам, если работники молчат дольше
// WORKER_CONFIRM_TIMEOUT. Неподтверждённые назначения засчитываются выполненными
// (confirmed_at остаётся пустым).
func (s *ShiftService) AdvanceConfirmTimeout(ctx context.Context, shiftID uuid.UUID) (*TransitionResult, error) {
	now := s.now().UTC()
	res := &TransitionResult{}

	err := s.ledger.WithTx(ctx, func(tx domainrepo.LedgerTx) error {
		shift, err := tx.GetShift(ctx, shiftID)
		if err != nil {
			return err
		}
		next, err := valueobject.NextShiftState(shift.EffectiveState(), valueobject.EventConfirmTimeout, valueobject.ActorSystem, valueobject.TransitionFacts{})
		if err != nil {
			return err
		}
		if now.Before(shift.StateChangedAt.Add(s.policy.WorkerConfirmTimeout)) {
			return apperror.New(apperror.ErrCodeInvalidTransition, "срок подтверждения работниками ещё не истёк")
		}

		assignments, err := tx.ListShiftAssignments(ctx, shiftID)
		if err != nil {
			return err
		}
		if err := completeCheckedIn(ctx, tx, assignments, nil, now); err != nil {
			return err
		}

		moveShift(shift, next, now)
		if err := tx.UpdateShift(ctx, shift, shift.Version); err != nil {
			return err
		}
		res.Shift = shift
		return nil
	})
	if err != nil {
		return nil, translateLedgerErr(err)
	}

	s.logTransition("shift.confirm_timeout", res.Shift, SystemCaller)
	return res, nil
}

// FinalizeShift завершает смену и распределяет холд. Нужны все оценки либо
// истёкший RATING_GRACE_PERIOD; админ может завершить принудительно (force).
// Если холд возвращён по спору, смена закрывается без выплат.
func (s *ShiftService) FinalizeShift(ctx context.Context, caller Caller, shiftID uuid.UUID, force bool) (*TransitionResult, error) {
	force = force && caller.Role == valueobject.ActorAdmin
	now := s.now().UTC()
	res := &TransitionResult{}
	var paid []uuid.UUID
	var clientID uuid.UUID
	released := false

	err := s.ledger.WithTx(ctx, func(tx domainrepo.LedgerTx) error {
		shift, err := tx.GetShift(ctx, shiftID)
		if err != nil {
			return err
		}
		hold, err := tx.GetShiftEscrow(ctx, shiftID)
		if errors.Is(err, domainrepo.ErrEscrowNotFound) {
			return apperror.New(apperror.ErrCodeInvalidTransition, "по смене не создан холд")
		}
		if err != nil {
			return err
		}

		refunded := hold.Status == valueobject.EscrowRefunded
		next, err := valueobject.NextShiftState(shift.EffectiveState(), valueobject.EventFinalize, caller.Role,
			valueobject.TransitionFacts{EscrowRefunded: refunded})
		if err != nil {
			return err
		}

		if !refunded {
			if hold.Status != valueobject.EscrowHeld {
				return apperror.Newf(apperror.ErrCodeInvalidTransition, "средства по смене в статусе %s, выплата невозможна", hold.Status)
			}
			assignments, err := tx.ListShiftAssignments(ctx, shiftID)
			if err != nil {
				return err
			}
			if !force && now.Before(shift.StateChangedAt.Add(s.policy.RatingGracePeriod)) {
				ratings, err := tx.ListShiftRatings(ctx, shiftID)
				if err != nil {
					return err
				}
				if !requiredRatingsPresent(shift, assignments, ratings) {
					return apperror.New(apperror.ErrCodeInvalidTransition, "не все участники выставили оценки")
				}
			}

			for _, a := range assignments {
				if a.State == valueobject.AssignmentCompleted {
					paid = append(paid, a.WorkerID)
				}
			}
			settlement, err := escrow.Settle(hold.Quote(), len(paid))
			if err != nil {
				logger.BugReport("shift.finalize", logrus.Fields{
					"shift_id": shiftID, "hold_id": hold.ID, "total": hold.TotalAmount, "paid_workers": len(paid),
				})
				return err
			}
			entries := settlementEntries(hold, settlement, paid, now)
			if sum := sumEntries(entries); sum != hold.TotalAmount {
				logger.BugReport("shift.finalize", logrus.Fields{
					"shift_id": shiftID, "hold_id": hold.ID, "total": hold.TotalAmount, "entries_sum": sum,
				})
				return apperror.ErrEscrowInconsistency
			}
			if err := tx.TransitionEscrow(ctx, hold.ID, valueobject.EscrowHeld, valueobject.EscrowReleased, now); err != nil {
				return err
			}
			if err := tx.AddLedgerEntries(ctx, entries); err != nil {
				return err
			}
			hold.Status = valueobject.EscrowReleased
			hold.ResolvedAt = &now
			released = true
		}

		shift.CompletedAt = &now
		moveShift(shift, next, now)
		if err := tx.UpdateShift(ctx, shift, shift.Version); err != nil {
			return err
		}
		clientID = shift.ClientID
		res.Shift, res.Escrow = shift, hold
		return nil
	})
	if err != nil {
		return nil, translateLedgerErr(err)
	}

	s.logTransition("shift.finalize", res.Shift, caller)
	if released {
		res.Warnings = append(res.Warnings, s.escrow.Release(ctx, res.Escrow)...)
	}
	payload := map[string]any{"shift_id": shiftID}
	s.notify(ctx, clientID, EventShiftCompleted, payload)
	for _, workerID := range paid {
		s.notify(ctx, workerID, EventShiftCompleted, payload)
	}
	return res, nil
}

// CancelShift отменяет смену до начала работ. Холд в pending аннулируется,
// заблокированные средства возвращаются только через спор.
func (s *ShiftService) CancelShift(ctx context.Context, caller Caller, shiftID uuid.UUID, reason *string) (*TransitionResult, error) {
	if err := validation.ValidateOptionalText("причина отмены", reason, validation.MaxCancelReasonLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	now := s.now().UTC()
	res := &TransitionResult{}
	var workers []uuid.UUID

	err := s.ledger.WithTx(ctx, func(tx domainrepo.LedgerTx) error {
		shift, err := tx.GetShift(ctx, shiftID)
		if err != nil {
			return err
		}
		if err := checkClientOwnership(caller, shift); err != nil {
			return err
		}
		next, err := valueobject.NextShiftState(shift.EffectiveState(), valueobject.EventCancel, caller.Role, valueobject.TransitionFacts{})
		if err != nil {
			return err
		}

		hold, err := tx.GetShiftEscrow(ctx, shiftID)
		switch {
		case errors.Is(err, domainrepo.ErrEscrowNotFound):
			hold = nil
		case err != nil:
			return err
		case hold.Status == valueobject.EscrowHeld:
			return apperror.New(apperror.ErrCodeInvalidTransition, "средства уже заблокированы, отмена возможна только через спор")
		case hold.Status == valueobject.EscrowPending:
			if err := tx.TransitionEscrow(ctx, hold.ID, valueobject.EscrowPending, valueobject.EscrowRefunded, now); err != nil {
				return err
			}
			hold.Status = valueobject.EscrowRefunded
			hold.ResolvedAt = &now
		}

		assignments, err := tx.ListShiftAssignments(ctx, shiftID)
		if err != nil {
			return err
		}
		for _, a := range assignments {
			if !a.State.CanTransitionTo(valueobject.AssignmentCancelled) {
				continue
			}
			a.State = valueobject.AssignmentCancelled
			a.UpdatedAt = now
			if err := tx.UpdateAssignment(ctx, a, a.Version); err != nil {
				return err
			}
			workers = append(workers, a.WorkerID)
		}

		shift.CancelReason = reason
		moveShift(shift, next, now)
		if err := tx.UpdateShift(ctx, shift, shift.Version); err != nil {
			return err
		}
		res.Shift, res.Escrow = shift, hold
		return nil
	})
	if err != nil {
		return nil, translateLedgerErr(err)
	}

	s.logTransition("shift.cancel", res.Shift, caller)
	for _, workerID := range workers {
		s.notify(ctx, workerID, EventShiftCancelled, map[string]any{"shift_id": shiftID})
	}
	return res, nil
}

// GetShiftDetails возвращает смену с назначениями, холдом и журналом.
// Доступно клиенту смены, назначенным работникам и администратору.
func (s *ShiftService) GetShiftDetails(ctx context.Context, caller Caller, shiftID uuid.UUID) (*models.ShiftDetails, error) {
	shift, err := s.ledger.GetShift(ctx, shiftID)
	if err != nil {
		return nil, translateLedgerErr(err)
	}
	assignments, err := s.ledger.ListShiftAssignments(ctx, shiftID)
	if err != nil {
		return nil, translateLedgerErr(err)
	}
	if !canViewShift(caller, shift, assignments) {
		return nil, apperror.ErrForbidden
	}

	details := &models.ShiftDetails{Shift: shift, Assignments: assignments}
	hold, err := s.ledger.GetShiftEscrow(ctx, shiftID)
	switch {
	case errors.Is(err, domainrepo.ErrEscrowNotFound):
	case err != nil:
		return nil, translateLedgerErr(err)
	default:
		details.Escrow = hold
	}
	entries, err := s.ledger.ListLedgerEntries(ctx, shiftID)
	if err != nil {
		return nil, translateLedgerErr(err)
	}
	details.LedgerEntries = entries
	return details, nil
}

func (s *ShiftService) notify(ctx context.Context, userID uuid.UUID, event string, data any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, userID, event, data)
}

func (s *ShiftService) logTransition(op string, shift *models.Shift, caller Caller) {
	logger.Op(op).WithFields(logrus.Fields{
		"shift_id": shift.ID,
		"actor_id": caller.ID,
		"actor":    caller.Role,
		"state":    shift.State,
		"version":  shift.Version,
	}).Info("shift transition committed")
}

// moveShift применяет новое состояние. resume_state живёт только пока смена
// в споре или сразу после его закрытия.
func moveShift(shift *models.Shift, next valueobject.ShiftState, now time.Time) {
	if shift.State != next {
		shift.State = next
		shift.StateChangedAt = now
	}
	if next != valueobject.ShiftDisputed && !next.IsPostDispute() {
		shift.ResumeState = nil
	}
	shift.UpdatedAt = now
}

// lockAssignment блокирует смену назначения и перечитывает назначение под блокировкой.
func lockAssignment(ctx context.Context, tx domainrepo.LedgerTx, caller Caller, assignmentID uuid.UUID) (*models.Shift, *models.Assignment, error) {
	a, err := tx.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, nil, err
	}
	shift, err := tx.LockShift(ctx, a.ShiftID)
	if err != nil {
		return nil, nil, err
	}
	if a, err = tx.GetAssignment(ctx, assignmentID); err != nil {
		return nil, nil, err
	}
	if caller.Role == valueobject.ActorWorker && a.WorkerID != caller.ID {
		return nil, nil, apperror.ErrForbidden
	}
	return shift, a, nil
}

func checkClientOwnership(caller Caller, shift *models.Shift) error {
	if caller.Role == valueobject.ActorClient && shift.ClientID != caller.ID {
		return apperror.ErrForbidden
	}
	return nil
}

func checkNotBanned(ctx context.Context, tx domainrepo.LedgerReader, workerID uuid.UUID, now time.Time) error {
	profile, err := tx.GetWorkerProfile(ctx, workerID)
	if errors.Is(err, domainrepo.ErrProfileNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if profile.IsBannedAt(now) {
		return apperror.New(apperror.ErrCodeForbidden, "работник заблокирован")
	}
	return nil
}

// completeCheckedIn переводит отметившиеся назначения в completed при переходе смены к оценкам.
// current уже изменён вызывающим и заменяет свою копию из списка.
func completeCheckedIn(ctx context.Context, tx domainrepo.LedgerTx, assignments []*models.Assignment, current *models.Assignment, now time.Time) error {
	for _, a := range assignments {
		if current != nil && a.ID == current.ID {
			a = current
		}
		if a.State != valueobject.AssignmentCheckedIn {
			continue
		}
		a.State = valueobject.AssignmentCompleted
		a.UpdatedAt = now
		if err := tx.UpdateAssignment(ctx, a, a.Version); err != nil {
			return err
		}
	}
	return nil
}

// isPendingWork назначение, по которому работа ещё может быть выполнена.
func isPendingWork(state valueobject.AssignmentState) bool {
	return state == valueobject.AssignmentAssigned || state == valueobject.AssignmentOnWay || state == valueobject.AssignmentCheckedIn
}

func canViewShift(caller Caller, shift *models.Shift, assignments []*models.Assignment) bool {
	switch caller.Role {
	case valueobject.ActorAdmin, valueobject.ActorSystem:
		return true
	case valueobject.ActorClient:
		return shift.ClientID == caller.ID
	case valueobject.ActorWorker:
		for _, a := range assignments {
			if a.WorkerID == caller.ID {
				return true
			}
		}
	}
	return false
}

// requiredRatingsPresent проверяет взаимные оценки клиента и каждого выполнившего работника.
func requiredRatingsPresent(shift *models.Shift, assignments []*models.Assignment, ratings []*models.Rating) bool {
	type pair struct{ from, to uuid.UUID }
	given := make(map[pair]bool, len(ratings))
	for _, r := range ratings {
		given[pair{r.FromUserID, r.ToUserID}] = true
	}
	for _, a := range assignments {
		if a.State != valueobject.AssignmentCompleted {
			continue
		}
		if !given[pair{shift.ClientID, a.WorkerID}] || !given[pair{a.WorkerID, shift.ClientID}] {
			return false
		}
	}
	return true
}
