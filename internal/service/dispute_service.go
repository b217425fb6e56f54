package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/crew-shifts-backend/internal/config"
	domainrepo "github.com/ignatzorin/crew-shifts-backend/internal/domain/repository"
	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crew-shifts-backend/internal/logger"
	"github.com/ignatzorin/crew-shifts-backend/internal/models"
	"github.com/ignatzorin/crew-shifts-backend/internal/pkg/apperror"
	"github.com/ignatzorin/crew-shifts-backend/internal/validation"
)

// OpenDisputeInput жалоба участника. ShiftID может быть пустым.
type OpenDisputeInput struct {
	ShiftID       *uuid.UUID
	AgainstUserID uuid.UUID
	Reason        string
	Description   string
}

// BanInput бан пользователя, против которого открыт спор. Duration == nil означает бессрочный бан.
type BanInput struct {
	Duration *time.Duration
	Reason   string
}

// ResolveDisputeInput решение администратора.
type ResolveDisputeInput struct {
	Outcome        valueobject.DisputeOutcome
	ResolutionText string
	AdminNotes     *string
	ApplyRefund    bool
	Ban            *BanInput
}

// DisputeResult спор после операции и затронутые смена и холд.
type DisputeResult struct {
	Dispute  *models.Dispute    `json:"dispute"`
	Shift    *models.Shift      `json:"shift,omitempty"`
	Escrow   *models.EscrowHold `json:"escrow,omitempty"`
	Warnings []string           `json:"warnings,omitempty"`
}

// DisputeService открывает споры и применяет решения администратора.
type DisputeService struct {
	ledger    domainrepo.Ledger
	escrow    *EscrowService
	notifier  Notifier
	finalizer ShiftFinalizer
	policy    config.Policy
	now       func() time.Time
}

func NewDisputeService(ledger domainrepo.Ledger, escrowService *EscrowService, notifier Notifier, finalizer ShiftFinalizer, policy config.Policy) *DisputeService {
	return &DisputeService{
		ledger:    ledger,
		escrow:    escrowService,
		notifier:  notifier,
		finalizer: finalizer,
		policy:    policy,
		now:       time.Now,
	}
}

// OpenDispute создаёт спор и замораживает смену до его закрытия.
func (s *DisputeService) OpenDispute(ctx context.Context, caller Caller, in OpenDisputeInput) (*DisputeResult, error) {
	if caller.Role != valueobject.ActorClient && caller.Role != valueobject.ActorWorker {
		return nil, apperror.ErrForbidden
	}
	reason, err := valueobject.NewDisputeReason(in.Reason)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateDisputeDescription(in.Description); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.AgainstUserID == uuid.Nil || in.AgainstUserID == caller.ID {
		return nil, apperror.New(apperror.ErrCodeValidation, "спор открывается против другого пользователя")
	}

	now := s.now().UTC()
	d := &models.Dispute{
		ID:            uuid.New(),
		ShiftID:       in.ShiftID,
		CreatedBy:     caller.ID,
		AgainstUserID: in.AgainstUserID,
		Reason:        reason,
		Description:   strings.TrimSpace(in.Description),
		Status:        valueobject.DisputeOpen,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	res := &DisputeResult{Dispute: d}

	err = s.ledger.WithTx(ctx, func(tx domainrepo.LedgerTx) error {
		if in.ShiftID == nil {
			return tx.CreateDispute(ctx, d)
		}

		// Открытие и закрытие споров по смене сериализуются блокировкой смены.
		shift, err := tx.LockShift(ctx, *in.ShiftID)
		if err != nil {
			return err
		}
		if err := tx.CreateDispute(ctx, d); err != nil {
			return err
		}
		assignments, err := tx.ListShiftAssignments(ctx, shift.ID)
		if err != nil {
			return err
		}
		if !isShiftParticipant(shift, assignments, caller.ID) || !isShiftParticipant(shift, assignments, in.AgainstUserID) {
			return apperror.New(apperror.ErrCodeForbidden, "спор по смене открывают только её участники")
		}
		if shift.State == valueobject.ShiftCompleted && shift.CompletedAt != nil &&
			now.After(shift.CompletedAt.Add(s.policy.DisputeAppealWindow)) {
			return apperror.New(apperror.ErrCodeInvalidTransition, "срок обжалования смены истёк")
		}
		res.Shift = shift
		if shift.State == valueobject.ShiftDisputed {
			return nil
		}

		resume := shift.EffectiveState()
		next, err := valueobject.NextShiftState(resume, valueobject.EventDispute, caller.Role, valueobject.TransitionFacts{})
		if err != nil {
			return err
		}
		shift.ResumeState = &resume
		moveShift(shift, next, now)
		return tx.UpdateShift(ctx, shift, shift.Version)
	})
	if err != nil {
		return nil, translateLedgerErr(err)
	}

	logger.Op("dispute.open").WithFields(logrus.Fields{
		"dispute_id": d.ID,
		"shift_id":   d.ShiftID,
		"actor_id":   caller.ID,
		"reason":     d.Reason,
	}).Info("dispute opened")
	s.notify(ctx, d.AgainstUserID, EventDisputeOpened, map[string]any{
		"dispute_id": d.ID,
		"shift_id":   d.ShiftID,
		"reason":     d.Reason,
	})
	return res, nil
}

// TakeInReview переводит спор в работу администратора.
func (s *DisputeService) TakeInReview(ctx context.Context, caller Caller, disputeID uuid.UUID) (*models.Dispute, error) {
	if caller.Role != valueobject.ActorAdmin {
		return nil, apperror.ErrForbidden
	}
	now := s.now().UTC()
	var d *models.Dispute

	err := s.ledger.WithTx(ctx, func(tx domainrepo.LedgerTx) error {
		var err error
		d, err = tx.GetDispute(ctx, disputeID)
		if err != nil {
			return err
		}
		if d.Status.IsClosed() {
			return apperror.ErrAlreadyResolved
		}
		if !d.Status.CanTransitionTo(valueobject.DisputeInReview) {
			return apperror.Newf(apperror.ErrCodeInvalidTransition, "спор уже в статусе %s", d.Status)
		}
		d.Status = valueobject.DisputeInReview
		d.UpdatedAt = now
		return tx.UpdateDispute(ctx, d, d.Version)
	})
	if err != nil {
		return nil, translateLedgerErr(err)
	}
	return d, nil
}

// ResolveDispute закрывает спор. Статус, возврат холда и бан применяются в одной
// транзакции; провайдер узнаёт о возврате после коммита.
func (s *DisputeService) ResolveDispute(ctx context.Context, caller Caller, disputeID uuid.UUID, in ResolveDisputeInput) (*DisputeResult, error) {
	if caller.Role != valueobject.ActorAdmin {
		return nil, apperror.ErrForbidden
	}
	if !in.Outcome.IsValid() {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "решение должно быть resolve или reject, получено %q", in.Outcome)
	}
	text := strings.TrimSpace(in.ResolutionText)
	if text == "" {
		return nil, apperror.ErrMissingResolutionText
	}
	if err := validation.ValidateLength("текст решения", text, 0, validation.MaxResolutionLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateOptionalText("заметки администратора", in.AdminNotes, validation.MaxAdminNotesLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.Ban != nil && in.Ban.Duration != nil {
		if d := *in.Ban.Duration; d <= 0 || d > validation.MaxBanDuration {
			return nil, apperror.New(apperror.ErrCodeValidation, "срок бана должен быть от 1 часа до 10 лет")
		}
	}

	status := valueobject.DisputeResolved
	event := valueobject.EventResolve
	if in.Outcome == valueobject.OutcomeReject {
		status = valueobject.DisputeRejected
		event = valueobject.EventReject
	}

	now := s.now().UTC()
	res := &DisputeResult{}
	var refunded *models.EscrowHold

	err := s.ledger.WithTx(ctx, func(tx domainrepo.LedgerTx) error {
		d, err := tx.GetDispute(ctx, disputeID)
		if err != nil {
			return err
		}
		if d.Status.IsClosed() {
			return apperror.ErrAlreadyResolved
		}
		if !d.Status.CanTransitionTo(status) {
			return apperror.Newf(apperror.ErrCodeInvalidTransition, "спор нельзя перевести из %s в %s", d.Status, status)
		}

		var shift *models.Shift
		if d.ShiftID != nil {
			if shift, err = tx.LockShift(ctx, *d.ShiftID); err != nil {
				return err
			}
		}

		d.Status = status
		d.Resolution = &text
		d.AdminNotes = in.AdminNotes
		d.ResolvedBy = &caller.ID
		d.ResolvedAt = &now
		d.UpdatedAt = now

		if in.ApplyRefund {
			hold, warning, err := refundHeldEscrow(ctx, tx, d.ShiftID, now)
			if err != nil {
				return err
			}
			if warning != "" {
				res.Warnings = append(res.Warnings, warning)
			}
			if hold != nil {
				refunded = hold
				d.RefundApplied = true
				res.Escrow = hold
			}
		}

		if in.Ban != nil {
			profile := &models.WorkerProfile{
				UserID:    d.AgainstUserID,
				Banned:    true,
				UpdatedAt: now,
			}
			if in.Ban.Duration != nil {
				until := now.Add(*in.Ban.Duration)
				profile.BanUntil = &until
			}
			if reason := strings.TrimSpace(in.Ban.Reason); reason != "" {
				profile.BanReason = &reason
			} else {
				profile.BanReason = &text
			}
			if err := tx.UpsertWorkerProfile(ctx, profile); err != nil {
				return err
			}
			d.BanApplied = true
		}

		if err := tx.UpdateDispute(ctx, d, d.Version); err != nil {
			return err
		}
		res.Dispute = d

		if shift == nil {
			return nil
		}
		res.Shift = shift
		if shift.State != valueobject.ShiftDisputed {
			return nil
		}
		open, err := tx.CountOpenShiftDisputes(ctx, shift.ID)
		if err != nil {
			return err
		}
		if open > 0 {
			return nil
		}
		next, err := valueobject.NextShiftState(shift.State, event, caller.Role,
			valueobject.TransitionFacts{ResumeState: shift.ResumeState})
		if err != nil {
			return err
		}
		moveShift(shift, next, now)
		return tx.UpdateShift(ctx, shift, shift.Version)
	})
	if err != nil {
		return nil, translateLedgerErr(err)
	}

	d := res.Dispute
	logger.Op("dispute.resolve").WithFields(logrus.Fields{
		"dispute_id": d.ID,
		"shift_id":   d.ShiftID,
		"actor_id":   caller.ID,
		"status":     d.Status,
		"refund":     d.RefundApplied,
		"ban":        d.BanApplied,
	}).Info("dispute resolved")

	if refunded != nil {
		res.Warnings = append(res.Warnings, s.escrow.Refund(ctx, refunded)...)
		// Смена с возвращённым холдом закрывается без выплат.
		if res.Shift != nil && s.finalizer != nil && res.Shift.State != valueobject.ShiftDisputed && !res.Shift.State.IsTerminal() {
			if fin, err := s.finalizer.FinalizeShift(ctx, SystemCaller, res.Shift.ID, false); err != nil {
				logger.Op("dispute.finalize").WithError(err).WithField("shift_id", res.Shift.ID).Warn("не удалось закрыть смену после возврата")
			} else {
				res.Shift = fin.Shift
				res.Warnings = append(res.Warnings, fin.Warnings...)
			}
		}
	}

	payload := map[string]any{"dispute_id": d.ID, "status": d.Status}
	s.notify(ctx, d.CreatedBy, EventDisputeResolved, payload)
	s.notify(ctx, d.AgainstUserID, EventDisputeResolved, payload)
	return res, nil
}

// GetDispute возвращает спор участнику или администратору.
func (s *DisputeService) GetDispute(ctx context.Context, caller Caller, disputeID uuid.UUID) (*models.Dispute, error) {
	d, err := s.ledger.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, translateLedgerErr(err)
	}
	if caller.Role != valueobject.ActorAdmin && d.CreatedBy != caller.ID && d.AgainstUserID != caller.ID {
		// Не раскрываем существование чужого спора.
		return nil, apperror.ErrDisputeNotFound
	}
	return d, nil
}

// ListMyDisputes возвращает споры, где пользователь заявитель или ответчик.
func (s *DisputeService) ListMyDisputes(ctx context.Context, caller Caller, limit, offset int) ([]*models.Dispute, error) {
	userID := caller.ID
	return s.list(ctx, domainrepo.DisputeFilter{UserID: &userID, Limit: limit, Offset: offset})
}

// ListDisputes список споров для администратора с фильтром по статусу.
func (s *DisputeService) ListDisputes(ctx context.Context, caller Caller, status *valueobject.DisputeStatus, limit, offset int) ([]*models.Dispute, error) {
	if caller.Role != valueobject.ActorAdmin {
		return nil, apperror.ErrForbidden
	}
	return s.list(ctx, domainrepo.DisputeFilter{Status: status, Limit: limit, Offset: offset})
}

func (s *DisputeService) list(ctx context.Context, filter domainrepo.DisputeFilter) ([]*models.Dispute, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	disputes, err := s.ledger.ListDisputes(ctx, filter)
	if err != nil {
		return nil, translateLedgerErr(err)
	}
	return disputes, nil
}

func (s *DisputeService) notify(ctx context.Context, userID uuid.UUID, event string, data any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, userID, event, data)
}

// refundHeldEscrow возвращает клиенту заблокированный холд смены.
// Без смены или без холда в held возврат пропускается с предупреждением.
func refundHeldEscrow(ctx context.Context, tx domainrepo.LedgerTx, shiftID *uuid.UUID, now time.Time) (*models.EscrowHold, string, error) {
	if shiftID == nil {
		return nil, "возврат пропущен: спор не привязан к смене", nil
	}
	hold, err := tx.GetShiftEscrow(ctx, *shiftID)
	if errors.Is(err, domainrepo.ErrEscrowNotFound) {
		return nil, "возврат пропущен: по смене нет холда", nil
	}
	if err != nil {
		return nil, "", err
	}
	if hold.Status != valueobject.EscrowHeld {
		return nil, "возврат пропущен: холд в статусе " + string(hold.Status), nil
	}
	if err := tx.TransitionEscrow(ctx, hold.ID, valueobject.EscrowHeld, valueobject.EscrowRefunded, now); err != nil {
		return nil, "", err
	}
	if err := tx.AddLedgerEntries(ctx, []models.LedgerEntry{refundEntry(hold, now)}); err != nil {
		return nil, "", err
	}
	hold.Status = valueobject.EscrowRefunded
	hold.ResolvedAt = &now
	return hold, "", nil
}

func isShiftParticipant(shift *models.Shift, assignments []*models.Assignment, userID uuid.UUID) bool {
	if shift.ClientID == userID {
		return true
	}
	for _, a := range assignments {
		if a.WorkerID == userID && a.State != valueobject.AssignmentCancelled {
			return true
		}
	}
	return false
}
