package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domainrepo "github.com/ignatzorin/crew-shifts-backend/internal/domain/repository"
	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crew-shifts-backend/internal/escrow"
	"github.com/ignatzorin/crew-shifts-backend/internal/logger"
	"github.com/ignatzorin/crew-shifts-backend/internal/models"
)

// PaymentGateway внешний платёжный провайдер. Операции идемпотентны по holdID.
type PaymentGateway interface {
	Hold(ctx context.Context, holdID uuid.UUID, amount int64) error
	Release(ctx context.Context, holdID uuid.UUID) error
	Refund(ctx context.Context, holdID uuid.UUID) error
}

// EscrowService ведёт холды смен у провайдера и в журнале.
type EscrowService struct {
	ledger  domainrepo.Ledger
	gateway PaymentGateway
	timeout time.Duration
	now     func() time.Time
}

func NewEscrowService(ledger domainrepo.Ledger, gateway PaymentGateway, timeout time.Duration) *EscrowService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EscrowService{ledger: ledger, gateway: gateway, timeout: timeout, now: time.Now}
}

// newPendingHold считает холд по смене. Деньги у провайдера ещё не заблокированы.
func newPendingHold(shift *models.Shift, now time.Time) (*models.EscrowHold, error) {
	quote, err := escrow.Compute(shift.RequiredWorkers, shift.PayRate, shift.CommissionPercent)
	if err != nil {
		return nil, err
	}
	return &models.EscrowHold{
		ID:                uuid.New(),
		ShiftID:           shift.ID,
		ClientID:          shift.ClientID,
		WorkerCount:       quote.WorkerCount,
		WorkerAmount:      quote.WorkerAmount,
		CommissionPercent: quote.CommissionPercent,
		CommissionAmount:  quote.CommissionAmount,
		TotalAmount:       quote.TotalAmount,
		Status:            valueobject.EscrowPending,
		CreatedAt:         now,
	}, nil
}

// ConfirmHold блокирует деньги у провайдера и переводит холд в held.
// Вызывается после коммита; сбой провайдера оставляет холд pending для повтора.
func (s *EscrowService) ConfirmHold(ctx context.Context, hold *models.EscrowHold) []string {
	log := logger.L().WithFields(logrus.Fields{"op": "escrow.confirm_hold", "hold_id": hold.ID, "shift_id": hold.ShiftID})

	callCtx, cancel := s.adapterContext(ctx)
	err := s.gateway.Hold(callCtx, hold.ID, hold.TotalAmount)
	cancel()
	if err != nil {
		log.WithError(err).Warn("провайдер не подтвердил холд")
		return []string{"платёжный провайдер недоступен: холд ожидает подтверждения и будет повторён"}
	}

	now := s.now().UTC()
	err = s.ledger.WithTx(ctx, func(tx domainrepo.LedgerTx) error {
		if err := tx.TransitionEscrow(ctx, hold.ID, valueobject.EscrowPending, valueobject.EscrowHeld, now); err != nil {
			return err
		}
		clientID := hold.ClientID
		return tx.AddLedgerEntries(ctx, []models.LedgerEntry{{
			ID:        uuid.New(),
			ShiftID:   hold.ShiftID,
			HoldID:    hold.ID,
			UserID:    &clientID,
			Type:      models.LedgerEntryEscrowHold,
			Amount:    hold.TotalAmount,
			CreatedAt: now,
		}})
	})
	if errors.Is(err, domainrepo.ErrVersionConflict) {
		current, getErr := s.ledger.GetEscrow(ctx, hold.ID)
		if getErr != nil {
			log.WithError(getErr).Error("не удалось перечитать холд")
			return []string{"состояние холда не удалось проверить"}
		}
		*hold = *current
		if current.Status == valueobject.EscrowRefunded {
			// Смену отменили, пока шёл запрос к провайдеру.
			return s.Refund(ctx, current)
		}
		return nil
	}
	if err != nil {
		log.WithError(err).Error("холд подтверждён провайдером, но не сохранён")
		return []string{"холд подтверждён провайдером, но не сохранён: будет повторён"}
	}

	hold.Status = valueobject.EscrowHeld
	hold.HeldAt = &now
	return nil
}

// Release сообщает провайдеру о выплате по холду.
func (s *EscrowService) Release(ctx context.Context, hold *models.EscrowHold) []string {
	callCtx, cancel := s.adapterContext(ctx)
	defer cancel()
	if err := s.gateway.Release(callCtx, hold.ID); err != nil {
		logger.L().WithError(err).WithFields(logrus.Fields{"op": "escrow.release", "hold_id": hold.ID}).
			Warn("провайдер не подтвердил выплату")
		return []string{"выплата записана, но платёжный провайдер её не подтвердил"}
	}
	return nil
}

// Refund сообщает провайдеру о возврате холда клиенту.
func (s *EscrowService) Refund(ctx context.Context, hold *models.EscrowHold) []string {
	callCtx, cancel := s.adapterContext(ctx)
	defer cancel()
	if err := s.gateway.Refund(callCtx, hold.ID); err != nil {
		logger.L().WithError(err).WithFields(logrus.Fields{"op": "escrow.refund", "hold_id": hold.ID}).
			Warn("провайдер не подтвердил возврат")
		return []string{"возврат записан, но платёжный провайдер его не подтвердил"}
	}
	return nil
}

// RetryPendingHolds повторяет подтверждение холдов, зависших в pending.
func (s *EscrowService) RetryPendingHolds(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	holds, err := s.ledger.ListPendingEscrows(ctx, s.now().UTC().Add(-olderThan), limit)
	if err != nil {
		return 0, translateLedgerErr(err)
	}

	confirmed := 0
	for _, hold := range holds {
		if err := ctx.Err(); err != nil {
			return confirmed, err
		}
		s.ConfirmHold(ctx, hold)
		if hold.Status == valueobject.EscrowHeld {
			confirmed++
		}
	}
	return confirmed, nil
}

func (s *EscrowService) adapterContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
}

// settlementEntries записи журнала при выплате: сумма равна итогу холда.
func settlementEntries(hold *models.EscrowHold, settlement escrow.Settlement, paidWorkers []uuid.UUID, now time.Time) []models.LedgerEntry {
	entries := make([]models.LedgerEntry, 0, len(paidWorkers)+2)
	for _, workerID := range paidWorkers {
		workerID := workerID
		entries = append(entries, models.LedgerEntry{
			ID:        uuid.New(),
			ShiftID:   hold.ShiftID,
			HoldID:    hold.ID,
			UserID:    &workerID,
			Type:      models.LedgerEntryWorkerPayout,
			Amount:    settlement.WorkerPayout,
			CreatedAt: now,
		})
	}
	if settlement.CommissionAmount > 0 {
		entries = append(entries, models.LedgerEntry{
			ID:        uuid.New(),
			ShiftID:   hold.ShiftID,
			HoldID:    hold.ID,
			Type:      models.LedgerEntryPlatformCommission,
			Amount:    settlement.CommissionAmount,
			CreatedAt: now,
		})
	}
	if settlement.ClientReturn > 0 {
		clientID := hold.ClientID
		entries = append(entries, models.LedgerEntry{
			ID:        uuid.New(),
			ShiftID:   hold.ShiftID,
			HoldID:    hold.ID,
			UserID:    &clientID,
			Type:      models.LedgerEntryClientReturn,
			Amount:    settlement.ClientReturn,
			CreatedAt: now,
		})
	}
	return entries
}

func refundEntry(hold *models.EscrowHold, now time.Time) models.LedgerEntry {
	clientID := hold.ClientID
	return models.LedgerEntry{
		ID:        uuid.New(),
		ShiftID:   hold.ShiftID,
		HoldID:    hold.ID,
		UserID:    &clientID,
		Type:      models.LedgerEntryEscrowRefund,
		Amount:    hold.TotalAmount,
		CreatedAt: now,
	}
}

func sumEntries(entries []models.LedgerEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Amount
	}
	return total
}
