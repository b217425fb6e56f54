package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/crew-shifts-backend/internal/config"
	domainrepo "github.com/ignatzorin/crew-shifts-backend/internal/domain/repository"
	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crew-shifts-backend/internal/logger"
	"github.com/ignatzorin/crew-shifts-backend/internal/pkg/apperror"
)

const sweepBatchSize = 100

// SweepReport итог одного прохода фоновых задач.
type SweepReport struct {
	Finalized       int `json:"finalized"`
	ConfirmTimeouts int `json:"confirm_timeouts"`
	HoldsConfirmed  int `json:"holds_confirmed"`
}

// SweepJobs фоновые задачи workflow: завершение смен, таймаут подтверждения,
// повтор зависших холдов.
type SweepJobs struct {
	ledger domainrepo.LedgerReader
	shifts *ShiftService
	escrow *EscrowService
	policy config.Policy
	now    func() time.Time
}

func NewSweepJobs(ledger domainrepo.LedgerReader, shifts *ShiftService, escrowService *EscrowService, policy config.Policy) *SweepJobs {
	return &SweepJobs{ledger: ledger, shifts: shifts, escrow: escrowService, policy: policy, now: time.Now}
}

// FinalizeDue пытается завершить смены, ожидающие оценок. Смены, которым ещё
// рано, пропускаются до следующего прохода.
func (j *SweepJobs) FinalizeDue(ctx context.Context) (int, error) {
	log := logger.Op("sweep.finalize")
	now := j.now().UTC()
	finalized := 0

	for _, state := range []valueobject.ShiftState{valueobject.ShiftAwaitingRating, valueobject.ShiftResolved, valueobject.ShiftRejected} {
		shifts, err := j.ledger.ListShiftsInState(ctx, state, now, sweepBatchSize)
		if err != nil {
			return finalized, translateLedgerErr(err)
		}
		for _, shift := range shifts {
			if err := ctx.Err(); err != nil {
				return finalized, err
			}
			_, err := j.shifts.FinalizeShift(ctx, SystemCaller, shift.ID, false)
			switch {
			case err == nil:
				finalized++
			case errors.Is(err, apperror.ErrInvalidTransition), errors.Is(err, apperror.ErrConcurrentModification):
				log.WithError(err).WithField("shift_id", shift.ID).Debug("смена пока не готова к завершению")
			default:
				log.WithError(err).WithField("shift_id", shift.ID).Error("не удалось завершить смену")
			}
		}
	}
	return finalized, nil
}

// AdvanceConfirmTimeouts переводит к оценкам смены, где работники не подтвердили выполнение вовремя.
func (j *SweepJobs) AdvanceConfirmTimeouts(ctx context.Context) (int, error) {
	log := logger.Op("sweep.confirm_timeout")
	cutoff := j.now().UTC().Add(-j.policy.WorkerConfirmTimeout)

	shifts, err := j.ledger.ListShiftsInState(ctx, valueobject.ShiftAwaitingWorkerConfirm, cutoff, sweepBatchSize)
	if err != nil {
		return 0, translateLedgerErr(err)
	}
	advanced := 0
	for _, shift := range shifts {
		if err := ctx.Err(); err != nil {
			return advanced, err
		}
		if _, err := j.shifts.AdvanceConfirmTimeout(ctx, shift.ID); err != nil {
			log.WithError(err).WithField("shift_id", shift.ID).Warn("не удалось применить таймаут подтверждения")
			continue
		}
		advanced++
	}
	return advanced, nil
}

// RetryPendingHolds повторяет блокировку средств у провайдера.
func (j *SweepJobs) RetryPendingHolds(ctx context.Context) (int, error) {
	return j.escrow.RetryPendingHolds(ctx, j.policy.PendingHoldRetryAfter, sweepBatchSize)
}

// RunOnce выполняет все задачи по очереди. Ошибка одной задачи не останавливает остальные.
func (j *SweepJobs) RunOnce(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	var errs []error

	n, err := j.RetryPendingHolds(ctx)
	report.HoldsConfirmed = n
	errs = append(errs, err)

	n, err = j.AdvanceConfirmTimeouts(ctx)
	report.ConfirmTimeouts = n
	errs = append(errs, err)

	n, err = j.FinalizeDue(ctx)
	report.Finalized = n
	errs = append(errs, err)

	return report, errors.Join(errs...)
}

// Scheduler запускает SweepJobs по расписанию gocron.
type Scheduler struct {
	scheduler *gocron.Scheduler
	jobs      *SweepJobs
	interval  time.Duration
	started   bool
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewScheduler(jobs *SweepJobs, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		jobs:      jobs,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start регистрирует проход и запускает планировщик в фоне.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	_, err := s.scheduler.Every(s.interval).Do(s.runSweep)
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.started = true

	logger.L().WithField("interval", s.interval.String()).Info("scheduler started")
	return nil
}

// Stop останавливает планировщик и отменяет текущий проход.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.cancel()
	s.scheduler.Stop()
	s.started = false
	logger.L().Info("scheduler stopped")
}

func (s *Scheduler) runSweep() {
	report, err := s.jobs.RunOnce(s.ctx)
	entry := logger.Op("sweep").WithFields(logrus.Fields{
		"finalized":        report.Finalized,
		"confirm_timeouts": report.ConfirmTimeouts,
		"holds_confirmed":  report.HoldsConfirmed,
	})
	if err != nil {
		entry.WithError(err).Error("sweep finished with errors")
		return
	}
	entry.Debug("sweep finished")
}
