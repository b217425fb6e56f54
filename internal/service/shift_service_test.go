package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainrepo "github.com/ignatzorin/crew-shifts-backend/internal/domain/repository"
	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crew-shifts-backend/internal/models"
	"github.com/ignatzorin/crew-shifts-backend/internal/pkg/apperror"
)

func TestShiftService_CreateShift_Defaults(t *testing.T) {
	env := newTestEnv(t)
	client := newClient()

	shift := env.createShift(t, client, 2, 2500)

	assert.Equal(t, valueobject.ShiftOpen, shift.State)
	assert.Equal(t, client.ID, shift.ClientID)
	assert.Equal(t, int64(1), shift.Version)
}

func TestShiftService_CreateShift_Validation(t *testing.T) {
	env := newTestEnv(t)
	client := newClient()

	_, err := env.shifts.CreateShift(env.ctx, client, CreateShiftInput{
		Title:           "Смена",
		Category:        "loading",
		Location:        "Склад",
		StartsAt:        baseTime.Add(2 * time.Hour),
		EndsAt:          baseTime.Add(time.Hour),
		RequiredWorkers: 1,
		PayRate:         2500,
	})
	assert.True(t, apperror.IsValidation(err))

	_, err = env.shifts.CreateShift(env.ctx, newWorker(), CreateShiftInput{})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestShiftService_CreateShift_CommissionOverrideOnlyForAdmin(t *testing.T) {
	env := newTestEnv(t)
	client := newClient()
	percent := decimal.NewFromInt(5)
	in := CreateShiftInput{
		ClientID:          &client.ID,
		Title:             "Монтаж сцены",
		Category:          "events",
		Location:          "Концертный зал",
		StartsAt:          baseTime.Add(time.Hour),
		EndsAt:            baseTime.Add(5 * time.Hour),
		RequiredWorkers:   3,
		PayRate:           4000,
		CommissionPercent: &percent,
	}

	byClient, err := env.shifts.CreateShift(env.ctx, client, in)
	require.NoError(t, err)
	assert.True(t, byClient.CommissionPercent.Equal(decimal.NewFromInt(12)))

	byAdmin, err := env.shifts.CreateShift(env.ctx, env.admin, in)
	require.NoError(t, err)
	assert.True(t, byAdmin.CommissionPercent.Equal(percent))
	assert.Equal(t, client.ID, byAdmin.ClientID)
}

func TestShiftService_ApproveApplication_CreatesHoldWhenQuotaMet(t *testing.T) {
	env := newTestEnv(t)
	client := newClient()
	shift := env.createShift(t, client, 2, 2500)

	first, second := newWorker(), newWorker()
	_, err := env.shifts.ApplyToShift(env.ctx, first, shift.ID, nil)
	require.NoError(t, err)
	_, err = env.shifts.ApplyToShift(env.ctx, second, shift.ID, nil)
	require.NoError(t, err)

	res, err := env.shifts.ApproveApplication(env.ctx, client, shift.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ShiftOpen, res.Shift.State)
	assert.Nil(t, res.Escrow)

	res, err = env.shifts.ApproveApplication(env.ctx, client, shift.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ShiftAssigned, res.Shift.State)
	require.NotNil(t, res.Escrow)
	assert.Empty(t, res.Warnings)

	hold := env.hold(t, shift.ID)
	assert.Equal(t, valueobject.EscrowHeld, hold.Status)
	assert.Equal(t, int64(5600), hold.TotalAmount)
	assert.Equal(t, int64(600), hold.CommissionAmount)

	holdEntries := entriesOfType(env.ledger.ledgerEntries(shift.ID), models.LedgerEntryEscrowHold)
	require.Len(t, holdEntries, 1)
	assert.Equal(t, int64(5600), holdEntries[0].Amount)

	assert.Contains(t, env.notifier.events(second.ID), EventApplicationApproved)
}

func TestShiftService_ApproveApplication_Errors(t *testing.T) {
	env := newTestEnv(t)
	client := newClient()
	shift := env.createShift(t, client, 1, 2500)
	worker := newWorker()

	_, err := env.shifts.ApproveApplication(env.ctx, client, shift.ID, worker.ID)
	assert.ErrorIs(t, err, apperror.ErrApplicationMissing)

	_, err = env.shifts.ApplyToShift(env.ctx, worker, shift.ID, nil)
	require.NoError(t, err)
	_, err = env.shifts.ApplyToShift(env.ctx, worker, shift.ID, nil)
	assert.Equal(t, apperror.ErrCodeConflict, err.(*apperror.AppError).Code)

	_, err = env.shifts.ApproveApplication(env.ctx, newClient(), shift.ID, worker.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = env.shifts.ApproveApplication(env.ctx, worker, shift.ID, worker.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestShiftService_ApproveApplication_BannedWorker(t *testing.T) {
	env := newTestEnv(t)
	client := newClient()
	shift := env.createShift(t, client, 1, 2500)
	worker := newWorker()

	_, err := env.shifts.ApplyToShift(env.ctx, worker, shift.ID, nil)
	require.NoError(t, err)
	require.NoError(t, env.ledger.WithTx(env.ctx, func(tx domainrepo.LedgerTx) error {
		return tx.UpsertWorkerProfile(env.ctx, &models.WorkerProfile{UserID: worker.ID, Banned: true})
	}))

	_, err = env.shifts.ApproveApplication(env.ctx, client, shift.ID, worker.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

// Сценарий: 2 работника по 2500 при комиссии 12% дают холд 5600 и выплату 2500+2500+600.
func TestShiftService_HappyPath_SettlesFullHold(t *testing.T) {
	env := newTestEnv(t)
	client := newClient()
	shift := env.createShift(t, client, 2, 2500)
	workers, assignments := env.workUntilRating(t, client, shift)

	for _, a := range assignments {
		assert.Equal(t, valueobject.AssignmentCompleted, env.assignment(t, a.ID).State)
	}

	for _, w := range workers {
		_, err := env.ratings.SubmitRating(env.ctx, client, shift.ID, w.ID, 5, nil)
		require.NoError(t, err)
		_, err = env.ratings.SubmitRating(env.ctx, w, shift.ID, client.ID, 4, nil)
		require.NoError(t, err)
	}

	final := env.shift(t, shift.ID)
	assert.Equal(t, valueobject.ShiftCompleted, final.State)
	require.NotNil(t, final.CompletedAt)

	hold := env.hold(t, shift.ID)
	assert.Equal(t, valueobject.EscrowReleased, hold.Status)

	entries := env.ledger.ledgerEntries(shift.ID)
	payouts := entriesOfType(entries, models.LedgerEntryWorkerPayout)
	require.Len(t, payouts, 2)
	for _, p := range payouts {
		assert.Equal(t, int64(2500), p.Amount)
	}
	commission := entriesOfType(entries, models.LedgerEntryPlatformCommission)
	require.Len(t, commission, 1)
	assert.Equal(t, int64(600), commission[0].Amount)
	assert.Nil(t, commission[0].UserID)
	assert.Empty(t, entriesOfType(entries, models.LedgerEntryClientReturn))

	assert.Equal(t, hold.TotalAmount, sumEntries(entriesOfType(entries, models.LedgerEntryWorkerPayout))+commission[0].Amount)
	assert.Contains(t, env.notifier.events(client.ID), EventShiftCompleted)
}

func TestShiftService_CheckIn_Rules(t *testing.T) {
	env := newTestEnv(t)
	client := newClient()
	shift := env.createShift(t, client, 1, 2500)
	workers, assignments := env.staffShift(t, client, shift)
	worker, a := workers[0], assignments[0]

	env.clock.Set(shift.StartsAt.Add(-2 * time.Hour))
	_, err := env.shifts.CheckIn(env.ctx, worker, a.ID, models.CheckInEvidence{})
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	env.clock.Set(shift.StartsAt.Add(-10 * time.Minute))
	_, err = env.shifts.CheckIn(env.ctx, newWorker(), a.ID, models.CheckInEvidence{})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	lat := 55.75
	_, err = env.shifts.CheckIn(env.ctx, worker, a.ID, models.CheckInEvidence{Latitude: &lat})
	assert.True(t, apperror.IsValidation(err))

	lon := 37.61
	res, err := env.shifts.MarkOnWay(env.ctx, worker, a.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.AssignmentOnWay, res.Assignment.State)

	res, err = env.shifts.CheckIn(env.ctx, worker, a.ID, models.CheckInEvidence{
		At:          baseTime.Add(-24 * time.Hour),
		Latitude:    &lat,
		Longitude:   &lon,
		PhotoHandle: "evidence/photo.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.ShiftCheckedIn, res.Shift.State)
	assert.Equal(t, valueobject.AssignmentCheckedIn, res.Assignment.State)
	require.NotNil(t, res.Assignment.CheckedInAt)
	assert.Equal(t, shift.StartsAt.Add(-10*time.Minute), *res.Assignment.CheckedInAt)
	require.NotNil(t, res.Assignment.CheckInPhoto)
	assert.Equal(t, "evidence/photo.jpg", *res.Assignment.CheckInPhoto)

	_, err = env.shifts.CheckIn(env.ctx, worker, a.ID, models.CheckInEvidence{})
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.Contains(t, env.notifier.events(client.ID), EventWorkerCheckedIn)
}

func TestShiftService_CompleteShift_RequiresCheckedInWorker(t *testing.T) {
	env := newTestEnv(t)
	client := newClient()
	shift := env.createShift(t, client, 1, 2500)
	env.staffShift(t, client, shift)

	_, err := env.shifts.CompleteShift(env.ctx, client, shift.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

// Сценарий: после отметки клиента два работника подтверждают параллельно,
// оба успешны, смена переходит к оценкам после последнего.
func TestShiftService_ConfirmCompletion_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	client := newClient()
	shift := env.createShift(t, client, 2, 2500)
	workers, assignments := env.staffShift(t, client, shift)
	env.workUntilConfirm(t, client, shift, workers, assignments)

	var wg sync.WaitGroup
	errs := make([]error, len(workers))
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.shifts.ConfirmCompletion(env.ctx, workers[i], assignments[i].ID)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, valueobject.ShiftAwaitingRating, env.shift(t, shift.ID).State)
	for _, a := range assignments {
		got := env.assignment(t, a.ID)
		assert.Equal(t, valueobject.AssignmentCompleted, got.State)
		assert.NotNil(t, got.ConfirmedAt)
	}
}

func TestShiftService_ConfirmCompletion_PartialKeepsAssignmentsCheckedIn(t *testing.T) {
	env := newTestEnv(t)
	client := newClient()
	shift := env.createShift(t, client, 2, 2500)
	workers, assignments := env.staffShift(t, client, shift)
	env.workUntilConfirm(t, client, shift, workers, assignments)

	res, err := env.shifts.ConfirmCompletion(env.ctx, workers[0], assignments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ShiftAwaitingWorkerConfirm, res.Shift.State)
	assert.Equal(t, valueobject.AssignmentCheckedIn, res.Assignment.State)

	_, err = env.shifts.ConfirmCompletion(env.ctx, workers[0], assignments[0].ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = env.shifts.ConfirmCompletion(env.ctx, workers[0], assignments[1].ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestShiftService_CompleteShift_ConcurrentCallsOneWins(t *testing.T) {
	env := newTestEnv(t)
	client := newClient()
	shift := env.createShift(t, client, 1, 2500)
	workers, assignments := env.staffShift(t, client, shift)
	env.clock.Set(shift.StartsAt)
	_, err := env.shifts.CheckIn(env.ctx, workers[0], assignments[0].ID, models.CheckInEvidence{})
	require.NoError(t, err)

	env.ledger.beforeCommit = barrier(2)
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, caller := range []Caller{client, env.admin} {
		wg.Add(1)
		go func(i int, caller Caller) {
			defer wg.Done()
			_, errs[i] = env.shifts.CompleteShift(env.ctx, caller, shift.ID)
		}(i, caller)
	}
	wg.Wait()
	env.ledger.beforeCommit = nil

	succeeded, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperror.ErrConcurrentModification):
			conflicts++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, valueobject.ShiftAwaitingWorkerConfirm, env.shift(t, shift.ID).State)
}

func TestShiftService_NoShowSettlement(t *testing.T) {
	env := newTestEnv(t)
	client := newClient()
	shift := env.createShift(t, client, 2, 2500)
	workers, assignments := env.staffShift(t, client, shift)

	env.clock.Set(shift.StartsAt)
	_, err := env.shifts.CheckIn(env.ctx, workers[0], assignments[0].ID, models.CheckInEvidence{})
	require.NoError(t, err)
	res, err := env.shifts.CheckOut(env.ctx, workers[0], assignments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ShiftCheckedIn, res.Shift.State)

	_, err = env.shifts.CompleteShift(env.ctx, client, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.AssignmentNoShow, env.assignment(t, assignments[1].ID).State)

	res, err = env.shifts.ConfirmCompletion(env.ctx, workers[0], assignments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ShiftAwaitingRating, res.Shift.State)

	_, err = env.ratings.SubmitRating(env.ctx, client, shift.ID, workers[1].ID, 1, nil)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	fin, err := env.shifts.FinalizeShift(env.ctx, env.admin, shift.ID, true)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ShiftCompleted, fin.Shift.State)

	entries := env.ledger.ledgerEntries(shift.ID)
	payouts := entriesOfType(entries, models.LedgerEntryWorkerPayout)
	require.Len(t, payouts, 1)
	assert.Equal(t, workers[0].ID, *payouts[0].UserID)
	assert.Equal(t, int64(2500), payouts[0].Amount)
	commission := entriesOfType(entries, models.LedgerEntryPlatformCommission)
	require.Len(t, commission, 1)
	assert.Equal(t, int64(300), commission[0].Amount)
	returned := entriesOfType(entries, models.LedgerEntryClientReturn)
	require.Len(t, returned, 1)
	assert.Equal(t, int64(2800), returned[0].Amount)
}

func TestShiftService_FinalizeShift_WaitsForRatingsOrGrace(t *testing.T) {
	env := newTestEnv(t)
	client := newClient()
	shift := env.createShift(t, client, 1, 2500)
	env.workUntilRating(t, client, shift)

	_, err := env.shifts.FinalizeShift(env.ctx, SystemCaller, shift.ID, false)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	// force работает только для администратора
	_, err = env.shifts.FinalizeShift(env.ctx, SystemCaller, shift.ID, true)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = env.shifts.FinalizeShift(env.ctx, client, shift.ID, true)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	env.clock.Advance(env.policy.RatingGracePeriod + time.Minute)
	res, err := env.shifts.FinalizeShift(env.ctx, SystemCaller, shift.ID, false)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ShiftCompleted, res.Shift.State)
	assert.Equal(t, valueobject.EscrowReleased, res.Escrow.Status)

	_, err = env.shifts.FinalizeShift(env.ctx, SystemCaller, shift.ID, false)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestShiftService_FinalizeShift_PendingHoldFails(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Hold", mock.Anything, mock.Anything, int64(2800)).Return(errors.New("provider unavailable"))
	env := newTestEnvWithGateway(t, gw)
	client := newClient()
	shift := env.createShift(t, client, 1, 2500)
	env.workUntilRating(t, client, shift)

	assert.Equal(t, valueobject.EscrowPending, env.hold(t, shift.ID).Status)

	_, err := env.shifts.FinalizeShift(env.ctx, env.admin, shift.ID, true)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.Equal(t, valueobject.ShiftAwaitingRating, env.shift(t, shift.ID).State)
	assert.Empty(t, entriesOfType(env.ledger.ledgerEntries(shift.ID), models.LedgerEntryWorkerPayout))
}

func TestShiftService_ReleaseFailureReturnsWarning(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Hold", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	gw.On("Release", mock.Anything, mock.Anything).Return(errors.New("timeout"))
	env := newTestEnvWithGateway(t, gw)
	client := newClient()
	shift := env.createShift(t, client, 1, 2500)
	env.workUntilRating(t, client, shift)

	res, err := env.shifts.FinalizeShift(env.ctx, env.admin, shift.ID, true)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Warnings)
	assert.Equal(t, valueobject.ShiftCompleted, env.shift(t, shift.ID).State)
	assert.Equal(t, valueobject.EscrowReleased, env.hold(t, shift.ID).Status)
	gw.AssertExpectations(t)
}

func TestShiftService_FinalizeShift_AtomicOnLedgerFailure(t *testing.T) {
	env := newTestEnv(t)
	client := newClient()
	shift := env.createShift(t, client, 1, 2500)
	env.workUntilRating(t, client, shift)

	env.ledger.failOn["AddLedgerEntries"] = errors.New("disk full")
	_, err := env.shifts.FinalizeShift(env.ctx, env.admin, shift.ID, true)
	require.Error(t, err)
	delete(env.ledger.failOn, "AddLedgerEntries")

	assert.Equal(t, valueobject.ShiftAwaitingRating, env.shift(t, shift.ID).State)
	assert.Equal(t, valueobject.EscrowHeld, env.hold(t, shift.ID).Status)
	assert.Empty(t, entriesOfType(env.ledger.ledgerEntries(shift.ID), models.LedgerEntryWorkerPayout))
}

func TestShiftService_CancelShift_VoidsPendingHold(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Hold", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("provider unavailable"))
	env := newTestEnvWithGateway(t, gw)
	client := newClient()
	shift := env.createShift(t, client, 1, 2500)

	worker := newWorker()
	_, err := env.shifts.ApplyToShift(env.ctx, worker, shift.ID, nil)
	require.NoError(t, err)
	approved, err := env.shifts.ApproveApplication(env.ctx, client, shift.ID, worker.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, approved.Warnings)

	reason := "заказ перенесён"
	res, err := env.shifts.CancelShift(env.ctx, client, shift.ID, &reason)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ShiftCancelled, res.Shift.State)
	require.NotNil(t, res.Escrow)
	assert.Equal(t, valueobject.EscrowRefunded, res.Escrow.Status)
	assert.Equal(t, valueobject.AssignmentCancelled, env.assignment(t, approved.Assignment.ID).State)
	assert.Contains(t, env.notifier.events(worker.ID), EventShiftCancelled)
	assert.Empty(t, env.ledger.ledgerEntries(shift.ID))
}

func TestShiftService_CancelShift_HeldHoldRequiresDispute(t *testing.T) {
	env := newTestEnv(t)
	client := newClient()
	shift := env.createShift(t, client, 1, 2500)
	env.staffShift(t, client, shift)

	_, err := env.shifts.CancelShift(env.ctx, client, shift.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.Equal(t, valueobject.ShiftAssigned, env.shift(t, shift.ID).State)
	assert.Equal(t, valueobject.EscrowHeld, env.hold(t, shift.ID).Status)
}

func TestShiftService_CancelShift_Ownership(t *testing.T) {
	env := newTestEnv(t)
	client := newClient()
	shift := env.createShift(t, client, 1, 2500)

	_, err := env.shifts.CancelShift(env.ctx, newClient(), shift.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = env.shifts.CancelShift(env.ctx, newWorker(), shift.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	res, err := env.shifts.CancelShift(env.ctx, env.admin, shift.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Escrow)

	_, err = env.shifts.CancelShift(env.ctx, client, shift.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestShiftService_ConfirmTimeoutThroughSweep(t *testing.T) {
	env := newTestEnv(t)
	client := newClient()
	shift := env.createShift(t, client, 2, 2500)
	workers, assignments := env.staffShift(t, client, shift)
	env.workUntilConfirm(t, client, shift, workers, assignments)

	_, err := env.shifts.ConfirmCompletion(env.ctx, workers[0], assignments[0].ID)
	require.NoError(t, err)

	_, err = env.shifts.AdvanceConfirmTimeout(env.ctx, shift.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	env.clock.Advance(env.policy.WorkerConfirmTimeout + time.Minute)
	report, err := env.sweep.RunOnce(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ConfirmTimeouts)
	assert.Equal(t, 0, report.Finalized)

	assert.Equal(t, valueobject.ShiftAwaitingRating, env.shift(t, shift.ID).State)
	silent := env.assignment(t, assignments[1].ID)
	assert.Equal(t, valueobject.AssignmentCompleted, silent.State)
	assert.Nil(t, silent.ConfirmedAt)

	env.clock.Advance(env.policy.RatingGracePeriod + time.Minute)
	report, err = env.sweep.RunOnce(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Finalized)
	assert.Equal(t, valueobject.ShiftCompleted, env.shift(t, shift.ID).State)
	assert.Len(t, entriesOfType(env.ledger.ledgerEntries(shift.ID), models.LedgerEntryWorkerPayout), 2)
}

func TestShiftService_GetShiftDetails_Visibility(t *testing.T) {
	env := newTestEnv(t)
	client := newClient()
	shift := env.createShift(t, client, 1, 2500)
	workers, _ := env.staffShift(t, client, shift)

	details, err := env.shifts.GetShiftDetails(env.ctx, client, shift.ID)
	require.NoError(t, err)
	assert.Len(t, details.Assignments, 1)
	require.NotNil(t, details.Escrow)
	assert.Len(t, details.LedgerEntries, 1)

	_, err = env.shifts.GetShiftDetails(env.ctx, workers[0], shift.ID)
	assert.NoError(t, err)

	_, err = env.shifts.GetShiftDetails(env.ctx, newWorker(), shift.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = env.shifts.GetShiftDetails(env.ctx, client, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrShiftNotFound)
}
