package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crew-shifts-backend/internal/models"
)

// LedgerReader чтение смен, назначений, холдов, оценок и споров.
type LedgerReader interface {
	GetShift(ctx context.Context, id uuid.UUID) (*models.Shift, error)
	ListShiftsInState(ctx context.Context, state valueobject.ShiftState, changedBefore time.Time, limit int) ([]*models.Shift, error)

	GetApplication(ctx context.Context, shiftID, workerID uuid.UUID) (*models.Application, error)
	GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	ListShiftAssignments(ctx context.Context, shiftID uuid.UUID) ([]*models.Assignment, error)

	GetShiftEscrow(ctx context.Context, shiftID uuid.UUID) (*models.EscrowHold, error)
	GetEscrow(ctx context.Context, id uuid.UUID) (*models.EscrowHold, error)
	ListPendingEscrows(ctx context.Context, createdBefore time.Time, limit int) ([]*models.EscrowHold, error)
	ListLedgerEntries(ctx context.Context, shiftID uuid.UUID) ([]models.LedgerEntry, error)

	ListShiftRatings(ctx context.Context, shiftID uuid.UUID) ([]*models.Rating, error)
	ListUserRatings(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Rating, error)
	GetRatingStat(ctx context.Context, userID uuid.UUID) (*models.UserRatingStat, error)

	GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	ListDisputes(ctx context.Context, filter DisputeFilter) ([]*models.Dispute, error)
	CountOpenShiftDisputes(ctx context.Context, shiftID uuid.UUID) (int, error)

	GetWorkerProfile(ctx context.Context, userID uuid.UUID) (*models.WorkerProfile, error)
}

// LedgerTx операции внутри одной транзакции. Update* с expectedVersion
// возвращают ErrVersionConflict, если запись уже изменена.
type LedgerTx interface {
	LedgerReader

	// LockShift читает смену с блокировкой строки до конца транзакции.
	LockShift(ctx context.Context, id uuid.UUID) (*models.Shift, error)
	CreateShift(ctx context.Context, shift *models.Shift) error
	UpdateShift(ctx context.Context, shift *models.Shift, expectedVersion int64) error

	CreateApplication(ctx context.Context, app *models.Application) error
	UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status valueobject.ApplicationStatus) error

	CreateAssignment(ctx context.Context, a *models.Assignment) error
	UpdateAssignment(ctx context.Context, a *models.Assignment, expectedVersion int64) error

	CreateEscrow(ctx context.Context, hold *models.EscrowHold) error
	// TransitionEscrow меняет статус только если текущий равен from.
	TransitionEscrow(ctx context.Context, id uuid.UUID, from, to valueobject.EscrowStatus, at time.Time) error
	AddLedgerEntries(ctx context.Context, entries []models.LedgerEntry) error

	// InsertRating возвращает false, если оценка по тройке уже есть.
	InsertRating(ctx context.Context, r *models.Rating) (bool, error)
	// LockRatingStat создаёт пустую статистику при отсутствии и блокирует строку.
	LockRatingStat(ctx context.Context, userID uuid.UUID) (*models.UserRatingStat, error)
	SaveRatingStat(ctx context.Context, stat *models.UserRatingStat, expectedVersion int64) error

	CreateDispute(ctx context.Context, d *models.Dispute) error
	UpdateDispute(ctx context.Context, d *models.Dispute, expectedVersion int64) error

	UpsertWorkerProfile(ctx context.Context, p *models.WorkerProfile) error
}

// Ledger хранилище смен. Все изменения проходят через WithTx.
type Ledger interface {
	LedgerReader
	WithTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

type DisputeFilter struct {
	Status *valueobject.DisputeStatus
	UserID *uuid.UUID
	Limit  int
	Offset int
}
