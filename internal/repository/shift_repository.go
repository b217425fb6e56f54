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

const shiftColumns = `id, client_id, title, category, location, starts_at, ends_at, required_workers, pay_rate,
	commission_percent, state, resume_state, state_changed_at, completed_at, cancel_reason, version, created_at, updated_at`

// GetShift возвращает смену по ID.
func (q *queries) GetShift(ctx context.Context, id uuid.UUID) (*models.Shift, error) {
	shift, err := common.GetOne[models.Shift](ctx, q.ext, domainrepo.ErrShiftNotFound,
		`SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id)
	if err != nil && err != domainrepo.ErrShiftNotFound {
		return nil, fmt.Errorf("shift repository: get %w", err)
	}
	return shift, err
}

// LockShift читает смену с SELECT ... FOR UPDATE.
func (q *queries) LockShift(ctx context.Context, id uuid.UUID) (*models.Shift, error) {
	shift, err := common.GetOne[models.Shift](ctx, q.ext, domainrepo.ErrShiftNotFound,
		`SELECT `+shiftColumns+` FROM shifts WHERE id = $1 FOR UPDATE`, id)
	if err != nil && err != domainrepo.ErrShiftNotFound {
		return nil, fmt.Errorf("shift repository: lock %w", err)
	}
	return shift, err
}

// ListShiftsInState возвращает смены в состоянии state, включая смены после спора,
// продолжающие путь с этого состояния.
func (q *queries) ListShiftsInState(ctx context.Context, state valueobject.ShiftState, changedBefore time.Time, limit int) ([]*models.Shift, error) {
	var shifts []*models.Shift
	query := `
		SELECT ` + shiftColumns + ` FROM shifts
		WHERE (state = $1 OR (state IN ('resolved', 'rejected') AND resume_state = $1))
		  AND state_changed_at <= $2
		ORDER BY state_changed_at
		LIMIT $3
	`
	if err := sqlx.SelectContext(ctx, q.ext, &shifts, query, state, changedBefore, limit); err != nil {
		return nil, fmt.Errorf("shift repository: list in state %w", err)
	}
	return shifts, nil
}

// CreateShift создаёт смену.
func (q *queries) CreateShift(ctx context.Context, s *models.Shift) error {
	query := `
		INSERT INTO shifts (id, client_id, title, category, location, starts_at, ends_at, required_workers,
			pay_rate, commission_percent, state, state_changed_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
	`
	_, err := q.ext.ExecContext(ctx, query,
		s.ID, s.ClientID, s.Title, s.Category, s.Location, s.StartsAt, s.EndsAt, s.RequiredWorkers,
		s.PayRate, s.CommissionPercent, s.State, s.StateChangedAt, s.Version, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("shift repository: create %w", err)
	}
	return nil
}

// UpdateShift сохраняет состояние смены, если версия не изменилась.
func (q *queries) UpdateShift(ctx context.Context, s *models.Shift, expectedVersion int64) error {
	query := `
		UPDATE shifts
		SET state = $3, resume_state = $4, state_changed_at = $5, completed_at = $6, cancel_reason = $7,
			version = $2 + 1, updated_at = $8
		WHERE id = $1 AND version = $2
	`
	result, err := q.ext.ExecContext(ctx, query,
		s.ID, expectedVersion, s.State, s.ResumeState, s.StateChangedAt, s.CompletedAt, s.CancelReason, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("shift repository: update %w", err)
	}
	if err := common.ExpectOneRow(result, domainrepo.ErrVersionConflict); err != nil {
		return err
	}
	s.Version = expectedVersion + 1
	return nil
}

// GetApplication возвращает отклик работника на смену.
func (q *queries) GetApplication(ctx context.Context, shiftID, workerID uuid.UUID) (*models.Application, error) {
	app, err := common.GetOne[models.Application](ctx, q.ext, domainrepo.ErrApplicationNotFound,
		`SELECT * FROM applications WHERE shift_id = $1 AND worker_id = $2`, shiftID, workerID)
	if err != nil && err != domainrepo.ErrApplicationNotFound {
		return nil, fmt.Errorf("application repository: get %w", err)
	}
	return app, err
}

// CreateApplication создаёт отклик.
func (q *queries) CreateApplication(ctx context.Context, app *models.Application) error {
	query := `
		INSERT INTO applications (id, shift_id, worker_id, status, message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`
	if _, err := q.ext.ExecContext(ctx, query, app.ID, app.ShiftID, app.WorkerID, app.Status, app.Message, app.CreatedAt); err != nil {
		if common.IsUniqueViolation(err, "") {
			return domainrepo.ErrDuplicateApplication
		}
		return fmt.Errorf("application repository: create %w", err)
	}
	return nil
}

// UpdateApplicationStatus меняет статус отклика.
func (q *queries) UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status valueobject.ApplicationStatus) error {
	result, err := q.ext.ExecContext(ctx, `UPDATE applications SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("application repository: update status %w", err)
	}
	return common.ExpectOneRow(result, domainrepo.ErrApplicationNotFound)
}

// GetAssignment возвращает назначение по ID.
func (q *queries) GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	a, err := common.GetByID[models.Assignment](ctx, q.ext, "assignments", id, domainrepo.ErrAssignmentNotFound)
	if err != nil && err != domainrepo.ErrAssignmentNotFound {
		return nil, fmt.Errorf("assignment repository: %w", err)
	}
	return a, err
}

// ListShiftAssignments возвращает назначения смены в порядке создания.
func (q *queries) ListShiftAssignments(ctx context.Context, shiftID uuid.UUID) ([]*models.Assignment, error) {
	var list []*models.Assignment
	if err := sqlx.SelectContext(ctx, q.ext, &list,
		`SELECT * FROM assignments WHERE shift_id = $1 ORDER BY created_at, id`, shiftID); err != nil {
		return nil, fmt.Errorf("assignment repository: list %w", err)
	}
	return list, nil
}

// CreateAssignment создаёт назначение. Второе активное назначение той же пары отклоняется индексом.
func (q *queries) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	query := `
		INSERT INTO assignments (id, shift_id, worker_id, state, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`
	if _, err := q.ext.ExecContext(ctx, query, a.ID, a.ShiftID, a.WorkerID, a.State, a.Version, a.CreatedAt); err != nil {
		if common.IsUniqueViolation(err, "uq_assignments_active") {
			return domainrepo.ErrDuplicateAssignment
		}
		return fmt.Errorf("assignment repository: create %w", err)
	}
	return nil
}

// UpdateAssignment сохраняет назначение, если версия не изменилась.
func (q *queries) UpdateAssignment(ctx context.Context, a *models.Assignment, expectedVersion int64) error {
	query := `
		UPDATE assignments
		SET state = $3, on_way_at = $4, checked_in_at = $5, check_in_latitude = $6, check_in_longitude = $7,
			check_in_photo = $8, checked_out_at = $9, confirmed_at = $10, version = $2 + 1, updated_at = $11
		WHERE id = $1 AND version = $2
	`
	result, err := q.ext.ExecContext(ctx, query,
		a.ID, expectedVersion, a.State, a.OnWayAt, a.CheckedInAt, a.CheckInLatitude, a.CheckInLongitude,
		a.CheckInPhoto, a.CheckedOutAt, a.ConfirmedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("assignment repository: update %w", err)
	}
	if err := common.ExpectOneRow(result, domainrepo.ErrVersionConflict); err != nil {
		return err
	}
	a.Version = expectedVersion + 1
	return nil
}
