package service

import (
	"errors"
	"fmt"

	domainrepo "github.com/ignatzorin/crew-shifts-backend/internal/domain/repository"
	"github.com/ignatzorin/crew-shifts-backend/internal/pkg/apperror"
)

// translateLedgerErr переводит ошибки хранилища в коды API.
// Ошибки apperror возвращаются как есть.
func translateLedgerErr(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, domainrepo.ErrVersionConflict):
		return apperror.ErrConcurrentModification
	case errors.Is(err, domainrepo.ErrShiftNotFound):
		return apperror.ErrShiftNotFound
	case errors.Is(err, domainrepo.ErrAssignmentNotFound):
		return apperror.ErrAssignmentNotFound
	case errors.Is(err, domainrepo.ErrApplicationNotFound):
		return apperror.ErrApplicationMissing
	case errors.Is(err, domainrepo.ErrEscrowNotFound):
		return apperror.ErrEscrowNotFound
	case errors.Is(err, domainrepo.ErrDisputeNotFound):
		return apperror.ErrDisputeNotFound
	case errors.Is(err, domainrepo.ErrDuplicateOpenDispute):
		return apperror.ErrDuplicateOpenDispute
	case errors.Is(err, domainrepo.ErrDuplicateApplication):
		return apperror.New(apperror.ErrCodeConflict, "вы уже откликнулись на эту смену")
	case errors.Is(err, domainrepo.ErrDuplicateAssignment):
		return apperror.New(apperror.ErrCodeConflict, "работник уже назначен на смену")
	case errors.Is(err, domainrepo.ErrActiveEscrowExists):
		return apperror.Wrap(err, apperror.ErrCodeEscrowInconsistency, "по смене уже есть активный холд")
	}
	return fmt.Errorf("ledger: %w", err)
}
