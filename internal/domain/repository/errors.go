package repository

import "errors"

// Ошибки хранилища. Сервисы переводят их в apperror.
var (
	ErrShiftNotFound         = errors.New("shift not found")
	ErrAssignmentNotFound    = errors.New("assignment not found")
	ErrApplicationNotFound   = errors.New("application not found")
	ErrEscrowNotFound        = errors.New("escrow hold not found")
	ErrDisputeNotFound       = errors.New("dispute not found")
	ErrStatNotFound          = errors.New("rating stat not found")
	ErrProfileNotFound       = errors.New("worker profile not found")
	ErrVersionConflict       = errors.New("version conflict")
	ErrDuplicateApplication  = errors.New("application already exists")
	ErrDuplicateAssignment   = errors.New("active assignment already exists")
	ErrActiveEscrowExists    = errors.New("active escrow hold already exists")
	ErrDuplicateOpenDispute  = errors.New("open dispute already exists")
)
