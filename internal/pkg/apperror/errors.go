package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeRateLimited   ErrorCode = "RATE_LIMITED"

	// Коды workflow смены, эскроу, рейтингов и споров.
	ErrCodeInvalidTransition      ErrorCode = "INVALID_TRANSITION"
	ErrCodeConcurrentModification ErrorCode = "CONCURRENT_MODIFICATION"
	ErrCodeDuplicateRating        ErrorCode = "DUPLICATE_RATING"
	ErrCodeOutOfRange             ErrorCode = "OUT_OF_RANGE"
	ErrCodeDisputeNotFound        ErrorCode = "DISPUTE_NOT_FOUND"
	ErrCodeAlreadyResolved        ErrorCode = "ALREADY_RESOLVED"
	ErrCodeMissingResolutionText  ErrorCode = "MISSING_RESOLUTION_TEXT"
	ErrCodeInvalidReason          ErrorCode = "INVALID_REASON"
	ErrCodeDuplicateOpenDispute   ErrorCode = "DUPLICATE_OPEN_DISPUTE"
	ErrCodeEscrowInconsistency    ErrorCode = "ESCROW_INCONSISTENCY"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду, чтобы errors.Is(err, ErrInvalidTransition)
// срабатывал для любого сообщения с тем же кодом.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Newf создаёт ошибку с форматированным сообщением.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound, ErrCodeDisputeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeOutOfRange, ErrCodeMissingResolutionText, ErrCodeInvalidReason:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeInvalidTransition, ErrCodeConcurrentModification,
		ErrCodeDuplicateRating, ErrCodeAlreadyResolved, ErrCodeDuplicateOpenDispute:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// HTTPStatusOf возвращает HTTP статус для любой ошибки.
func HTTPStatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && (appErr.Code == ErrCodeNotFound || appErr.Code == ErrCodeDisputeNotFound)
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeForbidden
}

func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeValidation
}

// IsRetryable сообщает, стоит ли клиенту повторить запрос.
func IsRetryable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeConcurrentModification
}

var (
	ErrShiftNotFound      = New(ErrCodeNotFound, "смена не найдена")
	ErrAssignmentNotFound = New(ErrCodeNotFound, "назначение не найдено")
	ErrApplicationMissing = New(ErrCodeNotFound, "отклик на смену не найден")
	ErrEscrowNotFound     = New(ErrCodeNotFound, "эскроу по смене не найдено")
	ErrUnauthorized       = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden          = New(ErrCodeForbidden, "недостаточно прав")

	ErrInvalidTransition      = New(ErrCodeInvalidTransition, "переход недопустим в текущем состоянии")
	ErrConcurrentModification = New(ErrCodeConcurrentModification, "запись изменена параллельно, повторите запрос")
	ErrDuplicateRating        = New(ErrCodeDuplicateRating, "оценка за эту смену уже выставлена")
	ErrOutOfRange             = New(ErrCodeOutOfRange, "оценка должна быть от 1 до 5")
	ErrDisputeNotFound        = New(ErrCodeDisputeNotFound, "спор не найден")
	ErrAlreadyResolved        = New(ErrCodeAlreadyResolved, "спор уже закрыт")
	ErrMissingResolutionText  = New(ErrCodeMissingResolutionText, "текст решения обязателен")
	ErrInvalidReason          = New(ErrCodeInvalidReason, "недопустимая причина спора")
	ErrDuplicateOpenDispute   = New(ErrCodeDuplicateOpenDispute, "по этой смене уже есть открытый спор")
	ErrEscrowInconsistency    = New(ErrCodeEscrowInconsistency, "нарушена целостность эскроу")
)
