package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/ignatzorin/crew-shifts-backend/internal/pkg/apperror"
)

// Константы валидации
const (
	MinShiftTitleLength          = 3
	MaxShiftTitleLength          = 200
	MaxCategoryLength            = 100
	MaxLocationLength            = 300
	MaxApplicationMessageLength  = 2000
	MaxRatingCommentLength       = 2000
	MinDisputeDescriptionLength  = 10
	MaxDisputeDescriptionLength  = 5000
	MaxResolutionLength          = 5000
	MaxAdminNotesLength          = 5000
	MaxCancelReasonLength        = 1000
	MaxRequiredWorkers           = 500

	// MaxBanDuration верхняя граница срочного бана (10 лет).
	MaxBanDuration = 87600 * time.Hour
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Struct проверяет структуру по тегам validate и возвращает VALIDATION_ERROR.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperror.Wrap(err, apperror.ErrCodeValidation, describe(verrs[0]))
		}
		return apperror.Wrap(err, apperror.ErrCodeValidation, "некорректные данные запроса")
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s обязательно", field)
	case "min", "gte":
		return fmt.Sprintf("%s должно быть не меньше %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s должно быть не больше %s", field, fe.Param())
	case "gtfield":
		return fmt.Sprintf("%s должно быть позже %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s должно быть одним из: %s", field, fe.Param())
	case "latitude", "longitude":
		return fmt.Sprintf("%s вне допустимого диапазона координат", field)
	}
	return fmt.Sprintf("%s не прошло проверку %s", field, fe.Tag())
}

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateShiftTitle проверяет название смены.
func ValidateShiftTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("название смены обязательно")
	}
	return ValidateLength("название смены", title, MinShiftTitleLength, MaxShiftTitleLength)
}

// ValidateDisputeDescription проверяет описание спора.
func ValidateDisputeDescription(description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return fmt.Errorf("описание спора обязательно")
	}
	return ValidateLength("описание спора", description, MinDisputeDescriptionLength, MaxDisputeDescriptionLength)
}

// ValidateOptionalText проверяет необязательный текст только по длине.
func ValidateOptionalText(fieldName string, value *string, max int) error {
	if value == nil || *value == "" {
		return nil
	}
	return ValidateLength(fieldName, strings.TrimSpace(*value), 0, max)
}
