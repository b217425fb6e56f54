package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/crew-shifts-backend/internal/pkg/apperror"
)

// Money сумма в целых единицах валюты.
type Money int64

func NewMoney(amount int64) (Money, error) {
	if amount < 0 {
		return 0, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	return Money(amount), nil
}

func (m Money) Int64() int64 {
	return int64(m)
}

func (m Money) String() string {
	return fmt.Sprintf("%d", int64(m))
}

// PayRate ставка за смену на одного работника.
type PayRate struct {
	Amount Money
}

// NewPayRate проверяет ставку относительно минимальной.
func NewPayRate(amount, minimum int64) (PayRate, error) {
	if amount < minimum {
		return PayRate{}, apperror.Newf(apperror.ErrCodeValidation, "ставка должна быть не меньше %d", minimum)
	}
	m, err := NewMoney(amount)
	if err != nil {
		return PayRate{}, err
	}
	return PayRate{Amount: m}, nil
}

// CommissionPercent процент комиссии платформы, 0 <= p < 100.
type CommissionPercent struct {
	Value decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

func NewCommissionPercent(p decimal.Decimal) (CommissionPercent, error) {
	if p.IsNegative() || p.GreaterThanOrEqual(hundred) {
		return CommissionPercent{}, apperror.New(apperror.ErrCodeValidation, "комиссия должна быть в диапазоне [0, 100)")
	}
	return CommissionPercent{Value: p}, nil
}

func (c CommissionPercent) String() string {
	return c.Value.String()
}
