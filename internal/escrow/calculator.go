// Package escrow считает суммы холда по смене и их распределение при выплате.
package escrow

import (
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crew-shifts-backend/internal/pkg/apperror"
)

var hundred = decimal.NewFromInt(100)

// Quote суммы холда: ставка на работника, комиссия платформы и итог.
type Quote struct {
	WorkerCount       int             `json:"worker_count"`
	WorkerAmount      int64           `json:"worker_amount"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
	CommissionAmount  int64           `json:"commission_amount"`
	TotalAmount       int64           `json:"total_amount"`
}

// Compute считает холд: commission = round_half_up(count*rate*percent/100),
// total = count*rate + commission.
func Compute(workerCount int, ratePerWorker int64, commissionPercent decimal.Decimal) (Quote, error) {
	if workerCount < 1 {
		return Quote{}, apperror.New(apperror.ErrCodeValidation, "количество работников должно быть не меньше 1")
	}
	if ratePerWorker < 0 {
		return Quote{}, apperror.New(apperror.ErrCodeValidation, "ставка не может быть отрицательной")
	}
	if _, err := valueobject.NewCommissionPercent(commissionPercent); err != nil {
		return Quote{}, err
	}

	base := int64(workerCount) * ratePerWorker
	q := Quote{
		WorkerCount:       workerCount,
		WorkerAmount:      ratePerWorker,
		CommissionPercent: commissionPercent,
		CommissionAmount:  commissionFor(base, commissionPercent),
	}
	q.TotalAmount = base + q.CommissionAmount
	return q, q.Verify()
}

// commissionFor округляет half-up до целой единицы валюты.
func commissionFor(base int64, percent decimal.Decimal) int64 {
	return decimal.NewFromInt(base).Mul(percent).Div(hundred).Round(0).IntPart()
}

// Verify проверяет, что итог равен сумме компонентов.
func (q Quote) Verify() error {
	if q.TotalAmount != int64(q.WorkerCount)*q.WorkerAmount+q.CommissionAmount {
		return apperror.Newf(apperror.ErrCodeEscrowInconsistency,
			"итог %d не равен %d*%d+%d", q.TotalAmount, q.WorkerCount, q.WorkerAmount, q.CommissionAmount)
	}
	return nil
}

// Settlement распределение холда при выплате.
type Settlement struct {
	PaidWorkers      int   `json:"paid_workers"`
	WorkerPayout     int64 `json:"worker_payout"`
	CommissionAmount int64 `json:"commission_amount"`
	ClientReturn     int64 `json:"client_return"`
}

// Sum возвращает все движения денег по расчёту.
func (s Settlement) Sum() int64 {
	return int64(s.PaidWorkers)*s.WorkerPayout + s.CommissionAmount + s.ClientReturn
}

// Settle распределяет холд: каждому отработавшему ставка, платформе комиссия
// с оплаченной работы, остаток (доли неявившихся и их комиссия) возвращается клиенту.
func Settle(q Quote, paidWorkers int) (Settlement, error) {
	if err := q.Verify(); err != nil {
		return Settlement{}, err
	}
	if paidWorkers < 0 || paidWorkers > q.WorkerCount {
		return Settlement{}, apperror.Newf(apperror.ErrCodeEscrowInconsistency,
			"оплачиваемых работников %d при холде на %d", paidWorkers, q.WorkerCount)
	}

	paidBase := int64(paidWorkers) * q.WorkerAmount
	commission := q.CommissionAmount
	if paidWorkers < q.WorkerCount {
		commission = commissionFor(paidBase, q.CommissionPercent)
	}

	s := Settlement{
		PaidWorkers:      paidWorkers,
		WorkerPayout:     q.WorkerAmount,
		CommissionAmount: commission,
		ClientReturn:     q.TotalAmount - paidBase - commission,
	}
	if s.ClientReturn < 0 || s.Sum() != q.TotalAmount {
		return Settlement{}, apperror.Newf(apperror.ErrCodeEscrowInconsistency,
			"расчёт %d не совпадает с холдом %d", s.Sum(), q.TotalAmount)
	}
	return s, nil
}

// Refund возвращает клиенту весь холд.
func Refund(q Quote) (Settlement, error) {
	if err := q.Verify(); err != nil {
		return Settlement{}, err
	}
	return Settlement{ClientReturn: q.TotalAmount}, nil
}

// CheckTransition охраняет движение статуса холда только вперёд.
func CheckTransition(from, to valueobject.EscrowStatus) error {
	if !from.CanTransitionTo(to) {
		return apperror.Newf(apperror.ErrCodeInvalidTransition, "холд нельзя перевести из %s в %s", from, to)
	}
	return nil
}
