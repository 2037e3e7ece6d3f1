package valueobject

import (
	"strings"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"
	"github.com/shopspring/decimal"
)

// MoneyScale количество знаков после запятой, как в колонках NUMERIC(14,2).
const MoneyScale = 2

type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewAmount проверяет, что сумма положительная и не содержит долей копейки.
func NewAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "сумма должна быть больше нуля")
	}
	if !amount.Equal(amount.Round(MoneyScale)) {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "сумма не может содержать больше двух знаков после запятой")
	}
	return amount.Round(MoneyScale), nil
}

func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	a, err := NewAmount(amount)
	if err != nil {
		return Money{}, err
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, apperror.New(apperror.ErrCodeValidation, "код валюты должен состоять из трёх букв")
	}
	return Money{Amount: a, Currency: currency}, nil
}

func (m Money) String() string {
	return m.Currency + " " + m.Amount.StringFixed(MoneyScale)
}
