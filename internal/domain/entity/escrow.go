package entity

import (
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EscrowAccount счёт хранения средств по заявке. Один на заявку, никогда не удаляется.
type EscrowAccount struct {
	ID        uuid.UUID
	RequestID uuid.UUID
	// PayeeID исполнитель, принявший заявку на момент открытия escrow.
	PayeeID     uuid.UUID
	Currency    string
	TotalAmount decimal.Decimal
	HeldAmount  decimal.Decimal
	Status      valueobject.EscrowStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SettledAt   *time.Time
}

func NewEscrowAccount(requestID, payeeID uuid.UUID, total valueobject.Money) *EscrowAccount {
	now := time.Now().UTC()
	return &EscrowAccount{
		ID:          uuid.New(),
		RequestID:   requestID,
		PayeeID:     payeeID,
		Currency:    total.Currency,
		TotalAmount: total.Amount,
		HeldAmount:  decimal.Zero,
		Status:      valueobject.EscrowStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Hold добавляет подтверждённую сумму к удерживаемой.
func (e *EscrowAccount) Hold(amount decimal.Decimal, at time.Time) error {
	if e.Status != valueobject.EscrowStatusPending && e.Status != valueobject.EscrowStatusHeld {
		return apperror.New(apperror.ErrCodeInvalidTransition, "escrow уже закрыт")
	}
	if !amount.IsPositive() {
		return apperror.New(apperror.ErrCodeValidation, "сумма должна быть больше нуля")
	}
	held := e.HeldAmount.Add(amount)
	if held.GreaterThan(e.TotalAmount) {
		return apperror.New(apperror.ErrCodeValidation, "удерживаемая сумма превышает сумму escrow")
	}
	e.HeldAmount = held
	e.Status = valueobject.EscrowStatusHeld
	e.UpdatedAt = at
	return nil
}

// Settle закрывает escrow выплатой исполнителю или возвратом клиенту и возвращает закрытую сумму.
func (e *EscrowAccount) Settle(to valueobject.EscrowStatus, at time.Time) (decimal.Decimal, error) {
	if to != valueobject.EscrowStatusReleased && to != valueobject.EscrowStatusRefunded {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "некорректный статус закрытия escrow")
	}
	if e.Status != valueobject.EscrowStatusHeld {
		return decimal.Zero, apperror.New(apperror.ErrCodeInvalidTransition,
			"escrow в статусе "+string(e.Status)+" нельзя закрыть")
	}
	amount := e.HeldAmount
	e.HeldAmount = decimal.Zero
	e.Status = to
	e.UpdatedAt = at
	e.SettledAt = &at
	return amount, nil
}

func (e *EscrowAccount) Money() valueobject.Money {
	return valueobject.Money{Amount: e.TotalAmount, Currency: e.Currency}
}
