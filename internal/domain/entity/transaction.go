package entity

import (
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction проводка по escrow. Меняются только статусы и updated_at.
type Transaction struct {
	ID              uuid.UUID
	RequestID       uuid.UUID
	EscrowAccountID uuid.UUID
	Direction       valueobject.Direction
	Amount          decimal.Decimal
	Method          valueobject.PaymentMethod
	Status          valueobject.TransactionStatus
	ExternalRef     string
	GatewayStatus   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewInboundTransaction платёж клиента в escrow, ожидающий подтверждения шлюза.
func NewInboundTransaction(escrow *EscrowAccount, method valueobject.PaymentMethod, externalRef, gatewayStatus string) *Transaction {
	now := time.Now().UTC()
	return &Transaction{
		ID:              uuid.New(),
		RequestID:       escrow.RequestID,
		EscrowAccountID: escrow.ID,
		Direction:       valueobject.DirectionClientToEscrow,
		Amount:          escrow.TotalAmount,
		Method:          method,
		Status:          valueobject.TransactionStatusPending,
		ExternalRef:     externalRef,
		GatewayStatus:   gatewayStatus,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// NewOutboundTransaction исходящая проводка escrow; считается выполненной сразу.
func NewOutboundTransaction(escrow *EscrowAccount, direction valueobject.Direction, amount decimal.Decimal, externalRef string, at time.Time) *Transaction {
	return &Transaction{
		ID:              uuid.New(),
		RequestID:       escrow.RequestID,
		EscrowAccountID: escrow.ID,
		Direction:       direction,
		Amount:          amount,
		Method:          valueobject.PaymentMethodInternal,
		Status:          valueobject.TransactionStatusConfirmed,
		ExternalRef:     externalRef,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
}

// Resolve фиксирует ответ шлюза. Повторно менять терминальный статус нельзя.
func (t *Transaction) Resolve(status valueobject.TransactionStatus, gatewayStatus string, at time.Time) bool {
	if t.Status.IsTerminal() {
		return false
	}
	t.Status = status
	t.GatewayStatus = gatewayStatus
	t.UpdatedAt = at
	return true
}
