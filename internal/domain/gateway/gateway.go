// Package gateway описывает внешний платёжный шлюз как чёрный ящик с двумя операциями.
package gateway

import (
	"context"
	"strings"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentSpec struct {
	Amount      decimal.Decimal
	Currency    string
	PayerRef    uuid.UUID
	PayeeRef    uuid.UUID
	Method      valueobject.PaymentMethod
	Reference   string
	CallbackURL string
	Description string
}

// InitiateResult ответ шлюза: внешний id платежа и данные для оплаты (ссылка или код PIX).
type InitiateResult struct {
	ExternalRef string `json:"external_ref"`
	Status      string `json:"status"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Code        string `json:"code,omitempty"`
}

type Gateway interface {
	// Initiate возвращает GATEWAY_UNAVAILABLE при сетевой ошибке, таймауте или 5xx.
	Initiate(ctx context.Context, spec PaymentSpec) (*InitiateResult, error)
	QueryStatus(ctx context.Context, externalRef string) (string, error)
}

var (
	successStatuses = map[string]bool{
		"approved": true, "paid": true, "success": true, "succeeded": true, "confirmed": true, "settled": true,
	}
	failureStatuses = map[string]bool{
		"rejected": true, "failed": true, "cancelled": true, "canceled": true, "expired": true, "refused": true, "error": true,
	}
)

// MapStatus переводит статус шлюза в статус транзакции. Неизвестные статусы означают, что платёж ещё в обработке.
func MapStatus(raw string) valueobject.TransactionStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case successStatuses[s]:
		return valueobject.TransactionStatusConfirmed
	case failureStatuses[s]:
		return valueobject.TransactionStatusFailed
	}
	return valueobject.TransactionStatusPending
}
