package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/payment"
)

type InitiatePaymentRequest struct {
	Method string          `json:"method" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// PaymentWebhook тело уведомления платёжного шлюза.
type PaymentWebhook struct {
	ExternalRef string `json:"external_ref" binding:"required"`
	Status      string `json:"status" binding:"required"`
}

type EscrowResponse struct {
	ID          uuid.UUID       `json:"id"`
	RequestID   uuid.UUID       `json:"request_id"`
	PayeeID     uuid.UUID       `json:"payee_id"`
	Currency    string          `json:"currency"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	HeldAmount  decimal.Decimal `json:"held_amount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	SettledAt   *time.Time      `json:"settled_at,omitempty"`
}

type TransactionResponse struct {
	ID              uuid.UUID       `json:"id"`
	EscrowAccountID uuid.UUID       `json:"escrow_account_id"`
	Direction       string          `json:"direction"`
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"method"`
	Status          string          `json:"status"`
	ExternalRef     string          `json:"external_ref"`
	GatewayStatus   string          `json:"gateway_status,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type PaymentResponse struct {
	Request     RequestResponse     `json:"request"`
	Escrow      EscrowResponse      `json:"escrow"`
	Transaction TransactionResponse `json:"transaction"`
	RedirectURL string              `json:"redirect_url,omitempty"`
	Code        string              `json:"code,omitempty"`
}

type WebhookResponse struct {
	Outcome string `json:"outcome"`
}

func ToEscrowResponse(acc *entity.EscrowAccount) EscrowResponse {
	return EscrowResponse{
		ID:          acc.ID,
		RequestID:   acc.RequestID,
		PayeeID:     acc.PayeeID,
		Currency:    acc.Currency,
		TotalAmount: acc.TotalAmount,
		HeldAmount:  acc.HeldAmount,
		Status:      string(acc.Status),
		CreatedAt:   acc.CreatedAt,
		UpdatedAt:   acc.UpdatedAt,
		SettledAt:   acc.SettledAt,
	}
}

func ToTransactionResponse(tx *entity.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              tx.ID,
		EscrowAccountID: tx.EscrowAccountID,
		Direction:       string(tx.Direction),
		Amount:          tx.Amount,
		Method:          string(tx.Method),
		Status:          string(tx.Status),
		ExternalRef:     tx.ExternalRef,
		GatewayStatus:   tx.GatewayStatus,
		CreatedAt:       tx.CreatedAt,
		UpdatedAt:       tx.UpdatedAt,
	}
}

func ToTransactionResponses(txs []*entity.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, ToTransactionResponse(tx))
	}
	return out
}

func ToPaymentResponse(res *payment.InitiatePaymentResult) PaymentResponse {
	resp := PaymentResponse{
		Request:     ToRequestResponse(res.Request),
		Escrow:      ToEscrowResponse(res.Escrow),
		Transaction: ToTransactionResponse(res.Transaction),
	}
	if res.Gateway != nil {
		resp.RedirectURL = res.Gateway.RedirectURL
		resp.Code = res.Gateway.Code
	}
	return resp
}
