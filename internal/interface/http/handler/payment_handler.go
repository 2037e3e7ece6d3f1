package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/interface/http/dto"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/interface/http/response"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/payment"
)

type PaymentHandler struct {
	initiateUC *payment.InitiatePaymentUseCase
	releaseUC  *payment.ReleasePaymentUseCase
	refundUC   *payment.RefundPaymentUseCase
	escrowUC   *payment.GetEscrowUseCase
}

func NewPaymentHandler(
	initiateUC *payment.InitiatePaymentUseCase,
	releaseUC *payment.ReleasePaymentUseCase,
	refundUC *payment.RefundPaymentUseCase,
	escrowUC *payment.GetEscrowUseCase,
) *PaymentHandler {
	return &PaymentHandler{
		initiateUC: initiateUC,
		releaseUC:  releaseUC,
		refundUC:   refundUC,
		escrowUC:   escrowUC,
	}
}

// Initiate обрабатывает POST /api/requests/:id/payments.
func (h *PaymentHandler) Initiate(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := requestIDParam(c)
	if !ok {
		return
	}

	var req dto.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные платежа")
		return
	}

	res, err := h.initiateUC.Execute(c.Request.Context(), payment.InitiatePaymentInput{
		Actor:     actor,
		RequestID: id,
		Method:    req.Method,
		Amount:    req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToPaymentResponse(res))
}

func (h *PaymentHandler) Release(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := requestIDParam(c)
	if !ok {
		return
	}

	acc, err := h.releaseUC.Execute(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToEscrowResponse(acc))
}

func (h *PaymentHandler) Refund(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := requestIDParam(c)
	if !ok {
		return
	}

	acc, err := h.refundUC.Execute(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToEscrowResponse(acc))
}

func (h *PaymentHandler) GetEscrow(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := requestIDParam(c)
	if !ok {
		return
	}

	acc, err := h.escrowUC.Execute(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToEscrowResponse(acc))
}

func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := requestIDParam(c)
	if !ok {
		return
	}

	txs, err := h.escrowUC.Transactions(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToTransactionResponses(txs))
}
