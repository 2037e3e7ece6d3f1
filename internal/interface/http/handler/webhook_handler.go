package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/interface/http/dto"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/interface/http/response"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/payment"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/validation"
)

type WebhookHandler struct {
	callbackUC *payment.HandleCallbackUseCase
}

func NewWebhookHandler(callbackUC *payment.HandleCallbackUseCase) *WebhookHandler {
	return &WebhookHandler{callbackUC: callbackUC}
}

// Payments обрабатывает POST /api/webhooks/payments.
// Любая ошибка отвечает 503: шлюз доставит уведомление повторно.
func (h *WebhookHandler) Payments(c *gin.Context) {
	var req dto.PaymentWebhook
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректное уведомление")
		return
	}
	if err := validation.ValidateExternalRef(req.ExternalRef); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	outcome, err := h.callbackUC.Execute(c.Request.Context(), req.ExternalRef, req.Status)
	if err != nil {
		code := apperror.ErrCodeInternal
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code != apperror.ErrCodeDatabaseError {
			code = appErr.Code
		}
		c.JSON(http.StatusServiceUnavailable, response.Response{
			Success: false,
			Error:   &response.ErrorInfo{Code: string(code), Message: "уведомление не обработано, повторите доставку"},
		})
		return
	}

	if outcome == payment.OutcomeUnknown {
		c.JSON(http.StatusNotFound, response.Response{
			Success: false,
			Data:    dto.WebhookResponse{Outcome: string(outcome)},
			Error:   &response.ErrorInfo{Code: string(apperror.ErrCodeNotFound), Message: "платёж не найден"},
		})
		return
	}

	response.Success(c, dto.WebhookResponse{Outcome: string(outcome)})
}
