package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/interface/http/dto"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/interface/http/response"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/request"
)

type RequestHandler struct {
	createUC *request.CreateRequestUseCase
	updateUC *request.UpdateStatusUseCase
	getUC    *request.GetRequestUseCase
	listUC   *request.ListRequestsUseCase
	deleteUC *request.DeleteRequestUseCase
}

func NewRequestHandler(
	createUC *request.CreateRequestUseCase,
	updateUC *request.UpdateStatusUseCase,
	getUC *request.GetRequestUseCase,
	listUC *request.ListRequestsUseCase,
	deleteUC *request.DeleteRequestUseCase,
) *RequestHandler {
	return &RequestHandler{
		createUC: createUC,
		updateUC: updateUC,
		getUC:    getUC,
		listUC:   listUC,
		deleteUC: deleteUC,
	}
}

// Create обрабатывает POST /api/requests.
func (h *RequestHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req dto.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	preferredDate, err := dto.ParseDate(req.PreferredDate)
	if err != nil {
		response.BadRequest(c, "некорректный формат желаемой даты")
		return
	}

	created, err := h.createUC.Execute(c.Request.Context(), request.CreateRequestInput{
		Actor: actor,
		Service: entity.ServiceRef{
			OfferedServiceID: req.OfferedServiceID,
			CategoryID:       req.CategoryID,
		},
		PreferredDate: preferredDate,
		Description:   req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToRequestResponse(created))
}

// List обрабатывает GET /api/requests?status=&limit=&offset=.
func (h *RequestHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	limit := parseIntQuery(c, "limit", 20)
	offset := parseIntQuery(c, "offset", 0)

	reqs, total, err := h.listUC.Execute(c.Request.Context(), request.ListRequestsInput{
		Actor:  actor,
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToRequestResponses(reqs), total, limit, offset)
}

func (h *RequestHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := requestIDParam(c)
	if !ok {
		return
	}

	req, err := h.getUC.Execute(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToRequestResponse(req))
}

func (h *RequestHandler) History(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := requestIDParam(c)
	if !ok {
		return
	}

	records, err := h.getUC.History(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToHistoryResponses(records))
}

func (h *RequestHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := requestIDParam(c)
	if !ok {
		return
	}

	if err := h.deleteUC.Execute(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// UpdateStatus обрабатывает PUT /api/requests/:id/status.
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := requestIDParam(c)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	updated, err := h.updateUC.Execute(c.Request.Context(), request.UpdateStatusInput{
		Actor:        actor,
		RequestID:    id,
		TargetStatus: req.Status,
		Payload:      req.Payload(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToRequestResponse(updated))
}
