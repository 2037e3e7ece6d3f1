package request

import (
	"context"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/repository"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type GetRequestUseCase struct {
	store  repository.Store
	access *Access
}

func NewGetRequestUseCase(store repository.Store, access *Access) *GetRequestUseCase {
	return &GetRequestUseCase{store: store, access: access}
}

func (uc *GetRequestUseCase) Execute(ctx context.Context, actor entity.Actor, requestID uuid.UUID) (*entity.ServiceRequest, error) {
	req, err := uc.store.Repos().Requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := uc.access.EnsureVisible(ctx, actor, req); err != nil {
		return nil, err
	}
	return req, nil
}

// History журнал заявки, видимость как у самой заявки.
func (uc *GetRequestUseCase) History(ctx context.Context, actor entity.Actor, requestID uuid.UUID) ([]*entity.RequestHistory, error) {
	if _, err := uc.Execute(ctx, actor, requestID); err != nil {
		return nil, err
	}
	return uc.store.Repos().History.ListByRequestID(ctx, requestID)
}

type ListRequestsInput struct {
	Actor  entity.Actor
	Status string
	Limit  int
	Offset int
}

type ListRequestsUseCase struct {
	store  repository.Store
	access *Access
}

func NewListRequestsUseCase(store repository.Store, access *Access) *ListRequestsUseCase {
	return &ListRequestsUseCase{store: store, access: access}
}

func (uc *ListRequestsUseCase) Execute(ctx context.Context, input ListRequestsInput) ([]*entity.ServiceRequest, int, error) {
	viewer, err := uc.access.Viewer(ctx, input.Actor)
	if err != nil {
		return nil, 0, err
	}

	filter := repository.RequestFilter{
		Viewer: viewer,
		Limit:  input.Limit,
		Offset: input.Offset,
	}
	if input.Status != "" {
		status, err := valueobject.NewRequestStatus(input.Status)
		if err != nil {
			return nil, 0, err
		}
		filter.Status = &status
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	return uc.store.Repos().Requests.List(ctx, filter)
}
