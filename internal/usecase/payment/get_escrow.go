package payment

import (
	"context"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/repository"
	requestuc "github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/request"
	"github.com/google/uuid"
)

// GetEscrowUseCase чтение escrow и проводок; видимость как у заявки.
type GetEscrowUseCase struct {
	store  repository.Store
	access *requestuc.Access
}

func NewGetEscrowUseCase(store repository.Store, access *requestuc.Access) *GetEscrowUseCase {
	return &GetEscrowUseCase{store: store, access: access}
}

func (uc *GetEscrowUseCase) Execute(ctx context.Context, actor entity.Actor, requestID uuid.UUID) (*entity.EscrowAccount, error) {
	if err := uc.ensureVisible(ctx, actor, requestID); err != nil {
		return nil, err
	}
	return uc.store.Repos().Escrows.FindByRequestID(ctx, requestID)
}

func (uc *GetEscrowUseCase) Transactions(ctx context.Context, actor entity.Actor, requestID uuid.UUID) ([]*entity.Transaction, error) {
	if err := uc.ensureVisible(ctx, actor, requestID); err != nil {
		return nil, err
	}
	return uc.store.Repos().Transactions.ListByRequestID(ctx, requestID)
}

func (uc *GetEscrowUseCase) ensureVisible(ctx context.Context, actor entity.Actor, requestID uuid.UUID) error {
	req, err := uc.store.Repos().Requests.FindByID(ctx, requestID)
	if err != nil {
		return err
	}
	return uc.access.EnsureVisible(ctx, actor, req)
}
