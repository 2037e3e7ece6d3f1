package request

import (
	"context"
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/event"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/repository"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/notify"
)

type CreateRequestInput struct {
	Actor         entity.Actor
	Service       entity.ServiceRef
	PreferredDate *time.Time
	Description   string
}

type CreateRequestUseCase struct {
	store    repository.Store
	catalog  repository.ServiceCatalog
	notifier *notify.Dispatcher
}

func NewCreateRequestUseCase(store repository.Store, catalog repository.ServiceCatalog, notifier *notify.Dispatcher) *CreateRequestUseCase {
	return &CreateRequestUseCase{store: store, catalog: catalog, notifier: notifier}
}

func (uc *CreateRequestUseCase) Execute(ctx context.Context, input CreateRequestInput) (*entity.ServiceRequest, error) {
	if !input.Actor.IsClient() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "создавать заявки может только клиент")
	}

	req, err := entity.NewServiceRequest(input.Actor.ID, input.Service, input.PreferredDate, input.Description)
	if err != nil {
		return nil, err
	}

	exists, err := uc.catalog.ServiceExists(ctx, input.Service)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить услугу")
	}
	if !exists {
		return nil, apperror.ErrServiceNotFound
	}

	err = uc.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Requests.Create(ctx, req); err != nil {
			return err
		}
		return repos.History.Append(ctx, entity.NewRequestHistory(req.ID, input.Actor, entity.HistoryActionCreated, nil, req.Status, req.CreatedAt))
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Emit(event.ForRequest(event.TypeRequestCreated, req, ""))
	return req, nil
}
