package request

import (
	"context"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/event"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/repository"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/notify"
	"github.com/google/uuid"
)

type DeleteRequestUseCase struct {
	store    repository.Store
	notifier *notify.Dispatcher
}

func NewDeleteRequestUseCase(store repository.Store, notifier *notify.Dispatcher) *DeleteRequestUseCase {
	return &DeleteRequestUseCase{store: store, notifier: notifier}
}

// Execute удаляет заявку. Разрешено только клиенту-владельцу и только в статусе pending.
func (uc *DeleteRequestUseCase) Execute(ctx context.Context, actor entity.Actor, requestID uuid.UUID) error {
	req, err := uc.store.Repos().Requests.FindByID(ctx, requestID)
	if err != nil {
		return err
	}

	if !actor.IsClient() || !req.IsOwnedBy(actor.ID) {
		return apperror.ErrForbidden
	}
	if !req.CanBeDeleted() {
		return apperror.New(apperror.ErrCodeInvalidTransition, "удалить можно только заявку в статусе pending")
	}

	if err := uc.store.Repos().Requests.DeleteIfPending(ctx, req.ID, req.Version); err != nil {
		return err
	}

	uc.notifier.Emit(event.ForRequest(event.TypeRequestDeleted, req, req.Status))
	return nil
}
