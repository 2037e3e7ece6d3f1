package request

import (
	"context"
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/event"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/lifecycle"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/repository"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/notify"
	"github.com/google/uuid"
)

type UpdateStatusInput struct {
	Actor        entity.Actor
	RequestID    uuid.UUID
	TargetStatus string
	Payload      lifecycle.Payload
}

type UpdateStatusUseCase struct {
	store    repository.Store
	access   *Access
	notifier *notify.Dispatcher
}

func NewUpdateStatusUseCase(store repository.Store, access *Access, notifier *notify.Dispatcher) *UpdateStatusUseCase {
	return &UpdateStatusUseCase{store: store, access: access, notifier: notifier}
}

// Execute выполняет переход, запрошенный клиентом или исполнителем.
// Порядок проверок: заявка существует, права, таблица переходов, версия при записи.
func (uc *UpdateStatusUseCase) Execute(ctx context.Context, input UpdateStatusInput) (*entity.ServiceRequest, error) {
	target, err := valueobject.NewRequestStatus(input.TargetStatus)
	if err != nil {
		return nil, err
	}

	req, err := uc.store.Repos().Requests.FindByID(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}

	offers, err := uc.access.Offers(ctx, input.Actor, req)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Check(req, lifecycle.Input{
		Op:            lifecycle.OpUpdateStatus,
		Actor:         input.Actor,
		Target:        target,
		OffersService: offers,
		Payload:       input.Payload,
	}); err != nil {
		return nil, err
	}

	from := req.Status
	expected := req.Version
	previousProvider := req.AcceptedProviderID
	now := time.Now().UTC()

	switch target {
	case valueobject.RequestStatusProposed:
		err = req.Propose(*input.Payload.ProposedValue, now)
	case valueobject.RequestStatusAccepted:
		err = req.Accept(input.Actor.ID, input.Payload.ProposedValue, now)
	default:
		err = req.Transition(target, now)
	}
	if err != nil {
		return nil, err
	}

	err = uc.store.WithinTx(ctx, func(repos repository.Repositories) error {
		return SaveTransition(ctx, repos, req, expected, from, input.Actor, entity.HistoryActionStatusChanged)
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Emit(event.ForRequest(event.TypeStatusChanged, req, from).WithProvider(previousProvider))
	return req, nil
}
