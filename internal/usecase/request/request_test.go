package request_test

import (
	"context"
	"sync"
	"testing"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/lifecycle"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/infrastructure/memory"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/notify"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/request"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fixture struct {
	store      *memory.Store
	catalog    *memory.Catalog
	access     *request.Access
	create     *request.CreateRequestUseCase
	update     *request.UpdateStatusUseCase
	get        *request.GetRequestUseCase
	list       *request.ListRequestsUseCase
	remove     *request.DeleteRequestUseCase
	client     entity.Actor
	provider   entity.Actor
	serviceID  uuid.UUID
	categoryID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	catalog := memory.NewCatalog()
	access := request.NewAccess(catalog)
	notifier := notify.NewDispatcher(nil, nil)

	f := &fixture{
		store:      store,
		catalog:    catalog,
		access:     access,
		create:     request.NewCreateRequestUseCase(store, catalog, notifier),
		update:     request.NewUpdateStatusUseCase(store, access, notifier),
		get:        request.NewGetRequestUseCase(store, access),
		list:       request.NewListRequestsUseCase(store, access),
		remove:     request.NewDeleteRequestUseCase(store, notifier),
		client:     entity.Actor{ID: uuid.New(), Role: valueobject.RoleClient},
		provider:   entity.Actor{ID: uuid.New(), Role: valueobject.RoleProvider},
		serviceID:  uuid.New(),
		categoryID: uuid.New(),
	}
	catalog.AddService(f.serviceID, f.provider.ID, f.categoryID)
	return f
}

func (f *fixture) newRequest(t *testing.T) *entity.ServiceRequest {
	t.Helper()
	serviceID := f.serviceID
	req, err := f.create.Execute(context.Background(), request.CreateRequestInput{
		Actor:       f.client,
		Service:     entity.ServiceRef{OfferedServiceID: &serviceID},
		Description: "Покраска стен",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return req
}

func (f *fixture) newCategoryRequest(t *testing.T) *entity.ServiceRequest {
	t.Helper()
	categoryID := f.categoryID
	req, err := f.create.Execute(context.Background(), request.CreateRequestInput{
		Actor:       f.client,
		Service:     entity.ServiceRef{CategoryID: &categoryID},
		Description: "Ремонт в ванной",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return req
}

// addProvider регистрирует ещё одного исполнителя в той же категории.
func (f *fixture) addProvider(t *testing.T) entity.Actor {
	t.Helper()
	p := entity.Actor{ID: uuid.New(), Role: valueobject.RoleProvider}
	f.catalog.AddService(uuid.New(), p.ID, f.categoryID)
	return p
}

func TestCreateRequestUseCase_Success(t *testing.T) {
	f := newFixture(t)
	req := f.newRequest(t)

	if req.Status != valueobject.RequestStatusPending {
		t.Errorf("expected status pending, got %s", req.Status)
	}
	if req.ClientID != f.client.ID {
		t.Errorf("expected client %s, got %s", f.client.ID, req.ClientID)
	}

	history, _ := f.store.Repos().History.ListByRequestID(context.Background(), req.ID)
	if len(history) != 1 || history[0].Action != entity.HistoryActionCreated {
		t.Errorf("expected created history record, got %+v", history)
	}
}

func TestCreateRequestUseCase_UnknownService(t *testing.T) {
	f := newFixture(t)
	unknown := uuid.New()

	_, err := f.create.Execute(context.Background(), request.CreateRequestInput{
		Actor:       f.client,
		Service:     entity.ServiceRef{OfferedServiceID: &unknown},
		Description: "Покраска стен",
	})
	if !apperror.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateRequestUseCase_ProviderForbidden(t *testing.T) {
	f := newFixture(t)
	serviceID := f.serviceID

	_, err := f.create.Execute(context.Background(), request.CreateRequestInput{
		Actor:       f.provider,
		Service:     entity.ServiceRef{OfferedServiceID: &serviceID},
		Description: "Покраска стен",
	})
	if !apperror.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateStatusUseCase_ProposeThenAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.newRequest(t)
	value := decimal.RequireFromString("150")

	got, err := f.update.Execute(ctx, request.UpdateStatusInput{
		Actor: f.provider, RequestID: req.ID, TargetStatus: "proposed",
		Payload: lifecycle.Payload{ProposedValue: &value},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != valueobject.RequestStatusProposed || !got.ProposedValue.Equal(value) {
		t.Fatalf("unexpected request after propose: %+v", got)
	}

	got, err = f.update.Execute(ctx, request.UpdateStatusInput{
		Actor: f.provider, RequestID: req.ID, TargetStatus: "accepted",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsAcceptedBy(f.provider.ID) {
		t.Errorf("expected provider %s to be acceptor", f.provider.ID)
	}
	if got.Version != 3 {
		t.Errorf("expected version 3, got %d", got.Version)
	}
}

func TestUpdateStatusUseCase_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.newRequest(t)

	_, err := f.update.Execute(ctx, request.UpdateStatusInput{
		Actor: f.client, RequestID: req.ID, TargetStatus: "accepted",
	})
	if !apperror.IsForbidden(err) {
		t.Errorf("client accept: expected forbidden, got %v", err)
	}

	_, err = f.update.Execute(ctx, request.UpdateStatusInput{
		Actor: f.provider, RequestID: req.ID, TargetStatus: "cancelled",
	})
	if !apperror.IsForbidden(err) {
		t.Errorf("provider cancel: expected forbidden, got %v", err)
	}

	value := decimal.RequireFromString("10")
	_, err = f.update.Execute(ctx, request.UpdateStatusInput{
		Actor: f.client, RequestID: req.ID, TargetStatus: "cancelled",
		Payload: lifecycle.Payload{ProposedValue: &value},
	})
	if !apperror.IsForbidden(err) {
		t.Errorf("client with proposed value: expected forbidden, got %v", err)
	}

	_, err = f.update.Execute(ctx, request.UpdateStatusInput{
		Actor: f.client, RequestID: req.ID, TargetStatus: "paid",
	})
	if !apperror.IsInvalidTransition(err) {
		t.Errorf("client paid: expected invalid transition, got %v", err)
	}

	_, err = f.update.Execute(ctx, request.UpdateStatusInput{
		Actor: f.client, RequestID: uuid.New(), TargetStatus: "cancelled",
	})
	if !apperror.IsNotFound(err) {
		t.Errorf("missing request: expected not found, got %v", err)
	}
}

func TestUpdateStatusUseCase_DoubleAcceptRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	second := f.addProvider(t)
	providers := []entity.Actor{f.provider, second}

	const rounds = 20
	for round := 0; round < rounds; round++ {
		req := f.newCategoryRequest(t)

		var wg sync.WaitGroup
		errs := make([]error, len(providers))
		start := make(chan struct{})
		for i, p := range providers {
			wg.Add(1)
			go func(i int, p entity.Actor) {
				defer wg.Done()
				<-start
				_, errs[i] = f.update.Execute(ctx, request.UpdateStatusInput{
					Actor: p, RequestID: req.ID, TargetStatus: "accepted",
				})
			}(i, p)
		}
		close(start)
		wg.Wait()

		winners := 0
		var winner entity.Actor
		for i, err := range errs {
			switch {
			case err == nil:
				winners++
				winner = providers[i]
			case !apperror.IsConflict(err):
				t.Fatalf("round %d: expected conflict for loser, got %v", round, err)
			}
		}
		if winners != 1 {
			t.Fatalf("round %d: expected exactly one winner, got %d", round, winners)
		}

		stored, _ := f.store.Repos().Requests.FindByID(ctx, req.ID)
		if !stored.IsAcceptedBy(winner.ID) {
			t.Fatalf("round %d: acceptor does not match winner", round)
		}
	}
}

func TestUpdateStatusUseCase_CancelClearsAcceptor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.newRequest(t)

	if _, err := f.update.Execute(ctx, request.UpdateStatusInput{Actor: f.provider, RequestID: req.ID, TargetStatus: "accepted"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := f.update.Execute(ctx, request.UpdateStatusInput{Actor: f.client, RequestID: req.ID, TargetStatus: "cancelled"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AcceptedProviderID != nil {
		t.Errorf("expected acceptor to be cleared on cancel")
	}

	history, _ := f.store.Repos().History.ListByRequestID(ctx, req.ID)
	if len(history) != 3 {
		t.Errorf("expected 3 history records, got %d", len(history))
	}
	last := history[len(history)-1]
	if last.ActorID == nil || *last.ActorID != f.client.ID || *last.FromStatus != valueobject.RequestStatusAccepted {
		t.Errorf("unexpected last history record: %+v", last)
	}
}

func TestGetRequestUseCase_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.newRequest(t)
	stranger := entity.Actor{ID: uuid.New(), Role: valueobject.RoleProvider}
	operator := entity.Actor{ID: uuid.New(), Role: valueobject.RoleOperator}

	if _, err := f.get.Execute(ctx, f.client, req.ID); err != nil {
		t.Errorf("owner: unexpected error: %v", err)
	}
	if _, err := f.get.Execute(ctx, f.provider, req.ID); err != nil {
		t.Errorf("offering provider: unexpected error: %v", err)
	}
	if _, err := f.get.Execute(ctx, operator, req.ID); err != nil {
		t.Errorf("operator: unexpected error: %v", err)
	}
	if _, err := f.get.Execute(ctx, stranger, req.ID); !apperror.IsForbidden(err) {
		t.Errorf("stranger: expected forbidden, got %v", err)
	}
	if _, err := f.get.Execute(ctx, f.client, uuid.New()); !apperror.IsNotFound(err) {
		t.Errorf("missing: expected not found, got %v", err)
	}
}

func TestListRequestsUseCase_UsesSamePredicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.newRequest(t)
	f.newRequest(t)

	otherClient := entity.Actor{ID: uuid.New(), Role: valueobject.RoleClient}
	catID := uuid.New()
	f.catalog.AddService(uuid.New(), uuid.New(), catID)
	if _, err := f.create.Execute(ctx, request.CreateRequestInput{
		Actor: otherClient, Service: entity.ServiceRef{CategoryID: &catID}, Description: "Сантехника",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list, total, err := f.list.Execute(ctx, request.ListRequestsInput{Actor: f.provider})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("expected provider to see 2 requests, got %d", total)
	}
	for _, r := range list {
		if _, err := f.get.Execute(ctx, f.provider, r.ID); err != nil {
			t.Errorf("listed request must be readable: %v", err)
		}
	}

	_, total, _ = f.list.Execute(ctx, request.ListRequestsInput{Actor: otherClient})
	if total != 1 {
		t.Errorf("expected other client to see 1 request, got %d", total)
	}

	if _, _, err := f.list.Execute(ctx, request.ListRequestsInput{Actor: f.client, Status: "bogus"}); !apperror.IsValidation(err) {
		t.Errorf("expected validation error for bad status, got %v", err)
	}
}

func TestDeleteRequestUseCase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.newRequest(t)

	if err := f.remove.Execute(ctx, f.provider, req.ID); !apperror.IsForbidden(err) {
		t.Errorf("provider delete: expected forbidden, got %v", err)
	}

	accepted := f.newRequest(t)
	if _, err := f.update.Execute(ctx, request.UpdateStatusInput{Actor: f.provider, RequestID: accepted.ID, TargetStatus: "accepted"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.remove.Execute(ctx, f.client, accepted.ID); !apperror.IsInvalidTransition(err) {
		t.Errorf("delete accepted: expected invalid transition, got %v", err)
	}

	if err := f.remove.Execute(ctx, f.client, req.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.get.Execute(ctx, f.client, req.ID); !apperror.IsNotFound(err) {
		t.Errorf("expected deleted request to be gone, got %v", err)
	}
}
