package payment

import (
	"context"
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/event"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/lifecycle"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/repository"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/escrow"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/notify"
	requestuc "github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/request"
	"github.com/google/uuid"
)

// settlementKind описывает одно из двух закрытий escrow.
type settlementKind struct {
	op        lifecycle.Operation
	target    valueobject.RequestStatus
	escrowTo  valueobject.EscrowStatus
	action    string
	eventType event.Type
}

var (
	releaseKind = settlementKind{
		op:        lifecycle.OpRelease,
		target:    valueobject.RequestStatusCompleted,
		escrowTo:  valueobject.EscrowStatusReleased,
		action:    entity.HistoryActionReleased,
		eventType: event.TypeEscrowReleased,
	}
	refundKind = settlementKind{
		op:        lifecycle.OpRefund,
		target:    valueobject.RequestStatusCancelled,
		escrowTo:  valueobject.EscrowStatusRefunded,
		action:    entity.HistoryActionRefunded,
		eventType: event.TypeEscrowRefunded,
	}
)

type settler struct {
	store    repository.Store
	ledger   *escrow.Ledger
	notifier *notify.Dispatcher
}

// ReleasePaymentUseCase выплачивает удержанные средства исполнителю и завершает заявку.
type ReleasePaymentUseCase struct{ settler }

func NewReleasePaymentUseCase(store repository.Store, ledger *escrow.Ledger, notifier *notify.Dispatcher) *ReleasePaymentUseCase {
	return &ReleasePaymentUseCase{settler{store: store, ledger: ledger, notifier: notifier}}
}

func (uc *ReleasePaymentUseCase) Execute(ctx context.Context, actor entity.Actor, requestID uuid.UUID) (*entity.EscrowAccount, error) {
	return uc.settle(ctx, actor, requestID, releaseKind)
}

// RefundPaymentUseCase возвращает удержанные средства клиенту и отменяет оплаченную заявку.
type RefundPaymentUseCase struct{ settler }

func NewRefundPaymentUseCase(store repository.Store, ledger *escrow.Ledger, notifier *notify.Dispatcher) *RefundPaymentUseCase {
	return &RefundPaymentUseCase{settler{store: store, ledger: ledger, notifier: notifier}}
}

func (uc *RefundPaymentUseCase) Execute(ctx context.Context, actor entity.Actor, requestID uuid.UUID) (*entity.EscrowAccount, error) {
	return uc.settle(ctx, actor, requestID, refundKind)
}

// settle повторный вызов на уже закрытом escrow возвращает его без новой проводки.
func (s settler) settle(ctx context.Context, actor entity.Actor, requestID uuid.UUID, kind settlementKind) (*entity.EscrowAccount, error) {
	repos := s.store.Repos()
	req, err := repos.Requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !canSettle(kind, actor, req) {
		return nil, apperror.ErrForbidden
	}

	acc, err := repos.Escrows.FindByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if acc.Status == kind.escrowTo {
		return acc, nil
	}
	if err := s.check(kind, actor, req); err != nil {
		return nil, err
	}

	var (
		result   *entity.EscrowAccount
		evt      event.Event
		provider = req.AcceptedProviderID
		applied  bool
	)
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		settlement, err := s.apply(ctx, repos, kind, acc.ID)
		if err != nil {
			return err
		}
		result = settlement.Escrow
		applied = settlement.Applied()
		if !applied {
			return nil
		}

		// Заявку перечитываем под блокировкой escrow.
		cur, err := repos.Requests.FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		if err := s.check(kind, actor, cur); err != nil {
			return err
		}
		from, expected := cur.Status, cur.Version
		if err := cur.Transition(kind.target, time.Now().UTC()); err != nil {
			return err
		}
		if err := requestuc.SaveTransition(ctx, repos, cur, expected, from, actor, kind.action); err != nil {
			return err
		}
		evt = event.ForRequest(kind.eventType, cur, from).WithProvider(provider).WithAmount(settlement.Transaction.Amount)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if applied {
		s.notifier.Emit(evt)
	}
	return result, nil
}

func (s settler) apply(ctx context.Context, repos repository.Repositories, kind settlementKind, escrowID uuid.UUID) (escrow.Settlement, error) {
	if kind.escrowTo == valueobject.EscrowStatusReleased {
		return s.ledger.Release(ctx, repos, escrowID)
	}
	return s.ledger.Refund(ctx, repos, escrowID)
}

func (s settler) check(kind settlementKind, actor entity.Actor, req *entity.ServiceRequest) error {
	return lifecycle.Check(req, lifecycle.Input{Op: kind.op, Actor: actor, Target: kind.target})
}

// canSettle права на операцию без учёта статуса, чтобы повторный вызов был идемпотентным.
func canSettle(kind settlementKind, actor entity.Actor, req *entity.ServiceRequest) bool {
	for _, r := range lifecycle.Rules() {
		if r.Op != kind.op || r.Role != actor.Role {
			continue
		}
		if r.Relation == lifecycle.RelAny || (r.Relation == lifecycle.RelOwner && req.IsOwnedBy(actor.ID)) {
			return true
		}
	}
	return false
}
