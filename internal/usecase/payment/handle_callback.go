package payment

import (
	"context"
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/event"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/gateway"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/lifecycle"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/repository"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/logger"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/escrow"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/notify"
	requestuc "github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/request"
	"github.com/sirupsen/logrus"
)

// Outcome результат обработки уведомления шлюза.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeUnknown   Outcome = "unknown"
	OutcomePending   Outcome = "pending"
	// OutcomeRefunded платёж подтверждён после отмены заявки, средства сразу возвращены клиенту.
	OutcomeRefunded Outcome = "refunded"
)

type HandleCallbackUseCase struct {
	store    repository.Store
	ledger   *escrow.Ledger
	notifier *notify.Dispatcher
}

func NewHandleCallbackUseCase(store repository.Store, ledger *escrow.Ledger, notifier *notify.Dispatcher) *HandleCallbackUseCase {
	return &HandleCallbackUseCase{store: store, ledger: ledger, notifier: notifier}
}

// Execute сверяет уведомление шлюза с локальным состоянием. Повторная доставка ничего не меняет:
// терминальная транзакция возвращает OutcomeDuplicate. Обновление транзакции, escrow и заявки
// выполняется в одной транзакции БД.
func (uc *HandleCallbackUseCase) Execute(ctx context.Context, externalRef, gatewayStatus string) (Outcome, error) {
	log := logger.WithFields(logrus.Fields{
		"external_ref":   externalRef,
		"gateway_status": gatewayStatus,
	})

	tx, err := uc.store.Repos().Transactions.FindByExternalRef(ctx, externalRef)
	if apperror.IsNotFound(err) {
		log.Warn("webhook: неизвестный external_ref")
		return OutcomeUnknown, nil
	}
	if err != nil {
		log.WithError(err).Error("webhook: не удалось найти транзакцию")
		return "", err
	}
	if tx.Status.IsTerminal() {
		return OutcomeDuplicate, nil
	}

	mapped := gateway.MapStatus(gatewayStatus)
	if mapped == valueobject.TransactionStatusPending {
		return OutcomePending, nil
	}

	var (
		outcome Outcome
		events  []event.Event
	)
	err = uc.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		outcome, events, err = uc.apply(ctx, repos, externalRef, mapped, gatewayStatus)
		return err
	})
	if err != nil {
		log.WithFields(logrus.Fields{
			"request_id": tx.RequestID,
			"transition": "awaiting_payment->" + transitionTarget(mapped),
		}).WithError(err).Error("webhook: не удалось применить уведомление, ждём повторной доставки")
		return "", err
	}

	log.WithFields(logrus.Fields{"request_id": tx.RequestID, "outcome": outcome}).Info("webhook: уведомление обработано")
	uc.notifier.Emit(events...)
	return outcome, nil
}

func (uc *HandleCallbackUseCase) apply(ctx context.Context, repos repository.Repositories, externalRef string, mapped valueobject.TransactionStatus, gatewayStatus string) (Outcome, []event.Event, error) {
	// Повторная проверка под блокировкой: параллельная доставка того же уведомления ждёт здесь.
	tx, err := repos.Transactions.LockByExternalRef(ctx, externalRef)
	if err != nil {
		return "", nil, err
	}
	if tx.Status.IsTerminal() || !tx.Direction.IsInbound() {
		return OutcomeDuplicate, nil, nil
	}

	acc, err := repos.Escrows.LockByID(ctx, tx.EscrowAccountID)
	if err != nil {
		return "", nil, err
	}
	req, err := repos.Requests.FindByID(ctx, tx.RequestID)
	if err != nil {
		return "", nil, err
	}

	now := time.Now().UTC()
	tx.Resolve(mapped, gatewayStatus, now)
	if err := repos.Transactions.UpdateStatus(ctx, tx); err != nil {
		return "", nil, err
	}

	if mapped == valueobject.TransactionStatusFailed {
		return uc.applyFailure(ctx, repos, req, tx)
	}

	if _, err := uc.ledger.RecordHold(ctx, repos, acc.ID, tx.Amount); err != nil {
		return "", nil, err
	}

	if req.Status != valueobject.RequestStatusAwaitingPayment {
		// Клиент отменил заявку до подтверждения: средства не могут остаться на escrow.
		settlement, err := uc.ledger.Refund(ctx, repos, acc.ID)
		if err != nil {
			return "", nil, err
		}
		rec := entity.NewRequestHistory(req.ID, entity.EngineActor, entity.HistoryActionRefunded, &req.Status, req.Status, now)
		if err := repos.History.Append(ctx, rec); err != nil {
			return "", nil, err
		}
		evt := event.ForRequest(event.TypeEscrowRefunded, req, req.Status).
			WithProvider(&acc.PayeeID).
			WithAmount(settlement.Escrow.TotalAmount)
		return OutcomeRefunded, []event.Event{evt}, nil
	}

	if err := uc.transition(ctx, repos, req, valueobject.RequestStatusPaid, now); err != nil {
		return "", nil, err
	}
	evt := event.ForRequest(event.TypePaymentConfirmed, req, valueobject.RequestStatusAwaitingPayment).WithAmount(tx.Amount)
	return OutcomeApplied, []event.Event{evt}, nil
}

// applyFailure escrow остаётся в pending, средства не удерживались.
func (uc *HandleCallbackUseCase) applyFailure(ctx context.Context, repos repository.Repositories, req *entity.ServiceRequest, tx *entity.Transaction) (Outcome, []event.Event, error) {
	if req.Status != valueobject.RequestStatusAwaitingPayment {
		return OutcomeApplied, nil, nil
	}
	provider := req.AcceptedProviderID
	if err := uc.transition(ctx, repos, req, valueobject.RequestStatusPaymentFailed, tx.UpdatedAt); err != nil {
		return "", nil, err
	}
	evt := event.ForRequest(event.TypePaymentFailed, req, valueobject.RequestStatusAwaitingPayment).WithProvider(provider)
	return OutcomeApplied, []event.Event{evt}, nil
}

func (uc *HandleCallbackUseCase) transition(ctx context.Context, repos repository.Repositories, req *entity.ServiceRequest, to valueobject.RequestStatus, at time.Time) error {
	if err := lifecycle.Check(req, lifecycle.Input{
		Op:     lifecycle.OpGatewayCallback,
		Actor:  entity.EngineActor,
		Target: to,
	}); err != nil {
		return err
	}
	from, expected := req.Status, req.Version
	if err := req.Transition(to, at); err != nil {
		return err
	}
	return requestuc.SaveTransition(ctx, repos, req, expected, from, entity.EngineActor, entity.HistoryActionPaymentResolved)
}

func transitionTarget(s valueobject.TransactionStatus) string {
	if s == valueobject.TransactionStatusConfirmed {
		return string(valueobject.RequestStatusPaid)
	}
	return string(valueobject.RequestStatusPaymentFailed)
}
