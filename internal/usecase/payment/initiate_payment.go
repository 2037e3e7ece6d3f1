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
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/ref"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/escrow"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/notify"
	requestuc "github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/request"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Settings параметры платежей из конфигурации.
type Settings struct {
	Currency    string
	CallbackURL string
}

type InitiatePaymentInput struct {
	Actor     entity.Actor
	RequestID uuid.UUID
	Method    string
	Amount    decimal.Decimal
}

type InitiatePaymentResult struct {
	Request     *entity.ServiceRequest
	Escrow      *entity.EscrowAccount
	Transaction *entity.Transaction
	Gateway     *gateway.InitiateResult
}

type InitiatePaymentUseCase struct {
	store    repository.Store
	gateway  gateway.Gateway
	ledger   *escrow.Ledger
	notifier *notify.Dispatcher
	settings Settings
}

func NewInitiatePaymentUseCase(store repository.Store, gw gateway.Gateway, ledger *escrow.Ledger, notifier *notify.Dispatcher, settings Settings) *InitiatePaymentUseCase {
	return &InitiatePaymentUseCase{store: store, gateway: gw, ledger: ledger, notifier: notifier, settings: settings}
}

// Execute открывает escrow и запрашивает платёж у шлюза.
// Шлюз вызывается до любых записей: без external_ref локальное состояние не меняется.
func (uc *InitiatePaymentUseCase) Execute(ctx context.Context, input InitiatePaymentInput) (*InitiatePaymentResult, error) {
	repos := uc.store.Repos()

	req, err := repos.Requests.FindByID(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.Check(req, lifecycle.Input{
		Op:     lifecycle.OpInitiatePayment,
		Actor:  input.Actor,
		Target: valueobject.RequestStatusAwaitingPayment,
	}); err != nil {
		return nil, err
	}

	method, err := valueobject.NewPaymentMethod(input.Method)
	if err != nil {
		return nil, err
	}
	total, err := valueobject.NewMoney(input.Amount, uc.settings.Currency)
	if err != nil {
		return nil, err
	}
	if req.ProposedValue == nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "цена заявки не согласована")
	}
	if !req.ProposedValue.Equal(total.Amount) {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма платежа должна совпадать с согласованной ценой")
	}

	existing, err := repos.Escrows.FindByRequestID(ctx, req.ID)
	if err != nil && !apperror.IsNotFound(err) {
		return nil, err
	}
	retry := existing != nil
	var payee uuid.UUID
	switch {
	case retry && req.Status != valueobject.RequestStatusPaymentFailed:
		return nil, apperror.ErrEscrowExists
	case retry:
		if existing.Status != valueobject.EscrowStatusPending {
			return nil, apperror.New(apperror.ErrCodeInvalidTransition, "escrow уже удерживает средства")
		}
		if !existing.TotalAmount.Equal(total.Amount) {
			return nil, apperror.New(apperror.ErrCodeValidation, "сумма повторного платежа должна совпадать с суммой escrow")
		}
		payee = existing.PayeeID
	default:
		payee = *req.AcceptedProviderID
	}

	res, err := uc.gateway.Initiate(ctx, gateway.PaymentSpec{
		Amount:      total.Amount,
		Currency:    total.Currency,
		PayerRef:    req.ClientID,
		PayeeRef:    payee,
		Method:      method,
		Reference:   ref.New(ref.PrefixPayment),
		CallbackURL: uc.settings.CallbackURL,
		Description: "Оплата заявки " + req.ID.String(),
	})
	if err != nil {
		return nil, err
	}
	if res.ExternalRef == "" {
		return nil, apperror.New(apperror.ErrCodeGatewayUnavailable, "шлюз не вернул идентификатор платежа")
	}

	from := req.Status
	expected := req.Version
	now := time.Now().UTC()
	if retry {
		err = req.RetryPayment(payee, now)
	} else {
		err = req.Transition(valueobject.RequestStatusAwaitingPayment, now)
	}
	if err != nil {
		return nil, err
	}

	result := &InitiatePaymentResult{Request: req, Gateway: res}
	err = uc.store.WithinTx(ctx, func(repos repository.Repositories) error {
		acc, err := uc.openOrReuse(ctx, repos, existing, req.ID, payee, total)
		if err != nil {
			return err
		}

		tx := entity.NewInboundTransaction(acc, method, res.ExternalRef, res.Status)
		if err := repos.Transactions.Create(ctx, tx); err != nil {
			return err
		}
		result.Escrow = acc
		result.Transaction = tx

		return requestuc.SaveTransition(ctx, repos, req, expected, from, input.Actor, entity.HistoryActionPaymentStarted)
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Emit(event.ForRequest(event.TypePaymentInitiated, req, from).WithAmount(total.Amount))
	return result, nil
}

// openOrReuse при повторной оплате берёт существующий escrow в pending, иначе открывает новый.
func (uc *InitiatePaymentUseCase) openOrReuse(ctx context.Context, repos repository.Repositories, existing *entity.EscrowAccount, requestID, payee uuid.UUID, total valueobject.Money) (*entity.EscrowAccount, error) {
	if existing == nil {
		return uc.ledger.OpenEscrow(ctx, repos, requestID, payee, total)
	}
	acc, err := repos.Escrows.LockByID(ctx, existing.ID)
	if err != nil {
		return nil, err
	}
	if acc.Status != valueobject.EscrowStatusPending {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "escrow уже удерживает средства")
	}
	return acc, nil
}
