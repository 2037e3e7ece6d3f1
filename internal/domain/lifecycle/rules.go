// Package lifecycle содержит таблицу переходов заявки с правами участников.
// Любое изменение статуса заявки проходит через Check.
package lifecycle

import (
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Operation операция движка, через которую запрошен переход.
type Operation string

const (
	OpUpdateStatus    Operation = "update_status"
	OpInitiatePayment Operation = "initiate_payment"
	OpGatewayCallback Operation = "gateway_callback"
	OpRelease         Operation = "release_payment"
	OpRefund          Operation = "refund_payment"
)

// Relation требуемая связь участника с заявкой.
type Relation int

const (
	RelAny Relation = iota
	RelOwner
	// RelOffersService исполнитель предлагает услугу заявки.
	RelOffersService
	// RelServiceProvider до принятия как RelOffersService, после только принявший исполнитель.
	RelServiceProvider
)

type Rule struct {
	Op       Operation
	From     []valueobject.RequestStatus
	To       valueobject.RequestStatus
	Role     valueobject.ActorRole
	Relation Relation
}

var (
	open      = []valueobject.RequestStatus{valueobject.RequestStatusPending, valueobject.RequestStatusProposed}
	notPaidUp = []valueobject.RequestStatus{
		valueobject.RequestStatusPending,
		valueobject.RequestStatusProposed,
		valueobject.RequestStatusAccepted,
		valueobject.RequestStatusAwaitingPayment,
		valueobject.RequestStatusPaymentFailed,
	}
	paid = []valueobject.RequestStatus{valueobject.RequestStatusPaid}
)

var rules = []Rule{
	{OpUpdateStatus, []valueobject.RequestStatus{valueobject.RequestStatusPending}, valueobject.RequestStatusProposed, valueobject.RoleProvider, RelServiceProvider},
	{OpUpdateStatus, open, valueobject.RequestStatusAccepted, valueobject.RoleProvider, RelOffersService},
	{OpUpdateStatus, open, valueobject.RequestStatusRejected, valueobject.RoleProvider, RelServiceProvider},
	{OpUpdateStatus, notPaidUp, valueobject.RequestStatusCancelled, valueobject.RoleClient, RelOwner},

	{OpInitiatePayment, []valueobject.RequestStatus{valueobject.RequestStatusAccepted, valueobject.RequestStatusPaymentFailed}, valueobject.RequestStatusAwaitingPayment, valueobject.RoleClient, RelOwner},

	{OpGatewayCallback, []valueobject.RequestStatus{valueobject.RequestStatusAwaitingPayment}, valueobject.RequestStatusPaid, valueobject.RoleEngine, RelAny},
	{OpGatewayCallback, []valueobject.RequestStatus{valueobject.RequestStatusAwaitingPayment}, valueobject.RequestStatusPaymentFailed, valueobject.RoleEngine, RelAny},

	{OpRelease, paid, valueobject.RequestStatusCompleted, valueobject.RoleClient, RelOwner},
	{OpRelease, paid, valueobject.RequestStatusCompleted, valueobject.RoleOperator, RelAny},

	{OpRefund, paid, valueobject.RequestStatusCancelled, valueobject.RoleOperator, RelAny},
}

// Rules возвращает копию таблицы переходов.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Payload поля, которые участник может передать вместе с переходом.
type Payload struct {
	ProposedValue      *decimal.Decimal
	AcceptedProviderID *uuid.UUID
}

func (p Payload) IsEmpty() bool {
	return p.ProposedValue == nil && p.AcceptedProviderID == nil
}

// Input всё, что нужно для проверки перехода.
type Input struct {
	Op     Operation
	Actor  entity.Actor
	Target valueobject.RequestStatus
	// OffersService предлагает ли участник-исполнитель услугу заявки.
	OffersService bool
	Payload       Payload
}

// Check проверяет переход: права участника, затем таблицу статусов.
// Возвращает Forbidden, InvalidTransition или Conflict.
func Check(req *entity.ServiceRequest, in Input) error {
	candidates := rulesFor(in.Op, in.Target)
	if len(candidates) == 0 {
		return apperror.New(apperror.ErrCodeInvalidTransition,
			"статус "+string(in.Target)+" недоступен для этой операции")
	}

	var matched *Rule
	roleAllowed := false
	for i := range candidates {
		rule := &candidates[i]
		if rule.Role != in.Actor.Role {
			continue
		}
		roleAllowed = true
		if satisfies(rule.Relation, req, in) {
			matched = rule
			break
		}
	}
	if !roleAllowed || matched == nil {
		return apperror.ErrForbidden
	}
	if err := checkPayload(in); err != nil {
		return err
	}

	// Проигравший гонку за заявку получает Conflict, а не ошибку перехода.
	if in.Target == valueobject.RequestStatusAccepted && req.Status == valueobject.RequestStatusAccepted && req.AcceptedProviderID != nil {
		return apperror.ErrAlreadyAccepted
	}

	if !contains(matched.From, req.Status) {
		return apperror.New(apperror.ErrCodeInvalidTransition,
			"переход из статуса "+string(req.Status)+" в "+string(in.Target)+" недопустим")
	}
	if in.Target == valueobject.RequestStatusProposed && in.Payload.ProposedValue == nil {
		return apperror.New(apperror.ErrCodeValidation, "для предложения нужна цена")
	}
	return nil
}

func rulesFor(op Operation, to valueobject.RequestStatus) []Rule {
	var out []Rule
	for _, r := range rules {
		if r.Op == op && r.To == to {
			out = append(out, r)
		}
	}
	return out
}

func satisfies(rel Relation, req *entity.ServiceRequest, in Input) bool {
	switch rel {
	case RelAny:
		return true
	case RelOwner:
		return req.IsOwnedBy(in.Actor.ID)
	case RelOffersService:
		return in.OffersService
	case RelServiceProvider:
		if req.AcceptedProviderID != nil {
			return req.IsAcceptedBy(in.Actor.ID)
		}
		return in.OffersService
	}
	return false
}

// checkPayload поля цены и исполнителя принадлежат исполнителю.
func checkPayload(in Input) error {
	if in.Payload.IsEmpty() {
		return nil
	}
	if !in.Actor.IsProvider() {
		return apperror.New(apperror.ErrCodeForbidden, "клиент не может менять цену или исполнителя")
	}
	if in.Payload.AcceptedProviderID != nil && *in.Payload.AcceptedProviderID != in.Actor.ID {
		return apperror.New(apperror.ErrCodeForbidden, "нельзя назначить другого исполнителя")
	}
	return nil
}

func contains(list []valueobject.RequestStatus, s valueobject.RequestStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
