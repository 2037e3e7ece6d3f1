package entity

import (
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceRef ссылка на услугу каталога: либо конкретная услуга исполнителя, либо категория.
type ServiceRef struct {
	OfferedServiceID *uuid.UUID
	CategoryID       *uuid.UUID
}

func (r ServiceRef) Validate() error {
	if (r.OfferedServiceID == nil) == (r.CategoryID == nil) {
		return apperror.New(apperror.ErrCodeValidation, "нужно указать либо услугу, либо категорию")
	}
	return nil
}

type ServiceRequest struct {
	ID                 uuid.UUID
	ClientID           uuid.UUID
	Service            ServiceRef
	Description        string
	PreferredDate      *time.Time
	AcceptedProviderID *uuid.UUID
	ProposedValue      *decimal.Decimal
	Status             valueobject.RequestStatus
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CompletedAt        *time.Time
}

func NewServiceRequest(clientID uuid.UUID, ref ServiceRef, preferredDate *time.Time, description string) (*ServiceRequest, error) {
	if clientID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "клиент обязателен")
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	description = validation.NormalizeText(description)
	if err := validation.ValidateRequestDescription(description); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	now := time.Now().UTC()
	if preferredDate != nil && preferredDate.Before(now.Truncate(24*time.Hour)) {
		return nil, apperror.New(apperror.ErrCodeValidation, "желаемая дата не может быть в прошлом")
	}

	return &ServiceRequest{
		ID:            uuid.New(),
		ClientID:      clientID,
		Service:       ref,
		Description:   description,
		PreferredDate: preferredDate,
		Status:        valueobject.RequestStatusPending,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (r *ServiceRequest) IsOwnedBy(userID uuid.UUID) bool {
	return r.ClientID == userID
}

func (r *ServiceRequest) IsAcceptedBy(providerID uuid.UUID) bool {
	return r.AcceptedProviderID != nil && *r.AcceptedProviderID == providerID
}

// VisibleTo общий предикат видимости для чтения и записи.
// offersService должен сообщать, предлагает ли исполнитель услугу заявки.
func (r *ServiceRequest) VisibleTo(actor Actor, offersService bool) bool {
	switch actor.Role {
	case valueobject.RoleOperator, valueobject.RoleEngine:
		return true
	case valueobject.RoleClient:
		return r.IsOwnedBy(actor.ID)
	case valueobject.RoleProvider:
		return r.IsAcceptedBy(actor.ID) || (r.Status.IsDiscoverable() && offersService)
	}
	return false
}

// Transition переводит заявку в новый статус и поддерживает инвариант исполнителя.
// Проверку прав выполняет вызывающий код.
func (r *ServiceRequest) Transition(to valueobject.RequestStatus, at time.Time) error {
	if !r.Status.CanTransitionTo(to) {
		return apperror.New(apperror.ErrCodeInvalidTransition,
			"переход из статуса "+string(r.Status)+" в "+string(to)+" недопустим")
	}
	if to.HasAcceptedProvider() && r.AcceptedProviderID == nil {
		return apperror.New(apperror.ErrCodeInvalidTransition, "у заявки нет исполнителя")
	}

	r.Status = to
	if !to.HasAcceptedProvider() {
		r.AcceptedProviderID = nil
	}
	if to == valueobject.RequestStatusCompleted {
		r.CompletedAt = &at
	}
	r.UpdatedAt = at
	return nil
}

func (r *ServiceRequest) Propose(value decimal.Decimal, at time.Time) error {
	amount, err := valueobject.NewAmount(value)
	if err != nil {
		return err
	}
	if err := r.Transition(valueobject.RequestStatusProposed, at); err != nil {
		return err
	}
	r.ProposedValue = &amount
	return nil
}

// Accept назначает исполнителя. Цена может быть уточнена только в момент принятия.
func (r *ServiceRequest) Accept(providerID uuid.UUID, value *decimal.Decimal, at time.Time) error {
	if r.AcceptedProviderID != nil {
		return apperror.ErrAlreadyAccepted
	}
	if value != nil {
		amount, err := valueobject.NewAmount(*value)
		if err != nil {
			return err
		}
		value = &amount
	}
	if !r.Status.CanTransitionTo(valueobject.RequestStatusAccepted) {
		return apperror.New(apperror.ErrCodeInvalidTransition,
			"переход из статуса "+string(r.Status)+" в accepted недопустим")
	}

	r.AcceptedProviderID = &providerID
	if err := r.Transition(valueobject.RequestStatusAccepted, at); err != nil {
		r.AcceptedProviderID = nil
		return err
	}
	if value != nil {
		r.ProposedValue = value
	}
	return nil
}

// RetryPayment возвращает заявку после неудачной оплаты к ожиданию платежа.
// Исполнитель восстанавливается из escrow, открытого при первой попытке.
func (r *ServiceRequest) RetryPayment(payeeID uuid.UUID, at time.Time) error {
	if r.Status != valueobject.RequestStatusPaymentFailed {
		return apperror.New(apperror.ErrCodeInvalidTransition,
			"повторная оплата возможна только после неудачного платежа")
	}
	r.AcceptedProviderID = &payeeID
	if err := r.Transition(valueobject.RequestStatusAwaitingPayment, at); err != nil {
		r.AcceptedProviderID = nil
		return err
	}
	return nil
}

func (r *ServiceRequest) CanBeDeleted() bool {
	return r.Status == valueobject.RequestStatusPending
}
