package valueobject

import "github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"

type RequestStatus string

const (
	RequestStatusPending         RequestStatus = "pending"
	RequestStatusProposed        RequestStatus = "proposed"
	RequestStatusAccepted        RequestStatus = "accepted"
	RequestStatusAwaitingPayment RequestStatus = "awaiting_payment"
	RequestStatusPaid            RequestStatus = "paid"
	RequestStatusCompleted       RequestStatus = "completed"
	RequestStatusCancelled       RequestStatus = "cancelled"
	RequestStatusRejected        RequestStatus = "rejected"
	RequestStatusPaymentFailed   RequestStatus = "payment_failed"
)

// requestTransitions единственное место, где описаны допустимые переходы.
// Кто именно может выполнить переход, решает lifecycle.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending:         {RequestStatusProposed, RequestStatusAccepted, RequestStatusRejected, RequestStatusCancelled},
	RequestStatusProposed:        {RequestStatusAccepted, RequestStatusRejected, RequestStatusCancelled},
	RequestStatusAccepted:        {RequestStatusAwaitingPayment, RequestStatusCancelled},
	RequestStatusAwaitingPayment: {RequestStatusPaid, RequestStatusPaymentFailed, RequestStatusCancelled},
	RequestStatusPaymentFailed:   {RequestStatusAwaitingPayment, RequestStatusCancelled},
	RequestStatusPaid:            {RequestStatusCompleted, RequestStatusCancelled},
	RequestStatusCompleted:       {},
	RequestStatusCancelled:       {},
	RequestStatusRejected:        {},
}

func (s RequestStatus) IsValid() bool {
	_, ok := requestTransitions[s]
	return ok
}

func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusCompleted, RequestStatusCancelled, RequestStatusRejected:
		return true
	}
	return false
}

// HasAcceptedProvider сообщает, должен ли в этом статусе быть назначен исполнитель.
func (s RequestStatus) HasAcceptedProvider() bool {
	switch s {
	case RequestStatusAccepted, RequestStatusAwaitingPayment, RequestStatusPaid, RequestStatusCompleted:
		return true
	}
	return false
}

// IsDiscoverable статусы, в которых заявку видят все исполнители, предлагающие услугу.
func (s RequestStatus) IsDiscoverable() bool {
	return s == RequestStatusPending || s == RequestStatusProposed
}

func (s RequestStatus) CanTransitionTo(newStatus RequestStatus) bool {
	for _, status := range requestTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewRequestStatus(status string) (RequestStatus, error) {
	s := RequestStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заявки")
	}
	return s, nil
}

type EscrowStatus string

const (
	EscrowStatusPending  EscrowStatus = "pending"
	EscrowStatusHeld     EscrowStatus = "held"
	EscrowStatusReleased EscrowStatus = "released"
	EscrowStatusRefunded EscrowStatus = "refunded"
)

func (s EscrowStatus) IsValid() bool {
	switch s {
	case EscrowStatusPending, EscrowStatusHeld, EscrowStatusReleased, EscrowStatusRefunded:
		return true
	}
	return false
}

func (s EscrowStatus) IsSettled() bool {
	return s == EscrowStatusReleased || s == EscrowStatusRefunded
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusConfirmed TransactionStatus = "confirmed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusConfirmed, TransactionStatusFailed:
		return true
	}
	return false
}

func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusConfirmed || s == TransactionStatusFailed
}

type Direction string

const (
	DirectionClientToEscrow   Direction = "client_to_escrow"
	DirectionEscrowToProvider Direction = "escrow_to_provider"
	DirectionEscrowToClient   Direction = "escrow_to_client"
)

func (d Direction) IsInbound() bool {
	return d == DirectionClientToEscrow
}

type PaymentMethod string

const (
	PaymentMethodPix        PaymentMethod = "pix"
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodBoleto     PaymentMethod = "boleto"
	// PaymentMethodInternal используется для исходящих проводок escrow.
	PaymentMethodInternal PaymentMethod = "internal"
)

func NewPaymentMethod(method string) (PaymentMethod, error) {
	m := PaymentMethod(method)
	switch m {
	case PaymentMethodPix, PaymentMethodCreditCard, PaymentMethodBoleto:
		return m, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "неподдерживаемый способ оплаты")
}
