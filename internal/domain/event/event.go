package event

import (
	"context"
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeRequestCreated   Type = "request.created"
	TypeRequestDeleted   Type = "request.deleted"
	TypeStatusChanged    Type = "request.status_changed"
	TypePaymentInitiated Type = "payment.initiated"
	TypePaymentConfirmed Type = "payment.confirmed"
	TypePaymentFailed    Type = "payment.failed"
	TypeEscrowReleased   Type = "escrow.released"
	TypeEscrowRefunded   Type = "escrow.refunded"
)

// Event доменное событие, публикуется только после фиксации транзакции.
type Event struct {
	Type       Type                      `json:"type"`
	RequestID  uuid.UUID                 `json:"request_id"`
	ClientID   uuid.UUID                 `json:"client_id"`
	ProviderID *uuid.UUID                `json:"provider_id,omitempty"`
	FromStatus valueobject.RequestStatus `json:"from_status,omitempty"`
	Status     valueobject.RequestStatus `json:"status"`
	Amount     *decimal.Decimal          `json:"amount,omitempty"`
	OccurredAt time.Time                 `json:"occurred_at"`
}

// Publisher доставляет события заинтересованным участникам.
// Ошибка публикации никогда не откатывает изменение состояния.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// ForRequest собирает событие по текущему состоянию заявки.
func ForRequest(t Type, req *entity.ServiceRequest, from valueobject.RequestStatus) Event {
	evt := Event{
		Type:       t,
		RequestID:  req.ID,
		ClientID:   req.ClientID,
		FromStatus: from,
		Status:     req.Status,
		OccurredAt: time.Now().UTC(),
	}
	if req.AcceptedProviderID != nil {
		id := *req.AcceptedProviderID
		evt.ProviderID = &id
	}
	return evt
}

// WithProvider нужен, когда исполнитель уже снят с заявки (отмена), но должен получить уведомление.
func (e Event) WithProvider(id *uuid.UUID) Event {
	if e.ProviderID == nil && id != nil {
		pid := *id
		e.ProviderID = &pid
	}
	return e
}

func (e Event) WithAmount(amount decimal.Decimal) Event {
	e.Amount = &amount
	return e
}

// Recipients пользователи, которым событие доставляется через WebSocket.
func (e Event) Recipients() []uuid.UUID {
	out := []uuid.UUID{e.ClientID}
	if e.ProviderID != nil && *e.ProviderID != e.ClientID {
		out = append(out, *e.ProviderID)
	}
	return out
}

// Nop публикатор, который ничего не делает.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
