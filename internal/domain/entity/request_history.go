package entity

import (
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/google/uuid"
)

// Действия журнала заявки.
const (
	HistoryActionCreated         = "created"
	HistoryActionStatusChanged   = "status_changed"
	HistoryActionPaymentStarted  = "payment_started"
	HistoryActionPaymentResolved = "payment_resolved"
	HistoryActionReleased        = "escrow_released"
	HistoryActionRefunded        = "escrow_refunded"
)

// RequestHistory запись журнала изменений заявки, только добавляется.
type RequestHistory struct {
	ID         uuid.UUID
	RequestID  uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	FromStatus *valueobject.RequestStatus
	ToStatus   valueobject.RequestStatus
	CreatedAt  time.Time
}

func NewRequestHistory(requestID uuid.UUID, actor Actor, action string, from *valueobject.RequestStatus, to valueobject.RequestStatus, at time.Time) *RequestHistory {
	return &RequestHistory{
		ID:         uuid.New(),
		RequestID:  requestID,
		ActorID:    actor.HistoryActorID(),
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
		CreatedAt:  at,
	}
}
