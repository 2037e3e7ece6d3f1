package entity

import (
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/google/uuid"
)

// Actor пользователь, от имени которого выполняется операция.
type Actor struct {
	ID   uuid.UUID
	Role valueobject.ActorRole
}

// EngineActor выполняет переходы по webhook и при сверке платежей.
var EngineActor = Actor{Role: valueobject.RoleEngine}

func (a Actor) IsClient() bool   { return a.Role == valueobject.RoleClient }
func (a Actor) IsProvider() bool { return a.Role == valueobject.RoleProvider }
func (a Actor) IsOperator() bool { return a.Role == valueobject.RoleOperator }

// HistoryActorID id для журнала; у движка его нет.
func (a Actor) HistoryActorID() *uuid.UUID {
	if a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}
