package repository

import (
	"context"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/google/uuid"
)

type RequestRepository interface {
	Create(ctx context.Context, req *entity.ServiceRequest) error
	// UpdateIfVersion записывает заявку, только если в хранилище версия expected.
	// При несовпадении возвращает apperror.ErrVersionConflict; при успехе увеличивает req.Version.
	UpdateIfVersion(ctx context.Context, req *entity.ServiceRequest, expected int64) error
	// DeleteIfPending удаляет заявку, только если она всё ещё в статусе pending.
	DeleteIfPending(ctx context.Context, id uuid.UUID, expected int64) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ServiceRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]*entity.ServiceRequest, int, error)
}

// Viewer описывает, кто смотрит список; задаёт тот же предикат, что entity.ServiceRequest.VisibleTo.
type Viewer struct {
	Actor entity.Actor
	// Услуги и категории исполнителя для поиска открытых заявок.
	OfferedServiceIDs []uuid.UUID
	CategoryIDs       []uuid.UUID
}

// Offers проверяет ссылку заявки по услугам исполнителя.
func (v Viewer) Offers(ref entity.ServiceRef) bool {
	if ref.OfferedServiceID != nil {
		for _, id := range v.OfferedServiceIDs {
			if id == *ref.OfferedServiceID {
				return true
			}
		}
	}
	if ref.CategoryID != nil {
		for _, id := range v.CategoryIDs {
			if id == *ref.CategoryID {
				return true
			}
		}
	}
	return false
}

type RequestFilter struct {
	Viewer Viewer
	Status *valueobject.RequestStatus
	Limit  int
	Offset int
}
