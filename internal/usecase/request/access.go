package request

import (
	"context"
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/repository"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"
)

// Access проверяет видимость заявок через каталог услуг.
type Access struct {
	catalog repository.ServiceCatalog
}

func NewAccess(catalog repository.ServiceCatalog) *Access {
	return &Access{catalog: catalog}
}

// Offers предлагает ли исполнитель услугу заявки. Для остальных ролей всегда false.
func (a *Access) Offers(ctx context.Context, actor entity.Actor, req *entity.ServiceRequest) (bool, error) {
	if !actor.IsProvider() {
		return false, nil
	}
	ok, err := a.catalog.ProviderOffers(ctx, actor.ID, req.Service)
	if err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить услуги исполнителя")
	}
	return ok, nil
}

// EnsureVisible возвращает Forbidden, если участник не видит заявку.
func (a *Access) EnsureVisible(ctx context.Context, actor entity.Actor, req *entity.ServiceRequest) error {
	offers, err := a.Offers(ctx, actor, req)
	if err != nil {
		return err
	}
	if !req.VisibleTo(actor, offers) {
		return apperror.ErrForbidden
	}
	return nil
}

// Viewer готовит фильтр видимости для списка заявок.
func (a *Access) Viewer(ctx context.Context, actor entity.Actor) (repository.Viewer, error) {
	v := repository.Viewer{Actor: actor}
	if !actor.IsProvider() {
		return v, nil
	}
	services, categories, err := a.catalog.ProviderServiceRefs(ctx, actor.ID)
	if err != nil {
		return v, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить услуги исполнителя")
	}
	v.OfferedServiceIDs = services
	v.CategoryIDs = categories
	return v, nil
}

// SaveTransition записывает новое состояние заявки с проверкой версии и добавляет запись в журнал.
// Вызывается внутри Store.WithinTx.
func SaveTransition(ctx context.Context, repos repository.Repositories, req *entity.ServiceRequest, expectedVersion int64, from valueobject.RequestStatus, actor entity.Actor, action string) error {
	if err := repos.Requests.UpdateIfVersion(ctx, req, expectedVersion); err != nil {
		return err
	}
	rec := entity.NewRequestHistory(req.ID, actor, action, &from, req.Status, time.Now().UTC())
	return repos.History.Append(ctx, rec)
}
