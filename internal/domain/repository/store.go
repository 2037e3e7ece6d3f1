package repository

import (
	"context"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/google/uuid"
)

// Repositories набор репозиториев, работающих в одной транзакции.
type Repositories struct {
	Requests     RequestRepository
	Escrows      EscrowRepository
	Transactions TransactionRepository
	History      HistoryRepository
}

// Store даёт доступ к репозиториям вне и внутри транзакции.
type Store interface {
	Repos() Repositories
	// WithinTx выполняет fn в одной транзакции; ошибка fn откатывает всё.
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

// ServiceCatalog внешний каталог услуг, только чтение.
type ServiceCatalog interface {
	ServiceExists(ctx context.Context, ref entity.ServiceRef) (bool, error)
	ProviderOffers(ctx context.Context, providerID uuid.UUID, ref entity.ServiceRef) (bool, error)
	// ProviderServiceRefs услуги и категории исполнителя.
	ProviderServiceRefs(ctx context.Context, providerID uuid.UUID) (serviceIDs, categoryIDs []uuid.UUID, err error)
}
