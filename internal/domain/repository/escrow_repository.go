package repository

import (
	"context"
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/google/uuid"
)

type EscrowRepository interface {
	// Create возвращает apperror.ErrEscrowExists, если для заявки уже есть escrow.
	Create(ctx context.Context, escrow *entity.EscrowAccount) error
	Update(ctx context.Context, escrow *entity.EscrowAccount) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.EscrowAccount, error)
	FindByRequestID(ctx context.Context, requestID uuid.UUID) (*entity.EscrowAccount, error)
	// LockByID блокирует строку escrow до конца транзакции (SELECT ... FOR UPDATE).
	LockByID(ctx context.Context, id uuid.UUID) (*entity.EscrowAccount, error)
}

type TransactionRepository interface {
	// Create возвращает CONFLICT при повторном external_ref.
	Create(ctx context.Context, tx *entity.Transaction) error
	UpdateStatus(ctx context.Context, tx *entity.Transaction) error
	FindByExternalRef(ctx context.Context, externalRef string) (*entity.Transaction, error)
	// LockByExternalRef блокирует транзакцию, чтобы повторный webhook ждал первый.
	LockByExternalRef(ctx context.Context, externalRef string) (*entity.Transaction, error)
	ListByRequestID(ctx context.Context, requestID uuid.UUID) ([]*entity.Transaction, error)
	// ListStalePending входящие платежи в pending, созданные раньше olderThan.
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*entity.Transaction, error)
}

type HistoryRepository interface {
	Append(ctx context.Context, rec *entity.RequestHistory) error
	ListByRequestID(ctx context.Context, requestID uuid.UUID) ([]*entity.RequestHistory, error)
}
