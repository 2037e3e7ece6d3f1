// Package persistence реализует хранилище движка поверх PostgreSQL (sqlx + lib/pq).
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/repository"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

var (
	_ repository.Store          = (*Store)(nil)
	_ repository.ServiceCatalog = (*Catalog)(nil)
)

// Store выдаёт репозитории поверх пула или открытой транзакции.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Repos() repository.Repositories {
	return reposOver(s.db, false)
}

// WithinTx выполняет fn в одной SQL транзакции. Ошибка или panic внутри fn откатывает все изменения.
func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось начать транзакцию")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(reposOver(tx, true)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось зафиксировать транзакцию")
	}
	return nil
}

func reposOver(q sqlx.ExtContext, inTx bool) repository.Repositories {
	return repository.Repositories{
		Requests:     &RequestRepository{q: q},
		Escrows:      &EscrowRepository{q: q, inTx: inTx},
		Transactions: &TransactionRepository{q: q, inTx: inTx},
		History:      &HistoryRepository{q: q},
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func dbError(err error, message string) error {
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, message)
}

// lockClause FOR UPDATE имеет смысл только внутри транзакции.
func lockClause(inTx bool) string {
	if inTx {
		return " FOR UPDATE"
	}
	return ""
}
