package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const escrowColumns = `id, request_id, payee_id, currency, total_amount, held_amount, status,
	created_at, updated_at, settled_at`

type escrowRow struct {
	ID          uuid.UUID       `db:"id"`
	RequestID   uuid.UUID       `db:"request_id"`
	PayeeID     uuid.UUID       `db:"payee_id"`
	Currency    string          `db:"currency"`
	TotalAmount decimal.Decimal `db:"total_amount"`
	HeldAmount  decimal.Decimal `db:"held_amount"`
	Status      string          `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
	SettledAt   *time.Time      `db:"settled_at"`
}

func (r escrowRow) toEntity() *entity.EscrowAccount {
	return &entity.EscrowAccount{
		ID:          r.ID,
		RequestID:   r.RequestID,
		PayeeID:     r.PayeeID,
		Currency:    r.Currency,
		TotalAmount: r.TotalAmount,
		HeldAmount:  r.HeldAmount,
		Status:      valueobject.EscrowStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		SettledAt:   r.SettledAt,
	}
}

type EscrowRepository struct {
	q    sqlx.ExtContext
	inTx bool
}

func (r *EscrowRepository) Create(ctx context.Context, acc *entity.EscrowAccount) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO escrow_accounts (`+escrowColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		acc.ID,
		acc.RequestID,
		acc.PayeeID,
		acc.Currency,
		acc.TotalAmount,
		acc.HeldAmount,
		string(acc.Status),
		acc.CreatedAt,
		acc.UpdatedAt,
		acc.SettledAt,
	)
	if isUniqueViolation(err) {
		return apperror.ErrEscrowExists
	}
	if err != nil {
		return dbError(err, "не удалось создать escrow")
	}
	return nil
}

func (r *EscrowRepository) Update(ctx context.Context, acc *entity.EscrowAccount) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE escrow_accounts
		SET held_amount = $2, status = $3, updated_at = $4, settled_at = $5
		WHERE id = $1
	`, acc.ID, acc.HeldAmount, string(acc.Status), acc.UpdatedAt, acc.SettledAt)
	if err != nil {
		return dbError(err, "не удалось обновить escrow")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return apperror.ErrEscrowNotFound
	}
	return nil
}

func (r *EscrowRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.EscrowAccount, error) {
	return r.get(ctx, `SELECT `+escrowColumns+` FROM escrow_accounts WHERE id = $1`, id)
}

func (r *EscrowRepository) FindByRequestID(ctx context.Context, requestID uuid.UUID) (*entity.EscrowAccount, error) {
	return r.get(ctx, `SELECT `+escrowColumns+` FROM escrow_accounts WHERE request_id = $1`, requestID)
}

// LockByID читает escrow с блокировкой строки до конца транзакции.
func (r *EscrowRepository) LockByID(ctx context.Context, id uuid.UUID) (*entity.EscrowAccount, error) {
	return r.get(ctx, `SELECT `+escrowColumns+` FROM escrow_accounts WHERE id = $1`+lockClause(r.inTx), id)
}

func (r *EscrowRepository) get(ctx context.Context, query string, arg interface{}) (*entity.EscrowAccount, error) {
	var row escrowRow
	err := sqlx.GetContext(ctx, r.q, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrEscrowNotFound
	}
	if err != nil {
		return nil, dbError(err, "не удалось получить escrow")
	}
	return row.toEntity(), nil
}

const transactionColumns = `id, request_id, escrow_account_id, direction, amount, method, status,
	external_ref, gateway_status, created_at, updated_at`

type transactionRow struct {
	ID              uuid.UUID       `db:"id"`
	RequestID       uuid.UUID       `db:"request_id"`
	EscrowAccountID uuid.UUID       `db:"escrow_account_id"`
	Direction       string          `db:"direction"`
	Amount          decimal.Decimal `db:"amount"`
	Method          string          `db:"method"`
	Status          string          `db:"status"`
	ExternalRef     string          `db:"external_ref"`
	GatewayStatus   string          `db:"gateway_status"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func (r transactionRow) toEntity() *entity.Transaction {
	return &entity.Transaction{
		ID:              r.ID,
		RequestID:       r.RequestID,
		EscrowAccountID: r.EscrowAccountID,
		Direction:       valueobject.Direction(r.Direction),
		Amount:          r.Amount,
		Method:          valueobject.PaymentMethod(r.Method),
		Status:          valueobject.TransactionStatus(r.Status),
		ExternalRef:     r.ExternalRef,
		GatewayStatus:   r.GatewayStatus,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type TransactionRepository struct {
	q    sqlx.ExtContext
	inTx bool
}

func (r *TransactionRepository) Create(ctx context.Context, tx *entity.Transaction) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		tx.ID,
		tx.RequestID,
		tx.EscrowAccountID,
		string(tx.Direction),
		tx.Amount,
		string(tx.Method),
		string(tx.Status),
		tx.ExternalRef,
		tx.GatewayStatus,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperror.Wrap(err, apperror.ErrCodeConflict, "транзакция с таким external_ref уже существует")
	}
	if err != nil {
		return dbError(err, "не удалось создать транзакцию")
	}
	return nil
}

// UpdateStatus меняет только статус и данные шлюза: сумма и направление неизменны.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx *entity.Transaction) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE transactions SET status = $2, gateway_status = $3, updated_at = $4 WHERE id = $1
	`, tx.ID, string(tx.Status), tx.GatewayStatus, tx.UpdatedAt)
	if err != nil {
		return dbError(err, "не удалось обновить транзакцию")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return apperror.ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) FindByExternalRef(ctx context.Context, externalRef string) (*entity.Transaction, error) {
	return r.get(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE external_ref = $1`, externalRef)
}

func (r *TransactionRepository) LockByExternalRef(ctx context.Context, externalRef string) (*entity.Transaction, error) {
	return r.get(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE external_ref = $1`+lockClause(r.inTx), externalRef)
}

func (r *TransactionRepository) ListByRequestID(ctx context.Context, requestID uuid.UUID) ([]*entity.Transaction, error) {
	return r.list(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE request_id = $1
		ORDER BY created_at, id
	`, requestID)
}

// ListStalePending входящие платежи без ответа шлюза, созданные раньше olderThan.
func (r *TransactionRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*entity.Transaction, error) {
	return r.list(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE status = 'pending' AND direction = 'client_to_escrow' AND created_at < $1
		ORDER BY created_at, id
		LIMIT NULLIF($2, 0)
	`, olderThan, limit)
}

func (r *TransactionRepository) get(ctx context.Context, query string, arg interface{}) (*entity.Transaction, error) {
	var row transactionRow
	err := sqlx.GetContext(ctx, r.q, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrTransactionNotFound
	}
	if err != nil {
		return nil, dbError(err, "не удалось получить транзакцию")
	}
	return row.toEntity(), nil
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Transaction, error) {
	var rows []transactionRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, dbError(err, "не удалось получить транзакции")
	}
	out := make([]*entity.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}
