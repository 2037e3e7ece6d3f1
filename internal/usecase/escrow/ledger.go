// Package escrow учёт средств на счетах escrow.
// Все методы Ledger вызываются внутри repository.Store.WithinTx и блокируют строку escrow.
package escrow

import (
	"context"
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/repository"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/ref"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Ledger struct {
	now func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{now: func() time.Time { return time.Now().UTC() }}
}

// Settlement результат закрытия escrow. Transaction nil, если escrow уже был закрыт ранее.
type Settlement struct {
	Escrow      *entity.EscrowAccount
	Transaction *entity.Transaction
}

func (s Settlement) Applied() bool {
	return s.Transaction != nil
}

// OpenEscrow создаёт escrow в статусе pending. Повторный вызов для той же заявки даёт CONFLICT.
func (l *Ledger) OpenEscrow(ctx context.Context, repos repository.Repositories, requestID, payeeID uuid.UUID, total valueobject.Money) (*entity.EscrowAccount, error) {
	escrow := entity.NewEscrowAccount(requestID, payeeID, total)
	if err := repos.Escrows.Create(ctx, escrow); err != nil {
		return nil, err
	}
	return escrow, nil
}

// RecordHold зачисляет подтверждённый входящий платёж.
func (l *Ledger) RecordHold(ctx context.Context, repos repository.Repositories, escrowID uuid.UUID, amount decimal.Decimal) (*entity.EscrowAccount, error) {
	escrow, err := repos.Escrows.LockByID(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if err := escrow.Hold(amount, l.now()); err != nil {
		return nil, err
	}
	if err := repos.Escrows.Update(ctx, escrow); err != nil {
		return nil, err
	}
	return escrow, nil
}

// Release выплачивает удержанную сумму исполнителю. На уже выплаченном escrow ничего не делает.
func (l *Ledger) Release(ctx context.Context, repos repository.Repositories, escrowID uuid.UUID) (Settlement, error) {
	return l.settle(ctx, repos, escrowID, valueobject.EscrowStatusReleased, valueobject.DirectionEscrowToProvider, ref.PrefixRelease)
}

// Refund возвращает удержанную сумму клиенту. На уже возвращённом escrow ничего не делает.
func (l *Ledger) Refund(ctx context.Context, repos repository.Repositories, escrowID uuid.UUID) (Settlement, error) {
	return l.settle(ctx, repos, escrowID, valueobject.EscrowStatusRefunded, valueobject.DirectionEscrowToClient, ref.PrefixRefund)
}

func (l *Ledger) settle(ctx context.Context, repos repository.Repositories, escrowID uuid.UUID, to valueobject.EscrowStatus, dir valueobject.Direction, prefix string) (Settlement, error) {
	escrow, err := repos.Escrows.LockByID(ctx, escrowID)
	if err != nil {
		return Settlement{}, err
	}
	if escrow.Status == to {
		return Settlement{Escrow: escrow}, nil
	}

	now := l.now()
	amount, err := escrow.Settle(to, now)
	if err != nil {
		return Settlement{}, err
	}
	if err := repos.Escrows.Update(ctx, escrow); err != nil {
		return Settlement{}, err
	}

	out := entity.NewOutboundTransaction(escrow, dir, amount, ref.New(prefix), now)
	if err := repos.Transactions.Create(ctx, out); err != nil {
		return Settlement{}, err
	}
	return Settlement{Escrow: escrow, Transaction: out}, nil
}
