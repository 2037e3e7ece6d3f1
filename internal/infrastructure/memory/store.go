// Package memory хранилище в памяти процесса для тестов и локального запуска (STORE_DRIVER=memory).
// WithinTx держит общий мьютекс всё время транзакции и восстанавливает снимок при ошибке.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/repository"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"
	"github.com/google/uuid"
)

type state struct {
	requests        map[uuid.UUID]entity.ServiceRequest
	escrows         map[uuid.UUID]entity.EscrowAccount
	escrowByRequest map[uuid.UUID]uuid.UUID
	txs             map[uuid.UUID]entity.Transaction
	txByRef         map[string]uuid.UUID
	history         []entity.RequestHistory
}

func newState() *state {
	return &state{
		requests:        make(map[uuid.UUID]entity.ServiceRequest),
		escrows:         make(map[uuid.UUID]entity.EscrowAccount),
		escrowByRequest: make(map[uuid.UUID]uuid.UUID),
		txs:             make(map[uuid.UUID]entity.Transaction),
		txByRef:         make(map[string]uuid.UUID),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.escrows {
		c.escrows[k] = v
	}
	for k, v := range s.escrowByRequest {
		c.escrowByRequest[k] = v
	}
	for k, v := range s.txs {
		c.txs[k] = v
	}
	for k, v := range s.txByRef {
		c.txByRef[k] = v
	}
	c.history = append(c.history, s.history...)
	return c
}

type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) Repos() repository.Repositories {
	return s.repos(false)
}

func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(s.repos(true)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) repos(inTx bool) repository.Repositories {
	b := base{store: s, inTx: inTx}
	return repository.Repositories{
		Requests:     requestRepo{b},
		Escrows:      escrowRepo{b},
		Transactions: transactionRepo{b},
		History:      historyRepo{b},
	}
}

type base struct {
	store *Store
	inTx  bool
}

func (b base) do(fn func(st *state) error) error {
	if !b.inTx {
		b.store.mu.Lock()
		defer b.store.mu.Unlock()
	}
	return fn(b.store.st)
}

type requestRepo struct{ base }

func (r requestRepo) Create(ctx context.Context, req *entity.ServiceRequest) error {
	return r.do(func(st *state) error {
		if _, ok := st.requests[req.ID]; ok {
			return apperror.New(apperror.ErrCodeConflict, "заявка уже существует")
		}
		st.requests[req.ID] = *req
		return nil
	})
}

func (r requestRepo) UpdateIfVersion(ctx context.Context, req *entity.ServiceRequest, expected int64) error {
	return r.do(func(st *state) error {
		cur, ok := st.requests[req.ID]
		if !ok {
			return apperror.ErrRequestNotFound
		}
		if cur.Version != expected {
			return apperror.ErrVersionConflict
		}
		req.Version = expected + 1
		st.requests[req.ID] = *req
		return nil
	})
}

func (r requestRepo) DeleteIfPending(ctx context.Context, id uuid.UUID, expected int64) error {
	return r.do(func(st *state) error {
		cur, ok := st.requests[id]
		if !ok {
			return apperror.ErrRequestNotFound
		}
		if cur.Version != expected || cur.Status != valueobject.RequestStatusPending {
			return apperror.ErrVersionConflict
		}
		delete(st.requests, id)
		return nil
	})
}

func (r requestRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.ServiceRequest, error) {
	var out *entity.ServiceRequest
	err := r.do(func(st *state) error {
		cur, ok := st.requests[id]
		if !ok {
			return apperror.ErrRequestNotFound
		}
		out = &cur
		return nil
	})
	return out, err
}

func (r requestRepo) List(ctx context.Context, filter repository.RequestFilter) ([]*entity.ServiceRequest, int, error) {
	var matched []*entity.ServiceRequest
	_ = r.do(func(st *state) error {
		for _, cur := range st.requests {
			req := cur
			if filter.Status != nil && req.Status != *filter.Status {
				continue
			}
			if !req.VisibleTo(filter.Viewer.Actor, filter.Viewer.Offers(req.Service)) {
				continue
			}
			matched = append(matched, &req)
		}
		return nil
	})

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	return paginate(matched, filter.Limit, filter.Offset), total, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type escrowRepo struct{ base }

func (r escrowRepo) Create(ctx context.Context, escrow *entity.EscrowAccount) error {
	return r.do(func(st *state) error {
		if _, ok := st.escrowByRequest[escrow.RequestID]; ok {
			return apperror.ErrEscrowExists
		}
		st.escrows[escrow.ID] = *escrow
		st.escrowByRequest[escrow.RequestID] = escrow.ID
		return nil
	})
}

func (r escrowRepo) Update(ctx context.Context, escrow *entity.EscrowAccount) error {
	return r.do(func(st *state) error {
		if _, ok := st.escrows[escrow.ID]; !ok {
			return apperror.ErrEscrowNotFound
		}
		st.escrows[escrow.ID] = *escrow
		return nil
	})
}

func (r escrowRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.EscrowAccount, error) {
	var out *entity.EscrowAccount
	err := r.do(func(st *state) error {
		cur, ok := st.escrows[id]
		if !ok {
			return apperror.ErrEscrowNotFound
		}
		out = &cur
		return nil
	})
	return out, err
}

func (r escrowRepo) FindByRequestID(ctx context.Context, requestID uuid.UUID) (*entity.EscrowAccount, error) {
	var out *entity.EscrowAccount
	err := r.do(func(st *state) error {
		id, ok := st.escrowByRequest[requestID]
		if !ok {
			return apperror.ErrEscrowNotFound
		}
		cur := st.escrows[id]
		out = &cur
		return nil
	})
	return out, err
}

// LockByID в памяти блокировка уже взята WithinTx.
func (r escrowRepo) LockByID(ctx context.Context, id uuid.UUID) (*entity.EscrowAccount, error) {
	return r.FindByID(ctx, id)
}

type transactionRepo struct{ base }

func (r transactionRepo) Create(ctx context.Context, tx *entity.Transaction) error {
	return r.do(func(st *state) error {
		if _, ok := st.txByRef[tx.ExternalRef]; ok {
			return apperror.New(apperror.ErrCodeConflict, "транзакция с таким external_ref уже существует")
		}
		st.txs[tx.ID] = *tx
		st.txByRef[tx.ExternalRef] = tx.ID
		return nil
	})
}

func (r transactionRepo) UpdateStatus(ctx context.Context, tx *entity.Transaction) error {
	return r.do(func(st *state) error {
		cur, ok := st.txs[tx.ID]
		if !ok {
			return apperror.ErrTransactionNotFound
		}
		cur.Status = tx.Status
		cur.GatewayStatus = tx.GatewayStatus
		cur.UpdatedAt = tx.UpdatedAt
		st.txs[tx.ID] = cur
		return nil
	})
}

func (r transactionRepo) FindByExternalRef(ctx context.Context, externalRef string) (*entity.Transaction, error) {
	var out *entity.Transaction
	err := r.do(func(st *state) error {
		id, ok := st.txByRef[externalRef]
		if !ok {
			return apperror.ErrTransactionNotFound
		}
		cur := st.txs[id]
		out = &cur
		return nil
	})
	return out, err
}

func (r transactionRepo) LockByExternalRef(ctx context.Context, externalRef string) (*entity.Transaction, error) {
	return r.FindByExternalRef(ctx, externalRef)
}

func (r transactionRepo) ListByRequestID(ctx context.Context, requestID uuid.UUID) ([]*entity.Transaction, error) {
	var out []*entity.Transaction
	_ = r.do(func(st *state) error {
		for _, cur := range st.txs {
			if cur.RequestID == requestID {
				tx := cur
				out = append(out, &tx)
			}
		}
		return nil
	})
	sortTransactions(out)
	return out, nil
}

func (r transactionRepo) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*entity.Transaction, error) {
	var out []*entity.Transaction
	_ = r.do(func(st *state) error {
		for _, cur := range st.txs {
			if cur.Status == valueobject.TransactionStatusPending && cur.Direction.IsInbound() && cur.CreatedAt.Before(olderThan) {
				tx := cur
				out = append(out, &tx)
			}
		}
		return nil
	})
	sortTransactions(out)
	return paginate(out, limit, 0), nil
}

func sortTransactions(txs []*entity.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].ExternalRef < txs[j].ExternalRef
		}
		return txs[i].CreatedAt.Before(txs[j].CreatedAt)
	})
}

type historyRepo struct{ base }

func (r historyRepo) Append(ctx context.Context, rec *entity.RequestHistory) error {
	return r.do(func(st *state) error {
		st.history = append(st.history, *rec)
		return nil
	})
}

func (r historyRepo) ListByRequestID(ctx context.Context, requestID uuid.UUID) ([]*entity.RequestHistory, error) {
	var out []*entity.RequestHistory
	_ = r.do(func(st *state) error {
		for _, cur := range st.history {
			if cur.RequestID == requestID {
				rec := cur
				out = append(out, &rec)
			}
		}
		return nil
	})
	return out, nil
}
