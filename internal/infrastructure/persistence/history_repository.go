package persistence

import (
	"context"
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type historyRow struct {
	ID         uuid.UUID     `db:"id"`
	RequestID  uuid.UUID     `db:"request_id"`
	ActorID    uuid.NullUUID `db:"actor_id"`
	Action     string        `db:"action"`
	FromStatus *string       `db:"from_status"`
	ToStatus   string        `db:"to_status"`
	CreatedAt  time.Time     `db:"created_at"`
}

type HistoryRepository struct {
	q sqlx.ExtContext
}

func (r *HistoryRepository) Append(ctx context.Context, rec *entity.RequestHistory) error {
	var from *string
	if rec.FromStatus != nil {
		s := string(*rec.FromStatus)
		from = &s
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO request_history (id, request_id, actor_id, action, from_status, to_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.RequestID, nullUUID(rec.ActorID), rec.Action, from, string(rec.ToStatus), rec.CreatedAt)
	if err != nil {
		return dbError(err, "не удалось записать историю заявки")
	}
	return nil
}

func (r *HistoryRepository) ListByRequestID(ctx context.Context, requestID uuid.UUID) ([]*entity.RequestHistory, error) {
	var rows []historyRow
	err := sqlx.SelectContext(ctx, r.q, &rows, `
		SELECT id, request_id, actor_id, action, from_status, to_status, created_at
		FROM request_history
		WHERE request_id = $1
		ORDER BY created_at, id
	`, requestID)
	if err != nil {
		return nil, dbError(err, "не удалось получить историю заявки")
	}

	out := make([]*entity.RequestHistory, 0, len(rows))
	for _, row := range rows {
		rec := &entity.RequestHistory{
			ID:        row.ID,
			RequestID: row.RequestID,
			ActorID:   ptrUUID(row.ActorID),
			Action:    row.Action,
			ToStatus:  valueobject.RequestStatus(row.ToStatus),
			CreatedAt: row.CreatedAt,
		}
		if row.FromStatus != nil {
			from := valueobject.RequestStatus(*row.FromStatus)
			rec.FromStatus = &from
		}
		out = append(out, rec)
	}
	return out, nil
}
