package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/repository"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const requestColumns = `id, client_id, offered_service_id, category_id, description, preferred_date,
	accepted_provider_id, proposed_value, status, version, created_at, updated_at, completed_at`

type requestRow struct {
	ID                 uuid.UUID           `db:"id"`
	ClientID           uuid.UUID           `db:"client_id"`
	OfferedServiceID   uuid.NullUUID       `db:"offered_service_id"`
	CategoryID         uuid.NullUUID       `db:"category_id"`
	Description        string              `db:"description"`
	PreferredDate      *time.Time          `db:"preferred_date"`
	AcceptedProviderID uuid.NullUUID       `db:"accepted_provider_id"`
	ProposedValue      decimal.NullDecimal `db:"proposed_value"`
	Status             string              `db:"status"`
	Version            int64               `db:"version"`
	CreatedAt          time.Time           `db:"created_at"`
	UpdatedAt          time.Time           `db:"updated_at"`
	CompletedAt        *time.Time          `db:"completed_at"`
}

func (r requestRow) toEntity() *entity.ServiceRequest {
	req := &entity.ServiceRequest{
		ID:       r.ID,
		ClientID: r.ClientID,
		Service: entity.ServiceRef{
			OfferedServiceID: ptrUUID(r.OfferedServiceID),
			CategoryID:       ptrUUID(r.CategoryID),
		},
		Description:        r.Description,
		PreferredDate:      r.PreferredDate,
		AcceptedProviderID: ptrUUID(r.AcceptedProviderID),
		Status:             valueobject.RequestStatus(r.Status),
		Version:            r.Version,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		CompletedAt:        r.CompletedAt,
	}
	if r.ProposedValue.Valid {
		v := r.ProposedValue.Decimal
		req.ProposedValue = &v
	}
	return req
}

type RequestRepository struct {
	q sqlx.ExtContext
}

func (r *RequestRepository) Create(ctx context.Context, req *entity.ServiceRequest) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO service_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		req.ID,
		req.ClientID,
		nullUUID(req.Service.OfferedServiceID),
		nullUUID(req.Service.CategoryID),
		req.Description,
		req.PreferredDate,
		nullUUID(req.AcceptedProviderID),
		nullDecimal(req.ProposedValue),
		string(req.Status),
		req.Version,
		req.CreatedAt,
		req.UpdatedAt,
		req.CompletedAt,
	)
	if isUniqueViolation(err) {
		return apperror.Wrap(err, apperror.ErrCodeConflict, "заявка уже существует")
	}
	if err != nil {
		return dbError(err, "не удалось создать заявку")
	}
	return nil
}

// UpdateIfVersion пишет заявку, только если версия в БД совпадает с expected.
func (r *RequestRepository) UpdateIfVersion(ctx context.Context, req *entity.ServiceRequest, expected int64) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE service_requests
		SET accepted_provider_id = $3, proposed_value = $4, status = $5,
		    updated_at = $6, completed_at = $7, version = version + 1
		WHERE id = $1 AND version = $2
	`,
		req.ID,
		expected,
		nullUUID(req.AcceptedProviderID),
		nullDecimal(req.ProposedValue),
		string(req.Status),
		req.UpdatedAt,
		req.CompletedAt,
	)
	if err != nil {
		return dbError(err, "не удалось обновить заявку")
	}
	if err := r.checkAffected(ctx, res, req.ID); err != nil {
		return err
	}
	req.Version = expected + 1
	return nil
}

func (r *RequestRepository) DeleteIfPending(ctx context.Context, id uuid.UUID, expected int64) error {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM service_requests
		WHERE id = $1 AND version = $2 AND status = 'pending'
	`, id, expected)
	if err != nil {
		return dbError(err, "не удалось удалить заявку")
	}
	return r.checkAffected(ctx, res, id)
}

// checkAffected различает отсутствующую заявку и проигранную гонку версий.
func (r *RequestRepository) checkAffected(ctx context.Context, res sql.Result, id uuid.UUID) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return dbError(err, "не удалось проверить результат записи")
	}
	if rows > 0 {
		return nil
	}
	var exists bool
	if err := sqlx.GetContext(ctx, r.q, &exists, `SELECT EXISTS (SELECT 1 FROM service_requests WHERE id = $1)`, id); err != nil {
		return dbError(err, "не удалось проверить заявку")
	}
	if !exists {
		return apperror.ErrRequestNotFound
	}
	return apperror.ErrVersionConflict
}

func (r *RequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ServiceRequest, error) {
	var row requestRow
	err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+requestColumns+` FROM service_requests WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrRequestNotFound
	}
	if err != nil {
		return nil, dbError(err, "не удалось получить заявку")
	}
	return row.toEntity(), nil
}

// List применяет тот же предикат видимости, что и ServiceRequest.VisibleTo.
func (r *RequestRepository) List(ctx context.Context, filter repository.RequestFilter) ([]*entity.ServiceRequest, int, error) {
	where, args, ok := visibilityClause(filter.Viewer)
	if !ok {
		return []*entity.ServiceRequest{}, 0, nil
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := sqlx.GetContext(ctx, r.q, &total, `SELECT COUNT(*) FROM service_requests`+cond, args...); err != nil {
		return nil, 0, dbError(err, "не удалось посчитать заявки")
	}

	query := `SELECT ` + requestColumns + ` FROM service_requests` + cond + ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var rows []requestRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, 0, dbError(err, "не удалось получить список заявок")
	}
	out := make([]*entity.ServiceRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, total, nil
}

func visibilityClause(v repository.Viewer) ([]string, []interface{}, bool) {
	switch v.Actor.Role {
	case valueobject.RoleOperator, valueobject.RoleEngine:
		return nil, nil, true
	case valueobject.RoleClient:
		return []string{"client_id = $1"}, []interface{}{v.Actor.ID}, true
	case valueobject.RoleProvider:
		cond := `(accepted_provider_id = $1 OR (status IN ('pending', 'proposed')
			AND (offered_service_id = ANY($2::uuid[]) OR category_id = ANY($3::uuid[]))))`
		return []string{cond}, []interface{}{v.Actor.ID, uuidArray(v.OfferedServiceIDs), uuidArray(v.CategoryIDs)}, true
	}
	return nil, nil, false
}

func uuidArray(ids []uuid.UUID) interface{} {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return pq.Array(out)
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func ptrUUID(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := id.UUID
	return &v
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
