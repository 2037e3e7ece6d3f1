package persistence

import (
	"context"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Catalog читает каталог услуг из offered_services и service_categories.
type Catalog struct {
	db *sqlx.DB
}

func NewCatalog(db *sqlx.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) ServiceExists(ctx context.Context, ref entity.ServiceRef) (bool, error) {
	var exists bool
	var err error
	switch {
	case ref.OfferedServiceID != nil:
		err = c.db.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM offered_services WHERE id = $1 AND active)`, *ref.OfferedServiceID)
	case ref.CategoryID != nil:
		err = c.db.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM service_categories WHERE id = $1)`, *ref.CategoryID)
	default:
		return false, nil
	}
	if err != nil {
		return false, dbError(err, "не удалось проверить услугу")
	}
	return exists, nil
}

func (c *Catalog) ProviderOffers(ctx context.Context, providerID uuid.UUID, ref entity.ServiceRef) (bool, error) {
	var exists bool
	var err error
	switch {
	case ref.OfferedServiceID != nil:
		err = c.db.GetContext(ctx, &exists, `
			SELECT EXISTS (SELECT 1 FROM offered_services WHERE id = $1 AND provider_id = $2 AND active)
		`, *ref.OfferedServiceID, providerID)
	case ref.CategoryID != nil:
		err = c.db.GetContext(ctx, &exists, `
			SELECT EXISTS (SELECT 1 FROM offered_services WHERE category_id = $1 AND provider_id = $2 AND active)
		`, *ref.CategoryID, providerID)
	default:
		return false, nil
	}
	if err != nil {
		return false, dbError(err, "не удалось проверить услуги исполнителя")
	}
	return exists, nil
}

func (c *Catalog) ProviderServiceRefs(ctx context.Context, providerID uuid.UUID) ([]uuid.UUID, []uuid.UUID, error) {
	var rows []struct {
		ID         uuid.UUID `db:"id"`
		CategoryID uuid.UUID `db:"category_id"`
	}
	if err := c.db.SelectContext(ctx, &rows, `
		SELECT id, category_id FROM offered_services WHERE provider_id = $1 AND active
	`, providerID); err != nil {
		return nil, nil, dbError(err, "не удалось получить услуги исполнителя")
	}

	serviceIDs := make([]uuid.UUID, 0, len(rows))
	var categoryIDs []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, row := range rows {
		serviceIDs = append(serviceIDs, row.ID)
		if !seen[row.CategoryID] {
			seen[row.CategoryID] = true
			categoryIDs = append(categoryIDs, row.CategoryID)
		}
	}
	return serviceIDs, categoryIDs, nil
}
