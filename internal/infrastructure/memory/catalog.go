package memory

import (
	"context"
	"sync"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/google/uuid"
)

type offeredService struct {
	providerID uuid.UUID
	categoryID uuid.UUID
}

// Catalog каталог услуг в памяти.
type Catalog struct {
	mu         sync.RWMutex
	services   map[uuid.UUID]offeredService
	categories map[uuid.UUID]struct{}
}

func NewCatalog() *Catalog {
	return &Catalog{
		services:   make(map[uuid.UUID]offeredService),
		categories: make(map[uuid.UUID]struct{}),
	}
}

// AddService регистрирует услугу исполнителя в категории.
func (c *Catalog) AddService(serviceID, providerID, categoryID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[serviceID] = offeredService{providerID: providerID, categoryID: categoryID}
	c.categories[categoryID] = struct{}{}
}

func (c *Catalog) ServiceExists(ctx context.Context, ref entity.ServiceRef) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if ref.OfferedServiceID != nil {
		_, ok := c.services[*ref.OfferedServiceID]
		return ok, nil
	}
	if ref.CategoryID != nil {
		_, ok := c.categories[*ref.CategoryID]
		return ok, nil
	}
	return false, nil
}

func (c *Catalog) ProviderOffers(ctx context.Context, providerID uuid.UUID, ref entity.ServiceRef) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if ref.OfferedServiceID != nil {
		svc, ok := c.services[*ref.OfferedServiceID]
		return ok && svc.providerID == providerID, nil
	}
	if ref.CategoryID != nil {
		for _, svc := range c.services {
			if svc.providerID == providerID && svc.categoryID == *ref.CategoryID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (c *Catalog) ProviderServiceRefs(ctx context.Context, providerID uuid.UUID) ([]uuid.UUID, []uuid.UUID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var serviceIDs, categoryIDs []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for id, svc := range c.services {
		if svc.providerID != providerID {
			continue
		}
		serviceIDs = append(serviceIDs, id)
		if !seen[svc.categoryID] {
			seen[svc.categoryID] = true
			categoryIDs = append(categoryIDs, svc.categoryID)
		}
	}
	return serviceIDs, categoryIDs, nil
}
