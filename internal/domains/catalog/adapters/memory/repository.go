package memory

import (
	"context"
	"sync"

	"github.com/shopkit-go/shop-api-server/internal/domains/catalog/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/catalog/ports"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

var _ ports.Repository = (*Repository)(nil)

// Repository provides an in-memory implementation for development and tests.
// It ignores the unit of work handle; pair it with unitofwork.NewNopManager.
type Repository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]domain.Item
}

// NewRepository constructs an empty in-memory store.
func NewRepository() *Repository {
	return &Repository{items: map[int64]domain.Item{}}
}

func clone(item domain.Item) domain.Item {
	if item.Book != nil {
		book := *item.Book
		item.Book = &book
	}
	return item
}

// Save upserts the item, assigning an identifier on first save.
func (r *Repository) Save(_ context.Context, _ unitofwork.UnitOfWork, item *domain.Item) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.ID == 0 {
		r.nextID++
		item.ID = r.nextID
	}
	r.items[item.ID] = clone(*item)
	return item.ID, nil
}

// GetByID returns a copy of the stored item.
func (r *Repository) GetByID(_ context.Context, _ unitofwork.UnitOfWork, id int64) (*domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copy := clone(item)
	return &copy, nil
}

// List returns all items in ascending identity.
func (r *Repository) List(_ context.Context, _ unitofwork.UnitOfWork) ([]*domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]*domain.Item, 0, len(r.items))
	for id := int64(1); id <= r.nextID; id++ {
		if item, ok := r.items[id]; ok {
			copy := clone(item)
			items = append(items, &copy)
		}
	}
	return items, nil
}
