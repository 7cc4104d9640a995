package ports

import (
	"context"

	"github.com/shopkit-go/shop-api-server/internal/domains/catalog/domain"
)

// CreateBookInput carries the fields needed to add a book to the catalog.
type CreateBookInput struct {
	Name          string
	Price         int64
	StockQuantity int
	Author        string
	ISBN          string
}

// UpdateItemInput overrides the mutable attributes of an existing item.
type UpdateItemInput struct {
	ID     int64
	Name   string
	Price  int64
	Author string
	ISBN   string
}

// Service exposes catalog use cases to adapters.
type Service interface {
	CreateBook(ctx context.Context, input CreateBookInput) (int64, error)
	UpdateItem(ctx context.Context, input UpdateItemInput) error
	AddStock(ctx context.Context, itemID int64, quantity int) error
	RemoveStock(ctx context.Context, itemID int64, quantity int) error
	GetByID(ctx context.Context, id int64) (*domain.Item, error)
	List(ctx context.Context) ([]*domain.Item, error)
}
