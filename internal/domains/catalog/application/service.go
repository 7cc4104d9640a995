package application

import (
	"context"

	"github.com/shopkit-go/shop-api-server/internal/domains/catalog/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/catalog/ports"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

// Service orchestrates catalog use cases.
type Service struct {
	uow  unitofwork.Manager
	repo ports.Repository
}

func NewService(uow unitofwork.Manager, repo ports.Repository) *Service {
	return &Service{uow: uow, repo: repo}
}

var _ ports.Service = (*Service)(nil)

// CreateBook adds a book-kind item to the catalog.
func (s *Service) CreateBook(ctx context.Context, input ports.CreateBookInput) (int64, error) {
	book, err := domain.NewBook(input.Name, input.Price, input.StockQuantity, input.Author, input.ISBN)
	if err != nil {
		return 0, mapError(err)
	}
	var id int64
	err = s.uow.ReadWrite(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		id, err = s.repo.Save(ctx, u, book)
		return err
	})
	if err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

// UpdateItem overrides the mutable attributes of an existing item. Stock is
// deliberately excluded: it only moves through the stock operations.
func (s *Service) UpdateItem(ctx context.Context, input ports.UpdateItemInput) error {
	err := s.uow.ReadWrite(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		item, err := s.repo.GetByID(ctx, u, input.ID)
		if err != nil {
			return err
		}
		item.Name = input.Name
		item.Price = input.Price
		if item.Kind == domain.KindBook && item.Book != nil {
			item.Book.Author = input.Author
			item.Book.ISBN = input.ISBN
		}
		_, err = s.repo.Save(ctx, u, item)
		return err
	})
	return mapError(err)
}

// AddStock increases an item's stock counter.
func (s *Service) AddStock(ctx context.Context, itemID int64, quantity int) error {
	return s.adjustStock(ctx, itemID, func(item *domain.Item) error {
		return item.AddStock(quantity)
	})
}

// RemoveStock decreases an item's stock counter, failing when the stock
// would go negative.
func (s *Service) RemoveStock(ctx context.Context, itemID int64, quantity int) error {
	return s.adjustStock(ctx, itemID, func(item *domain.Item) error {
		return item.RemoveStock(quantity)
	})
}

func (s *Service) adjustStock(ctx context.Context, itemID int64, mutate func(*domain.Item) error) error {
	err := s.uow.ReadWrite(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		item, err := s.repo.GetByID(ctx, u, itemID)
		if err != nil {
			return err
		}
		if err := mutate(item); err != nil {
			return err
		}
		_, err = s.repo.Save(ctx, u, item)
		return err
	})
	return mapError(err)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	var item *domain.Item
	err := s.uow.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		var err error
		item, err = s.repo.GetByID(ctx, u, id)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return item, nil
}

func (s *Service) List(ctx context.Context) ([]*domain.Item, error) {
	var items []*domain.Item
	err := s.uow.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		var err error
		items, err = s.repo.List(ctx, u)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return items, nil
}
