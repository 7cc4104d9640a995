package ports

import (
	"context"
	"errors"

	"github.com/shopkit-go/shop-api-server/internal/domains/catalog/domain"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

var ErrNotFound = errors.New("item not found")

// Repository persists catalog items. Save upserts, which is how stock
// mutations performed on a loaded aggregate get written back.
type Repository interface {
	Save(ctx context.Context, u unitofwork.UnitOfWork, item *domain.Item) (int64, error)
	GetByID(ctx context.Context, u unitofwork.UnitOfWork, id int64) (*domain.Item, error)
	List(ctx context.Context, u unitofwork.UnitOfWork) ([]*domain.Item, error)
}
