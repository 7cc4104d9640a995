package ports

import (
	"context"
	"errors"

	"github.com/shopkit-go/shop-api-server/internal/domains/members/domain"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

var (
	ErrNotFound      = errors.New("member not found")
	ErrDuplicateName = errors.New("member name already registered")
)

// Repository persists members. Every operation takes the explicit unit of
// work it must run in.
type Repository interface {
	Save(ctx context.Context, u unitofwork.UnitOfWork, member *domain.Member) (int64, error)
	GetByID(ctx context.Context, u unitofwork.UnitOfWork, id int64) (*domain.Member, error)
	List(ctx context.Context, u unitofwork.UnitOfWork) ([]*domain.Member, error)
}
