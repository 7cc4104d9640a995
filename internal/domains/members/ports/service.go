package ports

import (
	"context"

	"github.com/shopkit-go/shop-api-server/internal/domains/members/domain"
)

// RegisterMemberInput carries the fields needed to register a member.
type RegisterMemberInput struct {
	Name    string
	City    string
	Street  string
	Zipcode string
}

// Service exposes member use cases to adapters.
type Service interface {
	Register(ctx context.Context, input RegisterMemberInput) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Member, error)
	List(ctx context.Context) ([]*domain.Member, error)
}
