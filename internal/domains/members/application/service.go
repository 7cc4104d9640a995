package application

import (
	"context"

	"github.com/shopkit-go/shop-api-server/internal/domains/members/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/members/ports"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

// Service orchestrates member use cases.
type Service struct {
	uow  unitofwork.Manager
	repo ports.Repository
}

func NewService(uow unitofwork.Manager, repo ports.Repository) *Service {
	return &Service{uow: uow, repo: repo}
}

var _ ports.Service = (*Service)(nil)

// Register validates and persists a new member. Duplicate names are rejected
// by the repository's unique constraint and surface as ErrDuplicateName.
func (s *Service) Register(ctx context.Context, input ports.RegisterMemberInput) (int64, error) {
	member, err := domain.NewMember(input.Name, domain.NewAddress(input.City, input.Street, input.Zipcode))
	if err != nil {
		return 0, mapError(err)
	}
	var id int64
	err = s.uow.ReadWrite(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		id, err = s.repo.Save(ctx, u, member)
		return err
	})
	if err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Member, error) {
	var member *domain.Member
	err := s.uow.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		var err error
		member, err = s.repo.GetByID(ctx, u, id)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return member, nil
}

func (s *Service) List(ctx context.Context) ([]*domain.Member, error) {
	var members []*domain.Member
	err := s.uow.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		var err error
		members, err = s.repo.List(ctx, u)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return members, nil
}
