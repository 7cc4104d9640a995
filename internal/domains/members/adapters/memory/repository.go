package memory

import (
	"context"
	"sync"

	"github.com/shopkit-go/shop-api-server/internal/domains/members/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/members/ports"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

var _ ports.Repository = (*Repository)(nil)

// Repository provides an in-memory implementation for development and tests.
// It ignores the unit of work handle; pair it with unitofwork.NewNopManager.
type Repository struct {
	mu      sync.RWMutex
	nextID  int64
	members map[int64]domain.Member
	names   map[string]int64
}

// NewRepository constructs an empty in-memory store.
func NewRepository() *Repository {
	return &Repository{
		members: map[int64]domain.Member{},
		names:   map[string]int64{},
	}
}

// Save persists the member, assigning an identifier on first save. The name
// uniqueness rule is enforced here the same way the database index does it.
func (r *Repository) Save(_ context.Context, _ unitofwork.UnitOfWork, member *domain.Member) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if holder, taken := r.names[member.Name]; taken && holder != member.ID {
		return 0, ports.ErrDuplicateName
	}
	if member.ID == 0 {
		r.nextID++
		member.ID = r.nextID
	}
	r.members[member.ID] = *member
	r.names[member.Name] = member.ID
	return member.ID, nil
}

// GetByID returns a copy of the stored member.
func (r *Repository) GetByID(_ context.Context, _ unitofwork.UnitOfWork, id int64) (*domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	member, ok := r.members[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copy := member
	return &copy, nil
}

// List returns all members in ascending identity.
func (r *Repository) List(_ context.Context, _ unitofwork.UnitOfWork) ([]*domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := make([]*domain.Member, 0, len(r.members))
	for id := int64(1); id <= r.nextID; id++ {
		if member, ok := r.members[id]; ok {
			copy := member
			members = append(members, &copy)
		}
	}
	return members, nil
}
