package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	catalogdomain "github.com/shopkit-go/shop-api-server/internal/domains/catalog/domain"
	catalogports "github.com/shopkit-go/shop-api-server/internal/domains/catalog/ports"
	membersdomain "github.com/shopkit-go/shop-api-server/internal/domains/members/domain"
	membersports "github.com/shopkit-go/shop-api-server/internal/domains/members/ports"
	"github.com/shopkit-go/shop-api-server/internal/domains/orders/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/orders/ports"
	"github.com/shopkit-go/shop-api-server/internal/shared/association"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

var _ ports.Repository = (*Repository)(nil)

// lineState is the stored form of one order line.
type lineState struct {
	id         int64
	itemID     int64
	orderPrice int64
	count      int
}

// deliveryState is the stored form of the owned delivery.
type deliveryState struct {
	id      int64
	city    string
	street  string
	zipcode string
	status  domain.DeliveryStatus
}

// orderState is the stored form of one aggregate, flattened the way the
// database tables flatten it.
type orderState struct {
	id        int64
	memberID  int64
	orderDate time.Time
	status    domain.Status
	delivery  deliveryState
	lines     []lineState
}

// Repository provides an in-memory implementation for development and tests.
// Member and item lookups delegate to the sibling stores so the strategy
// semantics stay identical to the database adapter: same filters, same
// ordering, same caps, same lazy-versus-materialized shapes. Pair it with
// unitofwork.NewNopManager.
type Repository struct {
	mu         sync.RWMutex
	nextID     int64
	nextLineID int64
	orders     map[int64]orderState

	members membersports.Repository
	catalog catalogports.Repository
}

// NewRepository constructs an empty in-memory store backed by the given
// member and item stores.
func NewRepository(members membersports.Repository, catalog catalogports.Repository) *Repository {
	return &Repository{
		orders:  map[int64]orderState{},
		members: members,
		catalog: catalog,
	}
}

func (r *Repository) Save(_ context.Context, _ unitofwork.UnitOfWork, order *domain.Order) (int64, error) {
	delivery, err := order.Delivery.Value()
	if err != nil {
		return 0, err
	}
	items, err := order.Items.Items()
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	order.ID = r.nextID
	delivery.ID = r.nextID

	state := orderState{
		id:        order.ID,
		memberID:  order.Member.Key(),
		orderDate: order.OrderDate,
		status:    order.Status,
		delivery: deliveryState{
			id:      delivery.ID,
			city:    delivery.Address.City(),
			street:  delivery.Address.Street(),
			zipcode: delivery.Address.Zipcode(),
			status:  delivery.Status,
		},
	}
	for _, line := range items {
		r.nextLineID++
		line.ID = r.nextLineID
		state.lines = append(state.lines, lineState{
			id:         line.ID,
			itemID:     line.Item.Key(),
			orderPrice: line.OrderPrice,
			count:      line.Count,
		})
	}
	r.orders[state.id] = state
	return state.id, nil
}

func (r *Repository) GetByID(_ context.Context, u unitofwork.UnitOfWork, id int64) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return r.lazyOrder(u, state), nil
}

func (r *Repository) UpdateStatus(_ context.Context, _ unitofwork.UnitOfWork, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.orders[order.ID]
	if !ok {
		return ports.ErrNotFound
	}
	state.status = order.Status
	r.orders[order.ID] = state
	return nil
}

// matches applies the search predicates: status equality and contains-match
// on the member's name.
func (r *Repository) matches(ctx context.Context, u unitofwork.UnitOfWork, state orderState, search ports.Search) (bool, error) {
	if search.Status != nil && state.status != *search.Status {
		return false, nil
	}
	if search.MemberName != "" {
		member, err := r.members.GetByID(ctx, u, state.memberID)
		if err != nil {
			return false, err
		}
		if !strings.Contains(member.Name, search.MemberName) {
			return false, nil
		}
	}
	return true, nil
}

// selectStates returns matching states in ascending identity, windowed.
func (r *Repository) selectStates(ctx context.Context, u unitofwork.UnitOfWork, search ports.Search, page *ports.Page) ([]orderState, error) {
	r.mu.RLock()
	states := make([]orderState, 0, len(r.orders))
	for id := int64(1); id <= r.nextID; id++ {
		if state, ok := r.orders[id]; ok {
			states = append(states, state)
		}
	}
	r.mu.RUnlock()

	matched := make([]orderState, 0, len(states))
	for _, state := range states {
		ok, err := r.matches(ctx, u, state, search)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, state)
		}
	}

	offset, limit := 0, ports.MaxResults
	if page != nil {
		p := page.Normalize()
		offset, limit = p.Offset, p.Limit
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s deliveryState) address() membersdomain.Address {
	return membersdomain.NewAddress(s.city, s.street, s.zipcode)
}

func (r *Repository) lazyOrder(u unitofwork.UnitOfWork, state orderState) *domain.Order {
	order := domain.Rehydrate(state.id, state.orderDate, state.status)
	order.Member = association.Lazy(state.memberID, func(ctx context.Context, key int64) (*membersdomain.Member, error) {
		return r.members.GetByID(ctx, u, key)
	})
	order.Delivery = association.Lazy(state.id, func(ctx context.Context, orderID int64) (*domain.Delivery, error) {
		r.mu.RLock()
		current, ok := r.orders[orderID]
		r.mu.RUnlock()
		if !ok {
			return nil, ports.ErrNotFound
		}
		d := current.delivery
		return order.AttachDelivery(domain.RehydrateDelivery(d.id, d.address(), d.status)), nil
	})
	order.Items = association.LazyCollection(state.id, func(ctx context.Context, orderID int64) ([]*domain.OrderItem, error) {
		r.mu.RLock()
		current, ok := r.orders[orderID]
		r.mu.RUnlock()
		if !ok {
			return nil, ports.ErrNotFound
		}
		lines := make([]*domain.OrderItem, 0, len(current.lines))
		for _, l := range current.lines {
			lines = append(lines, domain.RehydrateOrderItem(
				l.id,
				association.Lazy(l.itemID, func(ctx context.Context, key int64) (*catalogdomain.Item, error) {
					return r.catalog.GetByID(ctx, u, key)
				}),
				l.orderPrice,
				l.count,
			))
		}
		return order.AttachItems(lines), nil
	})
	return order
}

func (r *Repository) toOneOrder(ctx context.Context, u unitofwork.UnitOfWork, state orderState) (*domain.Order, error) {
	order := r.lazyOrder(u, state)
	if _, err := order.Member.Resolve(ctx); err != nil {
		return nil, err
	}
	if _, err := order.Delivery.Resolve(ctx); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) materializeItems(ctx context.Context, order *domain.Order) error {
	items, err := order.Items.Resolve(ctx)
	if err != nil {
		return err
	}
	for _, line := range items {
		if _, err := line.Item.Resolve(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) FindAll(ctx context.Context, u unitofwork.UnitOfWork, search ports.Search, page *ports.Page) ([]*domain.Order, error) {
	states, err := r.selectStates(ctx, u, search, page)
	if err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(states))
	for _, state := range states {
		orders = append(orders, r.lazyOrder(u, state))
	}
	return orders, nil
}

func (r *Repository) FindAllWithMemberDelivery(ctx context.Context, u unitofwork.UnitOfWork, search ports.Search, page *ports.Page) ([]*domain.Order, error) {
	states, err := r.selectStates(ctx, u, search, page)
	if err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(states))
	for _, state := range states {
		order, err := r.toOneOrder(ctx, u, state)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (r *Repository) FindAllWithItems(ctx context.Context, u unitofwork.UnitOfWork, search ports.Search) ([]*domain.Order, error) {
	states, err := r.selectStates(ctx, u, search, nil)
	if err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(states))
	for _, state := range states {
		order, err := r.toOneOrder(ctx, u, state)
		if err != nil {
			return nil, err
		}
		if err := r.materializeItems(ctx, order); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (r *Repository) FindAllBatched(ctx context.Context, u unitofwork.UnitOfWork, search ports.Search, page *ports.Page, _ int) ([]*domain.Order, error) {
	// Without round trips there is nothing to batch; the result shape is the
	// fully materialized one.
	orders, err := r.FindAllWithMemberDelivery(ctx, u, search, page)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		if err := r.materializeItems(ctx, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *Repository) summarize(ctx context.Context, u unitofwork.UnitOfWork, state orderState) (ports.OrderSummary, error) {
	member, err := r.members.GetByID(ctx, u, state.memberID)
	if err != nil {
		return ports.OrderSummary{}, err
	}
	summary := ports.OrderSummary{
		OrderID:    state.id,
		MemberName: member.Name,
		OrderDate:  state.orderDate,
		Status:     state.status,
		City:       state.delivery.city,
		Street:     state.delivery.street,
		Zipcode:    state.delivery.zipcode,
	}
	for _, line := range state.lines {
		item, err := r.catalog.GetByID(ctx, u, line.itemID)
		if err != nil {
			return ports.OrderSummary{}, err
		}
		summary.Items = append(summary.Items, ports.OrderLine{
			ItemName:   item.Name,
			OrderPrice: line.orderPrice,
			Count:      line.count,
		})
	}
	return summary, nil
}

func (r *Repository) FindSummaries(ctx context.Context, u unitofwork.UnitOfWork, search ports.Search, page *ports.Page) ([]ports.OrderSummary, error) {
	states, err := r.selectStates(ctx, u, search, page)
	if err != nil {
		return nil, err
	}
	summaries := make([]ports.OrderSummary, 0, len(states))
	for _, state := range states {
		summary, err := r.summarize(ctx, u, state)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (r *Repository) FindSummariesFlat(ctx context.Context, u unitofwork.UnitOfWork, search ports.Search) ([]ports.OrderSummary, error) {
	return r.FindSummaries(ctx, u, search, nil)
}
