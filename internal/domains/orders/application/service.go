package application

import (
	"context"
	"errors"

	catalogports "github.com/shopkit-go/shop-api-server/internal/domains/catalog/ports"
	membersports "github.com/shopkit-go/shop-api-server/internal/domains/members/ports"
	"github.com/shopkit-go/shop-api-server/internal/domains/orders/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/orders/ports"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

// DefaultBatchSize is the grouped-fetch size used by the batch strategy when
// the caller did not configure one.
const DefaultBatchSize = 100

// Service orchestrates the order use cases. It is the only writer of order
// aggregates; the projection strategies never mutate anything.
type Service struct {
	uow       unitofwork.Manager
	orders    ports.Repository
	members   membersports.Repository
	catalog   catalogports.Repository
	batchSize int
}

// Option tweaks service behaviour.
type Option func(*Service)

// WithBatchSize sets the grouped-fetch size for the batch strategy.
func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// NewService wires the order service with its collaborators.
func NewService(uow unitofwork.Manager, orders ports.Repository, members membersports.Repository, catalog catalogports.Repository, opts ...Option) *Service {
	s := &Service{
		uow:       uow,
		orders:    orders,
		members:   members,
		catalog:   catalog,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

var _ ports.Service = (*Service)(nil)

// PlaceOrder looks up the member and item, decrements stock, and persists the
// new aggregate, all inside one read-write unit of work. An insufficient
// stock failure rolls everything back; no order is created.
func (s *Service) PlaceOrder(ctx context.Context, input ports.PlaceOrderInput) (int64, error) {
	var orderID int64
	err := s.uow.ReadWrite(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		member, err := s.members.GetByID(ctx, u, input.MemberID)
		if err != nil {
			return err
		}
		item, err := s.catalog.GetByID(ctx, u, input.ItemID)
		if err != nil {
			return err
		}

		line, err := domain.NewOrderItem(item, item.Price, input.Count)
		if err != nil {
			return err
		}
		delivery := domain.NewDelivery(member.Address)
		order, err := domain.NewOrder(member, delivery, line)
		if err != nil {
			return err
		}

		if _, err := s.catalog.Save(ctx, u, item); err != nil {
			return err
		}
		orderID, err = s.orders.Save(ctx, u, order)
		return err
	})
	if err != nil {
		return 0, mapError(err)
	}
	return orderID, nil
}

// CancelOrder loads the aggregate, runs its cancel rule, and writes back the
// status change plus the restored stock. The whole compensation is one unit
// of work. Restore counts are summed per distinct item before persisting:
// two lines of the same item resolve to separate instances, and saving those
// instances one by one would let the second write clobber the first.
func (s *Service) CancelOrder(ctx context.Context, orderID int64) error {
	err := s.uow.ReadWrite(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		order, err := s.orders.GetByID(ctx, u, orderID)
		if err != nil {
			return err
		}
		if err := order.Cancel(ctx); err != nil {
			return err
		}
		items, err := order.Items.Items()
		if err != nil {
			return err
		}
		restore := make(map[int64]int, len(items))
		keys := make([]int64, 0, len(items))
		for _, line := range items {
			key := line.Item.Key()
			if _, seen := restore[key]; !seen {
				keys = append(keys, key)
			}
			restore[key] += line.Count
		}
		for _, key := range keys {
			item, err := s.catalog.GetByID(ctx, u, key)
			if err != nil {
				return err
			}
			if err := item.AddStock(restore[key]); err != nil {
				return err
			}
			if _, err := s.catalog.Save(ctx, u, item); err != nil {
				return err
			}
		}
		return s.orders.UpdateStatus(ctx, u, order)
	})
	return mapError(err)
}

// GetOrder materializes a single order into the stable summary shape.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (*ports.OrderSummary, error) {
	var summary *ports.OrderSummary
	err := s.uow.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		order, err := s.orders.GetByID(ctx, u, orderID)
		if err != nil {
			return err
		}
		summary, err = summarize(ctx, order)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return summary, nil
}

// Search runs one of the six query strategies and normalizes the result to
// the stable summary shape. Aggregates loaded by the entity strategies are
// materialized here, inside the read-only unit of work, because their lazy
// references die with it.
func (s *Service) Search(ctx context.Context, input ports.SearchInput) ([]ports.OrderSummary, error) {
	strategy := input.Strategy
	if strategy == "" {
		strategy = ports.StrategyJoinToOne
	}
	if input.Page != nil && !strategy.SupportsPagination() {
		return nil, ports.ErrUnsupportedQueryShape
	}

	var summaries []ports.OrderSummary
	err := s.uow.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		switch strategy {
		case ports.StrategyLazy:
			orders, err := s.orders.FindAll(ctx, u, input.Search, input.Page)
			if err != nil {
				return err
			}
			summaries, err = summarizeAll(ctx, orders)
			return err
		case ports.StrategyJoinToOne:
			orders, err := s.orders.FindAllWithMemberDelivery(ctx, u, input.Search, input.Page)
			if err != nil {
				return err
			}
			summaries, err = summarizeAll(ctx, orders)
			return err
		case ports.StrategyJoinCollection:
			orders, err := s.orders.FindAllWithItems(ctx, u, input.Search)
			if err != nil {
				return err
			}
			summaries, err = summarizeAll(ctx, orders)
			return err
		case ports.StrategyBatch:
			orders, err := s.orders.FindAllBatched(ctx, u, input.Search, input.Page, s.batchSize)
			if err != nil {
				return err
			}
			summaries, err = summarizeAll(ctx, orders)
			return err
		case ports.StrategyProjectionSplit:
			var err error
			summaries, err = s.orders.FindSummaries(ctx, u, input.Search, input.Page)
			return err
		case ports.StrategyProjectionFlat:
			var err error
			summaries, err = s.orders.FindSummariesFlat(ctx, u, input.Search)
			return err
		default:
			return errors.New("unknown query strategy: " + string(strategy))
		}
	})
	if err != nil {
		return nil, mapError(err)
	}
	return summaries, nil
}

// summarize resolves whatever the strategy left lazy. On a lazily loaded
// aggregate this is exactly where the N+1 round trips happen, one visible
// Resolve call at a time.
func summarize(ctx context.Context, order *domain.Order) (*ports.OrderSummary, error) {
	member, err := order.Member.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	delivery, err := order.Delivery.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	items, err := order.Items.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	summary := &ports.OrderSummary{
		OrderID:    order.ID,
		MemberName: member.Name,
		OrderDate:  order.OrderDate,
		Status:     order.Status,
		City:       delivery.Address.City(),
		Street:     delivery.Address.Street(),
		Zipcode:    delivery.Address.Zipcode(),
		Items:      make([]ports.OrderLine, 0, len(items)),
	}
	for _, line := range items {
		item, err := line.Item.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		summary.Items = append(summary.Items, ports.OrderLine{
			ItemName:   item.Name,
			OrderPrice: line.OrderPrice,
			Count:      line.Count,
		})
	}
	return summary, nil
}

func summarizeAll(ctx context.Context, orders []*domain.Order) ([]ports.OrderSummary, error) {
	summaries := make([]ports.OrderSummary, 0, len(orders))
	for _, order := range orders {
		summary, err := summarize(ctx, order)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}
