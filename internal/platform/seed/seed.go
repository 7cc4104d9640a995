// Package seed loads the demo dataset used by the order listing walkthrough:
// two members, four books, four orders with two lines each.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	catalogdomain "github.com/shopkit-go/shop-api-server/internal/domains/catalog/domain"
	catalogports "github.com/shopkit-go/shop-api-server/internal/domains/catalog/ports"
	membersdomain "github.com/shopkit-go/shop-api-server/internal/domains/members/domain"
	membersports "github.com/shopkit-go/shop-api-server/internal/domains/members/ports"
	ordersdomain "github.com/shopkit-go/shop-api-server/internal/domains/orders/domain"
	ordersports "github.com/shopkit-go/shop-api-server/internal/domains/orders/ports"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

// Loader seeds demo data through the domain layer, so every invariant that
// guards production writes also guards the seed.
type Loader struct {
	uow     unitofwork.Manager
	members membersports.Repository
	catalog catalogports.Repository
	orders  ordersports.Repository
	logger  *slog.Logger
}

// NewLoader wires the repositories used for seeding.
func NewLoader(uow unitofwork.Manager, members membersports.Repository, catalog catalogports.Repository, orders ordersports.Repository, logger *slog.Logger) *Loader {
	return &Loader{uow: uow, members: members, catalog: catalog, orders: orders, logger: logger}
}

// Run inserts the demo dataset once. A non-empty members table means a
// previous run already seeded; nothing is written then.
func (l *Loader) Run(ctx context.Context) error {
	var seeded bool
	err := l.uow.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		existing, err := l.members.List(ctx, u)
		if err != nil {
			return err
		}
		seeded = len(existing) > 0
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed precheck: %w", err)
	}
	if seeded {
		if l.logger != nil {
			l.logger.Info("demo data already present, skipping seed")
		}
		return nil
	}

	err = l.uow.ReadWrite(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		if err := l.seedFirstMember(ctx, u); err != nil {
			return err
		}
		return l.seedSecondMember(ctx, u)
	})
	if err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}
	if l.logger != nil {
		l.logger.Info("demo data seeded")
	}
	return nil
}

func (l *Loader) seedFirstMember(ctx context.Context, u unitofwork.UnitOfWork) error {
	member, err := l.registerMember(ctx, u, "userA", "Seoul", "1", "1111")
	if err != nil {
		return err
	}
	book1, err := l.createBook(ctx, u, "JPA1 BOOK", 10000, 100, "Kim", "11111")
	if err != nil {
		return err
	}
	book2, err := l.createBook(ctx, u, "JPA2 BOOK", 20000, 100, "Kim", "22222")
	if err != nil {
		return err
	}
	return l.placeOrder(ctx, u, member, []*catalogdomain.Item{book1, book2}, []int{1, 2})
}

func (l *Loader) seedSecondMember(ctx context.Context, u unitofwork.UnitOfWork) error {
	member, err := l.registerMember(ctx, u, "userB", "Jinju", "2", "2222")
	if err != nil {
		return err
	}
	book1, err := l.createBook(ctx, u, "SPRING1 BOOK", 20000, 200, "Lee", "33333")
	if err != nil {
		return err
	}
	book2, err := l.createBook(ctx, u, "SPRING2 BOOK", 40000, 300, "Lee", "44444")
	if err != nil {
		return err
	}
	return l.placeOrder(ctx, u, member, []*catalogdomain.Item{book1, book2}, []int{3, 4})
}

func (l *Loader) registerMember(ctx context.Context, u unitofwork.UnitOfWork, name, city, street, zipcode string) (*membersdomain.Member, error) {
	member, err := membersdomain.NewMember(name, membersdomain.NewAddress(city, street, zipcode))
	if err != nil {
		return nil, err
	}
	if _, err := l.members.Save(ctx, u, member); err != nil {
		return nil, err
	}
	return member, nil
}

func (l *Loader) createBook(ctx context.Context, u unitofwork.UnitOfWork, name string, price int64, stock int, author, isbn string) (*catalogdomain.Item, error) {
	book, err := catalogdomain.NewBook(name, price, stock, author, isbn)
	if err != nil {
		return nil, err
	}
	if _, err := l.catalog.Save(ctx, u, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (l *Loader) placeOrder(ctx context.Context, u unitofwork.UnitOfWork, member *membersdomain.Member, items []*catalogdomain.Item, counts []int) error {
	lines := make([]*ordersdomain.OrderItem, 0, len(items))
	for i, item := range items {
		line, err := ordersdomain.NewOrderItem(item, item.Price, counts[i])
		if err != nil {
			return err
		}
		lines = append(lines, line)
	}
	delivery := ordersdomain.NewDelivery(member.Address)
	order, err := ordersdomain.NewOrder(member, delivery, lines...)
	if err != nil {
		return err
	}
	// NewOrderItem decremented stock; write the items back before the order.
	for _, item := range items {
		if _, err := l.catalog.Save(ctx, u, item); err != nil {
			return err
		}
	}
	if _, err := l.orders.Save(ctx, u, order); err != nil {
		return err
	}
	return nil
}
