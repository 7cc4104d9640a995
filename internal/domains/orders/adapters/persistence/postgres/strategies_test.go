package postgres

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	catalogpg "github.com/shopkit-go/shop-api-server/internal/domains/catalog/adapters/persistence/postgres"
	catalogdomain "github.com/shopkit-go/shop-api-server/internal/domains/catalog/domain"
	memberspg "github.com/shopkit-go/shop-api-server/internal/domains/members/adapters/persistence/postgres"
	membersdomain "github.com/shopkit-go/shop-api-server/internal/domains/members/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/orders/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/orders/ports"
	"github.com/shopkit-go/shop-api-server/internal/platform/migrations"
	platformuow "github.com/shopkit-go/shop-api-server/internal/platform/uow"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

// setupSQLite opens a file-backed SQLite database so the full query engine
// runs against a real SQL engine without a container. TranslateError makes
// the driver's unique violations come back as gorm.ErrDuplicatedKey, matching
// what the adapters expect from the pgx path.
func setupSQLite(t *testing.T) *platformuow.Manager {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "shop.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})
	require.NoError(t, migrations.Run(db))
	return platformuow.NewManager(db, platformuow.WithoutReadOnlyTxOptions())
}

// seedOrders writes two members, four books, and two orders with two lines
// each. Order 1 belongs to userA (JPA1 x1, JPA2 x2), order 2 to userB
// (SPRING1 x3, SPRING2 x4).
func seedOrders(t *testing.T, manager *platformuow.Manager, repo *Repository) {
	t.Helper()
	ctx := context.Background()
	members := memberspg.NewRepository()
	catalog := catalogpg.NewRepository()

	err := manager.ReadWrite(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		userA, err := membersdomain.NewMember("userA", membersdomain.NewAddress("Seoul", "1", "1111"))
		require.NoError(t, err)
		userA.ID, err = members.Save(ctx, u, userA)
		require.NoError(t, err)

		userB, err := membersdomain.NewMember("userB", membersdomain.NewAddress("Jinju", "2", "2222"))
		require.NoError(t, err)
		userB.ID, err = members.Save(ctx, u, userB)
		require.NoError(t, err)

		placeOrder := func(member *membersdomain.Member, specs [][3]any) {
			lines := make([]*domain.OrderItem, 0, len(specs))
			for _, spec := range specs {
				book, err := catalogdomain.NewBook(spec[0].(string), int64(spec[1].(int)), 100, "Kim", "11111")
				require.NoError(t, err)
				book.ID, err = catalog.Save(ctx, u, book)
				require.NoError(t, err)
				line, err := domain.NewOrderItem(book, book.Price, spec[2].(int))
				require.NoError(t, err)
				lines = append(lines, line)
			}
			order, err := domain.NewOrder(member, domain.NewDelivery(member.Address), lines...)
			require.NoError(t, err)
			_, err = repo.Save(ctx, u, order)
			require.NoError(t, err)
		}
		placeOrder(userA, [][3]any{{"JPA1 BOOK", 10000, 1}, {"JPA2 BOOK", 20000, 2}})
		placeOrder(userB, [][3]any{{"SPRING1 BOOK", 20000, 3}, {"SPRING2 BOOK", 40000, 4}})
		return nil
	})
	require.NoError(t, err)
}

// touchEverything walks the whole object graph the way a view renderer would,
// forcing every unresolved association to load.
func touchEverything(t *testing.T, ctx context.Context, orders []*domain.Order) {
	t.Helper()
	for _, order := range orders {
		_, err := order.Member.Resolve(ctx)
		require.NoError(t, err)
		_, err = order.Delivery.Resolve(ctx)
		require.NoError(t, err)
		lines, err := order.Items.Resolve(ctx)
		require.NoError(t, err)
		for _, line := range lines {
			_, err := line.Item.Resolve(ctx)
			require.NoError(t, err)
		}
	}
}

func TestFindAll_LazyWalkRoundTrips(t *testing.T) {
	manager := setupSQLite(t)
	repo := NewRepository()
	seedOrders(t, manager, repo)
	ctx := context.Background()

	err := manager.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		orders, err := repo.FindAll(ctx, u, ports.Search{}, nil)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		require.Less(t, orders[0].ID, orders[1].ID)
		require.False(t, orders[0].Member.IsResolved())
		require.False(t, orders[0].Items.IsResolved())

		touchEverything(t, ctx, orders)

		// 1 root + per order: member, delivery, lines + per line: item.
		require.Equal(t, int64(11), u.Statements())
		return nil
	})
	require.NoError(t, err)
}

func TestFindAll_ResolveIsMemoized(t *testing.T) {
	manager := setupSQLite(t)
	repo := NewRepository()
	seedOrders(t, manager, repo)
	ctx := context.Background()

	err := manager.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		orders, err := repo.FindAll(ctx, u, ports.Search{}, nil)
		require.NoError(t, err)

		first, err := orders[0].Member.Resolve(ctx)
		require.NoError(t, err)
		again, err := orders[0].Member.Resolve(ctx)
		require.NoError(t, err)
		require.Same(t, first, again)
		require.Equal(t, int64(2), u.Statements())
		return nil
	})
	require.NoError(t, err)
}

func TestFindAllWithMemberDelivery_RoundTrips(t *testing.T) {
	manager := setupSQLite(t)
	repo := NewRepository()
	seedOrders(t, manager, repo)
	ctx := context.Background()

	err := manager.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		orders, err := repo.FindAllWithMemberDelivery(ctx, u, ports.Search{}, nil)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		require.True(t, orders[0].Member.IsResolved())
		require.True(t, orders[0].Delivery.IsResolved())
		require.False(t, orders[0].Items.IsResolved())

		member, err := orders[0].Member.Value()
		require.NoError(t, err)
		require.Equal(t, "userA", member.Name)

		touchEverything(t, ctx, orders)

		// 1 root + per order: lines + per line: item.
		require.Equal(t, int64(7), u.Statements())
		return nil
	})
	require.NoError(t, err)
}

func TestFindAllWithMemberDelivery_PagedWindow(t *testing.T) {
	manager := setupSQLite(t)
	repo := NewRepository()
	seedOrders(t, manager, repo)
	ctx := context.Background()

	err := manager.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		orders, err := repo.FindAllWithMemberDelivery(ctx, u, ports.Search{}, &ports.Page{Offset: 1, Limit: 1})
		require.NoError(t, err)
		require.Len(t, orders, 1)

		member, err := orders[0].Member.Value()
		require.NoError(t, err)
		require.Equal(t, "userB", member.Name)
		return nil
	})
	require.NoError(t, err)
}

func TestFindAllWithItems_SingleQuery(t *testing.T) {
	manager := setupSQLite(t)
	repo := NewRepository()
	seedOrders(t, manager, repo)
	ctx := context.Background()

	err := manager.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		orders, err := repo.FindAllWithItems(ctx, u, ports.Search{})
		require.NoError(t, err)

		// Four joined rows collapse back into two orders.
		require.Len(t, orders, 2)
		require.Less(t, orders[0].ID, orders[1].ID)
		for _, order := range orders {
			require.True(t, order.Items.IsResolved())
			lines, err := order.Items.Items()
			require.NoError(t, err)
			require.Len(t, lines, 2)
			for _, line := range lines {
				require.True(t, line.Item.IsResolved())
			}
		}
		require.Equal(t, int64(1), u.Statements())

		total, err := orders[0].TotalPrice()
		require.NoError(t, err)
		require.Equal(t, int64(10000*1+20000*2), total)
		return nil
	})
	require.NoError(t, err)
}

func TestFindAllBatched_RoundTrips(t *testing.T) {
	manager := setupSQLite(t)
	repo := NewRepository()
	seedOrders(t, manager, repo)
	ctx := context.Background()

	err := manager.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		orders, err := repo.FindAllBatched(ctx, u, ports.Search{}, nil, 100)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		for _, order := range orders {
			require.True(t, order.Items.IsResolved())
		}

		// 1 root + 1 grouped line query; both orders fit one batch.
		require.Equal(t, int64(2), u.Statements())
		return nil
	})
	require.NoError(t, err)

	err = manager.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		_, err := repo.FindAllBatched(ctx, u, ports.Search{}, nil, 1)
		require.NoError(t, err)

		// Batch size one forces a line query per order.
		require.Equal(t, int64(3), u.Statements())
		return nil
	})
	require.NoError(t, err)
}

func TestFindSummaries_TwoRoundTrips(t *testing.T) {
	manager := setupSQLite(t)
	repo := NewRepository()
	seedOrders(t, manager, repo)
	ctx := context.Background()

	err := manager.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		summaries, err := repo.FindSummaries(ctx, u, ports.Search{}, nil)
		require.NoError(t, err)
		require.Equal(t, int64(2), u.Statements())

		require.Len(t, summaries, 2)
		require.Equal(t, "userA", summaries[0].MemberName)
		require.Equal(t, "Seoul", summaries[0].City)
		require.Equal(t, domain.StatusOrder, summaries[0].Status)
		require.Equal(t, []ports.OrderLine{
			{ItemName: "JPA1 BOOK", OrderPrice: 10000, Count: 1},
			{ItemName: "JPA2 BOOK", OrderPrice: 20000, Count: 2},
		}, summaries[0].Items)
		require.Equal(t, []ports.OrderLine{
			{ItemName: "SPRING1 BOOK", OrderPrice: 20000, Count: 3},
			{ItemName: "SPRING2 BOOK", OrderPrice: 40000, Count: 4},
		}, summaries[1].Items)
		return nil
	})
	require.NoError(t, err)
}

func TestFindSummariesFlat_SingleQuery(t *testing.T) {
	manager := setupSQLite(t)
	repo := NewRepository()
	seedOrders(t, manager, repo)
	ctx := context.Background()

	err := manager.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		flat, err := repo.FindSummariesFlat(ctx, u, ports.Search{})
		require.NoError(t, err)
		require.Equal(t, int64(1), u.Statements())

		split, err := repo.FindSummaries(ctx, u, ports.Search{}, nil)
		require.NoError(t, err)
		require.Equal(t, split, flat)
		return nil
	})
	require.NoError(t, err)
}

func TestSearchPredicates(t *testing.T) {
	manager := setupSQLite(t)
	repo := NewRepository()
	seedOrders(t, manager, repo)
	ctx := context.Background()

	err := manager.ReadWrite(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		order, err := repo.GetByID(ctx, u, 1)
		require.NoError(t, err)
		require.NoError(t, order.Cancel(ctx))
		return repo.UpdateStatus(ctx, u, order)
	})
	require.NoError(t, err)

	cancelled := domain.StatusCancel
	err = manager.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		byStatus, err := repo.FindSummaries(ctx, u, ports.Search{Status: &cancelled}, nil)
		require.NoError(t, err)
		require.Len(t, byStatus, 1)
		require.Equal(t, int64(1), byStatus[0].OrderID)

		byName, err := repo.FindSummaries(ctx, u, ports.Search{MemberName: "serB"}, nil)
		require.NoError(t, err)
		require.Len(t, byName, 1)
		require.Equal(t, "userB", byName[0].MemberName)

		both, err := repo.FindSummaries(ctx, u, ports.Search{Status: &cancelled, MemberName: "serB"}, nil)
		require.NoError(t, err)
		require.Empty(t, both)
		return nil
	})
	require.NoError(t, err)
}

func TestGetByID_NotFound(t *testing.T) {
	manager := setupSQLite(t)
	repo := NewRepository()
	ctx := context.Background()

	err := manager.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		_, err := repo.GetByID(ctx, u, 404)
		require.ErrorIs(t, err, ports.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestLazyRef_DiesWithUnitOfWork(t *testing.T) {
	manager := setupSQLite(t)
	repo := NewRepository()
	seedOrders(t, manager, repo)
	ctx := context.Background()

	var escaped *domain.Order
	err := manager.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		order, err := repo.GetByID(ctx, u, 1)
		require.NoError(t, err)
		escaped = order
		return nil
	})
	require.NoError(t, err)

	// The lazy member reference is bound to the finished transaction; touching
	// it outside the unit of work fails instead of silently opening a session.
	_, err = escaped.Member.Resolve(ctx)
	require.Error(t, err)
}

func TestSaveAndGetByID_RoundTrip(t *testing.T) {
	manager := setupSQLite(t)
	repo := NewRepository()
	seedOrders(t, manager, repo)
	ctx := context.Background()

	err := manager.ReadOnly(ctx, func(ctx context.Context, u unitofwork.UnitOfWork) error {
		order, err := repo.GetByID(ctx, u, 2)
		require.NoError(t, err)
		require.Equal(t, domain.StatusOrder, order.Status)

		member, err := order.Member.Resolve(ctx)
		require.NoError(t, err)
		require.Equal(t, "userB", member.Name)
		require.Equal(t, "Jinju", member.Address.City())

		delivery, err := order.Delivery.Resolve(ctx)
		require.NoError(t, err)
		require.Equal(t, domain.DeliveryReady, delivery.Status)
		require.Same(t, order, delivery.Order())

		lines, err := order.Items.Resolve(ctx)
		require.NoError(t, err)
		require.Len(t, lines, 2)
		require.Equal(t, 3, lines[0].Count)
		require.Same(t, order, lines[0].Order())
		return nil
	})
	require.NoError(t, err)
}
