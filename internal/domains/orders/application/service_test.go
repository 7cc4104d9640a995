package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	catalogmemory "github.com/shopkit-go/shop-api-server/internal/domains/catalog/adapters/memory"
	catalogdomain "github.com/shopkit-go/shop-api-server/internal/domains/catalog/domain"
	membersmemory "github.com/shopkit-go/shop-api-server/internal/domains/members/adapters/memory"
	membersdomain "github.com/shopkit-go/shop-api-server/internal/domains/members/domain"
	membersports "github.com/shopkit-go/shop-api-server/internal/domains/members/ports"
	ordersmemory "github.com/shopkit-go/shop-api-server/internal/domains/orders/adapters/memory"
	"github.com/shopkit-go/shop-api-server/internal/domains/orders/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/orders/ports"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

type fixture struct {
	service *Service
	members *membersmemory.Repository
	catalog *catalogmemory.Repository
	orders  *ordersmemory.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	members := membersmemory.NewRepository()
	catalog := catalogmemory.NewRepository()
	orders := ordersmemory.NewRepository(members, catalog)
	return &fixture{
		service: NewService(unitofwork.NewNopManager(), orders, members, catalog),
		members: members,
		catalog: catalog,
		orders:  orders,
	}
}

func (f *fixture) addMember(t *testing.T, name, city string) int64 {
	t.Helper()
	member, err := membersdomain.NewMember(name, membersdomain.NewAddress(city, "1", "1111"))
	require.NoError(t, err)
	id, err := f.members.Save(context.Background(), nil, member)
	require.NoError(t, err)
	return id
}

func (f *fixture) addBook(t *testing.T, name string, price int64, stock int) int64 {
	t.Helper()
	book, err := catalogdomain.NewBook(name, price, stock, "author", "isbn")
	require.NoError(t, err)
	id, err := f.catalog.Save(context.Background(), nil, book)
	require.NoError(t, err)
	return id
}

func (f *fixture) stockOf(t *testing.T, itemID int64) int {
	t.Helper()
	item, err := f.catalog.GetByID(context.Background(), nil, itemID)
	require.NoError(t, err)
	return item.StockQuantity
}

func TestPlaceOrder_PersistsAggregateAndDecrementsStock(t *testing.T) {
	f := newFixture(t)
	memberID := f.addMember(t, "userA", "Seoul")
	bookID := f.addBook(t, "JPA1 BOOK", 10000, 100)

	orderID, err := f.service.PlaceOrder(context.Background(), ports.PlaceOrderInput{
		MemberID: memberID,
		ItemID:   bookID,
		Count:    2,
	})
	require.NoError(t, err)
	require.NotZero(t, orderID)
	require.Equal(t, 98, f.stockOf(t, bookID))

	summary, err := f.service.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	require.Equal(t, "userA", summary.MemberName)
	require.Equal(t, domain.StatusOrder, summary.Status)
	require.Equal(t, "Seoul", summary.City)
	require.Len(t, summary.Items, 1)
	require.Equal(t, "JPA1 BOOK", summary.Items[0].ItemName)
	require.Equal(t, int64(10000), summary.Items[0].OrderPrice)
	require.Equal(t, 2, summary.Items[0].Count)
}

func TestPlaceOrder_InsufficientStockPersistsNothing(t *testing.T) {
	f := newFixture(t)
	memberID := f.addMember(t, "userA", "Seoul")
	bookID := f.addBook(t, "JPA1 BOOK", 10000, 1)

	_, err := f.service.PlaceOrder(context.Background(), ports.PlaceOrderInput{
		MemberID: memberID,
		ItemID:   bookID,
		Count:    2,
	})
	require.ErrorIs(t, err, catalogdomain.ErrInsufficientStock)
	require.Equal(t, 1, f.stockOf(t, bookID))

	summaries, err := f.service.Search(context.Background(), ports.SearchInput{})
	require.NoError(t, err)
	require.Empty(t, summaries)
}

func TestPlaceOrder_InvalidCount(t *testing.T) {
	f := newFixture(t)
	memberID := f.addMember(t, "userA", "Seoul")
	bookID := f.addBook(t, "JPA1 BOOK", 10000, 100)

	_, err := f.service.PlaceOrder(context.Background(), ports.PlaceOrderInput{
		MemberID: memberID,
		ItemID:   bookID,
		Count:    0,
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestPlaceOrder_UnknownMember(t *testing.T) {
	f := newFixture(t)
	bookID := f.addBook(t, "JPA1 BOOK", 10000, 100)

	_, err := f.service.PlaceOrder(context.Background(), ports.PlaceOrderInput{
		MemberID: 42,
		ItemID:   bookID,
		Count:    1,
	})
	require.ErrorIs(t, err, membersports.ErrNotFound)
}

func TestCancelOrder_RestoresStockAndStatus(t *testing.T) {
	f := newFixture(t)
	memberID := f.addMember(t, "userA", "Seoul")
	book1 := f.addBook(t, "JPA1 BOOK", 10000, 100)
	book2 := f.addBook(t, "JPA2 BOOK", 20000, 100)

	order1, err := f.service.PlaceOrder(context.Background(), ports.PlaceOrderInput{MemberID: memberID, ItemID: book1, Count: 1})
	require.NoError(t, err)
	order2, err := f.service.PlaceOrder(context.Background(), ports.PlaceOrderInput{MemberID: memberID, ItemID: book2, Count: 2})
	require.NoError(t, err)
	require.Equal(t, 99, f.stockOf(t, book1))
	require.Equal(t, 98, f.stockOf(t, book2))

	require.NoError(t, f.service.CancelOrder(context.Background(), order1))
	require.NoError(t, f.service.CancelOrder(context.Background(), order2))
	require.Equal(t, 100, f.stockOf(t, book1))
	require.Equal(t, 100, f.stockOf(t, book2))

	summary, err := f.service.GetOrder(context.Background(), order1)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancel, summary.Status)
}

func TestCancelOrder_DuplicateItemLinesRestoreFullStock(t *testing.T) {
	f := newFixture(t)
	memberID := f.addMember(t, "userA", "Seoul")
	bookID := f.addBook(t, "JPA1 BOOK", 10000, 100)
	ctx := context.Background()

	// Two lines of the same item in one order. Placement decrements through
	// one instance; cancellation resolves each line independently, so the
	// restore must be summed per item, not written per line.
	member, err := f.members.GetByID(ctx, nil, memberID)
	require.NoError(t, err)
	book, err := f.catalog.GetByID(ctx, nil, bookID)
	require.NoError(t, err)
	line1, err := domain.NewOrderItem(book, book.Price, 1)
	require.NoError(t, err)
	line2, err := domain.NewOrderItem(book, book.Price, 2)
	require.NoError(t, err)
	_, err = f.catalog.Save(ctx, nil, book)
	require.NoError(t, err)

	order, err := domain.NewOrder(member, domain.NewDelivery(member.Address), line1, line2)
	require.NoError(t, err)
	orderID, err := f.orders.Save(ctx, nil, order)
	require.NoError(t, err)
	require.Equal(t, 97, f.stockOf(t, bookID))

	require.NoError(t, f.service.CancelOrder(ctx, orderID))
	require.Equal(t, 100, f.stockOf(t, bookID))
}

func TestCancelOrder_TwiceRestoresStockOnce(t *testing.T) {
	f := newFixture(t)
	memberID := f.addMember(t, "userA", "Seoul")
	bookID := f.addBook(t, "JPA1 BOOK", 10000, 100)

	orderID, err := f.service.PlaceOrder(context.Background(), ports.PlaceOrderInput{MemberID: memberID, ItemID: bookID, Count: 3})
	require.NoError(t, err)
	require.NoError(t, f.service.CancelOrder(context.Background(), orderID))

	err = f.service.CancelOrder(context.Background(), orderID)
	require.ErrorIs(t, err, domain.ErrAlreadyCancelled)
	require.Equal(t, 100, f.stockOf(t, bookID))
}

func TestSearch_FiltersByStatusAndMemberName(t *testing.T) {
	f := newFixture(t)
	memberA := f.addMember(t, "userA", "Seoul")
	memberB := f.addMember(t, "userB", "Jinju")
	bookID := f.addBook(t, "JPA1 BOOK", 10000, 100)

	orderA, err := f.service.PlaceOrder(context.Background(), ports.PlaceOrderInput{MemberID: memberA, ItemID: bookID, Count: 1})
	require.NoError(t, err)
	_, err = f.service.PlaceOrder(context.Background(), ports.PlaceOrderInput{MemberID: memberB, ItemID: bookID, Count: 1})
	require.NoError(t, err)
	require.NoError(t, f.service.CancelOrder(context.Background(), orderA))

	cancelled := domain.StatusCancel
	summaries, err := f.service.Search(context.Background(), ports.SearchInput{
		Search: ports.Search{Status: &cancelled},
	})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, orderA, summaries[0].OrderID)

	active := domain.StatusOrder
	summaries, err = f.service.Search(context.Background(), ports.SearchInput{
		Search: ports.Search{Status: &active, MemberName: "serB"},
	})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, "userB", summaries[0].MemberName)
}

func TestSearch_AllStrategiesAgree(t *testing.T) {
	f := newFixture(t)
	memberA := f.addMember(t, "userA", "Seoul")
	memberB := f.addMember(t, "userB", "Jinju")
	book1 := f.addBook(t, "JPA1 BOOK", 10000, 100)
	book2 := f.addBook(t, "JPA2 BOOK", 20000, 100)

	_, err := f.service.PlaceOrder(context.Background(), ports.PlaceOrderInput{MemberID: memberA, ItemID: book1, Count: 1})
	require.NoError(t, err)
	_, err = f.service.PlaceOrder(context.Background(), ports.PlaceOrderInput{MemberID: memberB, ItemID: book2, Count: 2})
	require.NoError(t, err)

	baseline, err := f.service.Search(context.Background(), ports.SearchInput{Strategy: ports.StrategyLazy})
	require.NoError(t, err)
	require.Len(t, baseline, 2)

	for _, strategy := range ports.Strategies[1:] {
		summaries, err := f.service.Search(context.Background(), ports.SearchInput{Strategy: strategy})
		require.NoError(t, err, "strategy %s", strategy)
		require.Equal(t, baseline, summaries, "strategy %s", strategy)
	}
}

func TestSearch_CollectionJoinStrategiesRejectPagination(t *testing.T) {
	f := newFixture(t)
	page := &ports.Page{Offset: 0, Limit: 10}

	for _, strategy := range []ports.Strategy{ports.StrategyJoinCollection, ports.StrategyProjectionFlat} {
		_, err := f.service.Search(context.Background(), ports.SearchInput{Strategy: strategy, Page: page})
		require.ErrorIs(t, err, ports.ErrUnsupportedQueryShape, "strategy %s", strategy)
	}
}

func TestSearch_PagedWindow(t *testing.T) {
	f := newFixture(t)
	memberID := f.addMember(t, "userA", "Seoul")
	bookID := f.addBook(t, "JPA1 BOOK", 10000, 100)

	var orderIDs []int64
	for range 3 {
		id, err := f.service.PlaceOrder(context.Background(), ports.PlaceOrderInput{MemberID: memberID, ItemID: bookID, Count: 1})
		require.NoError(t, err)
		orderIDs = append(orderIDs, id)
	}

	summaries, err := f.service.Search(context.Background(), ports.SearchInput{
		Strategy: ports.StrategyJoinToOne,
		Page:     &ports.Page{Offset: 1, Limit: 1},
	})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, orderIDs[1], summaries[0].OrderID)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.GetOrder(context.Background(), 404)
	require.ErrorIs(t, err, ports.ErrNotFound)
}
