package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	catalogmemory "github.com/shopkit-go/shop-api-server/internal/domains/catalog/adapters/memory"
	"github.com/shopkit-go/shop-api-server/internal/domains/catalog/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/catalog/ports"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

func newService() *Service {
	return NewService(unitofwork.NewNopManager(), catalogmemory.NewRepository())
}

func createBook(t *testing.T, svc *Service, name string, price int64, stock int) int64 {
	t.Helper()
	id, err := svc.CreateBook(context.Background(), ports.CreateBookInput{
		Name:          name,
		Price:         price,
		StockQuantity: stock,
		Author:        "Kim",
		ISBN:          "11111",
	})
	require.NoError(t, err)
	return id
}

func TestCreateBook_Success(t *testing.T) {
	svc := newService()
	id := createBook(t, svc, "JPA1 BOOK", 10000, 100)

	item, err := svc.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, domain.KindBook, item.Kind)
	require.Equal(t, "JPA1 BOOK", item.Name)
	require.Equal(t, int64(10000), item.Price)
	require.Equal(t, 100, item.StockQuantity)
	require.NotNil(t, item.Book)
	require.Equal(t, "Kim", item.Book.Author)
}

func TestCreateBook_NegativePrice(t *testing.T) {
	svc := newService()

	_, err := svc.CreateBook(context.Background(), ports.CreateBookInput{Name: "JPA1 BOOK", Price: -1})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateItem_LeavesStockAlone(t *testing.T) {
	svc := newService()
	id := createBook(t, svc, "JPA1 BOOK", 10000, 100)

	err := svc.UpdateItem(context.Background(), ports.UpdateItemInput{
		ID:     id,
		Name:   "JPA1 BOOK 2nd",
		Price:  12000,
		Author: "Kim",
		ISBN:   "22222",
	})
	require.NoError(t, err)

	item, err := svc.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "JPA1 BOOK 2nd", item.Name)
	require.Equal(t, int64(12000), item.Price)
	require.Equal(t, 100, item.StockQuantity)
}

func TestAdjustStock_AddAndRemove(t *testing.T) {
	svc := newService()
	id := createBook(t, svc, "JPA1 BOOK", 10000, 10)

	require.NoError(t, svc.AddStock(context.Background(), id, 5))
	require.NoError(t, svc.RemoveStock(context.Background(), id, 3))

	item, err := svc.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 12, item.StockQuantity)
}

func TestRemoveStock_InsufficientLeavesStockUnchanged(t *testing.T) {
	svc := newService()
	id := createBook(t, svc, "JPA1 BOOK", 10000, 2)

	err := svc.RemoveStock(context.Background(), id, 3)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	item, err := svc.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 2, item.StockQuantity)
}

func TestGetByID_NotFound(t *testing.T) {
	svc := newService()

	_, err := svc.GetByID(context.Background(), 404)
	require.ErrorIs(t, err, ports.ErrNotFound)
}
