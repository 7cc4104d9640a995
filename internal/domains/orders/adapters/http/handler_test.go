package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	catalogmemory "github.com/shopkit-go/shop-api-server/internal/domains/catalog/adapters/memory"
	catalogdomain "github.com/shopkit-go/shop-api-server/internal/domains/catalog/domain"
	membersmemory "github.com/shopkit-go/shop-api-server/internal/domains/members/adapters/memory"
	membersdomain "github.com/shopkit-go/shop-api-server/internal/domains/members/domain"
	ordersmemory "github.com/shopkit-go/shop-api-server/internal/domains/orders/adapters/memory"
	ordersworkflows "github.com/shopkit-go/shop-api-server/internal/domains/orders/adapters/workflows"
	ordersapp "github.com/shopkit-go/shop-api-server/internal/domains/orders/application"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

func setupRouter(t *testing.T) (*gin.Engine, int64, int64) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	members := membersmemory.NewRepository()
	catalog := catalogmemory.NewRepository()
	orders := ordersmemory.NewRepository(members, catalog)
	service := ordersapp.NewService(unitofwork.NewNopManager(), orders, members, catalog)

	member, err := membersdomain.NewMember("userA", membersdomain.NewAddress("Seoul", "1", "1111"))
	require.NoError(t, err)
	memberID, err := members.Save(context.Background(), nil, member)
	require.NoError(t, err)

	book, err := catalogdomain.NewBook("JPA1 BOOK", 10000, 100, "Kim", "11111")
	require.NoError(t, err)
	bookID, err := catalog.Save(context.Background(), nil, book)
	require.NoError(t, err)

	router := gin.New()
	NewHandler(service, ordersworkflows.NewInlineOrderWorkflows(service)).Register(router)
	return router, memberID, bookID
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func problemType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var problem struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem.Type
}

func TestPlace_CreatesOrder(t *testing.T) {
	router, memberID, bookID := setupRouter(t)

	rec := postJSON(t, router, "/api/orders", gin.H{"memberId": memberID, "itemId": bookID, "count": 2})
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotZero(t, body.ID)
}

func TestPlace_UnknownMemberReturnsNotFound(t *testing.T) {
	router, _, bookID := setupRouter(t)

	rec := postJSON(t, router, "/api/orders", gin.H{"memberId": 42, "itemId": bookID, "count": 1})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "/problems/not-found", problemType(t, rec))
}

func TestPlace_UnknownItemReturnsNotFound(t *testing.T) {
	router, memberID, _ := setupRouter(t)

	rec := postJSON(t, router, "/api/orders", gin.H{"memberId": memberID, "itemId": 42, "count": 1})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "/problems/not-found", problemType(t, rec))
}

func TestPlace_InsufficientStockReturnsConflict(t *testing.T) {
	router, memberID, bookID := setupRouter(t)

	rec := postJSON(t, router, "/api/orders", gin.H{"memberId": memberID, "itemId": bookID, "count": 101})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "/problems/conflict", problemType(t, rec))
}

func TestSearch_RejectsInvalidPaging(t *testing.T) {
	router, _, _ := setupRouter(t)

	for _, query := range []string{"offset=-1", "limit=0", "limit=-5", "offset=x"} {
		req := httptest.NewRequest(http.MethodGet, "/api/orders?"+query, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}
