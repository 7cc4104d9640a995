package ports

import (
	"context"
	"errors"
	"time"

	"github.com/shopkit-go/shop-api-server/internal/domains/orders/domain"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrUnsupportedQueryShape rejects pagination combined with a strategy
	// that joins the one-to-many item collection: joined rows multiply per
	// item, so offset/limit would page over rows, not orders. The rejection
	// happens before any query is issued.
	ErrUnsupportedQueryShape = errors.New("collection-join strategies cannot paginate")
)

// MaxResults caps unpaged result sets so an empty filter cannot pull the
// whole table.
const MaxResults = 1000

// DefaultLimit applies when a page is requested without an explicit limit.
const DefaultLimit = 100

// Search filters orders; both predicates combine with AND. A zero Search
// matches everything up to MaxResults.
type Search struct {
	Status     *domain.Status
	MemberName string // contains-match on the member's name
}

// Page is an explicit offset/limit window. A nil *Page means unpaged.
type Page struct {
	Offset int
	Limit  int
}

// Normalize clamps the window to the documented bounds.
func (p Page) Normalize() Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxResults {
		p.Limit = MaxResults
	}
	return p
}

// Strategy selects one of the query plans for materializing orders. All
// strategies answer the same logical query; they differ in round trips,
// pagination support, and row duplication. Callers pick explicitly.
type Strategy string

const (
	// StrategyLazy issues the root query only and leaves member, delivery,
	// and items as lazy placeholders: 1 + N + N + N·M round trips when a
	// caller touches everything. Pageable.
	StrategyLazy Strategy = "lazy"
	// StrategyJoinToOne joins member and delivery into the root query; the
	// item collection still resolves per order. Pageable.
	StrategyJoinToOne Strategy = "join-to-one"
	// StrategyJoinCollection joins every level in a single query and
	// deduplicates the multiplied order rows in memory. Not pageable.
	StrategyJoinCollection Strategy = "join-collection"
	// StrategyBatch joins to-one references and resolves item collections
	// in grouped IN-queries: 1 + ceil(N/batchSize) round trips. Pageable.
	StrategyBatch Strategy = "batch"
	// StrategyProjectionSplit bypasses the aggregate: one root projection
	// query plus one item query grouped client side. Pageable on the root.
	StrategyProjectionSplit Strategy = "projection-split"
	// StrategyProjectionFlat bypasses the aggregate with a single flat join
	// where each row is one order line; order-level fields travel once per
	// line and the caller groups by order identity. Not pageable.
	StrategyProjectionFlat Strategy = "projection-flat"
)

// Strategies lists every supported value, in documentation order.
var Strategies = []Strategy{
	StrategyLazy,
	StrategyJoinToOne,
	StrategyJoinCollection,
	StrategyBatch,
	StrategyProjectionSplit,
	StrategyProjectionFlat,
}

// SupportsPagination reports whether the strategy can honor an offset/limit
// window without breaking result correctness.
func (s Strategy) SupportsPagination() bool {
	switch s {
	case StrategyJoinCollection, StrategyProjectionFlat:
		return false
	default:
		return true
	}
}

// OrderLine is the per-item slice of the read projection.
type OrderLine struct {
	ItemName   string
	OrderPrice int64
	Count      int
}

// OrderSummary is the flattened read model shared by every strategy, so
// callers stay strategy-agnostic. Items appear in persisted line order.
type OrderSummary struct {
	OrderID    int64
	MemberName string
	OrderDate  time.Time
	Status     domain.Status
	City       string
	Street     string
	Zipcode    string
	Items      []OrderLine
}

// Repository persists and materializes order aggregates. The Find* family is
// the query strategy engine; every variant returns orders in ascending
// identity regardless of plan.
type Repository interface {
	Save(ctx context.Context, u unitofwork.UnitOfWork, order *domain.Order) (int64, error)
	GetByID(ctx context.Context, u unitofwork.UnitOfWork, id int64) (*domain.Order, error)
	// UpdateStatus writes back the aggregate's status after a state change.
	UpdateStatus(ctx context.Context, u unitofwork.UnitOfWork, order *domain.Order) error

	// FindAll: root query only, associations lazy (StrategyLazy).
	FindAll(ctx context.Context, u unitofwork.UnitOfWork, search Search, page *Page) ([]*domain.Order, error)
	// FindAllWithMemberDelivery: to-one joins eager, items lazy (StrategyJoinToOne).
	FindAllWithMemberDelivery(ctx context.Context, u unitofwork.UnitOfWork, search Search, page *Page) ([]*domain.Order, error)
	// FindAllWithItems: single collection join, deduplicated (StrategyJoinCollection).
	FindAllWithItems(ctx context.Context, u unitofwork.UnitOfWork, search Search) ([]*domain.Order, error)
	// FindAllBatched: to-one joins plus batched collection loads (StrategyBatch).
	FindAllBatched(ctx context.Context, u unitofwork.UnitOfWork, search Search, page *Page, batchSize int) ([]*domain.Order, error)
	// FindSummaries: two projection queries grouped client side (StrategyProjectionSplit).
	FindSummaries(ctx context.Context, u unitofwork.UnitOfWork, search Search, page *Page) ([]OrderSummary, error)
	// FindSummariesFlat: one flat join grouped by order identity (StrategyProjectionFlat).
	FindSummariesFlat(ctx context.Context, u unitofwork.UnitOfWork, search Search) ([]OrderSummary, error)
}
