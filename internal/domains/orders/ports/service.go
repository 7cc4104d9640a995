package ports

import "context"

// PlaceOrderInput identifies the member and catalog item of a new order.
type PlaceOrderInput struct {
	MemberID int64
	ItemID   int64
	Count    int
}

// SearchInput selects a filter, an optional page, and the query strategy.
type SearchInput struct {
	Search   Search
	Page     *Page
	Strategy Strategy
}

// Service exposes the order use cases to adapters. Search always returns the
// stable OrderSummary shape: aggregates loaded by the entity strategies are
// materialized inside the unit of work, before it ends.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (int64, error)
	CancelOrder(ctx context.Context, orderID int64) error
	GetOrder(ctx context.Context, orderID int64) (*OrderSummary, error)
	Search(ctx context.Context, input SearchInput) ([]OrderSummary, error)
}

// PlacementOrchestrator starts the order placement flow, durably when a
// workflow engine is available and inline otherwise.
type PlacementOrchestrator interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (int64, error)
}
