package orders

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"

	ordersports "github.com/shopkit-go/shop-api-server/internal/domains/orders/ports"
)

// PlaceOrderActivityName persists a new order aggregate through the
// application service.
const PlaceOrderActivityName = "orders.activities.PlaceOrder"

// Activities groups activities that operate on the orders bounded context.
type Activities struct {
	service ordersports.Service
}

// NewActivities wires the orders service into the Temporal activities bundle.
func NewActivities(service ordersports.Service) *Activities {
	return &Activities{service: service}
}

// PlaceOrder runs the placement use case. The stock decrement and the order
// insert commit in one transaction inside the service, so a retried activity
// either sees the previous attempt's committed order or a clean slate.
func (a *Activities) PlaceOrder(ctx context.Context, input ordersports.PlaceOrderInput) (int64, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("order placement activity not initialized", "memberId", input.MemberID)
		return 0, errors.New("order placement activity not initialized")
	}
	logger.Info("PlaceOrder activity started", "memberId", input.MemberID, "itemId", input.ItemID, "count", input.Count)
	orderID, err := a.service.PlaceOrder(ctx, input)
	if err != nil {
		logger.Error("PlaceOrder activity failed", "memberId", input.MemberID, "error", err)
		return 0, err
	}
	logger.Info("PlaceOrder activity completed", "orderId", orderID)
	return orderID, nil
}
