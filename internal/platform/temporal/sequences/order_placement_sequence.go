package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	ordersports "github.com/shopkit-go/shop-api-server/internal/domains/orders/ports"
	orderactivities "github.com/shopkit-go/shop-api-server/internal/platform/temporal/activities/orders"
)

// RunOrderPlacementSequence executes the activities needed to place an order.
// The placement activity is transactional end to end, so the retry policy can
// be aggressive without risking a double stock decrement.
func RunOrderPlacementSequence(ctx workflow.Context, input ordersports.PlaceOrderInput) (int64, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("order placement sequence started", "memberId", input.MemberID, "itemId", input.ItemID)

	placeOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	}

	var orderID int64
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, placeOptions), orderactivities.PlaceOrderActivityName, input).Get(ctx, &orderID)
	if err != nil {
		logger.Error("order placement sequence failed", "memberId", input.MemberID, "error", err)
		return 0, err
	}
	logger.Info("order placement sequence completed", "orderId", orderID)
	return orderID, nil
}
