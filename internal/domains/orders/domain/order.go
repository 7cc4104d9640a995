package domain

import (
	"context"
	"errors"
	"time"

	catalogdomain "github.com/shopkit-go/shop-api-server/internal/domains/catalog/domain"
	membersdomain "github.com/shopkit-go/shop-api-server/internal/domains/members/domain"
	"github.com/shopkit-go/shop-api-server/internal/shared/association"
)

// Status is the order lifecycle. The only transition is ORDER → CANCEL and
// CANCEL is terminal.
type Status string

const (
	StatusOrder  Status = "ORDER"
	StatusCancel Status = "CANCEL"
)

// DeliveryStatus tracks the owned delivery record.
type DeliveryStatus string

const (
	DeliveryReady    DeliveryStatus = "READY"
	DeliveryComplete DeliveryStatus = "COMP"
)

var (
	ErrNoItems          = errors.New("order requires at least one item")
	ErrInvalidCount     = errors.New("order item count must be greater than zero")
	ErrAlreadyDelivered = errors.New("completed deliveries cannot be cancelled")
	ErrAlreadyCancelled = errors.New("order is already cancelled")
)

// Delivery is owned one-to-one by its order; its address is copied from the
// member at order time and never re-read.
type Delivery struct {
	ID      int64
	Address membersdomain.Address
	Status  DeliveryStatus

	order *Order
}

// NewDelivery builds a pending delivery for the given destination.
func NewDelivery(address membersdomain.Address) *Delivery {
	return &Delivery{Address: address, Status: DeliveryReady}
}

// Order returns the owning aggregate root.
func (d *Delivery) Order() *Order { return d.order }

// OrderItem is an order-owned line. OrderPrice is a snapshot taken at
// purchase time, never a live read of the catalog price.
type OrderItem struct {
	ID         int64
	Item       *association.Ref[*catalogdomain.Item]
	OrderPrice int64
	Count      int

	order *Order
}

// NewOrderItem snapshots the price and takes the ordered count out of the
// catalog item's stock. An insufficient-stock failure leaves the item as it was.
func NewOrderItem(item *catalogdomain.Item, orderPrice int64, count int) (*OrderItem, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}
	if err := item.RemoveStock(count); err != nil {
		return nil, err
	}
	return &OrderItem{
		Item:       association.Resolved(item.ID, item),
		OrderPrice: orderPrice,
		Count:      count,
	}, nil
}

// Order returns the owning aggregate root. The root is the sole writer of
// this back-reference.
func (i *OrderItem) Order() *Order { return i.order }

// TotalPrice is the snapshot price times the ordered count.
func (i *OrderItem) TotalPrice() int64 { return i.OrderPrice * int64(i.Count) }

// cancel gives the ordered count back to the catalog item. The line itself is
// kept; cancellation compensates, it does not delete history.
func (i *OrderItem) cancel(ctx context.Context) error {
	item, err := i.Item.Resolve(ctx)
	if err != nil {
		return err
	}
	return item.AddStock(i.Count)
}

// Order is the aggregate root: it exclusively owns its line items and
// delivery record and is the one consistency and transaction unit they share.
// Member and catalog items are referenced, not owned.
type Order struct {
	ID        int64
	Member    *association.Ref[*membersdomain.Member]
	Delivery  *association.Ref[*Delivery]
	Items     *association.Collection[*OrderItem]
	OrderDate time.Time
	Status    Status
}

// NewOrder builds the aggregate in status ORDER, stamped now, with every
// back-reference wired. Order, delivery, and items are created together and
// persisted as one unit; there is no partially constructed order.
func NewOrder(member *membersdomain.Member, delivery *Delivery, items ...*OrderItem) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	o := &Order{
		Member:    association.Resolved(member.ID, member),
		Delivery:  association.Resolved(delivery.ID, delivery),
		Items:     association.ResolvedCollection[*OrderItem](0, nil),
		OrderDate: time.Now(),
		Status:    StatusOrder,
	}
	delivery.order = o
	for _, item := range items {
		o.addItem(item)
	}
	return o, nil
}

// addItem appends the line and points its back-reference at this order.
func (o *Order) addItem(item *OrderItem) {
	o.Items.Append(item)
	item.order = o
}

// Rehydrate reconstructs a persisted order shell. Repositories fill the
// association fields afterwards; creation side effects do not run again.
func Rehydrate(id int64, orderDate time.Time, status Status) *Order {
	return &Order{ID: id, OrderDate: orderDate, Status: status}
}

// RehydrateDelivery reconstructs a persisted delivery record.
func RehydrateDelivery(id int64, address membersdomain.Address, status DeliveryStatus) *Delivery {
	return &Delivery{ID: id, Address: address, Status: status}
}

// RehydrateOrderItem reconstructs a persisted line without touching stock.
func RehydrateOrderItem(id int64, item *association.Ref[*catalogdomain.Item], orderPrice int64, count int) *OrderItem {
	return &OrderItem{ID: id, Item: item, OrderPrice: orderPrice, Count: count}
}

// AttachDelivery wires the back-reference of a rehydrated delivery. Only the
// root writes this pointer.
func (o *Order) AttachDelivery(delivery *Delivery) *Delivery {
	delivery.order = o
	return delivery
}

// AttachItems wires the back-references of rehydrated lines.
func (o *Order) AttachItems(items []*OrderItem) []*OrderItem {
	for _, item := range items {
		item.order = o
	}
	return items
}

// Cancel moves the order to its terminal state and reverses the stock
// decrement of every line. It refuses to touch anything once the delivery has
// completed or the order was already cancelled.
func (o *Order) Cancel(ctx context.Context) error {
	if o.Status == StatusCancel {
		return ErrAlreadyCancelled
	}
	delivery, err := o.Delivery.Resolve(ctx)
	if err != nil {
		return err
	}
	if delivery.Status == DeliveryComplete {
		return ErrAlreadyDelivered
	}
	items, err := o.Items.Resolve(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := item.cancel(ctx); err != nil {
			return err
		}
	}
	o.Status = StatusCancel
	return nil
}

// TotalPrice sums snapshot price times count over the owned lines. It is a
// pure read: the collection must already be materialized, otherwise
// association.ErrUnresolved is returned instead of hidden I/O.
func (o *Order) TotalPrice() (int64, error) {
	items, err := o.Items.Items()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, item := range items {
		total += item.TotalPrice()
	}
	return total, nil
}
