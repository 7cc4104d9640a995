package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	catalogdomain "github.com/shopkit-go/shop-api-server/internal/domains/catalog/domain"
	membersdomain "github.com/shopkit-go/shop-api-server/internal/domains/members/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/orders/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/orders/ports"
	platformuow "github.com/shopkit-go/shop-api-server/internal/platform/uow"
	"github.com/shopkit-go/shop-api-server/internal/shared/association"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists order aggregates in PostgreSQL using GORM and serves
// the query strategy engine. Sessions come in through the unit of work;
// every lazy reference it hands out is bound to that session and dies with it.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// orderRecord maps the aggregate root to its table.
type orderRecord struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	MemberID  int64     `gorm:"column:member_id;index"`
	OrderDate time.Time `gorm:"column:order_date"`
	Status    string    `gorm:"column:status;type:varchar(16);index"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

// orderItemRecord maps an owned line; order_price is the purchase-time
// snapshot, never refreshed from the catalog.
type orderItemRecord struct {
	ID         int64 `gorm:"primaryKey;column:id"`
	OrderID    int64 `gorm:"column:order_id;index"`
	ItemID     int64 `gorm:"column:item_id;index"`
	OrderPrice int64 `gorm:"column:order_price"`
	Count      int   `gorm:"column:count"`
}

func (orderItemRecord) TableName() string { return "order_items" }

// deliveryRecord maps the owned one-to-one delivery; its lifetime is bound
// to the order's.
type deliveryRecord struct {
	ID      int64  `gorm:"primaryKey;column:id"`
	OrderID int64  `gorm:"column:order_id;uniqueIndex"`
	City    string `gorm:"column:city"`
	Street  string `gorm:"column:street"`
	Zipcode string `gorm:"column:zipcode"`
	Status  string `gorm:"column:status;type:varchar(16)"`
}

func (deliveryRecord) TableName() string { return "deliveries" }

// memberRow is a read-side scan of the members table. Writes to members stay
// with the members adapter; the order queries only ever join against it.
type memberRow struct {
	ID      int64
	Name    string
	City    string
	Street  string
	Zipcode string
}

func (r memberRow) toDomain() *membersdomain.Member {
	return &membersdomain.Member{
		ID:      r.ID,
		Name:    r.Name,
		Address: membersdomain.NewAddress(r.City, r.Street, r.Zipcode),
	}
}

// itemRow is a read-side scan of the items table.
type itemRow struct {
	ID            int64
	Kind          string
	Name          string
	Price         int64
	StockQuantity int
	Author        string
	ISBN          string
}

func (r itemRow) toDomain() *catalogdomain.Item {
	item := &catalogdomain.Item{
		ID:            r.ID,
		Kind:          catalogdomain.Kind(r.Kind),
		Name:          r.Name,
		Price:         r.Price,
		StockQuantity: r.StockQuantity,
	}
	if item.Kind == catalogdomain.KindBook {
		item.Book = &catalogdomain.BookDetails{Author: r.Author, ISBN: r.ISBN}
	}
	return item
}

// Save persists a freshly constructed aggregate: root, delivery, and lines
// are written together inside the caller's unit of work. There is no upsert
// path; orders are never partially constructed.
func (r *Repository) Save(ctx context.Context, u unitofwork.UnitOfWork, order *domain.Order) (int64, error) {
	db, err := platformuow.DB(u)
	if err != nil {
		return 0, err
	}
	delivery, err := order.Delivery.Value()
	if err != nil {
		return 0, err
	}
	items, err := order.Items.Items()
	if err != nil {
		return 0, err
	}

	record := orderRecord{
		MemberID:  order.Member.Key(),
		OrderDate: order.OrderDate,
		Status:    string(order.Status),
	}
	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		return 0, err
	}
	order.ID = record.ID

	deliveryRec := deliveryRecord{
		OrderID: record.ID,
		City:    delivery.Address.City(),
		Street:  delivery.Address.Street(),
		Zipcode: delivery.Address.Zipcode(),
		Status:  string(delivery.Status),
	}
	if err := db.WithContext(ctx).Create(&deliveryRec).Error; err != nil {
		return 0, err
	}
	delivery.ID = deliveryRec.ID

	lineRecs := make([]orderItemRecord, 0, len(items))
	for _, line := range items {
		lineRecs = append(lineRecs, orderItemRecord{
			OrderID:    record.ID,
			ItemID:     line.Item.Key(),
			OrderPrice: line.OrderPrice,
			Count:      line.Count,
		})
	}
	if err := db.WithContext(ctx).Create(&lineRecs).Error; err != nil {
		return 0, err
	}
	for i, line := range items {
		line.ID = lineRecs[i].ID
	}
	return record.ID, nil
}

// GetByID loads the aggregate root with every association left as a lazy
// placeholder bound to the unit of work.
func (r *Repository) GetByID(ctx context.Context, u unitofwork.UnitOfWork, id int64) (*domain.Order, error) {
	db, err := platformuow.DB(u)
	if err != nil {
		return nil, err
	}
	var record orderRecord
	if err := db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return r.lazyOrder(db, record), nil
}

// UpdateStatus writes back the root's status after a state change. The stock
// side of a cancellation is persisted by the catalog repository in the same
// unit of work.
func (r *Repository) UpdateStatus(ctx context.Context, u unitofwork.UnitOfWork, order *domain.Order) error {
	db, err := platformuow.DB(u)
	if err != nil {
		return err
	}
	result := db.WithContext(ctx).Model(&orderRecord{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{"status": string(order.Status), "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// lazyOrder rehydrates a root row with unresolved association placeholders.
func (r *Repository) lazyOrder(db *gorm.DB, record orderRecord) *domain.Order {
	order := domain.Rehydrate(record.ID, record.OrderDate, domain.Status(record.Status))
	order.Member = association.Lazy(record.MemberID, r.memberResolver(db))
	order.Delivery = association.Lazy(record.ID, r.deliveryResolver(db, order))
	order.Items = association.LazyCollection(record.ID, r.itemsResolver(db, order))
	return order
}

func (r *Repository) memberResolver(db *gorm.DB) association.ResolveFunc[*membersdomain.Member] {
	return func(ctx context.Context, key int64) (*membersdomain.Member, error) {
		var row memberRow
		if err := db.WithContext(ctx).Table("members").Where("id = ?", key).Take(&row).Error; err != nil {
			return nil, err
		}
		return row.toDomain(), nil
	}
}

func (r *Repository) deliveryResolver(db *gorm.DB, order *domain.Order) association.ResolveFunc[*domain.Delivery] {
	return func(ctx context.Context, orderID int64) (*domain.Delivery, error) {
		var record deliveryRecord
		if err := db.WithContext(ctx).Take(&record, "order_id = ?", orderID).Error; err != nil {
			return nil, err
		}
		delivery := domain.RehydrateDelivery(
			record.ID,
			membersdomain.NewAddress(record.City, record.Street, record.Zipcode),
			domain.DeliveryStatus(record.Status),
		)
		return order.AttachDelivery(delivery), nil
	}
}

// itemsResolver loads the owned line collection; each line's catalog item
// stays lazy, which is where the N·M tail of the naive strategy comes from.
func (r *Repository) itemsResolver(db *gorm.DB, order *domain.Order) association.ResolveFunc[[]*domain.OrderItem] {
	return func(ctx context.Context, orderID int64) ([]*domain.OrderItem, error) {
		var records []orderItemRecord
		if err := db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&records).Error; err != nil {
			return nil, err
		}
		lines := make([]*domain.OrderItem, 0, len(records))
		for _, record := range records {
			lines = append(lines, domain.RehydrateOrderItem(
				record.ID,
				association.Lazy(record.ItemID, r.itemResolver(db)),
				record.OrderPrice,
				record.Count,
			))
		}
		return order.AttachItems(lines), nil
	}
}

func (r *Repository) itemResolver(db *gorm.DB) association.ResolveFunc[*catalogdomain.Item] {
	return func(ctx context.Context, key int64) (*catalogdomain.Item, error) {
		var row itemRow
		if err := db.WithContext(ctx).Table("items").Where("id = ?", key).Take(&row).Error; err != nil {
			return nil, err
		}
		return row.toDomain(), nil
	}
}
