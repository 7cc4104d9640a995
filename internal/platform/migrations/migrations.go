// Package migrations applies the relational schema for every bounded
// context in one place, so adapters never automigrate their own tables.
package migrations

import (
	"time"

	"gorm.io/gorm"
)

// Run applies the schema for the bounded contexts.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&memberRecord{},
		&itemRecord{},
		&orderRecord{},
		&orderItemRecord{},
		&deliveryRecord{},
	)
}

// Member schema mirrors the members Postgres adapter. The unique index on
// name backs the duplicate registration rule.
type memberRecord struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	Name      string    `gorm:"column:name;type:varchar(255);uniqueIndex:idx_members_name"`
	City      string    `gorm:"column:city"`
	Street    string    `gorm:"column:street"`
	Zipcode   string    `gorm:"column:zipcode"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (memberRecord) TableName() string { return "members" }

// Item schema mirrors the catalog Postgres adapter; kind discriminates the
// item variant and the book columns stay empty for other kinds.
type itemRecord struct {
	ID            int64     `gorm:"primaryKey;column:id"`
	Kind          string    `gorm:"column:kind;type:varchar(32);index"`
	Name          string    `gorm:"column:name;type:varchar(255)"`
	Price         int64     `gorm:"column:price"`
	StockQuantity int       `gorm:"column:stock_quantity"`
	Author        string    `gorm:"column:author"`
	ISBN          string    `gorm:"column:isbn"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (itemRecord) TableName() string { return "items" }

// Order schema mirrors the orders Postgres adapter.
type orderRecord struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	MemberID  int64     `gorm:"column:member_id;index"`
	OrderDate time.Time `gorm:"column:order_date"`
	Status    string    `gorm:"column:status;type:varchar(16);index"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

// Order line schema; order_price snapshots the purchase-time price.
type orderItemRecord struct {
	ID         int64 `gorm:"primaryKey;column:id"`
	OrderID    int64 `gorm:"column:order_id;index"`
	ItemID     int64 `gorm:"column:item_id;index"`
	OrderPrice int64 `gorm:"column:order_price"`
	Count      int   `gorm:"column:count"`
}

func (orderItemRecord) TableName() string { return "order_items" }

// Delivery schema; one delivery per order.
type deliveryRecord struct {
	ID      int64  `gorm:"primaryKey;column:id"`
	OrderID int64  `gorm:"column:order_id;uniqueIndex"`
	City    string `gorm:"column:city"`
	Street  string `gorm:"column:street"`
	Zipcode string `gorm:"column:zipcode"`
	Status  string `gorm:"column:status;type:varchar(16)"`
}

func (deliveryRecord) TableName() string { return "deliveries" }
