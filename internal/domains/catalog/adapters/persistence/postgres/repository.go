package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopkit-go/shop-api-server/internal/domains/catalog/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/catalog/ports"
	platformuow "github.com/shopkit-go/shop-api-server/internal/platform/uow"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists catalog items in PostgreSQL using GORM.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// itemRecord maps the item variant onto a single table with a kind
// discriminator; book-specific columns stay empty for other kinds.
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

// Save inserts or updates an item. Stock written here is whatever the loaded
// aggregate carries; there is no version check (see the known gap on
// concurrent stock mutation).
func (r *Repository) Save(ctx context.Context, u unitofwork.UnitOfWork, item *domain.Item) (int64, error) {
	db, err := platformuow.DB(u)
	if err != nil {
		return 0, err
	}
	record := toRecord(item)
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "price", "stock_quantity", "author", "isbn", "updated_at",
			}),
		}).Create(&record).Error; err != nil {
		return 0, err
	}
	item.ID = record.ID
	return record.ID, nil
}

// GetByID fetches an item by identifier.
func (r *Repository) GetByID(ctx context.Context, u unitofwork.UnitOfWork, id int64) (*domain.Item, error) {
	db, err := platformuow.DB(u)
	if err != nil {
		return nil, err
	}
	var record itemRecord
	if err := db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// List returns all items in ascending identity.
func (r *Repository) List(ctx context.Context, u unitofwork.UnitOfWork) ([]*domain.Item, error) {
	db, err := platformuow.DB(u)
	if err != nil {
		return nil, err
	}
	var records []itemRecord
	if err := db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	items := make([]*domain.Item, 0, len(records))
	for i := range records {
		items = append(items, records[i].toDomain())
	}
	return items, nil
}

func toRecord(item *domain.Item) itemRecord {
	record := itemRecord{
		ID:            item.ID,
		Kind:          string(item.Kind),
		Name:          item.Name,
		Price:         item.Price,
		StockQuantity: item.StockQuantity,
	}
	if item.Book != nil {
		record.Author = item.Book.Author
		record.ISBN = item.Book.ISBN
	}
	return record
}

func (r itemRecord) toDomain() *domain.Item {
	item := &domain.Item{
		ID:            r.ID,
		Kind:          domain.Kind(r.Kind),
		Name:          r.Name,
		Price:         r.Price,
		StockQuantity: r.StockQuantity,
	}
	if item.Kind == domain.KindBook {
		item.Book = &domain.BookDetails{Author: r.Author, ISBN: r.ISBN}
	}
	return item
}
