package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/shopkit-go/shop-api-server/internal/domains/members/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/members/ports"
	platformuow "github.com/shopkit-go/shop-api-server/internal/platform/uow"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists members in PostgreSQL using GORM.
type Repository struct{}

// NewRepository wires a PostgreSQL-backed member repository. Sessions come in
// through the unit of work, not the constructor.
func NewRepository() *Repository {
	return &Repository{}
}

// memberRecord maps the member entity to a relational table. The unique name
// index backs duplicate-registration rejection.
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

// Save inserts a new member or updates an existing one.
func (r *Repository) Save(ctx context.Context, u unitofwork.UnitOfWork, member *domain.Member) (int64, error) {
	db, err := platformuow.DB(u)
	if err != nil {
		return 0, err
	}
	record := toRecord(member)
	if err := db.WithContext(ctx).Save(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, ports.ErrDuplicateName
		}
		return 0, err
	}
	member.ID = record.ID
	return record.ID, nil
}

// GetByID fetches a member by identifier.
func (r *Repository) GetByID(ctx context.Context, u unitofwork.UnitOfWork, id int64) (*domain.Member, error) {
	db, err := platformuow.DB(u)
	if err != nil {
		return nil, err
	}
	var record memberRecord
	if err := db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// List returns all members in ascending identity.
func (r *Repository) List(ctx context.Context, u unitofwork.UnitOfWork) ([]*domain.Member, error) {
	db, err := platformuow.DB(u)
	if err != nil {
		return nil, err
	}
	var records []memberRecord
	if err := db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	members := make([]*domain.Member, 0, len(records))
	for i := range records {
		members = append(members, records[i].toDomain())
	}
	return members, nil
}

// isUniqueViolation detects the unique-constraint SQLSTATE from the pgx
// driver, with gorm's translated sentinel as a fallback for other dialects.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func toRecord(member *domain.Member) memberRecord {
	return memberRecord{
		ID:      member.ID,
		Name:    member.Name,
		City:    member.Address.City(),
		Street:  member.Address.Street(),
		Zipcode: member.Address.Zipcode(),
	}
}

func (r memberRecord) toDomain() *domain.Member {
	return &domain.Member{
		ID:      r.ID,
		Name:    r.Name,
		Address: domain.NewAddress(r.City, r.Street, r.Zipcode),
	}
}
