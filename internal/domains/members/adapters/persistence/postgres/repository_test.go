package postgres

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shopkit-go/shop-api-server/internal/domains/members/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/members/ports"
	"github.com/shopkit-go/shop-api-server/internal/platform/migrations"
	platformuow "github.com/shopkit-go/shop-api-server/internal/platform/uow"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

func setupSQLite(t *testing.T) *platformuow.Manager {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "shop.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})
	require.NoError(t, migrations.Run(db))
	return platformuow.NewManager(db, platformuow.WithoutReadOnlyTxOptions())
}

func saveMember(t *testing.T, manager *platformuow.Manager, repo *Repository, name, city string) int64 {
	t.Helper()
	member, err := domain.NewMember(name, domain.NewAddress(city, "1", "1111"))
	require.NoError(t, err)
	var id int64
	err = manager.ReadWrite(context.Background(), func(ctx context.Context, u unitofwork.UnitOfWork) error {
		id, err = repo.Save(ctx, u, member)
		return err
	})
	require.NoError(t, err)
	return id
}

func TestSaveAndGetByID(t *testing.T) {
	manager := setupSQLite(t)
	repo := NewRepository()
	id := saveMember(t, manager, repo, "userA", "Seoul")

	err := manager.ReadOnly(context.Background(), func(ctx context.Context, u unitofwork.UnitOfWork) error {
		member, err := repo.GetByID(ctx, u, id)
		require.NoError(t, err)
		require.Equal(t, "userA", member.Name)
		require.Equal(t, "Seoul", member.Address.City())
		require.Equal(t, "1111", member.Address.Zipcode())
		return nil
	})
	require.NoError(t, err)
}

func TestSave_DuplicateName(t *testing.T) {
	manager := setupSQLite(t)
	repo := NewRepository()
	saveMember(t, manager, repo, "userA", "Seoul")

	member, err := domain.NewMember("userA", domain.NewAddress("Jinju", "2", "2222"))
	require.NoError(t, err)
	err = manager.ReadWrite(context.Background(), func(ctx context.Context, u unitofwork.UnitOfWork) error {
		_, err := repo.Save(ctx, u, member)
		return err
	})
	require.ErrorIs(t, err, ports.ErrDuplicateName)
}

func TestGetByID_NotFound(t *testing.T) {
	manager := setupSQLite(t)
	repo := NewRepository()

	err := manager.ReadOnly(context.Background(), func(ctx context.Context, u unitofwork.UnitOfWork) error {
		_, err := repo.GetByID(ctx, u, 404)
		require.ErrorIs(t, err, ports.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestList_AscendingIdentity(t *testing.T) {
	manager := setupSQLite(t)
	repo := NewRepository()
	saveMember(t, manager, repo, "userA", "Seoul")
	saveMember(t, manager, repo, "userB", "Jinju")

	err := manager.ReadOnly(context.Background(), func(ctx context.Context, u unitofwork.UnitOfWork) error {
		members, err := repo.List(ctx, u)
		require.NoError(t, err)
		require.Len(t, members, 2)
		require.Equal(t, "userA", members[0].Name)
		require.Equal(t, "userB", members[1].Name)
		return nil
	})
	require.NoError(t, err)
}
