package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockGormDB opens gorm on a mocked postgres connection
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func currentStockRows(key inventory.StockKey, qty string, lastSeq int64, version int) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "created_at", "updated_at", "version",
		"store_id", "product_id", "warehouse_id", "qty", "last_sequence",
	}).AddRow(
		uuid.New().String(), now, now, version,
		key.StoreID.String(), key.ProductID.String(), key.WarehouseID.String(), qty, lastSeq,
	)
}

func newTestKey() inventory.StockKey {
	return inventory.NewStockKey(uuid.New(), uuid.New(), uuid.New())
}

func TestGormCurrentStockRepository_Find(t *testing.T) {
	t.Run("reads the row without a lock", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormCurrentStockRepository(db, false)
		key := newTestKey()

		mock.ExpectQuery(`SELECT \* FROM "current_stock" WHERE store_id = \$1 AND product_id = \$2 AND warehouse_id = \$3 ORDER BY .* LIMIT \$4$`).
			WithArgs(key.StoreID, key.ProductID, key.WarehouseID, 1).
			WillReturnRows(currentStockRows(key, "42.5", 9, 3))

		stock, err := repo.Find(context.Background(), key)
		require.NoError(t, err)
		assert.Equal(t, key, stock.Key())
		assert.True(t, stock.Qty.Equal(decimal.RequireFromString("42.5")))
		assert.Equal(t, int64(9), stock.LastSequence)
		assert.Equal(t, 3, stock.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps a missing row to ErrNotFound", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormCurrentStockRepository(db, false)

		mock.ExpectQuery(`SELECT \* FROM "current_stock"`).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.Find(context.Background(), newTestKey())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormCurrentStockRepository_Locks(t *testing.T) {
	t.Run("FindForUpdate takes a blocking row lock", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormCurrentStockRepository(db, true)
		key := newTestKey()

		mock.ExpectQuery(`SELECT \* FROM "current_stock" WHERE .* FOR UPDATE$`).
			WillReturnRows(currentStockRows(key, "1", 1, 1))

		_, err := repo.FindForUpdate(context.Background(), key)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("TryLockForUpdate uses NOWAIT when configured", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormCurrentStockRepository(db, true)
		key := newTestKey()

		mock.ExpectQuery(`SELECT \* FROM "current_stock" WHERE .* FOR UPDATE NOWAIT$`).
			WillReturnRows(currentStockRows(key, "1", 1, 1))

		_, err := repo.TryLockForUpdate(context.Background(), key)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("TryLockForUpdate waits when NOWAIT is off", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormCurrentStockRepository(db, false)
		key := newTestKey()

		mock.ExpectQuery(`SELECT \* FROM "current_stock" WHERE .* FOR UPDATE$`).
			WillReturnRows(currentStockRows(key, "1", 1, 1))

		_, err := repo.TryLockForUpdate(context.Background(), key)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lock_not_available maps to ErrLockNotAvailable", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormCurrentStockRepository(db, true)

		mock.ExpectQuery(`FOR UPDATE NOWAIT`).
			WillReturnError(&pgconn.PgError{Code: "55P03", Message: "could not obtain lock on row"})

		_, err := repo.TryLockForUpdate(context.Background(), newTestKey())
		assert.ErrorIs(t, err, inventory.ErrLockNotAvailable)
	})
}

func TestGormCurrentStockRepository_Save(t *testing.T) {
	newStock := func(t *testing.T) *inventory.CurrentStock {
		stock, err := inventory.NewCurrentStock(newTestKey())
		require.NoError(t, err)
		stock.Qty = decimal.NewFromInt(7)
		stock.LastSequence = 12
		stock.Version = 4
		return stock
	}

	t.Run("updates when the stored version matches", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormCurrentStockRepository(db, false)
		stock := newStock(t)

		mock.ExpectExec(`UPDATE "current_stock" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Save(context.Background(), stock))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a conflict when another writer got there first", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormCurrentStockRepository(db, false)

		mock.ExpectExec(`UPDATE "current_stock" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Save(context.Background(), newStock(t))
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("serialization failures are conflicts", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormCurrentStockRepository(db, false)

		mock.ExpectExec(`UPDATE "current_stock" SET`).
			WillReturnError(&pgconn.PgError{Code: "40001"})

		err := repo.Save(context.Background(), newStock(t))
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}
