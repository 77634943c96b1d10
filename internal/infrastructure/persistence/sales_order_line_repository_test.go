package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/receiving/internal/domain/sales"
	"github.com/erp/receiving/internal/domain/shared"
	"github.com/erp/receiving/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSalesOrderLineTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.SalesOrderLineModel{})
	require.NoError(t, err)

	return db
}

func newTestLine(t *testing.T, salesOrderNumber, partNumber string, quantityOrdered int64) *sales.SalesOrderLine {
	t.Helper()

	salesDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	line, err := sales.NewSalesOrderLine(uuid.New(), salesOrderNumber, "Globex Corp", salesDate, partNumber, decimal.NewFromInt(quantityOrdered))
	require.NoError(t, err)
	return line
}

func TestGormSalesOrderLineRepository_FindOpenByParts(t *testing.T) {
	db := setupSalesOrderLineTestDB(t)
	repo := NewGormSalesOrderLineRepository(db)
	ctx := context.Background()

	t.Run("returns empty slice for empty part list", func(t *testing.T) {
		lines, err := repo.FindOpenByParts(ctx, []string{})

		require.NoError(t, err)
		assert.Empty(t, lines)
	})

	t.Run("orders lines by sales order number", func(t *testing.T) {
		for _, orderNumber := range []string{"SO-1003", "SO-1001", "SO-1002"} {
			err := repo.Save(ctx, newTestLine(t, orderNumber, "P-100", 4))
			require.NoError(t, err)
		}

		lines, err := repo.FindOpenByParts(ctx, []string{"P-100"})

		require.NoError(t, err)
		require.Len(t, lines, 3)
		assert.Equal(t, "SO-1001", lines[0].SalesOrderNumber)
		assert.Equal(t, "SO-1002", lines[1].SalesOrderNumber)
		assert.Equal(t, "SO-1003", lines[2].SalesOrderNumber)
	})

	t.Run("excludes closed lines and other parts", func(t *testing.T) {
		closed := newTestLine(t, "SO-2001", "P-200", 4)
		require.NoError(t, closed.CloseLine())
		require.NoError(t, repo.Save(ctx, closed))

		open := newTestLine(t, "SO-2002", "P-200", 4)
		require.NoError(t, repo.Save(ctx, open))

		other := newTestLine(t, "SO-2003", "P-999", 4)
		require.NoError(t, repo.Save(ctx, other))

		lines, err := repo.FindOpenByParts(ctx, []string{"P-200"})

		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, "SO-2002", lines[0].SalesOrderNumber)
	})
}

func TestGormSalesOrderLineRepository_FindBySalesOrderAndPart(t *testing.T) {
	db := setupSalesOrderLineTestDB(t)
	repo := NewGormSalesOrderLineRepository(db)
	ctx := context.Background()

	t.Run("finds line regardless of status", func(t *testing.T) {
		line := newTestLine(t, "SO-3001", "P-300", 4)
		require.NoError(t, line.CloseLine())
		require.NoError(t, repo.Save(ctx, line))

		found, err := repo.FindBySalesOrderAndPart(ctx, line.SalesOrderID, "P-300")

		require.NoError(t, err)
		assert.Equal(t, line.ID, found.ID)
		assert.Equal(t, sales.SalesOrderStatusClosed, found.Status)
	})

	t.Run("returns not found for unknown combination", func(t *testing.T) {
		_, err := repo.FindBySalesOrderAndPart(ctx, uuid.New(), "P-300")
		assert.Equal(t, shared.ErrNotFound, err)
	})
}

func TestGormSalesOrderLineRepository_SaveWithLock(t *testing.T) {
	db := setupSalesOrderLineTestDB(t)
	repo := NewGormSalesOrderLineRepository(db)
	ctx := context.Background()

	t.Run("persists fulfillment changes", func(t *testing.T) {
		line := newTestLine(t, "SO-4001", "P-400", 10)
		require.NoError(t, repo.Save(ctx, line))

		loaded, err := repo.FindByID(ctx, line.ID)
		require.NoError(t, err)

		require.NoError(t, loaded.Fulfill(decimal.NewFromInt(6)))
		err = repo.SaveWithLock(ctx, loaded)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, line.ID)
		require.NoError(t, err)
		assert.True(t, found.QuantityFulfilled.Equal(decimal.NewFromInt(6)))
		assert.True(t, found.StillNeeded().Equal(decimal.NewFromInt(4)))
		assert.Equal(t, loaded.Version, found.Version)
	})

	t.Run("rejects stale version", func(t *testing.T) {
		line := newTestLine(t, "SO-4002", "P-400", 10)
		require.NoError(t, repo.Save(ctx, line))

		first, err := repo.FindByID(ctx, line.ID)
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, line.ID)
		require.NoError(t, err)

		require.NoError(t, first.Fulfill(decimal.NewFromInt(2)))
		require.NoError(t, repo.SaveWithLock(ctx, first))

		require.NoError(t, second.Fulfill(decimal.NewFromInt(3)))
		err = repo.SaveWithLock(ctx, second)

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CONCURRENT_MODIFICATION", domainErr.Code)
	})
}

func TestGormSalesOrderLineRepository_InterfaceCompliance(t *testing.T) {
	t.Run("implements SalesOrderLineRepository interface", func(t *testing.T) {
		db := setupSalesOrderLineTestDB(t)
		var _ sales.SalesOrderLineRepository = NewGormSalesOrderLineRepository(db)
	})
}
