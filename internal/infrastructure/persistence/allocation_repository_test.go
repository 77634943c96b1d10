package persistence

import (
	"context"
	"testing"

	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/erp/receiving/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAllocationTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.AllocationDecisionModel{})
	require.NoError(t, err)

	return db
}

func newTestDecision(t *testing.T, purchaseOrderID uuid.UUID, partNumber string, salesOrderID uuid.UUID, quantity int64) receiving.AllocationDecision {
	t.Helper()

	decision, err := receiving.NewAllocationDecision(purchaseOrderID, partNumber, salesOrderID, decimal.NewFromInt(quantity))
	require.NoError(t, err)
	return *decision
}

func newTestSurplus(t *testing.T, purchaseOrderID uuid.UUID, partNumber string, quantity int64) receiving.AllocationDecision {
	t.Helper()

	decision, err := receiving.NewSurplusDecision(purchaseOrderID, partNumber, decimal.NewFromInt(quantity))
	require.NoError(t, err)
	return *decision
}

func TestGormAllocationDecisionRepository_ReplaceForPurchaseOrder(t *testing.T) {
	db := setupAllocationTestDB(t)
	repo := NewGormAllocationDecisionRepository(db)
	ctx := context.Background()

	t.Run("replaces the full decision set", func(t *testing.T) {
		orderID := uuid.New()
		salesOrderID := uuid.New()

		first := []receiving.AllocationDecision{
			newTestDecision(t, orderID, "P-100", salesOrderID, 4),
			newTestSurplus(t, orderID, "P-100", 6),
		}
		err := repo.ReplaceForPurchaseOrder(ctx, orderID, first)
		require.NoError(t, err)

		second := []receiving.AllocationDecision{
			newTestDecision(t, orderID, "P-100", salesOrderID, 7),
			newTestSurplus(t, orderID, "P-100", 3),
		}
		err = repo.ReplaceForPurchaseOrder(ctx, orderID, second)
		require.NoError(t, err)

		found, err := repo.FindByPurchaseOrder(ctx, orderID)
		require.NoError(t, err)
		require.Len(t, found, 2)

		for _, d := range found {
			if d.IsSurplus() {
				assert.True(t, d.Quantity.Equal(decimal.NewFromInt(3)))
			} else {
				assert.True(t, d.Quantity.Equal(decimal.NewFromInt(7)))
				require.NotNil(t, d.SalesOrderID)
				assert.Equal(t, salesOrderID, *d.SalesOrderID)
			}
		}
	})

	t.Run("clears the ledger with an empty set", func(t *testing.T) {
		orderID := uuid.New()

		seed := []receiving.AllocationDecision{
			newTestDecision(t, orderID, "P-100", uuid.New(), 4),
		}
		err := repo.ReplaceForPurchaseOrder(ctx, orderID, seed)
		require.NoError(t, err)

		err = repo.ReplaceForPurchaseOrder(ctx, orderID, []receiving.AllocationDecision{})
		require.NoError(t, err)

		found, err := repo.FindByPurchaseOrder(ctx, orderID)
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("does not touch other orders", func(t *testing.T) {
		orderA := uuid.New()
		orderB := uuid.New()

		err := repo.ReplaceForPurchaseOrder(ctx, orderA, []receiving.AllocationDecision{
			newTestDecision(t, orderA, "P-100", uuid.New(), 1),
		})
		require.NoError(t, err)
		err = repo.ReplaceForPurchaseOrder(ctx, orderB, []receiving.AllocationDecision{
			newTestDecision(t, orderB, "P-200", uuid.New(), 2),
		})
		require.NoError(t, err)

		err = repo.ReplaceForPurchaseOrder(ctx, orderA, []receiving.AllocationDecision{})
		require.NoError(t, err)

		found, err := repo.FindByPurchaseOrder(ctx, orderB)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "P-200", found[0].PartNumber)
	})
}

func TestGormAllocationDecisionRepository_FindByPurchaseOrder(t *testing.T) {
	db := setupAllocationTestDB(t)
	repo := NewGormAllocationDecisionRepository(db)
	ctx := context.Background()

	t.Run("returns empty slice for unknown order", func(t *testing.T) {
		found, err := repo.FindByPurchaseOrder(ctx, uuid.New())

		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("orders rows by part number", func(t *testing.T) {
		orderID := uuid.New()

		err := repo.ReplaceForPurchaseOrder(ctx, orderID, []receiving.AllocationDecision{
			newTestDecision(t, orderID, "Z-900", uuid.New(), 1),
			newTestDecision(t, orderID, "A-100", uuid.New(), 2),
			newTestDecision(t, orderID, "M-500", uuid.New(), 3),
		})
		require.NoError(t, err)

		found, err := repo.FindByPurchaseOrder(ctx, orderID)
		require.NoError(t, err)
		require.Len(t, found, 3)
		assert.Equal(t, "A-100", found[0].PartNumber)
		assert.Equal(t, "M-500", found[1].PartNumber)
		assert.Equal(t, "Z-900", found[2].PartNumber)
	})

	t.Run("round-trips surplus rows with nil sales order", func(t *testing.T) {
		orderID := uuid.New()

		err := repo.ReplaceForPurchaseOrder(ctx, orderID, []receiving.AllocationDecision{
			newTestSurplus(t, orderID, "P-100", 5),
		})
		require.NoError(t, err)

		found, err := repo.FindByPurchaseOrder(ctx, orderID)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Nil(t, found[0].SalesOrderID)
		assert.True(t, found[0].IsSurplus())
		assert.True(t, found[0].Quantity.Equal(decimal.NewFromInt(5)))
	})
}

func TestGormAllocationDecisionRepository_InterfaceCompliance(t *testing.T) {
	t.Run("implements AllocationDecisionRepository interface", func(t *testing.T) {
		db := setupAllocationTestDB(t)
		var _ receiving.AllocationDecisionRepository = NewGormAllocationDecisionRepository(db)
	})
}
