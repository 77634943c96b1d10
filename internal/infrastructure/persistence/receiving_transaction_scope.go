package persistence

import (
	"context"

	apprcv "github.com/erp/receiving/internal/application/receiving"
	"github.com/erp/receiving/internal/domain/inventory"
	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/erp/receiving/internal/domain/sales"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos apprcv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// PurchaseOrderRepo returns the purchase order repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PurchaseOrderRepo() receiving.PurchaseOrderRepository {
	return NewGormPurchaseOrderRepository(r.tx)
}

// AllocationRepo returns the allocation decision repository scoped to the current transaction.
func (r *gormTransactionalRepositories) AllocationRepo() receiving.AllocationDecisionRepository {
	return NewGormAllocationDecisionRepository(r.tx)
}

// SalesOrderLineRepo returns the sales order line repository scoped to the current transaction.
func (r *gormTransactionalRepositories) SalesOrderLineRepo() sales.SalesOrderLineRepository {
	return NewGormSalesOrderLineRepository(r.tx)
}

// InventoryRepo returns the inventory item repository scoped to the current transaction.
func (r *gormTransactionalRepositories) InventoryRepo() inventory.InventoryItemRepository {
	return NewGormInventoryItemRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ apprcv.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ apprcv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
