package receiving

import (
	"context"

	"github.com/erp/receiving/internal/domain/inventory"
	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/erp/receiving/internal/domain/sales"
)

// TransactionScope provides transactional access to the repositories touched
// by an allocation commit. When a function is executed within a transaction
// scope, all repository operations are part of the same database transaction
// and are committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories that take
// part in close and reopen commits. All repositories returned share the same
// underlying database transaction.
//
// Aggregate boundary notes:
//   - PurchaseOrderRepo: the PurchaseOrder aggregate. Receipt lines are child
//     entities persisted via association handling when the root is saved.
//   - AllocationRepo: the allocation decision ledger. Rows are replaced as a
//     set per purchase order; there is no partial update path.
//   - SalesOrderLineRepo: fulfilled quantities on sales order lines are
//     adjusted in the same transaction that closes or reopens the order.
//   - InventoryRepo: surplus stock movements land here together with the
//     status flip, never before it.
type TransactionalRepositories interface {
	// PurchaseOrderRepo returns the purchase order repository scoped to the current transaction
	PurchaseOrderRepo() receiving.PurchaseOrderRepository
	// AllocationRepo returns the allocation decision repository scoped to the current transaction
	AllocationRepo() receiving.AllocationDecisionRepository
	// SalesOrderLineRepo returns the sales order line repository scoped to the current transaction
	SalesOrderLineRepo() sales.SalesOrderLineRepository
	// InventoryRepo returns the inventory item repository scoped to the current transaction
	InventoryRepo() inventory.InventoryItemRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	orderRepo      receiving.PurchaseOrderRepository
	allocationRepo receiving.AllocationDecisionRepository
	lineRepo       sales.SalesOrderLineRepository
	inventoryRepo  inventory.InventoryItemRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	orderRepo receiving.PurchaseOrderRepository,
	allocationRepo receiving.AllocationDecisionRepository,
	lineRepo sales.SalesOrderLineRepository,
	inventoryRepo inventory.InventoryItemRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		orderRepo:      orderRepo,
		allocationRepo: allocationRepo,
		lineRepo:       lineRepo,
		inventoryRepo:  inventoryRepo,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// PurchaseOrderRepo returns the purchase order repository.
func (s *NoOpTransactionScope) PurchaseOrderRepo() receiving.PurchaseOrderRepository {
	return s.orderRepo
}

// AllocationRepo returns the allocation decision repository.
func (s *NoOpTransactionScope) AllocationRepo() receiving.AllocationDecisionRepository {
	return s.allocationRepo
}

// SalesOrderLineRepo returns the sales order line repository.
func (s *NoOpTransactionScope) SalesOrderLineRepo() sales.SalesOrderLineRepository {
	return s.lineRepo
}

// InventoryRepo returns the inventory item repository.
func (s *NoOpTransactionScope) InventoryRepo() inventory.InventoryItemRepository {
	return s.inventoryRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
