package receiving

import (
	"context"

	"github.com/erp/receiving/internal/domain/shared"
	"github.com/google/uuid"
)

// PurchaseOrderRepository defines the interface for purchase order persistence
type PurchaseOrderRepository interface {
	// FindByID finds a purchase order with its receipt lines by ID
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// FindByOrderNumber finds a purchase order by its order number
	FindByOrderNumber(ctx context.Context, orderNumber string) (*PurchaseOrder, error)

	// FindAll finds purchase orders with filtering and pagination
	FindAll(ctx context.Context, filter shared.Filter) ([]PurchaseOrder, error)

	// Count counts purchase orders matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Save creates or updates a purchase order with its receipt lines
	Save(ctx context.Context, order *PurchaseOrder) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, order *PurchaseOrder) error
}

// AllocationDecisionRepository defines the interface for the allocation ledger
type AllocationDecisionRepository interface {
	// FindByPurchaseOrder returns all decision rows for a purchase order,
	// including surplus rows
	FindByPurchaseOrder(ctx context.Context, purchaseOrderID uuid.UUID) ([]AllocationDecision, error)

	// ReplaceForPurchaseOrder atomically replaces the full decision set for a
	// purchase order. An empty set clears the ledger for the order.
	ReplaceForPurchaseOrder(ctx context.Context, purchaseOrderID uuid.UUID, decisions []AllocationDecision) error
}
