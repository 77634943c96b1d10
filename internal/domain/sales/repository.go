package sales

import (
	"context"

	"github.com/google/uuid"
)

// SalesOrderLineRepository defines the interface for sales order line persistence
type SalesOrderLineRepository interface {
	// FindByID finds a sales order line by ID
	FindByID(ctx context.Context, id uuid.UUID) (*SalesOrderLine, error)

	// FindOpenByParts finds all open lines for the given parts, ordered by
	// sales order number. Returns an empty slice when no open demand exists.
	FindOpenByParts(ctx context.Context, partNumbers []string) ([]SalesOrderLine, error)

	// FindBySalesOrderAndPart finds the line of a sales order for a part,
	// regardless of line status
	FindBySalesOrderAndPart(ctx context.Context, salesOrderID uuid.UUID, partNumber string) (*SalesOrderLine, error)

	// Save creates or updates a sales order line
	Save(ctx context.Context, line *SalesOrderLine) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, line *SalesOrderLine) error
}
