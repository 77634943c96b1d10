package inventory

import (
	"context"
)

// InventoryItemRepository defines the interface for inventory item persistence
type InventoryItemRepository interface {
	// FindByPartNumber finds the inventory item for a part
	FindByPartNumber(ctx context.Context, partNumber string) (*InventoryItem, error)

	// FindByPartNumbers finds the inventory items for the given parts; parts
	// with no stock record are simply absent from the result
	FindByPartNumbers(ctx context.Context, partNumbers []string) ([]InventoryItem, error)

	// Save creates or updates an inventory item
	Save(ctx context.Context, item *InventoryItem) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, item *InventoryItem) error
}
