package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/receiving/internal/domain/inventory"
	"github.com/erp/receiving/internal/domain/shared"
	"github.com/erp/receiving/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInventoryItemRepository implements InventoryItemRepository using GORM
type GormInventoryItemRepository struct {
	db *gorm.DB
}

// NewGormInventoryItemRepository creates a new GormInventoryItemRepository
func NewGormInventoryItemRepository(db *gorm.DB) *GormInventoryItemRepository {
	return &GormInventoryItemRepository{db: db}
}

// FindByPartNumber finds the inventory item for a part
func (r *GormInventoryItemRepository) FindByPartNumber(ctx context.Context, partNumber string) (*inventory.InventoryItem, error) {
	var model models.InventoryItemModel
	if err := r.db.WithContext(ctx).
		Where("part_number = ?", partNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPartNumbers finds the inventory items for the given parts; parts
// with no stock record are simply absent from the result
func (r *GormInventoryItemRepository) FindByPartNumbers(ctx context.Context, partNumbers []string) ([]inventory.InventoryItem, error) {
	if len(partNumbers) == 0 {
		return []inventory.InventoryItem{}, nil
	}

	var itemModels []models.InventoryItemModel
	if err := r.db.WithContext(ctx).
		Where("part_number IN ?", partNumbers).
		Order("part_number ASC").
		Find(&itemModels).Error; err != nil {
		return nil, err
	}

	items := make([]inventory.InventoryItem, len(itemModels))
	for i, model := range itemModels {
		items[i] = *model.ToDomain()
	}
	return items, nil
}

// Save creates or updates an inventory item
func (r *GormInventoryItemRepository) Save(ctx context.Context, item *inventory.InventoryItem) error {
	model := models.InventoryItemModelFromDomain(item)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormInventoryItemRepository) SaveWithLock(ctx context.Context, item *inventory.InventoryItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Get current version from database
		var currentVersion int
		if err := tx.Model(&models.InventoryItemModel{}).
			Where("id = ?", item.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		// Check version matches
		if currentVersion != item.Version {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "The inventory item has been modified by another user")
		}

		// Increment version
		item.Version++
		item.UpdatedAt = time.Now()

		// Update item with version check
		result := tx.Model(&models.InventoryItemModel{}).
			Where("id = ? AND version = ?", item.ID, currentVersion).
			Updates(map[string]interface{}{
				"description": item.Description,
				"on_hand":     item.OnHand,
				"version":     item.Version,
				"updated_at":  item.UpdatedAt,
			})

		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "The inventory item has been modified by another user")
		}

		return nil
	})
}

// Ensure GormInventoryItemRepository implements InventoryItemRepository
var _ inventory.InventoryItemRepository = (*GormInventoryItemRepository)(nil)
