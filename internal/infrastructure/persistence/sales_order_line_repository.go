package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/receiving/internal/domain/sales"
	"github.com/erp/receiving/internal/domain/shared"
	"github.com/erp/receiving/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSalesOrderLineRepository implements SalesOrderLineRepository using GORM
type GormSalesOrderLineRepository struct {
	db *gorm.DB
}

// NewGormSalesOrderLineRepository creates a new GormSalesOrderLineRepository
func NewGormSalesOrderLineRepository(db *gorm.DB) *GormSalesOrderLineRepository {
	return &GormSalesOrderLineRepository{db: db}
}

// FindByID finds a sales order line by ID
func (r *GormSalesOrderLineRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.SalesOrderLine, error) {
	var model models.SalesOrderLineModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpenByParts finds all open lines for the given parts, ordered by
// sales order number. The ordering is what makes allocation suggestions
// first-come-first-served: older order numbers sort first.
func (r *GormSalesOrderLineRepository) FindOpenByParts(ctx context.Context, partNumbers []string) ([]sales.SalesOrderLine, error) {
	if len(partNumbers) == 0 {
		return []sales.SalesOrderLine{}, nil
	}

	var lineModels []models.SalesOrderLineModel
	if err := r.db.WithContext(ctx).
		Where("part_number IN ? AND status = ?", partNumbers, sales.SalesOrderStatusOpen).
		Order("sales_order_number ASC, part_number ASC").
		Find(&lineModels).Error; err != nil {
		return nil, err
	}

	lines := make([]sales.SalesOrderLine, len(lineModels))
	for i, model := range lineModels {
		lines[i] = *model.ToDomain()
	}
	return lines, nil
}

// FindBySalesOrderAndPart finds the line of a sales order for a part,
// regardless of line status
func (r *GormSalesOrderLineRepository) FindBySalesOrderAndPart(ctx context.Context, salesOrderID uuid.UUID, partNumber string) (*sales.SalesOrderLine, error) {
	var model models.SalesOrderLineModel
	if err := r.db.WithContext(ctx).
		Where("sales_order_id = ? AND part_number = ?", salesOrderID, partNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a sales order line
func (r *GormSalesOrderLineRepository) Save(ctx context.Context, line *sales.SalesOrderLine) error {
	model := models.SalesOrderLineModelFromDomain(line)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormSalesOrderLineRepository) SaveWithLock(ctx context.Context, line *sales.SalesOrderLine) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Get current version from database
		var currentVersion int
		if err := tx.Model(&models.SalesOrderLineModel{}).
			Where("id = ?", line.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		// Check version matches
		if currentVersion != line.Version {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "The sales order line has been modified by another user")
		}

		// Increment version
		line.Version++
		line.UpdatedAt = time.Now()

		// Update line with version check
		result := tx.Model(&models.SalesOrderLineModel{}).
			Where("id = ? AND version = ?", line.ID, currentVersion).
			Updates(map[string]interface{}{
				"customer_name":      line.CustomerName,
				"sales_date":         line.SalesDate,
				"status":             line.Status,
				"quantity_ordered":   line.QuantityOrdered,
				"quantity_fulfilled": line.QuantityFulfilled,
				"version":            line.Version,
				"updated_at":         line.UpdatedAt,
			})

		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "The sales order line has been modified by another user")
		}

		return nil
	})
}

// Ensure GormSalesOrderLineRepository implements SalesOrderLineRepository
var _ sales.SalesOrderLineRepository = (*GormSalesOrderLineRepository)(nil)
