package persistence

import (
	"context"

	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/erp/receiving/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAllocationDecisionRepository implements AllocationDecisionRepository using GORM
type GormAllocationDecisionRepository struct {
	db *gorm.DB
}

// NewGormAllocationDecisionRepository creates a new GormAllocationDecisionRepository
func NewGormAllocationDecisionRepository(db *gorm.DB) *GormAllocationDecisionRepository {
	return &GormAllocationDecisionRepository{db: db}
}

// FindByPurchaseOrder returns all decision rows for a purchase order,
// including surplus rows
func (r *GormAllocationDecisionRepository) FindByPurchaseOrder(ctx context.Context, purchaseOrderID uuid.UUID) ([]receiving.AllocationDecision, error) {
	var decisionModels []models.AllocationDecisionModel
	if err := r.db.WithContext(ctx).
		Where("purchase_order_id = ?", purchaseOrderID).
		Order("part_number ASC, created_at ASC").
		Find(&decisionModels).Error; err != nil {
		return nil, err
	}

	decisions := make([]receiving.AllocationDecision, len(decisionModels))
	for i, model := range decisionModels {
		decisions[i] = *model.ToDomain()
	}
	return decisions, nil
}

// ReplaceForPurchaseOrder atomically replaces the full decision set for a
// purchase order. An empty set clears the ledger for the order.
func (r *GormAllocationDecisionRepository) ReplaceForPurchaseOrder(ctx context.Context, purchaseOrderID uuid.UUID, decisions []receiving.AllocationDecision) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("purchase_order_id = ?", purchaseOrderID).
			Delete(&models.AllocationDecisionModel{}).Error; err != nil {
			return err
		}

		if len(decisions) == 0 {
			return nil
		}

		decisionModels := make([]models.AllocationDecisionModel, len(decisions))
		for i := range decisions {
			decisions[i].PurchaseOrderID = purchaseOrderID
			decisionModels[i] = *models.AllocationDecisionModelFromDomain(&decisions[i])
		}
		return tx.Create(&decisionModels).Error
	})
}

// Ensure GormAllocationDecisionRepository implements AllocationDecisionRepository
var _ receiving.AllocationDecisionRepository = (*GormAllocationDecisionRepository)(nil)
