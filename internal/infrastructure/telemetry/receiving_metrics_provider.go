// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormReceivingMetricsProvider implements ReceivingMetricsProvider using GORM.
// It queries the purchase_orders and sales_order_lines tables directly for
// aggregated metrics.
type GormReceivingMetricsProvider struct {
	db *gorm.DB
}

// NewGormReceivingMetricsProvider creates a new GormReceivingMetricsProvider.
func NewGormReceivingMetricsProvider(db *gorm.DB) *GormReceivingMetricsProvider {
	return &GormReceivingMetricsProvider{db: db}
}

// GetOpenPurchaseOrderCount returns the number of purchase orders still open.
func (p *GormReceivingMetricsProvider) GetOpenPurchaseOrderCount(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("purchase_orders").
		Where("status = ?", "OPEN").
		Count(&count).Error

	return count, err
}

// GetOpenDemandQuantity returns the total unfulfilled quantity across open
// sales order lines.
func (p *GormReceivingMetricsProvider) GetOpenDemandQuantity(ctx context.Context) (decimal.Decimal, error) {
	type result struct {
		Total decimal.Decimal `gorm:"column:total"`
	}

	var r result
	err := p.db.WithContext(ctx).
		Table("sales_order_lines").
		Select("COALESCE(SUM(quantity_ordered - quantity_fulfilled), 0) as total").
		Where("status = ?", "OPEN").
		Scan(&r).Error

	if err != nil {
		return decimal.Zero, err
	}

	return r.Total, nil
}
