package models

import (
	"time"

	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/erp/receiving/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderModel is the persistence model for the PurchaseOrder aggregate root.
type PurchaseOrderModel struct {
	AggregateModel
	OrderNumber  string                        `gorm:"type:varchar(50);not null;uniqueIndex"`
	SupplierName string                        `gorm:"type:varchar(200);not null"`
	Receipts     []PartReceiptModel            `gorm:"foreignKey:PurchaseOrderID;references:ID"`
	Status       receiving.PurchaseOrderStatus `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	Remark       string                        `gorm:"type:text"`
	ClosedAt     *time.Time                    `gorm:"index"`
	ClosedBy     *uuid.UUID                    `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the persistence model to a domain PurchaseOrder entity.
func (m *PurchaseOrderModel) ToDomain() *receiving.PurchaseOrder {
	order := &receiving.PurchaseOrder{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		OrderNumber:  m.OrderNumber,
		SupplierName: m.SupplierName,
		Status:       m.Status,
		Remark:       m.Remark,
		ClosedAt:     m.ClosedAt,
		ClosedBy:     m.ClosedBy,
		Receipts:     make([]receiving.PartReceipt, len(m.Receipts)),
	}
	for i, receipt := range m.Receipts {
		order.Receipts[i] = *receipt.ToDomain()
	}
	return order
}

// FromDomain populates the persistence model from a domain PurchaseOrder entity.
func (m *PurchaseOrderModel) FromDomain(o *receiving.PurchaseOrder) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.SupplierName = o.SupplierName
	m.Status = o.Status
	m.Remark = o.Remark
	m.ClosedAt = o.ClosedAt
	m.ClosedBy = o.ClosedBy
	m.Receipts = make([]PartReceiptModel, len(o.Receipts))
	for i, receipt := range o.Receipts {
		m.Receipts[i] = *PartReceiptModelFromDomain(&receipt)
	}
}

// PurchaseOrderModelFromDomain creates a new persistence model from a domain PurchaseOrder entity.
func PurchaseOrderModelFromDomain(o *receiving.PurchaseOrder) *PurchaseOrderModel {
	m := &PurchaseOrderModel{}
	m.FromDomain(o)
	return m
}

// PartReceiptModel is the persistence model for the PartReceipt entity.
type PartReceiptModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	PurchaseOrderID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	PartNumber       string          `gorm:"type:varchar(50);not null;index"`
	PartDescription  string          `gorm:"type:varchar(200)"`
	QuantityReceived decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PartReceiptModel) TableName() string {
	return "purchase_order_receipts"
}

// ToDomain converts the persistence model to a domain PartReceipt entity.
func (m *PartReceiptModel) ToDomain() *receiving.PartReceipt {
	return &receiving.PartReceipt{
		ID:               m.ID,
		PurchaseOrderID:  m.PurchaseOrderID,
		PartNumber:       m.PartNumber,
		PartDescription:  m.PartDescription,
		QuantityReceived: m.QuantityReceived,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// PartReceiptModelFromDomain creates a new persistence model from a domain PartReceipt entity.
func PartReceiptModelFromDomain(r *receiving.PartReceipt) *PartReceiptModel {
	return &PartReceiptModel{
		ID:               r.ID,
		PurchaseOrderID:  r.PurchaseOrderID,
		PartNumber:       r.PartNumber,
		PartDescription:  r.PartDescription,
		QuantityReceived: r.QuantityReceived,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

// AllocationDecisionModel is the persistence model for the allocation ledger.
// A row with a NULL sales order references the surplus portion of a part.
type AllocationDecisionModel struct {
	BaseModel
	PurchaseOrderID uuid.UUID       `gorm:"type:uuid;not null;index"`
	PartNumber      string          `gorm:"type:varchar(50);not null"`
	SalesOrderID    *uuid.UUID      `gorm:"type:uuid;index"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (AllocationDecisionModel) TableName() string {
	return "allocation_decisions"
}

// ToDomain converts the persistence model to a domain AllocationDecision entity.
func (m *AllocationDecisionModel) ToDomain() *receiving.AllocationDecision {
	return &receiving.AllocationDecision{
		BaseEntity:      m.BaseModel.ToDomain(),
		PurchaseOrderID: m.PurchaseOrderID,
		PartNumber:      m.PartNumber,
		SalesOrderID:    m.SalesOrderID,
		Quantity:        m.Quantity,
	}
}

// AllocationDecisionModelFromDomain creates a new persistence model from a domain AllocationDecision entity.
func AllocationDecisionModelFromDomain(d *receiving.AllocationDecision) *AllocationDecisionModel {
	m := &AllocationDecisionModel{
		PurchaseOrderID: d.PurchaseOrderID,
		PartNumber:      d.PartNumber,
		SalesOrderID:    d.SalesOrderID,
		Quantity:        d.Quantity,
	}
	m.FromDomainBaseEntity(d.BaseEntity)
	return m
}
