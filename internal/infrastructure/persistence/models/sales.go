package models

import (
	"time"

	"github.com/erp/receiving/internal/domain/sales"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesOrderLineModel is the persistence model for the SalesOrderLine aggregate root.
// The (sales_order_id, part_number) pair is unique: a sales order carries at
// most one line per part.
type SalesOrderLineModel struct {
	AggregateModel
	SalesOrderID      uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_sales_order_line_order_part,priority:1"`
	SalesOrderNumber  string                 `gorm:"type:varchar(50);not null;index"`
	CustomerName      string                 `gorm:"type:varchar(200);not null"`
	SalesDate         time.Time              `gorm:"not null"`
	Status            sales.SalesOrderStatus `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	PartNumber        string                 `gorm:"type:varchar(50);not null;uniqueIndex:idx_sales_order_line_order_part,priority:2;index"`
	QuantityOrdered   decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	QuantityFulfilled decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (SalesOrderLineModel) TableName() string {
	return "sales_order_lines"
}

// ToDomain converts the persistence model to a domain SalesOrderLine entity.
func (m *SalesOrderLineModel) ToDomain() *sales.SalesOrderLine {
	return &sales.SalesOrderLine{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		SalesOrderID:      m.SalesOrderID,
		SalesOrderNumber:  m.SalesOrderNumber,
		CustomerName:      m.CustomerName,
		SalesDate:         m.SalesDate,
		Status:            m.Status,
		PartNumber:        m.PartNumber,
		QuantityOrdered:   m.QuantityOrdered,
		QuantityFulfilled: m.QuantityFulfilled,
	}
}

// FromDomain populates the persistence model from a domain SalesOrderLine entity.
func (m *SalesOrderLineModel) FromDomain(l *sales.SalesOrderLine) {
	m.FromDomainAggregateRoot(l.BaseAggregateRoot)
	m.SalesOrderID = l.SalesOrderID
	m.SalesOrderNumber = l.SalesOrderNumber
	m.CustomerName = l.CustomerName
	m.SalesDate = l.SalesDate
	m.Status = l.Status
	m.PartNumber = l.PartNumber
	m.QuantityOrdered = l.QuantityOrdered
	m.QuantityFulfilled = l.QuantityFulfilled
}

// SalesOrderLineModelFromDomain creates a new persistence model from a domain SalesOrderLine entity.
func SalesOrderLineModelFromDomain(l *sales.SalesOrderLine) *SalesOrderLineModel {
	m := &SalesOrderLineModel{}
	m.FromDomain(l)
	return m
}
