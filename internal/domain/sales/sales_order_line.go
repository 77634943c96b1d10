package sales

import (
	"fmt"
	"time"

	"github.com/erp/receiving/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesOrderStatus represents the lifecycle state of a sales order line
type SalesOrderStatus string

const (
	SalesOrderStatusOpen   SalesOrderStatus = "OPEN"
	SalesOrderStatusClosed SalesOrderStatus = "CLOSED"
)

// IsValid checks if the status is a valid SalesOrderStatus
func (s SalesOrderStatus) IsValid() bool {
	switch s {
	case SalesOrderStatusOpen, SalesOrderStatusClosed:
		return true
	}
	return false
}

// String returns the string representation of SalesOrderStatus
func (s SalesOrderStatus) String() string {
	return string(s)
}

// SalesOrderLine represents one part requirement of a customer order.
// Only open lines participate in receiving allocation; fulfillment moves when
// a purchase order closes with allocations against the line and moves back
// when that purchase order is reopened.
type SalesOrderLine struct {
	shared.BaseAggregateRoot
	SalesOrderID      uuid.UUID        `gorm:"type:uuid;not null;index"`
	SalesOrderNumber  string           `gorm:"type:varchar(50);not null;index"`
	CustomerName      string           `gorm:"type:varchar(200);not null"`
	SalesDate         time.Time        `gorm:"not null"`
	Status            SalesOrderStatus `gorm:"type:varchar(20);not null;default:'OPEN'"`
	PartNumber        string           `gorm:"type:varchar(50);not null;index"`
	QuantityOrdered   decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	QuantityFulfilled decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (SalesOrderLine) TableName() string {
	return "sales_order_lines"
}

// NewSalesOrderLine creates a new open sales order line
func NewSalesOrderLine(salesOrderID uuid.UUID, salesOrderNumber, customerName string, salesDate time.Time, partNumber string, quantityOrdered decimal.Decimal) (*SalesOrderLine, error) {
	if salesOrderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SALES_ORDER", "Sales order ID cannot be empty")
	}
	if salesOrderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Sales order number cannot be empty")
	}
	if partNumber == "" {
		return nil, shared.NewDomainError("INVALID_PART_NUMBER", "Part number cannot be empty")
	}
	if quantityOrdered.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Ordered quantity cannot be negative")
	}

	return &SalesOrderLine{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SalesOrderID:      salesOrderID,
		SalesOrderNumber:  salesOrderNumber,
		CustomerName:      customerName,
		SalesDate:         salesDate,
		Status:            SalesOrderStatusOpen,
		PartNumber:        partNumber,
		QuantityOrdered:   quantityOrdered,
		QuantityFulfilled: decimal.Zero,
	}, nil
}

// StillNeeded returns the outstanding quantity on the line, never negative
func (l *SalesOrderLine) StillNeeded() decimal.Decimal {
	needed := l.QuantityOrdered.Sub(l.QuantityFulfilled)
	if needed.IsNegative() {
		return decimal.Zero
	}
	return needed
}

// IsOpen returns true if the line still participates in allocation
func (l *SalesOrderLine) IsOpen() bool {
	return l.Status == SalesOrderStatusOpen
}

// Fulfill records quantity delivered against the line. Fulfillment may exceed
// the ordered quantity: an operator can push surplus units onto an order.
func (l *SalesOrderLine) Fulfill(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Fulfillment quantity cannot be negative")
	}

	l.QuantityFulfilled = l.QuantityFulfilled.Add(quantity)
	l.UpdatedAt = time.Now()

	return nil
}

// ReverseFulfillment removes previously recorded fulfillment, restoring the
// outstanding quantity. Used when the purchase order that fulfilled the line
// is reopened.
func (l *SalesOrderLine) ReverseFulfillment(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Reversal quantity cannot be negative")
	}

	restored := l.QuantityFulfilled.Sub(quantity)
	if restored.IsNegative() {
		return shared.NewDomainError("INVALID_REVERSAL",
			fmt.Sprintf("Cannot reverse %s from line %s: only %s fulfilled", quantity.String(), l.SalesOrderNumber, l.QuantityFulfilled.String()))
	}

	l.QuantityFulfilled = restored
	l.UpdatedAt = time.Now()

	return nil
}

// CloseLine marks the line as no longer participating in allocation
func (l *SalesOrderLine) CloseLine() error {
	if !l.IsOpen() {
		return shared.NewDomainError("INVALID_STATE", "Sales order line is already closed")
	}

	l.Status = SalesOrderStatusClosed
	l.UpdatedAt = time.Now()

	return nil
}
