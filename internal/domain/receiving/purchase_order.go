package receiving

import (
	"fmt"
	"time"

	"github.com/erp/receiving/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderStatus represents the status of a purchase order
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusOpen   PurchaseOrderStatus = "OPEN"
	PurchaseOrderStatusClosed PurchaseOrderStatus = "CLOSED"
)

// IsValid checks if the status is a valid PurchaseOrderStatus
func (s PurchaseOrderStatus) IsValid() bool {
	switch s {
	case PurchaseOrderStatusOpen, PurchaseOrderStatusClosed:
		return true
	}
	return false
}

// String returns the string representation of PurchaseOrderStatus
func (s PurchaseOrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Open and Closed alternate; there are no terminal states because a closed
// order may be reopened to correct its allocations.
func (s PurchaseOrderStatus) CanTransitionTo(target PurchaseOrderStatus) bool {
	switch s {
	case PurchaseOrderStatusOpen:
		return target == PurchaseOrderStatusClosed
	case PurchaseOrderStatusClosed:
		return target == PurchaseOrderStatusOpen
	}
	return false
}

// PartReceipt represents one purchased part within a purchase order: the
// quantity of that part that arrives when the order is closed into inventory.
// Receipts are immutable once the purchase order is closed.
type PartReceipt struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	PurchaseOrderID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	PartNumber       string          `gorm:"type:varchar(50);not null"`
	PartDescription  string          `gorm:"type:varchar(200)"`
	QuantityReceived decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PartReceipt) TableName() string {
	return "purchase_order_receipts"
}

// NewPartReceipt creates a new part receipt line.
// A zero quantity is allowed: a line may arrive empty and contribute nothing
// to allocation.
func NewPartReceipt(purchaseOrderID uuid.UUID, partNumber, partDescription string, quantity decimal.Decimal) (*PartReceipt, error) {
	if partNumber == "" {
		return nil, shared.NewDomainError("INVALID_PART_NUMBER", "Part number cannot be empty")
	}
	if len(partNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_PART_NUMBER", "Part number cannot exceed 50 characters")
	}
	if quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Received quantity cannot be negative")
	}

	now := time.Now()
	return &PartReceipt{
		ID:               uuid.New(),
		PurchaseOrderID:  purchaseOrderID,
		PartNumber:       partNumber,
		PartDescription:  partDescription,
		QuantityReceived: quantity,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// PurchaseOrder represents a purchase order aggregate root scoped to the
// receiving workflow: a batch of parts received from a supplier that must be
// divided between open sales orders and generic stock when the order closes.
type PurchaseOrder struct {
	shared.BaseAggregateRoot
	OrderNumber  string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	SupplierName string              `gorm:"type:varchar(200);not null"`
	Receipts     []PartReceipt       `gorm:"foreignKey:PurchaseOrderID;references:ID"`
	Status       PurchaseOrderStatus `gorm:"type:varchar(20);not null;default:'OPEN'"`
	Remark       string              `gorm:"type:text"`
	ClosedAt     *time.Time          `gorm:"index"`
	ClosedBy     *uuid.UUID          `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// NewPurchaseOrder creates a new open purchase order
func NewPurchaseOrder(orderNumber, supplierName string) (*PurchaseOrder, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if len(orderNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot exceed 50 characters")
	}
	if supplierName == "" {
		return nil, shared.NewDomainError("INVALID_SUPPLIER_NAME", "Supplier name cannot be empty")
	}

	return &PurchaseOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		SupplierName:      supplierName,
		Receipts:          make([]PartReceipt, 0),
		Status:            PurchaseOrderStatusOpen,
	}, nil
}

// AddReceipt adds a part receipt line to the order.
// Only allowed while the order is open; each part appears at most once.
func (o *PurchaseOrder) AddReceipt(partNumber, partDescription string, quantity decimal.Decimal) (*PartReceipt, error) {
	if !o.IsOpen() {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add receipts to a closed order")
	}
	for _, r := range o.Receipts {
		if r.PartNumber == partNumber {
			return nil, shared.NewDomainError("DUPLICATE_PART", fmt.Sprintf("Part %s already exists in order", partNumber))
		}
	}

	receipt, err := NewPartReceipt(o.ID, partNumber, partDescription, quantity)
	if err != nil {
		return nil, err
	}

	o.Receipts = append(o.Receipts, *receipt)
	o.UpdatedAt = time.Now()

	return receipt, nil
}

// Close transitions the order from Open to Closed.
// The caller is responsible for having validated and persisted the allocation
// set for every receipt line before closing; the receipts freeze at this point.
func (o *PurchaseOrder) Close(closedBy uuid.UUID) error {
	if !o.Status.CanTransitionTo(PurchaseOrderStatusClosed) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot close order in %s status", o.Status))
	}

	now := time.Now()
	o.Status = PurchaseOrderStatusClosed
	o.ClosedAt = &now
	if closedBy != uuid.Nil {
		o.ClosedBy = &closedBy
	}
	o.UpdatedAt = now

	o.AddDomainEvent(NewPurchaseOrderClosedEvent(o))

	return nil
}

// Reopen transitions the order from Closed back to Open so its allocations can
// be corrected. The inventory and fulfillment effects of the close must be
// reversed by the caller within the same transaction.
func (o *PurchaseOrder) Reopen(reopenedBy uuid.UUID) error {
	if !o.Status.CanTransitionTo(PurchaseOrderStatusOpen) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reopen order in %s status", o.Status))
	}

	o.Status = PurchaseOrderStatusOpen
	o.ClosedAt = nil
	o.ClosedBy = nil
	o.UpdatedAt = time.Now()

	o.AddDomainEvent(NewPurchaseOrderReopenedEvent(o, reopenedBy))

	return nil
}

// SetRemark sets the order remark
func (o *PurchaseOrder) SetRemark(remark string) {
	o.Remark = remark
	o.UpdatedAt = time.Now()
}

// IsOpen returns true if the order is open
func (o *PurchaseOrder) IsOpen() bool {
	return o.Status == PurchaseOrderStatusOpen
}

// IsClosed returns true if the order is closed
func (o *PurchaseOrder) IsClosed() bool {
	return o.Status == PurchaseOrderStatusClosed
}

// HasPart returns true if the order contains a receipt line for the part
func (o *PurchaseOrder) HasPart(partNumber string) bool {
	return o.ReceiptFor(partNumber) != nil
}

// ReceiptFor returns the receipt line for a part, or nil if absent
func (o *PurchaseOrder) ReceiptFor(partNumber string) *PartReceipt {
	for idx := range o.Receipts {
		if o.Receipts[idx].PartNumber == partNumber {
			return &o.Receipts[idx]
		}
	}
	return nil
}

// PartNumbers returns the part numbers of all receipt lines in order
func (o *PurchaseOrder) PartNumbers() []string {
	parts := make([]string, len(o.Receipts))
	for i, r := range o.Receipts {
		parts[i] = r.PartNumber
	}
	return parts
}

// TotalReceivedQuantity returns the total received quantity across all lines
func (o *PurchaseOrder) TotalReceivedQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, r := range o.Receipts {
		total = total.Add(r.QuantityReceived)
	}
	return total
}

// ReceiptCount returns the number of receipt lines in the order
func (o *PurchaseOrder) ReceiptCount() int {
	return len(o.Receipts)
}
