package inventory

import (
	"fmt"
	"time"

	"github.com/erp/receiving/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InventoryItem represents the on-hand stock of one part. Receiving closes
// increase it by the surplus returned to stock; reopening a purchase order
// takes that increase back.
type InventoryItem struct {
	shared.BaseAggregateRoot
	PartNumber  string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Description string          `gorm:"type:varchar(200)"`
	OnHand      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// NewInventoryItem creates a new inventory item
func NewInventoryItem(partNumber, description string, onHand decimal.Decimal) (*InventoryItem, error) {
	if partNumber == "" {
		return nil, shared.NewDomainError("INVALID_PART_NUMBER", "Part number cannot be empty")
	}
	if onHand.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "On-hand quantity cannot be negative")
	}

	return &InventoryItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PartNumber:        partNumber,
		Description:       description,
		OnHand:            onHand,
	}, nil
}

// Increase adds quantity to the on-hand stock
func (i *InventoryItem) Increase(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Increase quantity cannot be negative")
	}

	i.OnHand = i.OnHand.Add(quantity)
	i.UpdatedAt = time.Now()

	return nil
}

// Decrease removes quantity from the on-hand stock. The stock can never go
// negative: reversing more than is on hand means the books are inconsistent.
func (i *InventoryItem) Decrease(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Decrease quantity cannot be negative")
	}

	remaining := i.OnHand.Sub(quantity)
	if remaining.IsNegative() {
		return shared.NewDomainError(shared.ErrInsufficientStock.Code,
			fmt.Sprintf("Cannot remove %s of part %s: only %s on hand", quantity.String(), i.PartNumber, i.OnHand.String()))
	}

	i.OnHand = remaining
	i.UpdatedAt = time.Now()

	return nil
}
