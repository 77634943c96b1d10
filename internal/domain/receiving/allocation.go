package receiving

import (
	"time"

	"github.com/erp/receiving/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationDecision is the persisted unit of truth for the allocation ledger:
// how much of one received part goes to one sales order. A nil SalesOrderID
// marks the surplus row, the portion of the part returned to generic stock.
// The full set of decisions for a purchase order is always replaced as a
// whole, never partially updated.
type AllocationDecision struct {
	shared.BaseEntity
	PurchaseOrderID uuid.UUID       `gorm:"type:uuid;not null;index"`
	PartNumber      string          `gorm:"type:varchar(50);not null"`
	SalesOrderID    *uuid.UUID      `gorm:"type:uuid"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (AllocationDecision) TableName() string {
	return "allocation_decisions"
}

// NewAllocationDecision creates a decision assigning quantity of a part to a
// sales order. Zero quantities are legal and recorded: an operator explicitly
// zeroing a line is a decision the resume flow must respect.
func NewAllocationDecision(purchaseOrderID uuid.UUID, partNumber string, salesOrderID uuid.UUID, quantity decimal.Decimal) (*AllocationDecision, error) {
	if partNumber == "" {
		return nil, shared.NewDomainError("INVALID_PART_NUMBER", "Part number cannot be empty")
	}
	if salesOrderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SALES_ORDER", "Sales order ID cannot be empty")
	}
	if quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Allocation quantity cannot be negative")
	}

	soID := salesOrderID
	return &AllocationDecision{
		BaseEntity:      shared.NewBaseEntity(),
		PurchaseOrderID: purchaseOrderID,
		PartNumber:      partNumber,
		SalesOrderID:    &soID,
		Quantity:        quantity,
	}, nil
}

// NewSurplusDecision creates the surplus row for a part: the quantity returned
// to generic stock rather than assigned to any sales order
func NewSurplusDecision(purchaseOrderID uuid.UUID, partNumber string, quantity decimal.Decimal) (*AllocationDecision, error) {
	if partNumber == "" {
		return nil, shared.NewDomainError("INVALID_PART_NUMBER", "Part number cannot be empty")
	}
	if quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_SURPLUS", "Surplus quantity cannot be negative")
	}

	return &AllocationDecision{
		BaseEntity:      shared.NewBaseEntity(),
		PurchaseOrderID: purchaseOrderID,
		PartNumber:      partNumber,
		SalesOrderID:    nil,
		Quantity:        quantity,
	}, nil
}

// IsSurplus returns true if this is the surplus-to-stock row for its part
func (d *AllocationDecision) IsSurplus() bool {
	return d.SalesOrderID == nil
}

// Touch refreshes UpdatedAt on the decision
func (d *AllocationDecision) Touch() {
	d.UpdatedAt = time.Now()
}

// AllocationEntry is one operator-submitted grid cell: the quantity of a part
// assigned to a sales order
type AllocationEntry struct {
	PartNumber   string          `json:"part_number"`
	SalesOrderID uuid.UUID       `json:"sales_order_id"`
	Quantity     decimal.Decimal `json:"allocate_qty"`
}

// AllocationBatch is one full allocation set submitted for a purchase order.
// SurplusPerPart echoes the surplus the operator saw on screen so the
// validator can confirm it is still consistent with the allocations; surplus
// is derived from the allocations, never set independently.
type AllocationBatch struct {
	Entries        []AllocationEntry
	SurplusPerPart map[string]decimal.Decimal
}

// EntriesFor returns the batch entries for one part
func (b AllocationBatch) EntriesFor(partNumber string) []AllocationEntry {
	entries := make([]AllocationEntry, 0)
	for _, e := range b.Entries {
		if e.PartNumber == partNumber {
			entries = append(entries, e)
		}
	}
	return entries
}

// AllocatedTotal returns the sum of allocation quantities for one part
func (b AllocationBatch) AllocatedTotal(partNumber string) decimal.Decimal {
	total := decimal.Zero
	for _, e := range b.Entries {
		if e.PartNumber == partNumber {
			total = total.Add(e.Quantity)
		}
	}
	return total
}

// AllocationSession carries the working state for allocating one purchase
// order: the order with its receipt lines, the current demand snapshot per
// part, and any previously saved decisions. It is built once per request and
// passed explicitly between suggesting, validating, and persisting so all
// three see the same snapshot.
type AllocationSession struct {
	Order  *PurchaseOrder
	Demand map[string][]DemandLine
	Saved  []AllocationDecision
}

// NewAllocationSession builds a session from the order, the raw demand lines
// for the order's parts, and the saved decisions for the order
func NewAllocationSession(order *PurchaseOrder, demand []DemandLine, saved []AllocationDecision) *AllocationSession {
	return &AllocationSession{
		Order:  order,
		Demand: GroupDemandByPart(demand),
		Saved:  saved,
	}
}

// savedFor returns the saved allocation decisions for one part, excluding the
// surplus row, which is always rederived
func (s *AllocationSession) savedFor(partNumber string) []AllocationDecision {
	decisions := make([]AllocationDecision, 0)
	for _, d := range s.Saved {
		if d.PartNumber == partNumber && !d.IsSurplus() {
			decisions = append(decisions, d)
		}
	}
	return decisions
}

// Suggest computes the suggestion for every receipt line of the order,
// resuming from saved decisions where they exist. Receipt order is preserved.
func (s *AllocationSession) Suggest() []PartSuggestion {
	suggestions := make([]PartSuggestion, 0, len(s.Order.Receipts))
	for _, receipt := range s.Order.Receipts {
		suggestions = append(suggestions, ResumePart(receipt, s.Demand[receipt.PartNumber], s.savedFor(receipt.PartNumber)))
	}
	return suggestions
}

// Validate runs the full batch validation against the session's snapshot
func (s *AllocationSession) Validate(batch AllocationBatch) (ValidationResult, error) {
	return ValidateBatch(s.Order.Receipts, s.Demand, batch)
}

// Decisions converts a validated batch into the ledger rows that replace the
// order's decision set. Every submitted entry is kept, including zeros, and
// every receipt line gets exactly one derived surplus row, so the persisted
// rows per part always sum to the received quantity.
func (s *AllocationSession) Decisions(batch AllocationBatch) ([]AllocationDecision, error) {
	decisions := make([]AllocationDecision, 0, len(batch.Entries)+len(s.Order.Receipts))

	for _, entry := range batch.Entries {
		decision, err := NewAllocationDecision(s.Order.ID, entry.PartNumber, entry.SalesOrderID, entry.Quantity)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, *decision)
	}

	for _, receipt := range s.Order.Receipts {
		surplus := receipt.QuantityReceived.Sub(batch.AllocatedTotal(receipt.PartNumber))
		decision, err := NewSurplusDecision(s.Order.ID, receipt.PartNumber, surplus)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, *decision)
	}

	return decisions, nil
}
