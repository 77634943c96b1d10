package receiving

import (
	"time"

	"github.com/erp/receiving/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypePurchaseOrder = "PurchaseOrder"

// Event type constants
const (
	EventTypePurchaseOrderClosed   = "PurchaseOrderClosed"
	EventTypePurchaseOrderReopened = "PurchaseOrderReopened"
	EventTypeAllocationsSaved      = "AllocationsSaved"
)

// ReceivedPartInfo represents a receipt line in an event payload
type ReceivedPartInfo struct {
	PartNumber       string          `json:"part_number"`
	PartDescription  string          `json:"part_description"`
	QuantityReceived decimal.Decimal `json:"quantity_received"`
}

// PurchaseOrderClosedEvent is raised when a purchase order is closed.
// This marks the moment the received quantities are booked into inventory and
// the allocated quantities count against sales-order fulfillment.
type PurchaseOrderClosedEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID          `json:"order_id"`
	OrderNumber  string             `json:"order_number"`
	SupplierName string             `json:"supplier_name"`
	ClosedBy     *uuid.UUID         `json:"closed_by,omitempty"`
	ClosedAt     *time.Time         `json:"closed_at,omitempty"`
	Parts        []ReceivedPartInfo `json:"parts"`
}

// NewPurchaseOrderClosedEvent creates a new PurchaseOrderClosedEvent
func NewPurchaseOrderClosedEvent(order *PurchaseOrder) *PurchaseOrderClosedEvent {
	parts := make([]ReceivedPartInfo, len(order.Receipts))
	for i, r := range order.Receipts {
		parts[i] = ReceivedPartInfo{
			PartNumber:       r.PartNumber,
			PartDescription:  r.PartDescription,
			QuantityReceived: r.QuantityReceived,
		}
	}

	return &PurchaseOrderClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderClosed, AggregateTypePurchaseOrder, order.ID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		SupplierName:    order.SupplierName,
		ClosedBy:        order.ClosedBy,
		ClosedAt:        order.ClosedAt,
		Parts:           parts,
	}
}

// EventType returns the event type name
func (e *PurchaseOrderClosedEvent) EventType() string {
	return EventTypePurchaseOrderClosed
}

// PurchaseOrderReopenedEvent is raised when a closed purchase order is
// reopened and its inventory and fulfillment effects are reversed
type PurchaseOrderReopenedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID  `json:"order_id"`
	OrderNumber string     `json:"order_number"`
	ReopenedBy  *uuid.UUID `json:"reopened_by,omitempty"`
}

// NewPurchaseOrderReopenedEvent creates a new PurchaseOrderReopenedEvent.
// The reopening user is carried on the event only; the aggregate itself keeps
// no record of who reopened it once closed_by is cleared.
func NewPurchaseOrderReopenedEvent(order *PurchaseOrder, reopenedBy uuid.UUID) *PurchaseOrderReopenedEvent {
	event := &PurchaseOrderReopenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderReopened, AggregateTypePurchaseOrder, order.ID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
	}
	if reopenedBy != uuid.Nil {
		event.ReopenedBy = &reopenedBy
	}
	return event
}

// EventType returns the event type name
func (e *PurchaseOrderReopenedEvent) EventType() string {
	return EventTypePurchaseOrderReopened
}

// AllocationsSavedEvent is raised when an allocation set is persisted for an
// open purchase order without closing it
type AllocationsSavedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	DecisionCount  int             `json:"decision_count"`
	TotalAllocated decimal.Decimal `json:"total_allocated"`
	TotalSurplus   decimal.Decimal `json:"total_surplus"`
}

// NewAllocationsSavedEvent creates a new AllocationsSavedEvent
func NewAllocationsSavedEvent(order *PurchaseOrder, decisions []AllocationDecision) *AllocationsSavedEvent {
	totalAllocated := decimal.Zero
	totalSurplus := decimal.Zero
	for _, d := range decisions {
		if d.IsSurplus() {
			totalSurplus = totalSurplus.Add(d.Quantity)
		} else {
			totalAllocated = totalAllocated.Add(d.Quantity)
		}
	}

	return &AllocationsSavedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAllocationsSaved, AggregateTypePurchaseOrder, order.ID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		DecisionCount:   len(decisions),
		TotalAllocated:  totalAllocated,
		TotalSurplus:    totalSurplus,
	}
}

// EventType returns the event type name
func (e *AllocationsSavedEvent) EventType() string {
	return EventTypeAllocationsSaved
}
