package receiving

import (
	"time"

	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartReceiptResponse represents one received part line in API responses
type PartReceiptResponse struct {
	ID               uuid.UUID       `json:"id"`
	PartNumber       string          `json:"part_number"`
	PartDescription  string          `json:"part_description"`
	QuantityReceived decimal.Decimal `json:"quantity_received"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// PurchaseOrderResponse represents a purchase order in API responses
type PurchaseOrderResponse struct {
	ID           uuid.UUID             `json:"id"`
	OrderNumber  string                `json:"order_number"`
	SupplierName string                `json:"supplier_name"`
	Status       string                `json:"status"`
	Remark       string                `json:"remark"`
	Receipts     []PartReceiptResponse `json:"receipts"`
	ClosedAt     *time.Time            `json:"closed_at,omitempty"`
	ClosedBy     *uuid.UUID            `json:"closed_by,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	Version      int                   `json:"version"`
}

// PurchaseOrderDetailResponse is a purchase order together with its saved
// allocation ledger
type PurchaseOrderDetailResponse struct {
	PurchaseOrderResponse
	Allocations []AllocationDecisionResponse `json:"allocations"`
}

// PurchaseOrderListItemResponse represents a purchase order list row
type PurchaseOrderListItemResponse struct {
	ID            uuid.UUID       `json:"id"`
	OrderNumber   string          `json:"order_number"`
	SupplierName  string          `json:"supplier_name"`
	Status        string          `json:"status"`
	PartCount     int             `json:"part_count"`
	TotalReceived decimal.Decimal `json:"total_received"`
	ClosedAt      *time.Time      `json:"closed_at,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PurchaseOrderListFilter represents filter options for the purchase order list
type PurchaseOrderListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=OPEN CLOSED"`
	Supplier string `form:"supplier"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// SuggestedLineResponse represents one demand line with its proposed allocation
type SuggestedLineResponse struct {
	SalesOrderID      uuid.UUID       `json:"sales_order_id"`
	SalesOrderNumber  string          `json:"sales_order_number"`
	CustomerName      string          `json:"customer_name"`
	SalesDate         time.Time       `json:"sales_date"`
	QuantityOrdered   decimal.Decimal `json:"quantity_ordered"`
	QuantityFulfilled decimal.Decimal `json:"quantity_fulfilled"`
	StillNeeded       decimal.Decimal `json:"quantity_still_needed"`
	IsNeeded          bool            `json:"is_needed"`
	AllocateQty       decimal.Decimal `json:"suggested_qty"`
}

// PartSuggestionResponse represents the proposed allocation for one receipt line
type PartSuggestionResponse struct {
	PartNumber       string                  `json:"part_number"`
	PartDescription  string                  `json:"part_description"`
	QuantityReceived decimal.Decimal         `json:"quantity_received"`
	TotalNeeded      decimal.Decimal         `json:"total_needed"`
	HasSurplus       bool                    `json:"has_surplus"`
	Surplus          decimal.Decimal         `json:"suggested_surplus"`
	Lines            []SuggestedLineResponse `json:"lines"`
}

// SuggestionResponse represents the full allocation proposal for a purchase order
type SuggestionResponse struct {
	OrderID     uuid.UUID                `json:"order_id"`
	OrderNumber string                   `json:"order_number"`
	Status      string                   `json:"status"`
	Resumed     bool                     `json:"resumed"`
	Parts       []PartSuggestionResponse `json:"parts"`
}

// AllocationEntryRequest represents one allocation cell in a submitted set
type AllocationEntryRequest struct {
	PartNumber   string          `json:"part_number" binding:"required"`
	SalesOrderID uuid.UUID       `json:"sales_order_id" binding:"required"`
	AllocateQty  decimal.Decimal `json:"allocate_qty"`
}

// SaveAllocationsRequest represents a full allocation set for a purchase order.
// SurplusPerPart is optional; when present it is checked against the surplus
// derived from the allocations.
type SaveAllocationsRequest struct {
	Allocations    []AllocationEntryRequest   `json:"allocations"`
	SurplusPerPart map[string]decimal.Decimal `json:"surplus_per_part"`
}

// ToBatch converts the request into a domain allocation batch
func (r SaveAllocationsRequest) ToBatch() receiving.AllocationBatch {
	entries := make([]receiving.AllocationEntry, len(r.Allocations))
	for i, a := range r.Allocations {
		entries[i] = receiving.AllocationEntry{
			PartNumber:   a.PartNumber,
			SalesOrderID: a.SalesOrderID,
			Quantity:     a.AllocateQty,
		}
	}
	return receiving.AllocationBatch{
		Entries:        entries,
		SurplusPerPart: r.SurplusPerPart,
	}
}

// ValidationResponse represents the outcome of checking an allocation set
type ValidationResponse struct {
	Valid      bool                  `json:"valid"`
	Violations []receiving.Violation `json:"violations"`
	Warnings   []receiving.Warning   `json:"warnings"`
}

// SaveAllocationsResponse represents the outcome of saving an allocation set.
// When Saved is false the set was rejected and Violations explains why.
type SaveAllocationsResponse struct {
	Saved          bool                  `json:"saved"`
	OrderID        uuid.UUID             `json:"order_id"`
	DecisionCount  int                   `json:"decision_count"`
	TotalAllocated decimal.Decimal       `json:"total_allocated"`
	TotalSurplus   decimal.Decimal       `json:"total_surplus"`
	Violations     []receiving.Violation `json:"violations,omitempty"`
	Warnings       []receiving.Warning   `json:"warnings,omitempty"`
}

// CloseOrderRequest represents a request to close a purchase order with its
// final allocation set
type CloseOrderRequest struct {
	Allocations    []AllocationEntryRequest   `json:"allocations"`
	SurplusPerPart map[string]decimal.Decimal `json:"surplus_per_part"`
	Remark         string                     `json:"remark" binding:"omitempty,max=500"`
}

// ToBatch converts the request into a domain allocation batch
func (r CloseOrderRequest) ToBatch() receiving.AllocationBatch {
	return SaveAllocationsRequest{
		Allocations:    r.Allocations,
		SurplusPerPart: r.SurplusPerPart,
	}.ToBatch()
}

// CloseOrderResponse represents the outcome of closing a purchase order.
// When Closed is false the allocation set was rejected and the order is
// still open.
type CloseOrderResponse struct {
	Closed     bool                   `json:"closed"`
	Order      *PurchaseOrderResponse `json:"order,omitempty"`
	Violations []receiving.Violation  `json:"violations,omitempty"`
	Warnings   []receiving.Warning    `json:"warnings,omitempty"`
}

// AllocationDecisionResponse represents one saved ledger row
type AllocationDecisionResponse struct {
	ID           uuid.UUID       `json:"id"`
	PartNumber   string          `json:"part_number"`
	SalesOrderID *uuid.UUID      `json:"sales_order_id,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	IsSurplus    bool            `json:"is_surplus"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ToPartReceiptResponse converts a domain receipt line to a response DTO
func ToPartReceiptResponse(receipt *receiving.PartReceipt) PartReceiptResponse {
	return PartReceiptResponse{
		ID:               receipt.ID,
		PartNumber:       receipt.PartNumber,
		PartDescription:  receipt.PartDescription,
		QuantityReceived: receipt.QuantityReceived,
		CreatedAt:        receipt.CreatedAt,
		UpdatedAt:        receipt.UpdatedAt,
	}
}

// ToPurchaseOrderResponse converts a domain purchase order to a response DTO
func ToPurchaseOrderResponse(order *receiving.PurchaseOrder) PurchaseOrderResponse {
	receipts := make([]PartReceiptResponse, len(order.Receipts))
	for i := range order.Receipts {
		receipts[i] = ToPartReceiptResponse(&order.Receipts[i])
	}
	return PurchaseOrderResponse{
		ID:           order.ID,
		OrderNumber:  order.OrderNumber,
		SupplierName: order.SupplierName,
		Status:       order.Status.String(),
		Remark:       order.Remark,
		Receipts:     receipts,
		ClosedAt:     order.ClosedAt,
		ClosedBy:     order.ClosedBy,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
		Version:      order.Version,
	}
}

// ToPurchaseOrderListItemResponse converts a domain purchase order to a list row
func ToPurchaseOrderListItemResponse(order *receiving.PurchaseOrder) PurchaseOrderListItemResponse {
	return PurchaseOrderListItemResponse{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		SupplierName:  order.SupplierName,
		Status:        order.Status.String(),
		PartCount:     order.ReceiptCount(),
		TotalReceived: order.TotalReceivedQuantity(),
		ClosedAt:      order.ClosedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

// ToPurchaseOrderListItemResponses converts a slice of domain purchase orders to list rows
func ToPurchaseOrderListItemResponses(orders []receiving.PurchaseOrder) []PurchaseOrderListItemResponse {
	responses := make([]PurchaseOrderListItemResponse, len(orders))
	for i := range orders {
		responses[i] = ToPurchaseOrderListItemResponse(&orders[i])
	}
	return responses
}

// ToSuggestedLineResponse converts a domain suggested line to a response DTO
func ToSuggestedLineResponse(line receiving.SuggestedLine) SuggestedLineResponse {
	return SuggestedLineResponse{
		SalesOrderID:      line.SalesOrderID,
		SalesOrderNumber:  line.SalesOrderNumber,
		CustomerName:      line.CustomerName,
		SalesDate:         line.SalesDate,
		QuantityOrdered:   line.QuantityOrdered,
		QuantityFulfilled: line.QuantityFulfilled,
		StillNeeded:       line.StillNeeded(),
		IsNeeded:          line.IsNeeded(),
		AllocateQty:       line.Allocate,
	}
}

// ToPartSuggestionResponse converts a domain part suggestion to a response DTO
func ToPartSuggestionResponse(suggestion receiving.PartSuggestion) PartSuggestionResponse {
	lines := make([]SuggestedLineResponse, len(suggestion.Lines))
	for i, l := range suggestion.Lines {
		lines[i] = ToSuggestedLineResponse(l)
	}
	return PartSuggestionResponse{
		PartNumber:       suggestion.PartNumber,
		PartDescription:  suggestion.PartDescription,
		QuantityReceived: suggestion.QuantityReceived,
		TotalNeeded:      suggestion.TotalNeeded,
		HasSurplus:       suggestion.HasSurplus,
		Surplus:          suggestion.Surplus,
		Lines:            lines,
	}
}

// ToPartSuggestionResponses converts a slice of domain part suggestions to response DTOs
func ToPartSuggestionResponses(suggestions []receiving.PartSuggestion) []PartSuggestionResponse {
	responses := make([]PartSuggestionResponse, len(suggestions))
	for i := range suggestions {
		responses[i] = ToPartSuggestionResponse(suggestions[i])
	}
	return responses
}

// ToValidationResponse converts a domain validation result to a response DTO
func ToValidationResponse(result receiving.ValidationResult) ValidationResponse {
	return ValidationResponse{
		Valid:      result.IsValid(),
		Violations: result.Violations,
		Warnings:   result.Warnings,
	}
}

// ToAllocationDecisionResponse converts a domain ledger row to a response DTO
func ToAllocationDecisionResponse(decision *receiving.AllocationDecision) AllocationDecisionResponse {
	return AllocationDecisionResponse{
		ID:           decision.ID,
		PartNumber:   decision.PartNumber,
		SalesOrderID: decision.SalesOrderID,
		Quantity:     decision.Quantity,
		IsSurplus:    decision.IsSurplus(),
		UpdatedAt:    decision.UpdatedAt,
	}
}

// ToAllocationDecisionResponses converts a slice of domain ledger rows to response DTOs
func ToAllocationDecisionResponses(decisions []receiving.AllocationDecision) []AllocationDecisionResponse {
	responses := make([]AllocationDecisionResponse, len(decisions))
	for i := range decisions {
		responses[i] = ToAllocationDecisionResponse(&decisions[i])
	}
	return responses
}
