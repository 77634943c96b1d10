package receiving

import (
	"fmt"

	"github.com/erp/receiving/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ViolationCode identifies a hard allocation invariant breach
type ViolationCode string

const (
	// ViolationNotConserved: allocations plus surplus do not sum to the
	// received quantity for a part
	ViolationNotConserved ViolationCode = "ALLOCATION_NOT_CONSERVED"
	// ViolationReceiptExceeded: allocations for a part total more than was
	// received
	ViolationReceiptExceeded ViolationCode = "RECEIPT_EXCEEDED"
	// ViolationDemandStarved: a line that still needs the part is left short
	// even though the received quantity covers all open demand
	ViolationDemandStarved ViolationCode = "DEMAND_STARVED"
	// ViolationNeedExceeded: a line is allocated more than it needs while
	// supply cannot cover all demand
	ViolationNeedExceeded ViolationCode = "NEED_EXCEEDED"
)

// WarningCode identifies a non-blocking allocation concern
type WarningCode string

// WarningShortAllocation: a line receives less than it needs because supply
// genuinely cannot satisfy all demand. The operation still succeeds.
const WarningShortAllocation WarningCode = "SHORT_ALLOCATION"

// Violation is one hard invariant breach. Violations block persistence; the
// operator is expected to adjust the allocation and resubmit.
type Violation struct {
	Code             ViolationCode   `json:"code"`
	PartNumber       string          `json:"part_number"`
	SalesOrderID     *uuid.UUID      `json:"sales_order_id,omitempty"`
	SalesOrderNumber string          `json:"sales_order_number,omitempty"`
	Shortfall        decimal.Decimal `json:"shortfall"`
	Message          string          `json:"message"`
}

// Warning is one non-blocking concern surfaced alongside a successful result
type Warning struct {
	Code             WarningCode     `json:"code"`
	PartNumber       string          `json:"part_number"`
	SalesOrderID     uuid.UUID       `json:"sales_order_id"`
	SalesOrderNumber string          `json:"sales_order_number"`
	Shortfall        decimal.Decimal `json:"shortfall"`
	Message          string          `json:"message"`
}

// ValidationResult is the outcome of validating an allocation batch: either
// clean, or an itemized list of violations and warnings. Expected business
// violations are data, not errors; only malformed input is reported as an
// error.
type ValidationResult struct {
	Violations []Violation `json:"violations"`
	Warnings   []Warning   `json:"warnings"`
}

// IsValid returns true if the batch may be persisted. Warnings do not block.
func (r ValidationResult) IsValid() bool {
	return len(r.Violations) == 0
}

// ValidateCell checks a single edited grid cell against the receipt bound:
// the edited value plus the other allocations for the part must not exceed
// the received quantity. It backs the per-keystroke check in the allocation
// grid; the full batch is always revalidated at submit time.
func ValidateCell(receipt PartReceipt, totalOfOthers, edited decimal.Decimal) (*Violation, error) {
	if edited.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Allocation quantity cannot be negative")
	}

	total := totalOfOthers.Add(edited)
	if total.GreaterThan(receipt.QuantityReceived) {
		return &Violation{
			Code:       ViolationReceiptExceeded,
			PartNumber: receipt.PartNumber,
			Shortfall:  total.Sub(receipt.QuantityReceived),
			Message: fmt.Sprintf("Allocating %s would bring part %s to %s, exceeding the received quantity %s",
				edited.String(), receipt.PartNumber, total.String(), receipt.QuantityReceived.String()),
		}, nil
	}
	return nil, nil
}

// ValidateBatch validates a full allocation batch against the receipts and
// the demand snapshot.
//
// Malformed input (negative quantities, unknown parts or sales orders,
// duplicate cells) returns an error immediately. Business violations are
// collected per part and sales order and returned in the result; the caller
// decides whether to persist based on IsValid.
func ValidateBatch(receipts []PartReceipt, demandByPart map[string][]DemandLine, batch AllocationBatch) (ValidationResult, error) {
	result := ValidationResult{
		Violations: make([]Violation, 0),
		Warnings:   make([]Warning, 0),
	}

	receiptByPart := make(map[string]PartReceipt, len(receipts))
	for _, r := range receipts {
		receiptByPart[r.PartNumber] = r
	}

	linesBySO := make(map[string]map[uuid.UUID]DemandLine)
	for part, lines := range demandByPart {
		linesBySO[part] = make(map[uuid.UUID]DemandLine, len(lines))
		for _, l := range lines {
			linesBySO[part][l.SalesOrderID] = l
		}
	}

	type cell struct {
		part string
		so   uuid.UUID
	}
	seen := make(map[cell]bool, len(batch.Entries))
	for _, entry := range batch.Entries {
		if entry.Quantity.IsNegative() {
			return result, shared.NewDomainError("INVALID_QUANTITY",
				fmt.Sprintf("Allocation for part %s cannot be negative", entry.PartNumber))
		}
		if _, ok := receiptByPart[entry.PartNumber]; !ok {
			return result, shared.NewDomainError("UNKNOWN_PART",
				fmt.Sprintf("Part %s is not on this purchase order", entry.PartNumber))
		}
		if _, ok := linesBySO[entry.PartNumber][entry.SalesOrderID]; !ok {
			return result, shared.NewDomainError("UNKNOWN_SALES_ORDER",
				fmt.Sprintf("Sales order %s has no open demand for part %s", entry.SalesOrderID, entry.PartNumber))
		}
		c := cell{part: entry.PartNumber, so: entry.SalesOrderID}
		if seen[c] {
			return result, shared.NewDomainError("DUPLICATE_ALLOCATION",
				fmt.Sprintf("Part %s has more than one allocation for sales order %s", entry.PartNumber, entry.SalesOrderID))
		}
		seen[c] = true
	}
	for part, surplus := range batch.SurplusPerPart {
		if _, ok := receiptByPart[part]; !ok {
			return result, shared.NewDomainError("UNKNOWN_PART",
				fmt.Sprintf("Part %s is not on this purchase order", part))
		}
		if surplus.IsNegative() {
			return result, shared.NewDomainError("INVALID_SURPLUS",
				fmt.Sprintf("Surplus for part %s cannot be negative", part))
		}
	}

	allocBySO := make(map[cell]decimal.Decimal, len(batch.Entries))
	for _, entry := range batch.Entries {
		allocBySO[cell{part: entry.PartNumber, so: entry.SalesOrderID}] = entry.Quantity
	}

	for _, receipt := range receipts {
		allocated := batch.AllocatedTotal(receipt.PartNumber)

		if allocated.GreaterThan(receipt.QuantityReceived) {
			result.Violations = append(result.Violations, Violation{
				Code:       ViolationReceiptExceeded,
				PartNumber: receipt.PartNumber,
				Shortfall:  allocated.Sub(receipt.QuantityReceived),
				Message: fmt.Sprintf("Allocations for part %s total %s, exceeding the received quantity %s",
					receipt.PartNumber, allocated.String(), receipt.QuantityReceived.String()),
			})
		} else if surplus, ok := batch.SurplusPerPart[receipt.PartNumber]; ok {
			derived := receipt.QuantityReceived.Sub(allocated)
			if !surplus.Equal(derived) {
				result.Violations = append(result.Violations, Violation{
					Code:       ViolationNotConserved,
					PartNumber: receipt.PartNumber,
					Shortfall:  surplus.Sub(derived).Abs(),
					Message: fmt.Sprintf("Surplus for part %s must be the received quantity minus allocations (%s), got %s",
						receipt.PartNumber, derived.String(), surplus.String()),
				})
			}
		}

		lines := demandByPart[receipt.PartNumber]
		totalNeeded := TotalNeeded(lines)
		hasSurplus := receipt.QuantityReceived.GreaterThanOrEqual(totalNeeded)

		for _, line := range lines {
			allocate := allocBySO[cell{part: receipt.PartNumber, so: line.SalesOrderID}]
			need := line.StillNeeded()

			if hasSurplus {
				if line.IsNeeded() && allocate.LessThan(need) {
					soID := line.SalesOrderID
					result.Violations = append(result.Violations, Violation{
						Code:             ViolationDemandStarved,
						PartNumber:       receipt.PartNumber,
						SalesOrderID:     &soID,
						SalesOrderNumber: line.SalesOrderNumber,
						Shortfall:        need.Sub(allocate),
						Message: fmt.Sprintf("Sales order %s still needs %s of part %s but is allocated %s; the received quantity covers all open demand",
							line.SalesOrderNumber, need.String(), receipt.PartNumber, allocate.String()),
					})
				}
				continue
			}

			if allocate.GreaterThan(need) {
				soID := line.SalesOrderID
				result.Violations = append(result.Violations, Violation{
					Code:             ViolationNeedExceeded,
					PartNumber:       receipt.PartNumber,
					SalesOrderID:     &soID,
					SalesOrderNumber: line.SalesOrderNumber,
					Shortfall:        allocate.Sub(need),
					Message: fmt.Sprintf("Sales order %s is allocated %s of part %s but only needs %s while supply is short",
						line.SalesOrderNumber, allocate.String(), receipt.PartNumber, need.String()),
				})
			} else if line.IsNeeded() && allocate.LessThan(need) {
				result.Warnings = append(result.Warnings, Warning{
					Code:             WarningShortAllocation,
					PartNumber:       receipt.PartNumber,
					SalesOrderID:     line.SalesOrderID,
					SalesOrderNumber: line.SalesOrderNumber,
					Shortfall:        need.Sub(allocate),
					Message: fmt.Sprintf("Sales order %s receives %s of the %s it needs for part %s; supply cannot cover all demand",
						line.SalesOrderNumber, allocate.String(), need.String(), receipt.PartNumber),
				})
			}
		}
	}

	return result, nil
}
