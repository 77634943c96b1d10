package receiving

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SuggestedLine is one demand line together with its suggested allocation
type SuggestedLine struct {
	DemandLine
	Allocate decimal.Decimal `json:"allocate"`
}

// PartSuggestion is the suggested allocation for one receipt line: a
// per-sales-order split of the received quantity plus the surplus returned to
// stock. The suggestion always satisfies the allocation invariants, so the
// operator may accept it unchanged.
type PartSuggestion struct {
	PartNumber       string          `json:"part_number"`
	PartDescription  string          `json:"part_description"`
	QuantityReceived decimal.Decimal `json:"quantity_received"`
	TotalNeeded      decimal.Decimal `json:"total_needed"`
	HasSurplus       bool            `json:"has_surplus"`
	Surplus          decimal.Decimal `json:"surplus"`
	Lines            []SuggestedLine `json:"lines"`
}

// TotalAllocated returns the sum of suggested allocations over all lines
func (s PartSuggestion) TotalAllocated() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Allocate)
	}
	return total
}

// SuggestPart computes the default allocation for one receipt line.
//
// The received quantity is walked across the FIFO-ordered demand lines,
// giving each line at most its outstanding need, oldest order number first.
// Whatever remains after every open need is met becomes surplus and returns
// to generic stock; suggested allocations never exceed a line's need, so
// pushing extra units onto an order is always an explicit operator edit.
func SuggestPart(receipt PartReceipt, demand []DemandLine) PartSuggestion {
	lines := make([]DemandLine, len(demand))
	copy(lines, demand)
	SortDemandFIFO(lines)

	totalNeeded := TotalNeeded(lines)
	remaining := receipt.QuantityReceived
	suggested := make([]SuggestedLine, 0, len(lines))

	for _, line := range lines {
		allocate := decimal.Zero
		need := line.StillNeeded()
		if need.IsPositive() && remaining.IsPositive() {
			allocate = decimal.Min(need, remaining)
			remaining = remaining.Sub(allocate)
		}
		suggested = append(suggested, SuggestedLine{DemandLine: line, Allocate: allocate})
	}

	return PartSuggestion{
		PartNumber:       receipt.PartNumber,
		PartDescription:  receipt.PartDescription,
		QuantityReceived: receipt.QuantityReceived,
		TotalNeeded:      totalNeeded,
		HasSurplus:       receipt.QuantityReceived.GreaterThanOrEqual(totalNeeded),
		Surplus:          remaining,
		Lines:            suggested,
	}
}

// ResumePart recomputes the suggestion for one receipt line on top of
// previously saved decisions. Saved quantities win over fresh suggestions;
// lines that gained demand since the save get a fresh suggestion from
// whatever quantity the saved decisions left unclaimed; saved rows whose
// sales order has dropped out of the snapshot are ignored. Surplus is always
// rederived, never read back from the ledger.
func ResumePart(receipt PartReceipt, demand []DemandLine, saved []AllocationDecision) PartSuggestion {
	savedBySO := make(map[uuid.UUID]decimal.Decimal)
	for _, d := range saved {
		if d.IsSurplus() || d.PartNumber != receipt.PartNumber {
			continue
		}
		savedBySO[*d.SalesOrderID] = d.Quantity
	}
	if len(savedBySO) == 0 {
		return SuggestPart(receipt, demand)
	}

	lines := make([]DemandLine, len(demand))
	copy(lines, demand)
	SortDemandFIFO(lines)

	// Stale decisions reference orders no longer in the snapshot; they do not
	// claim any quantity.
	claimed := decimal.Zero
	for _, line := range lines {
		if qty, ok := savedBySO[line.SalesOrderID]; ok {
			claimed = claimed.Add(qty)
		}
	}

	remaining := receipt.QuantityReceived.Sub(claimed)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	allocated := decimal.Zero
	suggested := make([]SuggestedLine, 0, len(lines))
	for _, line := range lines {
		allocate := decimal.Zero
		if qty, ok := savedBySO[line.SalesOrderID]; ok {
			allocate = qty
		} else {
			need := line.StillNeeded()
			if need.IsPositive() && remaining.IsPositive() {
				allocate = decimal.Min(need, remaining)
				remaining = remaining.Sub(allocate)
			}
		}
		allocated = allocated.Add(allocate)
		suggested = append(suggested, SuggestedLine{DemandLine: line, Allocate: allocate})
	}

	totalNeeded := TotalNeeded(lines)
	return PartSuggestion{
		PartNumber:       receipt.PartNumber,
		PartDescription:  receipt.PartDescription,
		QuantityReceived: receipt.QuantityReceived,
		TotalNeeded:      totalNeeded,
		HasSurplus:       receipt.QuantityReceived.GreaterThanOrEqual(totalNeeded),
		Surplus:          receipt.QuantityReceived.Sub(allocated),
		Lines:            suggested,
	}
}
