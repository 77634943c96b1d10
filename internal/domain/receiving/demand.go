package receiving

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DemandLine represents one open sales order's outstanding need for a part.
// It is a read-only snapshot recomputed on every suggestion request and is
// never persisted by this package.
type DemandLine struct {
	SalesOrderID      uuid.UUID       `json:"sales_order_id"`
	SalesOrderNumber  string          `json:"sales_order_number"`
	CustomerName      string          `json:"customer_name"`
	SalesDate         time.Time       `json:"sales_date"`
	PartNumber        string          `json:"part_number"`
	QuantityOrdered   decimal.Decimal `json:"quantity_ordered"`
	QuantityFulfilled decimal.Decimal `json:"quantity_fulfilled"`
}

// StillNeeded returns the outstanding quantity for the line, never negative.
// A line over-fulfilled by an earlier surplus push simply needs nothing more.
func (l DemandLine) StillNeeded() decimal.Decimal {
	needed := l.QuantityOrdered.Sub(l.QuantityFulfilled)
	if needed.IsNegative() {
		return decimal.Zero
	}
	return needed
}

// IsNeeded returns true if the line still has outstanding quantity
func (l DemandLine) IsNeeded() bool {
	return l.StillNeeded().IsPositive()
}

// SortDemandFIFO orders demand lines by sales order number ascending.
// The comparison is plain byte-wise string order, not numeric: this matches
// the order-number sequence convention that decides who is served first when
// supply is short.
func SortDemandFIFO(lines []DemandLine) {
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].SalesOrderNumber != lines[j].SalesOrderNumber {
			return lines[i].SalesOrderNumber < lines[j].SalesOrderNumber
		}
		return lines[i].SalesOrderID.String() < lines[j].SalesOrderID.String()
	})
}

// TotalNeeded returns the sum of outstanding quantities over lines that still
// need the part
func TotalNeeded(lines []DemandLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		if l.IsNeeded() {
			total = total.Add(l.StillNeeded())
		}
	}
	return total
}

// GroupDemandByPart groups demand lines by part number and FIFO-sorts each
// group. Parts with no open demand are simply absent from the result.
func GroupDemandByPart(lines []DemandLine) map[string][]DemandLine {
	grouped := make(map[string][]DemandLine)
	for _, l := range lines {
		grouped[l.PartNumber] = append(grouped[l.PartNumber], l)
	}
	for part := range grouped {
		SortDemandFIFO(grouped[part])
	}
	return grouped
}
