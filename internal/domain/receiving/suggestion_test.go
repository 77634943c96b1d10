package receiving

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers

func testReceipt(t *testing.T, partNumber string, quantity string) PartReceipt {
	qty, err := decimal.NewFromString(quantity)
	require.NoError(t, err)
	receipt, err := NewPartReceipt(uuid.New(), partNumber, "Test part", qty)
	require.NoError(t, err)
	return *receipt
}

func testDemandLine(t *testing.T, orderNumber, partNumber string, ordered, fulfilled string) DemandLine {
	orderedQty, err := decimal.NewFromString(ordered)
	require.NoError(t, err)
	fulfilledQty, err := decimal.NewFromString(fulfilled)
	require.NoError(t, err)
	return DemandLine{
		SalesOrderID:      uuid.New(),
		SalesOrderNumber:  orderNumber,
		CustomerName:      "Test Customer",
		SalesDate:         time.Now(),
		PartNumber:        partNumber,
		QuantityOrdered:   orderedQty,
		QuantityFulfilled: fulfilledQty,
	}
}

func suggestionToBatch(s PartSuggestion) AllocationBatch {
	batch := AllocationBatch{
		Entries:        make([]AllocationEntry, 0, len(s.Lines)),
		SurplusPerPart: map[string]decimal.Decimal{s.PartNumber: s.Surplus},
	}
	for _, line := range s.Lines {
		batch.Entries = append(batch.Entries, AllocationEntry{
			PartNumber:   s.PartNumber,
			SalesOrderID: line.SalesOrderID,
			Quantity:     line.Allocate,
		})
	}
	return batch
}

// ============================================
// DemandLine Tests
// ============================================

func TestDemandLine_StillNeeded(t *testing.T) {
	tests := []struct {
		name      string
		ordered   string
		fulfilled string
		needed    string
		isNeeded  bool
	}{
		{"nothing fulfilled", "4", "0", "4", true},
		{"partially fulfilled", "4", "1.5", "2.5", true},
		{"fully fulfilled", "4", "4", "0", false},
		{"over fulfilled", "4", "6", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := testDemandLine(t, "SO-1", "P-100", tt.ordered, tt.fulfilled)
			assert.True(t, line.StillNeeded().Equal(decimal.RequireFromString(tt.needed)))
			assert.Equal(t, tt.isNeeded, line.IsNeeded())
		})
	}
}

func TestSortDemandFIFO(t *testing.T) {
	t.Run("orders by sales order number ascending", func(t *testing.T) {
		lines := []DemandLine{
			testDemandLine(t, "SO-3", "P-100", "1", "0"),
			testDemandLine(t, "SO-1", "P-100", "1", "0"),
			testDemandLine(t, "SO-2", "P-100", "1", "0"),
		}

		SortDemandFIFO(lines)

		assert.Equal(t, "SO-1", lines[0].SalesOrderNumber)
		assert.Equal(t, "SO-2", lines[1].SalesOrderNumber)
		assert.Equal(t, "SO-3", lines[2].SalesOrderNumber)
	})

	t.Run("compares byte-wise, not numerically", func(t *testing.T) {
		lines := []DemandLine{
			testDemandLine(t, "SO-9", "P-100", "1", "0"),
			testDemandLine(t, "SO-10", "P-100", "1", "0"),
		}

		SortDemandFIFO(lines)

		// "SO-10" sorts before "SO-9" in byte order
		assert.Equal(t, "SO-10", lines[0].SalesOrderNumber)
		assert.Equal(t, "SO-9", lines[1].SalesOrderNumber)
	})
}

func TestGroupDemandByPart(t *testing.T) {
	lines := []DemandLine{
		testDemandLine(t, "SO-2", "P-100", "1", "0"),
		testDemandLine(t, "SO-1", "P-200", "2", "0"),
		testDemandLine(t, "SO-1", "P-100", "3", "0"),
	}

	grouped := GroupDemandByPart(lines)

	require.Len(t, grouped, 2)
	require.Len(t, grouped["P-100"], 2)
	assert.Equal(t, "SO-1", grouped["P-100"][0].SalesOrderNumber)
	assert.Equal(t, "SO-2", grouped["P-100"][1].SalesOrderNumber)
	require.Len(t, grouped["P-200"], 1)
}

// ============================================
// SuggestPart Tests
// ============================================

func TestSuggestPart(t *testing.T) {
	t.Run("surplus exists: every need met, remainder to stock", func(t *testing.T) {
		// Received 10 against SO-1 needing 4 and SO-2 needing 4
		receipt := testReceipt(t, "P-100", "10")
		demand := []DemandLine{
			testDemandLine(t, "SO-2", "P-100", "4", "0"),
			testDemandLine(t, "SO-1", "P-100", "4", "0"),
		}

		s := SuggestPart(receipt, demand)

		assert.True(t, s.HasSurplus)
		assert.True(t, s.TotalNeeded.Equal(decimal.NewFromInt(8)))
		require.Len(t, s.Lines, 2)
		assert.Equal(t, "SO-1", s.Lines[0].SalesOrderNumber)
		assert.True(t, s.Lines[0].Allocate.Equal(decimal.NewFromInt(4)))
		assert.Equal(t, "SO-2", s.Lines[1].SalesOrderNumber)
		assert.True(t, s.Lines[1].Allocate.Equal(decimal.NewFromInt(4)))
		assert.True(t, s.Surplus.Equal(decimal.NewFromInt(2)))
	})

	t.Run("supply short: FIFO order served first", func(t *testing.T) {
		// Received 5 against SO-1 needing 4 and SO-2 needing 4
		receipt := testReceipt(t, "P-100", "5")
		demand := []DemandLine{
			testDemandLine(t, "SO-1", "P-100", "4", "0"),
			testDemandLine(t, "SO-2", "P-100", "4", "0"),
		}

		s := SuggestPart(receipt, demand)

		assert.False(t, s.HasSurplus)
		require.Len(t, s.Lines, 2)
		assert.True(t, s.Lines[0].Allocate.Equal(decimal.NewFromInt(4)))
		assert.True(t, s.Lines[1].Allocate.Equal(decimal.NewFromInt(1)))
		assert.True(t, s.Surplus.IsZero())
	})

	t.Run("no open demand: everything is surplus", func(t *testing.T) {
		receipt := testReceipt(t, "P-100", "7")

		s := SuggestPart(receipt, nil)

		assert.True(t, s.HasSurplus)
		assert.Empty(t, s.Lines)
		assert.True(t, s.TotalNeeded.IsZero())
		assert.True(t, s.Surplus.Equal(decimal.NewFromInt(7)))
	})

	t.Run("zero received: all allocations zero", func(t *testing.T) {
		receipt := testReceipt(t, "P-100", "0")
		demand := []DemandLine{
			testDemandLine(t, "SO-1", "P-100", "4", "0"),
			testDemandLine(t, "SO-2", "P-100", "4", "0"),
		}

		s := SuggestPart(receipt, demand)

		assert.False(t, s.HasSurplus)
		for _, line := range s.Lines {
			assert.True(t, line.Allocate.IsZero())
		}
		assert.True(t, s.Surplus.IsZero())
	})

	t.Run("fulfilled lines receive nothing", func(t *testing.T) {
		receipt := testReceipt(t, "P-100", "3")
		demand := []DemandLine{
			testDemandLine(t, "SO-1", "P-100", "4", "4"),
			testDemandLine(t, "SO-2", "P-100", "4", "0"),
		}

		s := SuggestPart(receipt, demand)

		assert.True(t, s.Lines[0].Allocate.IsZero())
		assert.True(t, s.Lines[1].Allocate.Equal(decimal.NewFromInt(3)))
	})

	t.Run("fractional quantities allocate exactly", func(t *testing.T) {
		receipt := testReceipt(t, "P-100", "3")
		demand := []DemandLine{
			testDemandLine(t, "SO-1", "P-100", "2.5", "0"),
			testDemandLine(t, "SO-2", "P-100", "1.25", "0"),
		}

		s := SuggestPart(receipt, demand)

		assert.False(t, s.HasSurplus)
		assert.True(t, s.Lines[0].Allocate.Equal(decimal.RequireFromString("2.5")))
		assert.True(t, s.Lines[1].Allocate.Equal(decimal.RequireFromString("0.5")))
		assert.True(t, s.Surplus.IsZero())
	})

	t.Run("serves byte-wise FIFO order when short", func(t *testing.T) {
		receipt := testReceipt(t, "P-100", "4")
		demand := []DemandLine{
			testDemandLine(t, "SO-9", "P-100", "4", "0"),
			testDemandLine(t, "SO-10", "P-100", "4", "0"),
		}

		s := SuggestPart(receipt, demand)

		assert.Equal(t, "SO-10", s.Lines[0].SalesOrderNumber)
		assert.True(t, s.Lines[0].Allocate.Equal(decimal.NewFromInt(4)))
		assert.True(t, s.Lines[1].Allocate.IsZero())
	})
}

func TestSuggestPart_Conservation(t *testing.T) {
	// Allocations plus surplus must equal the received quantity exactly for
	// any received quantity and demand shape.
	cases := []struct {
		name     string
		received string
		needs    []string
	}{
		{"surplus", "10", []string{"4", "4"}},
		{"short", "5", []string{"4", "4"}},
		{"exact", "8", []string{"4", "4"}},
		{"no demand", "7", nil},
		{"zero received", "0", []string{"4", "4"}},
		{"fractional", "3.3", []string{"1.1", "2.7"}},
		{"single large need", "2", []string{"100"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			receipt := testReceipt(t, "P-100", tc.received)
			demand := make([]DemandLine, 0, len(tc.needs))
			for i, need := range tc.needs {
				demand = append(demand, testDemandLine(t, "SO-"+string(rune('1'+i)), "P-100", need, "0"))
			}

			s := SuggestPart(receipt, demand)

			total := s.TotalAllocated().Add(s.Surplus)
			assert.True(t, total.Equal(receipt.QuantityReceived),
				"allocated %s + surplus %s != received %s", s.TotalAllocated(), s.Surplus, receipt.QuantityReceived)
		})
	}
}

func TestSuggestPart_AlwaysValid(t *testing.T) {
	// The suggestion must pass its own validator unchanged.
	cases := []struct {
		name     string
		received string
		needs    []string
	}{
		{"surplus", "10", []string{"4", "4"}},
		{"short", "5", []string{"4", "4"}},
		{"no demand", "7", nil},
		{"zero received", "0", []string{"4"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			receipt := testReceipt(t, "P-100", tc.received)
			demand := make([]DemandLine, 0, len(tc.needs))
			for i, need := range tc.needs {
				demand = append(demand, testDemandLine(t, "SO-"+string(rune('1'+i)), "P-100", need, "0"))
			}

			s := SuggestPart(receipt, demand)

			result, err := ValidateBatch([]PartReceipt{receipt}, map[string][]DemandLine{"P-100": demand}, suggestionToBatch(s))
			require.NoError(t, err)
			assert.True(t, result.IsValid(), "violations: %+v", result.Violations)
		})
	}
}

// ============================================
// ResumePart Tests
// ============================================

func TestResumePart(t *testing.T) {
	receipt := testReceipt(t, "P-100", "10")

	t.Run("no saved decisions falls back to fresh suggestion", func(t *testing.T) {
		demand := []DemandLine{testDemandLine(t, "SO-1", "P-100", "4", "0")}

		s := ResumePart(receipt, demand, nil)

		assert.True(t, s.Lines[0].Allocate.Equal(decimal.NewFromInt(4)))
		assert.True(t, s.Surplus.Equal(decimal.NewFromInt(6)))
	})

	t.Run("saved values win over fresh suggestions", func(t *testing.T) {
		line1 := testDemandLine(t, "SO-1", "P-100", "4", "0")
		line2 := testDemandLine(t, "SO-2", "P-100", "4", "0")

		// Operator pushed an extra unit onto SO-1 before saving
		saved1, err := NewAllocationDecision(receipt.PurchaseOrderID, "P-100", line1.SalesOrderID, decimal.NewFromInt(5))
		require.NoError(t, err)
		saved2, err := NewAllocationDecision(receipt.PurchaseOrderID, "P-100", line2.SalesOrderID, decimal.NewFromInt(4))
		require.NoError(t, err)

		s := ResumePart(receipt, []DemandLine{line1, line2}, []AllocationDecision{*saved1, *saved2})

		assert.True(t, s.Lines[0].Allocate.Equal(decimal.NewFromInt(5)))
		assert.True(t, s.Lines[1].Allocate.Equal(decimal.NewFromInt(4)))
		assert.True(t, s.Surplus.Equal(decimal.NewFromInt(1)))
	})

	t.Run("saved zero is respected, not refilled", func(t *testing.T) {
		short := testReceipt(t, "P-100", "5")
		line1 := testDemandLine(t, "SO-1", "P-100", "4", "0")
		line2 := testDemandLine(t, "SO-2", "P-100", "4", "0")

		saved1, err := NewAllocationDecision(short.PurchaseOrderID, "P-100", line1.SalesOrderID, decimal.Zero)
		require.NoError(t, err)
		saved2, err := NewAllocationDecision(short.PurchaseOrderID, "P-100", line2.SalesOrderID, decimal.NewFromInt(4))
		require.NoError(t, err)

		s := ResumePart(short, []DemandLine{line1, line2}, []AllocationDecision{*saved1, *saved2})

		assert.True(t, s.Lines[0].Allocate.IsZero())
		assert.True(t, s.Lines[1].Allocate.Equal(decimal.NewFromInt(4)))
		assert.True(t, s.Surplus.Equal(decimal.NewFromInt(1)))
	})

	t.Run("new demand line gets a fresh suggestion from unclaimed quantity", func(t *testing.T) {
		line1 := testDemandLine(t, "SO-1", "P-100", "4", "0")
		line2 := testDemandLine(t, "SO-2", "P-100", "4", "0")

		// Only SO-1 existed when the operator saved
		saved1, err := NewAllocationDecision(receipt.PurchaseOrderID, "P-100", line1.SalesOrderID, decimal.NewFromInt(4))
		require.NoError(t, err)

		s := ResumePart(receipt, []DemandLine{line1, line2}, []AllocationDecision{*saved1})

		assert.True(t, s.Lines[0].Allocate.Equal(decimal.NewFromInt(4)))
		assert.True(t, s.Lines[1].Allocate.Equal(decimal.NewFromInt(4)))
		assert.True(t, s.Surplus.Equal(decimal.NewFromInt(2)))
	})

	t.Run("stale saved rows are dropped", func(t *testing.T) {
		line1 := testDemandLine(t, "SO-1", "P-100", "4", "0")

		// This sales order has since closed and left the snapshot
		stale, err := NewAllocationDecision(receipt.PurchaseOrderID, "P-100", uuid.New(), decimal.NewFromInt(3))
		require.NoError(t, err)

		s := ResumePart(receipt, []DemandLine{line1}, []AllocationDecision{*stale})

		require.Len(t, s.Lines, 1)
		assert.True(t, s.Lines[0].Allocate.Equal(decimal.NewFromInt(4)))
		assert.True(t, s.Surplus.Equal(decimal.NewFromInt(6)))
	})

	t.Run("surplus is rederived, never read from the ledger", func(t *testing.T) {
		line1 := testDemandLine(t, "SO-1", "P-100", "4", "0")

		saved, err := NewAllocationDecision(receipt.PurchaseOrderID, "P-100", line1.SalesOrderID, decimal.NewFromInt(4))
		require.NoError(t, err)
		// A stored surplus row with a quantity that no longer matches
		surplusRow, err := NewSurplusDecision(receipt.PurchaseOrderID, "P-100", decimal.NewFromInt(99))
		require.NoError(t, err)

		s := ResumePart(receipt, []DemandLine{line1}, []AllocationDecision{*saved, *surplusRow})

		assert.True(t, s.Surplus.Equal(decimal.NewFromInt(6)))
	})

	t.Run("conservation holds after resume", func(t *testing.T) {
		line1 := testDemandLine(t, "SO-1", "P-100", "4", "0")
		line2 := testDemandLine(t, "SO-2", "P-100", "4", "0")

		saved, err := NewAllocationDecision(receipt.PurchaseOrderID, "P-100", line1.SalesOrderID, decimal.NewFromInt(2))
		require.NoError(t, err)

		s := ResumePart(receipt, []DemandLine{line1, line2}, []AllocationDecision{*saved})

		total := s.TotalAllocated().Add(s.Surplus)
		assert.True(t, total.Equal(receipt.QuantityReceived))
	})
}

// ============================================
// AllocationSession Tests
// ============================================

func TestAllocationSession_Suggest(t *testing.T) {
	order, err := NewPurchaseOrder("PO-2026-00042", "Acme Supply")
	require.NoError(t, err)
	_, err = order.AddReceipt("P-100", "Widget", decimal.NewFromInt(10))
	require.NoError(t, err)
	_, err = order.AddReceipt("P-200", "Bracket", decimal.NewFromInt(7))
	require.NoError(t, err)

	demand := []DemandLine{
		testDemandLine(t, "SO-1", "P-100", "4", "0"),
		testDemandLine(t, "SO-2", "P-100", "4", "0"),
	}

	t.Run("produces one suggestion per receipt line", func(t *testing.T) {
		session := NewAllocationSession(order, demand, nil)

		suggestions := session.Suggest()

		require.Len(t, suggestions, 2)
		assert.Equal(t, "P-100", suggestions[0].PartNumber)
		assert.True(t, suggestions[0].Surplus.Equal(decimal.NewFromInt(2)))
		// P-200 has no open demand at all
		assert.Equal(t, "P-200", suggestions[1].PartNumber)
		assert.Empty(t, suggestions[1].Lines)
		assert.True(t, suggestions[1].Surplus.Equal(decimal.NewFromInt(7)))
	})

	t.Run("resumes from saved decisions per part", func(t *testing.T) {
		saved, err := NewAllocationDecision(order.ID, "P-100", demand[0].SalesOrderID, decimal.NewFromInt(6))
		require.NoError(t, err)

		session := NewAllocationSession(order, demand, []AllocationDecision{*saved})

		suggestions := session.Suggest()

		assert.True(t, suggestions[0].Lines[0].Allocate.Equal(decimal.NewFromInt(6)))
		assert.True(t, suggestions[0].Lines[1].Allocate.Equal(decimal.NewFromInt(4)))
		assert.True(t, suggestions[0].Surplus.IsZero())
		assert.True(t, suggestions[1].Surplus.Equal(decimal.NewFromInt(7)))
	})
}

func TestAllocationSession_Decisions(t *testing.T) {
	order, err := NewPurchaseOrder("PO-2026-00042", "Acme Supply")
	require.NoError(t, err)
	_, err = order.AddReceipt("P-100", "Widget", decimal.NewFromInt(10))
	require.NoError(t, err)
	_, err = order.AddReceipt("P-200", "Bracket", decimal.NewFromInt(7))
	require.NoError(t, err)

	line1 := testDemandLine(t, "SO-1", "P-100", "4", "0")
	line2 := testDemandLine(t, "SO-2", "P-100", "4", "0")
	session := NewAllocationSession(order, []DemandLine{line1, line2}, nil)

	t.Run("keeps every entry and derives one surplus row per part", func(t *testing.T) {
		batch := AllocationBatch{
			Entries: []AllocationEntry{
				{PartNumber: "P-100", SalesOrderID: line1.SalesOrderID, Quantity: decimal.NewFromInt(4)},
				{PartNumber: "P-100", SalesOrderID: line2.SalesOrderID, Quantity: decimal.Zero},
			},
		}

		decisions, err := session.Decisions(batch)
		require.NoError(t, err)

		// 2 entries + surplus rows for P-100 and P-200
		require.Len(t, decisions, 4)

		var surplusByPart = map[string]decimal.Decimal{}
		for _, d := range decisions {
			assert.Equal(t, order.ID, d.PurchaseOrderID)
			if d.IsSurplus() {
				surplusByPart[d.PartNumber] = d.Quantity
			}
		}
		require.Len(t, surplusByPart, 2)
		assert.True(t, surplusByPart["P-100"].Equal(decimal.NewFromInt(6)))
		assert.True(t, surplusByPart["P-200"].Equal(decimal.NewFromInt(7)))
	})

	t.Run("per-part rows sum to the received quantity", func(t *testing.T) {
		batch := AllocationBatch{
			Entries: []AllocationEntry{
				{PartNumber: "P-100", SalesOrderID: line1.SalesOrderID, Quantity: decimal.NewFromInt(4)},
				{PartNumber: "P-100", SalesOrderID: line2.SalesOrderID, Quantity: decimal.NewFromInt(4)},
			},
		}

		decisions, err := session.Decisions(batch)
		require.NoError(t, err)

		totals := map[string]decimal.Decimal{}
		for _, d := range decisions {
			totals[d.PartNumber] = totals[d.PartNumber].Add(d.Quantity)
		}
		assert.True(t, totals["P-100"].Equal(decimal.NewFromInt(10)))
		assert.True(t, totals["P-200"].Equal(decimal.NewFromInt(7)))
	})
}
