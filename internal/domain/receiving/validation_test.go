package receiving

import (
	"testing"

	"github.com/erp/receiving/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validateSinglePart(t *testing.T, receipt PartReceipt, demand []DemandLine, batch AllocationBatch) ValidationResult {
	t.Helper()
	result, err := ValidateBatch([]PartReceipt{receipt}, map[string][]DemandLine{receipt.PartNumber: demand}, batch)
	require.NoError(t, err)
	return result
}

// ============================================
// ValidateBatch Tests
// ============================================

func TestValidateBatch_Starvation(t *testing.T) {
	t.Run("starving a needed line while surplus exists is a violation", func(t *testing.T) {
		// Received 10 covers the full demand of 8, but the operator leaves
		// SO-1 two units short.
		receipt := testReceipt(t, "P-100", "10")
		line1 := testDemandLine(t, "SO-1", "P-100", "4", "0")
		line2 := testDemandLine(t, "SO-2", "P-100", "4", "0")

		batch := AllocationBatch{
			Entries: []AllocationEntry{
				{PartNumber: "P-100", SalesOrderID: line1.SalesOrderID, Quantity: decimal.NewFromInt(2)},
				{PartNumber: "P-100", SalesOrderID: line2.SalesOrderID, Quantity: decimal.NewFromInt(4)},
			},
		}

		result := validateSinglePart(t, receipt, []DemandLine{line1, line2}, batch)

		assert.False(t, result.IsValid())
		require.Len(t, result.Violations, 1)
		v := result.Violations[0]
		assert.Equal(t, ViolationDemandStarved, v.Code)
		assert.Equal(t, "SO-1", v.SalesOrderNumber)
		require.NotNil(t, v.SalesOrderID)
		assert.Equal(t, line1.SalesOrderID, *v.SalesOrderID)
		assert.True(t, v.Shortfall.Equal(decimal.NewFromInt(2)))
		assert.Empty(t, result.Warnings)
	})

	t.Run("absent entry counts as zero allocation", func(t *testing.T) {
		receipt := testReceipt(t, "P-100", "10")
		line1 := testDemandLine(t, "SO-1", "P-100", "4", "0")
		line2 := testDemandLine(t, "SO-2", "P-100", "4", "0")

		batch := AllocationBatch{
			Entries: []AllocationEntry{
				{PartNumber: "P-100", SalesOrderID: line2.SalesOrderID, Quantity: decimal.NewFromInt(4)},
			},
		}

		result := validateSinglePart(t, receipt, []DemandLine{line1, line2}, batch)

		require.Len(t, result.Violations, 1)
		assert.Equal(t, ViolationDemandStarved, result.Violations[0].Code)
		assert.Equal(t, "SO-1", result.Violations[0].SalesOrderNumber)
		assert.True(t, result.Violations[0].Shortfall.Equal(decimal.NewFromInt(4)))
	})

	t.Run("over-allocating one line is fine while no other line starves", func(t *testing.T) {
		receipt := testReceipt(t, "P-100", "10")
		line1 := testDemandLine(t, "SO-1", "P-100", "4", "0")
		line2 := testDemandLine(t, "SO-2", "P-100", "4", "0")

		// Operator pushes the two surplus units onto SO-2
		batch := AllocationBatch{
			Entries: []AllocationEntry{
				{PartNumber: "P-100", SalesOrderID: line1.SalesOrderID, Quantity: decimal.NewFromInt(4)},
				{PartNumber: "P-100", SalesOrderID: line2.SalesOrderID, Quantity: decimal.NewFromInt(6)},
			},
		}

		result := validateSinglePart(t, receipt, []DemandLine{line1, line2}, batch)

		assert.True(t, result.IsValid())
		assert.Empty(t, result.Warnings)
	})
}

func TestValidateBatch_SupplyShort(t *testing.T) {
	receipt := testReceipt(t, "P-100", "5")
	line1 := testDemandLine(t, "SO-1", "P-100", "4", "0")
	line2 := testDemandLine(t, "SO-2", "P-100", "4", "0")
	demand := []DemandLine{line1, line2}

	t.Run("under-allocation is a warning, not a violation", func(t *testing.T) {
		batch := AllocationBatch{
			Entries: []AllocationEntry{
				{PartNumber: "P-100", SalesOrderID: line1.SalesOrderID, Quantity: decimal.NewFromInt(4)},
				{PartNumber: "P-100", SalesOrderID: line2.SalesOrderID, Quantity: decimal.NewFromInt(1)},
			},
		}

		result := validateSinglePart(t, receipt, demand, batch)

		assert.True(t, result.IsValid())
		require.Len(t, result.Warnings, 1)
		w := result.Warnings[0]
		assert.Equal(t, WarningShortAllocation, w.Code)
		assert.Equal(t, "SO-2", w.SalesOrderNumber)
		assert.True(t, w.Shortfall.Equal(decimal.NewFromInt(3)))
	})

	t.Run("allocating beyond a line's need is a violation when short", func(t *testing.T) {
		batch := AllocationBatch{
			Entries: []AllocationEntry{
				{PartNumber: "P-100", SalesOrderID: line1.SalesOrderID, Quantity: decimal.NewFromInt(5)},
			},
		}

		result := validateSinglePart(t, receipt, demand, batch)

		assert.False(t, result.IsValid())
		found := false
		for _, v := range result.Violations {
			if v.Code == ViolationNeedExceeded {
				found = true
				assert.Equal(t, "SO-1", v.SalesOrderNumber)
				assert.True(t, v.Shortfall.Equal(decimal.NewFromInt(1)))
			}
		}
		assert.True(t, found)
	})

	t.Run("leaving everything unallocated only warns", func(t *testing.T) {
		batch := AllocationBatch{}

		result := validateSinglePart(t, receipt, demand, batch)

		assert.True(t, result.IsValid())
		assert.Len(t, result.Warnings, 2)
	})
}

func TestValidateBatch_Bounds(t *testing.T) {
	t.Run("allocations beyond the received quantity are rejected", func(t *testing.T) {
		receipt := testReceipt(t, "P-100", "10")
		line1 := testDemandLine(t, "SO-1", "P-100", "8", "0")
		line2 := testDemandLine(t, "SO-2", "P-100", "8", "0")

		batch := AllocationBatch{
			Entries: []AllocationEntry{
				{PartNumber: "P-100", SalesOrderID: line1.SalesOrderID, Quantity: decimal.NewFromInt(8)},
				{PartNumber: "P-100", SalesOrderID: line2.SalesOrderID, Quantity: decimal.NewFromInt(8)},
			},
		}

		result := validateSinglePart(t, receipt, []DemandLine{line1, line2}, batch)

		assert.False(t, result.IsValid())
		require.Len(t, result.Violations, 1)
		assert.Equal(t, ViolationReceiptExceeded, result.Violations[0].Code)
		assert.Equal(t, "P-100", result.Violations[0].PartNumber)
		assert.True(t, result.Violations[0].Shortfall.Equal(decimal.NewFromInt(6)))
	})

	t.Run("surplus must equal received minus allocations", func(t *testing.T) {
		receipt := testReceipt(t, "P-100", "10")
		line1 := testDemandLine(t, "SO-1", "P-100", "4", "0")

		batch := AllocationBatch{
			Entries: []AllocationEntry{
				{PartNumber: "P-100", SalesOrderID: line1.SalesOrderID, Quantity: decimal.NewFromInt(4)},
			},
			SurplusPerPart: map[string]decimal.Decimal{"P-100": decimal.NewFromInt(5)},
		}

		result := validateSinglePart(t, receipt, []DemandLine{line1}, batch)

		assert.False(t, result.IsValid())
		require.Len(t, result.Violations, 1)
		assert.Equal(t, ViolationNotConserved, result.Violations[0].Code)
		assert.True(t, result.Violations[0].Shortfall.Equal(decimal.NewFromInt(1)))
	})

	t.Run("matching surplus passes", func(t *testing.T) {
		receipt := testReceipt(t, "P-100", "10")
		line1 := testDemandLine(t, "SO-1", "P-100", "4", "0")

		batch := AllocationBatch{
			Entries: []AllocationEntry{
				{PartNumber: "P-100", SalesOrderID: line1.SalesOrderID, Quantity: decimal.NewFromInt(4)},
			},
			SurplusPerPart: map[string]decimal.Decimal{"P-100": decimal.NewFromInt(6)},
		}

		result := validateSinglePart(t, receipt, []DemandLine{line1}, batch)

		assert.True(t, result.IsValid())
	})

	t.Run("omitted surplus is treated as derived", func(t *testing.T) {
		receipt := testReceipt(t, "P-100", "10")
		line1 := testDemandLine(t, "SO-1", "P-100", "4", "0")

		batch := AllocationBatch{
			Entries: []AllocationEntry{
				{PartNumber: "P-100", SalesOrderID: line1.SalesOrderID, Quantity: decimal.NewFromInt(4)},
			},
		}

		result := validateSinglePart(t, receipt, []DemandLine{line1}, batch)

		assert.True(t, result.IsValid())
	})
}

func TestValidateBatch_MalformedInput(t *testing.T) {
	receipt := testReceipt(t, "P-100", "10")
	line1 := testDemandLine(t, "SO-1", "P-100", "4", "0")
	demand := map[string][]DemandLine{"P-100": {line1}}

	tests := []struct {
		name  string
		batch AllocationBatch
		code  string
	}{
		{
			name: "negative allocation",
			batch: AllocationBatch{Entries: []AllocationEntry{
				{PartNumber: "P-100", SalesOrderID: line1.SalesOrderID, Quantity: decimal.NewFromInt(-1)},
			}},
			code: "INVALID_QUANTITY",
		},
		{
			name: "unknown part",
			batch: AllocationBatch{Entries: []AllocationEntry{
				{PartNumber: "P-999", SalesOrderID: line1.SalesOrderID, Quantity: decimal.NewFromInt(1)},
			}},
			code: "UNKNOWN_PART",
		},
		{
			name: "unknown sales order",
			batch: AllocationBatch{Entries: []AllocationEntry{
				{PartNumber: "P-100", SalesOrderID: uuid.New(), Quantity: decimal.NewFromInt(1)},
			}},
			code: "UNKNOWN_SALES_ORDER",
		},
		{
			name: "duplicate cell",
			batch: AllocationBatch{Entries: []AllocationEntry{
				{PartNumber: "P-100", SalesOrderID: line1.SalesOrderID, Quantity: decimal.NewFromInt(1)},
				{PartNumber: "P-100", SalesOrderID: line1.SalesOrderID, Quantity: decimal.NewFromInt(2)},
			}},
			code: "DUPLICATE_ALLOCATION",
		},
		{
			name: "negative surplus",
			batch: AllocationBatch{
				SurplusPerPart: map[string]decimal.Decimal{"P-100": decimal.NewFromInt(-2)},
			},
			code: "INVALID_SURPLUS",
		},
		{
			name: "surplus for unknown part",
			batch: AllocationBatch{
				SurplusPerPart: map[string]decimal.Decimal{"P-999": decimal.NewFromInt(2)},
			},
			code: "UNKNOWN_PART",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateBatch([]PartReceipt{receipt}, demand, tt.batch)

			require.Error(t, err)
			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.code, domainErr.Code)
		})
	}
}

func TestValidateBatch_MultiPart(t *testing.T) {
	// Violations on one part must not mask a clean result on another.
	receiptA := testReceipt(t, "P-100", "10")
	receiptB := testReceipt(t, "P-200", "5")
	lineA := testDemandLine(t, "SO-1", "P-100", "4", "0")
	lineB := testDemandLine(t, "SO-2", "P-200", "4", "0")

	demand := map[string][]DemandLine{
		"P-100": {lineA},
		"P-200": {lineB},
	}

	batch := AllocationBatch{
		Entries: []AllocationEntry{
			// P-100 starves SO-1 although surplus exists
			{PartNumber: "P-100", SalesOrderID: lineA.SalesOrderID, Quantity: decimal.NewFromInt(1)},
			// P-200 is allocated correctly
			{PartNumber: "P-200", SalesOrderID: lineB.SalesOrderID, Quantity: decimal.NewFromInt(4)},
		},
	}

	result, err := ValidateBatch([]PartReceipt{receiptA, receiptB}, demand, batch)
	require.NoError(t, err)

	require.Len(t, result.Violations, 1)
	assert.Equal(t, "P-100", result.Violations[0].PartNumber)
}

func TestValidateBatch_ZeroReceived(t *testing.T) {
	// A zero receipt with open demand produces warnings only.
	receipt := testReceipt(t, "P-100", "0")
	line1 := testDemandLine(t, "SO-1", "P-100", "4", "0")

	result := validateSinglePart(t, receipt, []DemandLine{line1}, AllocationBatch{})

	assert.True(t, result.IsValid())
	assert.Len(t, result.Warnings, 1)
}

// ============================================
// ValidateCell Tests
// ============================================

func TestValidateCell(t *testing.T) {
	receipt := testReceipt(t, "P-100", "10")

	t.Run("within bound passes", func(t *testing.T) {
		violation, err := ValidateCell(receipt, decimal.NewFromInt(4), decimal.NewFromInt(6))
		require.NoError(t, err)
		assert.Nil(t, violation)
	})

	t.Run("exceeding the received quantity is flagged", func(t *testing.T) {
		violation, err := ValidateCell(receipt, decimal.NewFromInt(4), decimal.NewFromInt(7))
		require.NoError(t, err)
		require.NotNil(t, violation)
		assert.Equal(t, ViolationReceiptExceeded, violation.Code)
		assert.Equal(t, "P-100", violation.PartNumber)
		assert.True(t, violation.Shortfall.Equal(decimal.NewFromInt(1)))
	})

	t.Run("negative input is malformed", func(t *testing.T) {
		_, err := ValidateCell(receipt, decimal.Zero, decimal.NewFromInt(-1))
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_QUANTITY", domainErr.Code)
	})
}
