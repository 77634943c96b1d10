package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// Common allowed sort fields for entities with base fields
// These are the common fields present in most entities

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// PurchaseOrderSortFields contains allowed sort fields for purchase orders
var PurchaseOrderSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"order_number":  true,
	"supplier_name": true,
	"status":        true,
	"closed_at":     true,
}

// SalesOrderLineSortFields contains allowed sort fields for sales order lines
var SalesOrderLineSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"sales_order_number": true,
	"customer_name":      true,
	"sales_date":         true,
	"part_number":        true,
	"status":             true,
	"quantity_ordered":   true,
	"quantity_fulfilled": true,
}

// InventoryItemSortFields contains allowed sort fields for inventory items
var InventoryItemSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"part_number": true,
	"on_hand":     true,
}

// AllocationDecisionSortFields contains allowed sort fields for allocation decisions
var AllocationDecisionSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"purchase_order_id": true,
	"part_number":       true,
	"sales_order_id":    true,
	"quantity":          true,
}
