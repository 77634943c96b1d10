// Package integration provides integration tests for the receiving engine.
// This file exercises the HTTP surface end to end: routing, request binding,
// the response envelope, and the mapping of domain outcomes onto status codes.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	receivingapp "github.com/erp/receiving/internal/application/receiving"
	"github.com/erp/receiving/internal/domain/inventory"
	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/erp/receiving/internal/domain/sales"
	"github.com/erp/receiving/internal/infrastructure/cache"
	"github.com/erp/receiving/internal/infrastructure/persistence"
	"github.com/erp/receiving/internal/interfaces/http/handler"
	"github.com/erp/receiving/internal/interfaces/http/router"
	"github.com/erp/receiving/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ReceivingTestServer wraps the HTTP stack with a real database for API tests.
// Every request is authenticated as AuthUser through the test auth middleware.
type ReceivingTestServer struct {
	DB            *TestDB
	Engine        *gin.Engine
	AuthUser      uuid.UUID
	OrderRepo     receiving.PurchaseOrderRepository
	LineRepo      sales.SalesOrderLineRepository
	InventoryRepo inventory.InventoryItemRepository
}

// NewReceivingTestServer creates a test server with routes matching the main.go setup
func NewReceivingTestServer(t *testing.T) *ReceivingTestServer {
	t.Helper()

	gin.SetMode(gin.TestMode)
	testDB := NewTestDB(t)

	orderRepo := persistence.NewGormPurchaseOrderRepository(testDB.DB)
	allocationRepo := persistence.NewGormAllocationDecisionRepository(testDB.DB)
	lineRepo := persistence.NewGormSalesOrderLineRepository(testDB.DB)
	inventoryRepo := persistence.NewGormInventoryItemRepository(testDB.DB)

	service := receivingapp.NewAllocationService(
		orderRepo,
		allocationRepo,
		lineRepo,
		inventoryRepo,
		persistence.NewGormTransactionScope(testDB.DB),
		cache.NewLocalOrderLock(),
	)
	receivingHandler := handler.NewReceivingHandler(service)

	authUser := testutil.TestUserID()
	engine := gin.New()
	engine.Use(testutil.TestAuthMiddleware(authUser))
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	receivingRoutes := router.NewDomainGroup("receiving", "/receiving")
	receivingRoutes.GET("/purchase-orders", receivingHandler.List)
	receivingRoutes.GET("/purchase-orders/:id", receivingHandler.GetByID)
	receivingRoutes.GET("/purchase-orders/number/:order_number", receivingHandler.GetByOrderNumber)
	receivingRoutes.GET("/purchase-orders/:id/suggestions", receivingHandler.GetSuggestions)
	receivingRoutes.GET("/purchase-orders/:id/allocations", receivingHandler.GetAllocations)
	receivingRoutes.POST("/purchase-orders/:id/allocations/validate", receivingHandler.ValidateAllocations)
	receivingRoutes.PUT("/purchase-orders/:id/allocations", receivingHandler.SaveAllocations)
	receivingRoutes.POST("/purchase-orders/:id/close", receivingHandler.Close)
	receivingRoutes.POST("/purchase-orders/:id/reopen", receivingHandler.Reopen)

	r.Register(receivingRoutes)
	r.Setup()

	return &ReceivingTestServer{
		DB:            testDB,
		Engine:        engine,
		AuthUser:      authUser,
		OrderRepo:     orderRepo,
		LineRepo:      lineRepo,
		InventoryRepo: inventoryRepo,
	}
}

// Request performs an HTTP request against the test server
func (ts *ReceivingTestServer) Request(method, path string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	ts.Engine.ServeHTTP(w, req)
	return w
}

// CreatePurchaseOrder seeds an open purchase order with the given receipt lines
func (ts *ReceivingTestServer) CreatePurchaseOrder(t *testing.T, orderNumber string, receipts ...receiptSpec) *receiving.PurchaseOrder {
	t.Helper()
	ctx := context.Background()

	order, err := receiving.NewPurchaseOrder(orderNumber, "Hangzhou Fastener Works")
	require.NoError(t, err)
	for _, r := range receipts {
		_, err := order.AddReceipt(r.PartNumber, r.Description, decimal.NewFromFloat(r.Quantity))
		require.NoError(t, err)
	}
	require.NoError(t, ts.OrderRepo.Save(ctx, order))

	return order
}

// CreateDemandLine seeds an open sales order line needing a part
func (ts *ReceivingTestServer) CreateDemandLine(t *testing.T, salesOrderNumber, partNumber string, ordered float64) *sales.SalesOrderLine {
	t.Helper()
	ctx := context.Background()

	line, err := sales.NewSalesOrderLine(uuid.New(), salesOrderNumber, "Ningbo Machining Co.",
		time.Now().AddDate(0, 0, -14), partNumber, decimal.NewFromFloat(ordered))
	require.NoError(t, err)
	require.NoError(t, ts.LineRepo.Save(ctx, line))

	return line
}

// parseResponse unmarshals a response body into the standard envelope
func parseResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return response
}

// assertDecimalString checks a decimal quantity that crossed the wire as a string
func assertDecimalString(t *testing.T, expected string, actual any) {
	t.Helper()
	str, ok := actual.(string)
	require.True(t, ok, "expected string-encoded decimal, got %T (%v)", actual, actual)
	assert.True(t, decimal.RequireFromString(str).Equal(decimal.RequireFromString(expected)),
		"expected %s, got %s", expected, str)
}

// suggestionForPart finds the wire-format suggestion for one part number
func suggestionForPart(t *testing.T, parts []any, partNumber string) map[string]any {
	t.Helper()
	for _, raw := range parts {
		part := raw.(map[string]any)
		if part["part_number"] == partNumber {
			return part
		}
	}
	t.Fatalf("no suggestion for part %s", partNumber)
	return nil
}

// ==================== Purchase Order Queries ====================

func TestReceivingAPI_PurchaseOrderQueries(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := NewReceivingTestServer(t)
	ctx := context.Background()

	first := ts.CreatePurchaseOrder(t, "PO-2026-00101",
		receiptSpec{PartNumber: "GB-5783-M10", Description: "Hex bolt M10x45", Quantity: 100})
	ts.CreatePurchaseOrder(t, "PO-2026-00102",
		receiptSpec{PartNumber: "WSH-300-ZN", Description: "Zinc washer 10mm", Quantity: 40})
	closed := ts.CreatePurchaseOrder(t, "PO-2026-00103",
		receiptSpec{PartNumber: "BRG-6204-2RS", Description: "Ball bearing 6204", Quantity: 12})
	require.NoError(t, closed.Close(uuid.New()))
	require.NoError(t, ts.OrderRepo.Save(ctx, closed))

	t.Run("lists orders with pagination meta", func(t *testing.T) {
		w := ts.Request(http.MethodGet, "/api/v1/receiving/purchase-orders?page=1&page_size=2", nil)
		require.Equal(t, http.StatusOK, w.Code)

		response := parseResponse(t, w)
		assert.True(t, response["success"].(bool))
		items := response["data"].([]any)
		assert.Len(t, items, 2)

		meta := response["meta"].(map[string]any)
		assert.Equal(t, float64(3), meta["total"])
		assert.Equal(t, float64(1), meta["page"])
		assert.Equal(t, float64(2), meta["page_size"])
		assert.Equal(t, float64(2), meta["total_pages"])
	})

	t.Run("filters by status", func(t *testing.T) {
		w := ts.Request(http.MethodGet, "/api/v1/receiving/purchase-orders?status=CLOSED", nil)
		require.Equal(t, http.StatusOK, w.Code)

		response := parseResponse(t, w)
		items := response["data"].([]any)
		require.Len(t, items, 1)

		row := items[0].(map[string]any)
		assert.Equal(t, "PO-2026-00103", row["order_number"])
		assert.Equal(t, "CLOSED", row["status"])
		assert.Equal(t, float64(1), row["part_count"])
		assertDecimalString(t, "12", row["total_received"])
	})

	t.Run("searches by order number", func(t *testing.T) {
		w := ts.Request(http.MethodGet, "/api/v1/receiving/purchase-orders?search=00102", nil)
		require.Equal(t, http.StatusOK, w.Code)

		response := parseResponse(t, w)
		items := response["data"].([]any)
		require.Len(t, items, 1)
		assert.Equal(t, "PO-2026-00102", items[0].(map[string]any)["order_number"])
	})

	t.Run("returns an order with its receipt lines", func(t *testing.T) {
		w := ts.Request(http.MethodGet, "/api/v1/receiving/purchase-orders/"+first.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)

		response := parseResponse(t, w)
		data := response["data"].(map[string]any)
		assert.Equal(t, first.ID.String(), data["id"])
		assert.Equal(t, "PO-2026-00101", data["order_number"])
		assert.Equal(t, "Hangzhou Fastener Works", data["supplier_name"])
		assert.Equal(t, "OPEN", data["status"])
		assert.Equal(t, float64(1), data["version"])
		assert.Empty(t, data["allocations"])

		receipts := data["receipts"].([]any)
		require.Len(t, receipts, 1)
		receipt := receipts[0].(map[string]any)
		assert.Equal(t, "GB-5783-M10", receipt["part_number"])
		assert.Equal(t, "Hex bolt M10x45", receipt["part_description"])
		assertDecimalString(t, "100", receipt["quantity_received"])
	})

	t.Run("finds an order by its number", func(t *testing.T) {
		w := ts.Request(http.MethodGet, "/api/v1/receiving/purchase-orders/number/PO-2026-00101", nil)
		require.Equal(t, http.StatusOK, w.Code)

		response := parseResponse(t, w)
		data := response["data"].(map[string]any)
		assert.Equal(t, first.ID.String(), data["id"])
		assert.Equal(t, "PO-2026-00101", data["order_number"])
	})

	t.Run("returns 404 for an unknown order", func(t *testing.T) {
		w := ts.Request(http.MethodGet, "/api/v1/receiving/purchase-orders/"+uuid.New().String(), nil)
		require.Equal(t, http.StatusNotFound, w.Code)

		response := parseResponse(t, w)
		assert.False(t, response["success"].(bool))
		errObj := response["error"].(map[string]any)
		assert.Equal(t, "ERR_NOT_FOUND", errObj["code"])
	})

	t.Run("rejects a malformed order id", func(t *testing.T) {
		w := ts.Request(http.MethodGet, "/api/v1/receiving/purchase-orders/not-a-uuid", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)

		response := parseResponse(t, w)
		errObj := response["error"].(map[string]any)
		assert.Equal(t, "ERR_BAD_REQUEST", errObj["code"])
	})

	t.Run("rejects an unknown status filter", func(t *testing.T) {
		w := ts.Request(http.MethodGet, "/api/v1/receiving/purchase-orders?status=PENDING", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// ==================== Suggestions and Validation ====================

func TestReceivingAPI_SuggestionsAndValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := NewReceivingTestServer(t)

	order := ts.CreatePurchaseOrder(t, "PO-2026-00110",
		receiptSpec{PartNumber: "GB-5783-M10", Description: "Hex bolt M10x45", Quantity: 100},
		receiptSpec{PartNumber: "WSH-300-ZN", Description: "Zinc washer 10mm", Quantity: 25},
	)
	older := ts.CreateDemandLine(t, "SO-2026-00410", "GB-5783-M10", 60)
	newer := ts.CreateDemandLine(t, "SO-2026-00425", "GB-5783-M10", 80)

	t.Run("proposes a FIFO split of the received quantity", func(t *testing.T) {
		w := ts.Request(http.MethodGet,
			fmt.Sprintf("/api/v1/receiving/purchase-orders/%s/suggestions", order.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		response := parseResponse(t, w)
		data := response["data"].(map[string]any)
		assert.Equal(t, order.ID.String(), data["order_id"])
		assert.Equal(t, "PO-2026-00110", data["order_number"])
		assert.False(t, data["resumed"].(bool))

		parts := data["parts"].([]any)
		require.Len(t, parts, 2)

		bolts := suggestionForPart(t, parts, "GB-5783-M10")
		assertDecimalString(t, "100", bolts["quantity_received"])
		assertDecimalString(t, "140", bolts["total_needed"])
		assert.False(t, bolts["has_surplus"].(bool))
		assertDecimalString(t, "0", bolts["suggested_surplus"])

		lines := bolts["lines"].([]any)
		require.Len(t, lines, 2)
		oldest := lines[0].(map[string]any)
		assert.Equal(t, "SO-2026-00410", oldest["sales_order_number"])
		assert.Equal(t, "Ningbo Machining Co.", oldest["customer_name"])
		assertDecimalString(t, "60", oldest["quantity_still_needed"])
		assertDecimalString(t, "60", oldest["suggested_qty"])
		assert.True(t, oldest["is_needed"].(bool))

		next := lines[1].(map[string]any)
		assert.Equal(t, "SO-2026-00425", next["sales_order_number"])
		assertDecimalString(t, "80", next["quantity_still_needed"])
		assertDecimalString(t, "40", next["suggested_qty"])
	})

	t.Run("part without demand is proposed as surplus", func(t *testing.T) {
		w := ts.Request(http.MethodGet,
			fmt.Sprintf("/api/v1/receiving/purchase-orders/%s/suggestions", order.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		response := parseResponse(t, w)
		data := response["data"].(map[string]any)
		washers := suggestionForPart(t, data["parts"].([]any), "WSH-300-ZN")
		assert.True(t, washers["has_surplus"].(bool))
		assertDecimalString(t, "25", washers["suggested_surplus"])
		assert.Empty(t, washers["lines"])
	})

	t.Run("confirms a conserved allocation set", func(t *testing.T) {
		body := receivingapp.SaveAllocationsRequest{
			Allocations: []receivingapp.AllocationEntryRequest{
				{PartNumber: "GB-5783-M10", SalesOrderID: older.SalesOrderID, AllocateQty: decimal.NewFromInt(60)},
				{PartNumber: "GB-5783-M10", SalesOrderID: newer.SalesOrderID, AllocateQty: decimal.NewFromInt(40)},
			},
		}
		w := ts.Request(http.MethodPost,
			fmt.Sprintf("/api/v1/receiving/purchase-orders/%s/allocations/validate", order.ID), body)
		require.Equal(t, http.StatusOK, w.Code)

		response := parseResponse(t, w)
		data := response["data"].(map[string]any)
		assert.True(t, data["valid"].(bool))
		assert.Empty(t, data["violations"])

		// allocating under the open need on a scarce part is only a warning
		warnings := data["warnings"].([]any)
		require.Len(t, warnings, 1)
		warning := warnings[0].(map[string]any)
		assert.Equal(t, "SHORT_ALLOCATION", warning["code"])
		assert.Equal(t, "SO-2026-00425", warning["sales_order_number"])
		assertDecimalString(t, "40", warning["shortfall"])
	})

	t.Run("flags over-allocation of a receipt", func(t *testing.T) {
		body := receivingapp.SaveAllocationsRequest{
			Allocations: []receivingapp.AllocationEntryRequest{
				{PartNumber: "GB-5783-M10", SalesOrderID: older.SalesOrderID, AllocateQty: decimal.NewFromInt(60)},
				{PartNumber: "GB-5783-M10", SalesOrderID: newer.SalesOrderID, AllocateQty: decimal.NewFromInt(80)},
			},
		}
		w := ts.Request(http.MethodPost,
			fmt.Sprintf("/api/v1/receiving/purchase-orders/%s/allocations/validate", order.ID), body)
		require.Equal(t, http.StatusOK, w.Code)

		response := parseResponse(t, w)
		data := response["data"].(map[string]any)
		assert.False(t, data["valid"].(bool))

		violations := data["violations"].([]any)
		require.Len(t, violations, 1)
		violation := violations[0].(map[string]any)
		assert.Equal(t, "RECEIPT_EXCEEDED", violation["code"])
		assert.Equal(t, "GB-5783-M10", violation["part_number"])
		assertDecimalString(t, "40", violation["shortfall"])
		assert.NotEmpty(t, violation["message"])
	})

	t.Run("treats an unknown part as an input error", func(t *testing.T) {
		body := receivingapp.SaveAllocationsRequest{
			Allocations: []receivingapp.AllocationEntryRequest{
				{PartNumber: "ZZZ-000-XX", SalesOrderID: older.SalesOrderID, AllocateQty: decimal.NewFromInt(5)},
			},
		}
		w := ts.Request(http.MethodPost,
			fmt.Sprintf("/api/v1/receiving/purchase-orders/%s/allocations/validate", order.ID), body)
		require.Equal(t, http.StatusBadRequest, w.Code)

		response := parseResponse(t, w)
		assert.False(t, response["success"].(bool))
		errObj := response["error"].(map[string]any)
		assert.Equal(t, "ERR_INVALID_INPUT", errObj["code"])
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		w := ts.Request(http.MethodPost,
			fmt.Sprintf("/api/v1/receiving/purchase-orders/%s/allocations/validate", order.ID), "not an object")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// ==================== Save / Close / Reopen over HTTP ====================

func TestReceivingAPI_AllocationLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := NewReceivingTestServer(t)
	ctx := context.Background()

	order := ts.CreatePurchaseOrder(t, "PO-2026-00120",
		receiptSpec{PartNumber: "GB-5783-M10", Description: "Hex bolt M10x45", Quantity: 100},
		receiptSpec{PartNumber: "WSH-300-ZN", Description: "Zinc washer 10mm", Quantity: 25},
	)
	older := ts.CreateDemandLine(t, "SO-2026-00410", "GB-5783-M10", 60)
	newer := ts.CreateDemandLine(t, "SO-2026-00425", "GB-5783-M10", 80)

	allocations := []receivingapp.AllocationEntryRequest{
		{PartNumber: "GB-5783-M10", SalesOrderID: older.SalesOrderID, AllocateQty: decimal.NewFromInt(60)},
		{PartNumber: "GB-5783-M10", SalesOrderID: newer.SalesOrderID, AllocateQty: decimal.NewFromInt(40)},
	}

	t.Run("saves a draft decision set", func(t *testing.T) {
		body := receivingapp.SaveAllocationsRequest{Allocations: allocations}
		w := ts.Request(http.MethodPut,
			fmt.Sprintf("/api/v1/receiving/purchase-orders/%s/allocations", order.ID), body)
		require.Equal(t, http.StatusOK, w.Code)

		response := parseResponse(t, w)
		assert.True(t, response["success"].(bool))
		data := response["data"].(map[string]any)
		assert.True(t, data["saved"].(bool))
		assert.Equal(t, order.ID.String(), data["order_id"])
		assert.Equal(t, float64(4), data["decision_count"])
		assertDecimalString(t, "100", data["total_allocated"])
		assertDecimalString(t, "25", data["total_surplus"])

		warnings := data["warnings"].([]any)
		require.Len(t, warnings, 1)
		assert.Equal(t, "SHORT_ALLOCATION", warnings[0].(map[string]any)["code"])
	})

	t.Run("suggests the saved quantities on resume", func(t *testing.T) {
		w := ts.Request(http.MethodGet,
			fmt.Sprintf("/api/v1/receiving/purchase-orders/%s/suggestions", order.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		response := parseResponse(t, w)
		data := response["data"].(map[string]any)
		assert.True(t, data["resumed"].(bool))

		bolts := suggestionForPart(t, data["parts"].([]any), "GB-5783-M10")
		lines := bolts["lines"].([]any)
		require.Len(t, lines, 2)
		assertDecimalString(t, "60", lines[0].(map[string]any)["suggested_qty"])
		assertDecimalString(t, "40", lines[1].(map[string]any)["suggested_qty"])
	})

	t.Run("returns the saved ledger", func(t *testing.T) {
		w := ts.Request(http.MethodGet,
			fmt.Sprintf("/api/v1/receiving/purchase-orders/%s/allocations", order.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		response := parseResponse(t, w)
		rows := response["data"].([]any)
		require.Len(t, rows, 4)

		surplusCount := 0
		for _, raw := range rows {
			row := raw.(map[string]any)
			if row["is_surplus"].(bool) {
				surplusCount++
				assert.Nil(t, row["sales_order_id"])
				if row["part_number"] == "WSH-300-ZN" {
					assertDecimalString(t, "25", row["quantity"])
				}
			} else {
				assert.NotEmpty(t, row["sales_order_id"])
			}
		}
		assert.Equal(t, 2, surplusCount)
	})

	t.Run("rejects a close that exceeds the receipt", func(t *testing.T) {
		body := receivingapp.CloseOrderRequest{
			Allocations: []receivingapp.AllocationEntryRequest{
				{PartNumber: "GB-5783-M10", SalesOrderID: older.SalesOrderID, AllocateQty: decimal.NewFromInt(60)},
				{PartNumber: "GB-5783-M10", SalesOrderID: newer.SalesOrderID, AllocateQty: decimal.NewFromInt(80)},
			},
		}
		w := ts.Request(http.MethodPost,
			fmt.Sprintf("/api/v1/receiving/purchase-orders/%s/close", order.ID), body)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		response := parseResponse(t, w)
		assert.False(t, response["success"].(bool))
		errObj := response["error"].(map[string]any)
		assert.Equal(t, "ERR_ALLOCATION_REJECTED", errObj["code"])

		// the envelope still carries the rejection detail
		data := response["data"].(map[string]any)
		assert.False(t, data["closed"].(bool))
		violations := data["violations"].([]any)
		require.Len(t, violations, 1)
		assert.Equal(t, "RECEIPT_EXCEEDED", violations[0].(map[string]any)["code"])

		reloaded, err := ts.OrderRepo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.True(t, reloaded.IsOpen())
	})

	t.Run("closes the order and records the closer", func(t *testing.T) {
		body := receivingapp.CloseOrderRequest{
			Allocations: allocations,
			Remark:      "Closed after full delivery",
		}
		w := ts.Request(http.MethodPost,
			fmt.Sprintf("/api/v1/receiving/purchase-orders/%s/close", order.ID), body)
		require.Equal(t, http.StatusOK, w.Code)

		response := parseResponse(t, w)
		data := response["data"].(map[string]any)
		assert.True(t, data["closed"].(bool))

		orderData := data["order"].(map[string]any)
		assert.Equal(t, "CLOSED", orderData["status"])
		assert.Equal(t, "Closed after full delivery", orderData["remark"])
		assert.Equal(t, ts.AuthUser.String(), orderData["closed_by"])
		assert.NotEmpty(t, orderData["closed_at"])

		item, err := ts.InventoryRepo.FindByPartNumber(ctx, "WSH-300-ZN")
		require.NoError(t, err)
		assert.True(t, item.OnHand.Equal(decimal.NewFromInt(25)))

		line, err := ts.LineRepo.FindByID(ctx, older.ID)
		require.NoError(t, err)
		assert.True(t, line.QuantityFulfilled.Equal(decimal.NewFromInt(60)))
	})

	t.Run("refuses a save once closed", func(t *testing.T) {
		body := receivingapp.SaveAllocationsRequest{Allocations: allocations}
		w := ts.Request(http.MethodPut,
			fmt.Sprintf("/api/v1/receiving/purchase-orders/%s/allocations", order.ID), body)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		response := parseResponse(t, w)
		errObj := response["error"].(map[string]any)
		assert.Equal(t, "ERR_INVALID_STATE", errObj["code"])
	})

	t.Run("reopens the order and reverses the effects", func(t *testing.T) {
		w := ts.Request(http.MethodPost,
			fmt.Sprintf("/api/v1/receiving/purchase-orders/%s/reopen", order.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		response := parseResponse(t, w)
		data := response["data"].(map[string]any)
		assert.Equal(t, "OPEN", data["status"])
		assert.Nil(t, data["closed_at"])
		assert.Nil(t, data["closed_by"])

		item, err := ts.InventoryRepo.FindByPartNumber(ctx, "WSH-300-ZN")
		require.NoError(t, err)
		assert.True(t, item.OnHand.IsZero())

		line, err := ts.LineRepo.FindByID(ctx, older.ID)
		require.NoError(t, err)
		assert.True(t, line.QuantityFulfilled.IsZero())
	})

	t.Run("refuses to reopen an open order", func(t *testing.T) {
		w := ts.Request(http.MethodPost,
			fmt.Sprintf("/api/v1/receiving/purchase-orders/%s/reopen", order.ID), nil)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		response := parseResponse(t, w)
		errObj := response["error"].(map[string]any)
		assert.Equal(t, "ERR_INVALID_STATE", errObj["code"])
	})
}
