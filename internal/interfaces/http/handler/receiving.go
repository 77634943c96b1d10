package handler

import (
	"net/http"
	"time"

	receivingapp "github.com/erp/receiving/internal/application/receiving"
	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/erp/receiving/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceivingHandler handles receiving allocation API endpoints
type ReceivingHandler struct {
	BaseHandler
	allocationService *receivingapp.AllocationService
}

// NewReceivingHandler creates a new ReceivingHandler
func NewReceivingHandler(allocationService *receivingapp.AllocationService) *ReceivingHandler {
	return &ReceivingHandler{
		allocationService: allocationService,
	}
}

// ===================== Request/Response Types =====================
// Quantities are decimal strings on the wire to preserve fractional precision.

// AllocationEntryRequest represents one allocation cell in a submitted set
// @Description Quantity allocated from a received part to a sales order
type AllocationEntryRequest struct {
	PartNumber   string `json:"part_number" binding:"required" example:"P-100"`
	SalesOrderID string `json:"sales_order_id" binding:"required" example:"550e8400-e29b-41d4-a716-446655440020"`
	AllocateQty  string `json:"allocate_qty" example:"6"`
}

// SaveAllocationsRequest represents a full allocation set for a purchase order
// @Description Allocation set to save; surplus_per_part is optional
type SaveAllocationsRequest struct {
	Allocations    []AllocationEntryRequest `json:"allocations"`
	SurplusPerPart map[string]string        `json:"surplus_per_part"`
}

// CloseOrderRequest represents a request to close a purchase order
// @Description Final allocation set plus an optional remark
type CloseOrderRequest struct {
	Allocations    []AllocationEntryRequest `json:"allocations"`
	SurplusPerPart map[string]string        `json:"surplus_per_part"`
	Remark         string                   `json:"remark" binding:"omitempty,max=500" example:"Closed after full delivery"`
}

// PartReceiptResponse represents one received part line in API responses
// @Description Received purchase order line
type PartReceiptResponse struct {
	ID               string    `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	PartNumber       string    `json:"part_number" example:"P-100"`
	PartDescription  string    `json:"part_description" example:"Steel bracket"`
	QuantityReceived string    `json:"quantity_received" example:"10"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PurchaseOrderResponse represents a purchase order in API responses
// @Description Received purchase order with its receipt lines
type PurchaseOrderResponse struct {
	ID           string                `json:"id" example:"550e8400-e29b-41d4-a716-446655440010"`
	OrderNumber  string                `json:"order_number" example:"PO-2026-00042"`
	SupplierName string                `json:"supplier_name" example:"Acme Supply"`
	Status       string                `json:"status" example:"OPEN"`
	Remark       string                `json:"remark" example:"Partial delivery"`
	Receipts     []PartReceiptResponse `json:"receipts"`
	ClosedAt     *time.Time            `json:"closed_at,omitempty"`
	ClosedBy     *string               `json:"closed_by,omitempty" example:"550e8400-e29b-41d4-a716-446655440002"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	Version      int                   `json:"version" example:"1"`
}

// PurchaseOrderDetailResponse represents a purchase order with its allocation ledger
// @Description Purchase order with receipt lines and saved allocation decisions
type PurchaseOrderDetailResponse struct {
	PurchaseOrderResponse
	Allocations []AllocationDecisionResponse `json:"allocations"`
}

// PurchaseOrderListItemResponse represents a purchase order list row
// @Description Purchase order list row
type PurchaseOrderListItemResponse struct {
	ID            string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440010"`
	OrderNumber   string     `json:"order_number" example:"PO-2026-00042"`
	SupplierName  string     `json:"supplier_name" example:"Acme Supply"`
	Status        string     `json:"status" example:"OPEN"`
	PartCount     int        `json:"part_count" example:"3"`
	TotalReceived string     `json:"total_received" example:"42.5"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// SuggestedLineResponse represents one demand line with its proposed allocation
// @Description Open sales order line with the quantity proposed for it
type SuggestedLineResponse struct {
	SalesOrderID      string    `json:"sales_order_id" example:"550e8400-e29b-41d4-a716-446655440020"`
	SalesOrderNumber  string    `json:"sales_order_number" example:"SO-2026-00117"`
	CustomerName      string    `json:"customer_name" example:"Globex Corp"`
	SalesDate         time.Time `json:"sales_date"`
	QuantityOrdered   string    `json:"quantity_ordered" example:"8"`
	QuantityFulfilled string    `json:"quantity_fulfilled" example:"2"`
	StillNeeded       string    `json:"quantity_still_needed" example:"6"`
	IsNeeded          bool      `json:"is_needed" example:"true"`
	SuggestedQty      string    `json:"suggested_qty" example:"6"`
}

// PartSuggestionResponse represents the proposed allocation for one receipt line
// @Description Allocation proposal for a single received part
type PartSuggestionResponse struct {
	PartNumber       string                  `json:"part_number" example:"P-100"`
	PartDescription  string                  `json:"part_description" example:"Steel bracket"`
	QuantityReceived string                  `json:"quantity_received" example:"10"`
	TotalNeeded      string                  `json:"total_needed" example:"6"`
	HasSurplus       bool                    `json:"has_surplus" example:"true"`
	SuggestedSurplus string                  `json:"suggested_surplus" example:"4"`
	Lines            []SuggestedLineResponse `json:"lines"`
}

// SuggestionResponse represents the full allocation proposal for a purchase order
// @Description Allocation proposal for every received part on the order
type SuggestionResponse struct {
	OrderID     string                   `json:"order_id" example:"550e8400-e29b-41d4-a716-446655440010"`
	OrderNumber string                   `json:"order_number" example:"PO-2026-00042"`
	Status      string                   `json:"status" example:"OPEN"`
	Resumed     bool                     `json:"resumed" example:"false"`
	Parts       []PartSuggestionResponse `json:"parts"`
}

// ViolationResponse represents one rule broken by an allocation set
// @Description Hard violation that caused the set to be rejected
type ViolationResponse struct {
	Code             string `json:"code" example:"RECEIPT_EXCEEDED"`
	PartNumber       string `json:"part_number" example:"P-100"`
	SalesOrderID     string `json:"sales_order_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440020"`
	SalesOrderNumber string `json:"sales_order_number,omitempty" example:"SO-2026-00117"`
	Shortfall        string `json:"shortfall" example:"2"`
	Message          string `json:"message" example:"Allocated 12 of part P-100 but only 10 were received"`
}

// WarningResponse represents a non-blocking advisory on an allocation set
// @Description Warning reported alongside a successful save
type WarningResponse struct {
	Code             string `json:"code" example:"SHORT_ALLOCATION"`
	PartNumber       string `json:"part_number" example:"P-100"`
	SalesOrderID     string `json:"sales_order_id" example:"550e8400-e29b-41d4-a716-446655440020"`
	SalesOrderNumber string `json:"sales_order_number" example:"SO-2026-00117"`
	Shortfall        string `json:"shortfall" example:"2"`
	Message          string `json:"message" example:"Sales order SO-2026-00117 still needs 2 of part P-100"`
}

// SaveAllocationsResponse represents the outcome of saving an allocation set
// @Description Save outcome; violations are present only when rejected
type SaveAllocationsResponse struct {
	Saved          bool                `json:"saved" example:"true"`
	OrderID        string              `json:"order_id" example:"550e8400-e29b-41d4-a716-446655440010"`
	DecisionCount  int                 `json:"decision_count" example:"3"`
	TotalAllocated string              `json:"total_allocated" example:"6"`
	TotalSurplus   string              `json:"total_surplus" example:"4"`
	Violations     []ViolationResponse `json:"violations,omitempty"`
	Warnings       []WarningResponse   `json:"warnings,omitempty"`
}

// CloseOrderResponse represents the outcome of closing a purchase order
// @Description Close outcome; the order is returned only when the close went through
type CloseOrderResponse struct {
	Closed     bool                   `json:"closed" example:"true"`
	Order      *PurchaseOrderResponse `json:"order,omitempty"`
	Violations []ViolationResponse    `json:"violations,omitempty"`
	Warnings   []WarningResponse      `json:"warnings,omitempty"`
}

// AllocationDecisionResponse represents one saved ledger row
// @Description Saved allocation decision; surplus rows have no sales order
type AllocationDecisionResponse struct {
	ID           string    `json:"id" example:"550e8400-e29b-41d4-a716-446655440030"`
	PartNumber   string    `json:"part_number" example:"P-100"`
	SalesOrderID string    `json:"sales_order_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440020"`
	Quantity     string    `json:"quantity" example:"6"`
	IsSurplus    bool      `json:"is_surplus" example:"false"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ValidationResponse represents the outcome of checking an allocation set
// @Description Validation outcome without persisting anything
type ValidationResponse struct {
	Valid      bool                `json:"valid" example:"false"`
	Violations []ViolationResponse `json:"violations"`
	Warnings   []WarningResponse   `json:"warnings"`
}

// ===================== Query Handlers =====================

// List godoc
// @Summary      List purchase orders
// @Description  Retrieve a paginated list of received purchase orders with optional filtering
// @Tags         receiving
// @Produce      json
// @Param        search query string false "Search term (order number, supplier name)"
// @Param        status query string false "Order status" Enums(OPEN, CLOSED)
// @Param        supplier query string false "Filter by supplier name"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" default(updated_at)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(desc)
// @Success      200 {object} dto.Response{data=[]PurchaseOrderListItemResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receiving/purchase-orders [get]
func (h *ReceivingHandler) List(c *gin.Context) {
	var filter receivingapp.PurchaseOrderListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	// Set defaults
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	page, err := h.allocationService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, toPurchaseOrderListItemResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// GetByID godoc
// @Summary      Get purchase order by ID
// @Description  Retrieve a purchase order with its receipt lines and saved allocation decisions
// @Tags         receiving
// @Produce      json
// @Param        id path string true "Purchase Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=PurchaseOrderDetailResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receiving/purchase-orders/{id} [get]
func (h *ReceivingHandler) GetByID(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	detail, err := h.allocationService.GetOrderDetail(c.Request.Context(), orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPurchaseOrderDetailResponse(detail))
}

// GetByOrderNumber godoc
// @Summary      Get purchase order by order number
// @Description  Retrieve a purchase order by its order number
// @Tags         receiving
// @Produce      json
// @Param        order_number path string true "Order Number" example:"PO-2026-00042"
// @Success      200 {object} dto.Response{data=PurchaseOrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receiving/purchase-orders/number/{order_number} [get]
func (h *ReceivingHandler) GetByOrderNumber(c *gin.Context) {
	orderNumber := c.Param("order_number")
	if orderNumber == "" {
		h.BadRequest(c, "Order number is required")
		return
	}

	order, err := h.allocationService.GetOrderByNumber(c.Request.Context(), orderNumber)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPurchaseOrderResponse(order))
}

// GetSuggestions godoc
// @Summary      Get allocation suggestions
// @Description  Propose an allocation of the received quantities across open sales orders, oldest order first. Resumes from saved decisions when present.
// @Tags         receiving
// @Produce      json
// @Param        id path string true "Purchase Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=SuggestionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receiving/purchase-orders/{id}/suggestions [get]
func (h *ReceivingHandler) GetSuggestions(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	suggestions, err := h.allocationService.GetSuggestions(c.Request.Context(), orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toSuggestionResponse(suggestions))
}

// GetAllocations godoc
// @Summary      Get saved allocation decisions
// @Description  Retrieve the saved allocation ledger for a purchase order
// @Tags         receiving
// @Produce      json
// @Param        id path string true "Purchase Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]AllocationDecisionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receiving/purchase-orders/{id}/allocations [get]
func (h *ReceivingHandler) GetAllocations(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	decisions, err := h.allocationService.GetAllocations(c.Request.Context(), orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toAllocationDecisionResponses(decisions))
}

// ===================== Command Handlers =====================

// ValidateAllocations godoc
// @Summary      Validate an allocation set
// @Description  Check an allocation set against the current demand snapshot without persisting anything. Violations and warnings are reported in the response body.
// @Tags         receiving
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase Order ID" format(uuid)
// @Param        request body SaveAllocationsRequest true "Allocation set to validate"
// @Success      200 {object} dto.Response{data=ValidationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receiving/purchase-orders/{id}/allocations/validate [post]
func (h *ReceivingHandler) ValidateAllocations(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var req SaveAllocationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq, ok := h.toSaveAllocationsRequest(c, req)
	if !ok {
		return
	}

	result, err := h.allocationService.ValidateAllocations(c.Request.Context(), orderID, appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toValidationResponse(result))
}

// SaveAllocations godoc
// @Summary      Save an allocation set
// @Description  Replace the saved allocation decisions for an open purchase order. The set is validated first; a rejected set is returned with 422 and the order is left untouched. Warnings do not block the save.
// @Tags         receiving
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase Order ID" format(uuid)
// @Param        request body SaveAllocationsRequest true "Allocation set to save"
// @Success      200 {object} dto.Response{data=SaveAllocationsResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{data=SaveAllocationsResponse,error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receiving/purchase-orders/{id}/allocations [put]
func (h *ReceivingHandler) SaveAllocations(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var req SaveAllocationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq, ok := h.toSaveAllocationsRequest(c, req)
	if !ok {
		return
	}

	result, err := h.allocationService.SaveAllocations(c.Request.Context(), orderID, appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if !result.Saved {
		h.rejected(c, toSaveAllocationsResponse(result))
		return
	}

	h.Success(c, toSaveAllocationsResponse(result))
}

// Close godoc
// @Summary      Close a purchase order
// @Description  Save the final allocation set and close the order in one transaction: allocated quantities are applied to the sales order lines, surplus is posted to stock, and the order flips to CLOSED. A rejected set is returned with 422 and the order stays open.
// @Tags         receiving
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase Order ID" format(uuid)
// @Param        request body CloseOrderRequest true "Final allocation set"
// @Success      200 {object} dto.Response{data=CloseOrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{data=CloseOrderResponse,error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receiving/purchase-orders/{id}/close [post]
func (h *ReceivingHandler) Close(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var req CloseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq, ok := h.toSaveAllocationsRequest(c, SaveAllocationsRequest{
		Allocations:    req.Allocations,
		SurplusPerPart: req.SurplusPerPart,
	})
	if !ok {
		return
	}
	closeReq := receivingapp.CloseOrderRequest{
		Allocations:    appReq.Allocations,
		SurplusPerPart: appReq.SurplusPerPart,
		Remark:         req.Remark,
	}

	// Closing user from JWT context (optional, anonymous close is allowed)
	closedBy, _ := getUserID(c)

	result, err := h.allocationService.CloseWithAllocations(c.Request.Context(), orderID, closedBy, closeReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if !result.Closed {
		h.rejected(c, toCloseOrderResponse(result))
		return
	}

	h.Success(c, toCloseOrderResponse(result))
}

// Reopen godoc
// @Summary      Reopen a closed purchase order
// @Description  Reverse a close exactly: surplus comes back out of stock, fulfilled quantities come back off the sales order lines, and the order flips to OPEN. Fails when the surplus stock was already consumed.
// @Tags         receiving
// @Produce      json
// @Param        id path string true "Purchase Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=PurchaseOrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receiving/purchase-orders/{id}/reopen [post]
func (h *ReceivingHandler) Reopen(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	// Reopening user from JWT context (optional, recorded on the audit event)
	reopenedBy, _ := getUserID(c)

	order, err := h.allocationService.ReopenOrder(c.Request.Context(), orderID, reopenedBy)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPurchaseOrderResponse(order))
}

// toSaveAllocationsRequest converts the wire allocation set to the
// application request. Responds 400 and returns false when an ID or
// quantity does not parse; an empty quantity means zero.
func (h *ReceivingHandler) toSaveAllocationsRequest(c *gin.Context, req SaveAllocationsRequest) (receivingapp.SaveAllocationsRequest, bool) {
	appReq := receivingapp.SaveAllocationsRequest{
		Allocations: make([]receivingapp.AllocationEntryRequest, len(req.Allocations)),
	}
	for i, entry := range req.Allocations {
		salesOrderID, err := uuid.Parse(entry.SalesOrderID)
		if err != nil {
			h.BadRequest(c, "Invalid sales order ID format")
			return receivingapp.SaveAllocationsRequest{}, false
		}
		qty := decimal.Zero
		if entry.AllocateQty != "" {
			qty, err = decimal.NewFromString(entry.AllocateQty)
			if err != nil {
				h.BadRequest(c, "Invalid allocation quantity format")
				return receivingapp.SaveAllocationsRequest{}, false
			}
		}
		appReq.Allocations[i] = receivingapp.AllocationEntryRequest{
			PartNumber:   entry.PartNumber,
			SalesOrderID: salesOrderID,
			AllocateQty:  qty,
		}
	}
	if len(req.SurplusPerPart) > 0 {
		appReq.SurplusPerPart = make(map[string]decimal.Decimal, len(req.SurplusPerPart))
		for part, raw := range req.SurplusPerPart {
			qty, err := decimal.NewFromString(raw)
			if err != nil {
				h.BadRequest(c, "Invalid surplus quantity format")
				return receivingapp.SaveAllocationsRequest{}, false
			}
			appReq.SurplusPerPart[part] = qty
		}
	}
	return appReq, true
}

// rejected sends a 422 response carrying the rejected result so the caller
// sees the itemized violations alongside the error envelope
func (h *ReceivingHandler) rejected(c *gin.Context, result any) {
	resp := dto.NewErrorResponseWithRequestID(
		dto.ErrCodeAllocationRejected,
		"Allocation set was rejected",
		getRequestID(c),
	)
	resp.Data = result
	c.JSON(http.StatusUnprocessableEntity, resp)
}

// toPurchaseOrderResponse converts application response to handler response
func toPurchaseOrderResponse(order *receivingapp.PurchaseOrderResponse) PurchaseOrderResponse {
	receipts := make([]PartReceiptResponse, len(order.Receipts))
	for i, receipt := range order.Receipts {
		receipts[i] = PartReceiptResponse{
			ID:               receipt.ID.String(),
			PartNumber:       receipt.PartNumber,
			PartDescription:  receipt.PartDescription,
			QuantityReceived: receipt.QuantityReceived.String(),
			CreatedAt:        receipt.CreatedAt,
			UpdatedAt:        receipt.UpdatedAt,
		}
	}

	resp := PurchaseOrderResponse{
		ID:           order.ID.String(),
		OrderNumber:  order.OrderNumber,
		SupplierName: order.SupplierName,
		Status:       order.Status,
		Remark:       order.Remark,
		Receipts:     receipts,
		ClosedAt:     order.ClosedAt,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
		Version:      order.Version,
	}

	if order.ClosedBy != nil {
		closedBy := order.ClosedBy.String()
		resp.ClosedBy = &closedBy
	}

	return resp
}

// toPurchaseOrderDetailResponse converts application response to handler response
func toPurchaseOrderDetailResponse(detail *receivingapp.PurchaseOrderDetailResponse) PurchaseOrderDetailResponse {
	return PurchaseOrderDetailResponse{
		PurchaseOrderResponse: toPurchaseOrderResponse(&detail.PurchaseOrderResponse),
		Allocations:           toAllocationDecisionResponses(detail.Allocations),
	}
}

// toPurchaseOrderListItemResponses converts application list responses to handler responses
func toPurchaseOrderListItemResponses(orders []receivingapp.PurchaseOrderListItemResponse) []PurchaseOrderListItemResponse {
	responses := make([]PurchaseOrderListItemResponse, len(orders))
	for i, order := range orders {
		responses[i] = PurchaseOrderListItemResponse{
			ID:            order.ID.String(),
			OrderNumber:   order.OrderNumber,
			SupplierName:  order.SupplierName,
			Status:        order.Status,
			PartCount:     order.PartCount,
			TotalReceived: order.TotalReceived.String(),
			ClosedAt:      order.ClosedAt,
			UpdatedAt:     order.UpdatedAt,
		}
	}
	return responses
}

// toSuggestionResponse converts application response to handler response
func toSuggestionResponse(suggestion *receivingapp.SuggestionResponse) SuggestionResponse {
	parts := make([]PartSuggestionResponse, len(suggestion.Parts))
	for i, part := range suggestion.Parts {
		lines := make([]SuggestedLineResponse, len(part.Lines))
		for j, line := range part.Lines {
			lines[j] = SuggestedLineResponse{
				SalesOrderID:      line.SalesOrderID.String(),
				SalesOrderNumber:  line.SalesOrderNumber,
				CustomerName:      line.CustomerName,
				SalesDate:         line.SalesDate,
				QuantityOrdered:   line.QuantityOrdered.String(),
				QuantityFulfilled: line.QuantityFulfilled.String(),
				StillNeeded:       line.StillNeeded.String(),
				IsNeeded:          line.IsNeeded,
				SuggestedQty:      line.AllocateQty.String(),
			}
		}
		parts[i] = PartSuggestionResponse{
			PartNumber:       part.PartNumber,
			PartDescription:  part.PartDescription,
			QuantityReceived: part.QuantityReceived.String(),
			TotalNeeded:      part.TotalNeeded.String(),
			HasSurplus:       part.HasSurplus,
			SuggestedSurplus: part.Surplus.String(),
			Lines:            lines,
		}
	}

	return SuggestionResponse{
		OrderID:     suggestion.OrderID.String(),
		OrderNumber: suggestion.OrderNumber,
		Status:      suggestion.Status,
		Resumed:     suggestion.Resumed,
		Parts:       parts,
	}
}

// toAllocationDecisionResponses converts application ledger rows to handler responses
func toAllocationDecisionResponses(decisions []receivingapp.AllocationDecisionResponse) []AllocationDecisionResponse {
	responses := make([]AllocationDecisionResponse, len(decisions))
	for i, decision := range decisions {
		resp := AllocationDecisionResponse{
			ID:         decision.ID.String(),
			PartNumber: decision.PartNumber,
			Quantity:   decision.Quantity.String(),
			IsSurplus:  decision.IsSurplus,
			UpdatedAt:  decision.UpdatedAt,
		}
		if decision.SalesOrderID != nil {
			resp.SalesOrderID = decision.SalesOrderID.String()
		}
		responses[i] = resp
	}
	return responses
}

// toViolationResponses converts domain violations to handler responses
func toViolationResponses(violations []receiving.Violation) []ViolationResponse {
	responses := make([]ViolationResponse, len(violations))
	for i, violation := range violations {
		resp := ViolationResponse{
			Code:             string(violation.Code),
			PartNumber:       violation.PartNumber,
			SalesOrderNumber: violation.SalesOrderNumber,
			Shortfall:        violation.Shortfall.String(),
			Message:          violation.Message,
		}
		if violation.SalesOrderID != nil {
			resp.SalesOrderID = violation.SalesOrderID.String()
		}
		responses[i] = resp
	}
	return responses
}

// toWarningResponses converts domain warnings to handler responses
func toWarningResponses(warnings []receiving.Warning) []WarningResponse {
	responses := make([]WarningResponse, len(warnings))
	for i, warning := range warnings {
		responses[i] = WarningResponse{
			Code:             string(warning.Code),
			PartNumber:       warning.PartNumber,
			SalesOrderID:     warning.SalesOrderID.String(),
			SalesOrderNumber: warning.SalesOrderNumber,
			Shortfall:        warning.Shortfall.String(),
			Message:          warning.Message,
		}
	}
	return responses
}

// toValidationResponse converts application response to handler response
func toValidationResponse(result *receivingapp.ValidationResponse) ValidationResponse {
	return ValidationResponse{
		Valid:      result.Valid,
		Violations: toViolationResponses(result.Violations),
		Warnings:   toWarningResponses(result.Warnings),
	}
}

// toSaveAllocationsResponse converts application response to handler response
func toSaveAllocationsResponse(result *receivingapp.SaveAllocationsResponse) SaveAllocationsResponse {
	return SaveAllocationsResponse{
		Saved:          result.Saved,
		OrderID:        result.OrderID.String(),
		DecisionCount:  result.DecisionCount,
		TotalAllocated: result.TotalAllocated.String(),
		TotalSurplus:   result.TotalSurplus.String(),
		Violations:     toViolationResponses(result.Violations),
		Warnings:       toWarningResponses(result.Warnings),
	}
}

// toCloseOrderResponse converts application response to handler response
func toCloseOrderResponse(result *receivingapp.CloseOrderResponse) CloseOrderResponse {
	resp := CloseOrderResponse{
		Closed:     result.Closed,
		Violations: toViolationResponses(result.Violations),
		Warnings:   toWarningResponses(result.Warnings),
	}
	if result.Order != nil {
		order := toPurchaseOrderResponse(result.Order)
		resp.Order = &order
	}
	return resp
}
