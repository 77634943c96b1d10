package receiving

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/receiving/internal/domain/inventory"
	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/erp/receiving/internal/domain/sales"
	"github.com/erp/receiving/internal/domain/shared"
	"github.com/erp/receiving/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLocker serializes writers on a single purchase order. Acquire returns
// a release function to be called when the write is finished, or an error
// when another writer currently holds the order.
type OrderLocker interface {
	Acquire(ctx context.Context, orderID uuid.UUID) (release func(), err error)
}

// errAllocationRejected aborts a closing transaction after validation found
// hard violations. It never escapes the service.
var errAllocationRejected = errors.New("allocation set rejected")

// AllocationService implements the receiving allocation use cases: proposing
// an allocation of received quantities over open demand, validating and
// saving operator edits, and committing them by closing the purchase order.
type AllocationService struct {
	orderRepo         receiving.PurchaseOrderRepository
	allocationRepo    receiving.AllocationDecisionRepository
	lineRepo          sales.SalesOrderLineRepository
	inventoryRepo     inventory.InventoryItemRepository
	txScope           TransactionScope
	orderLocker       OrderLocker
	eventPublisher    shared.EventPublisher
	allocationMetrics *telemetry.AllocationMetrics
}

// NewAllocationService creates a new allocation service
func NewAllocationService(
	orderRepo receiving.PurchaseOrderRepository,
	allocationRepo receiving.AllocationDecisionRepository,
	lineRepo sales.SalesOrderLineRepository,
	inventoryRepo inventory.InventoryItemRepository,
	txScope TransactionScope,
	orderLocker OrderLocker,
) *AllocationService {
	return &AllocationService{
		orderRepo:      orderRepo,
		allocationRepo: allocationRepo,
		lineRepo:       lineRepo,
		inventoryRepo:  inventoryRepo,
		txScope:        txScope,
		orderLocker:    orderLocker,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *AllocationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetAllocationMetrics sets the business metrics collector
func (s *AllocationService) SetAllocationMetrics(metrics *telemetry.AllocationMetrics) {
	s.allocationMetrics = metrics
}

// GetOrder returns a purchase order with its receipt lines
func (s *AllocationService) GetOrder(ctx context.Context, orderID uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// GetOrderDetail returns a purchase order together with its saved allocation
// ledger. The ledger is empty when no allocation set was saved yet.
func (s *AllocationService) GetOrderDetail(ctx context.Context, orderID uuid.UUID) (*PurchaseOrderDetailResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	decisions, err := s.allocationRepo.FindByPurchaseOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &PurchaseOrderDetailResponse{
		PurchaseOrderResponse: ToPurchaseOrderResponse(order),
		Allocations:           ToAllocationDecisionResponses(decisions),
	}, nil
}

// GetOrderByNumber returns a purchase order looked up by its order number
func (s *AllocationService) GetOrderByNumber(ctx context.Context, orderNumber string) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// ListOrders returns purchase orders with pagination and filtering
func (s *AllocationService) ListOrders(ctx context.Context, filter PurchaseOrderListFilter) (*shared.Paginated[PurchaseOrderListItemResponse], error) {
	// Apply defaults
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "updated_at"
		filter.OrderDir = "desc"
	}

	repoFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}
	if filter.Status != "" {
		repoFilter.Filters["status"] = filter.Status
	}
	if filter.Supplier != "" {
		repoFilter.Filters["supplier_name"] = filter.Supplier
	}

	orders, err := s.orderRepo.FindAll(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.orderRepo.Count(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(ToPurchaseOrderListItemResponses(orders), total, repoFilter.Page, repoFilter.PageSize)
	return &page, nil
}

// GetSuggestions returns the proposed allocation for a purchase order. When
// decisions were saved earlier the proposal resumes from them; otherwise it
// is a fresh oldest-order-first fill of the open demand.
func (s *AllocationService) GetSuggestions(ctx context.Context, orderID uuid.UUID) (*SuggestionResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	session, err := s.buildSession(ctx, order)
	if err != nil {
		return nil, err
	}
	return &SuggestionResponse{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status.String(),
		Resumed:     len(session.Saved) > 0,
		Parts:       ToPartSuggestionResponses(session.Suggest()),
	}, nil
}

// GetAllocations returns the saved decision rows for a purchase order
func (s *AllocationService) GetAllocations(ctx context.Context, orderID uuid.UUID) ([]AllocationDecisionResponse, error) {
	if _, err := s.orderRepo.FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	decisions, err := s.allocationRepo.FindByPurchaseOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToAllocationDecisionResponses(decisions), nil
}

// ValidateAllocations checks an allocation set against the current demand
// snapshot without persisting anything. Malformed input is returned as an
// error; business violations and warnings are reported in the response.
func (s *AllocationService) ValidateAllocations(ctx context.Context, orderID uuid.UUID, req SaveAllocationsRequest) (*ValidationResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsOpen() {
		return nil, shared.NewDomainError("ORDER_NOT_OPEN", fmt.Sprintf("Purchase order %s is already closed", order.OrderNumber))
	}
	session, err := s.buildSession(ctx, order)
	if err != nil {
		return nil, err
	}
	result, err := session.Validate(req.ToBatch())
	if err != nil {
		return nil, err
	}
	response := ToValidationResponse(result)
	return &response, nil
}

// SaveAllocations replaces the saved decision set for an open purchase order.
// The set is validated first; hard violations abort the save and are returned
// in the response with Saved false. Warnings do not block the save. Saving
// has no side effects on sales orders or inventory; those happen at close.
func (s *AllocationService) SaveAllocations(ctx context.Context, orderID uuid.UUID, req SaveAllocationsRequest) (*SaveAllocationsResponse, error) {
	release, err := s.lockOrder(ctx, orderID, "save_allocations")
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsOpen() {
		return nil, shared.NewDomainError("ORDER_NOT_OPEN", fmt.Sprintf("Purchase order %s is already closed", order.OrderNumber))
	}

	session, err := s.buildSession(ctx, order)
	if err != nil {
		return nil, err
	}
	batch := req.ToBatch()
	result, err := session.Validate(batch)
	if err != nil {
		return nil, err
	}
	if !result.IsValid() {
		s.recordViolations(ctx, result.Violations)
		return &SaveAllocationsResponse{
			Saved:      false,
			OrderID:    order.ID,
			Violations: result.Violations,
			Warnings:   result.Warnings,
		}, nil
	}

	decisions, err := session.Decisions(batch)
	if err != nil {
		return nil, err
	}
	if err := s.allocationRepo.ReplaceForPurchaseOrder(ctx, order.ID, decisions); err != nil {
		return nil, err
	}

	event := receiving.NewAllocationsSavedEvent(order, decisions)
	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, event)
	}
	if s.allocationMetrics != nil {
		s.allocationMetrics.RecordAllocationsSaved(ctx, telemetry.AllocationOperationSave, event.TotalAllocated, event.TotalSurplus)
	}

	return &SaveAllocationsResponse{
		Saved:          true,
		OrderID:        order.ID,
		DecisionCount:  len(decisions),
		TotalAllocated: event.TotalAllocated,
		TotalSurplus:   event.TotalSurplus,
		Warnings:       result.Warnings,
	}, nil
}

// CloseWithAllocations saves the final allocation set and closes the purchase
// order in one transaction: the decision rows are replaced, allocated
// quantities are applied to the sales order lines, surplus quantities are
// posted to stock, and the order flips to CLOSED. If validation finds hard
// violations nothing is persisted and the order stays open.
func (s *AllocationService) CloseWithAllocations(ctx context.Context, orderID, closedBy uuid.UUID, req CloseOrderRequest) (*CloseOrderResponse, error) {
	release, err := s.lockOrder(ctx, orderID, "close_order")
	if err != nil {
		return nil, err
	}
	defer release()

	batch := req.ToBatch()
	var (
		order     *receiving.PurchaseOrder
		result    receiving.ValidationResult
		decisions []receiving.AllocationDecision
	)

	txErr := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.PurchaseOrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.IsOpen() {
			return shared.NewDomainError("ORDER_NOT_OPEN", fmt.Sprintf("Purchase order %s is already closed", order.OrderNumber))
		}

		lines, err := repos.SalesOrderLineRepo().FindOpenByParts(ctx, order.PartNumbers())
		if err != nil {
			return err
		}
		saved, err := repos.AllocationRepo().FindByPurchaseOrder(ctx, orderID)
		if err != nil {
			return err
		}
		session := receiving.NewAllocationSession(order, toDemandLines(lines), saved)

		result, err = session.Validate(batch)
		if err != nil {
			return err
		}
		if !result.IsValid() {
			return errAllocationRejected
		}

		decisions, err = session.Decisions(batch)
		if err != nil {
			return err
		}
		if err := repos.AllocationRepo().ReplaceForPurchaseOrder(ctx, orderID, decisions); err != nil {
			return err
		}
		if err := applyFulfillment(ctx, repos.SalesOrderLineRepo(), lines, decisions); err != nil {
			return err
		}
		if err := postSurplus(ctx, repos.InventoryRepo(), order, decisions); err != nil {
			return err
		}

		if req.Remark != "" {
			order.SetRemark(req.Remark)
		}
		if err := order.Close(closedBy); err != nil {
			return err
		}
		return repos.PurchaseOrderRepo().SaveWithLock(ctx, order)
	})
	if errors.Is(txErr, errAllocationRejected) {
		s.recordViolations(ctx, result.Violations)
		return &CloseOrderResponse{
			Closed:     false,
			Violations: result.Violations,
			Warnings:   result.Warnings,
		}, nil
	}
	if txErr != nil {
		return nil, txErr
	}

	event := receiving.NewAllocationsSavedEvent(order, decisions)
	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, event)
	}
	s.publishDomainEvents(ctx, order)
	if s.allocationMetrics != nil {
		s.allocationMetrics.RecordAllocationsSaved(ctx, telemetry.AllocationOperationClose, event.TotalAllocated, event.TotalSurplus)
		s.allocationMetrics.RecordOrderClosed(ctx)
	}

	orderResponse := ToPurchaseOrderResponse(order)
	return &CloseOrderResponse{
		Closed:   true,
		Order:    &orderResponse,
		Warnings: result.Warnings,
	}, nil
}

// ReopenOrder reverses a close exactly: surplus quantities come back out of
// stock, fulfilled quantities come back off the sales order lines, and the
// order flips to OPEN. The decision rows survive so a later editing session
// resumes from them. Reopening fails when surplus stock was already consumed.
func (s *AllocationService) ReopenOrder(ctx context.Context, orderID, reopenedBy uuid.UUID) (*PurchaseOrderResponse, error) {
	release, err := s.lockOrder(ctx, orderID, "reopen_order")
	if err != nil {
		return nil, err
	}
	defer release()

	var order *receiving.PurchaseOrder
	txErr := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.PurchaseOrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.IsClosed() {
			return shared.NewDomainError("ORDER_NOT_CLOSED", fmt.Sprintf("Purchase order %s is not closed", order.OrderNumber))
		}

		decisions, err := repos.AllocationRepo().FindByPurchaseOrder(ctx, orderID)
		if err != nil {
			return err
		}
		for i := range decisions {
			decision := &decisions[i]
			if !decision.Quantity.IsPositive() {
				continue
			}
			if decision.IsSurplus() {
				if err := reverseSurplus(ctx, repos.InventoryRepo(), decision.PartNumber, decision.Quantity); err != nil {
					return err
				}
				continue
			}
			line, err := repos.SalesOrderLineRepo().FindBySalesOrderAndPart(ctx, *decision.SalesOrderID, decision.PartNumber)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return shared.NewDomainError("DEMAND_LINE_MISSING", fmt.Sprintf("No sales order line for order %s and part %s", *decision.SalesOrderID, decision.PartNumber))
				}
				return err
			}
			if err := line.ReverseFulfillment(decision.Quantity); err != nil {
				return err
			}
			if err := repos.SalesOrderLineRepo().SaveWithLock(ctx, line); err != nil {
				return err
			}
		}

		if err := order.Reopen(reopenedBy); err != nil {
			return err
		}
		return repos.PurchaseOrderRepo().SaveWithLock(ctx, order)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.publishDomainEvents(ctx, order)
	if s.allocationMetrics != nil {
		s.allocationMetrics.RecordOrderReopened(ctx)
	}

	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// buildSession loads the demand snapshot and saved decisions for an order
func (s *AllocationService) buildSession(ctx context.Context, order *receiving.PurchaseOrder) (*receiving.AllocationSession, error) {
	lines, err := s.lineRepo.FindOpenByParts(ctx, order.PartNumbers())
	if err != nil {
		return nil, err
	}
	saved, err := s.allocationRepo.FindByPurchaseOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return receiving.NewAllocationSession(order, toDemandLines(lines), saved), nil
}

// lockOrder acquires the single-writer lock for an order. Without a
// configured locker writes proceed unserialized.
func (s *AllocationService) lockOrder(ctx context.Context, orderID uuid.UUID, operation string) (func(), error) {
	if s.orderLocker == nil {
		return func() {}, nil
	}
	release, err := s.orderLocker.Acquire(ctx, orderID)
	if err != nil {
		if s.allocationMetrics != nil {
			s.allocationMetrics.RecordLockContention(ctx, operation)
		}
		return nil, err
	}
	return release, nil
}

// recordViolations counts each violation code in a rejected allocation set
func (s *AllocationService) recordViolations(ctx context.Context, violations []receiving.Violation) {
	if s.allocationMetrics == nil {
		return
	}
	for i := range violations {
		s.allocationMetrics.RecordValidationFailure(ctx, string(violations[i].Code))
	}
}

// publishDomainEvents publishes all domain events from an aggregate and clears them
func (s *AllocationService) publishDomainEvents(ctx context.Context, order *receiving.PurchaseOrder) {
	if s.eventPublisher == nil {
		order.ClearDomainEvents()
		return
	}
	events := order.GetDomainEvents()
	if len(events) > 0 {
		_ = s.eventPublisher.Publish(ctx, events...)
	}
	order.ClearDomainEvents()
}

// toDemandLines projects sales order lines into the demand snapshot shape
func toDemandLines(lines []sales.SalesOrderLine) []receiving.DemandLine {
	demand := make([]receiving.DemandLine, len(lines))
	for i := range lines {
		demand[i] = receiving.DemandLine{
			SalesOrderID:      lines[i].SalesOrderID,
			SalesOrderNumber:  lines[i].SalesOrderNumber,
			CustomerName:      lines[i].CustomerName,
			SalesDate:         lines[i].SalesDate,
			PartNumber:        lines[i].PartNumber,
			QuantityOrdered:   lines[i].QuantityOrdered,
			QuantityFulfilled: lines[i].QuantityFulfilled,
		}
	}
	return demand
}

type lineKey struct {
	salesOrderID uuid.UUID
	partNumber   string
}

// applyFulfillment applies each allocated quantity to its sales order line.
// Validation already guaranteed every allocation references a line in the
// demand snapshot.
func applyFulfillment(ctx context.Context, lineRepo sales.SalesOrderLineRepository, lines []sales.SalesOrderLine, decisions []receiving.AllocationDecision) error {
	index := make(map[lineKey]*sales.SalesOrderLine, len(lines))
	for i := range lines {
		index[lineKey{lines[i].SalesOrderID, lines[i].PartNumber}] = &lines[i]
	}
	for i := range decisions {
		decision := &decisions[i]
		if decision.IsSurplus() || !decision.Quantity.IsPositive() {
			continue
		}
		line, ok := index[lineKey{*decision.SalesOrderID, decision.PartNumber}]
		if !ok {
			return shared.NewDomainError("DEMAND_LINE_MISSING", fmt.Sprintf("No open sales order line for order %s and part %s", *decision.SalesOrderID, decision.PartNumber))
		}
		if err := line.Fulfill(decision.Quantity); err != nil {
			return err
		}
		if err := lineRepo.SaveWithLock(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

// postSurplus adds each surplus quantity to the part's stock on hand,
// creating the stock record on first receipt of a part.
func postSurplus(ctx context.Context, inventoryRepo inventory.InventoryItemRepository, order *receiving.PurchaseOrder, decisions []receiving.AllocationDecision) error {
	for i := range decisions {
		decision := &decisions[i]
		if !decision.IsSurplus() || !decision.Quantity.IsPositive() {
			continue
		}
		item, err := inventoryRepo.FindByPartNumber(ctx, decision.PartNumber)
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			description := ""
			if receipt := order.ReceiptFor(decision.PartNumber); receipt != nil {
				description = receipt.PartDescription
			}
			item, err = inventory.NewInventoryItem(decision.PartNumber, description, decision.Quantity)
			if err != nil {
				return err
			}
			if err := inventoryRepo.Save(ctx, item); err != nil {
				return err
			}
			continue
		}
		if err := item.Increase(decision.Quantity); err != nil {
			return err
		}
		if err := inventoryRepo.SaveWithLock(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// reverseSurplus takes a previously posted surplus quantity back out of
// stock. It fails when the stock on hand no longer covers the quantity.
func reverseSurplus(ctx context.Context, inventoryRepo inventory.InventoryItemRepository, partNumber string, quantity decimal.Decimal) error {
	item, err := inventoryRepo.FindByPartNumber(ctx, partNumber)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError(shared.ErrInsufficientStock.Code, fmt.Sprintf("No stock on hand for part %s to reverse", partNumber))
		}
		return err
	}
	if err := item.Decrease(quantity); err != nil {
		return err
	}
	return inventoryRepo.SaveWithLock(ctx, item)
}
