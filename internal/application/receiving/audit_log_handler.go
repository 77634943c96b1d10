package receiving

import (
	"context"
	"fmt"

	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/erp/receiving/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditLogHandler writes a structured audit line for every receiving
// lifecycle event. The log stream is the audit trail for who allocated what
// and when; metric counting happens in the service, not here.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new audit log handler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *AuditLogHandler) EventTypes() []string {
	return []string{
		receiving.EventTypeAllocationsSaved,
		receiving.EventTypePurchaseOrderClosed,
		receiving.EventTypePurchaseOrderReopened,
	}
}

// Handle writes one audit line per lifecycle event
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *receiving.AllocationsSavedEvent:
		h.logger.Info("allocations saved",
			zap.String("event_id", e.EventID().String()),
			zap.String("order_id", e.OrderID.String()),
			zap.String("order_number", e.OrderNumber),
			zap.Int("decision_count", e.DecisionCount),
			zap.String("total_allocated", e.TotalAllocated.String()),
			zap.String("total_surplus", e.TotalSurplus.String()),
		)
	case *receiving.PurchaseOrderClosedEvent:
		fields := []zap.Field{
			zap.String("event_id", e.EventID().String()),
			zap.String("order_id", e.OrderID.String()),
			zap.String("order_number", e.OrderNumber),
			zap.String("supplier_name", e.SupplierName),
			zap.Int("receipt_lines", len(e.Parts)),
		}
		if e.ClosedBy != nil {
			fields = append(fields, zap.String("closed_by", e.ClosedBy.String()))
		}
		h.logger.Info("purchase order closed", fields...)
	case *receiving.PurchaseOrderReopenedEvent:
		fields := []zap.Field{
			zap.String("event_id", e.EventID().String()),
			zap.String("order_id", e.OrderID.String()),
			zap.String("order_number", e.OrderNumber),
		}
		if e.ReopenedBy != nil {
			fields = append(fields, zap.String("reopened_by", e.ReopenedBy.String()))
		}
		h.logger.Info("purchase order reopened", fields...)
	default:
		h.logger.Error("unexpected event type",
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	return nil
}

// Ensure AuditLogHandler implements shared.EventHandler
var _ shared.EventHandler = (*AuditLogHandler)(nil)
