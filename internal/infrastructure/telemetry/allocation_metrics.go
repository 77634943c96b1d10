// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"go.opentelemetry.io/otel/metric"
)

// AllocationMetrics provides business metrics for the receiving engine.
// It tracks allocation activity, order lifecycle transitions, and the
// standing level of open demand.
type AllocationMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	allocationsSavedTotal *Counter
	allocatedQuantity     *FloatCounter
	orderClosedTotal      *Counter
	orderReopenedTotal    *Counter
	validationFailures    *Counter
	lockContention        *Counter

	// Gauge metrics (point-in-time values)
	openOrders *Gauge
	openDemand *FloatGauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	provider ReceivingMetricsProvider
}

// ReceivingMetricsProvider provides order and demand data for periodic
// metrics collection. This interface allows the telemetry layer to query
// receiving state without depending on the domain packages directly.
type ReceivingMetricsProvider interface {
	// GetOpenPurchaseOrderCount returns the number of purchase orders still open
	GetOpenPurchaseOrderCount(ctx context.Context) (int64, error)

	// GetOpenDemandQuantity returns the total unfulfilled quantity across open sales order lines
	GetOpenDemandQuantity(ctx context.Context) (decimal.Decimal, error)
}

// AllocationMetricsConfig holds configuration for allocation metrics.
type AllocationMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	Provider        ReceivingMetricsProvider
}

// NewAllocationMetrics creates a new AllocationMetrics instance.
func NewAllocationMetrics(cfg AllocationMetricsConfig) (*AllocationMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	am := &AllocationMetrics{
		meter:    cfg.Meter,
		logger:   logger,
		stopChan: make(chan struct{}),
		provider: cfg.Provider,
	}

	var err error

	am.allocationsSavedTotal, err = NewCounter(
		cfg.Meter,
		"receiving_allocations_saved_total",
		"Total number of allocation ledger writes",
		"{saves}",
	)
	if err != nil {
		return nil, err
	}

	am.allocatedQuantity, err = NewFloatCounter(
		cfg.Meter,
		"receiving_allocated_quantity_total",
		"Total quantity routed to sales orders or stock",
		"{units}",
	)
	if err != nil {
		return nil, err
	}

	am.orderClosedTotal, err = NewCounter(
		cfg.Meter,
		"receiving_order_closed_total",
		"Total number of purchase orders closed",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	am.orderReopenedTotal, err = NewCounter(
		cfg.Meter,
		"receiving_order_reopened_total",
		"Total number of purchase orders reopened",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	am.validationFailures, err = NewCounter(
		cfg.Meter,
		"receiving_validation_failure_total",
		"Total number of allocation validation violations",
		"{violations}",
	)
	if err != nil {
		return nil, err
	}

	am.lockContention, err = NewCounter(
		cfg.Meter,
		"receiving_lock_contention_total",
		"Total number of writes rejected because another writer held the order",
		"{conflicts}",
	)
	if err != nil {
		return nil, err
	}

	am.openOrders, err = NewGauge(
		cfg.Meter,
		"receiving_open_purchase_orders",
		"Number of purchase orders currently open",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	am.openDemand, err = NewFloatGauge(
		cfg.Meter,
		"receiving_open_demand_quantity",
		"Total unfulfilled quantity across open sales order lines",
		"{units}",
	)
	if err != nil {
		return nil, err
	}

	return am, nil
}

// =============================================================================
// Allocation Metrics
// =============================================================================

// AllocationOperation labels which write path produced an allocation.
type AllocationOperation string

const (
	AllocationOperationSave  AllocationOperation = "save"
	AllocationOperationClose AllocationOperation = "close"
)

// Metric label values for allocation destinations.
const (
	destinationSalesOrder = "sales_order"
	destinationStock      = "stock"
)

// RecordAllocationsSaved records one allocation ledger write together with
// the quantities it routed. Allocated quantity counts toward sales orders,
// surplus toward stock.
func (am *AllocationMetrics) RecordAllocationsSaved(ctx context.Context, op AllocationOperation, allocated, surplus decimal.Decimal) {
	am.allocationsSavedTotal.Inc(ctx,
		AttrOperation.String(string(op)),
	)
	if allocated.IsPositive() {
		am.allocatedQuantity.Add(ctx, allocated.InexactFloat64(),
			AttrOperation.String(string(op)),
			AttrDestination.String(destinationSalesOrder),
		)
	}
	if surplus.IsPositive() {
		am.allocatedQuantity.Add(ctx, surplus.InexactFloat64(),
			AttrOperation.String(string(op)),
			AttrDestination.String(destinationStock),
		)
	}
}

// RecordValidationFailure records a rejected allocation set, labeled with the
// violation code that rejected it.
func (am *AllocationMetrics) RecordValidationFailure(ctx context.Context, violationCode string) {
	am.validationFailures.Inc(ctx,
		AttrViolationCode.String(violationCode),
	)
}

// RecordLockContention records a write turned away because another writer
// held the order lock.
func (am *AllocationMetrics) RecordLockContention(ctx context.Context, operation string) {
	am.lockContention.Inc(ctx,
		AttrOperation.String(operation),
	)
}

// =============================================================================
// Order Lifecycle Metrics
// =============================================================================

// RecordOrderClosed records a purchase order close.
func (am *AllocationMetrics) RecordOrderClosed(ctx context.Context) {
	am.orderClosedTotal.Inc(ctx)
}

// RecordOrderReopened records a purchase order reopen.
func (am *AllocationMetrics) RecordOrderReopened(ctx context.Context) {
	am.orderReopenedTotal.Inc(ctx)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It samples open order and demand levels every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (am *AllocationMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	am.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go am.runPeriodicCollection(ctx, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (am *AllocationMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	am.collectReceivingMetrics(ctx)

	for {
		select {
		case <-am.stopChan:
			am.logger.Info("Stopping periodic allocation metrics collection")
			return
		case <-ctx.Done():
			am.logger.Info("Context cancelled, stopping periodic allocation metrics collection")
			return
		case <-ticker.C:
			am.collectReceivingMetrics(ctx)
		}
	}
}

// collectReceivingMetrics samples open order and demand gauges.
func (am *AllocationMetrics) collectReceivingMetrics(ctx context.Context) {
	if am.provider == nil {
		am.logger.Debug("No receiving provider configured, skipping gauge collection")
		return
	}

	openCount, err := am.provider.GetOpenPurchaseOrderCount(ctx)
	if err != nil {
		am.logger.Warn("Failed to get open purchase order count", zap.Error(err))
	} else {
		am.openOrders.Record(ctx, openCount)
	}

	demand, err := am.provider.GetOpenDemandQuantity(ctx)
	if err != nil {
		am.logger.Warn("Failed to get open demand quantity", zap.Error(err))
	} else {
		am.openDemand.Record(ctx, demand.InexactFloat64())
	}
}

// Stop stops the periodic collection.
func (am *AllocationMetrics) Stop() {
	am.stopOnce.Do(func() {
		close(am.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewAllocationMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
