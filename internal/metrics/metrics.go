package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"

	"retail-ops/internal/config"
	"retail-ops/internal/domain"
)

// AppMetrics holds the business and HTTP instruments
type AppMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	SalesCommitted         metric.Int64Counter
	RevenueTotal           metric.Float64Counter
	PaymentIntentsCreated  metric.Int64Counter
	Reconciliations        metric.Int64Counter
	PurchaseOrdersPlaced   metric.Int64Counter
	PurchaseOrdersReceived metric.Int64Counter
	InventoryLevel         metric.Int64Gauge
}

// InitProvider builds the meter provider. With metrics disabled the provider
// has no reader and records nothing.
func InitProvider(ctx context.Context, cfg config.MetricsConfig, env string) (*sdkmetric.MeterProvider, error) {
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			attribute.String("deployment.environment", env),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if cfg.Enabled {
		exporterOpts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithURLPath("/v1/metrics"),
		}
		if cfg.Insecure {
			exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))))
	}

	provider := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(provider)
	return provider, nil
}

// New creates every instrument on the given meter.
func New(meter metric.Meter) (*AppMetrics, error) {
	m := &AppMetrics{}
	var err error

	buckets := []float64{2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

	if m.HTTPRequestsTotal, err = meter.Int64Counter("http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	if m.SalesCommitted, err = meter.Int64Counter("sales_committed_total",
		metric.WithDescription("Sales committed with their stock decrement"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create sales counter: %w", err)
	}

	if m.RevenueTotal, err = meter.Float64Counter("revenue_total",
		metric.WithDescription("Revenue of committed sales"),
	); err != nil {
		return nil, fmt.Errorf("failed to create revenue counter: %w", err)
	}

	if m.PaymentIntentsCreated, err = meter.Int64Counter("payment_intents_total",
		metric.WithDescription("Payment intent requests, labelled by whether an existing intent was reused"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create payment intents counter: %w", err)
	}

	if m.Reconciliations, err = meter.Int64Counter("payment_reconciliations_total",
		metric.WithDescription("Captured payments whose sale could not be committed"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create reconciliations counter: %w", err)
	}

	if m.PurchaseOrdersPlaced, err = meter.Int64Counter("purchase_orders_placed_total",
		metric.WithDescription("Purchase orders placed with suppliers"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create purchase orders placed counter: %w", err)
	}

	if m.PurchaseOrdersReceived, err = meter.Int64Counter("purchase_orders_received_total",
		metric.WithDescription("Purchase orders received into stock"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create purchase orders received counter: %w", err)
	}

	if m.InventoryLevel, err = meter.Int64Gauge("inventory_level",
		metric.WithDescription("Current stock for products touched by a stock mutation"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create inventory gauge: %w", err)
	}

	return m, nil
}

// NewNoop returns instruments that record nothing.
func NewNoop() *AppMetrics {
	m, _ := New(noop.NewMeterProvider().Meter("noop"))
	return m
}

func (m *AppMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.response.status_code", status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}

func (m *AppMetrics) RecordSale(ctx context.Context, sale *domain.Sale) {
	attrs := metric.WithAttributes(attribute.String("sale.type", string(sale.Type)))
	m.SalesCommitted.Add(ctx, 1, attrs)
	m.RevenueTotal.Add(ctx, sale.TotalAmount.InexactFloat64(), attrs)
}

func (m *AppMetrics) RecordPaymentIntent(ctx context.Context, reused bool) {
	m.PaymentIntentsCreated.Add(ctx, 1, metric.WithAttributes(attribute.Bool("reused", reused)))
}

func (m *AppMetrics) RecordReconciliation(ctx context.Context, reason string) {
	m.Reconciliations.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *AppMetrics) RecordPurchaseOrderPlaced(ctx context.Context, order *domain.PurchaseOrder) {
	m.PurchaseOrdersPlaced.Add(ctx, 1, metric.WithAttributes(attribute.String("supplier_id", order.SupplierID.String())))
}

func (m *AppMetrics) RecordPurchaseOrderReceived(ctx context.Context, order *domain.PurchaseOrder) {
	m.PurchaseOrdersReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("supplier_id", order.SupplierID.String())))
}

// RecordStockLevels reports the post-mutation stock of each product.
func (m *AppMetrics) RecordStockLevels(ctx context.Context, levels map[string]int) {
	for productID, level := range levels {
		m.InventoryLevel.Record(ctx, int64(level), metric.WithAttributes(attribute.String("product_id", productID)))
	}
}
