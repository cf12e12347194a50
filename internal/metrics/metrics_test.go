package metrics

import (
	"context"
	"testing"
	"time"

	"retail-ops/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestAppMetrics_RecordsBusinessEvents(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := New(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordSale(ctx, &domain.Sale{Type: domain.SaleOnline, TotalAmount: decimal.NewFromInt(230)})
	m.RecordSale(ctx, &domain.Sale{Type: domain.SaleOffline, TotalAmount: decimal.NewFromInt(20)})
	m.RecordReconciliation(ctx, "stock_conflict")
	m.RecordPaymentIntent(ctx, false)
	m.RecordPurchaseOrderPlaced(ctx, &domain.PurchaseOrder{SupplierID: uuid.New()})
	m.RecordStockLevels(ctx, map[string]int{uuid.NewString(): 7})
	m.RecordHTTPRequest(ctx, "GET", "/health", 200, 3*time.Millisecond)

	data := collect(t, reader)

	sales, ok := data["sales_committed_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sales.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(2), total)

	revenue, ok := data["revenue_total"].(metricdata.Sum[float64])
	require.True(t, ok)
	var sum float64
	for _, dp := range revenue.DataPoints {
		sum += dp.Value
	}
	assert.InDelta(t, 250.0, sum, 1e-9)

	recon, ok := data["payment_reconciliations_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, recon.DataPoints, 1)
	assert.Equal(t, int64(1), recon.DataPoints[0].Value)

	gauge, ok := data["inventory_level"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(7), gauge.DataPoints[0].Value)

	_, ok = data["http.server.request.duration"].(metricdata.Histogram[float64])
	assert.True(t, ok)
}

func TestNewNoop(t *testing.T) {
	m := NewNoop()
	require.NotNil(t, m)
	m.RecordSale(context.Background(), &domain.Sale{TotalAmount: decimal.NewFromInt(1)})
}
