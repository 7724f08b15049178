package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	ledgerapp "github.com/erp/stockledger/internal/application/ledger"
	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

var _ ledgerapp.Metrics = (*telemetry.LedgerMetrics)(nil)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumFor(t *testing.T, m metricdata.Metrics, kv attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(kv.Key); ok && v == kv.Value {
			total += dp.Value
		}
	}
	return total
}

func TestLedgerMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp, err := telemetry.NewMeterProviderWithReader("stockledger-test", reader, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(ctx) })
	assert.True(t, mp.IsEnabled())

	m, err := telemetry.NewLedgerMetrics(mp)
	require.NoError(t, err)

	m.TransactionRecorded(ctx, ledger.TransactionTypePurchase, 20*time.Millisecond)
	m.TransactionRecorded(ctx, ledger.TransactionTypePurchase, 5*time.Millisecond)
	m.TransactionRecorded(ctx, ledger.TransactionTypeSale, time.Millisecond)
	m.TransactionRejected(ctx, ledger.TransactionTypeSale, shared.ErrInsufficientStock.WithMessage("short by 2"))
	m.TransactionRejected(ctx, ledger.TransactionTypeSale, errors.New("connection reset"))
	m.LedgerVerified(ctx, 5, 2)

	got := collect(t, reader)

	recorded := got["stock_transactions_recorded_total"]
	assert.Equal(t, int64(2), sumFor(t, recorded, telemetry.AttrTransactionType.String("PURCHASE")))
	assert.Equal(t, int64(1), sumFor(t, recorded, telemetry.AttrTransactionType.String("SALE")))

	rejected := got["stock_transactions_rejected_total"]
	assert.Equal(t, int64(1), sumFor(t, rejected, telemetry.AttrErrorCode.String("INSUFFICIENT_STOCK")))
	assert.Equal(t, int64(1), sumFor(t, rejected, telemetry.AttrErrorCode.String("INTERNAL")))

	verified := got["stock_ledger_keys_verified_total"]
	assert.Equal(t, int64(3), sumFor(t, verified, telemetry.AttrConsistent.Bool(true)))
	assert.Equal(t, int64(2), sumFor(t, verified, telemetry.AttrConsistent.Bool(false)))

	hist, ok := got["stock_transaction_record_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	mp, err := telemetry.NewMeterProvider(ctx, "stockledger", config.TelemetryConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("x"))

	m, err := telemetry.NewLedgerMetrics(mp)
	require.NoError(t, err)
	m.TransactionRecorded(ctx, ledger.TransactionTypeAdjustment, time.Millisecond)
	assert.NoError(t, mp.Shutdown(ctx))
}
