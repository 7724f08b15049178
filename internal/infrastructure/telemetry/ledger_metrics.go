package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/erp/stockledger/internal/domain/shared"
)

const meterName = "stockledger/ledger"

// LedgerMetrics records stock ledger writes and audit outcomes
type LedgerMetrics struct {
	recorded *Counter
	rejected *Counter
	duration *Histogram
	verified *Counter
}

// NewLedgerMetrics registers the ledger instruments on mp
func NewLedgerMetrics(mp *MeterProvider) (*LedgerMetrics, error) {
	meter := mp.Meter(meterName)

	recorded, err := NewCounter(meter, "stock_transactions_recorded_total", "Stock transactions appended to the ledger", "{transaction}")
	if err != nil {
		return nil, err
	}
	rejected, err := NewCounter(meter, "stock_transactions_rejected_total", "Stock transactions refused before commit", "{transaction}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, "stock_transaction_record_duration_seconds", "Time from key lock to commit", "s", RecordDurationBuckets)
	if err != nil {
		return nil, err
	}
	verified, err := NewCounter(meter, "stock_ledger_keys_verified_total", "Balance keys replayed by the ledger audit", "{key}")
	if err != nil {
		return nil, err
	}
	return &LedgerMetrics{recorded: recorded, rejected: rejected, duration: duration, verified: verified}, nil
}

// TransactionRecorded counts one committed transaction
func (m *LedgerMetrics) TransactionRecorded(ctx context.Context, txType ledger.TransactionType, elapsed time.Duration) {
	attr := AttrTransactionType.String(txType.String())
	m.recorded.Inc(ctx, attr)
	m.duration.RecordDuration(ctx, elapsed, attr)
}

// TransactionRejected counts one refused transaction by domain error code
func (m *LedgerMetrics) TransactionRejected(ctx context.Context, txType ledger.TransactionType, err error) {
	m.rejected.Inc(ctx, AttrTransactionType.String(txType.String()), AttrErrorCode.String(errorCode(err)))
}

// LedgerVerified counts audited keys split by outcome
func (m *LedgerMetrics) LedgerVerified(ctx context.Context, keys, inconsistent int) {
	if consistent := keys - inconsistent; consistent > 0 {
		m.verified.Add(ctx, int64(consistent), AttrConsistent.Bool(true))
	}
	if inconsistent > 0 {
		m.verified.Add(ctx, int64(inconsistent), AttrConsistent.Bool(false))
	}
}

func errorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL"
}
