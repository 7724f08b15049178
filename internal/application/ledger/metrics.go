package ledger

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/domain/ledger"
)

// Metrics observes ledger writes and audits
type Metrics interface {
	TransactionRecorded(ctx context.Context, txType ledger.TransactionType, elapsed time.Duration)
	TransactionRejected(ctx context.Context, txType ledger.TransactionType, err error)
	LedgerVerified(ctx context.Context, keys, inconsistent int)
}

type noopMetrics struct{}

func (noopMetrics) TransactionRecorded(context.Context, ledger.TransactionType, time.Duration) {}
func (noopMetrics) TransactionRejected(context.Context, ledger.TransactionType, error)         {}
func (noopMetrics) LedgerVerified(context.Context, int, int)                                   {}

// WithMetrics sets the recorder notified of every Record and VerifyAll call
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}
