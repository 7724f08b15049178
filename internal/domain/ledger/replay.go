package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Mismatch describes the first entry whose snapshot disagrees with the replayed balance
type Mismatch struct {
	Transaction StockTransaction
	Expected    decimal.Decimal
}

// SortLedger orders entries by (TransactionDate, Sequence)
func SortLedger(txs []StockTransaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].TransactionDate.Equal(txs[j].TransactionDate) {
			return txs[i].TransactionDate.Before(txs[j].TransactionDate)
		}
		return txs[i].Sequence < txs[j].Sequence
	})
}

// Replay sums signed deltas over one key's entries in ledger order and checks
// each stored snapshot. It returns the final balance and the first mismatch, if any.
func Replay(txs []StockTransaction) (decimal.Decimal, *Mismatch) {
	ordered := make([]StockTransaction, len(txs))
	copy(ordered, txs)
	SortLedger(ordered)

	balance := decimal.Zero
	for _, tx := range ordered {
		delta, err := SignedDelta(tx.Type, tx.Quantity, directionOf(tx))
		if err != nil || !delta.Equal(tx.SignedQuantity) {
			return balance, &Mismatch{Transaction: tx, Expected: balance.Add(tx.SignedQuantity)}
		}
		balance = balance.Add(delta)
		if !balance.Equal(tx.StockLevelAfter) {
			return balance, &Mismatch{Transaction: tx, Expected: balance}
		}
	}
	return balance, nil
}

func directionOf(tx StockTransaction) Direction {
	if tx.SignedQuantity.IsNegative() {
		return DirectionOut
	}
	return DirectionIn
}
