package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortColumns_OrderClause(t *testing.T) {
	tests := []struct {
		name  string
		field string
		dir   string
		want  string
	}{
		{"known field ascending", "order_number", "asc", "order_number ASC"},
		{"direction is case-insensitive", "total", " ASC ", "total ASC"},
		{"descending by default", "order_date", "", "order_date DESC"},
		{"unknown direction sorts descending", "order_date", "sideways", "order_date DESC"},
		{"empty field uses default", "", "asc", "created_at ASC"},
		{"unlisted column uses default", "supplier_id", "desc", "created_at DESC"},
		{"field names are case-sensitive", "ORDER_NUMBER", "asc", "created_at ASC"},
		{"surrounding whitespace is ignored", "  status ", "asc", "status ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, purchaseOrderSortColumns.orderClause(tt.field, tt.dir, "created_at"))
		})
	}
}

func TestSortColumns_RejectsInjection(t *testing.T) {
	payloads := []string{
		"order_number; DROP TABLE stock_transactions;--",
		"total' OR '1'='1",
		"order_date UNION SELECT product_id FROM stock_balances",
		"CASE WHEN 1=1 THEN total ELSE order_date END",
		"status\n; DELETE FROM purchase_orders",
	}

	for _, p := range payloads {
		clause := purchaseOrderSortColumns.orderClause(p, p, "created_at")
		assert.Equal(t, "created_at DESC", clause, "payload %q", p)
	}
}
