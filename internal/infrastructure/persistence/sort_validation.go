package persistence

import (
	"strings"
)

// sortColumns maps the field names callers may sort by to table columns
type sortColumns map[string]string

// purchaseOrderSortColumns lists the purchase order list orderings
var purchaseOrderSortColumns = sortColumns{
	"order_date":             "order_date",
	"order_number":           "order_number",
	"expected_delivery_date": "expected_delivery_date",
	"status":                 "status",
	"total":                  "total",
	"created_at":             "created_at",
}

// orderClause builds one ORDER BY term. Fields outside columns fall back to
// defaultField and anything but "asc" sorts descending, so caller input
// never reaches the SQL text.
func (columns sortColumns) orderClause(field, dir, defaultField string) string {
	column, ok := columns[strings.TrimSpace(field)]
	if !ok {
		column = columns[defaultField]
	}
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return column + " ASC"
	}
	return column + " DESC"
}
