// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: shared columns and the migration list
//   - catalog.go: products, tax profiles and product tax profile assignments
//   - partner.go: suppliers and warehouses
//   - ledger.go: stock balances and the stock transaction ledger
//   - purchasing.go: purchase orders with lines, status history and attachments
package models
