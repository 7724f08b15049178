package models

import (
	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/warehouse"
)

// SupplierModel is the persistence model for supplier master data
type SupplierModel struct {
	BaseModel
	Name     string `gorm:"type:varchar(200);not null"`
	IsActive bool   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SupplierModel) TableName() string {
	return "suppliers"
}

// ToDomain converts the persistence model to a catalog Supplier
func (m *SupplierModel) ToDomain() *catalog.Supplier {
	return &catalog.Supplier{
		ID:       m.ID,
		Name:     m.Name,
		IsActive: m.IsActive,
	}
}

// WarehouseModel is the persistence model for the Warehouse aggregate root.
// NameKey holds the case-folded name and carries the uniqueness constraint;
// idx_warehouses_single_primary admits at most one primary row.
type WarehouseModel struct {
	AggregateModel
	Name            string `gorm:"type:varchar(100);not null"`
	NameKey         string `gorm:"type:varchar(400);not null;uniqueIndex:idx_warehouses_name_key"`
	ShippingAddress string `gorm:"type:varchar(500)"`
	IsActive        bool   `gorm:"not null;index"`
	IsPrimary       bool   `gorm:"not null;default:false;uniqueIndex:idx_warehouses_single_primary,where:is_primary = true"`
}

// TableName returns the table name for GORM
func (WarehouseModel) TableName() string {
	return "warehouses"
}

// ToDomain converts the persistence model to a domain Warehouse
func (m *WarehouseModel) ToDomain() *warehouse.Warehouse {
	return &warehouse.Warehouse{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Name:              m.Name,
		ShippingAddress:   m.ShippingAddress,
		IsActive:          m.IsActive,
		IsPrimary:         m.IsPrimary,
	}
}

// FromDomain populates the persistence model from a domain Warehouse
func (m *WarehouseModel) FromDomain(w *warehouse.Warehouse) {
	m.FromDomainAggregateRoot(w.BaseAggregateRoot)
	m.Name = w.Name
	m.NameKey = w.NameKey()
	m.ShippingAddress = w.ShippingAddress
	m.IsActive = w.IsActive
	m.IsPrimary = w.IsPrimary
}

// WarehouseModelFromDomain creates a new persistence model from a domain Warehouse
func WarehouseModelFromDomain(w *warehouse.Warehouse) *WarehouseModel {
	m := &WarehouseModel{}
	m.FromDomain(w)
	return m
}

// WarehousesToDomain converts a slice of models, keeping order
func WarehousesToDomain(ms []WarehouseModel) []warehouse.Warehouse {
	out := make([]warehouse.Warehouse, len(ms))
	for i := range ms {
		out[i] = *ms[i].ToDomain()
	}
	return out
}
