package models

import (
	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/taxation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for product master data.
// IsActive has no column default so an explicit false is written on create.
type ProductModel struct {
	BaseModel
	Name     string `gorm:"type:varchar(200);not null"`
	SKU      string `gorm:"column:sku;type:varchar(100);not null;uniqueIndex:idx_products_sku"`
	IsActive bool   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a catalog Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		ID:       m.ID,
		Name:     m.Name,
		SKU:      m.SKU,
		IsActive: m.IsActive,
	}
}

// TaxProfileModel is the persistence model for tax profile master data
type TaxProfileModel struct {
	BaseModel
	Name     string          `gorm:"type:varchar(100);not null"`
	Rate     decimal.Decimal `gorm:"type:decimal(7,4);not null"`
	IsActive bool            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TaxProfileModel) TableName() string {
	return "tax_profiles"
}

// ToDomain converts the persistence model to a catalog TaxProfile
func (m *TaxProfileModel) ToDomain() *catalog.TaxProfile {
	return &catalog.TaxProfile{
		ID:       m.ID,
		Name:     m.Name,
		Rate:     m.Rate,
		IsActive: m.IsActive,
	}
}

// ProductTaxProfileModel links a product to a tax profile.
// idx_product_tax_profiles_primary allows one primary row per product.
type ProductTaxProfileModel struct {
	BaseModel
	ProductID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_product_tax_profiles_pair,priority:1;uniqueIndex:idx_product_tax_profiles_primary,where:is_primary = true"`
	TaxProfileID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_product_tax_profiles_pair,priority:2;index"`
	IsPrimary    bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ProductTaxProfileModel) TableName() string {
	return "product_tax_profiles"
}

// ToDomain converts the persistence model to a taxation Assignment
func (m *ProductTaxProfileModel) ToDomain() taxation.Assignment {
	return taxation.Assignment{
		ID:           m.ID,
		ProductID:    m.ProductID,
		TaxProfileID: m.TaxProfileID,
		IsPrimary:    m.IsPrimary,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ProductTaxProfileModelFromDomain creates a persistence model from an Assignment
func ProductTaxProfileModelFromDomain(a *taxation.Assignment) *ProductTaxProfileModel {
	return &ProductTaxProfileModel{
		BaseModel: BaseModel{
			ID:        a.ID,
			CreatedAt: a.CreatedAt,
			UpdatedAt: a.UpdatedAt,
		},
		ProductID:    a.ProductID,
		TaxProfileID: a.TaxProfileID,
		IsPrimary:    a.IsPrimary,
	}
}
