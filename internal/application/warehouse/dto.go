package warehouse

import (
	"time"

	"github.com/erp/stockledger/internal/domain/warehouse"
	"github.com/google/uuid"
)

// CreateWarehouseRequest is the input for Create
type CreateWarehouseRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	ShippingAddress string `json:"shipping_address" validate:"max=500"`
	IsActive        bool   `json:"is_active"`
	IsPrimary       bool   `json:"is_primary"`
}

// UpdateWarehouseRequest is the input for Update. A nil IsPrimary leaves the
// primary designation untouched.
type UpdateWarehouseRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	ShippingAddress string `json:"shipping_address" validate:"max=500"`
	IsActive        bool   `json:"is_active"`
	IsPrimary       *bool  `json:"is_primary"`
}

// WarehouseResponse is the read model returned by the service
type WarehouseResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	ShippingAddress string    `json:"shipping_address"`
	IsActive        bool      `json:"is_active"`
	IsPrimary       bool      `json:"is_primary"`
	Version         int       `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DeleteWarehouseResponse reports whether the warehouse was removed or only deactivated
type DeleteWarehouseResponse struct {
	ID      uuid.UUID               `json:"id"`
	Outcome warehouse.DeleteOutcome `json:"outcome"`
}

// ToWarehouseResponse converts the domain entity
func ToWarehouseResponse(w *warehouse.Warehouse) WarehouseResponse {
	return WarehouseResponse{
		ID:              w.ID,
		Name:            w.Name,
		ShippingAddress: w.ShippingAddress,
		IsActive:        w.IsActive,
		IsPrimary:       w.IsPrimary,
		Version:         w.Version,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
	}
}

// ToWarehouseResponses converts a slice of entities
func ToWarehouseResponses(ws []warehouse.Warehouse) []WarehouseResponse {
	out := make([]WarehouseResponse, len(ws))
	for i := range ws {
		out[i] = ToWarehouseResponse(&ws[i])
	}
	return out
}
