package taxation

import (
	"time"

	"github.com/erp/stockledger/internal/domain/taxation"
	"github.com/google/uuid"
)

// AssignTaxProfileRequest links a tax profile to a product
type AssignTaxProfileRequest struct {
	ProductID    uuid.UUID `json:"product_id" validate:"required"`
	TaxProfileID uuid.UUID `json:"tax_profile_id" validate:"required"`
	IsPrimary    bool      `json:"is_primary"`
}

// AssignmentResponse is the read model of a product/tax-profile link
type AssignmentResponse struct {
	ID           uuid.UUID `json:"id"`
	ProductID    uuid.UUID `json:"product_id"`
	TaxProfileID uuid.UUID `json:"tax_profile_id"`
	IsPrimary    bool      `json:"is_primary"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ToAssignmentResponse converts a domain assignment to its response DTO
func ToAssignmentResponse(a *taxation.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:           a.ID,
		ProductID:    a.ProductID,
		TaxProfileID: a.TaxProfileID,
		IsPrimary:    a.IsPrimary,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// ToAssignmentResponses converts a slice of assignments
func ToAssignmentResponses(as []taxation.Assignment) []AssignmentResponse {
	out := make([]AssignmentResponse, len(as))
	for i := range as {
		out[i] = ToAssignmentResponse(&as[i])
	}
	return out
}
