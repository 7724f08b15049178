package taxation

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Assignment links a product to a tax profile
type Assignment struct {
	ID           uuid.UUID
	ProductID    uuid.UUID
	TaxProfileID uuid.UUID
	IsPrimary    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProductTaxProfiles is the set of assignments of one product. At most one
// of them is primary.
type ProductTaxProfiles struct {
	ProductID   uuid.UUID
	Assignments []Assignment
}

// Changes lists the rows an operation touched, for the repository to persist
type Changes struct {
	Added   *Assignment
	Updated []Assignment
	Removed *Assignment
}

// NewProductTaxProfiles wraps the loaded assignments of productID
func NewProductTaxProfiles(productID uuid.UUID, assignments []Assignment) *ProductTaxProfiles {
	return &ProductTaxProfiles{ProductID: productID, Assignments: assignments}
}

// Find returns the assignment of taxProfileID, or nil
func (p *ProductTaxProfiles) Find(taxProfileID uuid.UUID) *Assignment {
	for i := range p.Assignments {
		if p.Assignments[i].TaxProfileID == taxProfileID {
			return &p.Assignments[i]
		}
	}
	return nil
}

// Primary returns the primary assignment, or nil
func (p *ProductTaxProfiles) Primary() *Assignment {
	for i := range p.Assignments {
		if p.Assignments[i].IsPrimary {
			return &p.Assignments[i]
		}
	}
	return nil
}

// Assign adds taxProfileID. A primary assignment demotes the current primary.
func (p *ProductTaxProfiles) Assign(taxProfileID uuid.UUID, primary bool, now time.Time) (Changes, error) {
	if p.Find(taxProfileID) != nil {
		return Changes{}, shared.ErrAlreadyAssigned.WithMessage("tax profile %s is already assigned to product %s", taxProfileID, p.ProductID)
	}
	var changes Changes
	if primary {
		changes.Updated = p.demote(now)
	}
	a := Assignment{
		ID:           uuid.New(),
		ProductID:    p.ProductID,
		TaxProfileID: taxProfileID,
		IsPrimary:    primary,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	p.Assignments = append(p.Assignments, a)
	changes.Added = &a
	return changes, nil
}

// SetPrimary makes taxProfileID the primary and demotes the previous one
func (p *ProductTaxProfiles) SetPrimary(taxProfileID uuid.UUID, now time.Time) (Changes, error) {
	target := p.Find(taxProfileID)
	if target == nil {
		return Changes{}, shared.ErrNotAssigned.WithMessage("tax profile %s is not assigned to product %s", taxProfileID, p.ProductID)
	}
	if target.IsPrimary {
		return Changes{}, nil
	}
	changes := Changes{Updated: p.demote(now)}
	target = p.Find(taxProfileID)
	target.IsPrimary = true
	target.UpdatedAt = now
	changes.Updated = append(changes.Updated, *target)
	return changes, nil
}

// Remove drops taxProfileID. The primary can only go when it is the sole assignment.
func (p *ProductTaxProfiles) Remove(taxProfileID uuid.UUID) (Changes, error) {
	for i := range p.Assignments {
		a := p.Assignments[i]
		if a.TaxProfileID != taxProfileID {
			continue
		}
		if a.IsPrimary && len(p.Assignments) > 1 {
			return Changes{}, shared.ErrCannotRemovePrimaryWithAlternatives.WithMessage(
				"tax profile %s is primary for product %s; designate another primary first", taxProfileID, p.ProductID)
		}
		p.Assignments = append(p.Assignments[:i], p.Assignments[i+1:]...)
		return Changes{Removed: &a}, nil
	}
	return Changes{}, shared.ErrNotAssigned.WithMessage("tax profile %s is not assigned to product %s", taxProfileID, p.ProductID)
}

func (p *ProductTaxProfiles) demote(now time.Time) []Assignment {
	var demoted []Assignment
	for i := range p.Assignments {
		if p.Assignments[i].IsPrimary {
			p.Assignments[i].IsPrimary = false
			p.Assignments[i].UpdatedAt = now
			demoted = append(demoted, p.Assignments[i])
		}
	}
	return demoted
}
