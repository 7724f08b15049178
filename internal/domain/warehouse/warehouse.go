package warehouse

import (
	"strings"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"golang.org/x/text/cases"
)

const maxNameLength = 100

// Warehouse is a stock location. At most one warehouse is primary, and the
// primary warehouse is always active.
type Warehouse struct {
	shared.BaseAggregateRoot
	Name            string
	ShippingAddress string
	IsActive        bool
	IsPrimary       bool
}

// NewWarehouse creates a warehouse. A primary warehouse is always created active.
func NewWarehouse(name, address string, active, primary bool, now time.Time) (*Warehouse, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if primary {
		active = true
	}
	return &Warehouse{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		Name:              name,
		ShippingAddress:   strings.TrimSpace(address),
		IsActive:          active,
		IsPrimary:         primary,
	}, nil
}

// NameKey returns the case-folded form used for uniqueness checks
func (w *Warehouse) NameKey() string {
	return NameKey(w.Name)
}

// NameKey folds a warehouse name so that "Main", "MAIN" and "main " collide
func NameKey(name string) string {
	// A Caser keeps state between calls, so each call gets its own.
	return cases.Fold().String(strings.TrimSpace(name))
}

// Rename changes the display name
func (w *Warehouse) Rename(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}
	w.Name = name
	w.Touch(now)
	return nil
}

// SetShippingAddress replaces the shipping address
func (w *Warehouse) SetShippingAddress(address string, now time.Time) {
	w.ShippingAddress = strings.TrimSpace(address)
	w.Touch(now)
}

// Activate marks the warehouse as active
func (w *Warehouse) Activate(now time.Time) {
	if w.IsActive {
		return
	}
	w.IsActive = true
	w.Touch(now)
}

// Deactivate marks the warehouse as inactive
func (w *Warehouse) Deactivate(now time.Time) error {
	if w.IsPrimary {
		return shared.ErrCannotDeactivatePrimary.WithMessage("warehouse %q is the primary warehouse and cannot be deactivated", w.Name)
	}
	if !w.IsActive {
		return nil
	}
	w.IsActive = false
	w.Touch(now)
	return nil
}

// MarkPrimary designates this warehouse as primary. The caller is
// responsible for demoting the previous primary in the same unit of work.
func (w *Warehouse) MarkPrimary(now time.Time) error {
	if !w.IsActive {
		return shared.ErrInactiveWarehouse.WithMessage("warehouse %q is inactive and cannot become primary", w.Name)
	}
	if w.IsPrimary {
		return nil
	}
	w.IsPrimary = true
	w.Touch(now)
	return nil
}

// Demote clears the primary flag. Only the registry calls this, while
// promoting another warehouse.
func (w *Warehouse) Demote(now time.Time) {
	if !w.IsPrimary {
		return
	}
	w.IsPrimary = false
	w.Touch(now)
}

// CanDelete reports whether the warehouse may be physically removed given
// whether it has ledger entries
func (w *Warehouse) CanDelete(hasTransactions bool) bool {
	return !w.IsPrimary && !hasTransactions
}

func validateName(name string) error {
	if name == "" {
		return shared.ErrInvalidInput.WithMessage("warehouse name cannot be empty")
	}
	if len([]rune(name)) > maxNameLength {
		return shared.ErrInvalidInput.WithMessage("warehouse name cannot exceed %d characters", maxNameLength)
	}
	return nil
}

// DeleteOutcome tells the caller what Delete actually did
type DeleteOutcome string

const (
	OutcomeDeleted                     DeleteOutcome = "deleted"
	OutcomeDeactivatedInsteadOfDeleted DeleteOutcome = "deactivated_instead_of_deleted"
)
