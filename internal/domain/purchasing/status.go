package purchasing

import (
	"strings"

	"github.com/erp/stockledger/internal/domain/shared"
)

// Status is the workflow state of a purchase order
type Status string

const (
	StatusDraft             Status = "DRAFT"
	StatusPendingApproval   Status = "PENDING_APPROVAL"
	StatusApproved          Status = "APPROVED"
	StatusOrdered           Status = "ORDERED"
	StatusPartiallyReceived Status = "PARTIALLY_RECEIVED"
	StatusCompleted         Status = "COMPLETED"
	StatusCancelled         Status = "CANCELLED"
)

// allowedTransitions is the single source of truth for the workflow graph
var allowedTransitions = map[Status][]Status{
	StatusDraft:             {StatusPendingApproval, StatusCancelled},
	StatusPendingApproval:   {StatusApproved, StatusCancelled},
	StatusApproved:          {StatusOrdered, StatusCancelled},
	StatusOrdered:           {StatusPartiallyReceived, StatusCancelled},
	StatusPartiallyReceived: {StatusCompleted, StatusCancelled},
	StatusCompleted:         nil,
	StatusCancelled:         nil,
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the status is known
func (s Status) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransitionTo checks the workflow graph
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range allowedTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// NextStatuses lists the states reachable from s
func (s Status) NextStatuses() []Status {
	next := make([]Status, len(allowedTransitions[s]))
	copy(next, allowedTransitions[s])
	return next
}

// IsTerminal is true for Completed and Cancelled
func (s Status) IsTerminal() bool {
	return s.IsValid() && len(allowedTransitions[s]) == 0
}

// AllowsLineEdits is true while the order is still being drafted or approved
func (s Status) AllowsLineEdits() bool {
	return s == StatusDraft || s == StatusPendingApproval
}

// AllowsReceipt is true once the order has been placed with the supplier
func (s Status) AllowsReceipt() bool {
	return s == StatusOrdered || s == StatusPartiallyReceived
}

// ParseStatus accepts the canonical names case-insensitively
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", shared.ErrInvalidInput.WithMessage("unknown purchase order status %q", s)
	}
	return st, nil
}
