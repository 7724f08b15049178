package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same error code, so that a detailed
// error built with WithMessage still matches its sentinel via errors.Is.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// WithMessage returns a copy of the error with the same code and a formatted message
func (e *DomainError) WithMessage(format string, args ...any) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
)

// Warehouse registry errors
var (
	ErrDuplicateName               = NewDomainError("DUPLICATE_NAME", "A warehouse with this name already exists")
	ErrInactiveWarehouse           = NewDomainError("INACTIVE_WAREHOUSE", "Warehouse is not active")
	ErrCannotDeactivatePrimary     = NewDomainError("CANNOT_DEACTIVATE_PRIMARY", "The primary warehouse cannot be deactivated")
	ErrCannotDeleteWarehouse       = NewDomainError("CANNOT_DELETE_WAREHOUSE", "The primary warehouse cannot be deleted")
	ErrCannotUnsetPrimaryViaUpdate = NewDomainError("CANNOT_UNSET_PRIMARY_VIA_UPDATE", "Promote another warehouse to primary instead of unsetting it")
	ErrHasLinkedTransactions       = NewDomainError("HAS_LINKED_TRANSACTIONS", "Warehouse has stock transactions")
)

// Stock ledger errors
var (
	ErrInvalidQuantity        = NewDomainError("INVALID_QUANTITY", "Quantity must be greater than zero")
	ErrInvalidTransactionType = NewDomainError("INVALID_TRANSACTION_TYPE", "Unknown stock transaction type")
	ErrBackdatedTransaction   = NewDomainError("BACKDATED_TRANSACTION", "Transaction date precedes the latest ledger entry")
)

// Purchase order errors
var (
	ErrInvalidTransition = NewDomainError("INVALID_TRANSITION", "Status transition is not allowed")
	ErrIncompleteReceipt = NewDomainError("INCOMPLETE_RECEIPT", "All lines must be fully received before completion")
	ErrOverReceipt       = NewDomainError("OVER_RECEIPT", "Received quantity would exceed ordered quantity")
)

// Tax profile errors
var (
	ErrAlreadyAssigned                     = NewDomainError("ALREADY_ASSIGNED", "Tax profile is already assigned to this product")
	ErrNotAssigned                         = NewDomainError("NOT_ASSIGNED", "Tax profile is not assigned to this product")
	ErrCannotRemovePrimaryWithAlternatives = NewDomainError("CANNOT_REMOVE_PRIMARY_WITH_ALTERNATIVES", "Designate another primary tax profile before removing this one")
)

// IsRetryable reports whether err signals lost serialization rather than a
// domain rule violation. Callers may retry the whole operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

// IsDomainError reports whether err (or anything it wraps) is a DomainError
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}
