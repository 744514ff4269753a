package service

import "errors"

// Domain-rule violations raised by the invoice lifecycle. Handlers map them
// to 4xx responses; anything reaching the caller has already rolled back
// the enclosing transaction.
var (
	ErrInvalidTransition = errors.New("invoice: status does not allow this transition")
	ErrEmptyInvoice      = errors.New("invoice: cannot finalize an invoice without items")
	ErrInvoiceLocked     = errors.New("invoice: items can only be added to draft invoices")
	ErrDiscountTooLarge  = errors.New("invoice item: discount exceeds the line subtotal")
	ErrInvalidQuantity   = errors.New("invoice item: quantity must be at least 0.01")
	ErrInvalidUnitPrice  = errors.New("invoice item: unit price cannot be negative")
	ErrInvalidTaxRate    = errors.New("invoice item: tax rate must be between 0 and 100")
)
