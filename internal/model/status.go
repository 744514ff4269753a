package model

// InvoiceStatus is the closed set of invoice lifecycle states.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "draft"
	StatusSent      InvoiceStatus = "sent"
	StatusPaid      InvoiceStatus = "paid"
	StatusOverdue   InvoiceStatus = "overdue"
	StatusCancelled InvoiceStatus = "cancelled"
)

// Valid reports whether s is one of the known states.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// CanBeEdited reports whether items may still be added or replaced.
func (s InvoiceStatus) CanBeEdited() bool { return s == StatusDraft }

// CanBeFinalized reports whether the draft->sent transition is allowed.
func (s InvoiceStatus) CanBeFinalized() bool { return s == StatusDraft }

// CanBePaid reports whether the transition to paid is allowed.
func (s InvoiceStatus) CanBePaid() bool { return s == StatusSent || s == StatusOverdue }

// CanBeCancelled reports whether the invoice may still be cancelled.
func (s InvoiceStatus) CanBeCancelled() bool {
	return s == StatusDraft || s == StatusSent || s == StatusOverdue
}

// IsTerminal reports whether no further transitions are possible.
func (s InvoiceStatus) IsTerminal() bool { return s == StatusPaid || s == StatusCancelled }
