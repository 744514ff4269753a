package event

import (
	"time"

	"invoicing-backend/internal/model"

	"github.com/google/uuid"
)

// Event names, one per lifecycle transition.
const (
	InvoiceCreated   = "invoice.created"
	InvoiceFinalized = "invoice.finalized"
	InvoicePaid      = "invoice.paid"
)

// InvoiceEvent is the immutable snapshot handed to subscribers. It carries
// enough state for them to act without re-querying the invoice.
type InvoiceEvent struct {
	Name          string              `json:"name"`
	InvoiceID     uuid.UUID           `json:"invoice_id"`
	InvoiceNumber string              `json:"invoice_number"`
	ClientID      uuid.UUID           `json:"client_id"`
	TotalCents    int64               `json:"total_cents"`
	Currency      string              `json:"currency"`
	Status        model.InvoiceStatus `json:"status"`
	ActorID       *uuid.UUID          `json:"actor_id,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

// Snapshot builds an InvoiceEvent from the invoice's committed state.
func Snapshot(name string, inv *model.Invoice, actorID *uuid.UUID) InvoiceEvent {
	return InvoiceEvent{
		Name:          name,
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientID:      inv.ClientID,
		TotalCents:    inv.Total.Mul(centsPerUnit).IntPart(),
		Currency:      inv.Currency,
		Status:        inv.Status,
		ActorID:       actorID,
		OccurredAt:    time.Now().UTC(),
	}
}
