package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInvoiceStatusPredicates(t *testing.T) {
	tests := []struct {
		status       InvoiceStatus
		valid        bool
		editable     bool
		finalizable  bool
		payable      bool
		cancellable  bool
		terminal     bool
	}{
		{StatusDraft, true, true, true, false, true, false},
		{StatusSent, true, false, false, true, true, false},
		{StatusPaid, true, false, false, false, false, true},
		{StatusOverdue, true, false, false, true, true, false},
		{StatusCancelled, true, false, false, false, false, true},
		{InvoiceStatus("shipped"), false, false, false, false, false, false},
		{InvoiceStatus(""), false, false, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.Valid())
			assert.Equal(t, tt.editable, tt.status.CanBeEdited())
			assert.Equal(t, tt.finalizable, tt.status.CanBeFinalized())
			assert.Equal(t, tt.payable, tt.status.CanBePaid())
			assert.Equal(t, tt.cancellable, tt.status.CanBeCancelled())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestInvoiceIsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -1)
	future := now.AddDate(0, 0, 14)

	tests := []struct {
		name    string
		status  InvoiceStatus
		dueAt   *time.Time
		overdue bool
	}{
		{"sent past due", StatusSent, &past, true},
		{"sent not yet due", StatusSent, &future, false},
		{"sent without due date", StatusSent, nil, false},
		{"draft past due", StatusDraft, &past, false},
		{"paid past due", StatusPaid, &past, false},
		{"cancelled past due", StatusCancelled, &past, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := Invoice{Status: tt.status, DueAt: tt.dueAt}
			assert.Equal(t, tt.overdue, inv.IsOverdue(now))
		})
	}
}
