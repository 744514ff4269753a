package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invoicing-backend/internal/event"
	"invoicing-backend/internal/model"
	"invoicing-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentResponse struct {
	ID        string  `json:"id"`
	InvoiceID string  `json:"invoice_id"`
	Amount    string  `json:"amount"`
	Currency  string  `json:"currency"`
	Status    string  `json:"status"`
	Method    string  `json:"method"`
	Reference string  `json:"reference"`
	PaidAt    *string `json:"paid_at"`
	CreatedAt string  `json:"created_at"`
}

// PaymentService keeps the payment ledger in sync with the invoice
// lifecycle: a pending payment is opened when an invoice is created and
// completed when the invoice is marked paid. It subscribes to the event
// dispatcher and never touches the invoice transaction itself.
type PaymentService struct {
	payments repository.PaymentRepository
}

func NewPaymentService(payments repository.PaymentRepository) *PaymentService {
	return &PaymentService{payments: payments}
}

func (s *PaymentService) Name() string { return "payments" }

func (s *PaymentService) Handle(ctx context.Context, evt event.InvoiceEvent) error {
	switch evt.Name {
	case event.InvoiceCreated:
		return s.openPending(ctx, evt)
	case event.InvoicePaid:
		return s.complete(ctx, evt)
	}
	return nil
}

func (s *PaymentService) openPending(ctx context.Context, evt event.InvoiceEvent) error {
	payment := &model.Payment{
		InvoiceID: evt.InvoiceID,
		Amount:    decimal.New(evt.TotalCents, -2),
		Currency:  evt.Currency,
		Status:    model.PaymentPending,
		Reference: evt.InvoiceNumber,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return fmt.Errorf("failed to open pending payment for %s: %w", evt.InvoiceNumber, err)
	}
	return nil
}

func (s *PaymentService) complete(ctx context.Context, evt event.InvoiceEvent) error {
	payment, err := s.payments.FindPendingByInvoice(ctx, evt.InvoiceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Invoice predates the payment subscriber; open a completed record
		// so the ledger still reflects the settlement.
		payment = &model.Payment{
			InvoiceID: evt.InvoiceID,
			Currency:  evt.Currency,
			Reference: evt.InvoiceNumber,
		}
		err = nil
	} else if err != nil {
		return fmt.Errorf("failed to look up pending payment for %s: %w", evt.InvoiceNumber, err)
	}

	paidAt := evt.OccurredAt
	payment.Amount = decimal.New(evt.TotalCents, -2)
	payment.Status = model.PaymentCompleted
	payment.PaidAt = &paidAt

	if payment.ID == uuid.Nil {
		err = s.payments.Create(ctx, payment)
	} else {
		err = s.payments.Update(ctx, payment)
	}
	if err != nil {
		return fmt.Errorf("failed to complete payment for %s: %w", evt.InvoiceNumber, err)
	}
	return nil
}

// ListByInvoice returns the payment records attached to an invoice.
func (s *PaymentService) ListByInvoice(ctx context.Context, invoiceID string) ([]PaymentResponse, error) {
	id, err := uuid.Parse(invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice id: %w", err)
	}

	payments, err := s.payments.ListByInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	result := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		resp := PaymentResponse{
			ID:        p.ID.String(),
			InvoiceID: p.InvoiceID.String(),
			Amount:    p.Amount.StringFixed(2),
			Currency:  p.Currency,
			Status:    p.Status,
			Method:    p.Method,
			Reference: p.Reference,
			CreatedAt: p.CreatedAt.Format(time.RFC3339),
		}
		if p.PaidAt != nil {
			v := p.PaidAt.Format(time.RFC3339)
			resp.PaidAt = &v
		}
		result = append(result, resp)
	}
	return result, nil
}
