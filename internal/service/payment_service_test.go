package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"invoicing-backend/internal/event"
	"invoicing-backend/internal/model"
)

type fakePaymentRepo struct {
	payments []model.Payment
}

func (r *fakePaymentRepo) Create(_ context.Context, payment *model.Payment) error {
	payment.ID = uuid.New()
	payment.CreatedAt = time.Now()
	r.payments = append(r.payments, *payment)
	return nil
}

func (r *fakePaymentRepo) Update(_ context.Context, payment *model.Payment) error {
	for i := range r.payments {
		if r.payments[i].ID == payment.ID {
			r.payments[i] = *payment
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakePaymentRepo) FindPendingByInvoice(_ context.Context, invoiceID uuid.UUID) (*model.Payment, error) {
	for i := range r.payments {
		if r.payments[i].InvoiceID == invoiceID && r.payments[i].Status == model.PaymentPending {
			p := r.payments[i]
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePaymentRepo) ListByInvoice(_ context.Context, invoiceID uuid.UUID) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range r.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func paymentEvent(name string, invoiceID uuid.UUID, totalCents int64) event.InvoiceEvent {
	return event.InvoiceEvent{
		Name:          name,
		InvoiceID:     invoiceID,
		InvoiceNumber: "FAC-2026-0001",
		TotalCents:    totalCents,
		Currency:      "EUR",
		OccurredAt:    time.Now().UTC(),
	}
}

func TestPaymentOpenedOnInvoiceCreated(t *testing.T) {
	repo := &fakePaymentRepo{}
	svc := NewPaymentService(repo)
	invoiceID := uuid.New()

	err := svc.Handle(context.Background(), paymentEvent(event.InvoiceCreated, invoiceID, 28950))
	require.NoError(t, err)

	require.Len(t, repo.payments, 1)
	p := repo.payments[0]
	assert.Equal(t, model.PaymentPending, p.Status)
	assert.Equal(t, "289.50", p.Amount.StringFixed(2))
	assert.Equal(t, "FAC-2026-0001", p.Reference)
	assert.Nil(t, p.PaidAt)
}

func TestPaymentCompletedOnInvoicePaid(t *testing.T) {
	repo := &fakePaymentRepo{}
	svc := NewPaymentService(repo)
	invoiceID := uuid.New()

	require.NoError(t, svc.Handle(context.Background(), paymentEvent(event.InvoiceCreated, invoiceID, 28950)))
	require.NoError(t, svc.Handle(context.Background(), paymentEvent(event.InvoicePaid, invoiceID, 28950)))

	require.Len(t, repo.payments, 1, "the pending payment is completed, not duplicated")
	p := repo.payments[0]
	assert.Equal(t, model.PaymentCompleted, p.Status)
	require.NotNil(t, p.PaidAt)
}

func TestPaymentCreatedWhenNoPendingExists(t *testing.T) {
	repo := &fakePaymentRepo{}
	svc := NewPaymentService(repo)
	invoiceID := uuid.New()

	err := svc.Handle(context.Background(), paymentEvent(event.InvoicePaid, invoiceID, 10000))
	require.NoError(t, err)

	require.Len(t, repo.payments, 1)
	p := repo.payments[0]
	assert.Equal(t, model.PaymentCompleted, p.Status)
	assert.Equal(t, "100.00", p.Amount.StringFixed(2))
}

func TestPaymentIgnoresFinalizedEvent(t *testing.T) {
	repo := &fakePaymentRepo{}
	svc := NewPaymentService(repo)

	err := svc.Handle(context.Background(), paymentEvent(event.InvoiceFinalized, uuid.New(), 10000))
	require.NoError(t, err)
	assert.Empty(t, repo.payments)
}

func TestListPaymentsByInvoice(t *testing.T) {
	repo := &fakePaymentRepo{}
	svc := NewPaymentService(repo)
	invoiceID := uuid.New()

	require.NoError(t, svc.Handle(context.Background(), paymentEvent(event.InvoiceCreated, invoiceID, 28950)))

	payments, err := svc.ListByInvoice(context.Background(), invoiceID.String())
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "289.50", payments[0].Amount)
	assert.Equal(t, "pending", payments[0].Status)

	_, err = svc.ListByInvoice(context.Background(), "not-a-uuid")
	assert.Error(t, err)
}
