package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"invoicing-backend/internal/event"
	"invoicing-backend/internal/model"
)

type invoiceFixture struct {
	store      *memStore
	invoices   *fakeInvoiceRepo
	clients    *fakeClientRepo
	products   *fakeProductRepo
	dispatcher *recordingDispatcher
	service    InvoiceService
	client     *model.Client
	product    *model.Product
}

func newInvoiceFixture(t *testing.T) *invoiceFixture {
	t.Helper()

	client := &model.Client{
		ID:    uuid.New(),
		Name:  "Acme GmbH",
		Email: "billing@acme.example",
	}
	product := &model.Product{
		ID:        uuid.New(),
		SKU:       "CONSULT-DAY",
		Name:      "Consulting day",
		UnitPrice: decimal.RequireFromString("800.00"),
		TaxRate:   decimal.RequireFromString("19"),
	}

	store := &memStore{}
	invoices := newFakeInvoiceRepo(store)
	clients := newFakeClientRepo(client)
	products := newFakeProductRepo(product)
	dispatcher := &recordingDispatcher{}

	numbers := NewNumberGenerator(invoices, "FAC")
	numbers.now = fixedYear(2026)

	svc := NewInvoiceService(invoices, clients, products, &fakeTxManager{store: store}, numbers, dispatcher, "EUR")
	svc.(*invoiceService).now = fixedYear(2026)

	return &invoiceFixture{
		store:      store,
		invoices:   invoices,
		clients:    clients,
		products:   products,
		dispatcher: dispatcher,
		service:    svc,
		client:     client,
		product:    product,
	}
}

func (f *invoiceFixture) createDraft(t *testing.T, items ...InvoiceItemPayload) InvoiceResponse {
	t.Helper()
	resp, err := f.service.CreateInvoice(context.Background(), CreateInvoiceRequest{
		ClientID: f.client.ID.String(),
		Items:    items,
	}, nil)
	require.NoError(t, err)
	return resp
}

func TestCreateInvoiceDraft(t *testing.T) {
	f := newInvoiceFixture(t)

	resp := f.createDraft(t, InvoiceItemPayload{
		Description: "Design work",
		Quantity:    "2",
		UnitPrice:   "100.00",
		TaxRate:     "20",
	})

	assert.Equal(t, "FAC-2026-0001", resp.InvoiceNumber)
	assert.Equal(t, string(model.StatusDraft), resp.Status)
	assert.Equal(t, "200.00", resp.Subtotal)
	assert.Equal(t, "40.00", resp.TaxTotal)
	assert.Equal(t, "240.00", resp.Total)
	assert.Nil(t, resp.IssuedAt)

	assert.Equal(t, []string{event.InvoiceCreated}, f.dispatcher.names())
}

func TestCreateInvoiceCompleteFinalizesInOneCall(t *testing.T) {
	f := newInvoiceFixture(t)

	resp, err := f.service.CreateInvoice(context.Background(), CreateInvoiceRequest{
		ClientID: f.client.ID.String(),
		Finalize: true,
		Items: []InvoiceItemPayload{
			{Description: "Design work", Quantity: "2", UnitPrice: "100.00", TaxRate: "20"},
			{Description: "Hosting", Quantity: "1", UnitPrice: "45.00", TaxRate: "10"},
		},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, string(model.StatusSent), resp.Status)
	assert.Equal(t, "245.00", resp.Subtotal)
	assert.Equal(t, "44.50", resp.TaxTotal)
	assert.Equal(t, "289.50", resp.Total)
	require.NotNil(t, resp.IssuedAt)
	require.Len(t, resp.Items, 2)

	require.Equal(t, []string{event.InvoiceCreated, event.InvoiceFinalized}, f.dispatcher.names())
	created := f.dispatcher.events[0]
	assert.Equal(t, int64(28950), created.TotalCents)
	assert.Equal(t, "FAC-2026-0001", created.InvoiceNumber)
	finalized := f.dispatcher.events[1]
	assert.Equal(t, model.StatusSent, finalized.Status)
}

func TestCreateInvoiceUnknownClient(t *testing.T) {
	f := newInvoiceFixture(t)

	_, err := f.service.CreateInvoice(context.Background(), CreateInvoiceRequest{
		ClientID: uuid.NewString(),
	}, nil)
	assert.Error(t, err)
	assert.Empty(t, f.dispatcher.events)
}

func TestCreateInvoiceUsesProductDefaults(t *testing.T) {
	f := newInvoiceFixture(t)

	resp := f.createDraft(t, InvoiceItemPayload{
		ProductID: f.product.ID.String(),
		Quantity:  "2",
	})

	require.Len(t, resp.Items, 1)
	item := resp.Items[0]
	assert.Equal(t, "Consulting day", item.Description)
	assert.Equal(t, "800.00", item.UnitPrice)
	assert.Equal(t, "19.00", item.TaxRate)
	assert.Equal(t, "1904.00", item.LineTotal) // 1600 + 19%
}

func TestCreateInvoiceRollsBackOnBadItem(t *testing.T) {
	f := newInvoiceFixture(t)

	_, err := f.service.CreateInvoice(context.Background(), CreateInvoiceRequest{
		ClientID: f.client.ID.String(),
		Items: []InvoiceItemPayload{
			{Description: "Ok", Quantity: "1", UnitPrice: "10.00"},
			{Description: "Bad", Quantity: "1", UnitPrice: "10.00", DiscountAmount: "25.00"},
		},
	}, nil)
	assert.ErrorIs(t, err, ErrDiscountTooLarge)

	_, total, listErr := f.service.ListInvoices(context.Background(), InvoiceFilter{})
	require.NoError(t, listErr)
	assert.Zero(t, total)
	assert.Empty(t, f.dispatcher.events)
}

func TestCreateInvoiceRetriesOnDuplicateNumber(t *testing.T) {
	f := newInvoiceFixture(t)
	f.invoices.failDuplicates = 1

	resp := f.createDraft(t, InvoiceItemPayload{
		Description: "Design work", Quantity: "1", UnitPrice: "10.00",
	})

	assert.Equal(t, string(model.StatusDraft), resp.Status)
	assert.Equal(t, []string{event.InvoiceCreated}, f.dispatcher.names())
}

func TestCreateInvoiceGivesUpAfterRepeatedDuplicates(t *testing.T) {
	f := newInvoiceFixture(t)
	f.invoices.failDuplicates = maxNumberAttempts

	_, err := f.service.CreateInvoice(context.Background(), CreateInvoiceRequest{
		ClientID: f.client.ID.String(),
	}, nil)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.Empty(t, f.dispatcher.events)
}

func TestAddItemRecomputesTotals(t *testing.T) {
	f := newInvoiceFixture(t)

	draft := f.createDraft(t, InvoiceItemPayload{
		Description: "Design work", Quantity: "2", UnitPrice: "100.00", TaxRate: "20",
	})

	resp, err := f.service.AddItem(context.Background(), draft.ID, InvoiceItemPayload{
		Description: "Hosting", Quantity: "1", UnitPrice: "45.00", TaxRate: "10",
	})
	require.NoError(t, err)

	assert.Equal(t, "245.00", resp.Subtotal)
	assert.Equal(t, "44.50", resp.TaxTotal)
	assert.Equal(t, "289.50", resp.Total)
	require.Len(t, resp.Items, 2)
}

func TestAddItemRejectedOutsideDraft(t *testing.T) {
	f := newInvoiceFixture(t)

	draft := f.createDraft(t, InvoiceItemPayload{
		Description: "Design work", Quantity: "1", UnitPrice: "10.00",
	})
	_, err := f.service.Finalize(context.Background(), draft.ID, nil)
	require.NoError(t, err)

	_, err = f.service.AddItem(context.Background(), draft.ID, InvoiceItemPayload{
		Description: "Late addition", Quantity: "1", UnitPrice: "5.00",
	})
	assert.ErrorIs(t, err, ErrInvoiceLocked)
}

func TestFinalizeEmptyInvoice(t *testing.T) {
	f := newInvoiceFixture(t)

	draft := f.createDraft(t)

	_, err := f.service.Finalize(context.Background(), draft.ID, nil)
	assert.ErrorIs(t, err, ErrEmptyInvoice)

	current, getErr := f.service.GetInvoice(context.Background(), draft.ID)
	require.NoError(t, getErr)
	assert.Equal(t, string(model.StatusDraft), current.Status)
}

func TestFinalizeSetsIssuedAtAndEmitsEvent(t *testing.T) {
	f := newInvoiceFixture(t)

	draft := f.createDraft(t, InvoiceItemPayload{
		Description: "Design work", Quantity: "1", UnitPrice: "100.00",
	})

	resp, err := f.service.Finalize(context.Background(), draft.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, string(model.StatusSent), resp.Status)
	require.NotNil(t, resp.IssuedAt)
	assert.Equal(t, []string{event.InvoiceCreated, event.InvoiceFinalized}, f.dispatcher.names())
}

func TestFinalizeTwiceRejected(t *testing.T) {
	f := newInvoiceFixture(t)

	draft := f.createDraft(t, InvoiceItemPayload{
		Description: "Design work", Quantity: "1", UnitPrice: "100.00",
	})
	_, err := f.service.Finalize(context.Background(), draft.ID, nil)
	require.NoError(t, err)

	_, err = f.service.Finalize(context.Background(), draft.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMarkAsPaidTransitions(t *testing.T) {
	f := newInvoiceFixture(t)

	draft := f.createDraft(t, InvoiceItemPayload{
		Description: "Design work", Quantity: "1", UnitPrice: "100.00",
	})

	// Draft invoices cannot be paid.
	_, err := f.service.MarkAsPaid(context.Background(), draft.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.service.Finalize(context.Background(), draft.ID, nil)
	require.NoError(t, err)

	actor := uuid.New()
	resp, err := f.service.MarkAsPaid(context.Background(), draft.ID, &actor)
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusPaid), resp.Status)

	names := f.dispatcher.names()
	require.Equal(t, []string{event.InvoiceCreated, event.InvoiceFinalized, event.InvoicePaid}, names)
	paid := f.dispatcher.events[2]
	require.NotNil(t, paid.ActorID)
	assert.Equal(t, actor, *paid.ActorID)

	// Paying twice is rejected.
	_, err = f.service.MarkAsPaid(context.Background(), draft.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMarkAsPaidFromOverdue(t *testing.T) {
	f := newInvoiceFixture(t)

	due := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	resp, err := f.service.CreateInvoice(context.Background(), CreateInvoiceRequest{
		ClientID: f.client.ID.String(),
		DueAt:    due.Format(time.RFC3339),
		Finalize: true,
		Items: []InvoiceItemPayload{
			{Description: "Design work", Quantity: "1", UnitPrice: "100.00"},
		},
	}, nil)
	require.NoError(t, err)

	updated, err := f.invoices.MarkOverdue(context.Background(), due.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	paidResp, err := f.service.MarkAsPaid(context.Background(), resp.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusPaid), paidResp.Status)
}

func TestCancelInvoice(t *testing.T) {
	f := newInvoiceFixture(t)

	draft := f.createDraft(t, InvoiceItemPayload{
		Description: "Design work", Quantity: "1", UnitPrice: "100.00",
	})

	resp, err := f.service.Cancel(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusCancelled), resp.Status)

	// Terminal states cannot be cancelled again.
	_, err = f.service.Cancel(context.Background(), draft.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRecalculateTotalsIsIdempotent(t *testing.T) {
	f := newInvoiceFixture(t)

	draft := f.createDraft(t, InvoiceItemPayload{
		Description: "Design work", Quantity: "5", UnitPrice: "200.00", TaxRate: "21", DiscountAmount: "50.00",
	})

	first, err := f.service.RecalculateTotals(context.Background(), draft.ID)
	require.NoError(t, err)
	second, err := f.service.RecalculateTotals(context.Background(), draft.ID)
	require.NoError(t, err)

	assert.Equal(t, "950.00", first.Subtotal)
	assert.Equal(t, "199.50", first.TaxTotal)
	assert.Equal(t, "50.00", first.DiscountTotal)
	assert.Equal(t, "1149.50", first.Total)
	assert.Equal(t, first.Subtotal, second.Subtotal)
	assert.Equal(t, first.Total, second.Total)
}

func TestDeleteInvoiceKeepsNumberReserved(t *testing.T) {
	f := newInvoiceFixture(t)

	first := f.createDraft(t, InvoiceItemPayload{
		Description: "Design work", Quantity: "1", UnitPrice: "10.00",
	})
	require.NoError(t, f.service.DeleteInvoice(context.Background(), first.ID))

	_, err := f.service.GetInvoice(context.Background(), first.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	second := f.createDraft(t, InvoiceItemPayload{
		Description: "Design work", Quantity: "1", UnitPrice: "10.00",
	})
	assert.Equal(t, "FAC-2026-0002", second.InvoiceNumber)
}

func TestListInvoicesFilters(t *testing.T) {
	f := newInvoiceFixture(t)

	draft := f.createDraft(t, InvoiceItemPayload{
		Description: "Design work", Quantity: "1", UnitPrice: "10.00",
	})
	_, err := f.service.Finalize(context.Background(), draft.ID, nil)
	require.NoError(t, err)
	f.createDraft(t, InvoiceItemPayload{
		Description: "Hosting", Quantity: "1", UnitPrice: "5.00",
	})

	sent, total, err := f.service.ListInvoices(context.Background(), InvoiceFilter{Status: string(model.StatusSent)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, sent, 1)
	assert.Equal(t, draft.ID, sent[0].ID)

	all, total, err := f.service.ListInvoices(context.Background(), InvoiceFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)
}
