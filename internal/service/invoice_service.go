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

// maxNumberAttempts bounds the duplicate-key retry loop around invoice
// number generation (see NumberGenerator).
const maxNumberAttempts = 3

// --- DTOs ---

type InvoiceItemPayload struct {
	ProductID      string `json:"product_id"`
	Description    string `json:"description"`
	Quantity       string `json:"quantity" binding:"required"`
	UnitPrice      string `json:"unit_price"`
	TaxRate        string `json:"tax_rate"`
	DiscountAmount string `json:"discount_amount"`
}

type CreateInvoiceRequest struct {
	ClientID string               `json:"client_id" binding:"required,uuid"`
	IssuedAt string               `json:"issued_at"` // RFC3339, optional
	DueAt    string               `json:"due_at"`    // RFC3339, optional
	Notes    string               `json:"notes"`
	Terms    string               `json:"terms"`
	Finalize bool                 `json:"finalize"`
	Items    []InvoiceItemPayload `json:"items"`
}

type InvoiceFilter struct {
	Status        string
	ClientID      string
	InvoiceNumber string
	Page          int
	Limit         int
}

type InvoiceItemResponse struct {
	ID             string  `json:"id"`
	ProductID      *string `json:"product_id"`
	Description    string  `json:"description"`
	Quantity       string  `json:"quantity"`
	UnitPrice      string  `json:"unit_price"`
	TaxRate        string  `json:"tax_rate"`
	DiscountAmount string  `json:"discount_amount"`
	LineTotal      string  `json:"line_total"`
}

type InvoiceResponse struct {
	ID            string                `json:"id"`
	InvoiceNumber string                `json:"invoice_number"`
	ClientID      string                `json:"client_id"`
	ClientName    string                `json:"client_name,omitempty"`
	Status        string                `json:"status"`
	IsOverdue     bool                  `json:"is_overdue"`
	IssuedAt      *string               `json:"issued_at"`
	DueAt         *string               `json:"due_at"`
	Currency      string                `json:"currency"`
	Subtotal      string                `json:"subtotal"`
	TaxTotal      string                `json:"tax_total"`
	DiscountTotal string                `json:"discount_total"`
	Total         string                `json:"total"`
	Notes         string                `json:"notes"`
	Terms         string                `json:"terms"`
	Items         []InvoiceItemResponse `json:"items,omitempty"`
	CreatedAt     string                `json:"created_at"`
}

// --- Interfaces ---

// EventDispatcher is the orchestrator's view of the event bus. Dispatch is
// only called after the surrounding transaction has committed.
type EventDispatcher interface {
	Dispatch(ctx context.Context, evt event.InvoiceEvent)
}

// InvoiceService sequences the invoice lifecycle: creation, item additions,
// totals recomputation and the draft->sent->paid transitions. Every
// operation runs inside a single transaction; lifecycle events are buffered
// during the transaction and dispatched exactly once after commit.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest, actorID *uuid.UUID) (InvoiceResponse, error)
	AddItem(ctx context.Context, id string, item InvoiceItemPayload) (InvoiceResponse, error)
	RecalculateTotals(ctx context.Context, id string) (InvoiceResponse, error)
	Finalize(ctx context.Context, id string, actorID *uuid.UUID) (InvoiceResponse, error)
	MarkAsPaid(ctx context.Context, id string, actorID *uuid.UUID) (InvoiceResponse, error)
	Cancel(ctx context.Context, id string) (InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error)
	DeleteInvoice(ctx context.Context, id string) error
}

type invoiceService struct {
	invoices   repository.InvoiceRepository
	clients    repository.ClientRepository
	products   repository.ProductRepository
	txManager  repository.TransactionManager
	numbers    *NumberGenerator
	dispatcher EventDispatcher
	currency   string
	now        func() time.Time
}

func NewInvoiceService(
	invoices repository.InvoiceRepository,
	clients repository.ClientRepository,
	products repository.ProductRepository,
	txManager repository.TransactionManager,
	numbers *NumberGenerator,
	dispatcher EventDispatcher,
	currency string,
) InvoiceService {
	if currency == "" {
		currency = "EUR"
	}
	return &invoiceService{
		invoices:   invoices,
		clients:    clients,
		products:   products,
		txManager:  txManager,
		numbers:    numbers,
		dispatcher: dispatcher,
		currency:   currency,
		now:        time.Now,
	}
}

// --- Lifecycle operations ---

// CreateInvoice creates a draft invoice, adds the requested items,
// recomputes totals and, when asked, finalizes — all in one transaction.
// Nothing is left half-populated on failure. A duplicate invoice number
// (lost race against a concurrent creation) retries the whole transaction
// with a freshly generated number.
func (s *invoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest, actorID *uuid.UUID) (InvoiceResponse, error) {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid client_id: %w", err)
	}
	if _, err := s.clients.FindByID(ctx, clientID); err != nil {
		return InvoiceResponse{}, fmt.Errorf("client not found: %w", err)
	}

	issuedAt, err := parseOptionalTime(req.IssuedAt)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid issued_at: %w", err)
	}
	dueAt, err := parseOptionalTime(req.DueAt)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid due_at: %w", err)
	}

	var invoice *model.Invoice
	var events []event.InvoiceEvent

	for attempt := 1; ; attempt++ {
		invoice, events, err = s.createOnce(ctx, req, clientID, issuedAt, dueAt, actorID)
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt >= maxNumberAttempts {
			return InvoiceResponse{}, err
		}
	}

	for _, evt := range events {
		s.dispatcher.Dispatch(ctx, evt)
	}

	return s.GetInvoice(ctx, invoice.ID.String())
}

func (s *invoiceService) createOnce(
	ctx context.Context,
	req CreateInvoiceRequest,
	clientID uuid.UUID,
	issuedAt, dueAt *time.Time,
	actorID *uuid.UUID,
) (*model.Invoice, []event.InvoiceEvent, error) {
	var invoice *model.Invoice
	var events []event.InvoiceEvent

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		number, err := s.numbers.Next(txCtx)
		if err != nil {
			return err
		}

		invoice = &model.Invoice{
			InvoiceNumber: number,
			ClientID:      clientID,
			Status:        model.StatusDraft,
			IssuedAt:      issuedAt,
			DueAt:         dueAt,
			Currency:      s.currency,
			Subtotal:      decimal.Zero,
			TaxTotal:      decimal.Zero,
			DiscountTotal: decimal.Zero,
			Total:         decimal.Zero,
			Notes:         req.Notes,
			Terms:         req.Terms,
		}
		if err := s.invoices.Create(txCtx, invoice); err != nil {
			return err
		}

		for _, payload := range req.Items {
			item, err := s.buildItem(txCtx, invoice, payload)
			if err != nil {
				return err
			}
			if err := s.invoices.CreateItem(txCtx, item); err != nil {
				return err
			}
		}

		if err := s.recalculate(txCtx, invoice); err != nil {
			return err
		}

		events = append(events, event.Snapshot(event.InvoiceCreated, invoice, actorID))

		if req.Finalize {
			if err := s.finalizeLocked(txCtx, invoice); err != nil {
				return err
			}
			events = append(events, event.Snapshot(event.InvoiceFinalized, invoice, actorID))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return invoice, events, nil
}

// AddItem appends a line item to a draft invoice and recomputes totals.
func (s *invoiceService) AddItem(ctx context.Context, id string, payload InvoiceItemPayload) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid invoice id: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoices.FindByIDForUpdate(txCtx, invoiceID)
		if err != nil {
			return err
		}
		if !invoice.Status.CanBeEdited() {
			return ErrInvoiceLocked
		}

		item, err := s.buildItem(txCtx, invoice, payload)
		if err != nil {
			return err
		}
		if err := s.invoices.CreateItem(txCtx, item); err != nil {
			return err
		}
		return s.recalculate(txCtx, invoice)
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	return s.GetInvoice(ctx, id)
}

// RecalculateTotals re-derives the invoice aggregates from the current item
// set and persists them.
func (s *invoiceService) RecalculateTotals(ctx context.Context, id string) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid invoice id: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoices.FindByIDForUpdate(txCtx, invoiceID)
		if err != nil {
			return err
		}
		return s.recalculate(txCtx, invoice)
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	return s.GetInvoice(ctx, id)
}

// Finalize transitions draft -> sent and emits InvoiceFinalized. Totals are
// recomputed first so the sent document reflects the current item set.
func (s *invoiceService) Finalize(ctx context.Context, id string, actorID *uuid.UUID) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid invoice id: %w", err)
	}

	var evt event.InvoiceEvent
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoices.FindByIDForUpdate(txCtx, invoiceID)
		if err != nil {
			return err
		}
		if err := s.finalizeLocked(txCtx, invoice); err != nil {
			return err
		}
		evt = event.Snapshot(event.InvoiceFinalized, invoice, actorID)
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	s.dispatcher.Dispatch(ctx, evt)
	return s.GetInvoice(ctx, id)
}

// MarkAsPaid transitions sent/overdue -> paid and emits InvoicePaid.
func (s *invoiceService) MarkAsPaid(ctx context.Context, id string, actorID *uuid.UUID) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid invoice id: %w", err)
	}

	var evt event.InvoiceEvent
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoices.FindByIDForUpdate(txCtx, invoiceID)
		if err != nil {
			return err
		}
		if !invoice.Status.CanBePaid() {
			return fmt.Errorf("%w: cannot mark %s invoice as paid", ErrInvalidTransition, invoice.Status)
		}

		invoice.Status = model.StatusPaid
		if err := s.invoices.Save(txCtx, invoice); err != nil {
			return err
		}
		evt = event.Snapshot(event.InvoicePaid, invoice, actorID)
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	s.dispatcher.Dispatch(ctx, evt)
	return s.GetInvoice(ctx, id)
}

// Cancel moves a non-terminal invoice to the cancelled state.
func (s *invoiceService) Cancel(ctx context.Context, id string) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid invoice id: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoices.FindByIDForUpdate(txCtx, invoiceID)
		if err != nil {
			return err
		}
		if !invoice.Status.CanBeCancelled() {
			return fmt.Errorf("%w: cannot cancel %s invoice", ErrInvalidTransition, invoice.Status)
		}
		invoice.Status = model.StatusCancelled
		return s.invoices.Save(txCtx, invoice)
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	return s.GetInvoice(ctx, id)
}

// --- Queries ---

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid invoice id: %w", err)
	}
	invoice, err := s.invoices.FindByIDWithItems(ctx, invoiceID)
	if err != nil {
		return InvoiceResponse{}, err
	}
	return s.toResponse(invoice), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	invoices, total, err := s.invoices.List(ctx, repository.InvoiceListFilter{
		Status:        filter.Status,
		ClientID:      filter.ClientID,
		InvoiceNumber: filter.InvoiceNumber,
		Page:          filter.Page,
		Limit:         filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	result := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		result = append(result, s.toResponse(&invoices[i]))
	}
	return result, total, nil
}

// DeleteInvoice tombstones the invoice. The row survives for historical
// reports and the numbering collision check.
func (s *invoiceService) DeleteInvoice(ctx context.Context, id string) error {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid invoice id: %w", err)
	}
	return s.invoices.Delete(ctx, invoiceID)
}

// --- Internal helpers ---

// finalizeLocked applies the finalize guards and transition to an invoice
// already locked within the current transaction.
func (s *invoiceService) finalizeLocked(txCtx context.Context, invoice *model.Invoice) error {
	if !invoice.Status.CanBeFinalized() {
		return fmt.Errorf("%w: cannot finalize %s invoice", ErrInvalidTransition, invoice.Status)
	}

	items, err := s.invoices.ItemsByInvoice(txCtx, invoice.ID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return ErrEmptyInvoice
	}

	// Finalization must reflect the current item state.
	if err := s.applyTotals(txCtx, invoice, items); err != nil {
		return err
	}

	invoice.Status = model.StatusSent
	if invoice.IssuedAt == nil {
		now := s.now().UTC()
		invoice.IssuedAt = &now
	}
	return s.invoices.Save(txCtx, invoice)
}

func (s *invoiceService) recalculate(txCtx context.Context, invoice *model.Invoice) error {
	items, err := s.invoices.ItemsByInvoice(txCtx, invoice.ID)
	if err != nil {
		return err
	}
	return s.applyTotals(txCtx, invoice, items)
}

func (s *invoiceService) applyTotals(txCtx context.Context, invoice *model.Invoice, items []model.InvoiceItem) error {
	totals, err := AggregateTotals(items, invoice.Currency)
	if err != nil {
		return err
	}
	invoice.Subtotal = totals.Subtotal.Decimal()
	invoice.TaxTotal = totals.TaxTotal.Decimal()
	invoice.DiscountTotal = totals.DiscountTotal.Decimal()
	invoice.Total = totals.Total.Decimal()
	return s.invoices.Save(txCtx, invoice)
}

// buildItem turns an item payload into a persisted-ready InvoiceItem,
// pulling unit price, tax rate and description defaults from the referenced
// product when the payload omits them.
func (s *invoiceService) buildItem(txCtx context.Context, invoice *model.Invoice, payload InvoiceItemPayload) (*model.InvoiceItem, error) {
	item := &model.InvoiceItem{
		InvoiceID:      invoice.ID,
		Description:    payload.Description,
		TaxRate:        decimal.Zero,
		DiscountAmount: decimal.Zero,
	}

	var product *model.Product
	if payload.ProductID != "" {
		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			return nil, fmt.Errorf("invalid product_id: %w", err)
		}
		product, err = s.products.FindByID(txCtx, productID)
		if err != nil {
			return nil, fmt.Errorf("product not found: %w", err)
		}
		item.ProductID = &productID
		if item.Description == "" {
			item.Description = product.Name
		}
	}
	if item.Description == "" {
		return nil, fmt.Errorf("item description is required")
	}

	quantity, err := decimal.NewFromString(payload.Quantity)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity: %w", err)
	}
	item.Quantity = quantity

	switch {
	case payload.UnitPrice != "":
		item.UnitPrice, err = decimal.NewFromString(payload.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("invalid unit_price: %w", err)
		}
	case product != nil:
		item.UnitPrice = product.UnitPrice
	default:
		return nil, fmt.Errorf("unit_price is required when no product is referenced")
	}

	switch {
	case payload.TaxRate != "":
		item.TaxRate, err = decimal.NewFromString(payload.TaxRate)
		if err != nil {
			return nil, fmt.Errorf("invalid tax_rate: %w", err)
		}
	case product != nil:
		item.TaxRate = product.TaxRate
	}

	if payload.DiscountAmount != "" {
		item.DiscountAmount, err = decimal.NewFromString(payload.DiscountAmount)
		if err != nil {
			return nil, fmt.Errorf("invalid discount_amount: %w", err)
		}
	}

	lineTotal, err := ComputeLineTotal(item.Quantity, item.UnitPrice, item.TaxRate, item.DiscountAmount, invoice.Currency)
	if err != nil {
		return nil, err
	}
	item.LineTotal = lineTotal.Decimal()
	return item, nil
}

// --- Mapping ---

func (s *invoiceService) toResponse(inv *model.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:            inv.ID.String(),
		InvoiceNumber: inv.InvoiceNumber,
		ClientID:      inv.ClientID.String(),
		Status:        string(inv.Status),
		IsOverdue:     inv.IsOverdue(s.now()),
		Currency:      inv.Currency,
		Subtotal:      inv.Subtotal.StringFixed(2),
		TaxTotal:      inv.TaxTotal.StringFixed(2),
		DiscountTotal: inv.DiscountTotal.StringFixed(2),
		Total:         inv.Total.StringFixed(2),
		Notes:         inv.Notes,
		Terms:         inv.Terms,
		CreatedAt:     inv.CreatedAt.Format(time.RFC3339),
	}
	if inv.Client != nil {
		resp.ClientName = inv.Client.Name
	}
	if inv.IssuedAt != nil {
		v := inv.IssuedAt.Format(time.RFC3339)
		resp.IssuedAt = &v
	}
	if inv.DueAt != nil {
		v := inv.DueAt.Format(time.RFC3339)
		resp.DueAt = &v
	}
	for _, item := range inv.Items {
		itemResp := InvoiceItemResponse{
			ID:             item.ID.String(),
			Description:    item.Description,
			Quantity:       item.Quantity.StringFixed(2),
			UnitPrice:      item.UnitPrice.StringFixed(2),
			TaxRate:        item.TaxRate.StringFixed(2),
			DiscountAmount: item.DiscountAmount.StringFixed(2),
			LineTotal:      item.LineTotal.StringFixed(2),
		}
		if item.ProductID != nil {
			v := item.ProductID.String()
			itemResp.ProductID = &v
		}
		resp.Items = append(resp.Items, itemResp)
	}
	return resp
}

func parseOptionalTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
