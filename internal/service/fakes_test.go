package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"invoicing-backend/internal/event"
	"invoicing-backend/internal/model"
	"invoicing-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memStore is the shared in-memory backing for the fake repositories. The
// fake transaction manager snapshots and restores it to emulate rollback.
type memStore struct {
	mu       sync.Mutex
	invoices []model.Invoice
	items    []model.InvoiceItem
	seq      int // drives strictly increasing CreatedAt stamps
}

func (s *memStore) nextCreatedAt() time.Time {
	s.seq++
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Second)
}

func (s *memStore) snapshot() *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memStore{
		invoices: append([]model.Invoice(nil), s.invoices...),
		items:    append([]model.InvoiceItem(nil), s.items...),
		seq:      s.seq,
	}
}

func (s *memStore) restore(from *memStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = from.invoices
	s.items = from.items
	s.seq = from.seq
}

// fakeTxManager runs the unit of work directly and rolls the store back on
// error, mirroring the transactional all-or-nothing behavior.
type fakeTxManager struct {
	store *memStore
}

func (t *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	saved := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(saved)
		return err
	}
	return nil
}

// fakeInvoiceRepo implements repository.InvoiceRepository against memStore.
// failDuplicates makes the next N invoice inserts lose the numbering race:
// the conflicting number is committed by the imaginary competitor (as a
// tombstoned row) and the insert fails with gorm.ErrDuplicatedKey.
type fakeInvoiceRepo struct {
	store          *memStore
	failDuplicates int
}

func newFakeInvoiceRepo(store *memStore) *fakeInvoiceRepo {
	return &fakeInvoiceRepo{store: store}
}

func (r *fakeInvoiceRepo) Create(_ context.Context, invoice *model.Invoice) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.failDuplicates > 0 {
		r.failDuplicates--
		competitor := model.Invoice{
			ID:            uuid.New(),
			InvoiceNumber: invoice.InvoiceNumber,
			ClientID:      invoice.ClientID,
			Status:        model.StatusDraft,
			Currency:      invoice.Currency,
			CreatedAt:     r.store.nextCreatedAt(),
			DeletedAt:     gorm.DeletedAt{Time: time.Now(), Valid: true},
		}
		r.store.invoices = append(r.store.invoices, competitor)
		return gorm.ErrDuplicatedKey
	}
	for _, existing := range r.store.invoices {
		if existing.InvoiceNumber == invoice.InvoiceNumber {
			return gorm.ErrDuplicatedKey
		}
	}

	invoice.ID = uuid.New()
	invoice.CreatedAt = r.store.nextCreatedAt()
	r.store.invoices = append(r.store.invoices, *invoice)
	return nil
}

func (r *fakeInvoiceRepo) Save(_ context.Context, invoice *model.Invoice) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.invoices {
		if r.store.invoices[i].ID == invoice.ID {
			saved := *invoice
			saved.Items = nil
			saved.Client = nil
			saved.CreatedAt = r.store.invoices[i].CreatedAt
			r.store.invoices[i] = saved
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.findLocked(id)
}

func (r *fakeInvoiceRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeInvoiceRepo) FindByIDWithItems(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	invoice, err := r.findLocked(id)
	if err != nil {
		return nil, err
	}
	invoice.Items = r.itemsLocked(id)
	return invoice, nil
}

func (r *fakeInvoiceRepo) List(_ context.Context, filter repository.InvoiceListFilter) ([]model.Invoice, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var matched []model.Invoice
	for _, inv := range r.store.invoices {
		if inv.DeletedAt.Valid {
			continue
		}
		if filter.Status != "" && string(inv.Status) != filter.Status {
			continue
		}
		if filter.ClientID != "" && inv.ClientID.String() != filter.ClientID {
			continue
		}
		if filter.InvoiceNumber != "" && !strings.Contains(inv.InvoiceNumber, filter.InvoiceNumber) {
			continue
		}
		matched = append(matched, inv)
	}

	total := int64(len(matched))
	offset := (filter.Page - 1) * filter.Limit
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *fakeInvoiceRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.invoices {
		if r.store.invoices[i].ID == id && !r.store.invoices[i].DeletedAt.Valid {
			r.store.invoices[i].DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeInvoiceRepo) CreateItem(_ context.Context, item *model.InvoiceItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	item.ID = uuid.New()
	item.CreatedAt = r.store.nextCreatedAt()
	r.store.items = append(r.store.items, *item)
	return nil
}

func (r *fakeInvoiceRepo) ItemsByInvoice(_ context.Context, invoiceID uuid.UUID) ([]model.InvoiceItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.itemsLocked(invoiceID), nil
}

func (r *fakeInvoiceRepo) ReplaceItems(_ context.Context, invoiceID uuid.UUID, items []model.InvoiceItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	kept := r.store.items[:0]
	for _, item := range r.store.items {
		if item.InvoiceID != invoiceID {
			kept = append(kept, item)
		}
	}
	r.store.items = kept
	for i := range items {
		items[i].ID = uuid.New()
		items[i].InvoiceID = invoiceID
		items[i].CreatedAt = r.store.nextCreatedAt()
		r.store.items = append(r.store.items, items[i])
	}
	return nil
}

func (r *fakeInvoiceRepo) LastNumberForYear(_ context.Context, prefix string, year int) (string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	pattern := fmt.Sprintf("%s-%d-", prefix, year)
	last := ""
	var lastCreated time.Time
	for _, inv := range r.store.invoices { // deleted invoices included
		if strings.HasPrefix(inv.InvoiceNumber, pattern) && inv.CreatedAt.After(lastCreated) {
			last = inv.InvoiceNumber
			lastCreated = inv.CreatedAt
		}
	}
	return last, nil
}

func (r *fakeInvoiceRepo) CountForYear(_ context.Context, prefix string, year int) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	pattern := fmt.Sprintf("%s-%d-", prefix, year)
	var count int64
	for _, inv := range r.store.invoices {
		if strings.HasPrefix(inv.InvoiceNumber, pattern) {
			count++
		}
	}
	return count, nil
}

func (r *fakeInvoiceRepo) MarkOverdue(_ context.Context, now time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var updated int64
	for i := range r.store.invoices {
		inv := &r.store.invoices[i]
		if inv.DeletedAt.Valid {
			continue
		}
		if inv.Status == model.StatusSent && inv.DueAt != nil && inv.DueAt.Before(now) {
			inv.Status = model.StatusOverdue
			updated++
		}
	}
	return updated, nil
}

func (r *fakeInvoiceRepo) findLocked(id uuid.UUID) (*model.Invoice, error) {
	for i := range r.store.invoices {
		if r.store.invoices[i].ID == id && !r.store.invoices[i].DeletedAt.Valid {
			inv := r.store.invoices[i]
			return &inv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeInvoiceRepo) itemsLocked(invoiceID uuid.UUID) []model.InvoiceItem {
	var items []model.InvoiceItem
	for _, item := range r.store.items {
		if item.InvoiceID == invoiceID {
			items = append(items, item)
		}
	}
	return items
}

type fakeClientRepo struct {
	clients map[uuid.UUID]*model.Client
}

func newFakeClientRepo(clients ...*model.Client) *fakeClientRepo {
	r := &fakeClientRepo{clients: make(map[uuid.UUID]*model.Client)}
	for _, c := range clients {
		r.clients[c.ID] = c
	}
	return r
}

func (r *fakeClientRepo) Create(_ context.Context, client *model.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	r.clients[client.ID] = client
	return nil
}

func (r *fakeClientRepo) Update(_ context.Context, client *model.Client) error {
	r.clients[client.ID] = client
	return nil
}

func (r *fakeClientRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.clients[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.clients, id)
	return nil
}

func (r *fakeClientRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Client, error) {
	if c, ok := r.clients[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeClientRepo) List(_ context.Context, _, _ int, _ string) ([]model.Client, int64, error) {
	var out []model.Client
	for _, c := range r.clients {
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

type fakeProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func newFakeProductRepo(products ...*model.Product) *fakeProductRepo {
	r := &fakeProductRepo{products: make(map[uuid.UUID]*model.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeProductRepo) Create(_ context.Context, product *model.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	r.products[product.ID] = product
	return nil
}

func (r *fakeProductRepo) Update(_ context.Context, product *model.Product) error {
	r.products[product.ID] = product
	return nil
}

func (r *fakeProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.products[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *fakeProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	if p, ok := r.products[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProductRepo) FindBySKU(_ context.Context, sku string) (*model.Product, error) {
	for _, p := range r.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProductRepo) List(_ context.Context, _, _ int, _ string) ([]model.Product, int64, error) {
	var out []model.Product
	for _, p := range r.products {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

// recordingDispatcher captures dispatched events in order.
type recordingDispatcher struct {
	events []event.InvoiceEvent
}

func (d *recordingDispatcher) Dispatch(_ context.Context, evt event.InvoiceEvent) {
	d.events = append(d.events, evt)
}

func (d *recordingDispatcher) names() []string {
	out := make([]string, 0, len(d.events))
	for _, evt := range d.events {
		out = append(out, evt.Name)
	}
	return out
}
