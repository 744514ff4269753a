package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"invoicing-backend/internal/repository"
)

// DefaultInvoicePrefix is used when INVOICE_PREFIX is not configured.
const DefaultInvoicePrefix = "FAC"

var invoiceNumberPattern = regexp.MustCompile(`^([A-Z]+)-(\d{4})-(\d+)$`)

// NumberGenerator produces year-scoped sequential invoice numbers in the
// form PREFIX-YYYY-NNNN. The sequence is derived from the latest persisted
// number (soft-deleted invoices included); the unique index on
// invoice_number plus the orchestrator's duplicate-key retry covers the
// read-then-write race between concurrent creations.
type NumberGenerator struct {
	invoices repository.InvoiceRepository
	prefix   string
	now      func() time.Time
}

func NewNumberGenerator(invoices repository.InvoiceRepository, prefix string) *NumberGenerator {
	if prefix == "" {
		prefix = DefaultInvoicePrefix
	}
	return &NumberGenerator{invoices: invoices, prefix: prefix, now: time.Now}
}

// Next returns the next invoice number for the current year.
func (g *NumberGenerator) Next(ctx context.Context) (string, error) {
	year := g.now().Year()

	last, err := g.invoices.LastNumberForYear(ctx, g.prefix, year)
	if err != nil {
		return "", fmt.Errorf("numbering: failed to read last invoice number: %w", err)
	}

	seq := 1
	if last != "" {
		if m := invoiceNumberPattern.FindStringSubmatch(last); m != nil {
			n, convErr := strconv.Atoi(m[3])
			if convErr == nil {
				seq = n + 1
			}
		} else {
			// Latest number does not parse. Fall back to a count-based floor
			// instead of restarting at 1, which would collide.
			count, countErr := g.invoices.CountForYear(ctx, g.prefix, year)
			if countErr != nil {
				return "", fmt.Errorf("numbering: failed to count invoices: %w", countErr)
			}
			seq = int(count) + 1
		}
	}

	return fmt.Sprintf("%s-%d-%04d", g.prefix, year, seq), nil
}
