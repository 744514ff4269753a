package service

import (
	"github.com/shopspring/decimal"

	"invoicing-backend/internal/model"
	"invoicing-backend/internal/money"
)

var (
	minQuantity = decimal.NewFromFloat(0.01)
	maxTaxRate  = decimal.NewFromInt(100)
	oneHundred  = decimal.NewFromInt(100)
)

// ComputeLineTotal computes a single item's line total:
// net = unitPrice*quantity - discount, tax = net*rate/100, total = net + tax.
// The discount applies before tax and may not exceed the line subtotal.
func ComputeLineTotal(quantity, unitPrice, taxRate, discount decimal.Decimal, currency string) (money.Money, error) {
	if quantity.LessThan(minQuantity) {
		return money.Money{}, ErrInvalidQuantity
	}
	if unitPrice.IsNegative() {
		return money.Money{}, ErrInvalidUnitPrice
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(maxTaxRate) {
		return money.Money{}, ErrInvalidTaxRate
	}

	net, _, err := lineNet(quantity, unitPrice, discount, currency)
	if err != nil {
		return money.Money{}, err
	}

	if taxRate.IsPositive() {
		tax, err := net.Multiply(taxRate.Div(oneHundred))
		if err != nil {
			return money.Money{}, err
		}
		return net.Add(tax)
	}
	return net, nil
}

// Totals holds the invoice-level aggregates derived from the item set.
// Total is always Subtotal + TaxTotal, exactly, in integer cents.
type Totals struct {
	Subtotal      money.Money
	TaxTotal      money.Money
	DiscountTotal money.Money
	Total         money.Money
}

// AggregateTotals recomputes the invoice aggregates from its full item set.
// It is deterministic and idempotent; the orchestrator reruns it on every
// item change and immediately before finalization.
func AggregateTotals(items []model.InvoiceItem, currency string) (Totals, error) {
	subtotal := money.Zero(currency)
	taxTotal := money.Zero(currency)
	discountTotal := money.Zero(currency)

	for _, item := range items {
		net, discount, err := lineNet(item.Quantity, item.UnitPrice, item.DiscountAmount, currency)
		if err != nil {
			return Totals{}, err
		}

		if discountTotal, err = discountTotal.Add(discount); err != nil {
			return Totals{}, err
		}
		if subtotal, err = subtotal.Add(net); err != nil {
			return Totals{}, err
		}

		if item.TaxRate.IsPositive() {
			tax, err := net.Multiply(item.TaxRate.Div(oneHundred))
			if err != nil {
				return Totals{}, err
			}
			if taxTotal, err = taxTotal.Add(tax); err != nil {
				return Totals{}, err
			}
		}
	}

	total, err := subtotal.Add(taxTotal)
	if err != nil {
		return Totals{}, err
	}

	return Totals{
		Subtotal:      subtotal,
		TaxTotal:      taxTotal,
		DiscountTotal: discountTotal,
		Total:         total,
	}, nil
}

// lineNet returns the post-discount line subtotal and the discount applied.
func lineNet(quantity, unitPrice, discountAmount decimal.Decimal, currency string) (money.Money, money.Money, error) {
	gross, err := money.NewFromDecimal(unitPrice.Mul(quantity), currency)
	if err != nil {
		return money.Money{}, money.Money{}, err
	}

	discount := money.Zero(currency)
	if discountAmount.IsPositive() {
		discount, err = money.NewFromDecimal(discountAmount, currency)
		if err != nil {
			return money.Money{}, money.Money{}, err
		}
		net, err := gross.Subtract(discount)
		if err != nil {
			return money.Money{}, money.Money{}, ErrDiscountTooLarge
		}
		return net, discount, nil
	}
	return gross, discount, nil
}
