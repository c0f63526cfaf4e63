package cart

import (
	"github.com/shopspring/decimal"

	"github.com/dukerupert/idunn/internal/domain"
)

// Business constants for the order summary. Shipping is a flat fee waived
// when the pre-tax subtotal is strictly greater than the threshold.
var (
	taxRate           = decimal.NewFromFloat(0.10)
	shippingFee       = decimal.NewFromInt(10)
	freeShippingAbove = decimal.NewFromInt(100)
)

// Summarize computes the derived totals block for an item list. It is a
// pure function: any code path that changes items must call it again
// before persisting, so the stored summary can never drift from the
// stored items.
//
// Monetary values are carried as decimals through the computation and
// rounded to 2 decimal places only at the point each output field is
// produced, never earlier.
func Summarize(items []domain.LineItem) domain.Summary {
	if len(items) == 0 {
		return domain.Summary{}
	}

	subtotal := decimal.Zero
	totalQuantity := 0
	for _, item := range items {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
		totalQuantity += item.Quantity
	}

	tax := subtotal.Mul(taxRate).Round(2)

	// Free shipping requires strictly more than the threshold; a subtotal
	// of exactly 100.00 still pays the flat fee.
	shipping := shippingFee
	if subtotal.GreaterThan(freeShippingAbove) {
		shipping = decimal.Zero
	}

	total := subtotal.Add(tax).Add(shipping).Round(2)

	return domain.Summary{
		TotalItems:    len(items),
		TotalQuantity: totalQuantity,
		Subtotal:      subtotal.Round(2).InexactFloat64(),
		Tax:           tax.InexactFloat64(),
		Shipping:      shipping.InexactFloat64(),
		Total:         total.InexactFloat64(),
	}
}

// LineSubtotal computes price x quantity rounded to 2 decimal places.
func LineSubtotal(price float64, quantity int) float64 {
	return decimal.NewFromFloat(price).
		Mul(decimal.NewFromInt(int64(quantity))).
		Round(2).
		InexactFloat64()
}
