package quotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testDraft() Draft {
	return Draft{
		Number:   "Q-20260829-001",
		Customer: Customer{Name: "Acme Studio", Email: "kim@acme.example", Phone: "010-1234-5678"},
		Items: []LineItem{
			{Description: "Design", Qty: 1, UnitPrice: 500000},
			{Description: "Dev", Qty: 2, UnitPrice: 300000},
		},
		Currency:       "KRW",
		Terms:          "Valid for 30 days. Scope changes may affect price.",
		Template:       "standard",
		IssuedAt:       time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		Company:        Company{Name: "Smatact", Phone: "010-4782-0000"},
		VATRateBasisPt: 1000,
	}
}

func TestContentHashStable(t *testing.T) {
	a := ContentHash(testDraft())
	b := ContentHash(testDraft())
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestContentHashNormalizesWhitespace(t *testing.T) {
	d1 := testDraft()
	d2 := testDraft()
	d2.Terms = "  Valid for 30 days.\n  Scope changes may   affect price. "
	assert.Equal(t, ContentHash(d1), ContentHash(d2))
}

func TestContentHashSensitiveToContent(t *testing.T) {
	base := ContentHash(testDraft())

	price := testDraft()
	price.Items[1].UnitPrice = 300001
	assert.NotEqual(t, base, ContentHash(price))

	qty := testDraft()
	qty.Items[0].Qty = 2
	assert.NotEqual(t, base, ContentHash(qty))

	order := testDraft()
	order.Items[0], order.Items[1] = order.Items[1], order.Items[0]
	assert.NotEqual(t, base, ContentHash(order), "item order is part of the document")

	terms := testDraft()
	terms.Terms = "Different terms"
	assert.NotEqual(t, base, ContentHash(terms))
}

func TestContentHashFieldBoundaries(t *testing.T) {
	// Content moved across a field boundary must not collide.
	d1 := testDraft()
	d1.Customer.Name = "Acme"
	d1.Customer.Email = "Studio"
	d2 := testDraft()
	d2.Customer.Name = "AcmeStudio"
	d2.Customer.Email = ""
	assert.NotEqual(t, ContentHash(d1), ContentHash(d2))
}

func TestTotalsRecomputedFromItems(t *testing.T) {
	d := testDraft()
	d.VATRateBasisPt = 0
	subtotal, vat, total := d.Totals()
	assert.Equal(t, int64(1100000), subtotal)
	assert.Equal(t, int64(0), vat)
	assert.Equal(t, int64(1100000), total)
}

func TestTotalsVATRoundsHalfUp(t *testing.T) {
	d := Draft{
		Items:          []LineItem{{Description: "odd", Qty: 1, UnitPrice: 15}},
		VATRateBasisPt: 1000,
	}
	// 15 * 10% = 1.5, rounds up to 2 at the minor unit.
	subtotal, vat, total := d.Totals()
	assert.Equal(t, int64(15), subtotal)
	assert.Equal(t, int64(2), vat)
	assert.Equal(t, int64(17), total)

	d.Items[0].UnitPrice = 14
	// 1.4 rounds down.
	_, vat, _ = d.Totals()
	assert.Equal(t, int64(1), vat)
}

func TestTotalsTenPercentVAT(t *testing.T) {
	d := testDraft()
	subtotal, vat, total := d.Totals()
	assert.Equal(t, int64(1100000), subtotal)
	assert.Equal(t, int64(110000), vat)
	assert.Equal(t, int64(1210000), total)
}
