package quotation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Quotation struct {
	ID       uuid.UUID
	Number   string
	Customer Customer
	Items    []LineItem
	Currency string
	Terms    string
	Template string

	Status       Status
	ArtifactHash string

	CreatedAt time.Time
	SentAt    *time.Time
}

type Customer struct {
	Name  string
	Email string
	Phone string
}

type LineItem struct {
	Description string
	Qty         int
	UnitPrice   int64
}

// Draft is the canonical input to the renderer: everything that appears in
// the document, nothing that does not. The content hash is computed over it.
type Draft struct {
	Number   string
	Customer Customer
	Items    []LineItem
	Currency string
	Terms    string
	Template string
	IssuedAt time.Time

	Company        Company
	VATRateBasisPt int64
}

type Company struct {
	Name    string
	Phone   string
	Address string
}

// RenderedArtifact is owned by exactly one quotation and superseded whenever
// the quotation is re-rendered for a new content hash.
type RenderedArtifact struct {
	ContentHash string
	PDF         []byte
	RenderedAt  time.Time
}

type DeliveryReceipt struct {
	QuotationID uuid.UUID
	Recipient   string
	Attempt     int
	Outcome     string
	Cause       string
	AttemptedAt time.Time
}

const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

type SignatureRecord struct {
	QuotationID  uuid.UUID
	ArtifactHash string
	Payload      string
	SignerEmail  string
	SignerIP     string
	SignedAt     time.Time
}

// Draft builds the renderer input for the quotation's current content.
func (q *Quotation) Draft(company Company, vatRateBP int64) Draft {
	return Draft{
		Number:         q.Number,
		Customer:       q.Customer,
		Items:          append([]LineItem(nil), q.Items...),
		Currency:       q.Currency,
		Terms:          q.Terms,
		Template:       q.Template,
		IssuedAt:       q.CreatedAt.UTC().Truncate(time.Second),
		Company:        company,
		VATRateBasisPt: vatRateBP,
	}
}

// Totals recomputes subtotal, VAT and grand total from line items. The
// renderer never trusts totals carried in upstream input; the document always
// shows the sum of what it lists. VAT rounds half up at the minor unit.
func (d Draft) Totals() (subtotal, vat, total int64) {
	sub := decimal.Zero
	for _, it := range d.Items {
		line := decimal.NewFromInt(it.UnitPrice).Mul(decimal.NewFromInt(int64(it.Qty)))
		sub = sub.Add(line)
	}
	rate := decimal.NewFromInt(d.VATRateBasisPt).Div(decimal.NewFromInt(10000))
	// decimal.Round is half away from zero, which is half up for amounts >= 0.
	v := sub.Mul(rate).Round(0)
	return sub.IntPart(), v.IntPart(), sub.Add(v).IntPart()
}
