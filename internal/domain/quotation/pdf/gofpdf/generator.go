package gofpdf

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"smatact/go_backend/internal/domain/quotation"
	"smatact/go_backend/internal/domain/quotation/pdf"
)

var _ pdf.Generator = (*Generator)(nil)

// Generator renders a quotation draft to PDF. Output is a pure function of
// the draft value: the creation date comes from the draft, totals are
// recomputed from the line items and the typeface comes from the shared
// registry, so one content hash always yields identical bytes.
type Generator struct {
	fonts *FontRegistry
}

func New(fonts *FontRegistry) *Generator { return &Generator{fonts: fonts} }

func (g *Generator) Generate(d quotation.Draft) ([]byte, error) {
	if err := g.fonts.Register(); err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	// Both document dates come from the draft; gofpdf stamps wall-clock time
	// into any it is not given.
	pdf.SetCreationDate(d.IssuedAt.UTC())
	pdf.SetModificationDate(d.IssuedAt.UTC())
	pdf.SetTitle("Quotation "+d.Number, true)

	family := "Helvetica"
	if regular, bold, ok := g.fonts.UTF8Fonts(); ok {
		family = "Quote"
		pdf.AddUTF8FontFromBytes(family, "", regular)
		pdf.AddUTF8FontFromBytes(family, "B", bold)
	}
	if err := pdf.Error(); err != nil {
		return nil, &quotation.FontRegistrationError{Font: family, Err: err}
	}
	pdf.AddPage()

	// Header / branding.
	pdf.SetFont(family, "B", 16)
	pdf.Cell(0, 10, "Quotation")
	pdf.Ln(8)
	pdf.SetFont(family, "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("No. %s, issued %s", d.Number, d.IssuedAt.Format("2006-01-02")))
	pdf.Ln(6)
	if d.Company.Name != "" {
		pdf.Cell(0, 6, d.Company.Name)
		pdf.Ln(5)
		if d.Company.Address != "" {
			pdf.Cell(0, 6, d.Company.Address)
			pdf.Ln(5)
		}
		if d.Company.Phone != "" {
			pdf.Cell(0, 6, "Tel: "+d.Company.Phone)
			pdf.Ln(5)
		}
	}

	// Customer block.
	pdf.Ln(4)
	pdf.SetFont(family, "B", 11)
	pdf.Cell(0, 6, "Customer")
	pdf.Ln(6)
	pdf.SetFont(family, "", 10)
	pdf.Cell(0, 5, d.Customer.Name)
	pdf.Ln(5)
	if d.Customer.Email != "" {
		pdf.Cell(0, 5, d.Customer.Email)
		pdf.Ln(5)
	}
	if d.Customer.Phone != "" {
		pdf.Cell(0, 5, d.Customer.Phone)
		pdf.Ln(5)
	}

	// Itemized table.
	pdf.Ln(4)
	pdf.SetFont(family, "B", 10)
	pdf.Cell(95, 7, "Item")
	pdf.Cell(20, 7, "Qty")
	pdf.CellFormat(35, 7, "Unit price", "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Amount", "", 0, "R", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont(family, "", 10)
	for _, it := range d.Items {
		line := it.UnitPrice * int64(it.Qty)
		pdf.Cell(95, 6, trim(it.Description, 55))
		pdf.Cell(20, 6, strconv.Itoa(it.Qty))
		pdf.CellFormat(35, 6, formatAmount(it.UnitPrice), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, formatAmount(line), "", 0, "R", false, 0, "")
		pdf.Ln(6)
	}

	subtotal, vat, total := d.Totals()
	pdf.Ln(2)
	pdf.SetFont(family, "", 10)
	pdf.CellFormat(150, 6, "Subtotal", "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, formatAmount(subtotal), "", 0, "R", false, 0, "")
	pdf.Ln(6)
	pdf.CellFormat(150, 6, fmt.Sprintf("VAT (%s%%)", vatPercent(d.VATRateBasisPt)), "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, formatAmount(vat), "", 0, "R", false, 0, "")
	pdf.Ln(6)
	pdf.SetFont(family, "B", 11)
	pdf.CellFormat(150, 7, "Total ("+d.Currency+")", "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, formatAmount(total), "", 0, "R", false, 0, "")
	pdf.Ln(10)

	// Terms block.
	if d.Terms != "" {
		pdf.SetFont(family, "B", 10)
		pdf.Cell(0, 6, "Terms")
		pdf.Ln(6)
		pdf.SetFont(family, "", 9)
		pdf.MultiCell(0, 5, d.Terms, "", "L", false)
		pdf.Ln(4)
	}

	// Signature placeholder.
	pdf.Ln(8)
	pdf.SetFont(family, "", 10)
	pdf.Cell(0, 6, "Signature: ____________________________")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func trim(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func formatAmount(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

func vatPercent(bp int64) string {
	if bp%100 == 0 {
		return strconv.FormatInt(bp/100, 10)
	}
	return strconv.FormatFloat(float64(bp)/100, 'f', -1, 64)
}
