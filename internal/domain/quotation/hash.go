package quotation

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// ContentHash digests the canonical form of a draft. Field order is fixed,
// free text is whitespace-normalized and money is serialized as plain minor
// units, so the same content always hashes the same regardless of how the
// draft was assembled.
func ContentHash(d Draft) string {
	var b strings.Builder
	b.WriteString("quotation/v1\x00")
	writeField(&b, d.Number)
	writeField(&b, d.Customer.Name)
	writeField(&b, d.Customer.Email)
	writeField(&b, d.Customer.Phone)
	writeField(&b, d.Currency)
	writeField(&b, d.Template)
	writeField(&b, strconv.FormatInt(d.IssuedAt.Unix(), 10))
	writeField(&b, strconv.FormatInt(d.VATRateBasisPt, 10))
	writeField(&b, strconv.Itoa(len(d.Items)))
	for _, it := range d.Items {
		writeField(&b, it.Description)
		writeField(&b, strconv.Itoa(it.Qty))
		writeField(&b, strconv.FormatInt(it.UnitPrice, 10))
	}
	writeField(&b, d.Terms)
	writeField(&b, d.Company.Name)
	writeField(&b, d.Company.Phone)
	writeField(&b, d.Company.Address)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func writeField(b *strings.Builder, s string) {
	b.WriteString(normalize(s))
	b.WriteByte(0)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
