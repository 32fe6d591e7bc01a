package signature

import (
	"errors"
	"strings"

	"smatact/go_backend/internal/domain/quotation"
)

// Tracker validates signature submissions before they are bound to an
// artifact. The payload is a drawn-signature data URL; the shown hash must
// match the quotation's current artifact hash or the customer signed a
// superseded document.
type Tracker struct{}

func New() *Tracker { return &Tracker{} }

func (t *Tracker) Verify(payload, shownHash, currentHash string) error {
	if !ValidPayload(payload) {
		return errors.New("signature payload must be a png or svg data url")
	}
	if currentHash == "" {
		return &quotation.StaleDocumentError{SignedHash: shownHash, CurrentHash: ""}
	}
	if shownHash != currentHash {
		return &quotation.StaleDocumentError{SignedHash: shownHash, CurrentHash: currentHash}
	}
	return nil
}

// ValidPayload accepts the capture formats the signing pad produces.
func ValidPayload(payload string) bool {
	if strings.HasPrefix(payload, "data:image/png;base64,") {
		return len(payload) > len("data:image/png;base64,")
	}
	return strings.HasPrefix(payload, "data:image/svg+xml")
}
