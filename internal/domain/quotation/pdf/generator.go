package pdf

import "smatact/go_backend/internal/domain/quotation"

type Generator interface {
	Generate(d quotation.Draft) ([]byte, error)
}
