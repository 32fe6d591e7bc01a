package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"smatact/go_backend/internal/domain/quotation"
)

// QuotationRepository keeps the pipeline entities in process memory. It backs
// the tests and is a drop-in for the postgres repository.
type QuotationRepository struct {
	mu         sync.RWMutex
	quotations map[uuid.UUID]quotation.Quotation
	artifacts  map[uuid.UUID]quotation.RenderedArtifact
	receipts   map[uuid.UUID][]quotation.DeliveryReceipt
	signatures map[uuid.UUID]quotation.SignatureRecord
	seq        int64
}

func NewQuotationRepository() *QuotationRepository {
	return &QuotationRepository{
		quotations: map[uuid.UUID]quotation.Quotation{},
		artifacts:  map[uuid.UUID]quotation.RenderedArtifact{},
		receipts:   map[uuid.UUID][]quotation.DeliveryReceipt{},
		signatures: map[uuid.UUID]quotation.SignatureRecord{},
	}
}

func (r *QuotationRepository) Create(_ context.Context, q *quotation.Quotation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quotations[q.ID]; ok {
		return fmt.Errorf("quotation %s already exists", q.ID)
	}
	r.quotations[q.ID] = clone(q)
	return nil
}

func (r *QuotationRepository) Get(_ context.Context, id uuid.UUID) (*quotation.Quotation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.quotations[id]
	if !ok {
		return nil, quotation.ErrNotFound
	}
	out := clone(&q)
	return &out, nil
}

func (r *QuotationRepository) Update(_ context.Context, q *quotation.Quotation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quotations[q.ID]; !ok {
		return quotation.ErrNotFound
	}
	r.quotations[q.ID] = clone(q)
	return nil
}

func (r *QuotationRepository) SaveArtifact(_ context.Context, id uuid.UUID, a quotation.RenderedArtifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.PDF = append([]byte(nil), a.PDF...)
	r.artifacts[id] = a
	return nil
}

func (r *QuotationRepository) GetArtifact(_ context.Context, id uuid.UUID) (quotation.RenderedArtifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.artifacts[id]
	if !ok {
		return quotation.RenderedArtifact{}, fmt.Errorf("no artifact for quotation %s", id)
	}
	a.PDF = append([]byte(nil), a.PDF...)
	return a, nil
}

func (r *QuotationRepository) DeleteArtifact(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.artifacts, id)
	return nil
}

func (r *QuotationRepository) AddReceipt(_ context.Context, rec quotation.DeliveryReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts[rec.QuotationID] = append(r.receipts[rec.QuotationID], rec)
	return nil
}

func (r *QuotationRepository) Receipts(_ context.Context, id uuid.UUID) ([]quotation.DeliveryReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]quotation.DeliveryReceipt(nil), r.receipts[id]...), nil
}

func (r *QuotationRepository) SaveSignature(_ context.Context, s quotation.SignatureRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.signatures[s.QuotationID]; ok {
		return fmt.Errorf("quotation %s already signed", s.QuotationID)
	}
	r.signatures[s.QuotationID] = s
	return nil
}

func (r *QuotationRepository) Signature(_ context.Context, id uuid.UUID) (quotation.SignatureRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.signatures[id]
	if !ok {
		return quotation.SignatureRecord{}, fmt.Errorf("no signature for quotation %s", id)
	}
	return s, nil
}

func (r *QuotationRepository) NextNumber(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return fmt.Sprintf("Q-%s-%03d", time.Now().UTC().Format("20060102"), r.seq), nil
}

func clone(q *quotation.Quotation) quotation.Quotation {
	out := *q
	out.Items = append([]quotation.LineItem(nil), q.Items...)
	if q.SentAt != nil {
		t := *q.SentAt
		out.SentAt = &t
	}
	return out
}
