package quotation

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Renderer turns a canonical draft into PDF bytes. Rendering the same draft
// value twice must produce byte-identical output; the service relies on that
// to reuse cached artifacts by content hash.
type Renderer interface {
	Generate(d Draft) ([]byte, error)
}

// DraftGenerator produces a structured draft from a customer brief and the
// rate catalog. Implementations retry internally and return
// *GenerationUnavailableError once the budget is spent.
type DraftGenerator interface {
	Draft(ctx context.Context, brief Brief, catalog RateCatalog) (GeneratedDraft, error)
}

// Dispatcher sends a rendered document to a recipient. It returns one receipt
// per attempt regardless of outcome; err is non-nil when no attempt succeeded.
type Dispatcher interface {
	Dispatch(ctx context.Context, doc OutboundDocument) ([]DeliveryReceipt, error)
}

// SignatureVerifier checks a signature payload against the artifact hash the
// customer was shown.
type SignatureVerifier interface {
	Verify(payload, shownHash, currentHash string) error
}

// EmailDrafter writes the delivery email copy. Optional: when absent or
// failing, Send uses its deterministic template instead.
type EmailDrafter interface {
	EmailCopy(ctx context.Context, number, customerName, companyName string) (subject, body string, err error)
}

type Brief struct {
	ClientName  string
	ClientEmail string
	ProjectType string
	Budget      string
	Duration    string
	Description string
}

type RateCatalog struct {
	Guideline string
}

type GeneratedDraft struct {
	Items []LineItem
	Terms string
}

type OutboundDocument struct {
	QuotationID uuid.UUID
	Recipient   string
	Subject     string
	Body        string
	Filename    string
	PDF         []byte
}

type SignatureSubmission struct {
	Payload     string
	ShownHash   string
	SignerEmail string
	SignerIP    string
}

type ServiceConfig struct {
	Company   Company
	VATRateBP int64
	Validity  time.Duration
}

// Service drives the quotation lifecycle. All per-quotation operations are
// serialized behind a per-identifier lock, so concurrent renders of one
// content hash collapse to a single artifact.
type Service struct {
	repo     Repository
	renderer Renderer
	gen      DraftGenerator
	dispatch Dispatcher
	sigs     SignatureVerifier
	copy     EmailDrafter
	cfg      ServiceConfig
	log      *zap.Logger
	now      func() time.Time

	// locks entries live for the process lifetime, bounded by the number of
	// quotations touched. Dropping an entry while a goroutine still waits on
	// it would leave two mutexes guarding one quotation.
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// Option adjusts service construction.
type Option func(*Service)

// WithClock substitutes the time source, mainly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithEmailDrafter enables AI-written delivery emails.
func WithEmailDrafter(d EmailDrafter) Option {
	return func(s *Service) { s.copy = d }
}

func NewService(repo Repository, renderer Renderer, gen DraftGenerator, dispatch Dispatcher, sigs SignatureVerifier, cfg ServiceConfig, log *zap.Logger, opts ...Option) *Service {
	if cfg.Validity <= 0 {
		cfg.Validity = 30 * 24 * time.Hour
	}
	if cfg.VATRateBP == 0 {
		cfg.VATRateBP = 1000
	}
	s := &Service{
		repo:     repo,
		renderer: renderer,
		gen:      gen,
		dispatch: dispatch,
		sigs:     sigs,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		locks:    map[uuid.UUID]*sync.Mutex{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) lock(id uuid.UUID) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Create opens a new quotation in draft. Items and terms may be empty; they
// arrive later from generation or manual entry.
func (s *Service) Create(ctx context.Context, customer Customer, currency string, items []LineItem, terms string) (*Quotation, error) {
	number, err := s.repo.NextNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate number: %w", err)
	}
	q := &Quotation{
		ID:        uuid.New(),
		Number:    number,
		Customer:  customer,
		Items:     items,
		Currency:  currency,
		Terms:     terms,
		Status:    StatusDraft,
		CreatedAt: s.now().UTC(),
	}
	if q.Currency == "" {
		q.Currency = "KRW"
	}
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, err
	}
	s.log.Info("quotation created",
		zap.String("id", q.ID.String()), zap.String("number", q.Number))
	return q, nil
}

// Get returns the quotation with expiry evaluated lazily: a sent or viewed
// quotation past its validity window flips to expired on read.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Quotation, error) {
	unlock := s.lock(id)
	defer unlock()
	return s.get(ctx, id)
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*Quotation, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if (q.Status == StatusSent || q.Status == StatusViewed) && q.SentAt != nil &&
		s.now().After(q.SentAt.Add(s.cfg.Validity)) {
		q.Status = StatusExpired
		if err := s.repo.Update(ctx, q); err != nil {
			return nil, err
		}
		s.log.Info("quotation expired", zap.String("id", q.ID.String()))
	}
	return q, nil
}

// GenerateDraft fills a draft quotation from the AI generator. The result is
// untrusted until an operator approves it; the status stays draft. On
// GenerationUnavailable nothing is written and the caller falls back to
// manual entry.
func (s *Service) GenerateDraft(ctx context.Context, id uuid.UUID, brief Brief, catalog RateCatalog) (*Quotation, error) {
	unlock := s.lock(id)
	defer unlock()

	q, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.Status != StatusDraft {
		return nil, &TransitionError{From: q.Status, To: StatusDraft}
	}
	draft, err := s.gen.Draft(ctx, brief, catalog)
	if err != nil {
		return nil, err
	}
	q.Items = draft.Items
	q.Terms = draft.Terms
	if err := s.repo.Update(ctx, q); err != nil {
		return nil, err
	}
	s.log.Info("draft generated",
		zap.String("id", q.ID.String()), zap.Int("items", len(q.Items)))
	return q, nil
}

// Approve records explicit human approval of the current draft content.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*Quotation, error) {
	unlock := s.lock(id)
	defer unlock()

	q, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !q.Status.CanTransition(StatusApproved) {
		return nil, &TransitionError{From: q.Status, To: StatusApproved}
	}
	if len(q.Items) == 0 {
		return nil, fmt.Errorf("cannot approve %s: no line items", q.Number)
	}
	q.Status = StatusApproved
	if err := s.repo.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Render produces the artifact for the current content hash, or reuses the
// cached one when the content has not changed. It is idempotent: re-entry
// with an unchanged draft never renders twice.
func (s *Service) Render(ctx context.Context, id uuid.UUID) (*Quotation, RenderedArtifact, error) {
	unlock := s.lock(id)
	defer unlock()
	return s.render(ctx, id)
}

func (s *Service) render(ctx context.Context, id uuid.UUID) (*Quotation, RenderedArtifact, error) {
	q, err := s.get(ctx, id)
	if err != nil {
		return nil, RenderedArtifact{}, err
	}
	draft := q.Draft(s.cfg.Company, s.cfg.VATRateBP)
	hash := ContentHash(draft)

	if q.ArtifactHash == hash {
		if a, err := s.repo.GetArtifact(ctx, id); err == nil && a.ContentHash == hash {
			return q, a, nil
		}
	}
	if q.Status != StatusApproved {
		return nil, RenderedArtifact{}, &TransitionError{From: q.Status, To: StatusRendered}
	}

	pdf, err := s.renderer.Generate(draft)
	if err != nil {
		return nil, RenderedArtifact{}, fmt.Errorf("render %s: %w", q.Number, err)
	}
	check, err := s.renderer.Generate(draft)
	if err != nil {
		return nil, RenderedArtifact{}, fmt.Errorf("render %s: %w", q.Number, err)
	}
	if !bytes.Equal(pdf, check) {
		return nil, RenderedArtifact{}, &RenderDeterminismViolation{ContentHash: hash}
	}

	a := RenderedArtifact{ContentHash: hash, PDF: pdf, RenderedAt: s.now().UTC()}
	if err := s.repo.SaveArtifact(ctx, id, a); err != nil {
		return nil, RenderedArtifact{}, err
	}
	q.ArtifactHash = hash
	q.Status = StatusRendered
	if err := s.repo.Update(ctx, q); err != nil {
		return nil, RenderedArtifact{}, err
	}
	s.log.Info("quotation rendered",
		zap.String("id", q.ID.String()),
		zap.String("content_hash", hash[:12]),
		zap.Int("bytes", len(pdf)))
	return q, a, nil
}

// Document returns the artifact bytes for download, rendering first if the
// quotation is approved but not yet rendered. The same content hash always
// yields the same bytes.
func (s *Service) Document(ctx context.Context, id uuid.UUID) (*Quotation, RenderedArtifact, error) {
	unlock := s.lock(id)
	defer unlock()

	q, err := s.get(ctx, id)
	if err != nil {
		return nil, RenderedArtifact{}, err
	}
	if q.Status == StatusApproved {
		return s.render(ctx, id)
	}
	if q.ArtifactHash == "" {
		return nil, RenderedArtifact{}, fmt.Errorf("%s has no rendered document", q.Number)
	}
	a, err := s.repo.GetArtifact(ctx, id)
	if err != nil {
		return nil, RenderedArtifact{}, err
	}
	return q, a, nil
}

// Send dispatches the cached artifact. The exact cached bytes are sent; the
// document is never regenerated for a retry. On failure the status stays
// rendered and the failed receipts remain on record.
func (s *Service) Send(ctx context.Context, id uuid.UUID, subject, body string) (*Quotation, error) {
	unlock := s.lock(id)
	defer unlock()

	q, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !q.Status.CanTransition(StatusSent) {
		return nil, &TransitionError{From: q.Status, To: StatusSent}
	}
	a, err := s.repo.GetArtifact(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load artifact for %s: %w", q.Number, err)
	}
	if subject == "" || body == "" {
		drafted, draftedBody := "", ""
		if s.copy != nil {
			gs, gb, err := s.copy.EmailCopy(ctx, q.Number, q.Customer.Name, s.cfg.Company.Name)
			if err != nil {
				s.log.Warn("email copy generation failed, using template",
					zap.String("id", q.ID.String()), zap.Error(err))
			} else {
				drafted, draftedBody = gs, gb
			}
		}
		if subject == "" {
			subject = drafted
		}
		if body == "" {
			body = draftedBody
		}
		if subject == "" {
			subject = fmt.Sprintf("[Quotation] %s - %s", q.Number, q.Customer.Name)
		}
		if body == "" {
			body = defaultDeliveryBody(q, s.cfg.Company)
		}
	}
	receipts, sendErr := s.dispatch.Dispatch(ctx, OutboundDocument{
		QuotationID: q.ID,
		Recipient:   q.Customer.Email,
		Subject:     subject,
		Body:        body,
		Filename:    fmt.Sprintf("quotation_%s.pdf", q.Number),
		PDF:         a.PDF,
	})
	for _, r := range receipts {
		if err := s.repo.AddReceipt(ctx, r); err != nil {
			s.log.Error("record delivery receipt", zap.Error(err))
		}
	}
	if sendErr != nil {
		s.log.Warn("delivery failed",
			zap.String("id", q.ID.String()), zap.Error(sendErr))
		return nil, sendErr
	}
	now := s.now().UTC()
	q.Status = StatusSent
	q.SentAt = &now
	if err := s.repo.Update(ctx, q); err != nil {
		return nil, err
	}
	s.log.Info("quotation sent",
		zap.String("id", q.ID.String()), zap.String("to", q.Customer.Email))
	return q, nil
}

// MarkViewed records the customer-opened signal. Advisory only; signing does
// not depend on it.
func (s *Service) MarkViewed(ctx context.Context, id uuid.UUID) (*Quotation, error) {
	unlock := s.lock(id)
	defer unlock()

	q, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !q.Status.CanTransition(StatusViewed) {
		return nil, &TransitionError{From: q.Status, To: StatusViewed}
	}
	q.Status = StatusViewed
	if err := s.repo.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Sign binds a captured signature to the current artifact hash. A signature
// against a superseded hash is rejected with StaleDocumentError and nothing
// is written.
func (s *Service) Sign(ctx context.Context, id uuid.UUID, sub SignatureSubmission) (*Quotation, error) {
	unlock := s.lock(id)
	defer unlock()

	q, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !q.Status.CanTransition(StatusSigned) {
		return nil, &TransitionError{From: q.Status, To: StatusSigned}
	}
	if err := s.sigs.Verify(sub.Payload, sub.ShownHash, q.ArtifactHash); err != nil {
		return nil, err
	}
	rec := SignatureRecord{
		QuotationID:  q.ID,
		ArtifactHash: q.ArtifactHash,
		Payload:      sub.Payload,
		SignerEmail:  sub.SignerEmail,
		SignerIP:     sub.SignerIP,
		SignedAt:     s.now().UTC(),
	}
	if err := s.repo.SaveSignature(ctx, rec); err != nil {
		return nil, err
	}
	q.Status = StatusSigned
	if err := s.repo.Update(ctx, q); err != nil {
		return nil, err
	}
	s.log.Info("quotation signed",
		zap.String("id", q.ID.String()),
		zap.String("artifact_hash", rec.ArtifactHash[:12]))
	return q, nil
}

// Cancel closes any non-terminal quotation.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Quotation, error) {
	unlock := s.lock(id)
	defer unlock()

	q, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.Status.Terminal() {
		return nil, &TransitionError{From: q.Status, To: StatusCancelled}
	}
	q.Status = StatusCancelled
	if err := s.repo.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// EditItems replaces the line-item set and terms. Past draft, any edit
// regresses the quotation to draft and invalidates the cached artifact: a
// rendered or sent document is never mutated in place.
func (s *Service) EditItems(ctx context.Context, id uuid.UUID, items []LineItem, terms string) (*Quotation, error) {
	unlock := s.lock(id)
	defer unlock()

	q, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.Status.Terminal() {
		return nil, &TransitionError{From: q.Status, To: StatusDraft}
	}
	q.Items = items
	q.Terms = terms
	if q.Status != StatusDraft {
		q.Status = StatusDraft
		s.log.Info("quotation regressed to draft on edit", zap.String("id", q.ID.String()))
	}
	if q.ArtifactHash != "" {
		q.ArtifactHash = ""
		if err := s.repo.DeleteArtifact(ctx, id); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Receipts lists delivery attempts for a quotation.
func (s *Service) Receipts(ctx context.Context, id uuid.UUID) ([]DeliveryReceipt, error) {
	return s.repo.Receipts(ctx, id)
}

func defaultDeliveryBody(q *Quotation, c Company) string {
	from := c.Name
	if from == "" {
		from = "the agency"
	}
	return fmt.Sprintf(`Hello %s,

Please find attached the quotation %s you requested.

If anything is unclear, just reply to this email.

Best regards,
%s`, q.Customer.Name, q.Number, from)
}
