package handlers

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"smatact/go_backend/internal/domain/quotation"
)

type lineItemJSON struct {
	Description string `json:"description"`
	Qty         int    `json:"qty"`
	UnitPrice   int64  `json:"unit_price"`
}

type quotationJSON struct {
	ID           string         `json:"id"`
	Number       string         `json:"number"`
	Customer     customerJSON   `json:"customer"`
	Items        []lineItemJSON `json:"items"`
	Currency     string         `json:"currency"`
	Terms        string         `json:"terms"`
	Status       string         `json:"status"`
	ArtifactHash string         `json:"artifact_hash,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
}

type customerJSON struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func toJSON(q *quotation.Quotation) quotationJSON {
	out := quotationJSON{
		ID:     q.ID.String(),
		Number: q.Number,
		Customer: customerJSON{
			Name:  q.Customer.Name,
			Email: q.Customer.Email,
			Phone: q.Customer.Phone,
		},
		Currency:     q.Currency,
		Terms:        q.Terms,
		Status:       string(q.Status),
		ArtifactHash: q.ArtifactHash,
		CreatedAt:    q.CreatedAt,
		SentAt:       q.SentAt,
	}
	for _, it := range q.Items {
		out.Items = append(out.Items, lineItemJSON{
			Description: it.Description,
			Qty:         it.Qty,
			UnitPrice:   it.UnitPrice,
		})
	}
	return out
}

func toItems(in []lineItemJSON) ([]quotation.LineItem, error) {
	var items []quotation.LineItem
	for _, it := range in {
		if it.Qty <= 0 {
			return nil, fmt.Errorf("qty must be > 0 for %q", it.Description)
		}
		if it.UnitPrice < 0 {
			return nil, fmt.Errorf("unit_price must be >= 0 for %q", it.Description)
		}
		items = append(items, quotation.LineItem{
			Description: it.Description,
			Qty:         it.Qty,
			UnitPrice:   it.UnitPrice,
		})
	}
	return items, nil
}

func (h *Handlers) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handlers) quotationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid quotation id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handlers) CreateQuotation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Customer customerJSON   `json:"customer"`
		Currency string         `json:"currency"`
		Items    []lineItemJSON `json:"items"`
		Terms    string         `json:"terms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	items, err := toItems(req.Items)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	q, err := h.Quotes.Create(r.Context(), quotation.Customer{
		Name:  req.Customer.Name,
		Email: req.Customer.Email,
		Phone: req.Customer.Phone,
	}, req.Currency, items, req.Terms)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, http.StatusCreated, toJSON(q))
}

func (h *Handlers) GetQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	q, err := h.Quotes.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK, toJSON(q))
}

func (h *Handlers) GenerateDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	var req struct {
		Brief struct {
			ClientName  string `json:"client_name"`
			ClientEmail string `json:"client_email"`
			ProjectType string `json:"project_type"`
			Budget      string `json:"budget"`
			Duration    string `json:"duration"`
			Description string `json:"description"`
		} `json:"brief"`
		Guideline string `json:"guideline"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	q, err := h.Quotes.GenerateDraft(r.Context(), id,
		quotation.Brief{
			ClientName:  req.Brief.ClientName,
			ClientEmail: req.Brief.ClientEmail,
			ProjectType: req.Brief.ProjectType,
			Budget:      req.Brief.Budget,
			Duration:    req.Brief.Duration,
			Description: req.Brief.Description,
		},
		quotation.RateCatalog{Guideline: req.Guideline})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK, toJSON(q))
}

func (h *Handlers) ApproveQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	q, err := h.Quotes.Approve(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK, toJSON(q))
}

// Document streams the cached artifact, rendering it first when needed. The
// bytes for one content hash never change between calls.
func (h *Handlers) Document(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	q, a, err := h.Quotes.Document(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="quotation_%s.pdf"`, q.Number))
	w.Header().Set("ETag", `"`+a.ContentHash+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(a.PDF)
}

func (h *Handlers) SendQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	var req struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
	}
	q, err := h.Quotes.Send(r.Context(), id, req.Subject, req.Body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK, toJSON(q))
}

func (h *Handlers) MarkViewed(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	q, err := h.Quotes.MarkViewed(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK, toJSON(q))
}

func (h *Handlers) SignQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	var req struct {
		Payload      string `json:"payload"`
		ArtifactHash string `json:"artifact_hash"`
		SignerEmail  string `json:"signer_email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	ip, _, _ := net.SplitHostPort(r.RemoteAddr)
	q, err := h.Quotes.Sign(r.Context(), id, quotation.SignatureSubmission{
		Payload:     req.Payload,
		ShownHash:   req.ArtifactHash,
		SignerEmail: req.SignerEmail,
		SignerIP:    ip,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK, toJSON(q))
}

func (h *Handlers) CancelQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	q, err := h.Quotes.Cancel(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK, toJSON(q))
}

func (h *Handlers) EditItems(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	var req struct {
		Items []lineItemJSON `json:"items"`
		Terms string         `json:"terms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	items, err := toItems(req.Items)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	q, err := h.Quotes.EditItems(r.Context(), id, items, req.Terms)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK, toJSON(q))
}

func (h *Handlers) Receipts(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	receipts, err := h.Quotes.Receipts(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	type receiptJSON struct {
		Recipient   string    `json:"recipient"`
		Attempt     int       `json:"attempt"`
		Outcome     string    `json:"outcome"`
		Cause       string    `json:"cause,omitempty"`
		AttemptedAt time.Time `json:"attempted_at"`
	}
	out := []receiptJSON{}
	for _, rec := range receipts {
		out = append(out, receiptJSON{
			Recipient:   rec.Recipient,
			Attempt:     rec.Attempt,
			Outcome:     rec.Outcome,
			Cause:       rec.Cause,
			AttemptedAt: rec.AttemptedAt,
		})
	}
	h.respond(w, http.StatusOK, out)
}
