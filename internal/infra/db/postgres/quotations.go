package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"smatact/go_backend/internal/domain/quotation"
)

// QuotationRepository is the pgx-backed implementation of
// quotation.Repository. Line items travel as JSONB; the artifact table keeps
// at most one row per quotation, replaced on re-render.
type QuotationRepository struct {
	db *DB
}

func NewQuotationRepository(db *DB) *QuotationRepository {
	return &QuotationRepository{db: db}
}

func (r *QuotationRepository) Create(ctx context.Context, q *quotation.Quotation) error {
	items, err := json.Marshal(q.Items)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO quotations
			(id, number, customer_name, customer_email, customer_phone,
			 items, currency, terms, template, status, artifact_hash, created_at, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		q.ID, q.Number, q.Customer.Name, q.Customer.Email, q.Customer.Phone,
		items, q.Currency, q.Terms, q.Template, q.Status, q.ArtifactHash, q.CreatedAt, q.SentAt)
	return err
}

func (r *QuotationRepository) Get(ctx context.Context, id uuid.UUID) (*quotation.Quotation, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id, number, customer_name, customer_email, customer_phone,
		       items, currency, terms, template, status, artifact_hash, created_at, sent_at
		FROM quotations WHERE id = $1`, id)

	var q quotation.Quotation
	var items []byte
	var status string
	err := row.Scan(&q.ID, &q.Number, &q.Customer.Name, &q.Customer.Email, &q.Customer.Phone,
		&items, &q.Currency, &q.Terms, &q.Template, &status, &q.ArtifactHash, &q.CreatedAt, &q.SentAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, quotation.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	q.Status = quotation.Status(status)
	if err := json.Unmarshal(items, &q.Items); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuotationRepository) Update(ctx context.Context, q *quotation.Quotation) error {
	items, err := json.Marshal(q.Items)
	if err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE quotations SET
			customer_name=$2, customer_email=$3, customer_phone=$4,
			items=$5, currency=$6, terms=$7, template=$8,
			status=$9, artifact_hash=$10, sent_at=$11
		WHERE id=$1`,
		q.ID, q.Customer.Name, q.Customer.Email, q.Customer.Phone,
		items, q.Currency, q.Terms, q.Template, q.Status, q.ArtifactHash, q.SentAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return quotation.ErrNotFound
	}
	return nil
}

func (r *QuotationRepository) SaveArtifact(ctx context.Context, id uuid.UUID, a quotation.RenderedArtifact) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO quotation_artifacts (quotation_id, content_hash, pdf, rendered_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (quotation_id)
		DO UPDATE SET content_hash=$2, pdf=$3, rendered_at=$4`,
		id, a.ContentHash, a.PDF, a.RenderedAt)
	return err
}

func (r *QuotationRepository) GetArtifact(ctx context.Context, id uuid.UUID) (quotation.RenderedArtifact, error) {
	var a quotation.RenderedArtifact
	err := r.db.Pool.QueryRow(ctx, `
		SELECT content_hash, pdf, rendered_at
		FROM quotation_artifacts WHERE quotation_id = $1`, id).
		Scan(&a.ContentHash, &a.PDF, &a.RenderedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return quotation.RenderedArtifact{}, fmt.Errorf("no artifact for quotation %s", id)
	}
	return a, err
}

func (r *QuotationRepository) DeleteArtifact(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM quotation_artifacts WHERE quotation_id = $1`, id)
	return err
}

func (r *QuotationRepository) AddReceipt(ctx context.Context, rec quotation.DeliveryReceipt) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO delivery_receipts (quotation_id, recipient, attempt, outcome, cause, attempted_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		rec.QuotationID, rec.Recipient, rec.Attempt, rec.Outcome, rec.Cause, rec.AttemptedAt)
	return err
}

func (r *QuotationRepository) Receipts(ctx context.Context, id uuid.UUID) ([]quotation.DeliveryReceipt, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT quotation_id, recipient, attempt, outcome, cause, attempted_at
		FROM delivery_receipts WHERE quotation_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []quotation.DeliveryReceipt
	for rows.Next() {
		var rec quotation.DeliveryReceipt
		if err := rows.Scan(&rec.QuotationID, &rec.Recipient, &rec.Attempt,
			&rec.Outcome, &rec.Cause, &rec.AttemptedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *QuotationRepository) SaveSignature(ctx context.Context, s quotation.SignatureRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO signature_records (quotation_id, artifact_hash, payload, signer_email, signer_ip, signed_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.QuotationID, s.ArtifactHash, s.Payload, s.SignerEmail, s.SignerIP, s.SignedAt)
	return err
}

func (r *QuotationRepository) Signature(ctx context.Context, id uuid.UUID) (quotation.SignatureRecord, error) {
	var s quotation.SignatureRecord
	err := r.db.Pool.QueryRow(ctx, `
		SELECT quotation_id, artifact_hash, payload, signer_email, signer_ip, signed_at
		FROM signature_records WHERE quotation_id = $1`, id).
		Scan(&s.QuotationID, &s.ArtifactHash, &s.Payload, &s.SignerEmail, &s.SignerIP, &s.SignedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return quotation.SignatureRecord{}, fmt.Errorf("no signature for quotation %s", id)
	}
	return s, err
}

func (r *QuotationRepository) NextNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT nextval('quotation_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("Q-%s-%03d", time.Now().UTC().Format("20060102"), n), nil
}
