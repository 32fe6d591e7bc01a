package quotation

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists the four pipeline entities. The artifact relationship
// is always resolvable to "no artifact" or exactly one current artifact per
// quotation; saving a new artifact supersedes the previous one.
type Repository interface {
	Create(ctx context.Context, q *Quotation) error
	Get(ctx context.Context, id uuid.UUID) (*Quotation, error)
	Update(ctx context.Context, q *Quotation) error

	SaveArtifact(ctx context.Context, id uuid.UUID, a RenderedArtifact) error
	GetArtifact(ctx context.Context, id uuid.UUID) (RenderedArtifact, error)
	DeleteArtifact(ctx context.Context, id uuid.UUID) error

	AddReceipt(ctx context.Context, r DeliveryReceipt) error
	Receipts(ctx context.Context, id uuid.UUID) ([]DeliveryReceipt, error)

	SaveSignature(ctx context.Context, s SignatureRecord) error
	Signature(ctx context.Context, id uuid.UUID) (SignatureRecord, error)

	NextNumber(ctx context.Context) (string, error)
}
