package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"go.uber.org/zap"

	"smatact/go_backend/internal/domain/quotation"
)

// Transport delivers one message. Implementations classify failures by
// wrapping them in DeliveryTransientError or DeliveryPermanentError.
type Transport interface {
	Send(ctx context.Context, doc quotation.OutboundDocument) error
}

// Dispatcher sends rendered documents with bounded retry. Transient failures
// are retried with exponential backoff; permanent ones stop immediately. One
// receipt is recorded per attempt, and the document bytes are passed through
// untouched: a retry resends the exact cached artifact.
type Dispatcher struct {
	Transport Transport
	Retries   int
	Backoff   time.Duration
	Log       *zap.Logger

	now func() time.Time
}

func New(t Transport, retries int, backoff time.Duration, log *zap.Logger) *Dispatcher {
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Dispatcher{Transport: t, Retries: retries, Backoff: backoff, Log: log, now: time.Now}
}

func (d *Dispatcher) Dispatch(ctx context.Context, doc quotation.OutboundDocument) ([]quotation.DeliveryReceipt, error) {
	if _, err := mail.ParseAddress(doc.Recipient); err != nil {
		return nil, &quotation.DeliveryPermanentError{Err: fmt.Errorf("invalid recipient %q: %w", doc.Recipient, err)}
	}

	var receipts []quotation.DeliveryReceipt
	backoff := d.Backoff
	var lastErr error

	for attempt := 1; attempt <= d.Retries+1; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return receipts, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		err := d.Transport.Send(ctx, doc)
		receipts = append(receipts, d.receipt(doc, attempt, err))
		if err == nil {
			d.Log.Info("document delivered",
				zap.String("quotation_id", doc.QuotationID.String()),
				zap.String("to", doc.Recipient),
				zap.Int("attempt", attempt))
			return receipts, nil
		}

		lastErr = err
		var perm *quotation.DeliveryPermanentError
		if errors.As(err, &perm) {
			d.Log.Warn("permanent delivery failure",
				zap.String("quotation_id", doc.QuotationID.String()), zap.Error(err))
			return receipts, err
		}
		d.Log.Warn("delivery attempt failed",
			zap.String("quotation_id", doc.QuotationID.String()),
			zap.Int("attempt", attempt), zap.Error(err))
	}

	return receipts, &quotation.DeliveryFailedError{Attempts: d.Retries + 1, LastErr: lastErr}
}

func (d *Dispatcher) receipt(doc quotation.OutboundDocument, attempt int, err error) quotation.DeliveryReceipt {
	r := quotation.DeliveryReceipt{
		QuotationID: doc.QuotationID,
		Recipient:   doc.Recipient,
		Attempt:     attempt,
		Outcome:     quotation.OutcomeSent,
		AttemptedAt: d.now().UTC(),
	}
	if err != nil {
		r.Outcome = quotation.OutcomeFailed
		r.Cause = err.Error()
	}
	return r
}
