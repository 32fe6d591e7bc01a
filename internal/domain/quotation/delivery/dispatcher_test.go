package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smatact/go_backend/internal/domain/quotation"
)

// scriptedTransport returns its errors in order, then succeeds.
type scriptedTransport struct {
	errs  []error
	calls int
	docs  []quotation.OutboundDocument
}

func (t *scriptedTransport) Send(_ context.Context, doc quotation.OutboundDocument) error {
	t.docs = append(t.docs, doc)
	t.calls++
	if t.calls <= len(t.errs) {
		return t.errs[t.calls-1]
	}
	return nil
}

func testDoc() quotation.OutboundDocument {
	return quotation.OutboundDocument{
		QuotationID: uuid.New(),
		Recipient:   "minji@example.com",
		Subject:     "Quotation Q-20260829-001",
		Body:        "attached",
		Filename:    "quotation_Q-20260829-001.pdf",
		PDF:         []byte("%PDF-1.4 fake"),
	}
}

func newDispatcher(t *scriptedTransport) *Dispatcher {
	return New(t, 2, time.Millisecond, zap.NewNop())
}

func TestDispatchFirstAttemptSucceeds(t *testing.T) {
	tr := &scriptedTransport{}
	d := newDispatcher(tr)

	doc := testDoc()
	receipts, err := d.Dispatch(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, 1, receipts[0].Attempt)
	assert.Equal(t, quotation.OutcomeSent, receipts[0].Outcome)
	assert.Empty(t, receipts[0].Cause)
	assert.Equal(t, doc.QuotationID, receipts[0].QuotationID)
}

func TestDispatchRetriesTransientThenSucceeds(t *testing.T) {
	tr := &scriptedTransport{errs: []error{
		&quotation.DeliveryTransientError{Err: errors.New("connection reset")},
	}}
	d := newDispatcher(tr)

	doc := testDoc()
	receipts, err := d.Dispatch(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	assert.Equal(t, quotation.OutcomeFailed, receipts[0].Outcome)
	assert.Contains(t, receipts[0].Cause, "connection reset")
	assert.Equal(t, quotation.OutcomeSent, receipts[1].Outcome)
	assert.Equal(t, 2, receipts[1].Attempt)

	// Retries resend the exact same bytes.
	require.Len(t, tr.docs, 2)
	assert.Equal(t, tr.docs[0].PDF, tr.docs[1].PDF)
}

func TestDispatchExhaustsRetryBudget(t *testing.T) {
	transient := &quotation.DeliveryTransientError{Err: errors.New("smtp timeout")}
	tr := &scriptedTransport{errs: []error{transient, transient, transient}}
	d := newDispatcher(tr)

	receipts, err := d.Dispatch(context.Background(), testDoc())
	var failed *quotation.DeliveryFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 3, failed.Attempts)
	require.Len(t, receipts, 3)
	for i, r := range receipts {
		assert.Equal(t, i+1, r.Attempt)
		assert.Equal(t, quotation.OutcomeFailed, r.Outcome)
	}
}

func TestDispatchPermanentStopsImmediately(t *testing.T) {
	tr := &scriptedTransport{errs: []error{
		&quotation.DeliveryPermanentError{Err: errors.New("550 mailbox unavailable")},
	}}
	d := newDispatcher(tr)

	receipts, err := d.Dispatch(context.Background(), testDoc())
	var perm *quotation.DeliveryPermanentError
	require.ErrorAs(t, err, &perm)
	require.Len(t, receipts, 1, "permanent failures are not retried")
	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, quotation.OutcomeFailed, receipts[0].Outcome)
}

func TestDispatchRejectsInvalidRecipientWithoutAttempting(t *testing.T) {
	tr := &scriptedTransport{}
	d := newDispatcher(tr)

	doc := testDoc()
	doc.Recipient = "not an address"
	receipts, err := d.Dispatch(context.Background(), doc)
	var perm *quotation.DeliveryPermanentError
	require.ErrorAs(t, err, &perm)
	assert.Empty(t, receipts)
	assert.Zero(t, tr.calls)
}

func TestDispatchHonorsContextBetweenAttempts(t *testing.T) {
	transient := &quotation.DeliveryTransientError{Err: errors.New("smtp timeout")}
	tr := &scriptedTransport{errs: []error{transient, transient, transient}}
	d := New(tr, 2, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	receipts, err := d.Dispatch(ctx, testDoc())
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, receipts, 1, "cancellation lands before the second attempt")
}
