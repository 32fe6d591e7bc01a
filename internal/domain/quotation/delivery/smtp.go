package delivery

import (
	"bytes"
	"context"
	"errors"
	"net"

	"github.com/wneessen/go-mail"

	"smatact/go_backend/internal/domain/quotation"
)

// SMTPTransport sends quotation documents as email attachments.
type SMTPTransport struct {
	client *mail.Client
	from   string
	sender string
}

func NewSMTPTransport(host string, port int, user, password, from, senderName string) (*SMTPTransport, error) {
	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(user),
		mail.WithPassword(password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, err
	}
	return &SMTPTransport{client: client, from: from, sender: senderName}, nil
}

func (t *SMTPTransport) Send(ctx context.Context, doc quotation.OutboundDocument) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(t.sender, t.from); err != nil {
		return &quotation.DeliveryPermanentError{Err: err}
	}
	if err := msg.To(doc.Recipient); err != nil {
		return &quotation.DeliveryPermanentError{Err: err}
	}
	msg.Subject(doc.Subject)
	msg.SetBodyString(mail.TypeTextPlain, doc.Body)
	if err := msg.AttachReader(doc.Filename, bytes.NewReader(doc.PDF)); err != nil {
		return &quotation.DeliveryPermanentError{Err: err}
	}

	if err := t.client.DialAndSendWithContext(ctx, msg); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps transport failures onto the retry taxonomy: network and
// timeout errors plus 4xx SMTP responses are transient, 5xx rejections are
// permanent.
func classify(err error) error {
	var sendErr *mail.SendError
	if errors.As(err, &sendErr) {
		if sendErr.IsTemp() {
			return &quotation.DeliveryTransientError{Err: err}
		}
		return &quotation.DeliveryPermanentError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &quotation.DeliveryTransientError{Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &quotation.DeliveryTransientError{Err: err}
	}
	return &quotation.DeliveryTransientError{Err: err}
}
