package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendgridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridSender envia correos con la API v3 de SendGrid.
type SendGridSender struct {
	client   sendgridClient
	from     string
	fromName string
}

func NewSendGridSender(apiKey, from, fromName string) (*SendGridSender, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("sendgrid api key is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("sendgrid from is required")
	}
	return &SendGridSender{
		client:   sendgrid.NewSendClient(apiKey),
		from:     from,
		fromName: fromName,
	}, nil
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("to email is required")
	}
	from := mail.NewEmail(s.fromName, s.from)
	to := mail.NewEmail("", msg.To)
	sg := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	resp, err := s.client.SendWithContext(ctx, sg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	// La API responde 202; cualquier otro codigo fuera de 2xx es rechazo.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
