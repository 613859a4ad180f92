package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// sendgridSender is the part of *sendgrid.Client the service uses.
type sendgridSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// sendWithSendgrid posts the message to the Sendgrid v3 API. Every message
// carries its template name as a category for Sendgrid's reporting.
func (s *Service) sendWithSendgrid(ctx context.Context, data EmailData, htmlContent, textContent string) error {
	if s.sendgridClient == nil {
		return fmt.Errorf("sendgrid client not configured")
	}

	from := mail.NewEmail(data.FromName, data.From)
	to := mail.NewEmail("", data.To)
	message := mail.NewSingleEmail(from, data.Subject, to, textContent, htmlContent)
	if data.TemplateName != "" {
		message.AddCategories(data.TemplateName)
	}

	response, err := s.sendgridClient.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sending %s via sendgrid: %w", data.TemplateName, err)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("sendgrid rejected %s: status %d: %s", data.TemplateName, response.StatusCode, response.Body)
	}
	return nil
}
