// Package email sends operator notifications through Resend.
//
// Bodies are rendered from HTML templates embedded in the binary.
package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/deppfellow/cardapi/internal/config"
	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

const defaultSender = "Card Requests <onboarding@resend.dev>"

// sender is the part of the Resend emails service the client uses.
type sender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Client renders templates and sends them through Resend.
type Client struct {
	emails sender
	from   string
	logger *zerolog.Logger
}

// NewClient creates a Client from the integration settings.
func NewClient(cfg *config.IntegrationConfig, logger *zerolog.Logger) *Client {
	from := cfg.NotifyFrom
	if from == "" {
		from = defaultSender
	}
	return &Client{
		emails: resend.NewClient(cfg.ResendAPIKey).Emails,
		from:   from,
		logger: logger,
	}
}

// Render executes the named template with data.
func Render(templateName Template, data map[string]string) (string, error) {
	tmpl, err := template.ParseFS(templateFS, fmt.Sprintf("templates/%s.html", templateName))
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse email template %s", templateName)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", errors.Wrapf(err, "failed to execute email template %s", templateName)
	}
	return body.String(), nil
}

// SendEmail renders templateName and sends it to a single recipient.
func (c *Client) SendEmail(to, subject string, templateName Template, data map[string]string) error {
	html, err := Render(templateName, data)
	if err != nil {
		return err
	}

	resp, err := c.emails.Send(&resend.SendEmailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return errors.Wrap(err, "failed to send email")
	}

	c.logger.Debug().
		Str("to", to).
		Str("template", string(templateName)).
		Str("email_id", resp.Id).
		Msg("email sent")
	return nil
}
