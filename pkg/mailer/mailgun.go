package mailer

import (
	"context"
	"fmt"

	mg "github.com/mailgun/mailgun-go/v4"
)

// MailgunConfig holds Mailgun client configuration.
type MailgunConfig struct {
	Domain string
	APIKey string
	From   string
}

// MailgunSender delivers mail through the Mailgun HTTP API.
type MailgunSender struct {
	cfg MailgunConfig
}

func NewMailgunSender(cfg MailgunConfig) *MailgunSender {
	return &MailgunSender{cfg: cfg}
}

func (s *MailgunSender) Name() string { return "mailgun" }

func (s *MailgunSender) Send(ctx context.Context, msg *Message) (string, error) {
	client := mg.NewMailgun(s.cfg.Domain, s.cfg.APIKey)

	from := msg.From
	if from == "" {
		from = s.cfg.From
	}
	m := client.NewMessage(from, msg.Subject, "", msg.To)
	if msg.HTML != "" {
		m.SetHtml(msg.HTML)
	}
	for _, att := range msg.Attachments {
		m.AddBufferAttachment(att.Filename, att.Content)
	}

	_, id, err := client.Send(ctx, m)
	if err != nil {
		return "", fmt.Errorf("mailgun: %w", err)
	}
	return id, nil
}
