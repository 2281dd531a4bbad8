package mailer

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"
)

// ResendConfig holds Resend API configuration.
type ResendConfig struct {
	APIKey string
	From   string
}

// ResendSender delivers mail through the Resend HTTP API.
type ResendSender struct {
	client *resend.Client
	cfg    ResendConfig
}

func NewResendSender(cfg ResendConfig) *ResendSender {
	return &ResendSender{client: resend.NewClient(cfg.APIKey), cfg: cfg}
}

func (s *ResendSender) Name() string { return "resend" }

func (s *ResendSender) Send(ctx context.Context, msg *Message) (string, error) {
	from := msg.From
	if from == "" {
		from = s.cfg.From
	}

	req := &resend.SendEmailRequest{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	for _, att := range msg.Attachments {
		req.Attachments = append(req.Attachments, &resend.Attachment{
			Filename:    att.Filename,
			Content:     att.Content,
			ContentType: att.ContentType,
		})
	}

	sent, err := s.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}
	return sent.Id, nil
}
