package mailer

import "context"

// Message is the provider-agnostic outbound email. The same message is handed
// to every backend a dispatch attempts, so providers must not mutate it.
type Message struct {
	From        string
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Attachment is a file carried by the message, typically the rendered PDF.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Sender abstracts one email backend. Send returns the provider message ID on
// success.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg *Message) (messageID string, err error)
}

// DispatchResult records the outcome of a dispatch across providers.
// Invariant: Sent implies Error == "" and MessageID != ""; !Sent implies
// Error != "".
type DispatchResult struct {
	Sent      bool   `json:"sent"`
	Provider  string `json:"provider,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}
