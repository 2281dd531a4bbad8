package entity

import "time"

// GenerationLog is one row of the cover-sheet audit trail: what was
// generated, where the artifact went, and how the email dispatch ended.
type GenerationLog struct {
	ID             string    `json:"id"`
	RecordID       string    `json:"recordId,omitempty"`
	Role           string    `json:"role"`
	TemplateName   string    `json:"template"`
	Filename       string    `json:"filename"`
	LocalPath      string    `json:"path,omitempty"`
	ObjectURL      string    `json:"objectUrl,omitempty"`
	EmailSent      bool      `json:"emailSent"`
	EmailProvider  string    `json:"emailProvider,omitempty"`
	EmailMessageID string    `json:"emailMessageId,omitempty"`
	EmailError     string    `json:"emailError,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
