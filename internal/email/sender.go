package email

import (
	"context"
)

// Attachment is a file attached to an outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a transport-agnostic outgoing email.
type Message struct {
	From        string
	FromName    string
	To          string
	Bcc         string
	Subject     string
	Text        string
	Attachments []Attachment
}

// Sender delivers a single message. Implementations are stateless per call:
// a fresh connection per send, no pooling.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
	Name() string
}
