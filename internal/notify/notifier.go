package notify

import "context"

// Message is one notification addressed to a chat user. Text is required;
// Document optionally attaches a file.
type Message struct {
	Text     string
	Document *Document
}

// Document is an attached file delivered alongside the message.
type Document struct {
	Name    string
	Content []byte
}

// Notifier delivers messages to chat users by their telegram id.
type Notifier interface {
	Send(ctx context.Context, recipientID int64, msg Message) error
}
