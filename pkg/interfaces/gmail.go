package interfaces

import (
	"context"

	"google.golang.org/api/gmail/v1"
)

// MailboxClient reads onboarding requests from a Gmail mailbox.
type MailboxClient interface {
	Connect(ctx context.Context) error
	ListMessages(ctx context.Context, query string, maxResults int64) ([]*gmail.Message, error)
	GetMessage(ctx context.Context, messageID string) (*gmail.Message, error)
	MarkProcessed(ctx context.Context, messageID string) error
}
